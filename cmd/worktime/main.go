package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/worktime/cmd/worktime/commands"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Logger: slog.Default()}
	parser := kong.Parse(cli,
		kong.Name("worktime"),
		kong.Description("Track the working day: sessions, breaks and time entries."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := parser.Run(global, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
