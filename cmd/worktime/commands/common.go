package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/worktime/internal/config"
	"git.home.luguber.info/inful/worktime/internal/engine"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"worktime.yaml" env:"WORKTIME_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon        DaemonCmd        `cmd:"" help:"Run the tracker with its HTTP API until interrupted"`
	Init          InitCmd          `cmd:"" help:"Initialize a new configuration file"`
	Status        StatusCmd        `cmd:"" help:"Show the current session"`
	Session       SessionCmd       `cmd:"" help:"Start, pause, resume or stop the session on a running daemon"`
	EmergencyWeek EmergencyWeekCmd `cmd:"" name:"emergency-week" help:"Toggle the emergency week flag on a running daemon"`
	Outbox        OutboxCmd        `cmd:"" help:"List time entries waiting for redelivery"`
	Print         VersionCmd       `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	g.Logger = config.NewLogger(os.Stderr, config.LoggingConfig{Level: level})
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig reads the configuration and, unless --verbose overrides it,
// switches logging to the configured level and format.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if !c.Verbose {
		g.Logger = config.NewLogger(os.Stderr, cfg.Logging)
		slog.SetDefault(g.Logger)
	}
	return cfg, nil
}

// printSnapshot renders a snapshot the way the status line shows it.
func printSnapshot(w io.Writer, snap engine.Snapshot) {
	_, _ = fmt.Fprintf(w, "Day:        %s\n", snap.DayKey)
	_, _ = fmt.Fprintf(w, "Status:     %s\n", snap.Status)
	if snap.Elapsed != "" {
		_, _ = fmt.Fprintf(w, "Elapsed:    %s\n", snap.Elapsed)
	}
	_, _ = fmt.Fprintf(w, "Worked:     %s\n", snap.NetWorked)
	_, _ = fmt.Fprintf(w, "Breaks:     %s\n", snap.NetBreak)
	_, _ = fmt.Fprintf(w, "End of day: %s\n", snap.ProjectedEndOfDay)
	_, _ = fmt.Fprintf(w, "Warning:    %s\n", snap.WarningLevel)
	if snap.EmergencyWeek {
		_, _ = fmt.Fprintln(w, "Emergency week: on")
	}
	if snap.Notice != nil {
		_, _ = fmt.Fprintf(w, "Notice:     %s\n", snap.Notice.Message)
	}
}

// baseURL turns a listen address such as ":8787" into a dialable URL.
func baseURL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return strings.TrimSuffix(address, "/")
	}
	if strings.HasPrefix(address, ":") {
		address = "127.0.0.1" + address
	}
	return "http://" + address
}
