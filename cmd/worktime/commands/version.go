package commands

import (
	"fmt"

	"git.home.luguber.info/inful/worktime/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println("worktime " + version.String())
	return nil
}
