package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/worktime/internal/server/responses"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// SessionCmd implements the 'session' command.
type SessionCmd struct {
	Action  string        `arg:"" enum:"start,pause,resume,stop" help:"Lifecycle action (start, pause, resume, stop)"`
	Timeout time.Duration `help:"Request timeout" default:"30s"`
}

func (s *SessionCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	kind, err := session.ParseKind(s.Action)
	if err != nil {
		return err
	}
	resp, err := NewAPIClient(cfg.Server.Address, s.Timeout).Action(context.Background(), kind)
	if resp.Session.DayKey != "" {
		printActionResponse(os.Stdout, kind, resp)
	}
	return err
}

// EmergencyWeekCmd implements the 'emergency-week' command.
type EmergencyWeekCmd struct {
	State   string        `arg:"" enum:"on,off" help:"Flag state (on, off)"`
	Timeout time.Duration `help:"Request timeout" default:"5s"`
}

func (c *EmergencyWeekCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	resp, err := NewAPIClient(cfg.Server.Address, c.Timeout).SetEmergencyWeek(context.Background(), c.State == "on")
	if err != nil {
		return err
	}
	printSnapshot(os.Stdout, resp.Session)
	return nil
}

func printActionResponse(w io.Writer, kind session.Kind, resp responses.ActionResponse) {
	if !resp.Applied {
		_, _ = fmt.Fprintf(w, "Ignored: %s is not possible while %s\n", kind, resp.Session.Status)
	}
	if resp.Entry != nil {
		_, _ = fmt.Fprintf(w, "Entry:      %s %s-%s (%s)\n",
			resp.Entry.Date, resp.Entry.StartTime, resp.Entry.EndTime, resp.Entry.Duration)
	}
	if resp.Commit != "" {
		_, _ = fmt.Fprintf(w, "Commit:     %s\n", resp.Commit)
	}
	printSnapshot(w, resp.Session)
}
