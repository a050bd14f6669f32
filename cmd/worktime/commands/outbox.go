package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/config"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/retry"
)

// OutboxCmd implements the 'outbox' command.
type OutboxCmd struct {
	Drain bool `help:"Submit every due entry now instead of only listing"`
}

func (o *OutboxCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	ctx := context.Background()

	outbox, err := commit.NewOutbox(ctx, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer func() { _ = outbox.Close() }()

	if o.Drain {
		if cfg.Commit.Endpoint == "" {
			return errors.ValidationError("commit endpoint not configured").Build()
		}
		committer := commit.NewCommitter(commit.Options{
			Submitter: commit.NewClient(cfg.Commit.Endpoint, cfg.Commit.Token, cfg.Commit.Timeout),
			Outbox:    outbox,
			Policy:    retry.FromConfig(cfg.Commit.Retry),
			Logger:    g.Logger,
		})
		n, err := committer.Drain(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Delivered %d time entries\n", n)
	}

	items, err := outbox.List(ctx)
	if err != nil {
		return err
	}
	return printOutbox(os.Stdout, items, cfg)
}

func printOutbox(w io.Writer, items []commit.Item, cfg *config.Config) error {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "Outbox is empty")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DATE\tINTERVAL\tDURATION\tSTATUS\tATTEMPTS\tNEXT ATTEMPT\tLAST ERROR")
	for _, it := range items {
		next := "-"
		if it.Status == commit.StatusPending {
			next = it.NextAttemptAt.In(cfg.Location()).Format(time.DateTime)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s-%s\t%s\t%s\t%d\t%s\t%s\n",
			it.Entry.Date, it.Entry.StartTime, it.Entry.EndTime, it.Entry.Duration,
			it.Status, it.Attempts, next, it.LastError)
	}
	return tw.Flush()
}
