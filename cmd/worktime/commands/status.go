package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/config"
	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/eventstore"
	"git.home.luguber.info/inful/worktime/internal/state"
	"git.home.luguber.info/inful/worktime/internal/statistics"
	"git.home.luguber.info/inful/worktime/internal/storage"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Offline bool          `help:"Read the local store instead of asking the daemon"`
	JSON    bool          `name:"json" help:"Print the snapshot as JSON"`
	Timeout time.Duration `help:"Request timeout" default:"5s"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var snap engine.Snapshot
	if s.Offline {
		snap, err = LocalSnapshot(ctx, cfg)
	} else {
		snap, err = NewAPIClient(cfg.Server.Address, s.Timeout).Snapshot(ctx)
	}
	if err != nil {
		return err
	}
	if err := writeSnapshot(os.Stdout, snap, s.JSON); err != nil {
		return err
	}
	if s.Offline && !s.JSON {
		return printPending(ctx, os.Stdout, cfg)
	}
	return nil
}

// printPending reports queued time entries; nothing is printed when the
// outbox has never been used.
func printPending(ctx context.Context, w io.Writer, cfg *config.Config) error {
	outbox, err := commit.NewOutbox(ctx, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer func() { _ = outbox.Close() }()
	n, err := outbox.PendingCount(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		_, _ = fmt.Fprintf(w, "Outbox:     %d pending (see 'worktime outbox')\n", n)
	}
	return nil
}

func writeSnapshot(w io.Writer, snap engine.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	printSnapshot(w, snap)
	return nil
}

// LocalSnapshot recovers today's session straight from the local store, the
// same way the daemon does on startup. The remote mirror is not consulted.
func LocalSnapshot(ctx context.Context, cfg *config.Config) (engine.Snapshot, error) {
	db, err := storage.OpenSQLite(ctx, cfg.Storage.Path)
	if err != nil {
		return engine.Snapshot{}, err
	}
	defer func() { _ = db.Close() }()

	local, err := state.NewSQLiteStoreWithDB(ctx, db)
	if err != nil {
		return engine.Snapshot{}, err
	}
	events, err := eventstore.NewSQLiteStoreWithDB(ctx, db, cfg.WorkerID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	persister := state.NewPersister(local, state.Options{
		Key:    state.RecordKey(cfg.WorkerID),
		Events: events,
	})
	e := engine.New(persister, engine.Options{
		Location:      cfg.Location(),
		Targets:       statistics.Targets{Daily: cfg.Targets.Daily, WarningLead: cfg.Targets.WarningLead},
		EmergencyWeek: cfg.EmergencyWeek,
		WorkerID:      cfg.WorkerID,
		Events:        events,
	})
	if err := e.Load(ctx); err != nil {
		return engine.Snapshot{}, err
	}
	snap := e.Snapshot()
	persister.Wait()
	return snap, nil
}
