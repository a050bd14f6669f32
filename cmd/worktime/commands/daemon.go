package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/worktime/internal/config"
	"git.home.luguber.info/inful/worktime/internal/daemon"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	NoWatch bool `name:"no-watch" help:"Do not reload targets when the configuration file changes"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	configPath := root.Config
	if d.NoWatch {
		configPath = ""
	}
	return RunDaemon(cfg, configPath, g.Logger)
}

// RunDaemon runs the daemon until SIGINT or SIGTERM.
func RunDaemon(cfg *config.Config, configPath string, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.NewDaemon(ctx, cfg, configPath, daemon.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	logger.Info("Starting daemon mode", slog.String("address", cfg.Server.Address))
	if err := d.Run(ctx); err != nil {
		return err
	}
	logger.Info("Daemon stopped successfully")
	return nil
}
