package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/worktime/internal/config"
	"git.home.luguber.info/inful/worktime/internal/logfields"
)

// Reloader applies a freshly loaded configuration.
type Reloader interface {
	ReloadConfig(ctx context.Context, cfg *config.Config) error
}

// ConfigWatcher monitors the configuration file and triggers reloads.
type ConfigWatcher struct {
	configPath   string
	target       Reloader
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	stopped      bool
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// NewConfigWatcher creates a watcher for configPath.
func NewConfigWatcher(configPath string, target Reloader) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		target:       target,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: time.Second,
	}, nil
}

// SetDebounce changes the quiet period before a reload. Call before Start.
func (cw *ConfigWatcher) SetDebounce(d time.Duration) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.debounceTime = d
}

// Start begins monitoring. The directory is watched, so editors that replace
// the file on save are handled.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	slog.Info("Starting configuration watcher", logfields.Path(cw.configPath))
	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx, cw.debounceTime)
	return nil
}

// Stop stops the watcher. Further calls are no-ops.
func (cw *ConfigWatcher) Stop(_ context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.stopped {
		return nil
	}
	cw.stopped = true

	slog.Info("Stopping configuration watcher")
	close(cw.stopChan)
	if err := cw.watcher.Close(); err != nil {
		return fmt.Errorf("close file watcher: %w", err)
	}
	return nil
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				cw.triggerReload()
			case event.Has(fsnotify.Remove):
				slog.Warn("Config file removed", logfields.Path(event.Name))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop debounces bursts of change events into one reload.
func (cw *ConfigWatcher) reloadLoop(ctx context.Context, debounce time.Duration) {
	var reloadTimer *time.Timer
	stop := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-cw.stopChan:
			stop()
			return
		case <-cw.reloadChan:
			stop()
			reloadTimer = time.AfterFunc(debounce, func() {
				if err := cw.performReload(ctx); err != nil {
					slog.Error("Failed to reload configuration", logfields.Path(cw.configPath), logfields.Error(err))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

// performReload loads, validates and applies the configuration. An invalid
// file leaves the running configuration untouched.
func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	slog.Info("Reloading configuration", logfields.Path(cw.configPath))
	next, err := config.Load(cw.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new configuration: %w", err)
	}
	if err := cw.target.ReloadConfig(ctx, next); err != nil {
		return fmt.Errorf("failed to apply new configuration: %w", err)
	}
	slog.Info("Configuration reloaded successfully")
	return nil
}
