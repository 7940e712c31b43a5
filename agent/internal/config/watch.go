package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events a single save produces.
const reloadDelay = 100 * time.Millisecond

// Change is one accepted reload.
type Change struct {
	Old, New *Config

	// Restart lists changed fields that only take effect after a restart.
	Restart []string
}

// Live reports whether a field that is applied on hot reload changed.
func (c Change) Live() bool {
	return c.Old.Capture.Enabled != c.New.Capture.Enabled ||
		c.Old.Capture.Debug != c.New.Capture.Debug
}

// Watch monitors path and calls onChange whenever the file settles on content
// that differs from current. It runs until ctx is cancelled.
//
// The parent directory is watched so editors that save by renaming a temp
// file over path are seen too. A reload that fails to parse or validate is
// logged and the previous config stays current.
func Watch(ctx context.Context, path string, current *Config, onChange func(Change)) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	slog.Info("config: watching for changes", "path", path)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(reloadDelay)
			}

		case <-timer.C:
			updated, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}
			if *updated == *current {
				slog.Debug("config: file rewritten without changes", "path", path)
				continue
			}

			change := Change{Old: current, New: updated, Restart: RestartRequired(current, updated)}
			slog.Info("config: reloaded", "path", path, "live", change.Live(), "restart", change.Restart)
			current = updated
			onChange(change)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
