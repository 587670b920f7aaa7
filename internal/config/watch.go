package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ayusman/abhinaya/internal/log"
)

// reloadDebounce batches the bursts of events editors produce on save.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// validated result to fn. Files that fail to decode or validate are logged
// and skipped. Watch blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename keep being observed.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false

			// Load would write defaults over a file that was moved away.
			if _, err := os.Stat(abs); err != nil {
				log.Warn("config file gone, keeping current settings", "path", abs, "error", err)
				continue
			}

			cfg, err := Load(abs)
			if err != nil {
				log.Warn("config reload rejected", "path", abs, "error", err)
				continue
			}
			log.Info("config reloaded", "path", abs)
			fn(cfg)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(reloadDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "error", err)
		}
	}
}
