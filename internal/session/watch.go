package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch keeps s in sync with the credential file until ctx is cancelled, so a
// login or logout in another terminal reaches a running client.
//
// The parent directory is watched rather than the file itself because Save
// replaces the file by rename. Bursts of events are debounced and content
// this process wrote itself is ignored.
func Watch(ctx context.Context, f *FileStore, s *Session, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	name := filepath.Base(f.path)

	logger.Debug("session watcher: started", slog.String("path", f.path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Debug("session watcher: stopped")
			return nil

		case <-reloadCh:
			if !f.changed() {
				continue
			}
			c, err := f.Load()
			if err != nil {
				logger.Warn("session watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("session watcher: credential changed", slog.Bool("signed_in", c.AccessToken != ""))
			s.Set(c.AccessToken, c.Email)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("session watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
