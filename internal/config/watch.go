package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch re-loads path on every write and hands the result to apply. A bad
// revision is skipped: the file must parse and validate before apply sees it,
// so a half-edited config never reaches the running server. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, apply func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}
	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, open := <-w.Events:
			if !open {
				return nil
			}
			// Plain writes arrive as Write; editors that save atomically
			// replace the file, which arrives as Create.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				reload(path, apply)
				// An atomic save leaves the watch on the old inode.
				_ = w.Add(path)
			}

		case err, open := <-w.Errors:
			if !open {
				return nil
			}
			slog.Error("config: watcher error", "path", path, "err", err)
		}
	}
}

// reload parses and applies one revision of the file, or logs why it was
// rejected and leaves the previous revision in effect.
func reload(path string, apply func(*Config)) {
	cfg, err := Load(path)
	if err != nil {
		slog.Error("config: reload rejected, keeping previous revision",
			"path", path, "err", err)
		return
	}
	slog.Info("config: reloaded", "path", path)
	apply(cfg)
}
