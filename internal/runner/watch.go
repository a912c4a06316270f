package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 250 * time.Millisecond

// Watch reruns the suite whenever a .sql file under the given paths changes.
// Each change triggers a fresh Discover so new files join the run. onRun is
// called with every summary, the initial run included. Watch blocks until
// the context is cancelled.
func (r *Runner) Watch(ctx context.Context, paths []string, onRun func(*Summary)) error {
	run := func() error {
		files, err := Discover(paths)
		if err != nil {
			return err
		}
		summary, err := r.Run(ctx, files)
		if err != nil {
			return err
		}
		onRun(summary)
		return nil
	}

	if err := run(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, path := range paths {
		if err := watchDir(watcher, path); err != nil {
			return fmt.Errorf("failed to watch %q: %w", path, err)
		}
	}

	var debounce *time.Timer
	var rerun <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".sql") {
				// A new directory may hold future .sql files.
				if event.Op.Has(fsnotify.Create) {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				continue
			}
			r.logger.Debug("file changed", "file", event.Name, "op", event.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
			} else {
				debounce.Reset(debounceDelay)
			}
			rerun = debounce.C
		case <-rerun:
			rerun = nil
			if err := run(); err != nil {
				return err
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher error", "error", watchErr)
		}
	}
}

// watchDir recursively adds a directory tree to the watcher, skipping hidden
// directories. A plain file adds its parent so edits are still seen.
func watchDir(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(path))
	}
	return filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if name := fi.Name(); p != path && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return watcher.Add(p)
		}
		return nil
	})
}
