// Package watch triggers a debounced rebuild when files under a set of
// directory trees change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc is called once per quiet period after one or more changes.
// changed holds the absolute paths seen since the previous call, in arrival
// order without repeats.
type RebuildFunc func(ctx context.Context, changed []string) error

// Options configures Watch.
type Options struct {
	Roots    []string
	Debounce time.Duration
	Logger   *slog.Logger

	// Ignore reports paths whose events are dropped. When nil, Ignored is used.
	Ignore func(path string) bool
}

// Ignored drops editor and OS noise plus atomic-write temp files.
func Ignored(path string) bool {
	base := filepath.Base(path)
	switch {
	case base == ".DS_Store":
		return true
	case strings.HasPrefix(base, ".componentkit-tmp-"):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"):
		return true
	}
	return false
}

// Watch runs until ctx is cancelled. Missing roots are skipped with a warning;
// an error is returned only when no root could be watched. Rebuild errors are
// logged and do not stop the watcher.
func Watch(ctx context.Context, opts Options, rebuild RebuildFunc) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = Ignored
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := 0
	for _, root := range opts.Roots {
		if err := addDirsRecursive(w, root); err != nil {
			logger.Warn("watcher: skipping root", slog.String("root", root), slog.String("error", err.Error()))
			continue
		}
		watched++
	}
	if watched == 0 {
		return errors.New("watch: no watchable roots")
	}
	logger.Info("watcher: started", slog.Any("roots", opts.Roots))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending []string
		seen    = map[string]struct{}{}
	)
	schedule := func(path string) {
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			pending = append(pending, path)
		}
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			changed := pending
			pending = nil
			seen = map[string]struct{}{}
			logger.Debug("watcher: rebuilding", slog.Int("changes", len(changed)))
			if err := rebuild(ctx, changed); err != nil {
				logger.Error("watcher: rebuild failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignore(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
