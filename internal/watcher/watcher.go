// Package watcher re-runs work when icon files under a directory change.
// Bursts of events are coalesced into one callback after a quiet period.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"iconsort/internal/config"
	"iconsort/internal/logging"
)

// Options configures a Watcher.
type Options struct {
	Root       string
	Extensions []string
	// ExcludeDirs are directory names never watched.
	ExcludeDirs []string
	// ExcludePaths are absolute directories never watched, typically the
	// output and backup trees.
	ExcludePaths []string
	Debounce     time.Duration
}

// OptionsFromConfig mirrors the scanner filters so watch mode reacts to
// exactly the files a run would pick up.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:         cfg.Paths.InputDir,
		Extensions:   append([]string(nil), cfg.Scan.Extensions...),
		ExcludeDirs:  append([]string(nil), cfg.Scan.ExcludeDirs...),
		ExcludePaths: []string{cfg.Paths.OutputDir, cfg.Paths.BackupDir},
		Debounce:     time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
	}
}

// Watcher watches a directory tree recursively.
type Watcher struct {
	fs         *fsnotify.Watcher
	opts       Options
	extensions map[string]struct{}
	excludeDir map[string]struct{}
	excludeAbs []string
	logger     *slog.Logger
}

// New registers every non-excluded directory below opts.Root.
func New(opts Options, logger *slog.Logger) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	opts.Root = root
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:         fsw,
		opts:       opts,
		extensions: make(map[string]struct{}),
		excludeDir: make(map[string]struct{}),
		logger:     logging.NewComponentLogger(logger, "watcher"),
	}
	for _, ext := range opts.Extensions {
		w.extensions[strings.ToLower(ext)] = struct{}{}
	}
	if len(w.extensions) == 0 {
		w.extensions[".svg"] = struct{}{}
	}
	for _, name := range opts.ExcludeDirs {
		w.excludeDir[strings.ToLower(name)] = struct{}{}
	}
	for _, p := range opts.ExcludePaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil && abs != root {
			w.excludeAbs = append(w.excludeAbs, abs)
		}
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.opts.Root && w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if addErr := w.fs.Add(path); addErr != nil {
			w.logger.Warn("failed to watch directory", logging.String("path", path), logging.Error(addErr))
		}
		return nil
	})
}

func (w *Watcher) ignoredDir(path string) bool {
	if _, ok := w.excludeDir[strings.ToLower(filepath.Base(path))]; ok {
		return true
	}
	for _, ex := range w.excludeAbs {
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant only checks the extension; excluded directories are never
// registered, so their events do not arrive.
func (w *Watcher) relevant(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Run blocks until ctx is done. After a burst of relevant events settles for
// the debounce period, onChange receives the changed paths in sorted order.
// An error from onChange stops the watcher and is returned.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string) error) error {
	defer w.fs.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				pending[event.Name] = struct{}{}
				timer.Reset(w.opts.Debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.Error(err))
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			w.logger.Info("changes detected",
				logging.String(logging.FieldEventType, "watch_trigger"),
				logging.Int("files", len(paths)),
			)
			if err := onChange(ctx, paths); err != nil {
				return err
			}
		}
	}
}

// handle reports whether event should trigger a run. New directories are
// added to the watch set.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.ignoredDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", logging.String("path", event.Name), logging.Error(err))
				}
			}
			return false
		}
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.relevant(event.Name)
}
