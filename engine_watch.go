package veriscope

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/veriscope/internal/source"
	"github.com/jward/veriscope/internal/watch"
)

// Watch re-indexes when files change on disk and passes each Report to
// onReport. It watches the library directories and the directories of
// known files whose content is read from disk, and blocks until ctx is
// done. delay of zero selects the watcher's default debounce.
func (e *Engine) Watch(ctx context.Context, delay time.Duration, onReport func(*Report)) error {
	var w *watch.Watcher
	w, err := watch.New(watch.Config{
		Dirs:          e.watchDirs(),
		DebounceDelay: delay,
		FileFilter:    source.IsSource,
		Logger:        componentLogger(e.logOut, "watch"),
	}, watch.HandlerFunc(func(files map[string]fsnotify.Op) {
		if !e.affected(files) || ctx.Err() != nil {
			return
		}
		report, err := e.Reindex(ctx)
		if err != nil {
			e.logger.Printf("watch: %v", err)
			return
		}
		for _, dir := range e.watchDirs() {
			w.Add(dir)
		}
		if onReport != nil {
			onReport(report)
		}
	}))
	if err != nil {
		return fmt.Errorf("veriscope: watch: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("veriscope: watch: %w", err)
	}
	<-ctx.Done()
	return w.Stop()
}

// watchDirs lists the library directories followed by the directories of
// unmodified known files.
func (e *Engine) watchDirs() []string {
	cfg := e.sources.Config()
	dirs := append([]string(nil), cfg.LibraryDirs...)
	seen := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		seen[d] = true
	}
	for _, f := range e.sources.Files() {
		if f.Modified {
			continue
		}
		dir := filepath.Dir(f.Path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// affected reports whether a batch of changes can alter the compilation:
// a known file read from disk changed, or a file appeared or vanished in a
// library directory.
func (e *Engine) affected(files map[string]fsnotify.Op) bool {
	for path := range files {
		if f, ok := e.sources.Get(path); ok && !f.Modified {
			return true
		}
		if e.sources.IsLibraryPath(path) {
			return true
		}
	}
	return false
}
