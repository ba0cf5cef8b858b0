// Package watch reports debounced changes to source files in a set of
// directories.
package watch

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay is how long the watcher waits after the last event
// before reporting a batch.
const DefaultDebounceDelay = 300 * time.Millisecond

// Config configures a Watcher. Directories are watched without their
// subdirectories.
type Config struct {
	Dirs          []string
	DebounceDelay time.Duration
	// FileFilter limits the reported paths. Nil reports everything.
	FileFilter func(path string) bool
	Logger     *log.Logger
}

// Handler receives one batch of changes keyed by path.
type Handler interface {
	OnChanges(files map[string]fsnotify.Op)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(files map[string]fsnotify.Op)

func (f HandlerFunc) OnChanges(files map[string]fsnotify.Op) {
	f(files)
}

// Watcher batches fsnotify events and hands them to its handlers. A batch
// is delivered once no event has arrived for DebounceDelay.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	config   Config
	handlers []Handler
	logger   *log.Logger
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu     sync.Mutex
	batch  map[string]fsnotify.Op
	timer  *time.Timer
	closed bool
	dirs   map[string]bool
}

// New creates a Watcher. Nothing is watched until Start.
func New(config Config, handlers ...Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Watcher{
		fsnotify: fsw,
		config:   config,
		handlers: handlers,
		logger:   logger,
		stop:     make(chan struct{}),
		dirs:     make(map[string]bool),
	}, nil
}

// Start watches the configured directories and begins processing events.
// Directories that do not exist are skipped.
func (w *Watcher) Start() error {
	for _, dir := range w.config.Dirs {
		w.Add(dir)
	}
	w.wg.Add(1)
	go w.processEvents()
	w.logger.Printf("watching %d directories (debounce: %v)", len(w.Dirs()), w.config.DebounceDelay)
	return nil
}

// Add starts watching dir. It reports whether dir is now watched.
func (w *Watcher) Add(dir string) bool {
	dir = filepath.Clean(dir)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return true
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return false
	}
	if err := w.fsnotify.Add(dir); err != nil {
		w.logger.Printf("watch %s: %v", dir, err)
		return false
	}
	w.dirs[dir] = true
	return true
}

// Dirs returns the watched directories, sorted.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// Stop ends event processing and releases the fsnotify watcher. A batch
// still waiting for its delay is dropped; one already being delivered
// completes before Stop returns.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.batch = nil
		w.mu.Unlock()
		close(w.stop)
	})
	w.wg.Wait()
	return w.fsnotify.Close()
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if w.wanted(event) {
				w.enqueue(event.Name, event.Op)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			w.logger.Printf("error: %v", err)
		}
	}
}

// wanted drops editor scratch files, events that do not change content,
// and paths the configured filter rejects.
func (w *Watcher) wanted(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	for _, suffix := range []string{"~", ".swp", ".tmp"} {
		if strings.HasSuffix(base, suffix) {
			return false
		}
	}
	if strings.HasPrefix(base, ".") {
		return false
	}
	return w.config.FileFilter == nil || w.config.FileFilter(event.Name)
}

// enqueue adds op to the open batch and pushes its deadline back.
func (w *Watcher) enqueue(path string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.batch == nil {
		w.batch = make(map[string]fsnotify.Op)
	}
	w.batch[path] |= op
	if w.timer == nil {
		w.timer = time.AfterFunc(w.config.DebounceDelay, w.deliver)
		return
	}
	w.timer.Reset(w.config.DebounceDelay)
}

// deliver runs on the timer's goroutine and closes the open batch.
func (w *Watcher) deliver() {
	w.mu.Lock()
	if w.closed || len(w.batch) == 0 {
		w.mu.Unlock()
		return
	}
	files := w.batch
	w.batch = nil
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	w.logger.Printf("processing %d file changes", len(files))
	for _, h := range w.handlers {
		h.OnChanges(files)
	}
}

// IsRemove reports whether op removed or renamed the file away.
func IsRemove(op fsnotify.Op) bool {
	return op&(fsnotify.Remove|fsnotify.Rename) != 0
}
