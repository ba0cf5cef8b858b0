package veriscope

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jward/veriscope/internal/complete"
	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/driver"
	"github.com/jward/veriscope/internal/frontend"
	"github.com/jward/veriscope/internal/frontend/sv"
	"github.com/jward/veriscope/internal/index"
	"github.com/jward/veriscope/internal/source"
)

// Engine owns the source set and the latest published index. Mutations
// are serialised and each one ends in a full re-index; completion only
// reads the published state and never waits for a compile.
type Engine struct {
	sources    *source.Set
	driver     *driver.Driver
	translator *diag.Translator
	logger     *log.Logger

	frontend frontend.Frontend
	policy   diag.RangePolicy
	workers  int
	logOut   io.Writer

	// mu serialises mutations and re-indexing.
	mu    sync.Mutex
	state atomic.Pointer[state]
}

// state is one published compile result. It is never modified after it
// is stored.
type state struct {
	pass        *driver.Pass
	index       *index.Snapshot
	diagnostics map[string][]diag.Diagnostic
}

// Report summarises one re-index.
type Report struct {
	UnitID string
	// Diagnostics has one entry per user-loaded file. An empty slice
	// clears whatever was published for that file before.
	Diagnostics map[string][]Diagnostic
	// Files lists every file of the compilation, sorted.
	Files      []string
	AutoLoaded []string
	Iterations int
	Duration   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sends the log output of every component to w. Each component
// keeps its own prefix.
func WithLogger(w io.Writer) Option {
	return func(e *Engine) {
		e.logOut = w
	}
}

// WithFrontend replaces the built-in SystemVerilog frontend.
func WithFrontend(fe frontend.Frontend) Option {
	return func(e *Engine) {
		e.frontend = fe
	}
}

// WithRangePolicy selects how diagnostic highlight ranges are reported.
// The default reports the last highlight.
func WithRangePolicy(p diag.RangePolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithParseWorkers bounds concurrent parsing. Values below one select
// GOMAXPROCS.
func WithParseWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// New creates an Engine with an empty source set.
func New(opts ...Option) *Engine {
	e := &Engine{
		frontend: sv.New(),
		logOut:   os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logOut == nil {
		e.logOut = io.Discard
	}
	e.logger = componentLogger(e.logOut, "engine")
	e.sources = source.New(source.WithLogger(componentLogger(e.logOut, "source")))
	e.driver = driver.New(e.sources, e.frontend,
		driver.WithLogger(componentLogger(e.logOut, "driver")),
		driver.WithWorkers(e.workers))
	e.translator = diag.NewTranslator(
		diag.WithRangePolicy(e.policy),
		diag.WithLogger(componentLogger(e.logOut, "diag")))
	return e
}

func componentLogger(w io.Writer, name string) *log.Logger {
	return log.New(w, "[veriscope:"+name+"] ", log.Ltime)
}

// SetRoot records the workspace root and runs configuration discovery
// from it.
func (e *Engine) SetRoot(root string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources.SetRoot(root)
}

// Open registers a file opened in the editor with its content and
// re-indexes.
func (e *Engine) Open(ctx context.Context, path, content string) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources.Open(path, content)
	return e.reindexLocked(ctx)
}

// OpenFromDisk registers a user file whose content is read from disk and
// re-indexes.
func (e *Engine) OpenFromDisk(ctx context.Context, path string) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources.AddFromDisk(path, true)
	return e.reindexLocked(ctx)
}

// AddFiles registers user files from disk and re-indexes once.
func (e *Engine) AddFiles(ctx context.Context, paths []string) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range paths {
		e.sources.AddFromDisk(p, true)
	}
	return e.reindexLocked(ctx)
}

// Change replaces the full content of a file and re-indexes. An unknown
// file is opened.
func (e *Engine) Change(ctx context.Context, path, content string) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sources.Change(path, content) {
		e.sources.Open(path, content)
	}
	return e.reindexLocked(ctx)
}

// Close drops the editor's copy of a file. The file stays known and is
// read from disk again. Close re-indexes only when an in-memory copy was
// dropped; otherwise it returns a nil Report.
func (e *Engine) Close(ctx context.Context, path string) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sources.Revert(path) {
		return nil, nil
	}
	return e.reindexLocked(ctx)
}

// Configure applies explicit settings, which replace discovered ones. The
// engine re-indexes when user files are open; otherwise it returns a nil
// Report.
func (e *Engine) Configure(ctx context.Context, st Settings) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources.Configure(st)
	if len(e.sources.UserFiles()) == 0 {
		return nil, nil
	}
	return e.reindexLocked(ctx)
}

// Reindex compiles the current source set and publishes the result.
func (e *Engine) Reindex(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reindexLocked(ctx)
}

func (e *Engine) reindexLocked(ctx context.Context) (*Report, error) {
	pass, err := e.driver.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("veriscope: reindex: %w", err)
	}
	e.translator.Translate(pass.Unit)
	st := &state{
		pass:        pass,
		index:       index.Build(pass.Unit),
		diagnostics: e.translator.Diagnostics(),
	}
	e.state.Store(st)

	report := &Report{
		UnitID:      pass.Unit.ID,
		Diagnostics: make(map[string][]Diagnostic),
		Files:       pass.Unit.Sources.Paths(),
		AutoLoaded:  pass.AutoLoaded,
		Iterations:  pass.Iterations,
		Duration:    pass.Duration,
	}
	for _, path := range e.sources.UserFiles() {
		list := st.diagnostics[path]
		if list == nil {
			list = []Diagnostic{}
		}
		report.Diagnostics[path] = list
	}
	e.logger.Printf("unit %s: %d files, %d user files, %d records",
		report.UnitID, len(report.Files), len(report.Diagnostics), len(st.index.Records()))
	return report, nil
}

// Snapshot returns the published index, or nil before the first compile.
func (e *Engine) Snapshot() *index.Snapshot {
	if st := e.state.Load(); st != nil {
		return st.index
	}
	return nil
}

// Diagnostics returns the published diagnostics of every file, including
// library files.
func (e *Engine) Diagnostics() map[string][]Diagnostic {
	st := e.state.Load()
	if st == nil {
		return nil
	}
	out := make(map[string][]Diagnostic, len(st.diagnostics))
	for file, list := range st.diagnostics {
		out[file] = append([]Diagnostic(nil), list...)
	}
	return out
}

// Files returns every known source file.
func (e *Engine) Files() []source.File {
	return e.sources.Files()
}

// Config returns the current search-path configuration.
func (e *Engine) Config() source.Config {
	return e.sources.Config()
}

// CompleteToken completes an already extracted token.
func (e *Engine) CompleteToken(token, path string, arrayLevel int) complete.Result {
	return complete.New(e.Snapshot()).Complete(token, source.Canonical(path), arrayLevel)
}

// Complete completes at a 0-based line and UTF-16 character in path. The
// line is taken from the editor's copy when there is one, else from disk.
func (e *Engine) Complete(path string, line, character int) complete.Result {
	path = source.Canonical(path)
	text, ok := e.lineAt(path, line)
	if !ok {
		return complete.Result{Strategy: complete.StrategyNone}
	}
	tok, ok := complete.ExtractToken(text, character)
	if !ok {
		return complete.Result{Strategy: complete.StrategyNone}
	}
	return complete.New(e.Snapshot()).Complete(tok.Text, path, tok.ArrayLevel)
}

func (e *Engine) lineAt(path string, line int) (string, bool) {
	content := ""
	f, ok := e.sources.Get(path)
	if ok && f.Modified {
		content = f.Content
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false
		}
		content = string(data)
	}
	return complete.Line(content, line)
}
