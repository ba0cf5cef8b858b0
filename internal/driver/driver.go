// Package driver turns the current source set into a compilation. Every
// call rebuilds from scratch: all known files are parsed, then names that
// are referenced but not declared anywhere are looked up in the library
// directories until no new file can be found.
package driver

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jward/veriscope/internal/frontend"
	"github.com/jward/veriscope/internal/source"
)

// Pass is the outcome of one Compile call.
type Pass struct {
	Unit *frontend.Compilation
	// Iterations counts the rounds of the missing-name loop. A source set
	// without missing names takes exactly one.
	Iterations int
	// AutoLoaded lists the library files discovered by this pass, in the
	// order they were loaded.
	AutoLoaded []string
	Duration   time.Duration
}

// Driver compiles a source.Set with a frontend.
type Driver struct {
	sources  *source.Set
	frontend frontend.Frontend
	workers  int
	logger   *log.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithWorkers bounds the number of files parsed concurrently. Values below
// one select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		d.workers = n
	}
}

// New returns a Driver over sources.
func New(sources *source.Set, fe frontend.Frontend, opts ...Option) *Driver {
	d := &Driver{
		sources:  sources,
		frontend: fe,
		logger:   log.New(os.Stderr, "[veriscope:driver] ", log.Ltime),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = runtime.GOMAXPROCS(0)
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard, "", 0)
	}
	return d
}

// Compile runs one full compilation. Unresolvable names are not errors:
// they are left for the elaborator to report. The only error is a
// cancelled context.
func (d *Driver) Compile(ctx context.Context) (*Pass, error) {
	start := time.Now()
	cfg := d.sources.Config()

	sm := frontend.NewSourceManager()
	for _, dir := range cfg.IncludeDirs {
		sm.AddUserDirectory(dir)
	}

	trees, err := d.parseKnown(ctx, sm)
	if err != nil {
		return nil, err
	}

	res := newResolver()
	for _, tree := range trees {
		res.addKnown(tree)
	}
	missing := make(map[string]bool)
	for _, tree := range trees {
		res.findMissing(tree, missing)
	}

	pass := &Pass{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("driver: compile: %w", err)
		}
		pass.Iterations++
		next := make(map[string]bool)
		for _, name := range sortedNames(missing) {
			if res.known[name] || res.attempted[name] {
				continue
			}
			res.attempted[name] = true
			buf := probe(sm, cfg.LibraryDirs, name)
			if buf == nil {
				continue
			}
			d.sources.AddLibrary(buf.Path)
			pass.AutoLoaded = append(pass.AutoLoaded, buf.Path)

			tree := d.frontend.Parse(sm, buf)
			tree.IsLibrary = true
			trees = append(trees, tree)
			res.addKnown(tree)
			res.findMissing(tree, next)
		}
		if len(next) == 0 {
			break
		}
		missing = next
	}

	pass.Unit = d.frontend.Elaborate(sm, trees)
	pass.Unit.ID = ulid.Make().String()
	pass.Duration = time.Since(start)
	d.logger.Printf("unit %s: %d files, %d auto-loaded, %d iterations in %v",
		pass.Unit.ID, len(trees), len(pass.AutoLoaded), pass.Iterations, pass.Duration)
	return pass, nil
}

// parseKnown registers every known file with sm and parses them
// concurrently. Files that cannot be read are skipped.
func (d *Driver) parseKnown(ctx context.Context, sm *frontend.SourceManager) ([]*frontend.SyntaxTree, error) {
	type job struct {
		buf     *frontend.Buffer
		library bool
	}
	var jobs []job
	for _, f := range d.sources.Files() {
		var buf *frontend.Buffer
		if f.Modified {
			buf = sm.AssignText(f.Path, f.Content)
		} else {
			var err error
			if buf, err = sm.ReadSource(f.Path); err != nil {
				d.logger.Printf("skipping %s: %v", f.Path, err)
				continue
			}
		}
		jobs = append(jobs, job{buf: buf, library: !f.UserLoaded})
	}

	trees := make([]*frontend.SyntaxTree, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree := d.frontend.Parse(sm, j.buf)
			tree.IsLibrary = j.library
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("driver: parse: %w", err)
	}
	return trees, nil
}

// probe looks for <dir>/<name><ext> over the library directories and the
// recognised extensions, in that order. Already registered candidates and
// unreadable files are passed over.
func probe(sm *frontend.SourceManager, dirs []string, name string) *frontend.Buffer {
	for _, dir := range dirs {
		for _, ext := range source.Extensions {
			path := filepath.Join(dir, name+ext)
			if sm.IsCached(path) {
				continue
			}
			if buf, err := sm.ReadSource(path); err == nil {
				return buf
			}
		}
	}
	return nil
}

// resolver tracks declared names and the names already probed for.
type resolver struct {
	known     map[string]bool
	attempted map[string]bool
}

func newResolver() *resolver {
	return &resolver{known: make(map[string]bool), attempted: make(map[string]bool)}
}

func (r *resolver) addKnown(tree *frontend.SyntaxTree) {
	for _, name := range tree.Metadata.Declared {
		if name != "" {
			r.known[name] = true
		}
	}
}

// findMissing adds to missing every instantiated definition, pkg:: prefix
// and imported package of tree that is not declared anywhere yet.
func (r *resolver) findMissing(tree *frontend.SyntaxTree, missing map[string]bool) {
	meta := tree.Metadata
	for _, names := range [][]string{meta.Instances, meta.ClassPackageNames, meta.PackageImports} {
		for _, name := range names {
			if name != "" && !r.known[name] {
				missing[name] = true
			}
		}
	}
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
