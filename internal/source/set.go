// Package source owns the set of files a compilation is built from and the
// search-path configuration that goes with it. Files are either opened by
// the user or pulled in automatically to satisfy a dependency; the project
// configuration is discovered from the file system or supplied explicitly.
package source

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Extensions lists the recognised SystemVerilog source extensions in the
// order library directories are probed.
var Extensions = []string{".v", ".sv", ".svh", ".vh"}

// IsSource reports whether path carries a recognised source extension.
func IsSource(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// File is one known source file. When Modified is false the content lives
// on disk and Content is empty.
type File struct {
	Path       string
	Content    string
	Modified   bool
	UserLoaded bool
}

// Config is the project search-path configuration.
type Config struct {
	RootPath    string
	IncludeDirs []string
	LibraryDirs []string
	// Loaded is set once a configuration has been found or supplied, which
	// stops further discovery.
	Loaded bool
}

func (c Config) clone() Config {
	c.IncludeDirs = slices.Clone(c.IncludeDirs)
	c.LibraryDirs = slices.Clone(c.LibraryDirs)
	return c
}

// Set is the authoritative registry of source files. Safe for concurrent
// use, although the engine serialises every mutation.
type Set struct {
	mu     sync.RWMutex
	files  map[string]*File
	cfg    Config
	logger *log.Logger
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the logger used for discovery and configuration messages.
func WithLogger(l *log.Logger) Option {
	return func(s *Set) {
		s.logger = l
	}
}

// New returns an empty Set.
func New(opts ...Option) *Set {
	s := &Set{
		files:  make(map[string]*File),
		logger: log.New(os.Stderr, "[veriscope:source] ", log.Ltime),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	return s
}

// Canonical returns the absolute, cleaned form of path used as the key of
// every file.
func Canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// SetRoot records the workspace root and runs discovery from it.
func (s *Set) SetRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.RootPath = Canonical(root)
	s.discoverLocked(s.cfg.RootPath)
}

// Open adds or replaces the content of a user-opened file. A file that was
// auto-loaded becomes user-loaded.
func (s *Set) Open(path, content string) {
	s.Add(path, content, true)
}

// Add registers path with in-memory content.
func (s *Set) Add(path, content string, userLoaded bool) {
	path = Canonical(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		f = &File{Path: path}
		s.files[path] = f
	}
	f.Content = content
	f.Modified = true
	f.UserLoaded = f.UserLoaded || userLoaded
	if !s.cfg.Loaded {
		s.discoverLocked(path)
	}
}

// AddFromDisk registers path without content; the compilation reads it
// from disk. A file already known as user-loaded is left alone.
func (s *Set) AddFromDisk(path string, userLoaded bool) {
	path = Canonical(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFromDiskLocked(path, userLoaded)
}

func (s *Set) addFromDiskLocked(path string, userLoaded bool) {
	f, ok := s.files[path]
	switch {
	case !ok:
		s.files[path] = &File{Path: path, UserLoaded: userLoaded}
	case f.UserLoaded:
		return
	default:
		f.UserLoaded = userLoaded
	}
	if !s.cfg.Loaded {
		s.discoverLocked(path)
	}
}

// AddLibrary registers an auto-discovered dependency.
func (s *Set) AddLibrary(path string) {
	s.AddFromDisk(path, false)
}

// Change replaces the content of a known file. It reports false, and does
// nothing, for unknown paths.
func (s *Set) Change(path, content string) bool {
	path = Canonical(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return false
	}
	f.Content = content
	f.Modified = true
	return true
}

// Revert drops the in-memory content of path so the next compilation reads
// it from disk again. Files that do not exist on disk keep their content.
func (s *Set) Revert(path string) bool {
	path = Canonical(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok || !f.Modified {
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return false
	}
	f.Content = ""
	f.Modified = false
	return true
}

// Get returns a copy of the file registered under path.
func (s *Set) Get(path string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[Canonical(path)]
	if !ok {
		return File{}, false
	}
	return *f, true
}

// Files returns a copy of every known file, sorted by path.
func (s *Set) Files() []File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// UserFiles returns the paths of user-loaded files, sorted.
func (s *Set) UserFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for path, f := range s.files {
		if f.UserLoaded {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Config returns a copy of the current configuration.
func (s *Set) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// IsLibraryPath reports whether path lives directly in a library
// directory.
func (s *Set) IsLibraryPath(path string) bool {
	dir := filepath.Dir(Canonical(path))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.cfg.LibraryDirs, dir)
}

func appendUnique(list []string, dir string) []string {
	if slices.Contains(list, dir) {
		return list
	}
	return append(list, dir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
