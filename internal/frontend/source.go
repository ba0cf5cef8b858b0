package frontend

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// BufferID identifies a text buffer registered with a SourceManager.
type BufferID int

// NoBuffer is the BufferID of locations that do not point into any buffer.
const NoBuffer BufferID = -1

// Buffer is one named text buffer.
type Buffer struct {
	ID   BufferID
	Path string
	Text string

	lineStarts []int
}

// Location is a byte offset inside a buffer.
type Location struct {
	Buffer BufferID
	Offset int
}

// NoLocation is the zero location used for synthesized symbols.
var NoLocation = Location{Buffer: NoBuffer}

// Valid reports whether the location points into a buffer.
func (l Location) Valid() bool { return l.Buffer != NoBuffer }

// Range is a half-open span of source text.
type Range struct {
	Start Location
	End   Location
}

// SourceManager owns every buffer of a compilation and maps locations back
// to file names and line/column pairs. It also carries the user include
// directories used for `include resolution. Safe for concurrent use.
type SourceManager struct {
	mu       sync.RWMutex
	buffers  []*Buffer
	byPath   map[string]BufferID
	userDirs []string
}

// NewSourceManager returns an empty SourceManager.
func NewSourceManager() *SourceManager {
	return &SourceManager{byPath: make(map[string]BufferID)}
}

// AddUserDirectory appends an include search directory.
func (sm *SourceManager) AddUserDirectory(dir string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.userDirs = append(sm.userDirs, dir)
}

// UserDirectories returns the include search directories in search order.
func (sm *SourceManager) UserDirectories() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]string, len(sm.userDirs))
	copy(out, sm.userDirs)
	return out
}

// AssignText registers text under path, replacing nothing: a second call
// for the same path returns the buffer registered first.
func (sm *SourceManager) AssignText(path, text string) *Buffer {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if id, ok := sm.byPath[path]; ok {
		return sm.buffers[id]
	}
	return sm.addLocked(path, text)
}

// ReadSource loads path from disk, or returns the already registered buffer.
func (sm *SourceManager) ReadSource(path string) (*Buffer, error) {
	sm.mu.RLock()
	if id, ok := sm.byPath[path]; ok {
		buf := sm.buffers[id]
		sm.mu.RUnlock()
		return buf, nil
	}
	sm.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if id, ok := sm.byPath[path]; ok {
		return sm.buffers[id], nil
	}
	return sm.addLocked(path, string(data)), nil
}

// IsCached reports whether a buffer for path has been registered.
func (sm *SourceManager) IsCached(path string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.byPath[path]
	return ok
}

// ResolveInclude finds an `include target. Relative names are searched in
// the including buffer's directory first, then in the user directories.
func (sm *SourceManager) ResolveInclude(name string, from BufferID) (*Buffer, error) {
	if filepath.IsAbs(name) {
		return sm.ReadSource(filepath.Clean(name))
	}
	var dirs []string
	if buf := sm.Buffer(from); buf != nil {
		dirs = append(dirs, filepath.Dir(buf.Path))
	}
	dirs = append(dirs, sm.UserDirectories()...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if sm.IsCached(candidate) {
			return sm.ReadSource(candidate)
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return sm.ReadSource(candidate)
		}
	}
	return nil, fmt.Errorf("include file %q not found", name)
}

func (sm *SourceManager) addLocked(path, text string) *Buffer {
	buf := &Buffer{
		ID:         BufferID(len(sm.buffers)),
		Path:       path,
		Text:       text,
		lineStarts: computeLineStarts(text),
	}
	sm.buffers = append(sm.buffers, buf)
	sm.byPath[path] = buf.ID
	return buf
}

// Buffer returns the buffer with the given ID, or nil.
func (sm *SourceManager) Buffer(id BufferID) *Buffer {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if id < 0 || int(id) >= len(sm.buffers) {
		return nil
	}
	return sm.buffers[id]
}

// Paths returns every registered path, sorted.
func (sm *SourceManager) Paths() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	paths := make([]string, 0, len(sm.byPath))
	for p := range sm.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FileName returns the path of the buffer a location points into.
func (sm *SourceManager) FileName(loc Location) string {
	if buf := sm.Buffer(loc.Buffer); buf != nil {
		return buf.Path
	}
	return ""
}

// LineNumber returns the 1-based line of loc, or 0 for invalid locations.
func (sm *SourceManager) LineNumber(loc Location) int {
	buf := sm.Buffer(loc.Buffer)
	if buf == nil {
		return 0
	}
	return buf.lineIndex(loc.Offset) + 1
}

// ColumnNumber returns the 1-based byte column of loc, or 0 for invalid
// locations.
func (sm *SourceManager) ColumnNumber(loc Location) int {
	buf := sm.Buffer(loc.Buffer)
	if buf == nil {
		return 0
	}
	line := buf.lineIndex(loc.Offset)
	return buf.clamp(loc.Offset) - buf.lineStarts[line] + 1
}

func (b *Buffer) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(b.Text) {
		return len(b.Text)
	}
	return offset
}

func (b *Buffer) lineIndex(offset int) int {
	offset = b.clamp(offset)
	// Largest line start <= offset.
	i := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	})
	return i - 1
}

func computeLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
