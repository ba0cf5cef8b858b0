// Package index builds the symbol tables completion works from: the
// values declared in each file, the member layout of every record type
// and the files that declare packages. A Snapshot is built in one pass
// over an elaborated design and never changes afterwards.
package index

import (
	"sort"
)

// Symbol is one declared value.
type Symbol struct {
	Name string
	// Scope is the declaring definition, package or class, or "" in $unit.
	Scope string
	// TypeName is the rendered type.
	TypeName string
	// RecordName is the record table key of the base type when it is a
	// struct, union or class, and "" otherwise.
	RecordName string
	// ArrayLevels counts the array dimensions stripped to reach the base
	// type.
	ArrayLevels int
	Kind        Kind
	File        string
}

// Member is one field of a record.
type Member struct {
	Name        string
	TypeName    string
	RecordName  string
	ArrayLevels int
	Kind        Kind
}

// Record is the member layout of a struct, union or class.
type Record struct {
	Name    string
	Members []Member
	// Signature is a structural hash of the member names and types.
	Signature uint64
}

// table is the ordered symbol table of one file. The first declaration of
// a name wins.
type table struct {
	symbols []Symbol
	byName  map[string]int
}

func (t *table) add(sym Symbol) {
	if _, ok := t.byName[sym.Name]; ok {
		return
	}
	t.byName[sym.Name] = len(t.symbols)
	t.symbols = append(t.symbols, sym)
}

// Snapshot is an immutable index. A nil *Snapshot is a valid, empty index.
type Snapshot struct {
	unitID     string
	files      map[string]*table
	records    map[string]*Record
	packages   []string
	fileScopes map[string][]string
	scopeTypes map[string][]string
}

// UnitID identifies the compilation the snapshot was built from.
func (s *Snapshot) UnitID() string {
	if s == nil {
		return ""
	}
	return s.unitID
}

// Files returns every file with at least one symbol, sorted.
func (s *Snapshot) Files() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.files))
	for path := range s.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// FileSymbols returns the symbols declared in file in declaration order.
func (s *Snapshot) FileSymbols(file string) []Symbol {
	if s == nil {
		return nil
	}
	t, ok := s.files[file]
	if !ok {
		return nil
	}
	out := make([]Symbol, len(t.symbols))
	copy(out, t.symbols)
	return out
}

// Lookup finds a symbol by name in file.
func (s *Snapshot) Lookup(file, name string) (Symbol, bool) {
	if s == nil {
		return Symbol{}, false
	}
	t, ok := s.files[file]
	if !ok {
		return Symbol{}, false
	}
	i, ok := t.byName[name]
	if !ok {
		return Symbol{}, false
	}
	return t.symbols[i], true
}

// Record returns the record registered under name. The same *Record is
// returned on every call; callers must not modify it.
func (s *Snapshot) Record(name string) (*Record, bool) {
	if s == nil || name == "" {
		return nil, false
	}
	r, ok := s.records[name]
	return r, ok
}

// Records returns every record name, sorted.
func (s *Snapshot) Records() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.records))
	for name := range s.records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Packages returns the files that declare packages, in the order the
// packages were found.
func (s *Snapshot) Packages() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.packages...)
}

// FileScopes returns the package and instance names located in file,
// sorted.
func (s *Snapshot) FileScopes(file string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.fileScopes[file]...)
}

// ScopeTypes returns the names of the types declared in scope, sorted.
func (s *Snapshot) ScopeTypes(scope string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.scopeTypes[scope]...)
}
