package index

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/jward/veriscope/internal/frontend"
)

// entry is a slot of the record arena. building is set while the members
// are being collected; a request for a record under construction gets the
// entry as it stands instead of recursing.
type entry struct {
	rec       *Record
	building  bool
	anonymous bool
}

// Builder accumulates one index. It is used for a single pass; Build
// hands the tables over to an immutable Snapshot.
type Builder struct {
	sm *frontend.SourceManager

	files      map[string]*table
	arena      map[string]*entry
	anonymous  map[uint64]string
	packages   []string
	fileScopes map[string]map[string]bool
	scopeTypes map[string]map[string]bool
	cycles     int
}

// NewBuilder returns a Builder resolving locations through sm.
func NewBuilder(sm *frontend.SourceManager) *Builder {
	return &Builder{
		sm:         sm,
		files:      make(map[string]*table),
		arena:      make(map[string]*entry),
		anonymous:  make(map[uint64]string),
		fileScopes: make(map[string]map[string]bool),
		scopeTypes: make(map[string]map[string]bool),
	}
}

// Build indexes a compilation in one traversal.
func Build(unit *frontend.Compilation) *Snapshot {
	if unit == nil {
		return nil
	}
	b := NewBuilder(unit.Sources)
	b.Visit(unit.Root)
	return b.Snapshot(unit.ID)
}

// Visit walks root and records every package, instance, value and named
// type.
func (b *Builder) Visit(root *frontend.Root) {
	frontend.Walk(root, func(m frontend.Member) bool {
		switch s := m.(type) {
		case *frontend.PackageSymbol:
			b.handlePackage(s)
		case *frontend.InstanceSymbol:
			b.addScope(b.fileOf(s.Loc), s.Name)
		case *frontend.ValueSymbol:
			b.handleValue(s)
		case *frontend.TypeAliasSymbol:
			b.addType(s.Scope, s.Name)
		case *frontend.ClassSymbol:
			b.addType(s.Scope, s.Name)
		}
		return true
	})
}

// Snapshot freezes the builder's tables. The builder must not be used
// afterwards.
func (b *Builder) Snapshot(unitID string) *Snapshot {
	records := make(map[string]*Record, len(b.arena))
	for name, e := range b.arena {
		records[name] = e.rec
	}
	return &Snapshot{
		unitID:     unitID,
		files:      b.files,
		records:    records,
		packages:   b.packages,
		fileScopes: sortedSets(b.fileScopes),
		scopeTypes: sortedSets(b.scopeTypes),
	}
}

func (b *Builder) fileOf(loc frontend.Location) string {
	name := b.sm.FileName(loc)
	if name == "" {
		return ""
	}
	return filepath.Clean(name)
}

func (b *Builder) handlePackage(pkg *frontend.PackageSymbol) {
	file := b.fileOf(pkg.Loc)
	if file == "" {
		return
	}
	if !contains(b.packages, file) {
		b.packages = append(b.packages, file)
	}
	b.addScope(file, pkg.Name)
}

func (b *Builder) handleValue(v *frontend.ValueSymbol) {
	file := b.fileOf(v.Loc)
	if file == "" {
		return
	}
	base, levels := stripArrays(v.Type)
	sym := Symbol{
		Name:        v.Name,
		Scope:       v.Scope,
		TypeName:    RenderType(v.Type),
		ArrayLevels: levels,
		Kind:        kindOf(v.Type, false),
		File:        file,
	}
	if base.IsRecord() {
		sym.RecordName = b.record(base, v.Name).Name
	}
	t, ok := b.files[file]
	if !ok {
		t = &table{byName: make(map[string]int)}
		b.files[file] = t
	}
	t.add(sym)
}

// record returns the arena entry for a record type, building it on first
// use. Named types are keyed by their name. Anonymous ones are keyed by
// the name of the first value that used them; a later anonymous record
// with the same structure shares that entry, and one with a different
// structure under a taken name gets a numbered key. A named type always
// owns its name: an anonymous entry already holding it moves to a
// numbered key.
func (b *Builder) record(t *frontend.Type, user string) *Record {
	key := t.Name
	var sig uint64
	if key == "" {
		sig = signature(t)
		if name, ok := b.anonymous[sig]; ok {
			return b.arena[name].rec
		}
		key = b.freeKey(user)
		b.anonymous[sig] = key
	}
	if e, ok := b.arena[key]; ok {
		if !e.anonymous || t.Name == "" {
			if e.building {
				b.cycles++
			}
			return e.rec
		}
		b.relocate(key)
	}

	e := &entry{rec: &Record{Name: key}, building: true, anonymous: t.Name == ""}
	b.arena[key] = e
	if t.Name != "" {
		sig = signature(t)
	}
	e.rec.Signature = sig

	fields := t.Fields()
	members := make([]Member, 0, len(fields))
	for _, f := range fields {
		fbase, levels := stripArrays(f.Type)
		m := Member{
			Name:        f.Name,
			TypeName:    RenderType(f.Type),
			ArrayLevels: levels,
			Kind:        kindOf(f.Type, true),
		}
		if fbase.IsRecord() {
			m.RecordName = b.record(fbase, f.Name).Name
		}
		members = append(members, m)
	}
	e.rec.Members = members
	e.building = false
	return e.rec
}

// freeKey returns name, or name#n with the smallest n >= 2 that is not in
// the arena.
func (b *Builder) freeKey(name string) string {
	key := name
	for n := 2; b.arena[key] != nil; n++ {
		key = name + "#" + strconv.Itoa(n)
	}
	return key
}

// relocate moves the anonymous entry under key to a numbered key and
// repoints the symbols and members that refer to it.
func (b *Builder) relocate(key string) {
	e := b.arena[key]
	delete(b.arena, key)
	moved := b.freeKey(key)
	e.rec.Name = moved
	b.arena[moved] = e
	for sig, name := range b.anonymous {
		if name == key {
			b.anonymous[sig] = moved
		}
	}
	for _, t := range b.files {
		for i := range t.symbols {
			if t.symbols[i].RecordName == key {
				t.symbols[i].RecordName = moved
			}
		}
	}
	for _, other := range b.arena {
		for i := range other.rec.Members {
			if other.rec.Members[i].RecordName == key {
				other.rec.Members[i].RecordName = moved
			}
		}
	}
}

// Cycles reports how many record requests hit an entry that was still
// under construction.
func (b *Builder) Cycles() int {
	return b.cycles
}

// signature hashes the kind, member names and rendered member types of a
// record. Nested anonymous records contribute their own structure.
func signature(t *frontend.Type) uint64 {
	return xxh3.HashString(structure(t))
}

func structure(t *frontend.Type) string {
	var sb strings.Builder
	sb.WriteString(t.Canonical().Kind.String())
	for _, f := range t.Fields() {
		sb.WriteByte(0)
		sb.WriteString(f.Name)
		sb.WriteByte(0)
		sb.WriteString(RenderType(f.Type))
		if base, _ := stripArrays(f.Type); base.IsRecord() && base.Name == "" {
			sb.WriteByte('{')
			sb.WriteString(structure(base))
			sb.WriteByte('}')
		}
	}
	return sb.String()
}

func (b *Builder) addScope(file, name string) {
	if file == "" || name == "" {
		return
	}
	set, ok := b.fileScopes[file]
	if !ok {
		set = make(map[string]bool)
		b.fileScopes[file] = set
	}
	set[name] = true
}

func (b *Builder) addType(scope, name string) {
	if scope == "" || name == "" {
		return
	}
	set, ok := b.scopeTypes[scope]
	if !ok {
		set = make(map[string]bool)
		b.scopeTypes[scope] = set
	}
	set[name] = true
}

func sortedSets(in map[string]map[string]bool) map[string][]string {
	out := make(map[string][]string, len(in))
	for key, set := range in {
		list := make([]string, 0, len(set))
		for name := range set {
			list = append(list, name)
		}
		sort.Strings(list)
		out[key] = list
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
