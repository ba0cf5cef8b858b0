// Package complete answers completion requests from an index snapshot.
// A request is classified in order: system function, member access
// through a chain of record types, and finally generic completion with
// keywords and visible symbols.
package complete

import (
	"errors"
	"strings"

	"github.com/jward/veriscope/internal/index"
)

// Negative classifications of a member access. Complete treats both as a
// reason to fall through to generic completion.
var (
	ErrNotMemberAccess = errors.New("complete: not a member access")
	ErrNotRecord       = errors.New("complete: not a record")
)

// Strategy names the branch that produced a Result.
type Strategy int

const (
	StrategySystem Strategy = iota
	StrategyMember
	StrategyGeneric
	// StrategyNone means the cursor position admits no completion.
	StrategyNone
)

func (s Strategy) String() string {
	switch s {
	case StrategySystem:
		return "system"
	case StrategyMember:
		return "member"
	case StrategyGeneric:
		return "generic"
	case StrategyNone:
		return "none"
	}
	return "unknown"
}

// Item is one completion candidate.
type Item struct {
	Label string
	// InsertText is set when it differs from Label.
	InsertText    string
	Kind          index.Kind
	Detail        string
	Documentation string
}

// Result is the answer to one request. A member access still inside an
// array index yields StrategyMember with no items.
type Result struct {
	Strategy Strategy
	Items    []Item
}

// Resolver resolves tokens against one snapshot. The snapshot may be nil
// before the first compilation.
type Resolver struct {
	snap *index.Snapshot
}

// New returns a Resolver over snap.
func New(snap *index.Snapshot) *Resolver {
	return &Resolver{snap: snap}
}

// Complete classifies token, typed in file with arrayLevel closed index
// groups, and returns the candidates.
func (r *Resolver) Complete(token, file string, arrayLevel int) Result {
	if strings.HasPrefix(token, "$") {
		return Result{Strategy: StrategySystem, Items: SystemFunctions()}
	}
	if items, err := r.Members(token, file, arrayLevel); err == nil {
		return Result{Strategy: StrategyMember, Items: items}
	}
	return Result{Strategy: StrategyGeneric, Items: r.generic(file)}
}

// Members resolves a dotted member access such as "a.b[1].c" and returns
// the members of the record the chain ends on. The text after the last
// dot is the partial member name and is ignored.
//
// arrayLevel covers the whole token. Closed index groups on the member
// segments are taken off before the root is checked, and every segment
// must be indexed exactly as often as its declaration has dimensions.
// A mismatch means the user is still indexing into an array; Members then
// returns an empty list and no error.
//
// The root check therefore differs on purpose from comparing arrayLevel
// with the root's dimensions directly. Only the groups on the root
// segment count against it, so "f.beats[1]." with arrayLevel 1 resolves
// although f itself has no dimensions.
func (r *Resolver) Members(token, file string, arrayLevel int) ([]Item, error) {
	if r.snap == nil {
		return nil, ErrNotMemberAccess
	}
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 {
		return nil, ErrNotMemberAccess
	}
	path := strings.Split(token[:dot], ".")
	root, _ := splitIndex(path[0])
	if root == "" {
		return nil, ErrNotMemberAccess
	}
	sym, ok := r.snap.Lookup(file, root)
	if !ok {
		return nil, ErrNotMemberAccess
	}

	rootLevel := arrayLevel
	for _, seg := range path[1:] {
		_, n := splitIndex(seg)
		rootLevel -= n
	}
	if sym.ArrayLevels != rootLevel {
		return []Item{}, nil
	}

	rec, ok := r.snap.Record(sym.RecordName)
	if !ok {
		rec, ok = r.snap.Record(sym.Name)
	}
	if !ok {
		return nil, ErrNotRecord
	}

	for _, seg := range path[1:] {
		name, groups := splitIndex(seg)
		m, found := findMember(rec, name)
		if !found || m.RecordName == "" {
			return nil, ErrNotRecord
		}
		if m.ArrayLevels != groups {
			return []Item{}, nil
		}
		if rec, ok = r.snap.Record(m.RecordName); !ok {
			return nil, ErrNotRecord
		}
	}

	items := make([]Item, 0, len(rec.Members))
	for _, m := range rec.Members {
		items = append(items, Item{Label: m.Name, Kind: m.Kind, Detail: m.TypeName})
	}
	return items, nil
}

func (r *Resolver) generic(file string) []Item {
	items := Keywords()
	if r.snap == nil {
		return items
	}
	items = appendSymbols(items, r.snap.FileSymbols(file))
	for _, pkg := range r.snap.Packages() {
		if pkg == file {
			continue
		}
		items = appendSymbols(items, r.snap.FileSymbols(pkg))
	}
	return items
}

func appendSymbols(items []Item, syms []index.Symbol) []Item {
	for _, s := range syms {
		items = append(items, Item{
			Label:         s.Name,
			Kind:          s.Kind,
			Detail:        s.TypeName,
			Documentation: s.Scope,
		})
	}
	return items
}

func findMember(rec *index.Record, name string) (index.Member, bool) {
	for _, m := range rec.Members {
		if m.Name == name {
			return m, true
		}
	}
	return index.Member{}, false
}

// splitIndex separates a segment such as "mem[3][i]" into its name and
// the number of index groups that follow it.
func splitIndex(seg string) (string, int) {
	i := strings.IndexByte(seg, '[')
	if i < 0 {
		return strings.TrimSpace(seg), 0
	}
	return strings.TrimSpace(seg[:i]), countGroups(seg[i:])
}

// countGroups counts the top-level [...] groups of s.
func countGroups(s string) int {
	depth, groups := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
				if depth == 0 {
					groups++
				}
			}
		}
	}
	return groups
}
