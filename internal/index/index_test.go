package index

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/frontend"
	"github.com/jward/veriscope/internal/frontend/sv"
)

// compileUnit parses and elaborates in-memory files named /w/<name>.
func compileUnit(t *testing.T, files map[string]string) *frontend.Compilation {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	sm := frontend.NewSourceManager()
	fe := sv.New()
	var trees []*frontend.SyntaxTree
	for _, name := range names {
		trees = append(trees, fe.Parse(sm, sm.AssignText("/w/"+name, files[name])))
	}
	unit := fe.Elaborate(sm, trees)
	require.Empty(t, unit.Diagnostics())
	unit.ID = "unit-1"
	return unit
}

const pktPackage = `
package pkt_pkg;
  typedef struct packed { logic [7:0] addr; logic [7:0] data; } pkt;
endpackage
`

func TestBuild_SymbolsAndRecords(t *testing.T) {
	t.Parallel()
	unit := compileUnit(t, map[string]string{
		"pkg.sv": pktPackage,
		"top.sv": `
module top;
  import pkt_pkg::*;
  pkt p;
  pkt arr [3:0];
  logic [7:0] mem [0:3];
  int q [$];
  typedef enum { IDLE, BUSY } state_t;
  state_t st;
endmodule
`,
	})
	snap := Build(unit)
	assert.Equal(t, "unit-1", snap.UnitID())

	var names []string
	for _, sym := range snap.FileSymbols("/w/top.sv") {
		names = append(names, sym.Name)
	}
	assert.Equal(t, []string{"p", "arr", "mem", "q", "st"}, names)

	p, ok := snap.Lookup("/w/top.sv", "p")
	require.True(t, ok)
	assert.Equal(t, Symbol{
		Name: "p", Scope: "top", TypeName: "pkt", RecordName: "pkt",
		ArrayLevels: 0, Kind: KindStruct, File: "/w/top.sv",
	}, p)

	arr, _ := snap.Lookup("/w/top.sv", "arr")
	assert.Equal(t, "pkt [3:0]", arr.TypeName)
	assert.Equal(t, "pkt", arr.RecordName)
	assert.Equal(t, 1, arr.ArrayLevels)
	assert.Equal(t, KindVariable, arr.Kind)

	mem, _ := snap.Lookup("/w/top.sv", "mem")
	assert.Equal(t, "logic [0:3][7:0]", mem.TypeName)
	assert.Equal(t, 2, mem.ArrayLevels)
	assert.Empty(t, mem.RecordName)

	q, _ := snap.Lookup("/w/top.sv", "q")
	assert.Equal(t, "int []", q.TypeName)

	st, _ := snap.Lookup("/w/top.sv", "st")
	assert.Equal(t, KindEnum, st.Kind)
	assert.Equal(t, "state_t", st.TypeName)

	rec, ok := snap.Record("pkt")
	require.True(t, ok)
	assert.Equal(t, []Member{
		{Name: "addr", TypeName: "logic [7:0]", ArrayLevels: 1, Kind: KindField},
		{Name: "data", TypeName: "logic [7:0]", ArrayLevels: 1, Kind: KindField},
	}, rec.Members)
	assert.NotZero(t, rec.Signature)

	assert.Equal(t, []string{"/w/pkg.sv"}, snap.Packages())
	assert.Equal(t, []string{"pkt_pkg"}, snap.FileScopes("/w/pkg.sv"))
	assert.Equal(t, []string{"top"}, snap.FileScopes("/w/top.sv"))
	assert.Equal(t, []string{"pkt"}, snap.ScopeTypes("pkt_pkg"))
	assert.Equal(t, []string{"state_t"}, snap.ScopeTypes("top"))
	assert.Equal(t, []string{"pkt"}, snap.Records())
	assert.Equal(t, []string{"/w/top.sv"}, snap.Files())
}

func TestBuild_RecordCachingIsIdempotent(t *testing.T) {
	t.Parallel()
	unit := compileUnit(t, map[string]string{
		"pkg.sv": pktPackage,
		"top.sv": `
module top;
  import pkt_pkg::*;
  pkt a;
  sub u ();
endmodule
module sub;
  import pkt_pkg::*;
  pkt b [2];
endmodule
`,
	})
	snap := Build(unit)
	a, ok := snap.Lookup("/w/top.sv", "a")
	require.True(t, ok)
	b, ok := snap.Lookup("/w/top.sv", "b")
	require.True(t, ok)
	assert.Equal(t, a.RecordName, b.RecordName)

	first, _ := snap.Record(a.RecordName)
	second, _ := snap.Record(b.RecordName)
	assert.Same(t, first, second)
	assert.Same(t, &first.Members[0], &second.Members[0])
}

func TestBuild_RecursiveRecordsTerminate(t *testing.T) {
	t.Parallel()
	unit := compileUnit(t, map[string]string{
		"top.sv": `
class node;
  node next;
  int val;
endclass
class ping;
  pong peer;
endclass
class pong;
  ping peer;
  ping history [$];
endclass
module top;
  node head;
  ping p;
endmodule
`,
	})
	b := NewBuilder(unit.Sources)
	b.Visit(unit.Root)
	snap := b.Snapshot(unit.ID)
	assert.Positive(t, b.Cycles())

	node, ok := snap.Record("node")
	require.True(t, ok)
	assert.Equal(t, []Member{
		{Name: "next", TypeName: "node", RecordName: "node", Kind: KindClass},
		{Name: "val", TypeName: "int", Kind: KindField},
	}, node.Members)

	pong, ok := snap.Record("pong")
	require.True(t, ok)
	require.Len(t, pong.Members, 2)
	assert.Equal(t, "ping", pong.Members[0].RecordName)
	assert.Equal(t, "ping []", pong.Members[1].TypeName)
	assert.Equal(t, "ping", pong.Members[1].RecordName)
	assert.Equal(t, 1, pong.Members[1].ArrayLevels)

	head, _ := snap.Lookup("/w/top.sv", "head")
	assert.Equal(t, KindClass, head.Kind)
	assert.Equal(t, "node", head.RecordName)
}

func TestBuild_AnonymousRecords(t *testing.T) {
	t.Parallel()
	unit := compileUnit(t, map[string]string{
		"top.sv": `
module top;
  struct packed { logic a; logic b; } s1, s2;
  struct packed { logic a; logic b; } s3;
  struct packed { logic x; } s4;
  union packed { logic [1:0] u; logic [1:0] v; } un;
  struct packed { struct packed { logic deep; } inner; } outer;
endmodule
`,
		"z.sv": `
module other;
  struct packed { logic z; } s4;
endmodule
`,
	})
	snap := Build(unit)

	lookup := func(file, name string) Symbol {
		sym, ok := snap.Lookup(file, name)
		require.True(t, ok, name)
		return sym
	}
	assert.Equal(t, "s1", lookup("/w/top.sv", "s1").RecordName)
	assert.Equal(t, "s1", lookup("/w/top.sv", "s2").RecordName)
	assert.Equal(t, "s1", lookup("/w/top.sv", "s3").RecordName, "same structure shares the record")
	assert.Equal(t, "struct", lookup("/w/top.sv", "s1").TypeName)
	assert.Equal(t, "s4", lookup("/w/top.sv", "s4").RecordName)
	assert.Equal(t, "s4#2", lookup("/w/z.sv", "s4").RecordName, "different structure under a taken name")

	un := lookup("/w/top.sv", "un")
	assert.Equal(t, "union", un.TypeName)
	assert.Equal(t, KindStruct, un.Kind)

	outer, ok := snap.Record("outer")
	require.True(t, ok)
	require.Len(t, outer.Members, 1)
	assert.Equal(t, "struct", outer.Members[0].TypeName)
	assert.Equal(t, KindStruct, outer.Members[0].Kind)
	assert.Equal(t, "inner", outer.Members[0].RecordName)

	inner, ok := snap.Record("inner")
	require.True(t, ok)
	assert.Equal(t, "deep", inner.Members[0].Name)

	s4, _ := snap.Record("s4#2")
	require.NotNil(t, s4)
	assert.Equal(t, "z", s4.Members[0].Name)
}

func TestBuild_NamedRecordOwnsItsName(t *testing.T) {
	t.Parallel()
	const anon = `
module holder;
  struct packed { logic q; } pkt;
endmodule
`
	const named = `
package p;
  typedef struct packed { logic addr; logic data; } pkt;
endpackage
module user;
  import p::*;
  pkt v;
endmodule
`
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"anonymous first", map[string]string{"a.sv": anon, "b.sv": named}},
		{"named first", map[string]string{"a.sv": named, "b.sv": anon}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap := Build(compileUnit(t, tt.files))

			var v, holder Symbol
			for _, file := range snap.Files() {
				if sym, ok := snap.Lookup(file, "v"); ok {
					v = sym
				}
				if sym, ok := snap.Lookup(file, "pkt"); ok {
					holder = sym
				}
			}
			require.Equal(t, "pkt", v.RecordName)
			rec, ok := snap.Record(v.RecordName)
			require.True(t, ok)
			assert.Equal(t, []string{"addr", "data"}, memberNames(rec))

			require.Equal(t, "pkt#2", holder.RecordName)
			rec, ok = snap.Record(holder.RecordName)
			require.True(t, ok)
			assert.Equal(t, "pkt#2", rec.Name)
			assert.Equal(t, []string{"q"}, memberNames(rec))
		})
	}
}

func memberNames(rec *Record) []string {
	var out []string
	for _, m := range rec.Members {
		out = append(out, m.Name)
	}
	return out
}

func TestSnapshot_NilIsEmpty(t *testing.T) {
	t.Parallel()
	var snap *Snapshot
	assert.Empty(t, snap.UnitID())
	assert.Nil(t, snap.FileSymbols("/w/top.sv"))
	_, ok := snap.Lookup("/w/top.sv", "p")
	assert.False(t, ok)
	_, ok = snap.Record("pkt")
	assert.False(t, ok)
	assert.Nil(t, snap.Packages())
	assert.Nil(t, Build(nil))
}

func TestKind_String(t *testing.T) {
	t.Parallel()
	for k := KindVariable; k <= KindFunction; k++ {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, "unknown", Kind(99).String())
}
