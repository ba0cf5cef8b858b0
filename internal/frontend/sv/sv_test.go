package sv

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/frontend"
)

// compile parses the given files in name order and elaborates them.
func compile(t *testing.T, files map[string]string) *frontend.Compilation {
	t.Helper()
	dir := t.TempDir()
	sm := frontend.NewSourceManager()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var bufs []*frontend.Buffer
	for _, name := range names {
		bufs = append(bufs, sm.AssignText(filepath.Join(dir, name), files[name]))
	}
	fe := New()
	var trees []*frontend.SyntaxTree
	for _, buf := range bufs {
		if strings.HasSuffix(buf.Path, ".svh") {
			continue
		}
		trees = append(trees, fe.Parse(sm, buf))
	}
	return fe.Elaborate(sm, trees)
}

func findDefinition(t *testing.T, root *frontend.Root, name string) *frontend.Definition {
	t.Helper()
	var found *frontend.Definition
	frontend.Walk(root, func(m frontend.Member) bool {
		if inst, ok := m.(*frontend.InstanceSymbol); ok && inst.Definition != nil && inst.Definition.Name == name {
			found = inst.Definition
		}
		return true
	})
	require.NotNil(t, found, "definition %s", name)
	return found
}

func findValue(t *testing.T, members []frontend.Member, name string) *frontend.ValueSymbol {
	t.Helper()
	for _, m := range members {
		if v, ok := m.(*frontend.ValueSymbol); ok && v.Name == name {
			return v
		}
	}
	require.Failf(t, "value not found", "%s", name)
	return nil
}

func codes(diags []frontend.Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestParse_Metadata(t *testing.T) {
	t.Parallel()
	sm := frontend.NewSourceManager()
	buf := sm.AssignText("/w/top.sv", `
module top;
  import bus_pkg::*;
  cfg_pkg::mode_t m;
  leaf u_leaf (.clk(clk));
  leaf u_leaf2 ();
endmodule
class helper;
endclass
package p;
endpackage
`)
	tree := New().Parse(sm, buf)
	assert.Empty(t, tree.Diagnostics)
	assert.Equal(t, []string{"top", "helper", "p"}, tree.Metadata.Declared)
	assert.Equal(t, []string{"leaf"}, tree.Metadata.Instances)
	assert.Equal(t, []string{"bus_pkg", "cfg_pkg"}, tree.Metadata.ClassPackageNames)
	assert.Equal(t, []string{"bus_pkg"}, tree.Metadata.PackageImports)
}

func TestParse_Conditionals(t *testing.T) {
	t.Parallel()
	sm := frontend.NewSourceManager()
	buf := sm.AssignText("/w/c.sv", "`define USE_B\n"+
		"`ifdef USE_A\nmodule a; endmodule\n"+
		"`elsif USE_B\nmodule b; endmodule\n"+
		"`else\nmodule c; endmodule\n"+
		"`endif\n")
	tree := New().Parse(sm, buf)
	assert.Empty(t, tree.Diagnostics)
	assert.Equal(t, []string{"b"}, tree.Metadata.Declared)
}

func TestElaborate_PackageTypesAndDimensions(t *testing.T) {
	t.Parallel()
	c := compile(t, map[string]string{
		"a_pkg.sv": `
package pkt_pkg;
  typedef struct packed { logic [7:0] addr; logic [7:0] data; } pkt_t;
  localparam int DEPTH = 4;
endpackage
`,
		"top.sv": `
module top;
  import pkt_pkg::*;
  pkt_t p;
  pkt_t arr [DEPTH-1:0];
  logic [7:0] bytes [$];
  int dyn [];
  logic [$clog2(16)-1:0] idx;
endmodule
`,
	})
	require.Empty(t, c.Diagnostics())

	require.Len(t, c.Root.Members, 2)
	pkg, ok := c.Root.Members[0].(*frontend.PackageSymbol)
	require.True(t, ok)
	assert.Equal(t, "pkt_pkg", pkg.Name)

	top := findDefinition(t, c.Root, "top")

	p := findValue(t, top.Members, "p")
	assert.Equal(t, "pkt_t", p.Type.Name)
	assert.True(t, p.Type.IsStruct())
	require.Len(t, p.Type.Fields(), 2)
	assert.Equal(t, "addr", p.Type.Fields()[0].Name)
	assert.Equal(t, "top", p.Scope)

	arr := findValue(t, top.Members, "arr")
	assert.Equal(t, frontend.TypeFixedArray, arr.Type.Kind)
	assert.Equal(t, int64(3), arr.Type.Left)
	assert.Equal(t, int64(0), arr.Type.Right)
	assert.Same(t, p.Type, arr.Type.Elem)

	bytes := findValue(t, top.Members, "bytes")
	assert.Equal(t, frontend.TypeQueue, bytes.Type.Kind)
	assert.Equal(t, frontend.TypePackedArray, bytes.Type.Elem.Kind)
	assert.Equal(t, int64(7), bytes.Type.Elem.Left)

	dyn := findValue(t, top.Members, "dyn")
	assert.Equal(t, frontend.TypeDynamicArray, dyn.Type.Kind)
	assert.Equal(t, "int", dyn.Type.Elem.Name)

	idx := findValue(t, top.Members, "idx")
	assert.Equal(t, int64(3), idx.Type.Left)
}

func TestElaborate_ClassesWithInheritance(t *testing.T) {
	t.Parallel()
	c := compile(t, map[string]string{
		"top.sv": `
class base;
  int id;
endclass
class node extends base;
  rand node next;
  int val;
  function void f();
  endfunction
endclass
module top;
  node n;
endmodule
`,
	})
	require.Empty(t, c.Diagnostics())
	top := findDefinition(t, c.Root, "top")
	n := findValue(t, top.Members, "n")
	require.True(t, n.Type.IsClass())
	fields := n.Type.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, []string{"id", "next", "val"}, []string{fields[0].Name, fields[1].Name, fields[2].Name})
	assert.Same(t, n.Type, fields[1].Type)
}

func TestElaborate_ProceduralCodeIsSkipped(t *testing.T) {
	t.Parallel()
	c := compile(t, map[string]string{
		"top.sv": `
module top(input logic clk, input logic [3:0] sel, output logic [7:0] q);
  logic [7:0] r;
  always_ff @(posedge clk) begin
    case (sel)
      4'd0: r <= 8'h00;
      default: r <= r + 1;
    endcase
  end
  function automatic int add(int a, int b);
    return a + b;
  endfunction
  for (genvar i = 0; i < 4; i++) begin : g
    logic t;
  end
  assign q = r;
  logic after;
endmodule
`,
	})
	require.Empty(t, c.Diagnostics())
	top := findDefinition(t, c.Root, "top")
	var names []string
	for _, m := range top.Members {
		names = append(names, m.SymbolName())
	}
	assert.Equal(t, []string{"clk", "sel", "q", "r", "after"}, names)
	assert.Equal(t, frontend.ValuePort, findValue(t, top.Members, "sel").Kind)
}

func TestElaborate_IncludeAndDefine(t *testing.T) {
	t.Parallel()
	c := compile(t, map[string]string{
		"defs.svh": "`define WIDTH 16\ntypedef logic [`WIDTH-1:0] word_t;\n",
		"top.sv":   "`include \"defs.svh\"\nmodule top;\n  word_t w;\nendmodule\n",
	})
	require.Empty(t, c.Diagnostics())
	top := findDefinition(t, c.Root, "top")
	w := findValue(t, top.Members, "w")
	assert.Equal(t, "word_t", w.Type.Name)
	assert.Equal(t, int64(15), w.Type.Canonical().Left)
}

func TestElaborate_Diagnostics(t *testing.T) {
	t.Parallel()
	src := "module top;\n  missing u0 ();\n  foo_t x;\n  virtual nope_if vif;\nendmodule\n"
	c := compile(t, map[string]string{
		"top.sv": src,
		"x.sv":   "`include \"gone.svh\"\nmodule top; endmodule\n",
	})
	got := codes(c.Diagnostics())
	assert.ElementsMatch(t, []string{
		"CouldNotOpenIncludeFile",
		"UnknownModule", "UnknownType", "UnknownInterface",
		"DuplicateDefinition", "NotePreviousDefinition",
	}, got)

	for _, d := range c.Diagnostics() {
		if d.Code != "UnknownModule" {
			continue
		}
		assert.Equal(t, frontend.SeverityError, d.Severity)
		require.Len(t, d.Ranges, 1)
		assert.Equal(t, strings.Index(src, "missing"), d.Ranges[0].Start.Offset)
		assert.Equal(t, strings.Index(src, "missing")+len("missing"), d.Ranges[0].End.Offset)
	}
}

func TestElaborate_VirtualInterface(t *testing.T) {
	t.Parallel()
	c := compile(t, map[string]string{
		"top.sv": `
interface bus_if;
  logic valid;
endinterface
module top;
  virtual bus_if vif;
endmodule
`,
	})
	require.Empty(t, c.Diagnostics())
	top := findDefinition(t, c.Root, "top")
	vif := findValue(t, top.Members, "vif")
	assert.True(t, vif.Type.IsVirtualInterface())
	assert.Equal(t, "bus_if", vif.Type.Name)
}

func TestElaborate_LibraryDefinitionsAreNotTops(t *testing.T) {
	t.Parallel()
	sm := frontend.NewSourceManager()
	fe := New()
	top := fe.Parse(sm, sm.AssignText("/w/top.sv", "module top; leaf u (); endmodule\n"))
	leaf := fe.Parse(sm, sm.AssignText("/lib/leaf.sv", "module leaf; logic q; endmodule\n"))
	unused := fe.Parse(sm, sm.AssignText("/lib/unused.sv", "module unused; endmodule\n"))
	leaf.IsLibrary = true
	unused.IsLibrary = true

	c := fe.Elaborate(sm, []*frontend.SyntaxTree{top, leaf, unused})
	require.Empty(t, c.Diagnostics())
	require.Len(t, c.Root.Members, 1)
	inst := c.Root.Members[0].(*frontend.InstanceSymbol)
	assert.Equal(t, "top", inst.Name)
	child := inst.Definition.Members[0].(*frontend.InstanceSymbol)
	assert.Equal(t, "u", child.Name)
	assert.True(t, child.Definition.IsLibrary)
}

func TestParseNumber(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"1_000", 1000},
		{"8'hFF", 255},
		{"4'b1010", 10},
		{"'1", 1},
		{"'0", 0},
		{"32'sd5", 5},
		{"8'bxx01", 1},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		assert.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParse_SyntaxErrorsKeepIntactDeclarations(t *testing.T) {
	t.Parallel()
	sm := frontend.NewSourceManager()
	src := "module good;\n  logic [3:0] q;\nendmodule\n" +
		"module bad;\n  logic = = ;\nendmodule\n"
	tree := New().Parse(sm, sm.AssignText("/w/mixed.sv", src))

	require.NotEmpty(t, tree.Diagnostics)
	for _, d := range tree.Diagnostics {
		assert.Equal(t, "SyntaxError", d.Code)
		assert.Equal(t, frontend.SeverityError, d.Severity)
		require.Len(t, d.Ranges, 1)
		assert.GreaterOrEqual(t, d.Ranges[0].Start.Offset, strings.Index(src, "module bad"))
	}
	assert.Contains(t, tree.Metadata.Declared, "good")

	c := New().Elaborate(sm, []*frontend.SyntaxTree{tree})
	good := findDefinition(t, c.Root, "good")
	q := findValue(t, good.Members, "q")
	assert.Equal(t, frontend.TypePackedArray, q.Type.Kind)
	assert.Equal(t, int64(3), q.Type.Left)
}

func TestParse_AttributesAreIgnored(t *testing.T) {
	t.Parallel()
	c := compile(t, map[string]string{
		"top.sv": `
module top;
  (* keep = 1 *) logic flag;
  (* dont_touch *) leaf u_leaf ();
endmodule
module leaf;
endmodule
`,
	})
	require.Empty(t, c.Diagnostics())
	top := findDefinition(t, c.Root, "top")
	findValue(t, top.Members, "flag")
	findDefinition(t, c.Root, "leaf")
}
