package driver

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/frontend"
	"github.com/jward/veriscope/internal/frontend/sv"
	"github.com/jward/veriscope/internal/source"
)

var quiet = log.New(io.Discard, "", 0)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newFixture returns a configured source set and a driver over it.
func newFixture(t *testing.T, settings source.Settings) (*source.Set, *Driver) {
	t.Helper()
	set := source.New(source.WithLogger(quiet))
	set.Configure(settings)
	return set, New(set, sv.New(), WithLogger(quiet), WithWorkers(2))
}

func diagCodes(unit *frontend.Compilation) []string {
	var out []string
	for _, d := range unit.Diagnostics() {
		out = append(out, d.Code)
	}
	return out
}

func treeFor(unit *frontend.Compilation, path string) *frontend.SyntaxTree {
	for _, tree := range unit.Trees {
		if tree.Buffer.Path == path {
			return tree
		}
	}
	return nil
}

func TestCompile_NoMissingNamesTakesOnePass(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	set, d := newFixture(t, source.Settings{LibraryPaths: []string{dir}})
	set.Open(filepath.Join(dir, "top.sv"), "module top; sub u (); endmodule\n")
	set.Open(filepath.Join(dir, "sub.sv"), "module sub; endmodule\n")

	pass, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Iterations)
	assert.Empty(t, pass.AutoLoaded)
	assert.Empty(t, pass.Unit.Diagnostics())
	assert.NotEmpty(t, pass.Unit.ID)
	assert.Len(t, pass.Unit.Trees, 2)
}

func TestCompile_AutoLoadsMissingModule(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	leaf := writeFile(t, lib, "leaf.sv", "module leaf; logic q; endmodule\n")
	top := filepath.Join(dir, "top.sv")

	set, d := newFixture(t, source.Settings{LibraryPaths: []string{lib}})
	set.Open(top, "module top; leaf u_leaf (); endmodule\n")

	pass, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{leaf}, pass.AutoLoaded)
	assert.Empty(t, pass.Unit.Diagnostics())

	f, ok := set.Get(leaf)
	require.True(t, ok)
	assert.False(t, f.UserLoaded)
	assert.False(t, f.Modified)
	assert.Equal(t, []string{top}, set.UserFiles())

	tree := treeFor(pass.Unit, leaf)
	require.NotNil(t, tree)
	assert.True(t, tree.IsLibrary)
	assert.False(t, treeFor(pass.Unit, top).IsLibrary)

	// The next pass reads the file from the set instead of probing again.
	again, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.AutoLoaded)
	assert.Equal(t, 1, again.Iterations)
	assert.True(t, treeFor(again.Unit, leaf).IsLibrary)
	assert.NotEqual(t, pass.Unit.ID, again.Unit.ID)
}

func TestCompile_TransitiveDependencies(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	writeFile(t, lib, "leaf.sv", "module leaf; import bus_pkg::*; word_t w; endmodule\n")
	writeFile(t, lib, "bus_pkg.sv", "package bus_pkg; typedef logic [7:0] word_t; endpackage\n")

	set, d := newFixture(t, source.Settings{LibraryPaths: []string{lib}})
	set.Open(filepath.Join(dir, "top.sv"), "module top; leaf u (); endmodule\n")

	pass, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pass.Iterations)
	assert.Equal(t, []string{
		filepath.Join(lib, "leaf.sv"),
		filepath.Join(lib, "bus_pkg.sv"),
	}, pass.AutoLoaded)
	assert.Empty(t, pass.Unit.Diagnostics())
}

func TestCompile_ProbingOrderIsDeterministic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	writeFile(t, first, "leaf.sv", "module leaf; endmodule\n")
	writeFile(t, first, "leaf.v", "module leaf; endmodule\n")
	writeFile(t, second, "leaf.v", "module leaf; endmodule\n")

	for i := 0; i < 3; i++ {
		set, d := newFixture(t, source.Settings{LibraryPaths: []string{first, second}})
		set.Open(filepath.Join(dir, "top.sv"), "module top; leaf u (); endmodule\n")
		pass, err := d.Compile(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(first, "leaf.v")}, pass.AutoLoaded)
	}
}

func TestCompile_UnreadableCandidateIsSkipped(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(filepath.Join(lib, "leaf.v"), 0o755))
	writeFile(t, lib, "leaf.sv", "module leaf; endmodule\n")

	set, d := newFixture(t, source.Settings{LibraryPaths: []string{lib}})
	set.Open(filepath.Join(dir, "top.sv"), "module top; leaf u (); endmodule\n")

	pass, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(lib, "leaf.sv")}, pass.AutoLoaded)
}

func TestCompile_UnresolvedNameIsLeftToElaboration(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	set, d := newFixture(t, source.Settings{LibraryPaths: []string{dir}})
	set.Open(filepath.Join(dir, "top.sv"), "module top; ghost u (); endmodule\n")

	pass, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pass.AutoLoaded)
	assert.Equal(t, 1, pass.Iterations)
	assert.Equal(t, []string{"UnknownModule"}, diagCodes(pass.Unit))
}

func TestCompile_IncludeDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	inc := filepath.Join(dir, "inc")
	writeFile(t, inc, "defs.svh", "typedef logic [3:0] nibble_t;\n")

	set, d := newFixture(t, source.Settings{IncludePaths: []string{inc}})
	set.Open(filepath.Join(dir, "rtl", "top.sv"), "`include \"defs.svh\"\nmodule top; nibble_t n; endmodule\n")

	pass, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pass.Unit.Diagnostics())
}

func TestCompile_SkipsUnreadableKnownFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	set, d := newFixture(t, source.Settings{})
	set.AddFromDisk(filepath.Join(dir, "vanished.sv"), true)
	set.Open(filepath.Join(dir, "top.sv"), "module top; endmodule\n")

	pass, err := d.Compile(context.Background())
	require.NoError(t, err)
	assert.Len(t, pass.Unit.Trees, 1)
}

func TestCompile_CancelledContext(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	set, d := newFixture(t, source.Settings{})
	set.Open(filepath.Join(dir, "top.sv"), "module top; endmodule\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Compile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
