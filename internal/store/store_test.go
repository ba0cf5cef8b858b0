package store

import (
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/frontend"
	"github.com/jward/veriscope/internal/frontend/sv"
	"github.com/jward/veriscope/internal/index"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// buildSnapshot compiles in-memory files named /w/<name> and indexes them.
func buildSnapshot(t *testing.T, files map[string]string) *index.Snapshot {
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
	return index.Build(unit)
}

func testExport(t *testing.T) *Export {
	t.Helper()
	snap := buildSnapshot(t, map[string]string{
		"pkg.sv": `
package pkt_pkg;
  typedef struct packed { logic [7:0] addr; logic [7:0] data; } pkt;
endpackage
`,
		"top.sv": `
module top;
  import pkt_pkg::*;
  pkt p;
  pkt arr [3:0];
  int count;
endmodule
`,
	})
	return &Export{
		Unit: Unit{
			ID:         "unit-1",
			CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Iterations: 2,
			Duration:   1500 * time.Millisecond,
		},
		Files:    []File{{Path: "/w/top.sv", UserLoaded: true, Modified: true}},
		Snapshot: snap,
		Diagnostics: map[string][]diag.Diagnostic{
			"/w/top.sv": {{
				Code:     "UnusedVariable",
				Message:  "variable 'count' is never used",
				Start:    diag.Position{Line: 5, Character: 6},
				End:      diag.Position{Line: 5, Character: 11},
				Severity: diag.SeverityWarning,
			}},
		},
	}
}

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range tables {
		var name string
		err := s.DB().QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
}

func TestUnit_EmptyStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	u, err := s.Unit()
	require.NoError(t, err)
	assert.Nil(t, u)

	files, err := s.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ex := testExport(t)
	require.NoError(t, s.WriteSnapshot(ex))

	u, err := s.Unit()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "unit-1", u.ID)
	assert.True(t, u.CreatedAt.Equal(ex.Unit.CreatedAt))
	assert.Equal(t, 2, u.Iterations)
	assert.Equal(t, 1500*time.Millisecond, u.Duration)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/w/pkg.sv", files[0].Path)
	assert.False(t, files[0].UserLoaded)
	assert.Equal(t, "/w/top.sv", files[1].Path)
	assert.True(t, files[1].UserLoaded)
	assert.True(t, files[1].Modified)

	syms, err := s.SymbolsByFile("/w/top.sv")
	require.NoError(t, err)
	assert.Equal(t, ex.Snapshot.FileSymbols("/w/top.sv"), syms)

	byName, err := s.SymbolsByName("arr")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "pkt [3:0]", byName[0].TypeName)
	assert.Equal(t, 1, byName[0].ArrayLevels)

	records, err := s.Records()
	require.NoError(t, err)
	assert.Equal(t, ex.Snapshot.Records(), records)

	members, err := s.RecordMembers("pkt")
	require.NoError(t, err)
	rec, _ := ex.Snapshot.Record("pkt")
	assert.Equal(t, rec.Members, members)

	pkgs, err := s.Packages()
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/pkg.sv"}, pkgs)

	diags, err := s.DiagnosticsByFile("/w/top.sv")
	require.NoError(t, err)
	assert.Equal(t, ex.Diagnostics["/w/top.sv"], diags)
}

func TestWriteSnapshot_ReplacesPreviousUnit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.WriteSnapshot(testExport(t)))

	next := &Export{Unit: Unit{ID: "unit-2", CreatedAt: time.Now().UTC()}}
	require.NoError(t, s.WriteSnapshot(next))

	u, err := s.Unit()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "unit-2", u.ID)

	files, err := s.Files()
	require.NoError(t, err)
	assert.Empty(t, files)

	syms, err := s.SymbolsByName("p")
	require.NoError(t, err)
	assert.Empty(t, syms)

	members, err := s.RecordMembers("pkt")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestReaders_UnknownKeys(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.WriteSnapshot(testExport(t)))

	syms, err := s.SymbolsByFile("/w/missing.sv")
	require.NoError(t, err)
	assert.Empty(t, syms)

	members, err := s.RecordMembers("nope")
	require.NoError(t, err)
	assert.Empty(t, members)

	diags, err := s.DiagnosticsByFile("/w/pkg.sv")
	require.NoError(t, err)
	assert.Empty(t, diags)
}
