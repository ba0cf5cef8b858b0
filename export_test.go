package veriscope

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/store"
)

func TestEngine_Export(t *testing.T) {
	t.Parallel()
	e, root := newProject(t)
	top := filepath.Join(root, "top.sv")
	report, err := e.Open(context.Background(), top, topText)
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, e.Export(dbPath))
	// A second export replaces the first.
	require.NoError(t, e.Export(dbPath))

	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	u, err := s.Unit()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, report.UnitID, u.ID)
	assert.Equal(t, report.Iterations, u.Iterations)

	files, err := s.Files()
	require.NoError(t, err)
	var user []string
	for _, f := range files {
		if f.UserLoaded {
			user = append(user, f.Path)
			assert.True(t, f.Modified)
		}
	}
	assert.Equal(t, []string{top}, user)

	syms, err := s.SymbolsByFile(top)
	require.NoError(t, err)
	require.NotEmpty(t, syms)
	assert.Equal(t, "p", syms[0].Name)
	assert.Equal(t, "pkt", syms[0].RecordName)

	pkgs, err := s.Packages()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "rtl", "pkt_pkg.sv")}, pkgs)

	members, err := s.RecordMembers("pkt")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "addr", members[0].Name)
}

func TestEngine_ExportBeforeFirstCompile(t *testing.T) {
	t.Parallel()
	e := New(WithLogger(io.Discard))
	err := e.Export(filepath.Join(t.TempDir(), "index.db"))
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestUnitTime(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	id := ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
	assert.True(t, unitTime(id).Equal(at))

	before := time.Now().Add(-time.Second)
	assert.True(t, unitTime("not-a-ulid").After(before))
}
