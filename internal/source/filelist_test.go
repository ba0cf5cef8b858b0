package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilelist(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "sub/nested.f", "// nested list\nc.sv\n-y ../ip\n")
	path := writeFile(t, dir, "top.f", `# project files
+incdir+inc+/abs/inc
+define+SIM+WIDTH=8
-timescale=1ns/1ps
-v cells/and2.v
-f sub/nested.f
a.sv b.sv // two on one line
`)

	fl, err := ParseFilelist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "inc"), "/abs/inc"}, fl.IncludeDirs)
	assert.Equal(t, []string{"SIM", "WIDTH=8"}, fl.Defines)
	assert.Equal(t, []string{filepath.Join(dir, "ip")}, fl.LibraryDirs)
	assert.Equal(t, []string{
		filepath.Join(dir, "cells", "and2.v"),
		filepath.Join(dir, "sub", "c.sv"),
		filepath.Join(dir, "a.sv"),
		filepath.Join(dir, "b.sv"),
	}, fl.Files)
}

func TestParseFilelist_Cycle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "b.f", "-f a.f\nb.sv\n")
	path := writeFile(t, dir, "a.f", "-f b.f\na.sv\n")

	fl, err := ParseFilelist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.sv"), filepath.Join(dir, "a.sv")}, fl.Files)
}

func TestParseFilelist_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := ParseFilelist(filepath.Join(dir, "missing.f"))
	assert.Error(t, err)

	path := writeFile(t, dir, "bad.f", "a.sv\n-y\n")
	_, err = ParseFilelist(path)
	assert.ErrorContains(t, err, "-y needs an argument")
}

func TestParseFilelist_ExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VERISCOPE_TEST_IP", filepath.Join(dir, "ip"))
	path := writeFile(t, dir, "env.f", "-y $VERISCOPE_TEST_IP\n${VERISCOPE_TEST_IP}/core.sv\n")

	fl, err := ParseFilelist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "ip")}, fl.LibraryDirs)
	assert.Equal(t, []string{filepath.Join(dir, "ip", "core.sv")}, fl.Files)
}
