package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/complete"
	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/index"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()

	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.EqualError(t, validateFormat("yaml"), `invalid format "yaml": must be json or text`)
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("x", "line")
	assert.Error(t, err)
	_, err = parseIntArg("-1", "col")
	assert.Error(t, err)
}

func TestCollectSources(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, name := range []string{"a.sv", "b.v", "notes.txt", "sub/c.svh", "gen/d.sv"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("gen/\n"), 0o644))

	got, err := collectSources([]string{root, filepath.Join(root, "a.sv")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.sv"),
		filepath.Join(root, "b.v"),
		filepath.Join(root, "sub", "c.svh"),
	}, got)

	_, err = collectSources([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = collectSources([]string{empty})
	assert.Error(t, err)
}

func TestDiagnosticsToCLI(t *testing.T) {
	t.Parallel()
	got := diagnosticsToCLI(map[string][]diag.Diagnostic{
		"/b.sv": {{Message: "w", Severity: diag.SeverityWarning}},
		"/a.sv": {
			{Code: "UnknownModule", Message: "e", Severity: diag.SeverityError,
				Start: diag.Position{Line: 1, Character: 2}, End: diag.Position{Line: 1, Character: 6}},
		},
		"/c.sv": {},
	})
	require.Len(t, got, 2)
	assert.Equal(t, CLIDiagnostic{
		File: "/a.sv", Severity: "error", Code: "UnknownModule", Message: "e",
		StartLine: 1, StartCol: 2, EndLine: 1, EndCol: 6,
	}, got[0])
	assert.Equal(t, "/b.sv", got[1].File)
	assert.Equal(t, 1, countErrors(got))

	assert.NotNil(t, diagnosticsToCLI(nil))
}

func TestFormatDiagnosticsText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, formatDiagnosticsText(&buf, []CLIDiagnostic{
		{File: "/a.sv", Severity: "error", Code: "UnknownModule", Message: "unknown module 'x'", StartLine: 1, StartCol: 2},
		{File: "/a.sv", Severity: "warning", Message: "w", StartLine: 0, StartCol: 0},
	}))
	assert.Equal(t, "/a.sv:2:3: error: unknown module 'x' [UnknownModule]\n/a.sv:1:1: warning: w\n", buf.String())
}

func TestFormatSymbolsText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, formatSymbolsText(&buf, []CLISymbol{
		{File: "/w/top.sv", Name: "p", Scope: "top", Type: "pkt", Kind: "struct"},
	}))
	out := buf.String()
	for _, want := range []string{"NAME", "/w/top.sv", "pkt", "struct"} {
		assert.Contains(t, out, want)
	}
}

func TestOutputResultText_Unsupported(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.Error(t, outputResultText(&buf, CLIResult{Results: 42}))
	assert.NoError(t, outputResultText(&buf, CLIResult{Results: nil}))
}

func TestCompletionToCLI(t *testing.T) {
	t.Parallel()
	got := completionToCLI(complete.Result{
		Strategy: complete.StrategySystem,
		Items:    []complete.Item{{Label: "$finish", InsertText: "finish", Kind: index.KindFunction}},
	})
	assert.Equal(t, CLICompletion{
		Strategy: "system",
		Items:    []CLICompletionItem{{Label: "$finish", InsertText: "finish", Kind: "function"}},
	}, got)

	assert.NotNil(t, completionToCLI(complete.Result{Strategy: complete.StrategyNone}).Items)
}

func TestRecordToCLI(t *testing.T) {
	t.Parallel()
	got := recordToCLI("pkt", []index.Member{
		{Name: "addr", TypeName: "logic [7:0]", ArrayLevels: 1, Kind: index.KindField},
	})
	assert.Equal(t, CLIRecord{Name: "pkt", Members: []CLIMember{
		{Name: "addr", Type: "logic [7:0]", ArrayLevels: 1, Kind: "field"},
	}}, got)
}
