package diag

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/frontend"
	"github.com/jward/veriscope/internal/frontend/sv"
)

const text = "module top;\n  leaf u1 ();\n  leaf u2 ();\nendmodule\n"

func newTranslator(t *testing.T, opts ...Option) (*Translator, *frontend.Buffer) {
	t.Helper()
	sm := frontend.NewSourceManager()
	buf := sm.AssignText("/w/top.sv", text)
	opts = append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	tr := NewTranslator(opts...)
	tr.Clear(sm)
	return tr, buf
}

func at(buf *frontend.Buffer, needle string) frontend.Location {
	return frontend.Location{Buffer: buf.ID, Offset: strings.Index(buf.Text, needle)}
}

func span(buf *frontend.Buffer, needle string) frontend.Range {
	start := at(buf, needle)
	return frontend.Range{Start: start, End: frontend.Location{Buffer: buf.ID, Offset: start.Offset + len(needle)}}
}

// twoHighlights reports on "top" with highlights on "u1" and "u2".
func twoHighlights(buf *frontend.Buffer) frontend.Diagnostic {
	return frontend.Diagnostic{
		Code:     "Test",
		Severity: frontend.SeverityError,
		Message:  "two highlights",
		Location: at(buf, "top"),
		Ranges:   []frontend.Range{span(buf, "u1"), span(buf, "u2")},
	}
}

func TestReport_LastHighlightWins(t *testing.T) {
	t.Parallel()
	tr, buf := newTranslator(t)
	tr.Report(twoHighlights(buf))

	got := tr.File("/w/top.sv")
	require.Len(t, got, 1)
	assert.Equal(t, Diagnostic{
		Code:     "Test",
		Message:  "two highlights",
		Start:    Position{Line: 2, Character: 7},
		End:      Position{Line: 2, Character: 9},
		Severity: SeverityError,
	}, got[0])
}

func TestReport_RangePolicies(t *testing.T) {
	t.Parallel()
	tests := []struct {
		policy     RangePolicy
		start, end Position
	}{
		{LastHighlight, Position{2, 7}, Position{2, 9}},
		{PrimaryHighlight, Position{1, 7}, Position{1, 9}},
		{UnionHighlights, Position{1, 7}, Position{2, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			t.Parallel()
			tr, buf := newTranslator(t, WithRangePolicy(tt.policy))
			tr.Report(twoHighlights(buf))
			got := tr.File("/w/top.sv")
			require.Len(t, got, 1)
			assert.Equal(t, tt.start, got[0].Start)
			assert.Equal(t, tt.end, got[0].End)
		})
	}
}

func TestReport_NoHighlights(t *testing.T) {
	t.Parallel()
	tr, buf := newTranslator(t)
	tr.Report(frontend.Diagnostic{Severity: frontend.SeverityWarning, Message: "w", Location: at(buf, "leaf u2")})

	got := tr.File("/w/top.sv")
	require.Len(t, got, 1)
	assert.Equal(t, Position{Line: 2, Character: 2}, got[0].Start)
	assert.Equal(t, got[0].Start, got[0].End)
	assert.Equal(t, SeverityWarning, got[0].Severity)
}

func TestReport_ForeignRangesAreIgnored(t *testing.T) {
	t.Parallel()
	tr, buf := newTranslator(t)
	d := twoHighlights(buf)
	d.Ranges = []frontend.Range{span(buf, "u1"), {
		Start: frontend.Location{Buffer: buf.ID + 1, Offset: 0},
		End:   frontend.Location{Buffer: buf.ID + 1, Offset: 3},
	}}
	tr.Report(d)
	got := tr.File("/w/top.sv")
	require.Len(t, got, 1)
	assert.Equal(t, Position{Line: 1, Character: 7}, got[0].Start)
}

func TestReport_UnknownLocationDropped(t *testing.T) {
	t.Parallel()
	tr, _ := newTranslator(t)
	tr.Report(frontend.Diagnostic{Severity: frontend.SeverityError, Message: "x", Location: frontend.NoLocation})
	assert.Empty(t, tr.Diagnostics())
}

func TestClear(t *testing.T) {
	t.Parallel()
	tr, buf := newTranslator(t)
	tr.Report(twoHighlights(buf))
	tr.Report(twoHighlights(buf))
	assert.Len(t, tr.File("/w/top.sv"), 2)
	assert.Equal(t, []string{"/w/top.sv"}, tr.Files())
	assert.Equal(t, map[Severity]int{SeverityError: 2}, tr.Count())

	tr.Clear(frontend.NewSourceManager())
	assert.Empty(t, tr.Diagnostics())
	assert.Empty(t, tr.File("/w/top.sv"))
}

func TestFromFrontend(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   frontend.Severity
		want Severity
	}{
		{frontend.SeverityNote, SeverityHint},
		{frontend.SeverityWarning, SeverityWarning},
		{frontend.SeverityError, SeverityError},
		{frontend.SeverityFatal, SeverityError},
		{frontend.SeverityIgnored, SeverityInformation},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromFrontend(tt.in), tt.in.String())
	}
}

func TestParseRangePolicy(t *testing.T) {
	t.Parallel()
	for _, p := range []RangePolicy{LastHighlight, PrimaryHighlight, UnionHighlights} {
		got, ok := ParseRangePolicy(p.String())
		require.True(t, ok)
		assert.Equal(t, p, got)
	}
	_, ok := ParseRangePolicy("widest")
	assert.False(t, ok)
}

func TestTranslate_Compilation(t *testing.T) {
	t.Parallel()
	sm := frontend.NewSourceManager()
	fe := sv.New()
	tree := fe.Parse(sm, sm.AssignText("/w/top.sv", text))
	unit := fe.Elaborate(sm, []*frontend.SyntaxTree{tree})
	require.NotEmpty(t, unit.Diagnostics())

	tr := NewTranslator(WithLogger(nil))
	tr.Translate(unit)
	got := tr.File("/w/top.sv")
	require.Len(t, got, len(unit.Diagnostics()))
	assert.Equal(t, "UnknownModule", got[0].Code)
	assert.Equal(t, SeverityError, got[0].Severity)
	assert.Equal(t, Position{Line: 1, Character: 2}, got[0].Start)
	assert.Equal(t, Position{Line: 1, Character: 6}, got[0].End)
}
