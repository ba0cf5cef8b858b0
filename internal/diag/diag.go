// Package diag turns the frontend's diagnostic stream into per-file,
// positioned, severity-tagged messages ready for an editor.
package diag

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jward/veriscope/internal/frontend"
)

// Severity is the editor-facing severity. The values match the LSP
// DiagnosticSeverity numbering.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	}
	return "unknown"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, bool) {
	for _, sev := range []Severity{SeverityError, SeverityWarning, SeverityInformation, SeverityHint} {
		if sev.String() == s {
			return sev, true
		}
	}
	return SeverityInformation, false
}

// FromFrontend maps a frontend severity.
func FromFrontend(s frontend.Severity) Severity {
	switch s {
	case frontend.SeverityNote:
		return SeverityHint
	case frontend.SeverityWarning:
		return SeverityWarning
	case frontend.SeverityError, frontend.SeverityFatal:
		return SeverityError
	default:
		return SeverityInformation
	}
}

// RangePolicy chooses the reported range when a diagnostic carries
// highlight ranges.
type RangePolicy int

const (
	// LastHighlight reports the last highlight range.
	LastHighlight RangePolicy = iota
	// PrimaryHighlight reports the first highlight range.
	PrimaryHighlight
	// UnionHighlights reports the smallest range covering every highlight.
	UnionHighlights
)

func (p RangePolicy) String() string {
	switch p {
	case LastHighlight:
		return "last"
	case PrimaryHighlight:
		return "primary"
	case UnionHighlights:
		return "union"
	}
	return "unknown"
}

// ParseRangePolicy is the inverse of RangePolicy.String.
func ParseRangePolicy(s string) (RangePolicy, bool) {
	for _, p := range []RangePolicy{LastHighlight, PrimaryHighlight, UnionHighlights} {
		if p.String() == s {
			return p, true
		}
	}
	return LastHighlight, false
}

// Position is a 0-based line and byte column.
type Position struct {
	Line      int
	Character int
}

func (p Position) before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Character < o.Character)
}

// Diagnostic is one positioned message.
type Diagnostic struct {
	Code     string
	Message  string
	Start    Position
	End      Position
	Severity Severity
}

// Translator accumulates the diagnostics of one pass. It is not safe for
// concurrent use.
type Translator struct {
	sm     *frontend.SourceManager
	policy RangePolicy
	files  map[string][]Diagnostic
	logger *log.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithRangePolicy selects how highlight ranges are reported.
func WithRangePolicy(p RangePolicy) Option {
	return func(t *Translator) {
		t.policy = p
	}
}

// WithLogger sets the translator's logger.
func WithLogger(l *log.Logger) Option {
	return func(t *Translator) {
		t.logger = l
	}
}

// NewTranslator returns an empty Translator.
func NewTranslator(opts ...Option) *Translator {
	t := &Translator{
		files:  make(map[string][]Diagnostic),
		logger: log.New(os.Stderr, "[veriscope:diag] ", log.Ltime),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.New(io.Discard, "", 0)
	}
	return t
}

// Clear drops everything reported so far and binds the translator to the
// source manager of the next pass.
func (t *Translator) Clear(sm *frontend.SourceManager) {
	t.sm = sm
	t.files = make(map[string][]Diagnostic)
}

// Translate clears the translator and reports every diagnostic of unit.
func (t *Translator) Translate(unit *frontend.Compilation) {
	t.Clear(unit.Sources)
	for _, d := range unit.Diagnostics() {
		t.Report(d)
	}
}

// Report adds one diagnostic. Diagnostics without a location in a known
// buffer are logged and dropped.
func (t *Translator) Report(d frontend.Diagnostic) {
	if t.sm == nil {
		return
	}
	name := t.sm.FileName(d.Location)
	if name == "" {
		t.logger.Printf("%s: %s (no location)", d.Severity, d.Message)
		return
	}
	file := filepath.Clean(name)
	line := t.sm.LineNumber(d.Location)
	col := t.sm.ColumnNumber(d.Location)
	t.logger.Printf("%s: %s @ L%d, C%d | %s", d.Severity, d.Message, line, col, file)

	start := Position{Line: line - 1, Character: col - 1}
	out := Diagnostic{
		Code:     d.Code,
		Message:  d.Message,
		Start:    start,
		End:      start,
		Severity: FromFrontend(d.Severity),
	}
	for i, r := range t.mapRanges(d.Location, d.Ranges) {
		s, e := t.position(r.Start), t.position(r.End)
		switch t.policy {
		case PrimaryHighlight:
			if i == 0 {
				out.Start, out.End = s, e
			}
		case UnionHighlights:
			if i == 0 || s.before(out.Start) {
				out.Start = s
			}
			if i == 0 || out.End.before(e) {
				out.End = e
			}
		default:
			out.Start, out.End = s, e
		}
	}
	t.files[file] = append(t.files[file], out)
}

// mapRanges keeps the highlight ranges that lie in the buffer of the
// reported location.
func (t *Translator) mapRanges(loc frontend.Location, ranges []frontend.Range) []frontend.Range {
	var out []frontend.Range
	for _, r := range ranges {
		if r.Start.Buffer != loc.Buffer || r.End.Buffer != loc.Buffer {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (t *Translator) position(loc frontend.Location) Position {
	return Position{Line: t.sm.LineNumber(loc) - 1, Character: t.sm.ColumnNumber(loc) - 1}
}

// File returns the diagnostics reported for file, in report order.
func (t *Translator) File(file string) []Diagnostic {
	return append([]Diagnostic(nil), t.files[file]...)
}

// Diagnostics returns a copy of the accumulated diagnostics keyed by file.
func (t *Translator) Diagnostics() map[string][]Diagnostic {
	out := make(map[string][]Diagnostic, len(t.files))
	for file, list := range t.files {
		out[file] = append([]Diagnostic(nil), list...)
	}
	return out
}

// Files returns the files with at least one diagnostic, sorted.
func (t *Translator) Files() []string {
	out := make([]string, 0, len(t.files))
	for file := range t.files {
		out = append(out, file)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of diagnostics per severity.
func (t *Translator) Count() map[Severity]int {
	out := make(map[Severity]int)
	for _, list := range t.files {
		for _, d := range list {
			out[d.Severity]++
		}
	}
	return out
}
