// Package frontend defines the boundary between the indexing core and a
// SystemVerilog compiler frontend: text buffers, syntax trees with the
// metadata dependency resolution needs, the elaborated design and its
// diagnostics.
package frontend

// Severity is the closed set of diagnostic severities.
type Severity int

const (
	SeverityIgnored Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "ignored"
	}
}

// Diagnostic is one message produced while parsing or elaborating.
// Ranges are highlight ranges, in the order the frontend reported them.
type Diagnostic struct {
	Code     string
	Severity Severity
	Message  string
	Location Location
	Ranges   []Range
}

// Metadata is what the dependency resolver needs to know about a tree
// without elaborating it.
type Metadata struct {
	// Declared lists top-level module, interface, program, package and
	// class names.
	Declared []string
	// Instances lists the definition names instantiated anywhere.
	Instances []string
	// ClassPackageNames lists the left-hand side of every pkg::name
	// reference.
	ClassPackageNames []string
	// PackageImports lists every imported package name.
	PackageImports []string
}

// SyntaxTree is the parse result of one buffer.
type SyntaxTree struct {
	Buffer      *Buffer
	IsLibrary   bool
	Metadata    Metadata
	Diagnostics []Diagnostic

	// Node is the frontend-specific root node.
	Node any
}

// Compilation is the result of one compile pass: an elaborated design plus
// every diagnostic of the pass.
type Compilation struct {
	ID      string
	Root    *Root
	Trees   []*SyntaxTree
	Sources *SourceManager

	diagnostics []Diagnostic
}

// NewCompilation assembles a Compilation. Parse diagnostics of the trees
// come first, followed by elaboration diagnostics.
func NewCompilation(sm *SourceManager, trees []*SyntaxTree, root *Root, elab []Diagnostic) *Compilation {
	var diags []Diagnostic
	for _, t := range trees {
		diags = append(diags, t.Diagnostics...)
	}
	diags = append(diags, elab...)
	return &Compilation{Root: root, Trees: trees, Sources: sm, diagnostics: diags}
}

// Diagnostics returns every diagnostic of the pass.
func (c *Compilation) Diagnostics() []Diagnostic {
	return c.diagnostics
}

// Frontend parses buffers and elaborates trees. Implementations must allow
// concurrent Parse calls sharing one SourceManager.
type Frontend interface {
	Parse(sm *SourceManager, buf *Buffer) *SyntaxTree
	Elaborate(sm *SourceManager, trees []*SyntaxTree) *Compilation
}
