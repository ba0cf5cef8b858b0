// Package sv is a declaration-level SystemVerilog frontend. It
// preprocesses `include, `define and conditional compilation, parses the
// result with the tree-sitter SystemVerilog grammar, and elaborates enough
// of the design for symbol indexing: types with their dimensions, the
// instance hierarchy and the diagnostics for unresolved names. Procedural
// code is skipped.
package sv

import (
	"context"

	"github.com/jward/veriscope/internal/frontend"
)

// Frontend implements frontend.Frontend.
type Frontend struct{}

var _ frontend.Frontend = (*Frontend)(nil)

// New returns the built-in frontend.
func New() *Frontend {
	return &Frontend{}
}

// Parse preprocesses and parses one buffer. Syntax errors are reported
// for every ERROR node of the tree and every token the grammar had to
// insert; declarations outside the damaged region are still converted.
func (f *Frontend) Parse(sm *frontend.SourceManager, buf *frontend.Buffer) *frontend.SyntaxTree {
	toks, diags := preprocess(sm, buf)
	st := layout(toks)
	result := &frontend.SyntaxTree{Buffer: buf, Node: &sourceFile{}}

	tree, err := st.parse(context.Background())
	if err != nil {
		loc := frontend.Location{Buffer: buf.ID}
		result.Diagnostics = append(diags, frontend.Diagnostic{
			Code:     "SyntaxError",
			Severity: frontend.SeverityFatal,
			Message:  err.Error(),
			Location: loc,
			Ranges:   []frontend.Range{{Start: loc, End: loc}},
		})
		return result
	}
	defer tree.Close()

	root := tree.RootNode()
	c := newConverter(st)
	result.Node = c.file(root)
	result.Metadata = c.meta
	result.Diagnostics = append(diags, st.syntaxErrors(root)...)
	return result
}

// Elaborate builds the design from parsed trees. Trees of other frontends
// are ignored.
func (f *Frontend) Elaborate(sm *frontend.SourceManager, trees []*frontend.SyntaxTree) *frontend.Compilation {
	e := newElaborator(sm)
	root := e.run(trees)
	return frontend.NewCompilation(sm, trees, root, e.diags)
}
