package sv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alexaandru/go-sitter-forest/systemverilog"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/veriscope/internal/frontend"
)

var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

func language() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = sitter.NewLanguage(systemverilog.GetLanguage())
	})
	return grammar
}

// stream is the preprocessed token sequence laid out as text for the
// grammar. Tokens that were adjacent in their buffer stay adjacent, all
// others are separated by one space, so every node of the tree maps back to
// a run of tokens and through them to buffer locations.
type stream struct {
	toks   []token
	starts []int
	text   []byte
	eof    frontend.Location
}

func layout(toks []token) *stream {
	s := &stream{}
	for _, t := range toks {
		if t.kind == tokEOF {
			s.eof = t.loc
			continue
		}
		if n := len(s.toks); n > 0 && s.toks[n-1].end() != t.loc {
			s.text = append(s.text, ' ')
		}
		s.starts = append(s.starts, len(s.text))
		s.text = append(s.text, t.text...)
		s.toks = append(s.toks, t)
	}
	return s
}

// span returns the token index range [lo, hi) covered by n.
func (s *stream) span(n *sitter.Node) (int, int) {
	lo := sort.SearchInts(s.starts, int(n.StartByte()))
	hi := sort.SearchInts(s.starts, int(n.EndByte()))
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// before returns the location just past the last token ending at or before
// byte offset b.
func (s *stream) before(b uint32) frontend.Location {
	i := sort.SearchInts(s.starts, int(b))
	if i > 0 {
		return s.toks[i-1].end()
	}
	if len(s.toks) > 0 {
		return s.toks[0].loc
	}
	return s.eof
}

// parse runs the grammar over the laid out text. The caller closes the
// returned tree.
func (s *stream) parse(ctx context.Context) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language())

	tree, err := parser.ParseCtx(ctx, nil, s.text)
	if err != nil {
		return nil, fmt.Errorf("sv: parse: %w", err)
	}
	return tree, nil
}

// syntaxErrors reports one diagnostic per ERROR node and per token the
// grammar had to insert.
func (s *stream) syntaxErrors(root *sitter.Node) []frontend.Diagnostic {
	var out []frontend.Diagnostic
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			loc := s.before(n.StartByte())
			out = append(out, frontend.Diagnostic{
				Code:     "SyntaxError",
				Severity: frontend.SeverityError,
				Message:  fmt.Sprintf("expected %s", describeNode(n)),
				Location: loc,
				Ranges:   []frontend.Range{{Start: loc, End: loc}},
			})
			return
		case n.Type() == "ERROR":
			out = append(out, s.unexpected(n))
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return out
}

func (s *stream) unexpected(n *sitter.Node) frontend.Diagnostic {
	lo, hi := s.span(n)
	if lo >= hi {
		loc := s.before(n.StartByte())
		return frontend.Diagnostic{
			Code:     "SyntaxError",
			Severity: frontend.SeverityError,
			Message:  "unexpected end of file",
			Location: loc,
			Ranges:   []frontend.Range{{Start: loc, End: loc}},
		}
	}
	first, last := s.toks[lo], s.toks[hi-1]
	r := first.span()
	if last.loc.Buffer == first.loc.Buffer && last.loc.Offset >= first.loc.Offset {
		r.End = last.end()
	}
	return frontend.Diagnostic{
		Code:     "SyntaxError",
		Severity: frontend.SeverityError,
		Message:  fmt.Sprintf("unexpected '%s'", first.text),
		Location: first.loc,
		Ranges:   []frontend.Range{r},
	}
}

func describeNode(n *sitter.Node) string {
	if n.IsNamed() {
		return strings.ReplaceAll(n.Type(), "_", " ")
	}
	return fmt.Sprintf("'%s'", n.Type())
}

// packageRefs lists every name used as the left side of a scope resolution
// operator, in source order. Names inside ERROR nodes count too.
func (s *stream) packageRefs(root *sitter.Node) []token {
	var out []token
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.ChildCount() > 0 {
			for i := 0; i < int(n.ChildCount()); i++ {
				visit(n.Child(i))
			}
			return
		}
		lo, hi := s.span(n)
		for j := lo; j < hi; j++ {
			t := s.toks[j]
			if !isIdent(t) || t.text == "std" || j+1 >= len(s.toks) || !s.toks[j+1].is("::") {
				continue
			}
			if j > 0 && s.toks[j-1].is("::") {
				continue
			}
			out = append(out, t)
		}
	}
	visit(root)
	return out
}
