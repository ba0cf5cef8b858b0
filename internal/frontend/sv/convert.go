package sv

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/veriscope/internal/frontend"
)

// Items starting with one of these carry nothing the index records:
// procedural blocks, subroutines, assertions, generate constructs and the
// like. The grammar delimits them, so they are dropped whole.
var skippedHeads = toSet(
	"always", "always_comb", "always_ff", "always_latch", "initial", "final",
	"assign", "deassign", "force", "release", "function", "task",
	"assert", "assume", "cover", "restrict", "expect", "property", "sequence",
	"covergroup", "constraint", "clocking", "modport", "specify", "specparam",
	"genvar", "defparam", "bind", "alias", "let", "export", "extern", "pure",
	"timeunit", "timeprecision", "nettype", "config", "primitive", "checker", "table",
	"begin", "fork", "if", "else", "case", "casex", "casez", "randcase",
	"for", "foreach", "while", "repeat", "forever", "do", "unique", "unique0", "priority",
	"default", "global", "disable", "wait", "return", "break", "continue",
	"and", "or", "nand", "nor", "xor", "xnor", "not", "buf", "bufif0", "bufif1",
	"notif0", "notif1", "pullup", "pulldown", "cmos", "rcmos", "nmos", "pmos",
	"rnmos", "rpmos", "tran", "tranif0", "tranif1", "rtran", "rtranif0", "rtranif1",
)

type unitKind int

const (
	unitNone unitKind = iota
	unitDesign
	unitPackage
	unitClass
)

// converter turns the syntax tree of one preprocessed buffer into the
// declaration-level items the elaborator consumes, and collects the
// metadata dependency resolution needs along the way.
type converter struct {
	st   *stream
	meta frontend.Metadata
	seen map[string]map[string]bool
}

func newConverter(st *stream) *converter {
	return &converter{st: st, seen: make(map[string]map[string]bool)}
}

func (c *converter) note(list *[]string, key, name string) {
	if name == "" {
		return
	}
	if c.seen[key] == nil {
		c.seen[key] = make(map[string]bool)
	}
	if c.seen[key][name] {
		return
	}
	c.seen[key][name] = true
	*list = append(*list, name)
}

func (c *converter) file(root *sitter.Node) *sourceFile {
	for _, t := range c.st.packageRefs(root) {
		c.note(&c.meta.ClassPackageNames, "pkgref", t.text)
	}
	f := &sourceFile{items: c.children(root, 0)}
	for _, it := range f.items {
		switch d := it.(type) {
		case *designDecl:
			c.note(&c.meta.Declared, "decl", d.name.text)
		case *packageDecl:
			c.note(&c.meta.Declared, "decl", d.name.text)
		case *classDecl:
			c.note(&c.meta.Declared, "decl", d.name.text)
		}
	}
	return f
}

// children converts the children of n that start at or after token index
// from. A child straddling from is descended into.
func (c *converter) children(n *sitter.Node, from int) []item {
	var out []item
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		lo, hi := c.st.span(child)
		switch {
		case lo >= hi || hi <= from:
		case lo < from:
			out = append(out, c.children(child, from)...)
		default:
			out = append(out, c.node(child)...)
		}
	}
	return out
}

// node converts the outermost node that holds a whole design element or
// item. Nodes that hold several items, or only part of one, are descended
// into.
func (c *converter) node(n *sitter.Node) []item {
	lo, hi := c.st.span(n)
	skip := attributeLen(c.st.toks[lo:hi])
	toks := c.st.toks[lo+skip : hi]
	if len(toks) == 0 {
		return nil
	}

	if kind := unitOf(toks); kind != unitNone {
		return c.unit(n, lo+skip, kind)
	}
	if n.Type() == "ERROR" {
		return c.children(n, lo)
	}
	if skipped(toks) {
		return nil
	}
	if toks[0].is("generate") {
		return c.children(n, lo+skip+1)
	}
	switch semis := topLevelSemis(toks); {
	case semis == 1 && toks[len(toks)-1].is(";"):
		return c.item(toks[:len(toks)-1])
	case semis == 0 && hi < len(c.st.toks) && c.st.toks[hi].is(";"):
		return c.item(toks)
	}
	return c.children(n, lo)
}

func unitOf(toks []token) unitKind {
	head := toks[0]
	var next token
	if len(toks) > 1 {
		next = toks[1]
	}
	switch {
	case head.is("module") || head.is("macromodule") || head.is("program"):
		return unitDesign
	case head.is("interface"):
		if next.is("class") {
			return unitClass
		}
		return unitDesign
	case head.is("package"):
		return unitPackage
	case head.is("class"), head.is("virtual") && next.is("class"):
		return unitClass
	}
	return unitNone
}

func skipped(toks []token) bool {
	head := toks[0]
	switch head.kind {
	case tokSystemIdent:
		return true // elaboration tasks such as $error
	case tokOp:
		return head.is("@") || head.is("#") || head.is("##")
	}
	if skippedHeads[head.text] {
		return true
	}
	// Labeled statements and assertions.
	if isIdent(head) && len(toks) > 1 && toks[1].is(":") {
		return true
	}
	// Subroutines behind qualifiers.
	i := 0
	for i < len(toks) && toks[i].kind == tokIdent && (declQualifiers[toks[i].text] || toks[i].text == "virtual") {
		i++
	}
	return i > 0 && i < len(toks) && (toks[i].is("function") || toks[i].is("task") ||
		toks[i].is("constraint") || toks[i].is("covergroup"))
}

// attributeLen returns the number of tokens taken by leading (* ... *)
// attribute instances.
func attributeLen(toks []token) int {
	i := 0
	for i+1 < len(toks) && toks[i].is("(") && toks[i+1].is("*") && toks[i].end() == toks[i+1].loc {
		j := i + 2
		for j+1 < len(toks) && !(toks[j].is("*") && toks[j+1].is(")")) {
			j++
		}
		if j+1 >= len(toks) {
			return i
		}
		i = j + 2
	}
	return i
}

// topLevelSemis counts the semicolons outside any bracket group.
func topLevelSemis(toks []token) int {
	n, depth := 0, 0
	for _, t := range toks {
		switch {
		case isOpen(t):
			depth++
		case isClose(t):
			depth--
		case depth == 0 && t.is(";"):
			n++
		}
	}
	return n
}

// unit converts a module, interface, program, package or class whose first
// token is at index start. The header is read from the tokens, the body
// from the children of n that follow it.
func (c *converter) unit(n *sitter.Node, start int, kind unitKind) []item {
	_, hi := c.st.span(n)
	r := newReader(c.st.toks[start:hi])
	body := func() int { return start + r.pos }

	switch kind {
	case unitDesign:
		kw := r.next()
		def := frontend.DefModule
		switch kw.text {
		case "program":
			def = frontend.DefProgram
		case "interface":
			def = frontend.DefInterface
		}
		r.accept("automatic")
		r.accept("static")
		name, ok := r.ident()
		if !ok {
			return nil
		}
		d := &designDecl{kind: def, name: name}
		for r.accept("import") {
			if imp := r.importItems(); imp != nil {
				c.noteImports(imp)
				d.items = append(d.items, imp)
			}
			r.skipTo(";")
		}
		if r.peek().is("#") {
			d.params = r.paramPorts()
		}
		if r.peek().is("(") {
			d.ports = r.ports()
		}
		r.accept(";")
		d.items = append(d.items, c.children(n, body())...)
		return []item{d}

	case unitPackage:
		r.next()
		r.accept("automatic")
		r.accept("static")
		name, ok := r.ident()
		if !ok {
			return nil
		}
		r.accept(";")
		return []item{&packageDecl{name: name, items: c.children(n, body())}}
	}

	r.accept("virtual")
	r.accept("interface")
	r.next() // class
	r.accept("automatic")
	r.accept("static")
	name, ok := r.ident()
	if !ok {
		return nil
	}
	cd := &classDecl{name: name}
	if r.peek().is("#") {
		cd.items = append(cd.items, r.paramPorts()...)
	}
	if r.accept("extends") {
		if isIdent(r.peek()) {
			cd.extends = r.namedType()
		}
		if r.peek().is("(") {
			r.skipGroup()
		}
	}
	r.skipTo(";")
	cd.items = append(cd.items, c.children(n, body())...)
	return []item{cd}
}

func (c *converter) noteImports(imp *importDecl) {
	for _, it := range imp.items {
		c.note(&c.meta.PackageImports, "import", it.pkg.text)
	}
}

// item converts one declaration, given without its terminating ';'.
func (c *converter) item(toks []token) []item {
	r := newReader(toks)
	head := r.peek()
	switch {
	case head.is("import"):
		r.next()
		imp := r.importItems()
		if imp == nil {
			return nil
		}
		c.noteImports(imp)
		return []item{imp}
	case head.is("typedef"):
		r.next()
		if it := r.typedef(); it != nil {
			return []item{it}
		}
		return nil
	case head.is("parameter") || head.is("localparam"):
		r.next()
		return r.params(false)
	case head.is("input") || head.is("output") || head.is("inout") || head.is("ref"):
		r.next()
		return single(r.decl(frontend.ValuePort, true))
	case isIdent(head):
		it := r.userItem()
		if inst, ok := it.(*instDecl); ok && !inst.def.qualified() {
			c.note(&c.meta.Instances, "inst", inst.def.name.text)
		}
		return single(it)
	case head.kind == tokIdent || head.is("["):
		return single(r.decl(frontend.ValueVariable, false))
	}
	return nil
}

func single(it item) []item {
	if it == nil {
		return nil
	}
	return []item{it}
}
