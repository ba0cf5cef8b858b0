package sv

import "github.com/jward/veriscope/internal/frontend"

var keywords = toSet(
	"accept_on", "alias", "always", "always_comb", "always_ff", "always_latch", "and", "assert",
	"assign", "assume", "automatic", "before", "begin", "bind", "bins", "binsof", "bit", "break",
	"buf", "bufif0", "bufif1", "byte", "case", "casex", "casez", "cell", "chandle", "checker",
	"class", "clocking", "cmos", "config", "const", "constraint", "context", "continue", "cover",
	"covergroup", "coverpoint", "cross", "deassign", "default", "defparam", "design", "disable",
	"dist", "do", "edge", "else", "end", "endcase", "endchecker", "endclass", "endclocking",
	"endconfig", "endfunction", "endgenerate", "endgroup", "endinterface", "endmodule",
	"endpackage", "endprimitive", "endprogram", "endproperty", "endspecify", "endsequence",
	"endtable", "endtask", "enum", "event", "eventually", "expect", "export", "extends", "extern",
	"final", "first_match", "for", "force", "foreach", "forever", "fork", "forkjoin", "function",
	"generate", "genvar", "global", "highz0", "highz1", "if", "iff", "ifnone", "ignore_bins",
	"illegal_bins", "implements", "implies", "import", "incdir", "include", "initial", "inout",
	"input", "inside", "instance", "int", "integer", "interconnect", "interface", "intersect",
	"join", "join_any", "join_none", "large", "let", "liblist", "library", "local", "localparam",
	"logic", "longint", "macromodule", "matches", "medium", "modport", "module", "nand",
	"negedge", "nettype", "new", "nexttime", "nmos", "nor", "noshowcancelled", "not", "notif0",
	"notif1", "null", "or", "output", "package", "packed", "parameter", "pmos", "posedge",
	"primitive", "priority", "program", "property", "protected", "pull0", "pull1", "pulldown",
	"pullup", "pulsestyle_ondetect", "pulsestyle_onevent", "pure", "rand", "randc", "randcase",
	"randsequence", "rcmos", "real", "realtime", "ref", "reg", "reject_on", "release", "repeat",
	"restrict", "return", "rnmos", "rpmos", "rtran", "rtranif0", "rtranif1", "s_always",
	"s_eventually", "s_nexttime", "s_until", "s_until_with", "scalared", "sequence", "shortint",
	"shortreal", "showcancelled", "signed", "small", "soft", "solve", "specify", "specparam",
	"static", "string", "strong", "strong0", "strong1", "struct", "super", "supply0", "supply1",
	"sync_accept_on", "sync_reject_on", "table", "tagged", "task", "this", "throughout", "time",
	"timeprecision", "timeunit", "tran", "tranif0", "tranif1", "tri", "tri0", "tri1", "triand",
	"trior", "trireg", "type", "typedef", "union", "unique", "unique0", "unsigned", "until",
	"until_with", "untyped", "use", "uwire", "var", "vectored", "virtual", "void", "wait",
	"wait_order", "wand", "weak", "weak0", "weak1", "while", "wildcard", "wire", "with", "within",
	"wor", "xnor", "xor",
)

var integralTypes = toSet("logic", "bit", "reg", "int", "integer", "byte", "shortint", "longint", "time")
var floatingTypes = toSet("real", "shortreal", "realtime")
var otherTypes = toSet("string", "event", "chandle", "void")
var netTypes = toSet("wire", "tri", "wand", "wor", "triand", "trior", "tri0", "tri1", "trireg",
	"supply0", "supply1", "uwire", "interconnect")
var declQualifiers = toSet("const", "static", "automatic", "rand", "randc", "local", "protected",
	"var", "scalared", "vectored")

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func isIdent(t token) bool {
	return t.kind == tokIdent && !keywords[t.text]
}

func isBuiltinType(t token) bool {
	return t.kind == tokIdent && (integralTypes[t.text] || floatingTypes[t.text] || otherTypes[t.text])
}

func isOpen(t token) bool  { return t.is("(") || t.is("[") || t.is("{") || t.is("'{") }
func isClose(t token) bool { return t.is(")") || t.is("]") || t.is("}") }

// reader walks the tokens of one node of the syntax tree. Reads past the
// end yield an end-of-file token located after the last token.
type reader struct {
	toks []token
	pos  int
}

func newReader(toks []token) *reader {
	return &reader{toks: toks}
}

func (r *reader) peek() token { return r.peekAt(0) }

func (r *reader) peekAt(n int) token {
	if i := r.pos + n; i < len(r.toks) {
		return r.toks[i]
	}
	if len(r.toks) == 0 {
		return token{kind: tokEOF, loc: frontend.NoLocation}
	}
	return token{kind: tokEOF, loc: r.toks[len(r.toks)-1].end()}
}

func (r *reader) next() token {
	t := r.peek()
	if r.pos < len(r.toks) {
		r.pos++
	}
	return t
}

func (r *reader) atEnd() bool { return r.pos >= len(r.toks) }

func (r *reader) accept(text string) bool {
	if r.peek().is(text) {
		r.pos++
		return true
	}
	return false
}

func (r *reader) ident() (token, bool) {
	if t := r.peek(); isIdent(t) {
		r.pos++
		return t, true
	}
	return r.peek(), false
}

// skipGroup consumes a balanced bracket group starting at the cursor.
func (r *reader) skipGroup() {
	if !isOpen(r.peek()) {
		return
	}
	depth := 0
	for !r.atEnd() {
		t := r.next()
		switch {
		case isOpen(t):
			depth++
		case isClose(t):
			if depth--; depth == 0 {
				return
			}
		}
	}
}

// skipTo consumes tokens through closing at nesting depth zero.
func (r *reader) skipTo(closing string) {
	depth := 0
	for !r.atEnd() {
		t := r.next()
		switch {
		case isOpen(t):
			depth++
		case isClose(t):
			if depth == 0 && t.is(closing) {
				return
			}
			if depth--; depth < 0 {
				return
			}
		}
	}
}

// collect gathers the tokens of an expression up to one of the stop texts,
// a ';' or an unbalanced closing bracket. The stop token is not consumed.
func (r *reader) collect(stops ...string) []token {
	var out []token
	depth := 0
	for !r.atEnd() {
		t := r.peek()
		if depth == 0 {
			if t.is(";") {
				return out
			}
			for _, s := range stops {
				if t.is(s) {
					return out
				}
			}
		}
		switch {
		case isOpen(t):
			depth++
		case isClose(t):
			if depth == 0 {
				return out
			}
			depth--
		}
		out = append(out, r.next())
	}
	return out
}

// skipDelay drops a "#value" or "#(...)" that follows a net type or a
// definition name.
func (r *reader) skipDelay() {
	if !r.accept("#") {
		return
	}
	if isOpen(r.peek()) {
		r.skipGroup()
		return
	}
	r.next()
}

// dataType reads a data type, or returns nil when none starts here.
func (r *reader) dataType() *typeExpr {
	t := r.peek()
	switch {
	case t.is("struct") || t.is("union"):
		return r.structType()
	case t.is("enum"):
		return r.enumType()
	case t.is("virtual"):
		r.next()
		r.accept("interface")
		name, ok := r.ident()
		if !ok {
			return nil
		}
		r.skipDelay()
		if r.peek().is(".") && isIdent(r.peekAt(1)) {
			r.next()
			r.next()
		}
		return &typeExpr{kind: teVirtual, name: name}
	case t.is("type"):
		// type(expr) references resolve to logic.
		r.next()
		r.skipGroup()
		return &typeExpr{kind: teBuiltin, name: token{kind: tokIdent, text: "logic", loc: t.loc}}
	case isBuiltinType(t):
		r.next()
		te := &typeExpr{kind: teBuiltin, name: t}
		signedByDefault := t.text == "int" || t.text == "integer" || t.text == "byte" ||
			t.text == "shortint" || t.text == "longint"
		te.signed = r.signing(signedByDefault)
		te.dims = r.dims()
		return te
	case t.is("signed") || t.is("unsigned") || t.is("["):
		te := &typeExpr{kind: teImplicit}
		te.signed = r.signing(false)
		te.dims = r.dims()
		return te
	case isIdent(t):
		return r.namedType()
	}
	return nil
}

// namedType reads name, pkg::name and parameterized class names.
func (r *reader) namedType() *typeExpr {
	t := &typeExpr{kind: teNamed, name: r.next()}
	if r.peek().is("::") && isIdent(r.peekAt(1)) {
		r.next()
		t.pkg = t.name
		t.name = r.next()
	}
	r.skipDelay()
	for r.peek().is("::") && isIdent(r.peekAt(1)) {
		r.next()
		t.name = r.next()
	}
	t.dims = r.dims()
	return t
}

func (r *reader) signing(def bool) bool {
	switch {
	case r.accept("signed"):
		return true
	case r.accept("unsigned"):
		return false
	}
	return def
}

func (r *reader) structType() *typeExpr {
	kw := r.next()
	te := &typeExpr{kind: teStruct, name: kw}
	if kw.is("union") {
		te.kind = teUnion
		r.accept("tagged")
	}
	if r.accept("packed") {
		te.packed = true
		te.signed = r.signing(false)
	}
	if !r.accept("{") {
		return te
	}
	for !r.atEnd() && !r.peek().is("}") {
		start := r.pos
		for r.accept("rand") || r.accept("randc") {
		}
		typ := r.dataType()
		if typ == nil {
			r.skipTo("}")
			return te
		}
		if name, ok := r.ident(); ok {
			te.members = append(te.members, r.declarators(&dataDecl{kind: frontend.ValueVariable, typ: typ}, name))
		}
		r.skipTo(";")
		if r.pos == start {
			r.next()
		}
	}
	r.accept("}")
	te.dims = r.dims()
	return te
}

func (r *reader) enumType() *typeExpr {
	kw := r.next()
	te := &typeExpr{kind: teEnum, name: kw}
	if !r.peek().is("{") {
		r.dataType()
	}
	if !r.accept("{") {
		return te
	}
	for !r.atEnd() && !r.peek().is("}") {
		name, ok := r.ident()
		if !ok {
			r.skipTo("}")
			return te
		}
		te.enumValues = append(te.enumValues, name)
		r.dims()
		if r.accept("=") {
			r.collect(",", "}")
		}
		if !r.accept(",") {
			break
		}
	}
	r.accept("}")
	te.dims = r.dims()
	return te
}

func (r *reader) dims() []*dimExpr {
	var out []*dimExpr
	for r.peek().is("[") {
		out = append(out, r.dim())
	}
	return out
}

func (r *reader) dim() *dimExpr {
	d := &dimExpr{open: r.next()}
	switch {
	case r.accept("]"):
		d.kind = dimDynamic
		return d
	case r.peek().is("$"):
		d.kind = dimQueue
		r.skipTo("]")
		return d
	case (r.peek().is("*") || isBuiltinType(r.peek())) && r.peekAt(1).is("]"):
		r.next()
		r.next()
		d.kind = dimAssoc
		return d
	}
	d.left = r.collect(":", "+:", "-:")
	switch {
	case r.accept(":"):
		d.kind = dimRange
		d.right = r.collect()
	case r.accept("+:") || r.accept("-:"):
		d.kind = dimSize
		d.right = r.collect()
	default:
		d.kind = dimSize
	}
	r.accept("]")
	return d
}

// declarators reads "name [dims] [= init] {, name [dims] [= init]}" after
// the first name has been consumed.
func (r *reader) declarators(d *dataDecl, name token) *dataDecl {
	for {
		decl := &declarator{name: name, dims: r.dims()}
		if r.accept("=") {
			decl.init = r.collect(",")
		}
		d.decls = append(d.decls, decl)
		if !r.accept(",") {
			return d
		}
		var ok bool
		if name, ok = r.ident(); !ok {
			return d
		}
	}
}

// startsImplicitName reports whether the identifier at the cursor is a
// declared name rather than a type.
func (r *reader) startsImplicitName() bool {
	if !isIdent(r.peek()) {
		return false
	}
	n := r.peekAt(1)
	return n.is("=") || n.is(",") || n.is(")") || n.is(";") || n.kind == tokEOF ||
		(n.is("[") && !r.identIsType())
}

// identIsType reports whether the identifier at the cursor starts a type
// that is followed by a declared name.
func (r *reader) identIsType() bool {
	save := r.pos
	defer func() { r.pos = save }()
	r.namedType()
	return isIdent(r.peek())
}

// decl reads "[qualifiers] [net] [type] name [dims] [= init] {, ...}". When
// implicitOK is set the type may be omitted.
func (r *reader) decl(kind frontend.ValueKind, implicitOK bool) item {
	for {
		t := r.peek()
		if t.kind != tokIdent {
			break
		}
		if declQualifiers[t.text] {
			r.next()
			continue
		}
		if netTypes[t.text] {
			kind = frontend.ValueNet
			r.next()
			if r.peek().is("(") {
				r.skipGroup() // drive strength
			}
			implicitOK = true
			continue
		}
		break
	}
	r.skipDelay()

	var typ *typeExpr
	if implicitOK && r.startsImplicitName() {
		typ = &typeExpr{kind: teImplicit}
	} else {
		typ = r.dataType()
	}
	if typ == nil {
		return nil
	}
	name, ok := r.ident()
	if !ok {
		return nil
	}
	return r.declarators(&dataDecl{kind: kind, typ: typ}, name)
}

// userItem reads an item that starts with a user-defined name: a
// declaration of a user-typed value or an instantiation.
func (r *reader) userItem() item {
	start := r.pos
	typ := r.namedType()
	name, ok := r.ident()
	if !ok {
		return nil
	}
	dims := r.dims()
	if !r.peek().is("(") {
		r.pos = start
		r.namedType()
		r.next()
		return r.declarators(&dataDecl{kind: frontend.ValueVariable, typ: typ}, name)
	}

	inst := &instDecl{def: typ}
	for {
		inst.insts = append(inst.insts, &declarator{name: name, dims: dims})
		r.skipGroup()
		if !r.accept(",") {
			return inst
		}
		if name, ok = r.ident(); !ok {
			return inst
		}
		dims = r.dims()
	}
}

// importItems reads the package items after "import".
func (r *reader) importItems() *importDecl {
	if r.peek().kind == tokString {
		return nil // DPI import
	}
	imp := &importDecl{}
	for {
		pkg, ok := r.ident()
		if !ok || !r.accept("::") {
			break
		}
		name := r.peek()
		if !name.is("*") && !isIdent(name) {
			break
		}
		r.next()
		imp.items = append(imp.items, importItem{pkg: pkg, name: name})
		if !r.accept(",") {
			break
		}
	}
	if len(imp.items) == 0 {
		return nil
	}
	return imp
}

// typedef reads what follows "typedef".
func (r *reader) typedef() item {
	t := r.peek()
	switch {
	case (t.is("class") || t.is("struct") || t.is("union") || t.is("enum")) &&
		isIdent(r.peekAt(1)) && (r.peekAt(2).is(";") || r.peekAt(2).kind == tokEOF):
		r.next()
		return &typedefDecl{name: r.next(), forward: true}
	case t.is("interface") && r.peekAt(1).is("class"):
		r.next()
		r.next()
		if name, ok := r.ident(); ok {
			return &typedefDecl{name: name, forward: true}
		}
		return nil
	case isIdent(t) && (r.peekAt(1).is(";") || r.peekAt(1).kind == tokEOF):
		r.next()
		return &typedefDecl{name: t, forward: true}
	}

	typ := r.dataType()
	if typ == nil {
		return nil
	}
	name, ok := r.ident()
	if !ok {
		return nil
	}
	return &typedefDecl{name: name, typ: typ, dims: r.dims()}
}

// typeParam reads "T [= type]" after "parameter type".
func (r *reader) typeParam() *typedefDecl {
	name, ok := r.ident()
	if !ok {
		return nil
	}
	td := &typedefDecl{name: name}
	if r.accept("=") {
		td.typ = r.dataType()
	}
	if td.typ == nil {
		td.typ = &typeExpr{kind: teBuiltin, name: token{kind: tokIdent, text: "logic", loc: name.loc}}
	}
	r.collect(",", ")")
	return td
}

// params reads a parameter declaration after "parameter" or "localparam".
func (r *reader) params(inPortList bool) []item {
	var out []item
	if r.accept("type") {
		for {
			if td := r.typeParam(); td != nil {
				out = append(out, td)
			}
			if inPortList || !r.accept(",") {
				return out
			}
		}
	}
	if it := r.decl(frontend.ValueParameter, true); it != nil {
		out = append(out, it)
	}
	return out
}

// paramPorts reads a "#(...)" parameter port list; the cursor is on '#'.
func (r *reader) paramPorts() []item {
	r.next()
	if !r.peek().is("(") {
		r.next() // #8 style value
		return nil
	}
	r.next()
	var items []item
	var last *typeExpr
	for !r.atEnd() && !r.peek().is(")") {
		if r.accept("parameter") || r.accept("localparam") {
			last = nil
		}
		if r.accept("type") {
			if td := r.typeParam(); td != nil {
				items = append(items, td)
			}
		} else {
			typ := last
			if !r.startsImplicitName() {
				typ = r.dataType()
			}
			if typ == nil {
				typ = &typeExpr{kind: teImplicit}
			}
			last = typ
			name, ok := r.ident()
			if !ok {
				break
			}
			d := &declarator{name: name, dims: r.dims()}
			if r.accept("=") {
				d.init = r.collect(",")
			}
			items = append(items, &dataDecl{kind: frontend.ValueParameter, typ: typ, decls: []*declarator{d}})
		}
		if !r.accept(",") {
			break
		}
	}
	r.skipTo(")")
	return items
}

// ports reads an ANSI port list; the cursor is on '('. Non-ANSI lists of
// bare names are skipped, their declarations come later as items.
func (r *reader) ports() []*dataDecl {
	first, second := r.peekAt(1), r.peekAt(2)
	if (isIdent(first) && (second.is(",") || second.is(")"))) || first.is(".") {
		r.skipGroup()
		return nil
	}
	r.next()
	var ports []*dataDecl
	var last *typeExpr
	for !r.atEnd() && !r.peek().is(")") {
		newDir := false
		for {
			t := r.peek()
			if t.is("input") || t.is("output") || t.is("inout") || t.is("ref") {
				newDir = true
				r.next()
				continue
			}
			if t.kind == tokIdent && (t.text == "var" || netTypes[t.text]) {
				r.next()
				continue
			}
			break
		}

		var typ *typeExpr
		switch {
		case isIdent(r.peek()) && r.peekAt(1).is(".") && isIdent(r.peekAt(2)) && isIdent(r.peekAt(3)):
			// Interface port with a modport.
			iface := r.next()
			r.next()
			r.next()
			typ = &typeExpr{kind: teNamed, name: iface}
		case r.startsImplicitName():
			typ = last
			if newDir || last == nil {
				typ = &typeExpr{kind: teImplicit}
			}
		default:
			if typ = r.dataType(); typ == nil {
				r.skipTo(")")
				return ports
			}
		}
		last = typ
		name, ok := r.ident()
		if !ok {
			r.skipTo(")")
			return ports
		}
		d := &declarator{name: name, dims: r.dims()}
		if r.accept("=") {
			d.init = r.collect(",")
		}
		ports = append(ports, &dataDecl{kind: frontend.ValuePort, typ: typ, decls: []*declarator{d}})
		if !r.accept(",") {
			break
		}
	}
	r.skipTo(")")
	return ports
}
