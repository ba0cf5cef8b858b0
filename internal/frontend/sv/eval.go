package sv

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/jward/veriscope/internal/frontend"
)

// eval computes a constant integer expression in the context of s.
func (e *elaborator) eval(s *scope, toks []token) (int64, bool) {
	if len(toks) == 0 {
		return 0, false
	}
	ev := &evaluator{e: e, s: s, toks: toks}
	v, ok := ev.ternary()
	if !ok || ev.pos != len(toks) {
		return 0, false
	}
	return v, true
}

type evaluator struct {
	e    *elaborator
	s    *scope
	toks []token
	pos  int
}

func (ev *evaluator) peek() token {
	if ev.pos < len(ev.toks) {
		return ev.toks[ev.pos]
	}
	return token{kind: tokEOF}
}

var binaryPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6, "===": 6, "!==": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8, "<<<": 8, ">>>": 8,
	"+": 9, "-": 9, "*": 10, "/": 10, "%": 10, "**": 11,
}

func (ev *evaluator) ternary() (int64, bool) {
	cond, ok := ev.binary(1)
	if !ok {
		return 0, false
	}
	if !ev.peek().is("?") {
		return cond, true
	}
	ev.pos++
	a, ok := ev.ternary()
	if !ok || !ev.peek().is(":") {
		return 0, false
	}
	ev.pos++
	b, ok := ev.ternary()
	if !ok {
		return 0, false
	}
	if cond != 0 {
		return a, true
	}
	return b, true
}

func (ev *evaluator) binary(minPrec int) (int64, bool) {
	lhs, ok := ev.unary()
	if !ok {
		return 0, false
	}
	for {
		op := ev.peek()
		prec, isOp := binaryPrec[op.text]
		if op.kind != tokOp || !isOp || prec < minPrec {
			return lhs, true
		}
		ev.pos++
		next := prec + 1
		if op.text == "**" {
			next = prec
		}
		rhs, ok := ev.binary(next)
		if !ok {
			return 0, false
		}
		if lhs, ok = apply(op.text, lhs, rhs); !ok {
			return 0, false
		}
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func apply(op string, a, b int64) (int64, bool) {
	switch op {
	case "||":
		return boolInt(a != 0 || b != 0), true
	case "&&":
		return boolInt(a != 0 && b != 0), true
	case "|":
		return a | b, true
	case "^":
		return a ^ b, true
	case "&":
		return a & b, true
	case "==", "===":
		return boolInt(a == b), true
	case "!=", "!==":
		return boolInt(a != b), true
	case "<":
		return boolInt(a < b), true
	case "<=":
		return boolInt(a <= b), true
	case ">":
		return boolInt(a > b), true
	case ">=":
		return boolInt(a >= b), true
	case "<<", "<<<":
		return a << uint64(b&63), true
	case ">>", ">>>":
		return a >> uint64(b&63), true
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	case "/", "%":
		if b == 0 {
			return 0, false
		}
		if op == "/" {
			return a / b, true
		}
		return a % b, true
	case "**":
		r := int64(1)
		for i := int64(0); i < b && i < 64; i++ {
			r *= a
		}
		return r, true
	}
	return 0, false
}

func (ev *evaluator) unary() (int64, bool) {
	t := ev.peek()
	if t.kind == tokOp {
		switch t.text {
		case "-", "+", "~", "!":
			ev.pos++
			v, ok := ev.unary()
			if !ok {
				return 0, false
			}
			switch t.text {
			case "-":
				return -v, true
			case "~":
				return ^v, true
			case "!":
				return boolInt(v == 0), true
			}
			return v, true
		case "(":
			ev.pos++
			v, ok := ev.ternary()
			if !ok || !ev.peek().is(")") {
				return 0, false
			}
			ev.pos++
			return v, true
		}
	}
	return ev.primary()
}

func (ev *evaluator) primary() (int64, bool) {
	t := ev.peek()
	switch t.kind {
	case tokNumber:
		ev.pos++
		return parseNumber(t.text)
	case tokSystemIdent:
		ev.pos++
		if !ev.peek().is("(") {
			return 0, false
		}
		ev.pos++
		arg, ok := ev.ternary()
		if !ok || !ev.peek().is(")") {
			return 0, false
		}
		ev.pos++
		if t.text == "$clog2" {
			if arg <= 1 {
				return 0, true
			}
			return int64(bits.Len64(uint64(arg - 1))), true
		}
		return 0, false
	case tokIdent:
		ev.pos++
		if ev.peek().is("::") && ev.pos+1 < len(ev.toks) {
			ev.pos++
			name := ev.toks[ev.pos]
			ev.pos++
			entry, ok := ev.e.pkgs[t.text]
			if !ok {
				return 0, false
			}
			return ev.e.packageParam(entry, name)
		}
		return ev.e.lookupParam(ev.s, t)
	}
	return 0, false
}

// parseNumber handles decimal, sized and based literals. Unknown digits
// evaluate as zero.
func parseNumber(text string) (int64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	tick := strings.IndexByte(text, '\'')
	if tick < 0 {
		if dot := strings.IndexAny(text, ".eE"); dot >= 0 {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return 0, false
			}
			return int64(f), true
		}
		v, err := strconv.ParseInt(text, 10, 64)
		return v, err == nil
	}
	rest := text[tick+1:]
	if rest == "1" {
		return 1, true
	}
	if rest == "0" || rest == "x" || rest == "X" || rest == "z" || rest == "Z" {
		return 0, true
	}
	if len(rest) > 0 && (rest[0] == 's' || rest[0] == 'S') {
		rest = rest[1:]
	}
	if rest == "" {
		return 0, false
	}
	base := 10
	switch rest[0] {
	case 'b', 'B':
		base = 2
	case 'o', 'O':
		base = 8
	case 'h', 'H':
		base = 16
	}
	digits := strings.Map(func(r rune) rune {
		switch r {
		case 'x', 'X', 'z', 'Z', '?':
			return '0'
		case ' ', '\t':
			return -1
		}
		return r
	}, rest[1:])
	v, err := strconv.ParseUint(digits, base, 64)
	return int64(v), err == nil
}

// lookupParam resolves a parameter through the scope chain and imports.
// Undeclared names are reported once.
func (e *elaborator) lookupParam(s *scope, name token) (int64, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok, found := e.scopeParam(cur, name.text); found {
			return v, ok
		}
		for _, imp := range cur.imports {
			if imp.name.text != "*" && imp.name.text != name.text {
				continue
			}
			if v, ok, found := e.scopeParam(e.packageScope(e.pkgs[imp.pkg.text]), name.text); found {
				return v, ok
			}
		}
	}
	e.report(frontend.SeverityError, "UndeclaredIdentifier", name, "use of undeclared identifier '%s'", name.text)
	return 0, false
}

func (e *elaborator) packageParam(entry *pkgEntry, name token) (int64, bool) {
	v, ok, found := e.scopeParam(e.packageScope(entry), name.text)
	if !found {
		e.report(frontend.SeverityError, "UnknownPackageMember", name,
			"no member named '%s' in package '%s'", name.text, entry.decl.name.text)
	}
	return v, ok
}

func (e *elaborator) scopeParam(s *scope, name string) (value int64, ok, found bool) {
	if v, ok := s.values[name]; ok {
		return v, true, true
	}
	decl, exists := s.params[name]
	if !exists {
		return 0, false, false
	}
	if s.evaluating[name] {
		return 0, false, true
	}
	s.evaluating[name] = true
	v, ok := e.eval(s, decl.init)
	delete(s.evaluating, name)
	if ok {
		s.values[name] = v
	}
	return v, ok, true
}
