package sv

import (
	"fmt"
	"strings"

	"github.com/jward/veriscope/internal/frontend"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokSystemIdent
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind tokenKind
	text string
	loc  frontend.Location
}

func (t token) is(text string) bool {
	return (t.kind == tokOp || t.kind == tokIdent) && t.text == text
}

func (t token) end() frontend.Location {
	return frontend.Location{Buffer: t.loc.Buffer, Offset: t.loc.Offset + len(t.text)}
}

func (t token) span() frontend.Range {
	return frontend.Range{Start: t.loc, End: t.end()}
}

const maxIncludeDepth = 32

type macro struct {
	body       []token
	functional bool
}

// preprocessor lexes a buffer and everything it includes into one token
// stream, expanding object-like macros.
type preprocessor struct {
	sm      *frontend.SourceManager
	macros  map[string]*macro
	diags   []frontend.Diagnostic
	out     []token
	active  []bool // `ifdef stack, true while emitting
	taken   []bool // whether any branch of the current `ifdef was taken
	depth   int
	reading map[frontend.BufferID]bool
}

func preprocess(sm *frontend.SourceManager, buf *frontend.Buffer) ([]token, []frontend.Diagnostic) {
	pp := &preprocessor{
		sm:      sm,
		macros:  make(map[string]*macro),
		reading: make(map[frontend.BufferID]bool),
	}
	pp.lexBuffer(buf)
	pp.out = append(pp.out, token{kind: tokEOF, loc: frontend.Location{Buffer: buf.ID, Offset: len(buf.Text)}})
	return pp.out, pp.diags
}

func (pp *preprocessor) emitting() bool {
	for _, a := range pp.active {
		if !a {
			return false
		}
	}
	return true
}

func (pp *preprocessor) errorf(code string, tok token, format string, args ...any) {
	pp.diags = append(pp.diags, frontend.Diagnostic{
		Code:     code,
		Severity: frontend.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: tok.loc,
		Ranges:   []frontend.Range{tok.span()},
	})
}

func (pp *preprocessor) lexBuffer(buf *frontend.Buffer) {
	if pp.reading[buf.ID] || pp.depth >= maxIncludeDepth {
		return
	}
	pp.reading[buf.ID] = true
	pp.depth++
	defer func() {
		pp.depth--
		delete(pp.reading, buf.ID)
	}()

	lx := &scanner{src: buf.Text, id: buf.ID}
	for {
		tok := lx.next()
		if tok.kind == tokEOF {
			return
		}
		if tok.kind == tokOp && strings.HasPrefix(tok.text, "`") {
			pp.directive(lx, tok)
			continue
		}
		if pp.emitting() {
			pp.out = append(pp.out, tok)
		}
	}
}

func (pp *preprocessor) directive(lx *scanner, tok token) {
	name := tok.text[1:]
	switch name {
	case "ifdef", "ifndef":
		arg := lx.next()
		_, defined := pp.macros[arg.text]
		cond := defined == (name == "ifdef")
		pp.active = append(pp.active, cond)
		pp.taken = append(pp.taken, cond)
		return
	case "elsif":
		arg := lx.next()
		if n := len(pp.active); n > 0 {
			_, defined := pp.macros[arg.text]
			cond := defined && !pp.taken[n-1]
			pp.active[n-1] = cond
			pp.taken[n-1] = pp.taken[n-1] || cond
		}
		return
	case "else":
		if n := len(pp.active); n > 0 {
			pp.active[n-1] = !pp.taken[n-1]
			pp.taken[n-1] = true
		}
		return
	case "endif":
		if n := len(pp.active); n > 0 {
			pp.active = pp.active[:n-1]
			pp.taken = pp.taken[:n-1]
		}
		return
	}

	if !pp.emitting() {
		if name == "define" || name == "undef" || name == "include" {
			lx.skipLine()
		}
		return
	}

	switch name {
	case "include":
		arg := lx.next()
		target := ""
		switch {
		case arg.kind == tokString:
			target = strings.Trim(arg.text, `"`)
		case arg.is("<"):
			target = lx.until('>')
		}
		if target == "" {
			pp.errorf("ExpectedIncludeFileName", arg, "expected include file name")
			return
		}
		inc, err := pp.sm.ResolveInclude(target, tok.loc.Buffer)
		if err != nil {
			pp.errorf("CouldNotOpenIncludeFile", arg, "could not find or open include file %q", target)
			return
		}
		pp.lexBuffer(inc)
	case "define":
		nameTok := lx.next()
		if nameTok.kind != tokIdent {
			lx.skipLine()
			return
		}
		m := &macro{}
		if lx.peekByte() == '(' {
			m.functional = true
		}
		for _, bt := range lx.restOfLine() {
			if bt.kind == tokOp && strings.HasPrefix(bt.text, "`") {
				if inner, ok := pp.macros[bt.text[1:]]; ok && !inner.functional {
					m.body = append(m.body, inner.body...)
				}
				continue
			}
			m.body = append(m.body, bt)
		}
		if m.functional {
			m.body = nil
		}
		pp.macros[nameTok.text] = m
	case "undef":
		delete(pp.macros, lx.next().text)
	case "timescale", "default_nettype", "pragma", "line", "celldefine",
		"endcelldefine", "resetall", "unconnected_drive", "nounconnected_drive",
		"begin_keywords", "end_keywords", "undefineall":
		lx.skipLine()
	case "__FILE__":
		pp.out = append(pp.out, token{kind: tokString, text: `"` + pp.sm.FileName(tok.loc) + `"`, loc: tok.loc})
	case "__LINE__":
		pp.out = append(pp.out, token{kind: tokNumber, text: fmt.Sprint(pp.sm.LineNumber(tok.loc)), loc: tok.loc})
	default:
		m, ok := pp.macros[name]
		if !ok {
			return
		}
		if m.functional {
			lx.skipArgs()
			return
		}
		pp.out = append(pp.out, m.body...)
	}
}

// scanner turns raw text into tokens without any preprocessing.
type scanner struct {
	src string
	pos int
	id  frontend.BufferID
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isBaseChar(c byte) bool {
	switch c {
	case 'b', 'B', 'o', 'O', 'd', 'D', 'h', 'H':
		return true
	}
	return false
}

func isNumberBody(c byte) bool {
	return isDigit(c) || c == '_' || c == '?' || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') ||
		c == 'x' || c == 'X' || c == 'z' || c == 'Z'
}

var multiOps = []string{
	"<<<=", ">>>=", "<<<", ">>>", "<->", "===", "!==", "==?", "!=?",
	"::", "+:", "-:", "<=", ">=", "==", "!=", "&&", "||", "**", "<<", ">>",
	"->", "'{", "##", "++", "--", "+=", "-=", "*=", "/=", ".*", "|->", "|=>",
}

func (s *scanner) peekByte() byte {
	if s.pos < len(s.src) {
		return s.src[s.pos]
	}
	return 0
}

func (s *scanner) skipSpace(stopAtNewline bool) {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\n' && stopAtNewline:
			return
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			s.pos++
		case c == '\\' && stopAtNewline && s.pos+1 < len(s.src) && (s.src[s.pos+1] == '\n' || s.src[s.pos+1] == '\r'):
			s.pos += 2
			if s.pos < len(s.src) && s.src[s.pos-1] == '\r' && s.src[s.pos] == '\n' {
				s.pos++
			}
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += end + 4
			}
		default:
			return
		}
	}
}

func (s *scanner) next() token {
	s.skipSpace(false)
	return s.scan()
}

func (s *scanner) scan() token {
	start := s.pos
	loc := frontend.Location{Buffer: s.id, Offset: start}
	if s.pos >= len(s.src) {
		return token{kind: tokEOF, loc: loc}
	}
	c := s.src[s.pos]
	mk := func(kind tokenKind) token {
		return token{kind: kind, text: s.src[start:s.pos], loc: loc}
	}

	switch {
	case isIdentStart(c):
		for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
			s.pos++
		}
		return mk(tokIdent)
	case c == '\\':
		s.pos++
		for s.pos < len(s.src) && !strings.ContainsRune(" \t\r\n\f\v", rune(s.src[s.pos])) {
			s.pos++
		}
		return mk(tokIdent)
	case c == '$':
		s.pos++
		if s.pos < len(s.src) && isIdentStart(s.src[s.pos]) {
			for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
				s.pos++
			}
			return mk(tokSystemIdent)
		}
		return mk(tokOp)
	case c == '`':
		s.pos++
		if s.pos < len(s.src) && s.src[s.pos] == '`' {
			s.pos++
			return mk(tokOp)
		}
		for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
			s.pos++
		}
		return mk(tokOp)
	case c == '"':
		s.pos++
		for s.pos < len(s.src) && s.src[s.pos] != '"' && s.src[s.pos] != '\n' {
			if s.src[s.pos] == '\\' {
				s.pos++
			}
			s.pos++
		}
		if s.pos < len(s.src) && s.src[s.pos] == '"' {
			s.pos++
		}
		if s.pos > len(s.src) {
			s.pos = len(s.src)
		}
		return mk(tokString)
	case isDigit(c):
		s.scanDecimal()
		if s.pos+1 < len(s.src) && s.src[s.pos] == '\'' && s.basedAhead(s.pos+1) {
			s.pos++
			s.scanBased()
		}
		return mk(tokNumber)
	case c == '\'':
		if s.basedAhead(s.pos + 1) {
			s.pos++
			s.scanBased()
			return mk(tokNumber)
		}
		if s.pos+1 < len(s.src) && strings.IndexByte("01xXzZ", s.src[s.pos+1]) >= 0 {
			s.pos += 2
			return mk(tokNumber)
		}
	}

	for _, op := range multiOps {
		if strings.HasPrefix(s.src[s.pos:], op) {
			s.pos += len(op)
			return mk(tokOp)
		}
	}
	s.pos++
	return mk(tokOp)
}

func (s *scanner) basedAhead(i int) bool {
	if i < len(s.src) && (s.src[i] == 's' || s.src[i] == 'S') {
		i++
	}
	return i < len(s.src) && isBaseChar(s.src[i])
}

func (s *scanner) scanDecimal() {
	for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
		s.pos++
	}
	if s.pos+1 < len(s.src) && s.src[s.pos] == '.' && isDigit(s.src[s.pos+1]) {
		s.pos++
		for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
			s.pos++
		}
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
		j := s.pos + 1
		if j < len(s.src) && (s.src[j] == '+' || s.src[j] == '-') {
			j++
		}
		if j < len(s.src) && isDigit(s.src[j]) {
			s.pos = j
			for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
				s.pos++
			}
		}
	}
}

// scanBased consumes the base specifier and digits after the tick.
func (s *scanner) scanBased() {
	if s.src[s.pos] == 's' || s.src[s.pos] == 'S' {
		s.pos++
	}
	s.pos++
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
	for s.pos < len(s.src) && isNumberBody(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		if s.src[s.pos] == '\\' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
			s.pos++
		}
		s.pos++
	}
}

// restOfLine lexes the remainder of a directive line, honouring line
// continuations.
func (s *scanner) restOfLine() []token {
	var toks []token
	for {
		s.skipSpace(true)
		if s.pos >= len(s.src) || s.src[s.pos] == '\n' {
			return toks
		}
		toks = append(toks, s.scan())
	}
}

func (s *scanner) until(c byte) string {
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] != c && s.src[s.pos] != '\n' {
		s.pos++
	}
	text := s.src[start:s.pos]
	if s.pos < len(s.src) && s.src[s.pos] == c {
		s.pos++
	}
	return strings.TrimSpace(text)
}

// skipArgs drops a parenthesised macro argument list.
func (s *scanner) skipArgs() {
	s.skipSpace(false)
	if s.peekByte() != '(' {
		return
	}
	depth := 0
	for {
		tok := s.next()
		switch {
		case tok.kind == tokEOF:
			return
		case tok.is("(") || tok.is("[") || tok.is("{") || tok.is("'{"):
			depth++
		case tok.is(")") || tok.is("]") || tok.is("}"):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}
