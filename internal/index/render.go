package index

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/veriscope/internal/frontend"
)

// Dim is one rendered array dimension. Open dimensions (dynamic, queue,
// associative) have Fixed false.
type Dim struct {
	Fixed bool
	Left  int64
	Right int64
}

func (d Dim) String() string {
	if !d.Fixed {
		return "[]"
	}
	return fmt.Sprintf("[%d:%d]", d.Left, d.Right)
}

// RenderType returns the display name of a type. Named types render as
// their name. Anonymous arrays render as the element type followed by
// their dimensions, outermost first; the descent stops at the first named
// element type. Anonymous records render as "struct", "union" or "class".
// Anything else without a name renders as "".
func RenderType(t *frontend.Type) string {
	if t == nil {
		return ""
	}
	if t.Name != "" {
		return t.Name
	}
	if t.IsArray() {
		var dims []Dim
		cur := t
		for cur != nil && cur.Name == "" && cur.IsArray() {
			dims = append(dims, dimOf(cur))
			cur = cur.ElementType()
		}
		if cur == nil {
			return ""
		}
		var sb strings.Builder
		sb.WriteString(RenderType(cur))
		sb.WriteByte(' ')
		for _, d := range dims {
			sb.WriteString(d.String())
		}
		return sb.String()
	}
	switch {
	case t.IsStruct():
		return "struct"
	case t.IsUnion():
		return "union"
	case t.IsClass():
		return "class"
	}
	return ""
}

func dimOf(t *frontend.Type) Dim {
	if !t.IsFixedSize() {
		return Dim{}
	}
	left, right := t.FixedRange()
	return Dim{Fixed: true, Left: left, Right: right}
}

// ParseRendered splits a rendered type into its base name and dimensions.
// It accepts exactly what RenderType produces.
func ParseRendered(s string) (base string, dims []Dim, err error) {
	i := strings.Index(s, " [")
	if i < 0 {
		return s, nil, nil
	}
	base, rest := s[:i], s[i+1:]
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("index: rendered type %q: expected '['", s)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, fmt.Errorf("index: rendered type %q: unterminated dimension", s)
		}
		body := rest[1:end]
		rest = rest[end+1:]
		if body == "" {
			dims = append(dims, Dim{})
			continue
		}
		l, r, ok := strings.Cut(body, ":")
		if !ok {
			return "", nil, fmt.Errorf("index: rendered type %q: bad dimension %q", s, body)
		}
		left, err := strconv.ParseInt(l, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("index: rendered type %q: %w", s, err)
		}
		right, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("index: rendered type %q: %w", s, err)
		}
		dims = append(dims, Dim{Fixed: true, Left: left, Right: right})
	}
	return base, dims, nil
}

// stripArrays removes every array dimension, looking through aliases, and
// returns the base type with the number of dimensions removed.
func stripArrays(t *frontend.Type) (*frontend.Type, int) {
	levels := 0
	for t != nil && t.IsArray() {
		levels++
		t = t.ElementType()
	}
	return t, levels
}
