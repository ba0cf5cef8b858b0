package index

import "github.com/jward/veriscope/internal/frontend"

// Kind is the completion category of a symbol, a record member or a
// catalog entry.
type Kind int

const (
	KindVariable Kind = iota
	KindField
	KindEnum
	KindClass
	KindStruct
	KindInterface
	KindKeyword
	KindFunction
)

var kindNames = [...]string{
	KindVariable:  "variable",
	KindField:     "field",
	KindEnum:      "enum",
	KindClass:     "class",
	KindStruct:    "struct",
	KindInterface: "interface",
	KindKeyword:   "keyword",
	KindFunction:  "function",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindVariable, false
}

// kindOf classifies a declared type. Unions count as structs.
func kindOf(t *frontend.Type, member bool) Kind {
	switch {
	case t.IsEnum():
		return KindEnum
	case t.IsClass():
		return KindClass
	case t.IsStruct(), t.IsUnion():
		return KindStruct
	case t.IsVirtualInterface():
		return KindInterface
	case member:
		return KindField
	default:
		return KindVariable
	}
}
