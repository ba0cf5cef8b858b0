package frontend

// TypeKind classifies a Type.
type TypeKind int

const (
	TypeError TypeKind = iota
	TypeIntegral
	TypeFloating
	TypeString
	TypeOther
	TypeEnum
	TypeStruct
	TypeUnion
	TypeClass
	TypeVirtualInterface
	TypePackedArray
	TypeFixedArray
	TypeDynamicArray
	TypeQueue
	TypeAssocArray
	TypeAlias
)

var typeKindNames = [...]string{
	TypeError:            "error",
	TypeIntegral:         "integral",
	TypeFloating:         "floating",
	TypeString:           "string",
	TypeOther:            "other",
	TypeEnum:             "enum",
	TypeStruct:           "struct",
	TypeUnion:            "union",
	TypeClass:            "class",
	TypeVirtualInterface: "virtual interface",
	TypePackedArray:      "packed array",
	TypeFixedArray:       "fixed array",
	TypeDynamicArray:     "dynamic array",
	TypeQueue:            "queue",
	TypeAssocArray:       "associative array",
	TypeAlias:            "alias",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "unknown"
}

// Type is an elaborated data type. Class types may reference themselves
// through their fields, so consumers must not recurse through Fields
// without a visited set.
type Type struct {
	Kind TypeKind

	// Name is the intrinsic name: a built-in keyword, a typedef name or a
	// class name. Anonymous aggregates and arrays have no name.
	Name string

	// Target is the aliased type for TypeAlias.
	Target *Type

	// Elem and the range fields describe array types. Left and Right are
	// the declared bounds of fixed-size dimensions.
	Elem  *Type
	Left  int64
	Right int64

	// Members lists the fields of a struct, union or class. Base is the
	// class this class extends.
	Members []*Field
	Base    *Type

	Packed     bool
	Signed     bool
	EnumValues []string
}

// Field is one member of an aggregate type.
type Field struct {
	Name string
	Type *Type
	Loc  Location
}

// Canonical strips aliases.
func (t *Type) Canonical() *Type {
	for i := 0; t != nil && t.Kind == TypeAlias && i < 64; i++ {
		t = t.Target
	}
	return t
}

func (t *Type) is(kind TypeKind) bool {
	c := t.Canonical()
	return c != nil && c.Kind == kind
}

// IsArray reports whether the canonical type is any kind of array.
func (t *Type) IsArray() bool {
	c := t.Canonical()
	if c == nil {
		return false
	}
	switch c.Kind {
	case TypePackedArray, TypeFixedArray, TypeDynamicArray, TypeQueue, TypeAssocArray:
		return true
	}
	return false
}

// ElementType returns the element type of an array, or nil.
func (t *Type) ElementType() *Type {
	if !t.IsArray() {
		return nil
	}
	return t.Canonical().Elem
}

// IsFixedSize reports whether the canonical type is a packed or fixed-size
// unpacked array.
func (t *Type) IsFixedSize() bool {
	c := t.Canonical()
	return c != nil && (c.Kind == TypePackedArray || c.Kind == TypeFixedArray)
}

// FixedRange returns the declared bounds of a fixed-size array.
func (t *Type) FixedRange() (left, right int64) {
	c := t.Canonical()
	return c.Left, c.Right
}

func (t *Type) IsStruct() bool { return t.is(TypeStruct) }
func (t *Type) IsUnion() bool { return t.is(TypeUnion) }
func (t *Type) IsClass() bool { return t.is(TypeClass) }
func (t *Type) IsEnum() bool { return t.is(TypeEnum) }
func (t *Type) IsVirtualInterface() bool { return t.is(TypeVirtualInterface) }
func (t *Type) IsError() bool { return t == nil || t.is(TypeError) }

// IsRecord reports whether the canonical type has named members.
func (t *Type) IsRecord() bool {
	return t.IsStruct() || t.IsUnion() || t.IsClass()
}

// Fields returns the members of a record type. Class fields include the
// inherited ones, base class first.
func (t *Type) Fields() []*Field {
	c := t.Canonical()
	if c == nil {
		return nil
	}
	if c.Kind != TypeClass || c.Base == nil {
		return c.Members
	}
	var chain []*Type
	seen := make(map[*Type]bool)
	for cur := c; cur != nil && !seen[cur]; cur = cur.Base.Canonical() {
		seen[cur] = true
		chain = append(chain, cur)
		if cur.Base == nil {
			break
		}
	}
	var out []*Field
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Members...)
	}
	return out
}
