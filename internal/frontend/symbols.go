package frontend

// Member is a node of the elaborated design hierarchy.
type Member interface {
	SymbolName() string
	Location() Location
}

// Root is the top of an elaborated design: every package, the $unit
// declarations and the top-level instances.
type Root struct {
	Members []Member
}

// PackageSymbol is an elaborated package.
type PackageSymbol struct {
	Name    string
	Loc     Location
	Members []Member
}

// DefinitionKind distinguishes the flavours of design element.
type DefinitionKind int

const (
	DefModule DefinitionKind = iota
	DefInterface
	DefProgram
)

func (k DefinitionKind) String() string {
	switch k {
	case DefInterface:
		return "interface"
	case DefProgram:
		return "program"
	default:
		return "module"
	}
}

// Definition is the elaborated body of a module, interface or program.
// All instances of a definition share one body.
type Definition struct {
	Name      string
	Kind      DefinitionKind
	Loc       Location
	IsLibrary bool
	Members   []Member
}

// InstanceSymbol is one instantiation of a Definition.
type InstanceSymbol struct {
	Name       string
	Loc        Location
	Definition *Definition
}

// ClassSymbol is a class declaration. Type is the class type; its Members
// are the class properties.
type ClassSymbol struct {
	Name    string
	Loc     Location
	Scope   string
	Type    *Type
	Members []Member
}

// ValueKind tells what declared a ValueSymbol.
type ValueKind int

const (
	ValueVariable ValueKind = iota
	ValueNet
	ValueParameter
	ValuePort
	ValueProperty
)

// ValueSymbol is any declared value: variable, net, port, parameter or
// class property. Scope names the declaring definition, package or class
// and is empty in $unit.
type ValueSymbol struct {
	Name  string
	Loc   Location
	Type  *Type
	Scope string
	Kind  ValueKind
}

// TypeAliasSymbol is a typedef.
type TypeAliasSymbol struct {
	Name  string
	Loc   Location
	Scope string
	Type  *Type
}

func (s *PackageSymbol) SymbolName() string { return s.Name }
func (s *PackageSymbol) Location() Location { return s.Loc }
func (s *InstanceSymbol) SymbolName() string { return s.Name }
func (s *InstanceSymbol) Location() Location { return s.Loc }
func (s *ClassSymbol) SymbolName() string { return s.Name }
func (s *ClassSymbol) Location() Location { return s.Loc }
func (s *ValueSymbol) SymbolName() string { return s.Name }
func (s *ValueSymbol) Location() Location { return s.Loc }
func (s *TypeAliasSymbol) SymbolName() string { return s.Name }
func (s *TypeAliasSymbol) Location() Location { return s.Loc }

// VisitFunc is called for each member reached by Walk. Returning false
// skips the member's children.
type VisitFunc func(m Member) bool

// Walk visits the design depth first. Instance bodies are entered once
// per Definition no matter how many instances share it.
func Walk(root *Root, fn VisitFunc) {
	if root == nil {
		return
	}
	w := walker{fn: fn, seen: make(map[*Definition]bool)}
	w.members(root.Members)
}

type walker struct {
	fn   VisitFunc
	seen map[*Definition]bool
}

func (w *walker) members(ms []Member) {
	for _, m := range ms {
		if !w.fn(m) {
			continue
		}
		switch s := m.(type) {
		case *PackageSymbol:
			w.members(s.Members)
		case *ClassSymbol:
			w.members(s.Members)
		case *InstanceSymbol:
			if s.Definition == nil || w.seen[s.Definition] {
				continue
			}
			w.seen[s.Definition] = true
			w.members(s.Definition.Members)
		}
	}
}
