package sv

import "github.com/jward/veriscope/internal/frontend"

type sourceFile struct {
	items []item
}

type item interface{ itemNode() }

type designDecl struct {
	kind   frontend.DefinitionKind
	name   token
	params []item
	ports  []*dataDecl
	items  []item
}

type packageDecl struct {
	name  token
	items []item
}

type classDecl struct {
	name    token
	extends *typeExpr
	items   []item
}

type importDecl struct {
	items []importItem
}

type importItem struct {
	pkg  token
	name token // "*" for wildcard imports
}

type typedefDecl struct {
	name    token
	typ     *typeExpr
	dims    []*dimExpr
	forward bool
}

type dataDecl struct {
	kind  frontend.ValueKind
	typ   *typeExpr
	decls []*declarator
}

type declarator struct {
	name token
	dims []*dimExpr
	init []token
}

type instDecl struct {
	def   *typeExpr
	insts []*declarator
}

func (*designDecl) itemNode() {}
func (*packageDecl) itemNode() {}
func (*classDecl) itemNode() {}
func (*importDecl) itemNode() {}
func (*typedefDecl) itemNode() {}
func (*dataDecl) itemNode() {}
func (*instDecl) itemNode() {}

type typeExprKind int

const (
	teImplicit typeExprKind = iota
	teBuiltin
	teNamed
	teStruct
	teUnion
	teEnum
	teVirtual
)

type typeExpr struct {
	kind   typeExprKind
	name   token // keyword for builtins, identifier for named types
	pkg    token // package qualifier of pkg::name, zero when absent
	packed bool
	signed bool

	members    []*dataDecl
	enumValues []token

	dims []*dimExpr // packed dimensions
}

func (t *typeExpr) qualified() bool { return t.pkg.text != "" }

type dimKind int

const (
	dimRange dimKind = iota
	dimSize
	dimDynamic
	dimQueue
	dimAssoc
)

type dimExpr struct {
	kind  dimKind
	open  token
	left  []token
	right []token
}
