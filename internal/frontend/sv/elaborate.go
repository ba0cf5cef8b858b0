package sv

import (
	"fmt"

	"github.com/jward/veriscope/internal/frontend"
)

type scope struct {
	name    string
	parent  *scope
	isClass bool

	typedefs  map[string]*typedefDecl
	types     map[string]*frontend.Type
	resolving map[string]bool
	classes   map[string]*classEntry

	params     map[string]*declarator
	values     map[string]int64
	evaluating map[string]bool

	imports []importItem
}

func newScope(name string, parent *scope) *scope {
	return &scope{
		name:       name,
		parent:     parent,
		typedefs:   make(map[string]*typedefDecl),
		types:      make(map[string]*frontend.Type),
		resolving:  make(map[string]bool),
		classes:    make(map[string]*classEntry),
		params:     make(map[string]*declarator),
		values:     make(map[string]int64),
		evaluating: make(map[string]bool),
	}
}

type classEntry struct {
	decl *classDecl
	typ  *frontend.Type
	sym  *frontend.ClassSymbol
}

type defEntry struct {
	decl      *designDecl
	isLibrary bool
	def       *frontend.Definition
}

type pkgEntry struct {
	decl  *packageDecl
	scope *scope
	sym   *frontend.PackageSymbol
}

type elaborator struct {
	sm    *frontend.SourceManager
	diags []frontend.Diagnostic
	seen  map[string]bool

	defs     map[string]*defEntry
	defOrder []*defEntry
	pkgs     map[string]*pkgEntry
	pkgOrder []*pkgEntry
	unit     *scope
}

func newElaborator(sm *frontend.SourceManager) *elaborator {
	return &elaborator{
		sm:   sm,
		seen: make(map[string]bool),
		defs: make(map[string]*defEntry),
		pkgs: make(map[string]*pkgEntry),
		unit: newScope("", nil),
	}
}

func (e *elaborator) report(sev frontend.Severity, code string, tok token, format string, args ...any) {
	key := fmt.Sprintf("%s@%d:%d", code, tok.loc.Buffer, tok.loc.Offset)
	if e.seen[key] {
		return
	}
	e.seen[key] = true
	e.diags = append(e.diags, frontend.Diagnostic{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Location: tok.loc,
		Ranges:   []frontend.Range{tok.span()},
	})
}

func (e *elaborator) run(trees []*frontend.SyntaxTree) *frontend.Root {
	var unitItems []item
	instantiated := make(map[string]bool)

	for _, tree := range trees {
		file, ok := tree.Node.(*sourceFile)
		if !ok {
			continue
		}
		for _, it := range file.items {
			switch d := it.(type) {
			case *designDecl:
				e.registerDesign(d, tree.IsLibrary, instantiated)
			case *packageDecl:
				if prev, ok := e.pkgs[d.name.text]; ok {
					e.duplicate(d.name, prev.decl.name)
					continue
				}
				entry := &pkgEntry{decl: d}
				e.pkgs[d.name.text] = entry
				e.pkgOrder = append(e.pkgOrder, entry)
			default:
				unitItems = append(unitItems, it)
			}
		}
	}

	root := &frontend.Root{}
	e.declare(e.unit, unitItems)
	for _, entry := range e.pkgOrder {
		root.Members = append(root.Members, e.elabPackage(entry))
	}
	root.Members = append(root.Members, e.members(e.unit, unitItems)...)
	for _, entry := range e.defOrder {
		if entry.isLibrary || instantiated[entry.decl.name.text] {
			continue
		}
		def := e.elabDefinition(entry)
		root.Members = append(root.Members, &frontend.InstanceSymbol{
			Name:       def.Name,
			Loc:        def.Loc,
			Definition: def,
		})
	}
	return root
}

func (e *elaborator) registerDesign(d *designDecl, isLibrary bool, instantiated map[string]bool) {
	if prev, ok := e.defs[d.name.text]; ok {
		e.duplicate(d.name, prev.decl.name)
	} else {
		entry := &defEntry{decl: d, isLibrary: isLibrary}
		e.defs[d.name.text] = entry
		e.defOrder = append(e.defOrder, entry)
	}
	for _, it := range d.items {
		switch n := it.(type) {
		case *instDecl:
			if !n.def.qualified() {
				instantiated[n.def.name.text] = true
			}
		case *designDecl:
			e.registerDesign(n, isLibrary, instantiated)
		}
	}
}

func (e *elaborator) duplicate(name, prev token) {
	e.report(frontend.SeverityError, "DuplicateDefinition", name, "duplicate definition of '%s'", name.text)
	e.report(frontend.SeverityNote, "NotePreviousDefinition", prev, "previous definition here")
}

// declare registers the names a scope introduces before any of them is
// resolved, so declaration order does not matter for lookups.
func (e *elaborator) declare(s *scope, items []item) {
	for _, it := range items {
		switch d := it.(type) {
		case *typedefDecl:
			if !d.forward {
				s.typedefs[d.name.text] = d
			}
		case *classDecl:
			typ := &frontend.Type{Kind: frontend.TypeClass, Name: d.name.text}
			s.types[d.name.text] = typ
			s.classes[d.name.text] = &classEntry{decl: d, typ: typ}
		case *dataDecl:
			if d.kind != frontend.ValueParameter {
				continue
			}
			for _, decl := range d.decls {
				s.params[decl.name.text] = decl
			}
		case *importDecl:
			for _, imp := range d.items {
				if _, ok := e.pkgs[imp.pkg.text]; !ok {
					e.report(frontend.SeverityError, "UnknownPackage", imp.pkg, "unknown package '%s'", imp.pkg.text)
					continue
				}
				s.imports = append(s.imports, imp)
			}
		}
	}
}

func (e *elaborator) packageScope(entry *pkgEntry) *scope {
	if entry.scope == nil {
		entry.scope = newScope(entry.decl.name.text, e.unit)
		e.declare(entry.scope, entry.decl.items)
	}
	return entry.scope
}

func (e *elaborator) elabPackage(entry *pkgEntry) *frontend.PackageSymbol {
	if entry.sym != nil {
		return entry.sym
	}
	entry.sym = &frontend.PackageSymbol{Name: entry.decl.name.text, Loc: entry.decl.name.loc}
	s := e.packageScope(entry)
	entry.sym.Members = e.members(s, entry.decl.items)
	return entry.sym
}

func (e *elaborator) elabDefinition(entry *defEntry) *frontend.Definition {
	if entry.def != nil {
		return entry.def
	}
	d := entry.decl
	def := &frontend.Definition{
		Name:      d.name.text,
		Kind:      d.kind,
		Loc:       d.name.loc,
		IsLibrary: entry.isLibrary,
	}
	entry.def = def

	s := newScope(d.name.text, e.unit)
	e.declare(s, d.params)
	e.declare(s, d.items)
	def.Members = append(def.Members, e.members(s, d.params)...)
	for _, port := range d.ports {
		def.Members = append(def.Members, e.members(s, []item{port})...)
	}
	def.Members = append(def.Members, e.members(s, d.items)...)
	return def
}

func (e *elaborator) elabClass(s *scope, entry *classEntry) *frontend.ClassSymbol {
	if entry.sym != nil {
		return entry.sym
	}
	d := entry.decl
	entry.sym = &frontend.ClassSymbol{Name: d.name.text, Loc: d.name.loc, Scope: s.name, Type: entry.typ}
	if d.extends != nil {
		base := e.resolveType(s, d.extends)
		switch {
		case base.IsClass():
			entry.typ.Base = base.Canonical()
		case !base.IsError():
			e.report(frontend.SeverityError, "ExtendsNonClass", d.extends.name,
				"'%s' is not a class", d.extends.name.text)
		}
	}
	cs := newScope(d.name.text, s)
	cs.isClass = true
	e.declare(cs, d.items)
	entry.sym.Members = e.members(cs, d.items)
	for _, m := range entry.sym.Members {
		if v, ok := m.(*frontend.ValueSymbol); ok && v.Kind == frontend.ValueProperty {
			entry.typ.Members = append(entry.typ.Members, &frontend.Field{Name: v.Name, Type: v.Type, Loc: v.Loc})
		}
	}
	return entry.sym
}

func (e *elaborator) members(s *scope, items []item) []frontend.Member {
	var out []frontend.Member
	for _, it := range items {
		switch d := it.(type) {
		case *dataDecl:
			kind := d.kind
			if kind == frontend.ValueVariable && s.isClass {
				kind = frontend.ValueProperty
			}
			base := e.resolveDeclType(s, d)
			for _, decl := range d.decls {
				out = append(out, &frontend.ValueSymbol{
					Name:  decl.name.text,
					Loc:   decl.name.loc,
					Type:  e.wrapUnpacked(s, base, decl.dims),
					Scope: s.name,
					Kind:  kind,
				})
			}
		case *typedefDecl:
			if d.forward {
				continue
			}
			out = append(out, &frontend.TypeAliasSymbol{
				Name:  d.name.text,
				Loc:   d.name.loc,
				Scope: s.name,
				Type:  e.scopeType(s, d.name.text),
			})
		case *classDecl:
			if entry, ok := s.classes[d.name.text]; ok && entry.decl == d {
				out = append(out, e.elabClass(s, entry))
			}
		case *instDecl:
			entry, ok := e.defs[d.def.name.text]
			if !ok || d.def.qualified() {
				e.report(frontend.SeverityError, "UnknownModule", d.def.name, "unknown module '%s'", d.def.name.text)
				continue
			}
			def := e.elabDefinition(entry)
			for _, inst := range d.insts {
				out = append(out, &frontend.InstanceSymbol{Name: inst.name.text, Loc: inst.name.loc, Definition: def})
			}
		}
	}
	return out
}

func (e *elaborator) resolveDeclType(s *scope, d *dataDecl) *frontend.Type {
	if d.kind == frontend.ValueParameter && d.typ.kind == teImplicit && len(d.typ.dims) == 0 {
		return &frontend.Type{Kind: frontend.TypeIntegral, Name: "int", Signed: true}
	}
	return e.resolveType(s, d.typ)
}

func errorType(name string) *frontend.Type {
	return &frontend.Type{Kind: frontend.TypeError, Name: name}
}

// lookupType searches the scope chain, each scope's imports, and finally
// the interface definitions.
func (e *elaborator) lookupType(s *scope, name string) *frontend.Type {
	for cur := s; cur != nil; cur = cur.parent {
		if t := e.scopeType(cur, name); t != nil {
			return t
		}
		for _, imp := range cur.imports {
			if imp.name.text != "*" && imp.name.text != name {
				continue
			}
			if t := e.scopeType(e.packageScope(e.pkgs[imp.pkg.text]), name); t != nil {
				return t
			}
		}
	}
	if entry, ok := e.defs[name]; ok && entry.decl.kind == frontend.DefInterface {
		return &frontend.Type{Kind: frontend.TypeVirtualInterface, Name: name}
	}
	return nil
}

func (e *elaborator) scopeType(s *scope, name string) *frontend.Type {
	if t, ok := s.types[name]; ok {
		return t
	}
	td, ok := s.typedefs[name]
	if !ok {
		return nil
	}
	if s.resolving[name] {
		e.report(frontend.SeverityError, "RecursiveTypedef", td.name, "typedef '%s' refers to itself", name)
		return errorType(name)
	}
	s.resolving[name] = true
	target := e.wrapUnpacked(s, e.resolveType(s, td.typ), td.dims)
	delete(s.resolving, name)

	alias := &frontend.Type{Kind: frontend.TypeAlias, Name: name, Target: target}
	s.types[name] = alias
	return alias
}

func (e *elaborator) resolveType(s *scope, te *typeExpr) *frontend.Type {
	var base *frontend.Type
	switch te.kind {
	case teImplicit:
		base = &frontend.Type{Kind: frontend.TypeIntegral, Name: "logic", Signed: te.signed}
	case teBuiltin:
		base = builtinType(te.name.text, te.signed)
	case teNamed:
		base = e.resolveNamed(s, te)
	case teStruct, teUnion:
		base = e.resolveStruct(s, te)
	case teEnum:
		base = &frontend.Type{Kind: frontend.TypeEnum}
		for _, v := range te.enumValues {
			base.EnumValues = append(base.EnumValues, v.text)
		}
	case teVirtual:
		entry, ok := e.defs[te.name.text]
		if !ok || entry.decl.kind != frontend.DefInterface {
			e.report(frontend.SeverityError, "UnknownInterface", te.name, "unknown interface '%s'", te.name.text)
			base = errorType(te.name.text)
		} else {
			base = &frontend.Type{Kind: frontend.TypeVirtualInterface, Name: te.name.text}
		}
	default:
		base = errorType("")
	}
	return e.wrapPacked(s, base, te.dims)
}

func builtinType(name string, signed bool) *frontend.Type {
	switch {
	case integralTypes[name]:
		return &frontend.Type{Kind: frontend.TypeIntegral, Name: name, Signed: signed}
	case floatingTypes[name]:
		return &frontend.Type{Kind: frontend.TypeFloating, Name: name}
	case name == "string":
		return &frontend.Type{Kind: frontend.TypeString, Name: name}
	default:
		return &frontend.Type{Kind: frontend.TypeOther, Name: name}
	}
}

func (e *elaborator) resolveNamed(s *scope, te *typeExpr) *frontend.Type {
	if !te.qualified() {
		if t := e.lookupType(s, te.name.text); t != nil {
			return t
		}
		e.report(frontend.SeverityError, "UnknownType", te.name, "unknown type '%s'", te.name.text)
		return errorType(te.name.text)
	}

	entry, ok := e.pkgs[te.pkg.text]
	if !ok {
		if t := e.lookupType(s, te.pkg.text); t != nil && t.IsClass() {
			// Class-scoped type; member typedefs of classes are not modelled.
			return errorType(te.name.text)
		}
		e.report(frontend.SeverityError, "UnknownPackage", te.pkg, "unknown package '%s'", te.pkg.text)
		return errorType(te.name.text)
	}
	if t := e.scopeType(e.packageScope(entry), te.name.text); t != nil {
		return t
	}
	e.report(frontend.SeverityError, "UnknownPackageMember", te.name,
		"no type named '%s' in package '%s'", te.name.text, te.pkg.text)
	return errorType(te.name.text)
}

func (e *elaborator) resolveStruct(s *scope, te *typeExpr) *frontend.Type {
	t := &frontend.Type{Kind: frontend.TypeStruct, Packed: te.packed, Signed: te.signed}
	if te.kind == teUnion {
		t.Kind = frontend.TypeUnion
	}
	for _, m := range te.members {
		mt := e.resolveType(s, m.typ)
		for _, decl := range m.decls {
			t.Members = append(t.Members, &frontend.Field{
				Name: decl.name.text,
				Type: e.wrapUnpacked(s, mt, decl.dims),
				Loc:  decl.name.loc,
			})
		}
	}
	return t
}

// wrapPacked applies packed dimensions; the first declared dimension is
// the outermost.
func (e *elaborator) wrapPacked(s *scope, base *frontend.Type, dims []*dimExpr) *frontend.Type {
	for i := len(dims) - 1; i >= 0; i-- {
		left, right := e.bounds(s, dims[i])
		base = &frontend.Type{Kind: frontend.TypePackedArray, Elem: base, Left: left, Right: right}
	}
	return base
}

func (e *elaborator) wrapUnpacked(s *scope, base *frontend.Type, dims []*dimExpr) *frontend.Type {
	for i := len(dims) - 1; i >= 0; i-- {
		d := dims[i]
		switch d.kind {
		case dimDynamic:
			base = &frontend.Type{Kind: frontend.TypeDynamicArray, Elem: base}
		case dimQueue:
			base = &frontend.Type{Kind: frontend.TypeQueue, Elem: base}
		case dimAssoc:
			base = &frontend.Type{Kind: frontend.TypeAssocArray, Elem: base}
		default:
			left, right := e.bounds(s, d)
			base = &frontend.Type{Kind: frontend.TypeFixedArray, Elem: base, Left: left, Right: right}
		}
	}
	return base
}

func (e *elaborator) bounds(s *scope, d *dimExpr) (int64, int64) {
	switch d.kind {
	case dimRange:
		left, _ := e.eval(s, d.left)
		right, _ := e.eval(s, d.right)
		return left, right
	case dimSize:
		n, _ := e.eval(s, d.left)
		if d.right != nil {
			w, _ := e.eval(s, d.right)
			return n + w - 1, n
		}
		return 0, n - 1
	}
	return 0, 0
}
