package mir

import (
	"fmt"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/types"
)

// Lower translates a checked program into MIR. Lowering is total: it
// assumes the checker accepted the program and panics on malformed input
// rather than reporting diagnostics of its own.
func Lower(prog *ast.Program, info *types.Info) *Module {
	l := &lowerer{
		info:    info,
		module:  &Module{},
		fnDecls: make(map[string]bool),
		renames: make(map[string]int),
	}
	return l.run(prog)
}

// scope maps surface names to their unique MIR names. Lowering
// alpha-renames shadowed bindings so every local name inside a function is
// distinct.
type scope struct {
	parent *scope
	names  map[string]string
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]string)}
}

func (s *scope) lookup(name string) (string, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if unique, ok := sc.names[name]; ok {
			return unique, true
		}
	}
	return "", false
}

type lowerer struct {
	info    *types.Info
	module  *Module
	fnDecls map[string]bool
	scope   *scope

	// renames counts how often each base name has been bound in the
	// current function; temps share the counter space via the "_t" base.
	renames map[string]int
}

func (l *lowerer) run(prog *ast.Program) *Module {
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			l.lowerStructDecl(d)
		case *ast.EnumDecl:
			l.lowerEnumDecl(d)
		case *ast.FnDecl:
			l.fnDecls[d.Name.Name] = true
		}
	}

	for _, decl := range prog.Decls {
		if fn, ok := decl.(*ast.FnDecl); ok {
			l.module.Functions = append(l.module.Functions, l.lowerFnDecl(fn))
		}
	}

	l.module.Main = l.lowerMain(prog.Stmts)
	return l.module
}

func (l *lowerer) lowerStructDecl(d *ast.StructDecl) {
	def := &StructDef{Name: d.Name.Name}
	st, _ := l.info.Named(d.Name.Name)
	if s, ok := st.(*types.Struct); ok {
		for _, f := range s.Fields {
			def.Fields = append(def.Fields, FieldDef{Name: f.Name, Type: l.lowerType(f.Type)})
		}
	}
	l.module.Structs = append(l.module.Structs, def)
}

func (l *lowerer) lowerEnumDecl(d *ast.EnumDecl) {
	def := &EnumDef{Name: d.Name.Name}
	en, _ := l.info.Named(d.Name.Name)
	if e, ok := en.(*types.Enum); ok {
		for _, v := range e.Variants {
			vd := VariantDef{Name: v.Name}
			for _, pt := range v.Payload {
				vd.Types = append(vd.Types, l.lowerType(pt))
			}
			def.Variants = append(def.Variants, vd)
		}
	}
	l.module.Enums = append(l.module.Enums, def)
}

func (l *lowerer) lowerFnDecl(fn *ast.FnDecl) *Function {
	l.renames = make(map[string]int)
	l.scope = newScope(nil)

	out := &Function{Name: fn.Name.Name}
	for _, p := range fn.Params {
		pt := l.nodeType(p.Name)
		if pt == Any {
			pt = l.annotatedType(p.Type)
		}
		out.Params = append(out.Params, Param{
			Name: l.bind(p.Name.Name),
			Type: pt,
		})
	}
	out.Return = l.returnType(fn)
	out.Body = l.lowerBlock(fn.Body)
	out.Body.Typ = out.Return

	l.scope = nil
	return out
}

func (l *lowerer) returnType(fn *ast.FnDecl) Type {
	if fn.ReturnType == nil {
		return Unit
	}
	return l.annotatedType(fn.ReturnType)
}

// lowerMain wraps the top-level statements as the entry function. The value
// of a trailing expression statement becomes the program result.
func (l *lowerer) lowerMain(stmts []ast.Stmt) *Function {
	l.renames = make(map[string]int)
	l.scope = newScope(nil)

	body := &Block{Typ: Any}
	for i, stmt := range stmts {
		if i == len(stmts)-1 {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				tail := l.lowerExpr(es.Expr)
				body.Tail = tail
				body.Typ = tail.Type()
				break
			}
		}
		l.lowerStmt(stmt, &body.Stmts)
	}
	if body.Tail == nil {
		body.Typ = Unit
	}

	l.scope = nil
	return &Function{Name: "main", Return: body.Typ, Body: body}
}

// bind allocates the unique MIR name for a new binding of the surface name.
func (l *lowerer) bind(name string) string {
	n := l.renames[name]
	l.renames[name] = n + 1
	unique := name
	if n > 0 {
		unique = fmt.Sprintf("%s_%d", name, n)
	}
	l.scope.names[name] = unique
	return unique
}

// temp allocates a fresh helper local.
func (l *lowerer) temp() string {
	n := l.renames["_t"]
	l.renames["_t"] = n + 1
	return fmt.Sprintf("_t%d", n)
}

// nodeType looks up the checker's resolved type for a node.
func (l *lowerer) nodeType(node ast.Node) Type {
	t, ok := l.info.TypeOf(node)
	if !ok {
		return Any
	}
	return l.lowerType(t)
}

func (l *lowerer) annotatedType(te ast.TypeExpr) Type {
	switch t := te.(type) {
	case *ast.NamedType:
		switch t.Name.Name {
		case "Int":
			return Int
		case "Float":
			return Float
		case "Bool":
			return Bool
		case "Str":
			return Str
		case "Unit":
			return Unit
		}
		if named, ok := l.info.Named(t.Name.Name); ok {
			return l.lowerType(named)
		}
		return Any
	case *ast.ArrayType:
		return ArrayType(l.annotatedType(t.Elem))
	case *ast.FnType:
		ft := &FuncType{Ret: Unit}
		for _, p := range t.Params {
			ft.Params = append(ft.Params, l.annotatedType(p))
		}
		if t.Return != nil {
			ft.Ret = l.annotatedType(t.Return)
		}
		return ft
	default:
		return Any
	}
}

func (l *lowerer) lowerType(t types.Type) Type {
	switch tt := t.(type) {
	case *types.Primitive:
		switch tt.Kind {
		case types.Int:
			return Int
		case types.Float:
			return Float
		case types.Bool:
			return Bool
		case types.Str:
			return Str
		case types.Unit:
			return Unit
		}
		return Any
	case *types.Function:
		ft := &FuncType{Ret: Unit}
		for _, p := range tt.Params {
			ft.Params = append(ft.Params, l.lowerType(p))
		}
		if tt.Return != nil {
			ft.Ret = l.lowerType(tt.Return)
		}
		return ft
	case *types.Struct:
		return StructType(tt.Name)
	case *types.Enum:
		return EnumType(tt.Name)
	case *types.Array:
		return ArrayType(l.lowerType(tt.Elem))
	case *types.Named:
		if resolved, ok := l.info.Named(tt.Name); ok {
			return l.lowerType(resolved)
		}
		return Any
	default:
		// Unresolved type variable: the value is never inspected.
		return Any
	}
}

func (l *lowerer) lowerBlock(b *ast.BlockExpr) *Block {
	outer := l.scope
	l.scope = newScope(outer)

	out := &Block{Typ: l.nodeType(b)}
	for _, stmt := range b.Stmts {
		l.lowerStmt(stmt, &out.Stmts)
	}
	if b.Tail != nil {
		out.Tail = l.lowerExpr(b.Tail)
	}

	l.scope = outer
	return out
}

func (l *lowerer) lowerStmt(stmt ast.Stmt, out *[]Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		value := l.lowerExpr(s.Value)
		typ := l.nodeType(s.Name)
		*out = append(*out, &LocalDecl{
			Name:  l.bind(s.Name.Name),
			Value: value,
			Typ:   typ,
		})

	case *ast.ReturnStmt:
		var value Expr
		if s.Value != nil {
			value = l.lowerExpr(s.Value)
		}
		*out = append(*out, &Return{Value: value})

	case *ast.ExprStmt:
		if assign, ok := s.Expr.(*ast.AssignExpr); ok {
			*out = append(*out, l.lowerAssign(assign))
			return
		}
		*out = append(*out, &ExprStmt{Expr: l.lowerExpr(s.Expr)})

	case *ast.WhileStmt:
		cond := l.lowerExpr(s.Cond)
		*out = append(*out, &Loop{Cond: cond, Body: l.lowerBlock(s.Body)})

	case *ast.ForStmt:
		l.lowerForStmt(s, out)

	case *ast.BreakStmt:
		*out = append(*out, &Break{})

	case *ast.ContinueStmt:
		*out = append(*out, &Continue{})
	}
}

// lowerForStmt desugars both for-loop forms into a cursor loop. The range
// bound and the iterated array are each evaluated exactly once, before the
// loop runs.
func (l *lowerer) lowerForStmt(s *ast.ForStmt, out *[]Stmt) {
	outer := l.scope
	l.scope = newScope(outer)

	cursor := l.temp()

	if r, ok := s.Iter.(*ast.RangeExpr); ok {
		high := l.temp()
		*out = append(*out,
			&LocalDecl{Name: cursor, Value: l.lowerExpr(r.Low), Typ: Int},
			&LocalDecl{Name: high, Value: l.lowerExpr(r.High), Typ: Int},
		)

		body := &Block{Typ: Unit}
		body.Stmts = append(body.Stmts, &LocalDecl{
			Name:  l.bind(s.Var.Name),
			Value: &LocalGet{Name: cursor, Typ: Int},
			Typ:   Int,
		})
		l.appendBlockStmts(s.Body, body)

		*out = append(*out, &Loop{
			Cond: &Binary{Op: OpLt,
				L:   &LocalGet{Name: cursor, Typ: Int},
				R:   &LocalGet{Name: high, Typ: Int},
				Typ: Bool},
			Body: body,
			Post: []Stmt{incrStmt(cursor)},
		})

		l.scope = outer
		return
	}

	arr := l.temp()
	iter := l.lowerExpr(s.Iter)
	elemType := l.nodeType(s.Var)

	*out = append(*out,
		&LocalDecl{Name: arr, Value: iter, Typ: iter.Type()},
		&LocalDecl{Name: cursor, Value: &IntConst{Value: 0}, Typ: Int},
	)

	arrGet := &LocalGet{Name: arr, Typ: iter.Type()}

	body := &Block{Typ: Unit}
	body.Stmts = append(body.Stmts, &LocalDecl{
		Name: l.bind(s.Var.Name),
		Value: &IndexGet{
			Target: arrGet,
			Index:  &LocalGet{Name: cursor, Typ: Int},
			Typ:    elemType,
		},
		Typ: elemType,
	})
	l.appendBlockStmts(s.Body, body)

	*out = append(*out, &Loop{
		Cond: &Binary{Op: OpLt,
			L:   &LocalGet{Name: cursor, Typ: Int},
			R:   &ArrayLen{Target: arrGet},
			Typ: Bool},
		Body: body,
		Post: []Stmt{incrStmt(cursor)},
	})

	l.scope = outer
}

// appendBlockStmts lowers a loop body's statements and tail into an
// existing block that already holds the loop-variable binding.
func (l *lowerer) appendBlockStmts(b *ast.BlockExpr, into *Block) {
	for _, stmt := range b.Stmts {
		l.lowerStmt(stmt, &into.Stmts)
	}
	if b.Tail != nil {
		into.Stmts = append(into.Stmts, &ExprStmt{Expr: l.lowerExpr(b.Tail)})
	}
}

func incrStmt(name string) Stmt {
	return &LocalSet{
		Name: name,
		Value: &Binary{Op: OpAdd,
			L:   &LocalGet{Name: name, Typ: Int},
			R:   &IntConst{Value: 1},
			Typ: Int},
	}
}

func (l *lowerer) lowerAssign(e *ast.AssignExpr) Stmt {
	value := l.lowerExpr(e.Value)

	switch target := e.Target.(type) {
	case *ast.Ident:
		unique, ok := l.scope.lookup(target.Name)
		if !ok {
			panic("mir: assignment to unresolved local " + target.Name)
		}
		return &LocalSet{Name: unique, Value: value}

	case *ast.IndexExpr:
		return &SetIndex{
			Target: l.lowerExpr(target.Target),
			Index:  l.lowerExpr(target.Index),
			Value:  value,
		}

	case *ast.FieldExpr:
		_, index := l.fieldSlot(target)
		return &SetField{
			Target: l.lowerExpr(target.Target),
			Field:  target.Field.Name,
			Index:  index,
			Value:  value,
		}

	default:
		panic("mir: invalid assignment target survived checking")
	}
}

// fieldSlot resolves the struct name and positional index of a field
// access.
func (l *lowerer) fieldSlot(e *ast.FieldExpr) (string, int) {
	t, ok := l.info.TypeOf(e.Target)
	if !ok {
		panic("mir: untyped field access target")
	}
	st, ok := l.resolveStruct(t)
	if !ok {
		panic("mir: field access on non-struct survived checking")
	}
	def, ok := l.module.FindStruct(st.Name)
	if !ok {
		panic("mir: unknown struct " + st.Name)
	}
	return st.Name, def.FieldIndex(e.Field.Name)
}

func (l *lowerer) resolveStruct(t types.Type) (*types.Struct, bool) {
	if n, ok := t.(*types.Named); ok {
		resolved, found := l.info.Named(n.Name)
		if !found {
			return nil, false
		}
		t = resolved
	}
	st, ok := t.(*types.Struct)
	return st, ok
}
