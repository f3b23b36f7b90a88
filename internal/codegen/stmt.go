package codegen

import (
	goast "go/ast"
	"go/token"

	"github.com/rill-lang/rill/internal/mir"
)

func (g *Generator) genStmts(stmts []mir.Stmt) ([]goast.Stmt, error) {
	out := []goast.Stmt{}
	for _, s := range stmts {
		generated, err := g.genStmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, generated...)
	}
	return out, nil
}

func (g *Generator) genStmt(s mir.Stmt) ([]goast.Stmt, error) {
	switch s := s.(type) {
	case *mir.LocalDecl:
		return g.genLocalDecl(s)
	case *mir.LocalSet:
		want := toMirType(g.locals[s.Name])
		value, err := g.genConverted(s.Value, want)
		if err != nil {
			return nil, err
		}
		return []goast.Stmt{&goast.AssignStmt{
			Lhs: []goast.Expr{goast.NewIdent(localName(s.Name))},
			Tok: token.ASSIGN,
			Rhs: []goast.Expr{value},
		}}, nil
	case *mir.SetIndex:
		return g.genSetIndex(s)
	case *mir.SetField:
		return g.genSetField(s)
	case *mir.ExprStmt:
		return g.genEffect(s.Expr)
	case *mir.Loop:
		return g.genLoop(s)
	case *mir.Break:
		if g.loopDepth == 0 {
			return nil, unsupported("break outside a loop")
		}
		return []goast.Stmt{&goast.BranchStmt{Tok: token.BREAK}}, nil
	case *mir.Continue:
		if g.loopDepth == 0 {
			return nil, unsupported("continue outside a loop")
		}
		return []goast.Stmt{&goast.BranchStmt{Tok: token.CONTINUE}}, nil
	case *mir.Return:
		return g.genReturn(s)
	}
	return nil, unsupported("statement %T", s)
}

// genLocalDecl declares with an explicit type so untyped constants land on
// the lowered type, and blanks the variable so Go accepts bindings the
// program never reads.
func (g *Generator) genLocalDecl(s *mir.LocalDecl) ([]goast.Stmt, error) {
	typ := toMirType(s.Typ)
	g.locals[s.Name] = typ
	value, err := g.genConverted(s.Value, typ)
	if err != nil {
		return nil, err
	}
	name := goast.NewIdent(localName(s.Name))
	decl := &goast.DeclStmt{Decl: &goast.GenDecl{
		Tok: token.VAR,
		Specs: []goast.Spec{&goast.ValueSpec{
			Names:  []*goast.Ident{name},
			Type:   goType(typ),
			Values: []goast.Expr{value},
		}},
	}}
	use := &goast.AssignStmt{
		Lhs: []goast.Expr{goast.NewIdent("_")},
		Tok: token.ASSIGN,
		Rhs: []goast.Expr{goast.NewIdent(localName(s.Name))},
	}
	return []goast.Stmt{decl, use}, nil
}

func (g *Generator) genSetIndex(s *mir.SetIndex) ([]goast.Stmt, error) {
	arr, ok := s.Target.Type().(*mir.ArrayRef)
	if !ok {
		return nil, unsupported("index assignment through a value of unresolved type")
	}
	target, err := g.genOperand(s.Target)
	if err != nil {
		return nil, err
	}
	index, err := g.genOperand(s.Index)
	if err != nil {
		return nil, err
	}
	value, err := g.genConverted(s.Value, arr.Elem)
	if err != nil {
		return nil, err
	}
	return []goast.Stmt{&goast.ExprStmt{X: callExpr("rillSetIndex", target, index, value)}}, nil
}

func (g *Generator) genSetField(s *mir.SetField) ([]goast.Stmt, error) {
	ref, ok := s.Target.Type().(*mir.StructRef)
	if !ok {
		return nil, unsupported("field assignment through a value of unresolved type")
	}
	def, ok := g.module.FindStruct(ref.Name)
	if !ok {
		return nil, unsupported("struct %s", ref.Name)
	}
	target, err := g.genOperand(s.Target)
	if err != nil {
		return nil, err
	}
	value, err := g.genConverted(s.Value, def.Fields[s.Index].Type)
	if err != nil {
		return nil, err
	}
	return []goast.Stmt{&goast.AssignStmt{
		Lhs: []goast.Expr{&goast.SelectorExpr{X: target, Sel: goast.NewIdent(fieldName(s.Field))}},
		Tok: token.ASSIGN,
		Rhs: []goast.Expr{value},
	}}, nil
}

func (g *Generator) genLoop(s *mir.Loop) ([]goast.Stmt, error) {
	var cond goast.Expr
	if s.Cond != nil {
		var err error
		cond, err = g.genOperand(s.Cond)
		if err != nil {
			return nil, err
		}
	}
	g.loopDepth++
	defer func() { g.loopDepth-- }()
	body, err := g.genStmts(s.Body.Stmts)
	if err != nil {
		return nil, err
	}
	if s.Body.Tail != nil {
		tail, err := g.genEffect(s.Body.Tail)
		if err != nil {
			return nil, err
		}
		body = append(body, tail...)
	}
	var post goast.Stmt
	switch len(s.Post) {
	case 0:
	case 1:
		stmts, err := g.genStmt(s.Post[0])
		if err != nil {
			return nil, err
		}
		if len(stmts) != 1 {
			return nil, unsupported("compound loop post statement")
		}
		post = stmts[0]
	default:
		return nil, unsupported("loop with %d post statements", len(s.Post))
	}
	return []goast.Stmt{&goast.ForStmt{
		Cond: cond,
		Post: post,
		Body: &goast.BlockStmt{List: body},
	}}, nil
}

func (g *Generator) genReturn(s *mir.Return) ([]goast.Stmt, error) {
	ret := g.rets[len(g.rets)-1]
	if s.Value == nil {
		return []goast.Stmt{&goast.ReturnStmt{Results: []goast.Expr{unitLit()}}}, nil
	}
	value, err := g.genConverted(s.Value, ret)
	if err != nil {
		return nil, err
	}
	return []goast.Stmt{&goast.ReturnStmt{Results: []goast.Expr{value}}}, nil
}

// genEffect evaluates an expression for its side effects only. Block-like
// expressions become statements; calls run bare; pure values vanish into a
// blank assignment.
func (g *Generator) genEffect(e mir.Expr) ([]goast.Stmt, error) {
	switch e := e.(type) {
	case *mir.Block:
		stmts, err := g.genStmts(e.Stmts)
		if err != nil {
			return nil, err
		}
		if e.Tail != nil {
			tail, err := g.genEffect(e.Tail)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, tail...)
		}
		if len(stmts) == 0 {
			return nil, nil
		}
		return []goast.Stmt{&goast.BlockStmt{List: stmts}}, nil
	case *mir.If:
		cond, err := g.genOperand(e.Cond)
		if err != nil {
			return nil, err
		}
		then, err := g.genEffect(e.Then)
		if err != nil {
			return nil, err
		}
		stmt := &goast.IfStmt{Cond: cond, Body: &goast.BlockStmt{List: then}}
		if e.Else != nil {
			els, err := g.genEffect(e.Else)
			if err != nil {
				return nil, err
			}
			stmt.Else = &goast.BlockStmt{List: els}
		}
		return []goast.Stmt{stmt}, nil
	case *mir.Unreachable:
		return []goast.Stmt{&goast.ExprStmt{
			X: callExpr("panic", strLit("runtime error: unreachable code executed")),
		}}, nil
	case *mir.UnitConst:
		return nil, nil
	case *mir.Call:
		call, err := g.genCall(e)
		if err != nil {
			return nil, err
		}
		if assert, ok := call.(*goast.TypeAssertExpr); ok {
			call = assert.X
		}
		return []goast.Stmt{&goast.ExprStmt{X: call}}, nil
	}
	value, err := g.genExpr(e)
	if err != nil {
		return nil, err
	}
	return []goast.Stmt{&goast.AssignStmt{
		Lhs: []goast.Expr{goast.NewIdent("_")},
		Tok: token.ASSIGN,
		Rhs: []goast.Expr{value},
	}}, nil
}

// genTail generates e in return position: block-like shapes flatten into
// statements whose leaves return, everything else returns directly.
func (g *Generator) genTail(e mir.Expr, ret mir.Type) ([]goast.Stmt, error) {
	switch e := e.(type) {
	case *mir.Block:
		stmts, err := g.genStmts(e.Stmts)
		if err != nil {
			return nil, err
		}
		if e.Tail == nil {
			return append(stmts, &goast.ReturnStmt{Results: []goast.Expr{unitLit()}}), nil
		}
		tail, err := g.genTail(e.Tail, ret)
		if err != nil {
			return nil, err
		}
		return append(stmts, tail...), nil
	case *mir.If:
		if e.Else == nil {
			effect, err := g.genEffect(e)
			if err != nil {
				return nil, err
			}
			return append(effect, &goast.ReturnStmt{Results: []goast.Expr{unitLit()}}), nil
		}
		cond, err := g.genOperand(e.Cond)
		if err != nil {
			return nil, err
		}
		then, err := g.genTail(e.Then, ret)
		if err != nil {
			return nil, err
		}
		els, err := g.genTail(e.Else, ret)
		if err != nil {
			return nil, err
		}
		return []goast.Stmt{&goast.IfStmt{
			Cond: cond,
			Body: &goast.BlockStmt{List: then},
			Else: &goast.BlockStmt{List: els},
		}}, nil
	case *mir.Unreachable:
		// panic keeps the surrounding function terminating in Go's eyes.
		return []goast.Stmt{&goast.ExprStmt{
			X: callExpr("panic", strLit("runtime error: unreachable code executed")),
		}}, nil
	}
	value, err := g.genConverted(e, ret)
	if err != nil {
		return nil, err
	}
	return []goast.Stmt{&goast.ReturnStmt{Results: []goast.Expr{value}}}, nil
}
