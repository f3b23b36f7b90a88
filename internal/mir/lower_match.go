package mir

import (
	"github.com/rill-lang/rill/internal/ast"
)

// lowerMatch compiles a match into a first-match-wins decision chain. The
// scrutinee binds to a temp once; every arm becomes a condition over tag
// tests and literal comparisons, with payload bindings only materialized in
// the branch where the tests already passed. A guarded arm falls through to
// the rest of the chain when the guard fails, so the continuation is
// duplicated under each guard.
func (l *lowerer) lowerMatch(e *ast.MatchExpr) Expr {
	resultType := l.nodeType(e)

	scrutinee := l.lowerExpr(e.Scrutinee)
	scrutName := l.temp()
	scrutGet := &LocalGet{Name: scrutName, Typ: scrutinee.Type()}

	chain := Expr(&Unreachable{Typ: resultType})
	for i := len(e.Arms) - 1; i >= 0; i-- {
		chain = l.lowerArm(e.Arms[i], scrutGet, chain, resultType)
	}

	return &Block{
		Stmts: []Stmt{&LocalDecl{Name: scrutName, Value: scrutinee, Typ: scrutinee.Type()}},
		Tail:  chain,
		Typ:   resultType,
	}
}

func (l *lowerer) lowerArm(arm *ast.MatchArm, scrut Expr, next Expr, resultType Type) Expr {
	outer := l.scope
	l.scope = newScope(outer)

	cond, binds := l.compilePattern(arm.Pattern, scrut)

	var inner Expr
	if arm.Guard != nil {
		inner = &If{
			Cond: l.lowerExpr(arm.Guard),
			Then: l.lowerExpr(arm.Body),
			Else: next,
			Typ:  resultType,
		}
	} else {
		inner = l.lowerExpr(arm.Body)
	}

	if len(binds) > 0 {
		inner = &Block{Stmts: binds, Tail: inner, Typ: resultType}
	}

	l.scope = outer

	if cond == nil {
		return inner
	}
	return &If{Cond: cond, Then: inner, Else: next, Typ: resultType}
}

// compilePattern turns a pattern into a boolean condition plus the bindings
// the arm body needs. A nil condition means the pattern is irrefutable.
// Payload sub-conditions sit under the tag test, so they never read a
// payload slot of the wrong variant.
func (l *lowerer) compilePattern(pat ast.Pattern, target Expr) (Expr, []Stmt) {
	switch p := pat.(type) {
	case *ast.PatternWild:
		return nil, nil

	case *ast.PatternBinding:
		bind := &LocalDecl{
			Name:  l.bind(p.Name.Name),
			Value: target,
			Typ:   target.Type(),
		}
		return nil, []Stmt{bind}

	case *ast.PatternLiteral:
		return &Binary{
			Op:  OpEq,
			L:   target,
			R:   l.lowerExpr(p.Lit),
			Typ: Bool,
		}, nil

	case *ast.PatternVariant:
		return l.compileVariantPattern(p, target)

	default:
		panic("mir: unsupported pattern survived checking")
	}
}

func (l *lowerer) compileVariantPattern(p *ast.PatternVariant, target Expr) (Expr, []Stmt) {
	enumName := l.enumNameOf(target.Type())
	def, ok := l.module.FindEnum(enumName)
	if !ok {
		panic("mir: unknown enum " + enumName)
	}
	tag := def.Tag(p.Variant.Name)
	if tag < 0 {
		panic("mir: unknown variant " + p.Variant.Name)
	}
	variant := def.Variants[tag]

	cond := Expr(&Binary{
		Op:  OpEq,
		L:   &EnumTag{Target: target},
		R:   &IntConst{Value: int64(tag)},
		Typ: Bool,
	})

	var binds []Stmt
	for i, elem := range p.Elems {
		payload := &EnumPayload{Target: target, Index: i, Typ: variant.Types[i]}
		subCond, subBinds := l.compilePattern(elem, payload)
		if subCond != nil {
			// Conjunction as a conditional keeps the payload read behind
			// the tag test.
			cond = &If{Cond: cond, Then: subCond, Else: &BoolConst{Value: false}, Typ: Bool}
		}
		binds = append(binds, subBinds...)
	}

	return cond, binds
}

func (l *lowerer) enumNameOf(t Type) string {
	en, ok := t.(*EnumRef)
	if !ok {
		panic("mir: variant pattern on non-enum scrutinee")
	}
	return en.Name
}
