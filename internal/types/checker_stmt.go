package types

import (
	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
)

func (c *Checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		c.checkLetStmt(s)

	case *ast.ReturnStmt:
		if len(c.fnReturn) == 0 {
			c.errorf(diag.CodeTypeInvalidOperation, s.Span(),
				"return outside of a function")
			if s.Value != nil {
				c.infer(s.Value)
			}
			return
		}
		expected := c.fnReturn[len(c.fnReturn)-1]
		if s.Value == nil {
			c.unify(expected, TypeUnit, s.Span())
			return
		}
		c.check(s.Value, expected)

	case *ast.ExprStmt:
		// The value is discarded; any type is fine.
		c.infer(s.Expr)

	case *ast.WhileStmt:
		c.check(s.Cond, TypeBool)
		c.loopDepth++
		outer := c.scope
		c.scope = NewScope(outer)
		c.inferBlock(s.Body)
		c.scope = outer
		c.loopDepth--

	case *ast.ForStmt:
		c.checkForStmt(s)

	case *ast.BreakStmt:
		if c.loopDepth == 0 {
			c.errorf(diag.CodeTypeInvalidOperation, s.Span(), "break outside of a loop")
		}

	case *ast.ContinueStmt:
		if c.loopDepth == 0 {
			c.errorf(diag.CodeTypeInvalidOperation, s.Span(), "continue outside of a loop")
		}
	}
}

// checkLetStmt types a let binding. An annotation switches the value to
// checking mode; without one the value's type is synthesized and, for
// immutable bindings of non-expansive values, generalized.
func (c *Checker) checkLetStmt(s *ast.LetStmt) {
	var bound Type
	if s.Type != nil {
		bound = c.resolveTypeExpr(s.Type)
		c.check(s.Value, bound)
	} else {
		bound = c.infer(s.Value)
	}

	scheme := MonoScheme(bound)
	if !s.Mutable && s.Type == nil && nonExpansive(s.Value) {
		scheme = c.generalize(bound)
	}

	c.record(s.Name, bound)
	c.scope.Define(s.Name.Name, scheme, s.Mutable)
}

// checkForStmt types a for-in loop. The iterable is either an integer range
// or an array; the loop variable is immutable inside the body.
func (c *Checker) checkForStmt(s *ast.ForStmt) {
	var elem Type

	if r, ok := s.Iter.(*ast.RangeExpr); ok {
		c.check(r.Low, TypeInt)
		c.check(r.High, TypeInt)
		c.record(r, TypeUnit)
		elem = TypeInt
	} else {
		t := c.resolve(c.infer(s.Iter))
		switch tt := t.(type) {
		case *Array:
			elem = tt.Elem
		case *Var:
			e := c.fresh()
			c.sub().Bind(tt.ID, &Array{Elem: e})
			elem = e
		default:
			c.errorf(diag.CodeTypeInvalidOperation, s.Iter.Span(),
				"cannot iterate over a value of type %s", t)
			elem = c.fresh()
		}
	}

	outer := c.scope
	c.scope = NewScope(outer)
	c.scope.Define(s.Var.Name, MonoScheme(elem), false)
	c.record(s.Var, elem)

	c.loopDepth++
	c.inferBlock(s.Body)
	c.loopDepth--

	c.scope = outer
}

// checkPattern types a pattern against the scrutinee type, defining any
// bindings in the current (arm) scope.
func (c *Checker) checkPattern(pat ast.Pattern, scrut Type) {
	switch p := pat.(type) {
	case *ast.PatternWild:
		// Matches anything.

	case *ast.PatternBinding:
		c.record(p.Name, scrut)
		c.scope.Define(p.Name.Name, MonoScheme(scrut), false)

	case *ast.PatternLiteral:
		litType := c.infer(p.Lit)
		c.unify(scrut, litType, p.Span())

	case *ast.PatternVariant:
		c.checkVariantPattern(p, scrut)

	default:
		c.errorf(diag.CodeTypeInvalidPattern, pat.Span(), "unsupported pattern")
	}
}

func (c *Checker) checkVariantPattern(p *ast.PatternVariant, scrut Type) {
	resolved := c.resolve(scrut)

	// A qualified pattern pins down the enum even when the scrutinee's type
	// is still open.
	if _, isVar := resolved.(*Var); isVar && p.Enum != nil {
		if t, ok := c.typeTable[p.Enum.Name]; ok {
			c.unify(scrut, t, p.Span())
			resolved = c.resolve(scrut)
		}
	}

	en, ok := resolved.(*Enum)
	if !ok {
		if _, isVar := resolved.(*Var); isVar {
			c.errorf(diag.CodeTypeInvalidPattern, p.Span(),
				"cannot determine the enum type of this pattern; qualify it as Enum::%s",
				p.Variant.Name)
		} else {
			c.errorf(diag.CodeTypeInvalidPattern, p.Span(),
				"variant pattern cannot match a value of type %s", resolved)
		}
		return
	}

	if p.Enum != nil && p.Enum.Name != en.Name {
		c.errorf(diag.CodeTypeInvalidPattern, p.Enum.Span(),
			"pattern mentions enum '%s' but the scrutinee is '%s'",
			p.Enum.Name, en.Name)
		return
	}

	_, variant, ok := en.VariantIndex(p.Variant.Name)
	if !ok {
		c.errorf(diag.CodeTypeUnknownVariant, p.Variant.Span(),
			"enum '%s' has no variant '%s'", en.Name, p.Variant.Name)
		return
	}

	if len(p.Elems) != len(variant.Payload) {
		c.errorf(diag.CodeTypeArityMismatch, p.Span(),
			"variant '%s' carries %d value(s), pattern binds %d",
			p.Variant.Name, len(variant.Payload), len(p.Elems))
		return
	}

	for i, elem := range p.Elems {
		c.checkPattern(elem, variant.Payload[i])
	}
}
