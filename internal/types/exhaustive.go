package types

import (
	"strings"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
)

// checkExhaustive verifies that a match covers every possible value of the
// scrutinee. Guarded arms never count toward coverage: a guard can fail at
// runtime, so only unguarded arms establish totality.
func (c *Checker) checkExhaustive(e *ast.MatchExpr, scrut Type) {
	for _, arm := range e.Arms {
		if arm.Guard == nil && irrefutable(arm.Pattern) {
			return
		}
	}

	switch t := c.resolve(scrut).(type) {
	case *Enum:
		covered := make(map[string]bool)
		for _, arm := range e.Arms {
			if arm.Guard != nil {
				continue
			}
			pv, ok := arm.Pattern.(*ast.PatternVariant)
			if !ok {
				continue
			}
			all := true
			for _, elem := range pv.Elems {
				if !irrefutable(elem) {
					all = false
					break
				}
			}
			if all {
				covered[pv.Variant.Name] = true
			}
		}

		var missing []string
		for _, v := range t.Variants {
			if !covered[v.Name] {
				missing = append(missing, v.Name)
			}
		}
		if len(missing) > 0 {
			c.errorf(diag.CodeTypeNonExhaustiveMatch, e.Span(),
				"match on '%s' does not cover: %s",
				t.Name, strings.Join(missing, ", "))
			c.errors[len(c.errors)-1] = c.errors[len(c.errors)-1].
				WithSuggestion("add arms for the missing variants or a '_' arm")
		}

	case *Primitive:
		if t.Kind == Bool {
			var hasTrue, hasFalse bool
			for _, arm := range e.Arms {
				if arm.Guard != nil {
					continue
				}
				pl, ok := arm.Pattern.(*ast.PatternLiteral)
				if !ok {
					continue
				}
				if b, ok := pl.Lit.(*ast.BoolLit); ok {
					if b.Value {
						hasTrue = true
					} else {
						hasFalse = true
					}
				}
			}
			if hasTrue && hasFalse {
				return
			}
		}
		c.errorf(diag.CodeTypeNonExhaustiveMatch, e.Span(),
			"match on %s needs a catch-all arm", t)
		c.errors[len(c.errors)-1] = c.errors[len(c.errors)-1].
			WithSuggestion("add a '_' arm")

	case *Var:
		// The scrutinee's type never resolved; an earlier error explains why.

	default:
		c.errorf(diag.CodeTypeNonExhaustiveMatch, e.Span(),
			"match on %s needs a catch-all arm", t)
		c.errors[len(c.errors)-1] = c.errors[len(c.errors)-1].
			WithSuggestion("add a '_' arm")
	}
}

// irrefutable reports whether a pattern matches every value of its type.
func irrefutable(p ast.Pattern) bool {
	switch p.(type) {
	case *ast.PatternWild, *ast.PatternBinding:
		return true
	default:
		return false
	}
}
