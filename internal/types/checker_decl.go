package types

import (
	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
)

// collectTypeDecls registers every struct and enum by name, then resolves
// field and payload types in a second pass so mutually recursive
// declarations see each other.
func (c *Checker) collectTypeDecls(prog *ast.Program) {
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			if _, exists := c.typeTable[d.Name.Name]; exists {
				c.errorf(diag.CodeTypeDuplicateDecl, d.Name.Span(),
					"type '%s' is declared more than once", d.Name.Name)
				continue
			}
			c.typeTable[d.Name.Name] = &Struct{Name: d.Name.Name}

		case *ast.EnumDecl:
			if _, exists := c.typeTable[d.Name.Name]; exists {
				c.errorf(diag.CodeTypeDuplicateDecl, d.Name.Span(),
					"type '%s' is declared more than once", d.Name.Name)
				continue
			}
			c.typeTable[d.Name.Name] = &Enum{Name: d.Name.Name}
		}
	}

	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			st, ok := c.typeTable[d.Name.Name].(*Struct)
			if !ok || st.Fields != nil {
				continue
			}
			for _, f := range d.Fields {
				if _, dup := st.FieldType(f.Name.Name); dup {
					c.errorf(diag.CodeTypeDuplicateDecl, f.Name.Span(),
						"field '%s' is declared more than once in struct '%s'",
						f.Name.Name, d.Name.Name)
					continue
				}
				st.Fields = append(st.Fields, Field{
					Name: f.Name.Name,
					Type: c.resolveTypeExpr(f.Type),
				})
			}

		case *ast.EnumDecl:
			en, ok := c.typeTable[d.Name.Name].(*Enum)
			if !ok || en.Variants != nil {
				continue
			}
			for _, v := range d.Variants {
				if _, _, dup := en.VariantIndex(v.Name.Name); dup {
					c.errorf(diag.CodeTypeDuplicateDecl, v.Name.Span(),
						"variant '%s' is declared more than once in enum '%s'",
						v.Name.Name, d.Name.Name)
					continue
				}
				payload := make([]Type, len(v.Payload))
				for i, pt := range v.Payload {
					payload[i] = c.resolveTypeExpr(pt)
				}
				en.Variants = append(en.Variants, Variant{
					Name:    v.Name.Name,
					Payload: payload,
				})
			}
		}
	}
}

// collectFnSignatures binds every named function in the global scope before
// any body is checked, so functions can call each other regardless of
// declaration order.
func (c *Checker) collectFnSignatures(prog *ast.Program) {
	for _, decl := range prog.Decls {
		fn, ok := decl.(*ast.FnDecl)
		if !ok {
			continue
		}
		if _, exists := c.global.LookupLocal(fn.Name.Name); exists {
			c.errorf(diag.CodeTypeDuplicateDecl, fn.Name.Span(),
				"function '%s' is declared more than once", fn.Name.Name)
			continue
		}
		c.global.Define(fn.Name.Name, MonoScheme(c.fnSignature(fn)), false)
	}
}

func (c *Checker) fnSignature(fn *ast.FnDecl) *Function {
	params := make([]Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = c.resolveTypeExpr(p.Type)
	}
	ret := Type(TypeUnit)
	if fn.ReturnType != nil {
		ret = c.resolveTypeExpr(fn.ReturnType)
	}
	return &Function{Params: params, Return: ret}
}

func (c *Checker) checkFnDecl(fn *ast.FnDecl) {
	sym, ok := c.global.Lookup(fn.Name.Name)
	if !ok {
		return // duplicate decl, first one owns the name
	}
	sig, ok := sym.Scheme.Body.(*Function)
	if !ok {
		return
	}

	outer := c.scope
	c.scope = NewScope(c.global)
	for i, p := range fn.Params {
		c.scope.Define(p.Name.Name, MonoScheme(sig.Params[i]), false)
	}

	c.fnReturn = append(c.fnReturn, sig.Return)
	bodyType := c.inferBlock(fn.Body)

	// A body whose last statement returns on every path has no tail to
	// unify; anything else must produce the declared return type.
	if fn.Body.Tail != nil || !endsWithReturn(fn.Body) {
		c.unify(sig.Return, bodyType, fn.Body.Span())
	}

	c.fnReturn = c.fnReturn[:len(c.fnReturn)-1]
	c.scope = outer
}

// endsWithReturn reports whether a block with no tail expression still
// definitely returns: its last statement is a return, or an if/match whose
// every branch does.
func endsWithReturn(b *ast.BlockExpr) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	last, ok := b.Stmts[len(b.Stmts)-1].(*ast.ExprStmt)
	if !ok {
		_, isReturn := b.Stmts[len(b.Stmts)-1].(*ast.ReturnStmt)
		return isReturn
	}
	return exprReturns(last.Expr)
}

func exprReturns(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.IfExpr:
		if e.Else == nil {
			return false
		}
		return blockOrExprReturns(e.Then) && exprReturns(e.Else)
	case *ast.MatchExpr:
		if len(e.Arms) == 0 {
			return false
		}
		for _, arm := range e.Arms {
			if !exprReturns(arm.Body) {
				return false
			}
		}
		return true
	case *ast.BlockExpr:
		return blockOrExprReturns(e)
	default:
		return false
	}
}

func blockOrExprReturns(b *ast.BlockExpr) bool {
	if b.Tail != nil {
		return exprReturns(b.Tail)
	}
	return endsWithReturn(b)
}
