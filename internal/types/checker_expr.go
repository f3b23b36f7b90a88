package types

import (
	"strconv"
	"strings"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/lexer"
)

// infer synthesizes the type of an expression. Every error leaves a fresh
// variable behind so the surrounding expression still gets a type.
func (c *Checker) infer(e ast.Expr) Type {
	switch e := e.(type) {
	case *ast.Ident:
		sym, ok := c.scope.Lookup(e.Name)
		if !ok {
			c.errorf(diag.CodeTypeUndefinedIdentifier, e.Span(),
				"undefined identifier '%s'", e.Name)
			return c.record(e, c.fresh())
		}
		return c.record(e, c.instantiate(sym.Scheme))

	case *ast.IntegerLit:
		c.checkIntegerRange(e)
		return c.record(e, TypeInt)

	case *ast.FloatLit:
		return c.record(e, TypeFloat)

	case *ast.BoolLit:
		return c.record(e, TypeBool)

	case *ast.StringLit:
		return c.record(e, TypeStr)

	case *ast.UnitLit:
		return c.record(e, TypeUnit)

	case *ast.FStringLit:
		for _, part := range e.Parts {
			if part.Expr != nil {
				c.infer(part.Expr)
			}
		}
		return c.record(e, TypeStr)

	case *ast.ArrayLit:
		elem := Type(c.fresh())
		if len(e.Elems) > 0 {
			elem = c.infer(e.Elems[0])
			for _, el := range e.Elems[1:] {
				c.check(el, elem)
			}
		}
		return c.record(e, &Array{Elem: elem})

	case *ast.PrefixExpr:
		return c.record(e, c.inferPrefix(e))

	case *ast.InfixExpr:
		return c.record(e, c.inferInfix(e))

	case *ast.AssignExpr:
		return c.record(e, c.inferAssign(e))

	case *ast.CallExpr:
		return c.record(e, c.inferCall(e))

	case *ast.IndexExpr:
		return c.record(e, c.inferIndex(e))

	case *ast.FieldExpr:
		return c.record(e, c.inferField(e))

	case *ast.LambdaExpr:
		return c.record(e, c.inferLambda(e, nil))

	case *ast.IfExpr:
		return c.record(e, c.inferIf(e))

	case *ast.BlockExpr:
		outer := c.scope
		c.scope = NewScope(outer)
		t := c.inferBlock(e)
		c.scope = outer
		return c.record(e, t)

	case *ast.MatchExpr:
		return c.record(e, c.inferMatch(e))

	case *ast.StructLit:
		return c.record(e, c.inferStructLit(e))

	case *ast.VariantExpr:
		return c.record(e, c.inferVariant(e))

	case *ast.RangeExpr:
		c.errorf(diag.CodeTypeInvalidOperation, e.Span(),
			"range expression is only valid as a for-loop iterable")
		return c.record(e, c.fresh())

	case *ast.BadExpr:
		// The parser already reported the syntax error.
		return c.record(e, c.fresh())

	default:
		c.errorf(diag.CodeTypeInvalidOperation, e.Span(), "unsupported expression")
		return c.record(e, c.fresh())
	}
}

// check pushes an expected type into an expression. Lambdas, conditionals,
// blocks, matches, and array literals propagate the expectation inward;
// everything else synthesizes and unifies.
func (c *Checker) check(e ast.Expr, expected Type) {
	switch e := e.(type) {
	case *ast.LambdaExpr:
		if fn, ok := c.resolve(expected).(*Function); ok && len(fn.Params) == len(e.Params) {
			c.record(e, c.inferLambda(e, fn))
			return
		}

	case *ast.IfExpr:
		if e.Else != nil {
			c.check(e.Cond, TypeBool)
			c.checkBlockAgainst(e.Then, expected)
			c.check(e.Else, expected)
			c.record(e, expected)
			return
		}

	case *ast.BlockExpr:
		c.checkBlockAgainst(e, expected)
		c.record(e, expected)
		return

	case *ast.MatchExpr:
		scrut := c.infer(e.Scrutinee)
		for _, arm := range e.Arms {
			c.checkArm(arm, scrut, expected, true)
		}
		c.checkExhaustive(e, scrut)
		c.record(e, expected)
		return

	case *ast.ArrayLit:
		if arr, ok := c.resolve(expected).(*Array); ok {
			for _, el := range e.Elems {
				c.check(el, arr.Elem)
			}
			c.record(e, expected)
			return
		}
	}

	t := c.infer(e)
	c.unify(expected, t, e.Span())
}

func (c *Checker) checkBlockAgainst(b *ast.BlockExpr, expected Type) {
	outer := c.scope
	c.scope = NewScope(outer)
	for _, stmt := range b.Stmts {
		c.checkStmt(stmt)
	}
	if b.Tail != nil {
		c.check(b.Tail, expected)
	} else if !endsWithReturn(b) {
		c.unify(expected, TypeUnit, b.Span())
	}
	c.scope = outer
	c.record(b, expected)
}

// inferBlock checks a block's statements and synthesizes its tail type. The
// caller manages scoping so function bodies can reuse the parameter scope.
func (c *Checker) inferBlock(b *ast.BlockExpr) Type {
	for _, stmt := range b.Stmts {
		c.checkStmt(stmt)
	}
	if b.Tail != nil {
		t := c.infer(b.Tail)
		c.record(b, t)
		return t
	}
	c.record(b, TypeUnit)
	return TypeUnit
}

func (c *Checker) inferPrefix(e *ast.PrefixExpr) Type {
	switch e.Op {
	case lexer.MINUS:
		t := c.infer(e.Expr)
		return c.requireNumeric(t, e.Expr.Span(), "unary '-'")
	case lexer.BANG:
		c.check(e.Expr, TypeBool)
		return TypeBool
	default:
		c.errorf(diag.CodeTypeInvalidOperation, e.Span(),
			"unsupported prefix operator '%s'", e.Op)
		return c.fresh()
	}
}

func (c *Checker) inferInfix(e *ast.InfixExpr) Type {
	switch e.Op {
	case lexer.PLUS:
		lt := c.infer(e.Left)
		c.check(e.Right, lt)
		t := c.defaultNumeric(lt)
		switch tt := t.(type) {
		case *Primitive:
			if tt.Kind == Int || tt.Kind == Float || tt.Kind == Str {
				return tt
			}
		}
		c.errorf(diag.CodeTypeInvalidOperation, e.Span(),
			"operator '+' requires Int, Float, or Str operands, found %s", t)
		return c.fresh()

	case lexer.MINUS, lexer.ASTERISK, lexer.SLASH:
		lt := c.infer(e.Left)
		c.check(e.Right, lt)
		return c.requireNumeric(lt, e.Span(), "operator '"+string(e.Op)+"'")

	case lexer.PERCENT:
		c.check(e.Left, TypeInt)
		c.check(e.Right, TypeInt)
		return TypeInt

	case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		lt := c.infer(e.Left)
		c.check(e.Right, lt)
		t := c.defaultNumeric(lt)
		switch tt := t.(type) {
		case *Primitive:
			if tt.Kind == Int || tt.Kind == Float || tt.Kind == Str {
				return TypeBool
			}
		}
		c.errorf(diag.CodeTypeInvalidOperation, e.Span(),
			"operator '%s' requires ordered operands, found %s", e.Op, t)
		return TypeBool

	case lexer.EQ, lexer.NOT_EQ:
		lt := c.infer(e.Left)
		c.check(e.Right, lt)
		return TypeBool

	case lexer.AND, lexer.OR:
		c.check(e.Left, TypeBool)
		c.check(e.Right, TypeBool)
		return TypeBool

	default:
		c.errorf(diag.CodeTypeInvalidOperation, e.Span(),
			"unsupported operator '%s'", e.Op)
		return c.fresh()
	}
}

// defaultNumeric resolves t, defaulting an unconstrained variable to Int.
// This is what makes `|x| x + x` infer as fn(Int) -> Int instead of staying
// ambiguous.
func (c *Checker) defaultNumeric(t Type) Type {
	resolved := c.resolve(t)
	if v, ok := resolved.(*Var); ok {
		c.sub().Bind(v.ID, TypeInt)
		return TypeInt
	}
	return resolved
}

func (c *Checker) requireNumeric(t Type, span lexer.Span, what string) Type {
	resolved := c.defaultNumeric(t)
	if p, ok := resolved.(*Primitive); ok && (p.Kind == Int || p.Kind == Float) {
		return p
	}
	c.errorf(diag.CodeTypeInvalidOperation, span,
		"%s requires Int or Float operands, found %s", what, resolved)
	return c.fresh()
}

func (c *Checker) inferAssign(e *ast.AssignExpr) Type {
	switch target := e.Target.(type) {
	case *ast.Ident:
		sym, ok := c.scope.Lookup(target.Name)
		if !ok {
			c.errorf(diag.CodeTypeUndefinedIdentifier, target.Span(),
				"undefined identifier '%s'", target.Name)
			c.infer(e.Value)
			return TypeUnit
		}
		if !sym.Mutable {
			c.errorf(diag.CodeTypeImmutableAssign, target.Span(),
				"cannot assign to immutable binding '%s'", target.Name)
			c.errors[len(c.errors)-1] = c.errors[len(c.errors)-1].
				WithSuggestion("declare it with 'let mut " + target.Name + " = ...'")
		}
		c.record(target, sym.Scheme.Body)
		c.check(e.Value, sym.Scheme.Body)
		return TypeUnit

	case *ast.IndexExpr:
		elem := c.inferIndex(target)
		c.record(target, elem)
		c.check(e.Value, elem)
		return TypeUnit

	case *ast.FieldExpr:
		ft := c.inferField(target)
		c.record(target, ft)
		c.check(e.Value, ft)
		return TypeUnit

	default:
		c.errorf(diag.CodeTypeInvalidOperation, e.Target.Span(),
			"invalid assignment target")
		c.infer(e.Value)
		return TypeUnit
	}
}

func (c *Checker) inferCall(e *ast.CallExpr) Type {
	calleeType := c.resolve(c.infer(e.Callee))

	if v, ok := calleeType.(*Var); ok {
		params := make([]Type, len(e.Args))
		for i := range params {
			params[i] = c.fresh()
		}
		ret := c.fresh()
		c.sub().Bind(v.ID, &Function{Params: params, Return: ret})
		calleeType = c.resolve(v)
	}

	fn, ok := calleeType.(*Function)
	if !ok {
		c.errorf(diag.CodeTypeNotAFunction, e.Callee.Span(),
			"cannot call a value of type %s", calleeType)
		for _, arg := range e.Args {
			c.infer(arg)
		}
		return c.fresh()
	}

	if len(e.Args) != len(fn.Params) {
		c.errorf(diag.CodeTypeArityMismatch, e.Span(),
			"expected %d argument(s), found %d", len(fn.Params), len(e.Args))
		for _, arg := range e.Args {
			c.infer(arg)
		}
		return returnOf(fn)
	}

	for i, arg := range e.Args {
		c.check(arg, fn.Params[i])
	}
	return returnOf(fn)
}

func (c *Checker) inferIndex(e *ast.IndexExpr) Type {
	t := c.resolve(c.infer(e.Target))

	if v, ok := t.(*Var); ok {
		elem := c.fresh()
		c.sub().Bind(v.ID, &Array{Elem: elem})
		c.check(e.Index, TypeInt)
		return elem
	}

	arr, ok := t.(*Array)
	if !ok {
		c.errorf(diag.CodeTypeInvalidOperation, e.Target.Span(),
			"cannot index a value of type %s", t)
		c.infer(e.Index)
		return c.fresh()
	}

	c.check(e.Index, TypeInt)
	return arr.Elem
}

func (c *Checker) inferField(e *ast.FieldExpr) Type {
	t := c.resolve(c.infer(e.Target))

	st, ok := t.(*Struct)
	if !ok {
		if _, isVar := t.(*Var); isVar {
			c.errorf(diag.CodeTypeMismatch, e.Target.Span(),
				"cannot determine the struct type of this field access; add a type annotation")
		} else {
			c.errorf(diag.CodeTypeUnknownField, e.Span(),
				"type %s has no fields", t)
		}
		return c.fresh()
	}

	ft, ok := st.FieldType(e.Field.Name)
	if !ok {
		c.errorf(diag.CodeTypeUnknownField, e.Field.Span(),
			"struct '%s' has no field '%s'", st.Name, e.Field.Name)
		return c.fresh()
	}
	return ft
}

// inferLambda types an anonymous function. With a non-nil expectation of
// matching arity, parameter types come from the expectation; otherwise each
// parameter gets a fresh variable.
func (c *Checker) inferLambda(e *ast.LambdaExpr, expected *Function) Type {
	params := make([]Type, len(e.Params))
	for i := range e.Params {
		if expected != nil {
			params[i] = expected.Params[i]
		} else {
			params[i] = c.fresh()
		}
	}

	outer := c.scope
	c.scope = NewScope(outer)
	for i, p := range e.Params {
		c.scope.Define(p.Name, MonoScheme(params[i]), false)
	}

	ret := Type(c.fresh())
	if expected != nil {
		ret = returnOf(expected)
	}
	// The lambda body is a fresh function: break and continue cannot
	// reach a loop lexically outside it.
	savedDepth := c.loopDepth
	c.loopDepth = 0
	c.fnReturn = append(c.fnReturn, ret)
	bodyType := c.infer(e.Body)
	c.unify(ret, bodyType, e.Body.Span())
	c.fnReturn = c.fnReturn[:len(c.fnReturn)-1]
	c.loopDepth = savedDepth

	c.scope = outer
	return &Function{Params: params, Return: ret}
}

// inferIf types a conditional. Without an else branch the whole expression
// is Unit and the then-block's value, if any, is discarded.
func (c *Checker) inferIf(e *ast.IfExpr) Type {
	c.check(e.Cond, TypeBool)

	if e.Else == nil {
		outer := c.scope
		c.scope = NewScope(outer)
		c.inferBlock(e.Then)
		c.scope = outer
		return TypeUnit
	}

	outer := c.scope
	c.scope = NewScope(outer)
	thenType := c.inferBlock(e.Then)
	c.scope = outer

	c.check(e.Else, thenType)
	return thenType
}

func (c *Checker) inferMatch(e *ast.MatchExpr) Type {
	scrut := c.infer(e.Scrutinee)

	if len(e.Arms) == 0 {
		c.errorf(diag.CodeTypeInvalidOperation, e.Span(),
			"match expression has no arms")
		return c.fresh()
	}

	result := Type(c.fresh())
	for i, arm := range e.Arms {
		c.checkArm(arm, scrut, result, i > 0)
	}

	c.checkExhaustive(e, scrut)
	return result
}

// checkArm types one match arm: pattern bindings enter a fresh scope, the
// guard must be Bool, and the body produces the match result type.
func (c *Checker) checkArm(arm *ast.MatchArm, scrut, result Type, checkBody bool) {
	outer := c.scope
	c.scope = NewScope(outer)

	c.checkPattern(arm.Pattern, scrut)
	if arm.Guard != nil {
		c.check(arm.Guard, TypeBool)
	}
	if checkBody {
		c.check(arm.Body, result)
	} else {
		bodyType := c.infer(arm.Body)
		c.unify(result, bodyType, arm.Body.Span())
	}

	c.scope = outer
}

func (c *Checker) inferStructLit(e *ast.StructLit) Type {
	t, ok := c.typeTable[e.Name.Name]
	if !ok {
		c.errorf(diag.CodeTypeUndefinedIdentifier, e.Name.Span(),
			"undefined type '%s'", e.Name.Name)
		for _, f := range e.Fields {
			c.infer(f.Value)
		}
		return c.fresh()
	}
	st, ok := t.(*Struct)
	if !ok {
		c.errorf(diag.CodeTypeInvalidOperation, e.Name.Span(),
			"'%s' is not a struct type", e.Name.Name)
		for _, f := range e.Fields {
			c.infer(f.Value)
		}
		return c.fresh()
	}

	seen := make(map[string]bool)
	for _, f := range e.Fields {
		if seen[f.Name.Name] {
			c.errorf(diag.CodeTypeDuplicateDecl, f.Name.Span(),
				"field '%s' is initialized more than once", f.Name.Name)
			continue
		}
		seen[f.Name.Name] = true

		ft, ok := st.FieldType(f.Name.Name)
		if !ok {
			c.errorf(diag.CodeTypeUnknownField, f.Name.Span(),
				"struct '%s' has no field '%s'", st.Name, f.Name.Name)
			c.infer(f.Value)
			continue
		}
		c.check(f.Value, ft)
	}

	for _, field := range st.Fields {
		if !seen[field.Name] {
			c.errorf(diag.CodeTypeMissingField, e.Span(),
				"missing field '%s' in struct literal '%s'", field.Name, st.Name)
		}
	}

	return st
}

func (c *Checker) inferVariant(e *ast.VariantExpr) Type {
	t, ok := c.typeTable[e.Enum.Name]
	if !ok {
		c.errorf(diag.CodeTypeUndefinedIdentifier, e.Enum.Span(),
			"undefined type '%s'", e.Enum.Name)
		return c.fresh()
	}
	en, ok := t.(*Enum)
	if !ok {
		c.errorf(diag.CodeTypeInvalidOperation, e.Enum.Span(),
			"'%s' is not an enum type", e.Enum.Name)
		return c.fresh()
	}

	_, variant, ok := en.VariantIndex(e.Variant.Name)
	if !ok {
		c.errorf(diag.CodeTypeUnknownVariant, e.Variant.Span(),
			"enum '%s' has no variant '%s'", en.Name, e.Variant.Name)
		return c.fresh()
	}

	if len(variant.Payload) == 0 {
		return en
	}
	return &Function{Params: variant.Payload, Return: en}
}

// checkIntegerRange rejects literals that overflow a 64-bit integer.
func (c *Checker) checkIntegerRange(lit *ast.IntegerLit) {
	text := strings.ReplaceAll(lit.Text, "_", "")
	neg := strings.HasPrefix(text, "-")
	digits := strings.TrimPrefix(text, "-")

	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"), strings.HasPrefix(digits, "0X"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b"), strings.HasPrefix(digits, "0B"):
		base, digits = 2, digits[2:]
	}
	if neg {
		digits = "-" + digits
	}

	if _, err := strconv.ParseInt(digits, base, 64); err != nil {
		c.errorf(diag.CodeTypeInvalidOperation, lit.Span(),
			"integer literal out of range: %s", lit.Text)
	}
}
