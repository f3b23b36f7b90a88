package types

import (
	"fmt"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/lexer"
)

// Info is the result of type checking: the resolved type of every expression
// node plus the table of declared named types. Lowering consults it instead
// of re-deriving types.
type Info struct {
	nodes map[ast.Node]Type
	table map[string]Type
	sub   Substitution
}

// TypeOf returns the substitution-resolved type of an expression node.
// Unconstrained type variables stay as variables; backends decide how to
// represent them.
func (i *Info) TypeOf(node ast.Node) (Type, bool) {
	t, ok := i.nodes[node]
	if !ok {
		return nil, false
	}
	return i.sub.Apply(t), true
}

// Named resolves a declared struct or enum type by name.
func (i *Info) Named(name string) (Type, bool) {
	t, ok := i.table[name]
	return t, ok
}

// Checker runs bidirectional type inference over a program. It accumulates
// every diagnostic instead of stopping at the first: a failed unification
// leaves a type variable behind and checking continues.
type Checker struct {
	unifier   *Unifier
	typeTable map[string]Type
	global    *Scope
	scope     *Scope

	nextVar int
	errors  []diag.Diagnostic
	info    *Info

	// fnReturn is a stack of expected return types, one per enclosing
	// function or lambda. Return statements unify against the top.
	fnReturn  []Type
	loopDepth int
}

// NewChecker creates a checker with the built-in bindings in scope.
func NewChecker() *Checker {
	c := &Checker{
		typeTable: make(map[string]Type),
		global:    NewScope(nil),
	}
	c.scope = c.global
	c.unifier = NewUnifier(func(name string) (Type, bool) {
		t, ok := c.typeTable[name]
		return t, ok
	})
	c.info = &Info{
		nodes: make(map[ast.Node]Type),
		table: c.typeTable,
		sub:   c.unifier.Sub,
	}
	c.defineBuiltins()
	return c
}

// Built-in functions. `print` and `str` accept any type; `len` is
// polymorphic over the array element.
func (c *Checker) defineBuiltins() {
	a := c.fresh()
	c.global.Define("print", &Forall{
		Vars: []int{a.ID},
		Body: &Function{Params: []Type{a}, Return: TypeUnit},
	}, false)

	b := c.fresh()
	c.global.Define("len", &Forall{
		Vars: []int{b.ID},
		Body: &Function{Params: []Type{&Array{Elem: b}}, Return: TypeInt},
	}, false)

	d := c.fresh()
	c.global.Define("str", &Forall{
		Vars: []int{d.ID},
		Body: &Function{Params: []Type{d}, Return: TypeStr},
	}, false)
}

// CheckProgram checks an entire compilation unit. Declarations are hoisted:
// type declarations first, then function signatures, then bodies, then the
// top-level statements in order.
func (c *Checker) CheckProgram(prog *ast.Program) (*Info, []diag.Diagnostic) {
	c.collectTypeDecls(prog)
	c.collectFnSignatures(prog)

	for _, decl := range prog.Decls {
		if fn, ok := decl.(*ast.FnDecl); ok {
			c.checkFnDecl(fn)
		}
	}

	c.scope = NewScope(c.global)
	for _, stmt := range prog.Stmts {
		c.checkStmt(stmt)
	}
	c.scope = c.global

	return c.info, c.errors
}

func (c *Checker) fresh() *Var {
	v := &Var{ID: c.nextVar}
	c.nextVar++
	return v
}

func (c *Checker) sub() Substitution {
	return c.unifier.Sub
}

// resolve applies the substitution and unfolds one layer of Named.
func (c *Checker) resolve(t Type) Type {
	return c.unifier.resolve(t)
}

// record stores the (possibly still variable-laden) type of a node. The
// final substitution resolves it when Info is consulted.
func (c *Checker) record(node ast.Node, t Type) Type {
	c.info.nodes[node] = t
	return t
}

// unify makes the two types equal, reporting a diagnostic at span on
// failure. Checking continues either way.
func (c *Checker) unify(a, b Type, span lexer.Span) bool {
	err := c.unifier.Unify(a, b)
	if err == nil {
		return true
	}
	ue, ok := err.(*UnifyError)
	if ok && ue.Infinite {
		c.errorf(diag.CodeTypeInfiniteType, span,
			"cannot construct the infinite type %s = %s",
			c.sub().Apply(ue.Left), c.sub().Apply(ue.Right))
		return false
	}
	c.errorf(diag.CodeTypeMismatch, span, "expected %s, found %s",
		c.sub().Apply(a), c.sub().Apply(b))
	return false
}

func (c *Checker) errorf(code diag.Code, span lexer.Span, format string, args ...interface{}) {
	c.errors = append(c.errors, diag.Diagnostic{
		Stage:    diag.StageTypeCheck,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span: diag.Span{
			Filename: span.Filename,
			Line:     span.Line,
			Column:   span.Column,
			Start:    span.Start,
			End:      span.End,
		},
	})
}

// instantiate replaces a scheme's quantified variables with fresh ones.
func (c *Checker) instantiate(s *Forall) Type {
	if len(s.Vars) == 0 {
		return s.Body
	}
	m := make(map[int]Type, len(s.Vars))
	for _, v := range s.Vars {
		m[v] = c.fresh()
	}
	return c.rename(s.Body, m)
}

func (c *Checker) rename(t Type, m map[int]Type) Type {
	switch tt := c.sub().Apply(t).(type) {
	case *Var:
		if fresh, ok := m[tt.ID]; ok {
			return fresh
		}
		return tt
	case *Function:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = c.rename(p, m)
		}
		var ret Type
		if tt.Return != nil {
			ret = c.rename(tt.Return, m)
		}
		return &Function{Params: params, Return: ret}
	case *Array:
		return &Array{Elem: c.rename(tt.Elem, m)}
	default:
		return tt
	}
}

// generalize quantifies the variables free in t but not free anywhere in
// the current environment.
func (c *Checker) generalize(t Type) *Forall {
	tFree := make(map[int]bool)
	FreeVars(t, c.sub(), tFree)
	if len(tFree) == 0 {
		return MonoScheme(t)
	}

	envFree := make(map[int]bool)
	c.scope.each(func(sym *Symbol) {
		bodyFree := make(map[int]bool)
		FreeVars(sym.Scheme.Body, c.sub(), bodyFree)
		for _, bound := range sym.Scheme.Vars {
			delete(bodyFree, bound)
		}
		for id := range bodyFree {
			envFree[id] = true
		}
	})

	var vars []int
	for id := range tFree {
		if !envFree[id] {
			vars = append(vars, id)
		}
	}
	if len(vars) == 0 {
		return MonoScheme(t)
	}
	return &Forall{Vars: vars, Body: t}
}

// nonExpansive reports whether generalizing the value of a let is sound.
// Lambdas, literals, and plain identifiers cannot hide fresh mutable state;
// calls, array literals, and struct literals can.
func nonExpansive(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.LambdaExpr, *ast.Ident,
		*ast.IntegerLit, *ast.FloatLit, *ast.BoolLit, *ast.StringLit,
		*ast.UnitLit, *ast.VariantExpr:
		return true
	case *ast.BlockExpr:
		return len(e.Stmts) == 0 && e.Tail != nil && nonExpansive(e.Tail)
	default:
		return false
	}
}

// resolveTypeExpr turns a surface annotation into a Type. Unknown names
// report an error and yield a fresh variable so checking can continue.
func (c *Checker) resolveTypeExpr(te ast.TypeExpr) Type {
	switch t := te.(type) {
	case *ast.NamedType:
		switch t.Name.Name {
		case "Int":
			return TypeInt
		case "Float":
			return TypeFloat
		case "Bool":
			return TypeBool
		case "Str":
			return TypeStr
		case "Unit":
			return TypeUnit
		}
		if _, ok := c.typeTable[t.Name.Name]; ok {
			return &Named{Name: t.Name.Name}
		}
		c.errorf(diag.CodeTypeUndefinedIdentifier, t.Span(),
			"undefined type '%s'", t.Name.Name)
		return c.fresh()

	case *ast.ArrayType:
		return &Array{Elem: c.resolveTypeExpr(t.Elem)}

	case *ast.FnType:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.resolveTypeExpr(p)
		}
		ret := Type(TypeUnit)
		if t.Return != nil {
			ret = c.resolveTypeExpr(t.Return)
		}
		return &Function{Params: params, Return: ret}

	default:
		return c.fresh()
	}
}
