// Package codegen translates lowered modules into standalone Go programs.
// The generated program embeds a small runtime prelude and matches the
// tree-walking evaluator on every program both backends accept: checked
// integer arithmetic, reference semantics for aggregates, and identical
// value rendering.
package codegen

import (
	"bytes"
	"fmt"
	goast "go/ast"
	"go/format"
	"go/token"

	"github.com/rill-lang/rill/internal/mir"
)

// UnsupportedError reports a construct the Go backend cannot express.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return "cannot express in generated Go: " + e.Construct
}

func unsupported(format string, args ...interface{}) error {
	return &UnsupportedError{Construct: fmt.Sprintf(format, args...)}
}

// Generator converts a lowered module to a Go source file.
type Generator struct {
	fset   *token.FileSet
	module *mir.Module

	// locals maps mangled-free local names to their declared types within
	// the function being generated. Lowering made names unique per
	// function, so one flat map per function suffices.
	locals map[string]mir.Type
	// rets is the return-type stack: the enclosing function, then any
	// nested function literals.
	rets []mir.Type
	// loopDepth counts loops enclosing the current statement within the
	// innermost function literal. A break or continue at depth zero has
	// no Go loop to target.
	loopDepth int
}

// NewGenerator creates a generator for a module.
func NewGenerator(m *mir.Module) *Generator {
	return &Generator{
		fset:   token.NewFileSet(),
		module: m,
	}
}

// EmitGo renders a module as a complete Go program.
func EmitGo(m *mir.Module) (string, error) {
	g := NewGenerator(m)
	decls, err := g.generate()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("package main\n")
	buf.WriteString(preludeSrc)
	for _, decl := range decls {
		buf.WriteString("\n")
		if err := format.Node(&buf, g.fset, decl); err != nil {
			return "", fmt.Errorf("rendering declaration: %w", err)
		}
		buf.WriteString("\n")
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("formatting generated program: %w", err)
	}
	return string(out), nil
}

func (g *Generator) generate() ([]goast.Decl, error) {
	decls := []goast.Decl{}

	for _, s := range g.module.Structs {
		decls = append(decls, g.genStructDecl(s), g.genStructString(s))
	}
	for _, e := range g.module.Enums {
		decls = append(decls, g.genEnumDecl(e), g.genEnumString(e))
	}
	for _, fn := range g.module.Functions {
		decl, err := g.genFunction(fn)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}

	mainDecl, err := g.genMain(g.module.Main)
	if err != nil {
		return nil, err
	}
	decls = append(decls, mainDecl)
	return decls, nil
}

func (g *Generator) genStructDecl(s *mir.StructDef) goast.Decl {
	fields := make([]*goast.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = &goast.Field{
			Names: []*goast.Ident{goast.NewIdent(fieldName(f.Name))},
			Type:  goType(f.Type),
		}
	}
	return &goast.GenDecl{
		Tok: token.TYPE,
		Specs: []goast.Spec{
			&goast.TypeSpec{
				Name: goast.NewIdent(typeName(s.Name)),
				Type: &goast.StructType{Fields: &goast.FieldList{List: fields}},
			},
		},
	}
}

// genStructString emits the String method rendering goes through. Keeping
// rendering in generated methods avoids reflecting over unexported fields.
func (g *Generator) genStructString(s *mir.StructDef) goast.Decl {
	recv := goast.NewIdent("v")
	var expr goast.Expr = strLit(s.Name + " { ")
	for i, f := range s.Fields {
		label := f.Name + ": "
		if i > 0 {
			label = ", " + label
		}
		field := &goast.SelectorExpr{X: recv, Sel: goast.NewIdent(fieldName(f.Name))}
		rendered := callExpr("rillRender", field, goast.NewIdent("true"))
		expr = concat(concat(expr, strLit(label)), rendered)
	}
	expr = concat(expr, strLit(" }"))
	return stringMethod(typeName(s.Name), recv, []goast.Stmt{&goast.ReturnStmt{Results: []goast.Expr{expr}}})
}

func (g *Generator) genEnumDecl(e *mir.EnumDef) goast.Decl {
	fields := []*goast.Field{
		{Names: []*goast.Ident{goast.NewIdent("tag")}, Type: goast.NewIdent("int64")},
		{Names: []*goast.Ident{goast.NewIdent("payload")}, Type: &goast.ArrayType{Elt: goast.NewIdent("any")}},
	}
	return &goast.GenDecl{
		Tok: token.TYPE,
		Specs: []goast.Spec{
			&goast.TypeSpec{
				Name: goast.NewIdent(typeName(e.Name)),
				Type: &goast.StructType{Fields: &goast.FieldList{List: fields}},
			},
		},
	}
}

func (g *Generator) genEnumString(e *mir.EnumDef) goast.Decl {
	recv := goast.NewIdent("v")
	cases := make([]goast.Stmt, 0, len(e.Variants)+1)
	for tag, variant := range e.Variants {
		var expr goast.Expr
		if len(variant.Types) == 0 {
			expr = strLit(variant.Name)
		} else {
			expr = strLit(variant.Name + "(")
			for i := range variant.Types {
				if i > 0 {
					expr = concat(expr, strLit(", "))
				}
				slot := &goast.IndexExpr{
					X:     &goast.SelectorExpr{X: recv, Sel: goast.NewIdent("payload")},
					Index: intLit(int64(i)),
				}
				expr = concat(expr, callExpr("rillRender", slot, goast.NewIdent("true")))
			}
			expr = concat(expr, strLit(")"))
		}
		cases = append(cases, &goast.CaseClause{
			List: []goast.Expr{intLit(int64(tag))},
			Body: []goast.Stmt{&goast.ReturnStmt{Results: []goast.Expr{expr}}},
		})
	}
	body := []goast.Stmt{
		&goast.SwitchStmt{
			Tag:  &goast.SelectorExpr{X: recv, Sel: goast.NewIdent("tag")},
			Body: &goast.BlockStmt{List: cases},
		},
		&goast.ReturnStmt{Results: []goast.Expr{strLit("?")}},
	}
	return stringMethod(typeName(e.Name), recv, body)
}

func stringMethod(typ string, recv *goast.Ident, body []goast.Stmt) goast.Decl {
	return &goast.FuncDecl{
		Recv: &goast.FieldList{List: []*goast.Field{
			{Names: []*goast.Ident{recv}, Type: &goast.StarExpr{X: goast.NewIdent(typ)}},
		}},
		Name: goast.NewIdent("String"),
		Type: &goast.FuncType{
			Params:  &goast.FieldList{},
			Results: &goast.FieldList{List: []*goast.Field{{Type: goast.NewIdent("string")}}},
		},
		Body: &goast.BlockStmt{List: body},
	}
}

func (g *Generator) genFunction(fn *mir.Function) (goast.Decl, error) {
	g.locals = map[string]mir.Type{}
	ret := fn.Return
	if ret == nil {
		ret = mir.Unit
	}
	g.rets = []mir.Type{ret}
	g.loopDepth = 0

	params := make([]*goast.Field, len(fn.Params))
	for i, p := range fn.Params {
		g.locals[p.Name] = p.Type
		params[i] = &goast.Field{
			Names: []*goast.Ident{goast.NewIdent(localName(p.Name))},
			Type:  goType(p.Type),
		}
	}

	body, err := g.genFuncBody(fn.Body, ret)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", fn.Name, err)
	}

	return &goast.FuncDecl{
		Name: goast.NewIdent(fnName(fn.Name)),
		Type: &goast.FuncType{
			Params:  &goast.FieldList{List: params},
			Results: &goast.FieldList{List: []*goast.Field{{Type: goType(ret)}}},
		},
		Body: &goast.BlockStmt{List: body},
	}, nil
}

// genFuncBody produces the statements of a function whose result type is
// ret. A body without a tail either returns unit implicitly or already
// returns on every path.
func (g *Generator) genFuncBody(body *mir.Block, ret mir.Type) ([]goast.Stmt, error) {
	stmts, err := g.genStmts(body.Stmts)
	if err != nil {
		return nil, err
	}
	if body.Tail != nil {
		tail, err := g.genTail(body.Tail, ret)
		if err != nil {
			return nil, err
		}
		return append(stmts, tail...), nil
	}
	if mir.IsKind(ret, mir.KindUnit) {
		stmts = append(stmts, &goast.ReturnStmt{Results: []goast.Expr{unitLit()}})
	}
	return stmts, nil
}

// genMain emits func main. The entry function's trailing expression is the
// program result; a non-unit result prints the way the evaluator renders
// it.
func (g *Generator) genMain(fn *mir.Function) (goast.Decl, error) {
	g.locals = map[string]mir.Type{}
	g.rets = []mir.Type{mir.Unit}
	g.loopDepth = 0

	stmts, err := g.genStmts(fn.Body.Stmts)
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}
	if tail := fn.Body.Tail; tail != nil {
		if mir.IsKind(tail.Type(), mir.KindUnit) {
			effect, err := g.genEffect(tail)
			if err != nil {
				return nil, fmt.Errorf("entry: %w", err)
			}
			stmts = append(stmts, effect...)
		} else {
			value, err := g.genAnyArg(tail)
			if err != nil {
				return nil, fmt.Errorf("entry: %w", err)
			}
			stmts = append(stmts, &goast.ExprStmt{X: callExpr("rillPrint", value)})
		}
	}

	return &goast.FuncDecl{
		Name: goast.NewIdent("main"),
		Type: &goast.FuncType{Params: &goast.FieldList{}},
		Body: &goast.BlockStmt{List: stmts},
	}, nil
}

// goType maps a lowered type to its Go spelling. Aggregates are pointers
// so assignment through one binding stays visible through another.
func goType(t mir.Type) goast.Expr {
	switch t := t.(type) {
	case *mir.Scalar:
		switch t.Kind {
		case mir.KindInt:
			return goast.NewIdent("int64")
		case mir.KindFloat:
			return goast.NewIdent("float64")
		case mir.KindBool:
			return goast.NewIdent("bool")
		case mir.KindStr:
			return goast.NewIdent("string")
		case mir.KindUnit:
			return goast.NewIdent("rillUnit")
		}
		return goast.NewIdent("any")
	case *mir.FuncType:
		params := make([]*goast.Field, len(t.Params))
		for i, p := range t.Params {
			params[i] = &goast.Field{Type: goType(p)}
		}
		return &goast.FuncType{
			Params:  &goast.FieldList{List: params},
			Results: &goast.FieldList{List: []*goast.Field{{Type: goType(t.Ret)}}},
		}
	case *mir.StructRef:
		return &goast.StarExpr{X: goast.NewIdent(typeName(t.Name))}
	case *mir.EnumRef:
		return &goast.StarExpr{X: goast.NewIdent(typeName(t.Name))}
	case *mir.ArrayRef:
		return &goast.ArrayType{Elt: goType(t.Elem)}
	}
	return goast.NewIdent("any")
}

func isAny(t mir.Type) bool {
	return t == nil || mir.IsKind(t, mir.KindAny)
}

// typesEqual is structural equality on lowered types. The backend refuses
// conversions between distinct concrete types: Go has no coercion between,
// say, func(any) any and func(int64) int64.
func typesEqual(a, b mir.Type) bool {
	switch a := a.(type) {
	case *mir.Scalar:
		bs, ok := b.(*mir.Scalar)
		return ok && a.Kind == bs.Kind
	case *mir.FuncType:
		bf, ok := b.(*mir.FuncType)
		if !ok || len(a.Params) != len(bf.Params) {
			return false
		}
		for i := range a.Params {
			if !typesEqual(a.Params[i], bf.Params[i]) {
				return false
			}
		}
		return typesEqual(toMirType(a.Ret), toMirType(bf.Ret))
	case *mir.StructRef:
		bs, ok := b.(*mir.StructRef)
		return ok && a.Name == bs.Name
	case *mir.EnumRef:
		be, ok := b.(*mir.EnumRef)
		return ok && a.Name == be.Name
	case *mir.ArrayRef:
		ba, ok := b.(*mir.ArrayRef)
		return ok && typesEqual(a.Elem, ba.Elem)
	}
	return false
}
