package codegen

import (
	goast "go/ast"
	"go/token"
	"strconv"
	"strings"

	"github.com/rill-lang/rill/internal/mir"
)

func (g *Generator) genExpr(e mir.Expr) (goast.Expr, error) {
	switch e := e.(type) {
	case *mir.IntConst:
		return intLit(e.Value), nil
	case *mir.FloatConst:
		return floatLit(e.Value), nil
	case *mir.BoolConst:
		return goast.NewIdent(strconv.FormatBool(e.Value)), nil
	case *mir.StrConst:
		return strLit(e.Value), nil
	case *mir.UnitConst:
		return unitLit(), nil
	case *mir.LocalGet:
		return goast.NewIdent(localName(e.Name)), nil
	case *mir.FuncRef:
		return g.genFuncRef(e)
	case *mir.Binary:
		return g.genBinary(e)
	case *mir.Unary:
		return g.genUnary(e)
	case *mir.StringConcat:
		l, err := g.genOperand(e.L)
		if err != nil {
			return nil, err
		}
		r, err := g.genOperand(e.R)
		if err != nil {
			return nil, err
		}
		return binary(l, token.ADD, r), nil
	case *mir.ToString:
		arg, err := g.genAnyArg(e.Operand)
		if err != nil {
			return nil, err
		}
		return callExpr("rillStr", arg), nil
	case *mir.ArrayLen:
		return g.genArrayLen(e.Target)
	case *mir.Call:
		return g.genCall(e)
	case *mir.Lambda:
		return g.genLambda(e)
	case *mir.If:
		return g.genIfExpr(e)
	case *mir.Block:
		return g.genIIFE(e, e.Typ)
	case *mir.StructNew:
		return g.genStructNew(e)
	case *mir.FieldGet:
		target, err := g.genConverted(e.Target, mir.StructType(e.Struct))
		if err != nil {
			return nil, err
		}
		return &goast.SelectorExpr{X: target, Sel: goast.NewIdent(fieldName(e.Field))}, nil
	case *mir.EnumNew:
		return g.genEnumNew(e)
	case *mir.EnumTag:
		if _, ok := e.Target.Type().(*mir.EnumRef); !ok {
			return nil, unsupported("tag of a value of unresolved type")
		}
		target, err := g.genOperand(e.Target)
		if err != nil {
			return nil, err
		}
		return &goast.SelectorExpr{X: target, Sel: goast.NewIdent("tag")}, nil
	case *mir.EnumPayload:
		return g.genEnumPayload(e)
	case *mir.ArrayNew:
		return g.genArrayNew(e)
	case *mir.IndexGet:
		return g.genIndexGet(e)
	case *mir.Unreachable:
		return g.genIIFE(e, e.Typ)
	}
	return nil, unsupported("expression %T", e)
}

// exprType is the type an expression has in the generated Go program. For
// locals that is the declared type, which can be more general than the
// use-site type when the binding was generalized.
func (g *Generator) exprType(e mir.Expr) mir.Type {
	if lg, ok := e.(*mir.LocalGet); ok {
		if t, ok := g.locals[lg.Name]; ok {
			return t
		}
	}
	return e.Type()
}

// genOperand generates e at its use-site type, asserting when the declared
// type is more general.
func (g *Generator) genOperand(e mir.Expr) (goast.Expr, error) {
	return g.genConverted(e, e.Type())
}

// genConverted generates e for a position of type want, inserting the
// boxing or assertion the Go type system needs when the generated type and
// the target disagree about Any.
func (g *Generator) genConverted(e mir.Expr, want mir.Type) (goast.Expr, error) {
	if isAny(want) {
		return g.genAnyArg(e)
	}
	x, err := g.genExpr(e)
	if err != nil {
		return nil, err
	}
	have := g.exprType(e)
	if isAny(have) {
		return &goast.TypeAssertExpr{X: x, Type: goType(want)}, nil
	}
	if !typesEqual(have, want) {
		return nil, unsupported("value of type %s where %s is expected", have, want)
	}
	return x, nil
}

// genAnyArg generates e for an any-typed position. A bare integer literal
// must be spelled int64 there, or Go would box the default int and later
// assertions would miss.
func (g *Generator) genAnyArg(e mir.Expr) (goast.Expr, error) {
	x, err := g.genExpr(e)
	if err != nil {
		return nil, err
	}
	if _, ok := e.(*mir.IntConst); ok {
		return &goast.CallExpr{Fun: goast.NewIdent("int64"), Args: []goast.Expr{x}}, nil
	}
	return x, nil
}

func (g *Generator) genFuncRef(e *mir.FuncRef) (goast.Expr, error) {
	if !e.Builtin {
		return goast.NewIdent(fnName(e.Name)), nil
	}
	// A builtin used as a value gets wrapped at the reference's own type,
	// so it is assignable wherever the checker allowed it.
	ft, ok := e.Typ.(*mir.FuncType)
	if !ok || len(ft.Params) != 1 {
		return nil, unsupported("builtin %s as a value of type %s", e.Name, e.Typ)
	}
	param := goast.NewIdent("v")
	var body goast.Expr
	switch e.Name {
	case "print":
		body = callExpr("rillPrint", param)
	case "str":
		body = callExpr("rillStr", param)
	case "len":
		if _, ok := ft.Params[0].(*mir.ArrayRef); ok {
			body = &goast.CallExpr{
				Fun:  goast.NewIdent("int64"),
				Args: []goast.Expr{callExpr("len", param)},
			}
		} else {
			body = callExpr("rillLenAny", param)
		}
	default:
		return nil, unsupported("builtin %s", e.Name)
	}
	return &goast.FuncLit{
		Type: &goast.FuncType{
			Params: &goast.FieldList{List: []*goast.Field{
				{Names: []*goast.Ident{param}, Type: goType(ft.Params[0])},
			}},
			Results: &goast.FieldList{List: []*goast.Field{{Type: goType(ft.Ret)}}},
		},
		Body: &goast.BlockStmt{List: []goast.Stmt{
			&goast.ReturnStmt{Results: []goast.Expr{body}},
		}},
	}, nil
}

func (g *Generator) genBinary(e *mir.Binary) (goast.Expr, error) {
	operand := e.L.Type()
	switch e.Op {
	case mir.OpAdd, mir.OpSub, mir.OpMul, mir.OpDiv, mir.OpMod:
		l, err := g.genOperand(e.L)
		if err != nil {
			return nil, err
		}
		r, err := g.genOperand(e.R)
		if err != nil {
			return nil, err
		}
		if mir.IsKind(operand, mir.KindFloat) {
			return callExpr(floatArith[e.Op], l, r), nil
		}
		return callExpr(intArith[e.Op], l, r), nil
	case mir.OpLt, mir.OpLe, mir.OpGt, mir.OpGe:
		l, err := g.genOperand(e.L)
		if err != nil {
			return nil, err
		}
		r, err := g.genOperand(e.R)
		if err != nil {
			return nil, err
		}
		return binary(l, compareTok[e.Op], r), nil
	case mir.OpEq, mir.OpNe:
		return g.genEquality(e)
	}
	return nil, unsupported("operator %s", e.Op)
}

var intArith = map[mir.BinOp]string{
	mir.OpAdd: "rillAdd",
	mir.OpSub: "rillSub",
	mir.OpMul: "rillMul",
	mir.OpDiv: "rillDiv",
	mir.OpMod: "rillMod",
}

var floatArith = map[mir.BinOp]string{
	mir.OpAdd: "rillFadd",
	mir.OpSub: "rillFsub",
	mir.OpMul: "rillFmul",
	mir.OpDiv: "rillFdiv",
}

var compareTok = map[mir.BinOp]token.Token{
	mir.OpLt: token.LSS,
	mir.OpLe: token.LEQ,
	mir.OpGt: token.GTR,
	mir.OpGe: token.GEQ,
}

// genEquality compares scalars with Go operators and everything else
// structurally through the prelude.
func (g *Generator) genEquality(e *mir.Binary) (goast.Expr, error) {
	if mir.IsScalar(e.L.Type()) {
		l, err := g.genOperand(e.L)
		if err != nil {
			return nil, err
		}
		r, err := g.genOperand(e.R)
		if err != nil {
			return nil, err
		}
		tok := token.EQL
		if e.Op == mir.OpNe {
			tok = token.NEQ
		}
		return binary(l, tok, r), nil
	}
	l, err := g.genAnyArg(e.L)
	if err != nil {
		return nil, err
	}
	r, err := g.genAnyArg(e.R)
	if err != nil {
		return nil, err
	}
	var eq goast.Expr = callExpr("rillEq", l, r)
	if e.Op == mir.OpNe {
		eq = &goast.UnaryExpr{Op: token.NOT, X: &goast.ParenExpr{X: eq}}
	}
	return eq, nil
}

func (g *Generator) genUnary(e *mir.Unary) (goast.Expr, error) {
	x, err := g.genOperand(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case mir.OpNeg:
		if mir.IsKind(e.Operand.Type(), mir.KindFloat) {
			return &goast.UnaryExpr{Op: token.SUB, X: paren(x)}, nil
		}
		return callExpr("rillNeg", x), nil
	case mir.OpNot:
		return &goast.UnaryExpr{Op: token.NOT, X: paren(x)}, nil
	}
	return nil, unsupported("unary operator %d", e.Op)
}

func (g *Generator) genArrayLen(target mir.Expr) (goast.Expr, error) {
	if isAny(target.Type()) {
		x, err := g.genAnyArg(target)
		if err != nil {
			return nil, err
		}
		return callExpr("rillLenAny", x), nil
	}
	x, err := g.genOperand(target)
	if err != nil {
		return nil, err
	}
	return &goast.CallExpr{
		Fun:  goast.NewIdent("int64"),
		Args: []goast.Expr{callExpr("len", x)},
	}, nil
}

func (g *Generator) genCall(e *mir.Call) (goast.Expr, error) {
	// Direct builtin calls skip the value wrapper.
	if ref, ok := e.Callee.(*mir.FuncRef); ok && ref.Builtin {
		return g.genBuiltinCall(ref.Name, e)
	}

	var callee goast.Expr
	ft, ok := g.exprType(e.Callee).(*mir.FuncType)
	if ok {
		var err error
		callee, err = g.genExpr(e.Callee)
		if err != nil {
			return nil, err
		}
		if _, ok := e.Callee.(*mir.Lambda); ok {
			callee = &goast.ParenExpr{X: callee}
		}
	} else if useFt, resolved := e.Callee.Type().(*mir.FuncType); resolved && isAny(g.exprType(e.Callee)) {
		// The binding never resolved but the call site did; assert down to
		// the concrete function type before calling.
		ft = useFt
		asserted, err := g.genOperand(e.Callee)
		if err != nil {
			return nil, err
		}
		callee = &goast.ParenExpr{X: asserted}
	} else {
		return nil, unsupported("call through a value of unresolved type %s", g.exprType(e.Callee))
	}
	var err error
	args := make([]goast.Expr, len(e.Args))
	for i, a := range e.Args {
		var want mir.Type = mir.Any
		if i < len(ft.Params) {
			want = toMirType(ft.Params[i])
		}
		args[i], err = g.genConverted(a, want)
		if err != nil {
			return nil, err
		}
	}
	var call goast.Expr = &goast.CallExpr{Fun: callee, Args: args}
	if isAny(ft.Ret) && !isAny(e.Typ) {
		call = &goast.TypeAssertExpr{X: call, Type: goType(e.Typ)}
	}
	return call, nil
}

func toMirType(t mir.Type) mir.Type {
	if t == nil {
		return mir.Any
	}
	return t
}

func (g *Generator) genBuiltinCall(name string, e *mir.Call) (goast.Expr, error) {
	if len(e.Args) != 1 {
		return nil, unsupported("builtin %s with %d arguments", name, len(e.Args))
	}
	switch name {
	case "print":
		arg, err := g.genAnyArg(e.Args[0])
		if err != nil {
			return nil, err
		}
		return callExpr("rillPrint", arg), nil
	case "str":
		arg, err := g.genAnyArg(e.Args[0])
		if err != nil {
			return nil, err
		}
		return callExpr("rillStr", arg), nil
	case "len":
		return g.genArrayLen(e.Args[0])
	}
	return nil, unsupported("builtin %s", name)
}

func (g *Generator) genLambda(e *mir.Lambda) (goast.Expr, error) {
	ft, ok := e.Typ.(*mir.FuncType)
	if !ok {
		return nil, unsupported("function literal of unresolved type %s", e.Typ)
	}
	fields := make([]*goast.Field, len(e.Params))
	for i, p := range e.Params {
		g.locals[p.Name] = p.Type
		fields[i] = &goast.Field{
			Names: []*goast.Ident{goast.NewIdent(localName(p.Name))},
			Type:  goType(p.Type),
		}
	}
	ret := toMirType(ft.Ret)

	// The literal is its own function: a loop outside it cannot be a
	// break target inside it.
	savedDepth := g.loopDepth
	g.loopDepth = 0
	g.rets = append(g.rets, ret)
	body, err := g.genTail(e.Body, ret)
	g.rets = g.rets[:len(g.rets)-1]
	g.loopDepth = savedDepth
	if err != nil {
		return nil, err
	}

	return &goast.FuncLit{
		Type: &goast.FuncType{
			Params:  &goast.FieldList{List: fields},
			Results: &goast.FieldList{List: []*goast.Field{{Type: goType(ret)}}},
		},
		Body: &goast.BlockStmt{List: body},
	}, nil
}

// genIfExpr handles conditionals in value position. The two shapes
// short-circuit lowering produces come back as && and ||; everything else
// becomes a called function literal.
func (g *Generator) genIfExpr(e *mir.If) (goast.Expr, error) {
	if mir.IsKind(e.Typ, mir.KindBool) {
		if b, ok := e.Else.(*mir.BoolConst); ok && !b.Value {
			l, err := g.genOperand(e.Cond)
			if err != nil {
				return nil, err
			}
			r, err := g.genOperand(e.Then)
			if err != nil {
				return nil, err
			}
			return binary(l, token.LAND, r), nil
		}
		if b, ok := e.Then.(*mir.BoolConst); ok && b.Value && e.Else != nil {
			l, err := g.genOperand(e.Cond)
			if err != nil {
				return nil, err
			}
			r, err := g.genOperand(e.Else)
			if err != nil {
				return nil, err
			}
			return binary(l, token.LOR, r), nil
		}
	}
	return g.genIIFE(e, e.Typ)
}

// genIIFE wraps a block-like expression in a called function literal.
// Control flow that would escape the literal cannot be expressed this way.
func (g *Generator) genIIFE(e mir.Expr, typ mir.Type) (goast.Expr, error) {
	if escapes(e, false) {
		return nil, unsupported("return, break, or continue inside an expression used as a value")
	}
	if typ == nil {
		typ = mir.Unit
	}
	g.rets = append(g.rets, typ)
	body, err := g.genTail(e, typ)
	g.rets = g.rets[:len(g.rets)-1]
	if err != nil {
		return nil, err
	}
	lit := &goast.FuncLit{
		Type: &goast.FuncType{
			Params:  &goast.FieldList{},
			Results: &goast.FieldList{List: []*goast.Field{{Type: goType(typ)}}},
		},
		Body: &goast.BlockStmt{List: body},
	}
	return &goast.CallExpr{Fun: &goast.ParenExpr{X: lit}}, nil
}

// escapes reports whether evaluating e could run a return, or a break or
// continue bound outside e. Nested function literals scope their own
// control flow.
func escapes(e mir.Expr, inLoop bool) bool {
	switch e := e.(type) {
	case *mir.If:
		return escapes(e.Cond, inLoop) || escapes(e.Then, inLoop) || (e.Else != nil && escapes(e.Else, inLoop))
	case *mir.Block:
		for _, s := range e.Stmts {
			if stmtEscapes(s, inLoop) {
				return true
			}
		}
		return e.Tail != nil && escapes(e.Tail, inLoop)
	case *mir.Binary:
		return escapes(e.L, inLoop) || escapes(e.R, inLoop)
	case *mir.Unary:
		return escapes(e.Operand, inLoop)
	case *mir.StringConcat:
		return escapes(e.L, inLoop) || escapes(e.R, inLoop)
	case *mir.ToString:
		return escapes(e.Operand, inLoop)
	case *mir.ArrayLen:
		return escapes(e.Target, inLoop)
	case *mir.Call:
		if escapes(e.Callee, inLoop) {
			return true
		}
		for _, a := range e.Args {
			if escapes(a, inLoop) {
				return true
			}
		}
		return false
	case *mir.StructNew:
		for _, f := range e.Fields {
			if escapes(f, inLoop) {
				return true
			}
		}
		return false
	case *mir.EnumNew:
		for _, a := range e.Args {
			if escapes(a, inLoop) {
				return true
			}
		}
		return false
	case *mir.FieldGet:
		return escapes(e.Target, inLoop)
	case *mir.EnumTag:
		return escapes(e.Target, inLoop)
	case *mir.EnumPayload:
		return escapes(e.Target, inLoop)
	case *mir.ArrayNew:
		for _, el := range e.Elems {
			if escapes(el, inLoop) {
				return true
			}
		}
		return false
	case *mir.IndexGet:
		return escapes(e.Target, inLoop) || escapes(e.Index, inLoop)
	}
	return false
}

func stmtEscapes(s mir.Stmt, inLoop bool) bool {
	switch s := s.(type) {
	case *mir.Return:
		return true
	case *mir.Break, *mir.Continue:
		return !inLoop
	case *mir.LocalDecl:
		return escapes(s.Value, inLoop)
	case *mir.LocalSet:
		return escapes(s.Value, inLoop)
	case *mir.SetIndex:
		return escapes(s.Target, inLoop) || escapes(s.Index, inLoop) || escapes(s.Value, inLoop)
	case *mir.SetField:
		return escapes(s.Target, inLoop) || escapes(s.Value, inLoop)
	case *mir.ExprStmt:
		return escapes(s.Expr, inLoop)
	case *mir.Loop:
		if s.Cond != nil && escapes(s.Cond, inLoop) {
			return true
		}
		for _, p := range s.Post {
			if stmtEscapes(p, true) {
				return true
			}
		}
		return escapes(s.Body, true)
	}
	return false
}

func (g *Generator) genStructNew(e *mir.StructNew) (goast.Expr, error) {
	def, ok := g.module.FindStruct(e.Struct)
	if !ok {
		return nil, unsupported("struct %s", e.Struct)
	}
	elts := make([]goast.Expr, len(e.Fields))
	for i, f := range e.Fields {
		value, err := g.genConverted(f, def.Fields[i].Type)
		if err != nil {
			return nil, err
		}
		elts[i] = &goast.KeyValueExpr{
			Key:   goast.NewIdent(fieldName(def.Fields[i].Name)),
			Value: value,
		}
	}
	return &goast.UnaryExpr{
		Op: token.AND,
		X: &goast.CompositeLit{
			Type: goast.NewIdent(typeName(e.Struct)),
			Elts: elts,
		},
	}, nil
}

func (g *Generator) genEnumNew(e *mir.EnumNew) (goast.Expr, error) {
	elts := []goast.Expr{
		&goast.KeyValueExpr{Key: goast.NewIdent("tag"), Value: intLit(int64(e.Tag))},
	}
	if len(e.Args) > 0 {
		payload := make([]goast.Expr, len(e.Args))
		for i, a := range e.Args {
			value, err := g.genAnyArg(a)
			if err != nil {
				return nil, err
			}
			payload[i] = value
		}
		elts = append(elts, &goast.KeyValueExpr{
			Key: goast.NewIdent("payload"),
			Value: &goast.CompositeLit{
				Type: &goast.ArrayType{Elt: goast.NewIdent("any")},
				Elts: payload,
			},
		})
	}
	return &goast.UnaryExpr{
		Op: token.AND,
		X: &goast.CompositeLit{
			Type: goast.NewIdent(typeName(e.Enum)),
			Elts: elts,
		},
	}, nil
}

func (g *Generator) genEnumPayload(e *mir.EnumPayload) (goast.Expr, error) {
	if _, ok := e.Target.Type().(*mir.EnumRef); !ok {
		return nil, unsupported("payload of a value of unresolved type")
	}
	target, err := g.genOperand(e.Target)
	if err != nil {
		return nil, err
	}
	var slot goast.Expr = &goast.IndexExpr{
		X:     &goast.SelectorExpr{X: target, Sel: goast.NewIdent("payload")},
		Index: intLit(int64(e.Index)),
	}
	if !isAny(e.Typ) {
		slot = &goast.TypeAssertExpr{X: slot, Type: goType(e.Typ)}
	}
	return slot, nil
}

func (g *Generator) genArrayNew(e *mir.ArrayNew) (goast.Expr, error) {
	elts := make([]goast.Expr, len(e.Elems))
	for i, el := range e.Elems {
		value, err := g.genConverted(el, e.Elem)
		if err != nil {
			return nil, err
		}
		elts[i] = value
	}
	return &goast.CompositeLit{
		Type: &goast.ArrayType{Elt: goType(e.Elem)},
		Elts: elts,
	}, nil
}

func (g *Generator) genIndexGet(e *mir.IndexGet) (goast.Expr, error) {
	if isAny(e.Target.Type()) {
		return nil, unsupported("indexing a value of unresolved type")
	}
	target, err := g.genOperand(e.Target)
	if err != nil {
		return nil, err
	}
	index, err := g.genOperand(e.Index)
	if err != nil {
		return nil, err
	}
	return callExpr("rillIndex", target, index), nil
}

func intLit(v int64) goast.Expr {
	if v < 0 {
		return &goast.UnaryExpr{
			Op: token.SUB,
			X:  &goast.BasicLit{Kind: token.INT, Value: strconv.FormatUint(uint64(-v), 10)},
		}
	}
	return &goast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(v, 10)}
}

// floatLit always spells a decimal point so the literal stays a float
// constant in any context.
func floatLit(v float64) goast.Expr {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return &goast.BasicLit{Kind: token.FLOAT, Value: s}
}

func strLit(v string) goast.Expr {
	return &goast.BasicLit{Kind: token.STRING, Value: strconv.Quote(v)}
}

func unitLit() goast.Expr {
	return &goast.CompositeLit{Type: goast.NewIdent("rillUnit")}
}

func callExpr(name string, args ...goast.Expr) goast.Expr {
	return &goast.CallExpr{Fun: goast.NewIdent(name), Args: args}
}

// binary builds an operator expression, parenthesizing operand subtrees
// the printer would otherwise rebind.
func binary(l goast.Expr, op token.Token, r goast.Expr) goast.Expr {
	return &goast.BinaryExpr{X: paren(l), Op: op, Y: paren(r)}
}

func concat(l, r goast.Expr) goast.Expr {
	return binary(l, token.ADD, r)
}

func paren(x goast.Expr) goast.Expr {
	switch x.(type) {
	case *goast.BinaryExpr, *goast.UnaryExpr, *goast.FuncLit, *goast.TypeAssertExpr:
		return &goast.ParenExpr{X: x}
	}
	return x
}
