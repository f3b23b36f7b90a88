package mir

import (
	"strconv"
	"strings"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/lexer"
)

var builtinNames = map[string]bool{
	"print": true,
	"len":   true,
	"str":   true,
}

func (l *lowerer) lowerExpr(e ast.Expr) Expr {
	switch e := e.(type) {
	case *ast.Ident:
		return l.lowerIdent(e)

	case *ast.IntegerLit:
		return &IntConst{Value: parseInt(e.Text)}

	case *ast.FloatLit:
		v, _ := strconv.ParseFloat(strings.ReplaceAll(e.Text, "_", ""), 64)
		return &FloatConst{Value: v}

	case *ast.BoolLit:
		return &BoolConst{Value: e.Value}

	case *ast.StringLit:
		return &StrConst{Value: e.Value}

	case *ast.UnitLit:
		return &UnitConst{}

	case *ast.FStringLit:
		return l.lowerFString(e)

	case *ast.ArrayLit:
		return l.lowerArrayLit(e)

	case *ast.PrefixExpr:
		return l.lowerPrefix(e)

	case *ast.InfixExpr:
		return l.lowerInfix(e)

	case *ast.AssignExpr:
		// Assignment in value position yields unit.
		return &Block{Stmts: []Stmt{l.lowerAssign(e)}, Typ: Unit}

	case *ast.CallExpr:
		return l.lowerCall(e)

	case *ast.IndexExpr:
		return &IndexGet{
			Target: l.lowerExpr(e.Target),
			Index:  l.lowerExpr(e.Index),
			Typ:    l.nodeType(e),
		}

	case *ast.FieldExpr:
		structName, index := l.fieldSlot(e)
		return &FieldGet{
			Target: l.lowerExpr(e.Target),
			Struct: structName,
			Field:  e.Field.Name,
			Index:  index,
			Typ:    l.nodeType(e),
		}

	case *ast.LambdaExpr:
		return l.lowerLambda(e)

	case *ast.IfExpr:
		return l.lowerIf(e)

	case *ast.BlockExpr:
		return l.lowerBlock(e)

	case *ast.MatchExpr:
		return l.lowerMatch(e)

	case *ast.StructLit:
		return l.lowerStructLit(e)

	case *ast.VariantExpr:
		return l.lowerVariant(e, nil)

	default:
		panic("mir: unsupported expression survived checking")
	}
}

func (l *lowerer) lowerIdent(e *ast.Ident) Expr {
	if unique, ok := l.scope.lookup(e.Name); ok {
		return &LocalGet{Name: unique, Typ: l.nodeType(e)}
	}
	if l.fnDecls[e.Name] {
		return &FuncRef{Name: e.Name, Typ: l.nodeType(e)}
	}
	if builtinNames[e.Name] {
		return &FuncRef{Name: e.Name, Builtin: true, Typ: l.nodeType(e)}
	}
	panic("mir: unresolved identifier " + e.Name)
}

// lowerFString stitches an interpolated string into concatenations.
// Non-string fragments pass through ToString.
func (l *lowerer) lowerFString(e *ast.FStringLit) Expr {
	var acc Expr
	push := func(part Expr) {
		if acc == nil {
			acc = part
			return
		}
		acc = &StringConcat{L: acc, R: part}
	}

	for _, part := range e.Parts {
		if part.Expr == nil {
			push(&StrConst{Value: part.Text})
			continue
		}
		lowered := l.lowerExpr(part.Expr)
		if IsKind(lowered.Type(), KindStr) {
			push(lowered)
		} else {
			push(&ToString{Operand: lowered})
		}
	}

	if acc == nil {
		return &StrConst{Value: ""}
	}
	return acc
}

func (l *lowerer) lowerArrayLit(e *ast.ArrayLit) Expr {
	var elemType Type = Any
	if arr, ok := l.nodeType(e).(*ArrayRef); ok {
		elemType = arr.Elem
	}
	out := &ArrayNew{Elem: elemType}
	for _, el := range e.Elems {
		out.Elems = append(out.Elems, l.lowerExpr(el))
	}
	return out
}

func (l *lowerer) lowerPrefix(e *ast.PrefixExpr) Expr {
	operand := l.lowerExpr(e.Expr)
	switch e.Op {
	case lexer.MINUS:
		return &Unary{Op: OpNeg, Operand: operand, Typ: operand.Type()}
	case lexer.BANG:
		return &Unary{Op: OpNot, Operand: operand, Typ: Bool}
	default:
		panic("mir: unsupported prefix operator")
	}
}

// lowerInfix translates binary operators. Logical operators become
// conditionals so the right operand only evaluates when it must; string
// `+` becomes StringConcat.
func (l *lowerer) lowerInfix(e *ast.InfixExpr) Expr {
	switch e.Op {
	case lexer.AND:
		return &If{
			Cond: l.lowerExpr(e.Left),
			Then: l.lowerExpr(e.Right),
			Else: &BoolConst{Value: false},
			Typ:  Bool,
		}
	case lexer.OR:
		return &If{
			Cond: l.lowerExpr(e.Left),
			Then: &BoolConst{Value: true},
			Else: l.lowerExpr(e.Right),
			Typ:  Bool,
		}
	}

	left := l.lowerExpr(e.Left)
	right := l.lowerExpr(e.Right)

	if e.Op == lexer.PLUS && IsKind(left.Type(), KindStr) {
		return &StringConcat{L: left, R: right}
	}

	op, isCompare := binOpFor(e.Op)
	typ := left.Type()
	if isCompare {
		typ = Bool
	}
	return &Binary{Op: op, L: left, R: right, Typ: typ}
}

func binOpFor(tt lexer.TokenType) (BinOp, bool) {
	switch tt {
	case lexer.PLUS:
		return OpAdd, false
	case lexer.MINUS:
		return OpSub, false
	case lexer.ASTERISK:
		return OpMul, false
	case lexer.SLASH:
		return OpDiv, false
	case lexer.PERCENT:
		return OpMod, false
	case lexer.EQ:
		return OpEq, true
	case lexer.NOT_EQ:
		return OpNe, true
	case lexer.LT:
		return OpLt, true
	case lexer.LE:
		return OpLe, true
	case lexer.GT:
		return OpGt, true
	case lexer.GE:
		return OpGe, true
	}
	panic("mir: unsupported binary operator")
}

// lowerCall handles direct builtin calls specially: `len` and `str` have
// dedicated nodes, and enum constructors build values instead of calling
// anything.
func (l *lowerer) lowerCall(e *ast.CallExpr) Expr {
	if ve, ok := e.Callee.(*ast.VariantExpr); ok {
		args := make([]Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = l.lowerExpr(arg)
		}
		return l.lowerVariant(ve, args)
	}

	if id, ok := e.Callee.(*ast.Ident); ok && builtinNames[id.Name] {
		if _, shadowed := l.scope.lookup(id.Name); !shadowed {
			switch id.Name {
			case "len":
				return &ArrayLen{Target: l.lowerExpr(e.Args[0])}
			case "str":
				arg := l.lowerExpr(e.Args[0])
				if IsKind(arg.Type(), KindStr) {
					return arg
				}
				return &ToString{Operand: arg}
			}
		}
	}

	callee := l.lowerExpr(e.Callee)
	out := &Call{Callee: callee, Typ: l.nodeType(e)}
	for _, arg := range e.Args {
		out.Args = append(out.Args, l.lowerExpr(arg))
	}
	return out
}

func (l *lowerer) lowerLambda(e *ast.LambdaExpr) Expr {
	typ := l.nodeType(e)
	ft, ok := typ.(*FuncType)
	if !ok {
		ft = &FuncType{Ret: Any}
		for range e.Params {
			ft.Params = append(ft.Params, Any)
		}
	}

	outer := l.scope
	l.scope = newScope(outer)

	out := &Lambda{Typ: ft}
	for i, p := range e.Params {
		var pt Type = Any
		if i < len(ft.Params) {
			pt = ft.Params[i]
		}
		out.Params = append(out.Params, Param{Name: l.bind(p.Name), Type: pt})
	}
	out.Body = l.lowerExpr(e.Body)

	l.scope = outer
	return out
}

func (l *lowerer) lowerIf(e *ast.IfExpr) Expr {
	out := &If{
		Cond: l.lowerExpr(e.Cond),
		Then: l.lowerBlock(e.Then),
		Typ:  l.nodeType(e),
	}
	if e.Else != nil {
		out.Else = l.lowerExpr(e.Else)
	} else {
		out.Typ = Unit
	}
	return out
}

// lowerStructLit evaluates field initializers in declaration order,
// regardless of the order they were written.
func (l *lowerer) lowerStructLit(e *ast.StructLit) Expr {
	def, ok := l.module.FindStruct(e.Name.Name)
	if !ok {
		panic("mir: unknown struct " + e.Name.Name)
	}

	byName := make(map[string]ast.Expr, len(e.Fields))
	for _, f := range e.Fields {
		byName[f.Name.Name] = f.Value
	}

	out := &StructNew{Struct: def.Name}
	for _, field := range def.Fields {
		init, ok := byName[field.Name]
		if !ok {
			panic("mir: missing field survived checking: " + field.Name)
		}
		out.Fields = append(out.Fields, l.lowerExpr(init))
	}
	return out
}

// lowerVariant builds an enum value. A bare payload-carrying variant used
// as a function value becomes a constructor lambda.
func (l *lowerer) lowerVariant(e *ast.VariantExpr, args []Expr) Expr {
	def, ok := l.module.FindEnum(e.Enum.Name)
	if !ok {
		panic("mir: unknown enum " + e.Enum.Name)
	}
	tag := def.Tag(e.Variant.Name)
	if tag < 0 {
		panic("mir: unknown variant " + e.Variant.Name)
	}
	variant := def.Variants[tag]

	if args == nil && len(variant.Types) > 0 {
		// Referenced as a value: eta-expand into a constructor.
		lam := &Lambda{Typ: &FuncType{Params: variant.Types, Ret: EnumType(def.Name)}}
		ctor := &EnumNew{Enum: def.Name, Variant: variant.Name, Tag: tag}
		for _, pt := range variant.Types {
			name := l.temp()
			lam.Params = append(lam.Params, Param{Name: name, Type: pt})
			ctor.Args = append(ctor.Args, &LocalGet{Name: name, Typ: pt})
		}
		lam.Body = ctor
		return lam
	}

	return &EnumNew{Enum: def.Name, Variant: variant.Name, Tag: tag, Args: args}
}

func parseInt(text string) int64 {
	text = strings.ReplaceAll(text, "_", "")
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

	v, _ := strconv.ParseInt(digits, base, 64)
	return v
}
