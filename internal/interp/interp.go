package interp

import (
	"errors"
	"io"
	"math"

	"github.com/rill-lang/rill/internal/mir"
)

const defaultMaxDepth = 10_000

// Option configures an interpreter.
type Option func(*Interpreter)

// WithOutput directs `print` output to w. The default discards it.
func WithOutput(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithMaxDepth caps call nesting before evaluation fails with a stack
// overflow error.
func WithMaxDepth(n int) Option {
	return func(i *Interpreter) { i.maxDepth = n }
}

// Interpreter evaluates a lowered module.
type Interpreter struct {
	module   *mir.Module
	out      io.Writer
	depth    int
	maxDepth int
}

// New creates an interpreter for a module.
func New(module *mir.Module, opts ...Option) *Interpreter {
	i := &Interpreter{
		module:   module,
		out:      io.Discard,
		maxDepth: defaultMaxDepth,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run evaluates the module's entry function and returns the program
// result.
func (i *Interpreter) Run() (Value, error) {
	v, err := i.evalBlock(NewEnv(nil), i.module.Main.Body)
	if err != nil {
		var ret returnSignal
		if errors.As(err, &ret) {
			return ret.value, nil
		}
		return Value{}, err
	}
	return v, nil
}

// Call invokes a named module function with already-constructed values.
func (i *Interpreter) Call(name string, args []Value) (Value, error) {
	fn, ok := i.module.FindFunction(name)
	if !ok {
		return Value{}, runtimeErr(ErrBadProgram, "no function named %s", name)
	}
	closure := &Closure{Params: fn.Params, Body: fn.Body}
	return i.invoke(closure, args)
}

func (i *Interpreter) evalExpr(env *Env, e mir.Expr) (Value, error) {
	switch e := e.(type) {
	case *mir.IntConst:
		return intValue(e.Value), nil
	case *mir.FloatConst:
		return floatValue(e.Value), nil
	case *mir.BoolConst:
		return boolValue(e.Value), nil
	case *mir.StrConst:
		return strValue(e.Value), nil
	case *mir.UnitConst:
		return unit, nil

	case *mir.LocalGet:
		v, ok := env.Get(e.Name)
		if !ok {
			return Value{}, runtimeErr(ErrBadProgram, "unbound local %s", e.Name)
		}
		return v, nil

	case *mir.FuncRef:
		if e.Builtin {
			return Value{Kind: KindBuiltin, Builtin: e.Name}, nil
		}
		fn, ok := i.module.FindFunction(e.Name)
		if !ok {
			return Value{}, runtimeErr(ErrBadProgram, "no function named %s", e.Name)
		}
		return Value{Kind: KindClosure, Closure: &Closure{Params: fn.Params, Body: fn.Body}}, nil

	case *mir.Binary:
		return i.evalBinary(env, e)

	case *mir.Unary:
		return i.evalUnary(env, e)

	case *mir.StringConcat:
		l, err := i.evalExpr(env, e.L)
		if err != nil {
			return Value{}, err
		}
		r, err := i.evalExpr(env, e.R)
		if err != nil {
			return Value{}, err
		}
		return strValue(l.Str + r.Str), nil

	case *mir.ToString:
		v, err := i.evalExpr(env, e.Operand)
		if err != nil {
			return Value{}, err
		}
		return strValue(v.Render()), nil

	case *mir.ArrayLen:
		v, err := i.evalExpr(env, e.Target)
		if err != nil {
			return Value{}, err
		}
		return intValue(int64(len(v.Array.Elems))), nil

	case *mir.Call:
		return i.evalCall(env, e)

	case *mir.Lambda:
		return Value{Kind: KindClosure, Closure: &Closure{
			Params: e.Params,
			Body:   e.Body,
			Env:    env,
		}}, nil

	case *mir.If:
		cond, err := i.evalExpr(env, e.Cond)
		if err != nil {
			return Value{}, err
		}
		if cond.Bool {
			v, err := i.evalExpr(env, e.Then)
			if err != nil {
				return Value{}, err
			}
			if e.Else == nil {
				return unit, nil
			}
			return v, nil
		}
		if e.Else == nil {
			return unit, nil
		}
		return i.evalExpr(env, e.Else)

	case *mir.Block:
		return i.evalBlock(NewEnv(env), e)

	case *mir.StructNew:
		fields := make([]Value, len(e.Fields))
		for idx, f := range e.Fields {
			v, err := i.evalExpr(env, f)
			if err != nil {
				return Value{}, err
			}
			fields[idx] = v
		}
		sv := &StructValue{Name: e.Struct, Fields: fields}
		if def, ok := i.module.FindStruct(e.Struct); ok {
			for _, fd := range def.Fields {
				sv.FieldNames = append(sv.FieldNames, fd.Name)
			}
		}
		return Value{Kind: KindStruct, Struct: sv}, nil

	case *mir.FieldGet:
		v, err := i.evalExpr(env, e.Target)
		if err != nil {
			return Value{}, err
		}
		return v.Struct.Fields[e.Index], nil

	case *mir.EnumNew:
		payload := make([]Value, len(e.Args))
		for idx, arg := range e.Args {
			v, err := i.evalExpr(env, arg)
			if err != nil {
				return Value{}, err
			}
			payload[idx] = v
		}
		return Value{Kind: KindEnum, Enum: &EnumValue{
			Enum:    e.Enum,
			Variant: e.Variant,
			Tag:     e.Tag,
			Payload: payload,
		}}, nil

	case *mir.EnumTag:
		v, err := i.evalExpr(env, e.Target)
		if err != nil {
			return Value{}, err
		}
		return intValue(int64(v.Enum.Tag)), nil

	case *mir.EnumPayload:
		v, err := i.evalExpr(env, e.Target)
		if err != nil {
			return Value{}, err
		}
		return v.Enum.Payload[e.Index], nil

	case *mir.ArrayNew:
		elems := make([]Value, len(e.Elems))
		for idx, el := range e.Elems {
			v, err := i.evalExpr(env, el)
			if err != nil {
				return Value{}, err
			}
			elems[idx] = v
		}
		return Value{Kind: KindArray, Array: &ArrayValue{Elems: elems}}, nil

	case *mir.IndexGet:
		target, err := i.evalExpr(env, e.Target)
		if err != nil {
			return Value{}, err
		}
		idx, err := i.evalExpr(env, e.Index)
		if err != nil {
			return Value{}, err
		}
		if idx.Int < 0 || idx.Int >= int64(len(target.Array.Elems)) {
			return Value{}, runtimeErr(ErrIndexOutOfBounds,
				"index %d on array of length %d", idx.Int, len(target.Array.Elems))
		}
		return target.Array.Elems[idx.Int], nil

	case *mir.Unreachable:
		return Value{}, runtimeErr(ErrUnreachable, "no match arm applied")

	default:
		return Value{}, runtimeErr(ErrBadProgram, "unsupported expression %T", e)
	}
}

// evalBlock runs a block's statements in the given environment. The caller
// decides whether to open a fresh frame.
func (i *Interpreter) evalBlock(env *Env, b *mir.Block) (Value, error) {
	for _, stmt := range b.Stmts {
		if err := i.execStmt(env, stmt); err != nil {
			return Value{}, err
		}
	}
	if b.Tail == nil {
		return unit, nil
	}
	return i.evalExpr(env, b.Tail)
}

func (i *Interpreter) execStmt(env *Env, stmt mir.Stmt) error {
	switch s := stmt.(type) {
	case *mir.LocalDecl:
		v, err := i.evalExpr(env, s.Value)
		if err != nil {
			return err
		}
		env.Define(s.Name, v)
		return nil

	case *mir.LocalSet:
		v, err := i.evalExpr(env, s.Value)
		if err != nil {
			return err
		}
		if !env.Set(s.Name, v) {
			return runtimeErr(ErrBadProgram, "assignment to unbound local %s", s.Name)
		}
		return nil

	case *mir.SetIndex:
		target, err := i.evalExpr(env, s.Target)
		if err != nil {
			return err
		}
		idx, err := i.evalExpr(env, s.Index)
		if err != nil {
			return err
		}
		v, err := i.evalExpr(env, s.Value)
		if err != nil {
			return err
		}
		if idx.Int < 0 || idx.Int >= int64(len(target.Array.Elems)) {
			return runtimeErr(ErrIndexOutOfBounds,
				"index %d on array of length %d", idx.Int, len(target.Array.Elems))
		}
		target.Array.Elems[idx.Int] = v
		return nil

	case *mir.SetField:
		target, err := i.evalExpr(env, s.Target)
		if err != nil {
			return err
		}
		v, err := i.evalExpr(env, s.Value)
		if err != nil {
			return err
		}
		target.Struct.Fields[s.Index] = v
		return nil

	case *mir.ExprStmt:
		_, err := i.evalExpr(env, s.Expr)
		return err

	case *mir.Loop:
		return i.execLoop(env, s)

	case *mir.Break:
		return breakSignal{}

	case *mir.Continue:
		return continueSignal{}

	case *mir.Return:
		if s.Value == nil {
			return returnSignal{value: unit}
		}
		v, err := i.evalExpr(env, s.Value)
		if err != nil {
			return err
		}
		return returnSignal{value: v}

	default:
		return runtimeErr(ErrBadProgram, "unsupported statement %T", stmt)
	}
}

func (i *Interpreter) execLoop(env *Env, loop *mir.Loop) error {
	for {
		if loop.Cond != nil {
			cond, err := i.evalExpr(env, loop.Cond)
			if err != nil {
				return err
			}
			if !cond.Bool {
				return nil
			}
		}

		_, err := i.evalBlock(NewEnv(env), loop.Body)
		switch err.(type) {
		case nil:
		case breakSignal:
			return nil
		case continueSignal:
			// fall through to Post
		default:
			return err
		}

		for _, post := range loop.Post {
			if err := i.execStmt(env, post); err != nil {
				return err
			}
		}
	}
}

func (i *Interpreter) evalCall(env *Env, call *mir.Call) (Value, error) {
	callee, err := i.evalExpr(env, call.Callee)
	if err != nil {
		return Value{}, err
	}

	args := make([]Value, len(call.Args))
	for idx, arg := range call.Args {
		v, err := i.evalExpr(env, arg)
		if err != nil {
			return Value{}, err
		}
		args[idx] = v
	}

	switch callee.Kind {
	case KindClosure:
		return i.invoke(callee.Closure, args)
	case KindBuiltin:
		return i.applyBuiltin(callee.Builtin, args)
	default:
		return Value{}, runtimeErr(ErrBadProgram, "call of non-function value (%s)", callee.Kind)
	}
}

func (i *Interpreter) invoke(closure *Closure, args []Value) (Value, error) {
	if len(args) != len(closure.Params) {
		return Value{}, runtimeErr(ErrBadProgram,
			"expected %d argument(s), got %d", len(closure.Params), len(args))
	}

	i.depth++
	if i.depth > i.maxDepth {
		i.depth--
		return Value{}, runtimeErr(ErrStackOverflow, "call depth exceeded %d", i.maxDepth)
	}
	defer func() { i.depth-- }()

	frame := NewEnv(closure.Env)
	for idx, p := range closure.Params {
		frame.Define(p.Name, args[idx])
	}

	v, err := i.evalExpr(frame, closure.Body)
	if err != nil {
		var ret returnSignal
		if errors.As(err, &ret) {
			return ret.value, nil
		}
		return Value{}, err
	}
	return v, nil
}

func (i *Interpreter) applyBuiltin(name string, args []Value) (Value, error) {
	switch name {
	case "print":
		if _, err := io.WriteString(i.out, args[0].Render()+"\n"); err != nil {
			return Value{}, err
		}
		return unit, nil
	case "len":
		return intValue(int64(len(args[0].Array.Elems))), nil
	case "str":
		return strValue(args[0].Render()), nil
	default:
		return Value{}, runtimeErr(ErrBadProgram, "unknown builtin %s", name)
	}
}

func (i *Interpreter) evalBinary(env *Env, e *mir.Binary) (Value, error) {
	l, err := i.evalExpr(env, e.L)
	if err != nil {
		return Value{}, err
	}
	r, err := i.evalExpr(env, e.R)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case mir.OpEq:
		return boolValue(Equal(l, r)), nil
	case mir.OpNe:
		return boolValue(!Equal(l, r)), nil
	}

	if l.Kind == KindFloat {
		return evalFloatOp(e.Op, l.Float, r.Float)
	}
	if l.Kind == KindStr {
		return evalStrOp(e.Op, l.Str, r.Str)
	}
	return evalIntOp(e.Op, l.Int, r.Int)
}

func evalIntOp(op mir.BinOp, a, b int64) (Value, error) {
	switch op {
	case mir.OpAdd:
		sum := a + b
		if (b > 0 && sum < a) || (b < 0 && sum > a) {
			return Value{}, runtimeErr(ErrIntegerOverflow, "%d + %d", a, b)
		}
		return intValue(sum), nil
	case mir.OpSub:
		diff := a - b
		if (b < 0 && diff < a) || (b > 0 && diff > a) {
			return Value{}, runtimeErr(ErrIntegerOverflow, "%d - %d", a, b)
		}
		return intValue(diff), nil
	case mir.OpMul:
		if a == 0 || b == 0 {
			return intValue(0), nil
		}
		prod := a * b
		if prod/b != a || (a == math.MinInt64 && b == -1) {
			return Value{}, runtimeErr(ErrIntegerOverflow, "%d * %d", a, b)
		}
		return intValue(prod), nil
	case mir.OpDiv:
		if b == 0 {
			return Value{}, runtimeErr(ErrDivisionByZero, "%d / 0", a)
		}
		if a == math.MinInt64 && b == -1 {
			return Value{}, runtimeErr(ErrIntegerOverflow, "%d / -1", a)
		}
		return intValue(a / b), nil
	case mir.OpMod:
		if b == 0 {
			return Value{}, runtimeErr(ErrDivisionByZero, "%d %% 0", a)
		}
		if a == math.MinInt64 && b == -1 {
			return intValue(0), nil
		}
		return intValue(a % b), nil
	case mir.OpLt:
		return boolValue(a < b), nil
	case mir.OpLe:
		return boolValue(a <= b), nil
	case mir.OpGt:
		return boolValue(a > b), nil
	case mir.OpGe:
		return boolValue(a >= b), nil
	}
	return Value{}, runtimeErr(ErrBadProgram, "bad int op %s", op)
}

func evalFloatOp(op mir.BinOp, a, b float64) (Value, error) {
	switch op {
	case mir.OpAdd:
		return floatValue(a + b), nil
	case mir.OpSub:
		return floatValue(a - b), nil
	case mir.OpMul:
		return floatValue(a * b), nil
	case mir.OpDiv:
		// IEEE semantics: float division by zero is inf/nan, not an error.
		return floatValue(a / b), nil
	case mir.OpLt:
		return boolValue(a < b), nil
	case mir.OpLe:
		return boolValue(a <= b), nil
	case mir.OpGt:
		return boolValue(a > b), nil
	case mir.OpGe:
		return boolValue(a >= b), nil
	}
	return Value{}, runtimeErr(ErrBadProgram, "bad float op %s", op)
}

func evalStrOp(op mir.BinOp, a, b string) (Value, error) {
	switch op {
	case mir.OpLt:
		return boolValue(a < b), nil
	case mir.OpLe:
		return boolValue(a <= b), nil
	case mir.OpGt:
		return boolValue(a > b), nil
	case mir.OpGe:
		return boolValue(a >= b), nil
	}
	return Value{}, runtimeErr(ErrBadProgram, "bad string op %s", op)
}

func (i *Interpreter) evalUnary(env *Env, e *mir.Unary) (Value, error) {
	v, err := i.evalExpr(env, e.Operand)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case mir.OpNeg:
		if v.Kind == KindFloat {
			return floatValue(-v.Float), nil
		}
		if v.Int == math.MinInt64 {
			return Value{}, runtimeErr(ErrIntegerOverflow, "-(%d)", v.Int)
		}
		return intValue(-v.Int), nil
	case mir.OpNot:
		return boolValue(!v.Bool), nil
	}
	return Value{}, runtimeErr(ErrBadProgram, "bad unary op")
}
