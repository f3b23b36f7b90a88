package wasm

import (
	"bytes"

	"github.com/rill-lang/rill/internal/mir"
)

func (e *Emitter) emitFunction(fn *mir.Function, isMain bool) ([]byte, error) {
	e.locals = map[string]localSlot{}
	e.ctrl = 0
	e.loops = nil
	e.ret = fn.Return
	if e.ret == nil {
		e.ret = mir.Unit
	}

	next := uint32(0)
	for _, p := range fn.Params {
		if mir.IsKind(p.Type, mir.KindUnit) {
			e.locals[p.Name] = localSlot{}
			continue
		}
		vt, err := valueType(p.Type)
		if err != nil {
			return nil, err
		}
		e.locals[p.Name] = localSlot{index: next, typ: vt, hasSlot: true}
		next++
	}

	var declared []byte
	var collect func(stmts []mir.Stmt) error
	var collectExpr func(ex mir.Expr) error
	collectExpr = func(ex mir.Expr) error {
		switch ex := ex.(type) {
		case *mir.Block:
			if err := collect(ex.Stmts); err != nil {
				return err
			}
			if ex.Tail != nil {
				return collectExpr(ex.Tail)
			}
		case *mir.If:
			if err := collectExpr(ex.Cond); err != nil {
				return err
			}
			if err := collectExpr(ex.Then); err != nil {
				return err
			}
			if ex.Else != nil {
				return collectExpr(ex.Else)
			}
		case *mir.Binary:
			if err := collectExpr(ex.L); err != nil {
				return err
			}
			return collectExpr(ex.R)
		case *mir.Unary:
			return collectExpr(ex.Operand)
		case *mir.StringConcat:
			if err := collectExpr(ex.L); err != nil {
				return err
			}
			return collectExpr(ex.R)
		case *mir.ToString:
			return collectExpr(ex.Operand)
		case *mir.Call:
			if err := collectExpr(ex.Callee); err != nil {
				return err
			}
			for _, a := range ex.Args {
				if err := collectExpr(a); err != nil {
					return err
				}
			}
		}
		// Other shapes either hold no bindings or are rejected during
		// emission anyway.
		return nil
	}
	collect = func(stmts []mir.Stmt) error {
		for _, s := range stmts {
			switch s := s.(type) {
			case *mir.LocalDecl:
				if mir.IsKind(toUnit(s.Typ), mir.KindUnit) {
					e.locals[s.Name] = localSlot{}
				} else {
					vt, err := valueType(s.Typ)
					if err != nil {
						return err
					}
					e.locals[s.Name] = localSlot{index: next, typ: vt, hasSlot: true}
					declared = append(declared, vt)
					next++
				}
				if err := collectExpr(s.Value); err != nil {
					return err
				}
			case *mir.LocalSet:
				if err := collectExpr(s.Value); err != nil {
					return err
				}
			case *mir.ExprStmt:
				if err := collectExpr(s.Expr); err != nil {
					return err
				}
			case *mir.Loop:
				if s.Cond != nil {
					if err := collectExpr(s.Cond); err != nil {
						return err
					}
				}
				if err := collectExpr(s.Body); err != nil {
					return err
				}
				if err := collect(s.Post); err != nil {
					return err
				}
			case *mir.Return:
				if s.Value != nil {
					if err := collectExpr(s.Value); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	if err := collect(fn.Body.Stmts); err != nil {
		return nil, err
	}
	if fn.Body.Tail != nil {
		if err := collectExpr(fn.Body.Tail); err != nil {
			return nil, err
		}
	}

	var body bytes.Buffer
	writeLEB128(&body, uint32(len(declared)))
	for _, vt := range declared {
		writeLEB128(&body, 1)
		writeByte(&body, vt)
	}

	if err := e.emitStmts(&body, fn.Body.Stmts); err != nil {
		return nil, err
	}
	tail := fn.Body.Tail
	switch {
	case tail != nil && isMain:
		// The entry's non-unit result prints the way the evaluator would
		// render it; a unit result is just evaluated.
		if mir.IsKind(tail.Type(), mir.KindUnit) {
			if err := e.emitExpr(&body, tail); err != nil {
				return nil, err
			}
		} else if err := e.emitPrint(&body, tail); err != nil {
			return nil, err
		}
	case tail != nil:
		if err := e.emitExpr(&body, tail); err != nil {
			return nil, err
		}
	case !mir.IsKind(e.ret, mir.KindUnit) && !isMain:
		// Every path already returned; keep the fall-through edge
		// polymorphic for the validator.
		writeByte(&body, opUnreachable)
	}
	writeByte(&body, opEnd)
	return body.Bytes(), nil
}

func toUnit(t mir.Type) mir.Type {
	if t == nil {
		return mir.Unit
	}
	return t
}

func (e *Emitter) emitStmts(buf *bytes.Buffer, stmts []mir.Stmt) error {
	for _, s := range stmts {
		if err := e.emitStmt(buf, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitStmt(buf *bytes.Buffer, s mir.Stmt) error {
	switch s := s.(type) {
	case *mir.LocalDecl:
		if err := e.emitExpr(buf, s.Value); err != nil {
			return err
		}
		if slot := e.locals[s.Name]; slot.hasSlot {
			writeByte(buf, opLocalSet)
			writeLEB128(buf, slot.index)
		}
		return nil
	case *mir.LocalSet:
		if err := e.emitExpr(buf, s.Value); err != nil {
			return err
		}
		if slot := e.locals[s.Name]; slot.hasSlot {
			writeByte(buf, opLocalSet)
			writeLEB128(buf, slot.index)
		}
		return nil
	case *mir.ExprStmt:
		if err := e.emitExpr(buf, s.Expr); err != nil {
			return err
		}
		if !mir.IsKind(s.Expr.Type(), mir.KindUnit) {
			writeByte(buf, opDrop)
		}
		return nil
	case *mir.Loop:
		return e.emitLoop(buf, s)
	case *mir.Break:
		if len(e.loops) == 0 {
			return unsupported("break outside a loop")
		}
		writeByte(buf, opBr)
		writeLEB128(buf, uint32(e.ctrl-e.loops[len(e.loops)-1].exit))
		return nil
	case *mir.Continue:
		if len(e.loops) == 0 {
			return unsupported("continue outside a loop")
		}
		writeByte(buf, opBr)
		writeLEB128(buf, uint32(e.ctrl-e.loops[len(e.loops)-1].post))
		return nil
	case *mir.Return:
		if s.Value != nil {
			if err := e.emitExpr(buf, s.Value); err != nil {
				return err
			}
		}
		writeByte(buf, opReturn)
		return nil
	case *mir.SetIndex:
		return unsupported("array assignment")
	case *mir.SetField:
		return unsupported("field assignment")
	}
	return unsupported("statement %T", s)
}

// emitLoop shapes a lowered loop as
//
//	block        ; break target
//	  loop       ; backward edge
//	    cond? i32.eqz br_if 1
//	    block    ; continue target
//	      body
//	    end
//	    post
//	    br 0 -> loop
//	  end
//	end
//
// so continue still runs the post statements, which is what advances
// for-loop cursors.
func (e *Emitter) emitLoop(buf *bytes.Buffer, s *mir.Loop) error {
	writeByte(buf, opBlock)
	writeByte(buf, blockVoid)
	e.ctrl++
	exit := e.ctrl

	writeByte(buf, opLoop)
	writeByte(buf, blockVoid)
	e.ctrl++
	top := e.ctrl

	if s.Cond != nil {
		if err := e.emitExpr(buf, s.Cond); err != nil {
			return err
		}
		writeByte(buf, opI32Eqz)
		writeByte(buf, opBrIf)
		writeLEB128(buf, uint32(e.ctrl-exit))
	}

	writeByte(buf, opBlock)
	writeByte(buf, blockVoid)
	e.ctrl++
	post := e.ctrl

	e.loops = append(e.loops, loopLabels{exit: exit, post: post})
	err := e.emitStmts(buf, s.Body.Stmts)
	if err == nil && s.Body.Tail != nil {
		// A trailing expression in a loop body is evaluated and discarded.
		if err = e.emitExpr(buf, s.Body.Tail); err == nil && !mir.IsKind(s.Body.Tail.Type(), mir.KindUnit) {
			writeByte(buf, opDrop)
		}
	}
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return err
	}

	writeByte(buf, opEnd) // continue target
	e.ctrl--

	if err := e.emitStmts(buf, s.Post); err != nil {
		return err
	}
	writeByte(buf, opBr)
	writeLEB128(buf, uint32(e.ctrl-top))

	writeByte(buf, opEnd) // loop
	e.ctrl--
	writeByte(buf, opEnd) // block
	e.ctrl--
	return nil
}

func (e *Emitter) emitExpr(buf *bytes.Buffer, ex mir.Expr) error {
	switch ex := ex.(type) {
	case *mir.IntConst:
		writeByte(buf, opI64Const)
		writeLEB128Signed(buf, ex.Value)
		return nil
	case *mir.FloatConst:
		writeByte(buf, opF64Const)
		writeF64(buf, ex.Value)
		return nil
	case *mir.BoolConst:
		writeByte(buf, opI32Const)
		if ex.Value {
			writeLEB128Signed(buf, 1)
		} else {
			writeLEB128Signed(buf, 0)
		}
		return nil
	case *mir.StrConst:
		writeByte(buf, opI64Const)
		writeLEB128Signed(buf, e.internString(ex.Value))
		return nil
	case *mir.UnitConst:
		return nil
	case *mir.LocalGet:
		if slot := e.locals[ex.Name]; slot.hasSlot {
			writeByte(buf, opLocalGet)
			writeLEB128(buf, slot.index)
		}
		return nil
	case *mir.Binary:
		return e.emitBinary(buf, ex)
	case *mir.Unary:
		return e.emitUnary(buf, ex)
	case *mir.StringConcat:
		if err := e.emitExpr(buf, ex.L); err != nil {
			return err
		}
		if err := e.emitExpr(buf, ex.R); err != nil {
			return err
		}
		writeByte(buf, opCall)
		writeLEB128(buf, hostIndex("str_concat"))
		return nil
	case *mir.ToString:
		return e.emitToString(buf, ex)
	case *mir.Call:
		return e.emitCall(buf, ex)
	case *mir.If:
		return e.emitIf(buf, ex)
	case *mir.Block:
		if err := e.emitStmts(buf, ex.Stmts); err != nil {
			return err
		}
		if ex.Tail != nil {
			return e.emitExpr(buf, ex.Tail)
		}
		return nil
	case *mir.Unreachable:
		writeByte(buf, opUnreachable)
		return nil
	case *mir.Lambda:
		return unsupported("closures")
	case *mir.FuncRef:
		return unsupported("functions as values")
	case *mir.ArrayNew, *mir.ArrayLen, *mir.IndexGet:
		return unsupported("arrays")
	case *mir.StructNew, *mir.FieldGet:
		return unsupported("structs")
	case *mir.EnumNew, *mir.EnumTag, *mir.EnumPayload:
		return unsupported("enums")
	}
	return unsupported("expression %T", ex)
}

var intBinOps = map[mir.BinOp]byte{
	mir.OpAdd: opI64Add,
	mir.OpSub: opI64Sub,
	mir.OpMul: opI64Mul,
	mir.OpDiv: opI64DivS,
	mir.OpMod: opI64RemS,
	mir.OpEq:  opI64Eq,
	mir.OpNe:  opI64Ne,
	mir.OpLt:  opI64LtS,
	mir.OpLe:  opI64LeS,
	mir.OpGt:  opI64GtS,
	mir.OpGe:  opI64GeS,
}

var floatBinOps = map[mir.BinOp]byte{
	mir.OpAdd: opF64Add,
	mir.OpSub: opF64Sub,
	mir.OpMul: opF64Mul,
	mir.OpDiv: opF64Div,
	mir.OpEq:  opF64Eq,
	mir.OpNe:  opF64Ne,
	mir.OpLt:  opF64Lt,
	mir.OpLe:  opF64Le,
	mir.OpGt:  opF64Gt,
	mir.OpGe:  opF64Ge,
}

func (e *Emitter) emitBinary(buf *bytes.Buffer, ex *mir.Binary) error {
	if err := e.emitExpr(buf, ex.L); err != nil {
		return err
	}
	if err := e.emitExpr(buf, ex.R); err != nil {
		return err
	}
	operand, ok := ex.L.Type().(*mir.Scalar)
	if !ok {
		return unsupported("%s on values of type %s", ex.Op, ex.L.Type())
	}
	switch operand.Kind {
	case mir.KindInt:
		if op, ok := intBinOps[ex.Op]; ok {
			writeByte(buf, op)
			return nil
		}
	case mir.KindFloat:
		if op, ok := floatBinOps[ex.Op]; ok {
			writeByte(buf, op)
			return nil
		}
	case mir.KindBool:
		switch ex.Op {
		case mir.OpEq:
			writeByte(buf, opI32Eq)
			return nil
		case mir.OpNe:
			writeByte(buf, opI32Ne)
			return nil
		}
	case mir.KindStr:
		switch ex.Op {
		case mir.OpEq:
			writeByte(buf, opCall)
			writeLEB128(buf, hostIndex("str_eq"))
			return nil
		case mir.OpNe:
			writeByte(buf, opCall)
			writeLEB128(buf, hostIndex("str_eq"))
			writeByte(buf, opI32Eqz)
			return nil
		}
	case mir.KindUnit:
		switch ex.Op {
		case mir.OpEq:
			writeByte(buf, opI32Const)
			writeLEB128Signed(buf, 1)
			return nil
		case mir.OpNe:
			writeByte(buf, opI32Const)
			writeLEB128Signed(buf, 0)
			return nil
		}
	}
	return unsupported("%s on %s operands", ex.Op, operand)
}

func (e *Emitter) emitUnary(buf *bytes.Buffer, ex *mir.Unary) error {
	switch ex.Op {
	case mir.OpNeg:
		if mir.IsKind(ex.Operand.Type(), mir.KindFloat) {
			if err := e.emitExpr(buf, ex.Operand); err != nil {
				return err
			}
			writeByte(buf, opF64Neg)
			return nil
		}
		writeByte(buf, opI64Const)
		writeLEB128Signed(buf, 0)
		if err := e.emitExpr(buf, ex.Operand); err != nil {
			return err
		}
		writeByte(buf, opI64Sub)
		return nil
	case mir.OpNot:
		if err := e.emitExpr(buf, ex.Operand); err != nil {
			return err
		}
		writeByte(buf, opI32Eqz)
		return nil
	}
	return unsupported("unary operator %d", ex.Op)
}

func (e *Emitter) emitToString(buf *bytes.Buffer, ex *mir.ToString) error {
	operand := ex.Operand.Type()
	if err := e.emitExpr(buf, ex.Operand); err != nil {
		return err
	}
	if s, ok := operand.(*mir.Scalar); ok {
		switch s.Kind {
		case mir.KindInt:
			writeByte(buf, opCall)
			writeLEB128(buf, hostIndex("i64_to_str"))
			return nil
		case mir.KindFloat:
			writeByte(buf, opCall)
			writeLEB128(buf, hostIndex("f64_to_str"))
			return nil
		case mir.KindBool:
			writeByte(buf, opCall)
			writeLEB128(buf, hostIndex("bool_to_str"))
			return nil
		case mir.KindStr:
			return nil
		case mir.KindUnit:
			writeByte(buf, opI64Const)
			writeLEB128Signed(buf, e.internString("()"))
			return nil
		}
	}
	return unsupported("rendering a value of type %s", operand)
}

func (e *Emitter) emitCall(buf *bytes.Buffer, ex *mir.Call) error {
	ref, ok := ex.Callee.(*mir.FuncRef)
	if !ok {
		return unsupported("calling a function value")
	}
	if ref.Builtin {
		switch ref.Name {
		case "print":
			if len(ex.Args) != 1 {
				return unsupported("print with %d arguments", len(ex.Args))
			}
			return e.emitPrint(buf, ex.Args[0])
		}
		return unsupported("builtin %s", ref.Name)
	}
	for _, a := range ex.Args {
		if err := e.emitExpr(buf, a); err != nil {
			return err
		}
	}
	idx, ok := e.funcIndex[ref.Name]
	if !ok {
		return unsupported("unknown function %s", ref.Name)
	}
	writeByte(buf, opCall)
	writeLEB128(buf, idx)
	return nil
}

// emitPrint routes a value to the host import matching its type.
func (e *Emitter) emitPrint(buf *bytes.Buffer, arg mir.Expr) error {
	if err := e.emitExpr(buf, arg); err != nil {
		return err
	}
	s, ok := arg.Type().(*mir.Scalar)
	if !ok {
		return unsupported("printing a value of type %s", arg.Type())
	}
	var host string
	switch s.Kind {
	case mir.KindInt:
		host = "print_i64"
	case mir.KindFloat:
		host = "print_f64"
	case mir.KindBool:
		host = "print_bool"
	case mir.KindStr:
		host = "print_str"
	case mir.KindUnit:
		host = "print_unit"
	default:
		return unsupported("printing a value of type %s", s)
	}
	writeByte(buf, opCall)
	writeLEB128(buf, hostIndex(host))
	return nil
}

func (e *Emitter) emitIf(buf *bytes.Buffer, ex *mir.If) error {
	if err := e.emitExpr(buf, ex.Cond); err != nil {
		return err
	}
	writeByte(buf, opIf)
	unit := mir.IsKind(toUnit(ex.Typ), mir.KindUnit)
	if unit {
		writeByte(buf, blockVoid)
	} else {
		vt, err := valueType(ex.Typ)
		if err != nil {
			return err
		}
		writeByte(buf, vt)
	}
	e.ctrl++

	if err := e.emitExpr(buf, ex.Then); err != nil {
		return err
	}
	if unit && !mir.IsKind(ex.Then.Type(), mir.KindUnit) {
		writeByte(buf, opDrop)
	}
	if ex.Else != nil {
		writeByte(buf, opElse)
		if err := e.emitExpr(buf, ex.Else); err != nil {
			return err
		}
		if unit && !mir.IsKind(ex.Else.Type(), mir.KindUnit) {
			writeByte(buf, opDrop)
		}
	}
	writeByte(buf, opEnd)
	e.ctrl--
	return nil
}
