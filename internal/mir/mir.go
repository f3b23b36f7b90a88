// Package mir defines the mid-level intermediate representation shared by
// every backend. Lowering desugars the surface language completely: pipeline
// calls, f-strings, ranges, pattern matches, and short-circuit operators all
// disappear here, so the interpreter, the Go emitter, and the WASM emitter
// never reimplement them.
package mir

// Module is a lowered compilation unit. Main holds the top-level statements
// as a synthesized entry function.
type Module struct {
	Structs   []*StructDef
	Enums     []*EnumDef
	Functions []*Function
	Main      *Function
}

// FindFunction resolves a named function in the module.
func (m *Module) FindFunction(name string) (*Function, bool) {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// FindStruct resolves a struct definition by name.
func (m *Module) FindStruct(name string) (*StructDef, bool) {
	for _, s := range m.Structs {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindEnum resolves an enum definition by name.
func (m *Module) FindEnum(name string) (*EnumDef, bool) {
	for _, e := range m.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// StructDef lists a struct's fields in declaration order; values store
// fields positionally.
type StructDef struct {
	Name   string
	Fields []FieldDef
}

// FieldIndex returns the positional slot of a field.
func (s *StructDef) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type FieldDef struct {
	Name string
	Type Type
}

// EnumDef lists an enum's variants; values store the variant tag plus a
// positional payload.
type EnumDef struct {
	Name     string
	Variants []VariantDef
}

type VariantDef struct {
	Name  string
	Types []Type
}

// Tag returns the numeric tag of a variant.
func (e *EnumDef) Tag(name string) int {
	for i, v := range e.Variants {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Function is a lowered function. Local names are unique within the
// function (lowering alpha-renames shadowed bindings), so backends can map
// them straight to target-language variables.
type Function struct {
	Name   string
	Params []Param
	Return Type
	Body   *Block
}

type Param struct {
	Name string
	Type Type
}

// Node is any MIR node.
type Node interface {
	mirNode()
}

// Expr is a value-producing node. Every expression knows its type.
type Expr interface {
	Node
	Type() Type
	exprNode()
}

// Stmt is an effect-only node.
type Stmt interface {
	Node
	stmtNode()
}

// IntConst is an integer constant.
type IntConst struct {
	Value int64
}

// FloatConst is a floating point constant.
type FloatConst struct {
	Value float64
}

// BoolConst is a boolean constant.
type BoolConst struct {
	Value bool
}

// StrConst is a string constant.
type StrConst struct {
	Value string
}

// UnitConst is the unit value.
type UnitConst struct{}

// LocalGet reads a local variable.
type LocalGet struct {
	Name string
	Typ  Type
}

// FuncRef references a module-level or built-in function as a value.
type FuncRef struct {
	Name    string
	Builtin bool
	Typ     Type
}

// BinOp enumerates binary operators. Logical and/or never appear: lowering
// rewrites them as conditionals to preserve short-circuit evaluation.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// Binary applies a binary operator. Operand types are equal; the operator
// and operand type together pick the machine operation.
type Binary struct {
	Op   BinOp
	L, R Expr
	Typ  Type
}

// UnOp enumerates unary operators.
type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
)

// Unary applies a unary operator.
type Unary struct {
	Op      UnOp
	Operand Expr
	Typ     Type
}

// StringConcat joins two strings. `+` on Str and f-string stitching both
// lower to this.
type StringConcat struct {
	L, R Expr
}

// ToString renders any value as a string.
type ToString struct {
	Operand Expr
}

// ArrayLen reads an array's length.
type ArrayLen struct {
	Target Expr
}

// Call invokes a callee with arguments.
type Call struct {
	Callee Expr
	Args   []Expr
	Typ    Type
}

// Lambda is an anonymous function. The body references enclosing locals
// lexically; backends that cannot express capture reject it.
type Lambda struct {
	Params []Param
	Body   Expr
	Typ    Type
}

// If is a conditional expression. A nil Else means the result is unit and
// the then-value is discarded.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
	Typ  Type
}

// Block runs statements and yields its tail value; a nil Tail yields unit.
type Block struct {
	Stmts []Stmt
	Tail  Expr
	Typ   Type
}

// StructNew builds a struct value with fields in declaration order.
type StructNew struct {
	Struct string
	Fields []Expr
}

// FieldGet reads a struct field by positional index.
type FieldGet struct {
	Target Expr
	Struct string
	Field  string
	Index  int
	Typ    Type
}

// EnumNew builds an enum value from a tag and payload.
type EnumNew struct {
	Enum    string
	Variant string
	Tag     int
	Args    []Expr
}

// EnumTag reads the tag of an enum value. Match lowering compiles patterns
// into tag comparisons.
type EnumTag struct {
	Target Expr
}

// EnumPayload reads one payload slot of an enum value. Only emitted under a
// matching tag test.
type EnumPayload struct {
	Target Expr
	Index  int
	Typ    Type
}

// ArrayNew builds an array value.
type ArrayNew struct {
	Elems []Expr
	Elem  Type
}

// IndexGet reads an array element. Out-of-bounds is a runtime error.
type IndexGet struct {
	Target Expr
	Index  Expr
	Typ    Type
}

// Unreachable traps at runtime. Emitted as the fall-through of lowered
// matches, which the checker has already proven exhaustive.
type Unreachable struct {
	Typ Type
}

// LocalDecl introduces a new local.
type LocalDecl struct {
	Name  string
	Value Expr
	Typ   Type
}

// LocalSet assigns an existing local.
type LocalSet struct {
	Name  string
	Value Expr
}

// SetIndex assigns an array element.
type SetIndex struct {
	Target Expr
	Index  Expr
	Value  Expr
}

// SetField assigns a struct field.
type SetField struct {
	Target Expr
	Field  string
	Index  int
	Value  Expr
}

// ExprStmt evaluates an expression for effect and discards the value.
type ExprStmt struct {
	Expr Expr
}

// Loop runs Body while Cond holds; a nil Cond loops forever. Post runs
// after each iteration, including on continue, which is what makes lowered
// for-loops advance their cursor.
type Loop struct {
	Cond Expr
	Body *Block
	Post []Stmt
}

// Break exits the innermost loop.
type Break struct{}

// Continue jumps to the next iteration of the innermost loop.
type Continue struct{}

// Return exits the current function; a nil value returns unit.
type Return struct {
	Value Expr
}

func (*IntConst) mirNode()     {}
func (*FloatConst) mirNode()   {}
func (*BoolConst) mirNode()    {}
func (*StrConst) mirNode()     {}
func (*UnitConst) mirNode()    {}
func (*LocalGet) mirNode()     {}
func (*FuncRef) mirNode()      {}
func (*Binary) mirNode()       {}
func (*Unary) mirNode()        {}
func (*StringConcat) mirNode() {}
func (*ToString) mirNode()     {}
func (*ArrayLen) mirNode()     {}
func (*Call) mirNode()         {}
func (*Lambda) mirNode()       {}
func (*If) mirNode()           {}
func (*Block) mirNode()        {}
func (*StructNew) mirNode()    {}
func (*FieldGet) mirNode()     {}
func (*EnumNew) mirNode()      {}
func (*EnumTag) mirNode()      {}
func (*EnumPayload) mirNode()  {}
func (*ArrayNew) mirNode()     {}
func (*IndexGet) mirNode()     {}
func (*Unreachable) mirNode()  {}
func (*LocalDecl) mirNode()    {}
func (*LocalSet) mirNode()     {}
func (*SetIndex) mirNode()     {}
func (*SetField) mirNode()     {}
func (*ExprStmt) mirNode()     {}
func (*Loop) mirNode()         {}
func (*Break) mirNode()        {}
func (*Continue) mirNode()     {}
func (*Return) mirNode()       {}

func (*IntConst) exprNode()     {}
func (*FloatConst) exprNode()   {}
func (*BoolConst) exprNode()    {}
func (*StrConst) exprNode()     {}
func (*UnitConst) exprNode()    {}
func (*LocalGet) exprNode()     {}
func (*FuncRef) exprNode()      {}
func (*Binary) exprNode()       {}
func (*Unary) exprNode()        {}
func (*StringConcat) exprNode() {}
func (*ToString) exprNode()     {}
func (*ArrayLen) exprNode()     {}
func (*Call) exprNode()         {}
func (*Lambda) exprNode()       {}
func (*If) exprNode()           {}
func (*Block) exprNode()        {}
func (*StructNew) exprNode()    {}
func (*FieldGet) exprNode()     {}
func (*EnumNew) exprNode()      {}
func (*EnumTag) exprNode()      {}
func (*EnumPayload) exprNode()  {}
func (*ArrayNew) exprNode()     {}
func (*IndexGet) exprNode()     {}
func (*Unreachable) exprNode()  {}

func (*LocalDecl) stmtNode() {}
func (*LocalSet) stmtNode()  {}
func (*SetIndex) stmtNode()  {}
func (*SetField) stmtNode()  {}
func (*ExprStmt) stmtNode()  {}
func (*Loop) stmtNode()      {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Return) stmtNode()    {}

func (*IntConst) Type() Type      { return Int }
func (*FloatConst) Type() Type    { return Float }
func (*BoolConst) Type() Type     { return Bool }
func (*StrConst) Type() Type      { return Str }
func (*UnitConst) Type() Type     { return Unit }
func (e *LocalGet) Type() Type    { return e.Typ }
func (e *FuncRef) Type() Type     { return e.Typ }
func (e *Binary) Type() Type      { return e.Typ }
func (e *Unary) Type() Type       { return e.Typ }
func (*StringConcat) Type() Type  { return Str }
func (*ToString) Type() Type      { return Str }
func (*ArrayLen) Type() Type      { return Int }
func (e *Call) Type() Type        { return e.Typ }
func (e *Lambda) Type() Type      { return e.Typ }
func (e *If) Type() Type          { return e.Typ }
func (e *Block) Type() Type       { return e.Typ }
func (e *StructNew) Type() Type   { return StructType(e.Struct) }
func (e *FieldGet) Type() Type    { return e.Typ }
func (e *EnumNew) Type() Type     { return EnumType(e.Enum) }
func (*EnumTag) Type() Type       { return Int }
func (e *EnumPayload) Type() Type { return e.Typ }
func (e *ArrayNew) Type() Type    { return ArrayType(e.Elem) }
func (e *IndexGet) Type() Type    { return e.Typ }
func (e *Unreachable) Type() Type { return e.Typ }
