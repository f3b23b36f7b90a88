package ast

import "github.com/rill-lang/rill/internal/lexer"

// Node represents any AST node with an associated source span.
type Node interface {
	Span() lexer.Span
}

// Expr represents an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Decl represents a top-level declaration.
type Decl interface {
	Node
	declNode()
}

// TypeExpr represents a type annotation expression.
type TypeExpr interface {
	Node
	typeNode()
}

// Program represents a parsed compilation unit. Rill is a scripting
// language: declarations and top-level statements interleave, declarations
// are hoisted, statements run in order, and the final expression statement
// is the program result.
type Program struct {
	Decls []Decl
	Stmts []Stmt
	span  lexer.Span
}

// Span returns the span covering the entire program.
func (p *Program) Span() lexer.Span { return p.span }

// NewProgram constructs a program node with the provided span.
func NewProgram(span lexer.Span) *Program {
	return &Program{span: span}
}

// SetSpan updates the program span.
func (p *Program) SetSpan(span lexer.Span) { p.span = span }

// FnDecl represents a named function declaration.
type FnDecl struct {
	Name       *Ident
	Params     []*Param
	ReturnType TypeExpr // nil means Unit
	Body       *BlockExpr
	span       lexer.Span
}

func (d *FnDecl) Span() lexer.Span { return d.span }

// NewFnDecl constructs a function declaration node.
func NewFnDecl(name *Ident, params []*Param, returnType TypeExpr, body *BlockExpr, span lexer.Span) *FnDecl {
	return &FnDecl{Name: name, Params: params, ReturnType: returnType, Body: body, span: span}
}

func (d *FnDecl) SetSpan(span lexer.Span) { d.span = span }

func (*FnDecl) declNode() {}

// Param represents a function parameter.
type Param struct {
	Name *Ident
	Type TypeExpr
	span lexer.Span
}

func (p *Param) Span() lexer.Span { return p.span }

// NewParam constructs a parameter node.
func NewParam(name *Ident, typ TypeExpr, span lexer.Span) *Param {
	return &Param{Name: name, Type: typ, span: span}
}

// StructDecl represents a struct type declaration.
type StructDecl struct {
	Name   *Ident
	Fields []*FieldDef
	span   lexer.Span
}

func (d *StructDecl) Span() lexer.Span { return d.span }

// NewStructDecl constructs a struct declaration node.
func NewStructDecl(name *Ident, fields []*FieldDef, span lexer.Span) *StructDecl {
	return &StructDecl{Name: name, Fields: fields, span: span}
}

func (d *StructDecl) SetSpan(span lexer.Span) { d.span = span }

func (*StructDecl) declNode() {}

// FieldDef represents a struct field definition.
type FieldDef struct {
	Name *Ident
	Type TypeExpr
	span lexer.Span
}

func (f *FieldDef) Span() lexer.Span { return f.span }

// NewFieldDef constructs a field definition node.
func NewFieldDef(name *Ident, typ TypeExpr, span lexer.Span) *FieldDef {
	return &FieldDef{Name: name, Type: typ, span: span}
}

// EnumDecl represents an enum type declaration.
type EnumDecl struct {
	Name     *Ident
	Variants []*VariantDef
	span     lexer.Span
}

func (d *EnumDecl) Span() lexer.Span { return d.span }

// NewEnumDecl constructs an enum declaration node.
func NewEnumDecl(name *Ident, variants []*VariantDef, span lexer.Span) *EnumDecl {
	return &EnumDecl{Name: name, Variants: variants, span: span}
}

func (d *EnumDecl) SetSpan(span lexer.Span) { d.span = span }

func (*EnumDecl) declNode() {}

// VariantDef represents an enum variant definition. Payload is empty for
// unit variants.
type VariantDef struct {
	Name    *Ident
	Payload []TypeExpr
	span    lexer.Span
}

func (v *VariantDef) Span() lexer.Span { return v.span }

// NewVariantDef constructs a variant definition node.
func NewVariantDef(name *Ident, payload []TypeExpr, span lexer.Span) *VariantDef {
	return &VariantDef{Name: name, Payload: payload, span: span}
}

// BlockExpr represents a block of statements with an optional tail expression.
type BlockExpr struct {
	Stmts []Stmt
	Tail  Expr
	span  lexer.Span
}

func (b *BlockExpr) Span() lexer.Span { return b.span }

// NewBlockExpr constructs a block expression node.
func NewBlockExpr(stmts []Stmt, tail Expr, span lexer.Span) *BlockExpr {
	return &BlockExpr{Stmts: stmts, Tail: tail, span: span}
}

func (b *BlockExpr) SetSpan(span lexer.Span) { b.span = span }

func (*BlockExpr) exprNode() {}

// LetStmt represents a let binding statement.
type LetStmt struct {
	Mutable bool
	Name    *Ident
	Type    TypeExpr // optional annotation
	Value   Expr
	span    lexer.Span
}

func (s *LetStmt) Span() lexer.Span { return s.span }

// NewLetStmt constructs a let statement node.
func NewLetStmt(mutable bool, name *Ident, typ TypeExpr, value Expr, span lexer.Span) *LetStmt {
	return &LetStmt{Mutable: mutable, Name: name, Type: typ, Value: value, span: span}
}

func (s *LetStmt) SetSpan(span lexer.Span) { s.span = span }

func (*LetStmt) stmtNode() {}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	Value Expr // nil for bare return
	span  lexer.Span
}

func (s *ReturnStmt) Span() lexer.Span { return s.span }

// NewReturnStmt constructs a return statement node.
func NewReturnStmt(value Expr, span lexer.Span) *ReturnStmt {
	return &ReturnStmt{Value: value, span: span}
}

func (*ReturnStmt) stmtNode() {}

// ExprStmt represents an expression statement.
type ExprStmt struct {
	Expr Expr
	span lexer.Span
}

func (s *ExprStmt) Span() lexer.Span { return s.span }

// NewExprStmt constructs an expression statement node.
func NewExprStmt(expr Expr, span lexer.Span) *ExprStmt {
	return &ExprStmt{Expr: expr, span: span}
}

func (*ExprStmt) stmtNode() {}

// WhileStmt represents a while loop.
type WhileStmt struct {
	Cond Expr
	Body *BlockExpr
	span lexer.Span
}

func (s *WhileStmt) Span() lexer.Span { return s.span }

// NewWhileStmt constructs a while statement node.
func NewWhileStmt(cond Expr, body *BlockExpr, span lexer.Span) *WhileStmt {
	return &WhileStmt{Cond: cond, Body: body, span: span}
}

func (*WhileStmt) stmtNode() {}

// ForStmt represents a for-in loop over an array or integer range.
type ForStmt struct {
	Var  *Ident
	Iter Expr
	Body *BlockExpr
	span lexer.Span
}

func (s *ForStmt) Span() lexer.Span { return s.span }

// NewForStmt constructs a for statement node.
func NewForStmt(v *Ident, iter Expr, body *BlockExpr, span lexer.Span) *ForStmt {
	return &ForStmt{Var: v, Iter: iter, Body: body, span: span}
}

func (*ForStmt) stmtNode() {}

// BreakStmt represents a break statement.
type BreakStmt struct {
	span lexer.Span
}

func (s *BreakStmt) Span() lexer.Span { return s.span }

// NewBreakStmt constructs a break statement node.
func NewBreakStmt(span lexer.Span) *BreakStmt { return &BreakStmt{span: span} }

func (*BreakStmt) stmtNode() {}

// ContinueStmt represents a continue statement.
type ContinueStmt struct {
	span lexer.Span
}

func (s *ContinueStmt) Span() lexer.Span { return s.span }

// NewContinueStmt constructs a continue statement node.
func NewContinueStmt(span lexer.Span) *ContinueStmt { return &ContinueStmt{span: span} }

func (*ContinueStmt) stmtNode() {}

// Ident represents an identifier.
type Ident struct {
	Name string
	span lexer.Span
}

func (i *Ident) Span() lexer.Span { return i.span }

func (*Ident) exprNode() {}

// NewIdent constructs an identifier node.
func NewIdent(name string, span lexer.Span) *Ident {
	return &Ident{Name: name, span: span}
}

// IntegerLit represents an integer literal.
type IntegerLit struct {
	Text string
	span lexer.Span
}

func (l *IntegerLit) Span() lexer.Span { return l.span }

// NewIntegerLit constructs an integer literal node.
func NewIntegerLit(text string, span lexer.Span) *IntegerLit {
	return &IntegerLit{Text: text, span: span}
}

func (*IntegerLit) exprNode() {}

// FloatLit represents a floating point literal.
type FloatLit struct {
	Text string
	span lexer.Span
}

func (l *FloatLit) Span() lexer.Span { return l.span }

// NewFloatLit constructs a float literal node.
func NewFloatLit(text string, span lexer.Span) *FloatLit {
	return &FloatLit{Text: text, span: span}
}

func (*FloatLit) exprNode() {}

// BoolLit represents a boolean literal.
type BoolLit struct {
	Value bool
	span  lexer.Span
}

func (l *BoolLit) Span() lexer.Span { return l.span }

// NewBoolLit constructs a boolean literal node.
func NewBoolLit(value bool, span lexer.Span) *BoolLit {
	return &BoolLit{Value: value, span: span}
}

func (*BoolLit) exprNode() {}

// StringLit represents a string literal.
type StringLit struct {
	Value string // decoded value, escapes resolved
	span  lexer.Span
}

func (l *StringLit) Span() lexer.Span { return l.span }

// NewStringLit constructs a string literal node.
func NewStringLit(value string, span lexer.Span) *StringLit {
	return &StringLit{Value: value, span: span}
}

func (*StringLit) exprNode() {}

// UnitLit represents the unit literal ().
type UnitLit struct {
	span lexer.Span
}

func (l *UnitLit) Span() lexer.Span { return l.span }

// NewUnitLit constructs a unit literal node.
func NewUnitLit(span lexer.Span) *UnitLit { return &UnitLit{span: span} }

func (*UnitLit) exprNode() {}

// FStringLit represents an interpolated string literal f"...". Parts
// alternate between literal text and embedded expressions in source order.
type FStringLit struct {
	Parts []FStringPart
	span  lexer.Span
}

// FStringPart is one segment of an f-string: either Text or Expr is set.
type FStringPart struct {
	Text string
	Expr Expr
}

func (l *FStringLit) Span() lexer.Span { return l.span }

// NewFStringLit constructs an f-string literal node.
func NewFStringLit(parts []FStringPart, span lexer.Span) *FStringLit {
	return &FStringLit{Parts: parts, span: span}
}

func (*FStringLit) exprNode() {}

// ArrayLit represents an array literal.
type ArrayLit struct {
	Elems []Expr
	span  lexer.Span
}

func (l *ArrayLit) Span() lexer.Span { return l.span }

// NewArrayLit constructs an array literal node.
func NewArrayLit(elems []Expr, span lexer.Span) *ArrayLit {
	return &ArrayLit{Elems: elems, span: span}
}

func (*ArrayLit) exprNode() {}

// PrefixExpr represents a prefix expression.
type PrefixExpr struct {
	Op   lexer.TokenType
	Expr Expr
	span lexer.Span
}

func (e *PrefixExpr) Span() lexer.Span { return e.span }

// NewPrefixExpr constructs a prefix expression node.
func NewPrefixExpr(op lexer.TokenType, expr Expr, span lexer.Span) *PrefixExpr {
	return &PrefixExpr{Op: op, Expr: expr, span: span}
}

func (*PrefixExpr) exprNode() {}

// InfixExpr represents an infix binary expression.
type InfixExpr struct {
	Op    lexer.TokenType
	Left  Expr
	Right Expr
	span  lexer.Span
}

func (e *InfixExpr) Span() lexer.Span { return e.span }

// NewInfixExpr constructs a binary expression node.
func NewInfixExpr(op lexer.TokenType, left, right Expr, span lexer.Span) *InfixExpr {
	return &InfixExpr{Op: op, Left: left, Right: right, span: span}
}

func (*InfixExpr) exprNode() {}

// AssignExpr represents an assignment expression.
type AssignExpr struct {
	Target Expr
	Value  Expr
	span   lexer.Span
}

func (e *AssignExpr) Span() lexer.Span { return e.span }

// NewAssignExpr constructs an assignment expression node.
func NewAssignExpr(target, value Expr, span lexer.Span) *AssignExpr {
	return &AssignExpr{Target: target, Value: value, span: span}
}

func (*AssignExpr) exprNode() {}

// CallExpr represents a function call.
type CallExpr struct {
	Callee Expr
	Args   []Expr
	span   lexer.Span
}

func (e *CallExpr) Span() lexer.Span { return e.span }

// NewCallExpr constructs a call expression node.
func NewCallExpr(callee Expr, args []Expr, span lexer.Span) *CallExpr {
	return &CallExpr{Callee: callee, Args: args, span: span}
}

func (*CallExpr) exprNode() {}

// IndexExpr represents an array index expression.
type IndexExpr struct {
	Target Expr
	Index  Expr
	span   lexer.Span
}

func (e *IndexExpr) Span() lexer.Span { return e.span }

// NewIndexExpr constructs an index expression node.
func NewIndexExpr(target, index Expr, span lexer.Span) *IndexExpr {
	return &IndexExpr{Target: target, Index: index, span: span}
}

func (*IndexExpr) exprNode() {}

// FieldExpr represents a field access expression.
type FieldExpr struct {
	Target Expr
	Field  *Ident
	span   lexer.Span
}

func (e *FieldExpr) Span() lexer.Span { return e.span }

// NewFieldExpr constructs a field access node.
func NewFieldExpr(target Expr, field *Ident, span lexer.Span) *FieldExpr {
	return &FieldExpr{Target: target, Field: field, span: span}
}

func (*FieldExpr) exprNode() {}

// LambdaExpr represents an anonymous function |x, y| body. Parameters are
// untyped; the checker infers them.
type LambdaExpr struct {
	Params []*Ident
	Body   Expr
	span   lexer.Span
}

func (e *LambdaExpr) Span() lexer.Span { return e.span }

// NewLambdaExpr constructs a lambda expression node.
func NewLambdaExpr(params []*Ident, body Expr, span lexer.Span) *LambdaExpr {
	return &LambdaExpr{Params: params, Body: body, span: span}
}

func (*LambdaExpr) exprNode() {}

// IfExpr represents a conditional expression. Else is nil, a *BlockExpr,
// or another *IfExpr (else-if chain).
type IfExpr struct {
	Cond Expr
	Then *BlockExpr
	Else Expr
	span lexer.Span
}

func (e *IfExpr) Span() lexer.Span { return e.span }

// NewIfExpr constructs a conditional expression node.
func NewIfExpr(cond Expr, then *BlockExpr, els Expr, span lexer.Span) *IfExpr {
	return &IfExpr{Cond: cond, Then: then, Else: els, span: span}
}

func (*IfExpr) exprNode() {}

// MatchExpr represents a match expression.
type MatchExpr struct {
	Scrutinee Expr
	Arms      []*MatchArm
	span      lexer.Span
}

func (e *MatchExpr) Span() lexer.Span { return e.span }

// NewMatchExpr constructs a match expression node.
func NewMatchExpr(scrutinee Expr, arms []*MatchArm, span lexer.Span) *MatchExpr {
	return &MatchExpr{Scrutinee: scrutinee, Arms: arms, span: span}
}

func (*MatchExpr) exprNode() {}

// MatchArm represents one arm of a match expression. Guard is optional.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr
	Body    Expr
	span    lexer.Span
}

func (a *MatchArm) Span() lexer.Span { return a.span }

// NewMatchArm constructs a match arm node.
func NewMatchArm(pattern Pattern, guard, body Expr, span lexer.Span) *MatchArm {
	return &MatchArm{Pattern: pattern, Guard: guard, Body: body, span: span}
}

// StructLit represents a struct literal Point { x: 1, y: 2 }.
type StructLit struct {
	Name   *Ident
	Fields []*FieldInit
	span   lexer.Span
}

func (e *StructLit) Span() lexer.Span { return e.span }

// NewStructLit constructs a struct literal node.
func NewStructLit(name *Ident, fields []*FieldInit, span lexer.Span) *StructLit {
	return &StructLit{Name: name, Fields: fields, span: span}
}

func (*StructLit) exprNode() {}

// FieldInit represents a single field initializer in a struct literal.
type FieldInit struct {
	Name  *Ident
	Value Expr
	span  lexer.Span
}

func (f *FieldInit) Span() lexer.Span { return f.span }

// NewFieldInit constructs a field initializer node.
func NewFieldInit(name *Ident, value Expr, span lexer.Span) *FieldInit {
	return &FieldInit{Name: name, Value: value, span: span}
}

// VariantExpr represents an enum variant reference Option::Some. A payload
// variant is applied through an enclosing CallExpr.
type VariantExpr struct {
	Enum    *Ident
	Variant *Ident
	span    lexer.Span
}

func (e *VariantExpr) Span() lexer.Span { return e.span }

// NewVariantExpr constructs a variant reference node.
func NewVariantExpr(enum, variant *Ident, span lexer.Span) *VariantExpr {
	return &VariantExpr{Enum: enum, Variant: variant, span: span}
}

func (*VariantExpr) exprNode() {}

// RangeExpr represents an integer range low..high (half-open). Only valid
// as the iterable of a for loop; the parser enforces this.
type RangeExpr struct {
	Low  Expr
	High Expr
	span lexer.Span
}

func (e *RangeExpr) Span() lexer.Span { return e.span }

// NewRangeExpr constructs a range expression node.
func NewRangeExpr(low, high Expr, span lexer.Span) *RangeExpr {
	return &RangeExpr{Low: low, High: high, span: span}
}

func (*RangeExpr) exprNode() {}

// BadExpr is a placeholder for an expression that failed to parse. It keeps
// the tree well-formed so later statements still get checked.
type BadExpr struct {
	span lexer.Span
}

func (e *BadExpr) Span() lexer.Span { return e.span }

// NewBadExpr constructs a bad expression node.
func NewBadExpr(span lexer.Span) *BadExpr { return &BadExpr{span: span} }

func (*BadExpr) exprNode() {}

// NamedType represents a named type reference.
type NamedType struct {
	Name *Ident
	span lexer.Span
}

func (t *NamedType) Span() lexer.Span { return t.span }

// NewNamedType constructs a named type node.
func NewNamedType(name *Ident, span lexer.Span) *NamedType {
	return &NamedType{Name: name, span: span}
}

func (*NamedType) typeNode() {}

// FnType represents a function type annotation fn(Int, Str) -> Bool.
type FnType struct {
	Params []TypeExpr
	Return TypeExpr // nil means Unit
	span   lexer.Span
}

func (t *FnType) Span() lexer.Span { return t.span }

// NewFnType constructs a function type node.
func NewFnType(params []TypeExpr, ret TypeExpr, span lexer.Span) *FnType {
	return &FnType{Params: params, Return: ret, span: span}
}

func (*FnType) typeNode() {}

// ArrayType represents an array type annotation [Int].
type ArrayType struct {
	Elem TypeExpr
	span lexer.Span
}

func (t *ArrayType) Span() lexer.Span { return t.span }

// NewArrayType constructs an array type node.
func NewArrayType(elem TypeExpr, span lexer.Span) *ArrayType {
	return &ArrayType{Elem: elem, span: span}
}

func (*ArrayType) typeNode() {}
