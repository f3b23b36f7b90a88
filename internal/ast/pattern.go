package ast

import "github.com/rill-lang/rill/internal/lexer"

// Pattern represents a match pattern node.
type Pattern interface {
	Node
	patternNode()
}

// PatternWild represents the `_` wildcard.
type PatternWild struct {
	span lexer.Span
}

// NewPatternWild constructs a wildcard pattern.
func NewPatternWild(span lexer.Span) *PatternWild {
	return &PatternWild{span: span}
}

func (p *PatternWild) Span() lexer.Span { return p.span }

func (*PatternWild) patternNode() {}

// PatternBinding represents an identifier binding pattern. A binding always
// matches and introduces the name into the arm's scope.
type PatternBinding struct {
	Name *Ident
	span lexer.Span
}

// NewPatternBinding constructs a binding pattern.
func NewPatternBinding(name *Ident, span lexer.Span) *PatternBinding {
	return &PatternBinding{Name: name, span: span}
}

func (p *PatternBinding) Span() lexer.Span { return p.span }

func (*PatternBinding) patternNode() {}

// PatternLiteral represents a literal pattern (integer, bool, or string).
type PatternLiteral struct {
	Lit  Expr // *IntegerLit, *BoolLit, or *StringLit
	span lexer.Span
}

// NewPatternLiteral constructs a literal pattern.
func NewPatternLiteral(lit Expr, span lexer.Span) *PatternLiteral {
	return &PatternLiteral{Lit: lit, span: span}
}

func (p *PatternLiteral) Span() lexer.Span { return p.span }

func (*PatternLiteral) patternNode() {}

// PatternVariant represents an enum variant pattern `Some(x)` or
// `Option::Some(x)`. Enum is nil when the variant name appears bare; the
// checker resolves it against the scrutinee's enum type.
type PatternVariant struct {
	Enum    *Ident // optional qualifier
	Variant *Ident
	Elems   []Pattern // sub-patterns for the payload, empty for unit variants
	span    lexer.Span
}

// NewPatternVariant constructs a variant pattern.
func NewPatternVariant(enum, variant *Ident, elems []Pattern, span lexer.Span) *PatternVariant {
	return &PatternVariant{Enum: enum, Variant: variant, Elems: elems, span: span}
}

func (p *PatternVariant) Span() lexer.Span { return p.span }

func (*PatternVariant) patternNode() {}
