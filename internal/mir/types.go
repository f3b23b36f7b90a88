package mir

import "strings"

// Type is the MIR-level type of a value. It is deliberately flatter than
// the checker's representation: no variables, no schemes. A value whose
// surface type never resolved (an unused polymorphic binding) is Any.
type Type interface {
	String() string
	typeNode()
}

// ScalarKind enumerates the scalar types.
type ScalarKind int

const (
	KindInt ScalarKind = iota
	KindFloat
	KindBool
	KindStr
	KindUnit
	KindAny
)

// Scalar is a scalar type.
type Scalar struct {
	Kind ScalarKind
}

func (s *Scalar) String() string {
	switch s.Kind {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindStr:
		return "Str"
	case KindUnit:
		return "Unit"
	}
	return "Any"
}
func (*Scalar) typeNode() {}

var (
	Int   = &Scalar{Kind: KindInt}
	Float = &Scalar{Kind: KindFloat}
	Bool  = &Scalar{Kind: KindBool}
	Str   = &Scalar{Kind: KindStr}
	Unit  = &Scalar{Kind: KindUnit}
	Any   = &Scalar{Kind: KindAny}
)

// FuncType is the type of a function value.
type FuncType struct {
	Params []Type
	Ret    Type
}

func (f *FuncType) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return "fn(" + strings.Join(parts, ", ") + ") -> " + f.Ret.String()
}
func (*FuncType) typeNode() {}

// StructRef names a struct type; the definition lives in the module.
type StructRef struct {
	Name string
}

func (s *StructRef) String() string { return s.Name }
func (*StructRef) typeNode()        {}

// EnumRef names an enum type.
type EnumRef struct {
	Name string
}

func (e *EnumRef) String() string { return e.Name }
func (*EnumRef) typeNode()        {}

// ArrayRef is an array type.
type ArrayRef struct {
	Elem Type
}

func (a *ArrayRef) String() string { return "[" + a.Elem.String() + "]" }
func (*ArrayRef) typeNode()        {}

// StructType builds a struct reference.
func StructType(name string) *StructRef { return &StructRef{Name: name} }

// EnumType builds an enum reference.
func EnumType(name string) *EnumRef { return &EnumRef{Name: name} }

// ArrayType builds an array type.
func ArrayType(elem Type) *ArrayRef { return &ArrayRef{Elem: elem} }

// IsScalar reports whether t is one of the scalar kinds (Any excluded).
func IsScalar(t Type) bool {
	s, ok := t.(*Scalar)
	return ok && s.Kind != KindAny
}

// IsKind reports whether t is the given scalar kind.
func IsKind(t Type, kind ScalarKind) bool {
	s, ok := t.(*Scalar)
	return ok && s.Kind == kind
}
