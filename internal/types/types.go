package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type represents a type in the Rill type system. Types are structural:
// equality means substitution-resolved forms match exactly.
type Type interface {
	String() string
	// IsType is a marker method to ensure type safety.
	IsType()
}

// PrimitiveKind represents the kind of a primitive type.
type PrimitiveKind string

const (
	Int   PrimitiveKind = "Int"
	Float PrimitiveKind = "Float"
	Bool  PrimitiveKind = "Bool"
	Str   PrimitiveKind = "Str"
	Unit  PrimitiveKind = "Unit"
)

// Primitive represents a primitive type.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) IsType()        {}

// Common primitive instances
var (
	TypeInt   = &Primitive{Kind: Int}
	TypeFloat = &Primitive{Kind: Float}
	TypeBool  = &Primitive{Kind: Bool}
	TypeStr   = &Primitive{Kind: Str}
	TypeUnit  = &Primitive{Kind: Unit}
)

// Var represents a unification placeholder. Fresh variables are handed out
// by the checker; a Substitution resolves them.
type Var struct {
	ID int
}

func (v *Var) String() string { return fmt.Sprintf("t%d", v.ID) }
func (v *Var) IsType()        {}

// Function represents a function type.
type Function struct {
	Params []Type
	Return Type
}

func (f *Function) String() string {
	var params []string
	for _, p := range f.Params {
		params = append(params, p.String())
	}
	ret := TypeUnit.String()
	if f.Return != nil {
		ret = f.Return.String()
	}
	return "fn(" + strings.Join(params, ", ") + ") -> " + ret
}
func (f *Function) IsType() {}

// Struct represents a struct type.
type Struct struct {
	Name   string
	Fields []Field
}

type Field struct {
	Name string
	Type Type
}

func (s *Struct) String() string { return s.Name }
func (s *Struct) IsType()        {}

// FieldType returns the type of the named field, if present.
func (s *Struct) FieldType(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Enum represents an enum type.
type Enum struct {
	Name     string
	Variants []Variant
}

type Variant struct {
	Name    string
	Payload []Type // empty for unit variants
}

func (e *Enum) String() string { return e.Name }
func (e *Enum) IsType()        {}

// VariantIndex returns the tag and definition of the named variant.
func (e *Enum) VariantIndex(name string) (int, *Variant, bool) {
	for i := range e.Variants {
		if e.Variants[i].Name == name {
			return i, &e.Variants[i], true
		}
	}
	return 0, nil, false
}

// Array represents a homogeneous array type.
type Array struct {
	Elem Type
}

func (a *Array) String() string { return "[" + a.Elem.String() + "]" }
func (a *Array) IsType()        {}

// Named represents a reference to a declared type resolved through the
// checker's type table by name. Recursive enums and structs point back at
// themselves through a Named, never through a direct cycle in the Type
// graph.
type Named struct {
	Name string
}

func (n *Named) String() string { return n.Name }
func (n *Named) IsType()        {}

// Forall is a polymorphic type scheme: the listed variable IDs are
// universally quantified in Body. Schemes live only in scopes; a fresh
// instantiation happens at every use site.
type Forall struct {
	Vars []int
	Body Type
}

func (f *Forall) String() string {
	if len(f.Vars) == 0 {
		return f.Body.String()
	}
	names := make([]string, len(f.Vars))
	for i, v := range f.Vars {
		names[i] = fmt.Sprintf("t%d", v)
	}
	sort.Strings(names)
	return "forall " + strings.Join(names, " ") + ". " + f.Body.String()
}

// MonoScheme wraps a monomorphic type in a trivial scheme.
func MonoScheme(t Type) *Forall {
	return &Forall{Body: t}
}

// FreeVars collects the IDs of unresolved type variables in t, resolving
// through sub first.
func FreeVars(t Type, sub Substitution, acc map[int]bool) {
	switch tt := sub.Apply(t).(type) {
	case *Var:
		acc[tt.ID] = true
	case *Function:
		for _, p := range tt.Params {
			FreeVars(p, sub, acc)
		}
		if tt.Return != nil {
			FreeVars(tt.Return, sub, acc)
		}
	case *Array:
		FreeVars(tt.Elem, sub, acc)
	}
	// Structs and enums are nominal; their fields never contain free
	// unification variables once declared.
}
