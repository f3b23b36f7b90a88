// Package interp is the tree-walking evaluator for lowered modules. It is
// the reference backend: the Go and WASM emitters must agree with it on
// every program all three accept.
package interp

import (
	"strconv"
	"strings"

	"github.com/rill-lang/rill/internal/mir"
)

// Kind tags a runtime value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindStr
	KindUnit
	KindClosure
	KindBuiltin
	KindStruct
	KindEnum
	KindArray
)

func (k Kind) String() string {
	switch k {
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
	case KindClosure, KindBuiltin:
		return "Fn"
	case KindStruct:
		return "Struct"
	case KindEnum:
		return "Enum"
	case KindArray:
		return "Array"
	}
	return "?"
}

// Value is a runtime value. Exactly the field selected by Kind is
// meaningful; aggregates hold pointers so assignment through one binding is
// visible through another.
type Value struct {
	Kind    Kind
	Int     int64
	Float   float64
	Bool    bool
	Str     string
	Builtin string
	Closure *Closure
	Struct  *StructValue
	Enum    *EnumValue
	Array   *ArrayValue
}

// Closure pairs code with its defining environment. Module-level functions
// capture nothing and carry a nil env.
type Closure struct {
	Params []mir.Param
	Body   mir.Expr
	Env    *Env
}

// StructValue stores fields positionally, in declaration order. Names ride
// along for rendering only; equality is positional.
type StructValue struct {
	Name       string
	FieldNames []string
	Fields     []Value
}

// EnumValue is a tagged variant with a positional payload.
type EnumValue struct {
	Enum    string
	Variant string
	Tag     int
	Payload []Value
}

// ArrayValue is a mutable sequence.
type ArrayValue struct {
	Elems []Value
}

var unit = Value{Kind: KindUnit}

func intValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func floatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func boolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func strValue(v string) Value    { return Value{Kind: KindStr, Str: v} }

// Render produces the user-facing text of a value, as `str` and f-strings
// see it. Strings render without quotes at the top level and with quotes
// inside aggregates.
func (v Value) Render() string {
	return v.render(false)
}

func (v Value) render(nested bool) string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindStr:
		if nested {
			return strconv.Quote(v.Str)
		}
		return v.Str
	case KindUnit:
		return "()"
	case KindClosure, KindBuiltin:
		return "<fn>"
	case KindStruct:
		parts := make([]string, len(v.Struct.Fields))
		for i, f := range v.Struct.Fields {
			if i < len(v.Struct.FieldNames) {
				parts[i] = v.Struct.FieldNames[i] + ": " + f.render(true)
			} else {
				parts[i] = f.render(true)
			}
		}
		return v.Struct.Name + " { " + strings.Join(parts, ", ") + " }"
	case KindEnum:
		if len(v.Enum.Payload) == 0 {
			return v.Enum.Variant
		}
		parts := make([]string, len(v.Enum.Payload))
		for i, p := range v.Enum.Payload {
			parts[i] = p.render(true)
		}
		return v.Enum.Variant + "(" + strings.Join(parts, ", ") + ")"
	case KindArray:
		parts := make([]string, len(v.Array.Elems))
		for i, el := range v.Array.Elems {
			parts[i] = el.render(true)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "?"
}

// formatFloat keeps whole floats recognizable as floats.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}

// Equal is structural equality. Functions compare by identity and are
// never equal unless they are the same closure.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindBool:
		return a.Bool == b.Bool
	case KindStr:
		return a.Str == b.Str
	case KindUnit:
		return true
	case KindClosure:
		return a.Closure == b.Closure
	case KindBuiltin:
		return a.Builtin == b.Builtin
	case KindStruct:
		if a.Struct.Name != b.Struct.Name || len(a.Struct.Fields) != len(b.Struct.Fields) {
			return false
		}
		for i := range a.Struct.Fields {
			if !Equal(a.Struct.Fields[i], b.Struct.Fields[i]) {
				return false
			}
		}
		return true
	case KindEnum:
		if a.Enum.Enum != b.Enum.Enum || a.Enum.Tag != b.Enum.Tag {
			return false
		}
		for i := range a.Enum.Payload {
			if !Equal(a.Enum.Payload[i], b.Enum.Payload[i]) {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.Array.Elems) != len(b.Array.Elems) {
			return false
		}
		for i := range a.Array.Elems {
			if !Equal(a.Array.Elems[i], b.Array.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}
