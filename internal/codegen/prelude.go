package codegen

// preludeSrc is the runtime support emitted into every generated program.
// The helpers mirror the tree-walking evaluator: checked integer
// arithmetic that traps on overflow and division by zero, rendering that
// quotes strings inside aggregates, and structural equality. Arithmetic
// goes through functions rather than operators so the Go compiler never
// constant-folds an expression the evaluator would trap on.
const preludeSrc = `
import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

type rillUnit struct{}

func rillTrap(msg string) {
	panic("runtime error: " + msg)
}

func rillPrint(v any) rillUnit {
	fmt.Println(rillRender(v, false))
	return rillUnit{}
}

func rillStr(v any) string {
	return rillRender(v, false)
}

func rillRender(v any, nested bool) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && !strings.Contains(s, "NaN") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(x)
	case string:
		if nested {
			return strconv.Quote(x)
		}
		return x
	case rillUnit:
		return "()"
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = rillRender(rv.Index(i).Interface(), true)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Func:
		return "<fn>"
	}
	return fmt.Sprint(v)
}

func rillEq(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() == reflect.Func || bv.Kind() == reflect.Func {
		return av.Kind() == bv.Kind() && av.Pointer() == bv.Pointer()
	}
	return reflect.DeepEqual(a, b)
}

func rillAdd(a, b int64) int64 {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		rillTrap(fmt.Sprintf("integer overflow: %d + %d", a, b))
	}
	return a + b
}

func rillSub(a, b int64) int64 {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		rillTrap(fmt.Sprintf("integer overflow: %d - %d", a, b))
	}
	return a - b
}

func rillMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		if a == 1 {
			return b
		}
		if b == 1 {
			return a
		}
		rillTrap(fmt.Sprintf("integer overflow: %d * %d", a, b))
	}
	r := a * b
	if r/b != a {
		rillTrap(fmt.Sprintf("integer overflow: %d * %d", a, b))
	}
	return r
}

func rillDiv(a, b int64) int64 {
	if b == 0 {
		rillTrap(fmt.Sprintf("division by zero: %d / 0", a))
	}
	if a == math.MinInt64 && b == -1 {
		rillTrap(fmt.Sprintf("integer overflow: %d / -1", a))
	}
	return a / b
}

func rillMod(a, b int64) int64 {
	if b == 0 {
		rillTrap(fmt.Sprintf("division by zero: %d %% 0", a))
	}
	if a == math.MinInt64 && b == -1 {
		return 0
	}
	return a % b
}

func rillNeg(a int64) int64 {
	if a == math.MinInt64 {
		rillTrap(fmt.Sprintf("integer overflow: -(%d)", a))
	}
	return -a
}

func rillFadd(a, b float64) float64 { return a + b }
func rillFsub(a, b float64) float64 { return a - b }
func rillFmul(a, b float64) float64 { return a * b }
func rillFdiv(a, b float64) float64 { return a / b }

func rillIndex[T any](a []T, i int64) T {
	if i < 0 || i >= int64(len(a)) {
		rillTrap(fmt.Sprintf("index out of bounds: index %d, length %d", i, len(a)))
	}
	return a[i]
}

func rillSetIndex[T any](a []T, i int64, v T) {
	if i < 0 || i >= int64(len(a)) {
		rillTrap(fmt.Sprintf("index out of bounds: index %d, length %d", i, len(a)))
	}
	a[i] = v
}

func rillLenAny(v any) int64 {
	return int64(reflect.ValueOf(v).Len())
}
`
