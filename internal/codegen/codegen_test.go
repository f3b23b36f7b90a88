package codegen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rill-lang/rill/internal/codegen"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/mir"
	"github.com/rill-lang/rill/internal/parser"
	"github.com/rill-lang/rill/internal/types"
)

func emitGo(t *testing.T, src string) string {
	t.Helper()

	prog, ds := parser.New(src).ParseProgram()
	require.False(t, diag.HasErrors(ds), "parse errors: %v", ds)

	info, errs := types.NewChecker().CheckProgram(prog)
	require.Empty(t, errs, "type errors: %v", errs)

	out, err := codegen.EmitGo(mir.Lower(prog, info))
	require.NoError(t, err)
	return out
}

func TestEmitProgramShape(t *testing.T) {
	out := emitGo(t, `
		fn double(n: Int) -> Int { n * 2 }
		print(double(21));
	`)

	assert.Contains(t, out, "package main")
	assert.Contains(t, out, "func rillDouble(n int64) int64 {")
	assert.Contains(t, out, "return rillMul(n, 2)")
	assert.Contains(t, out, "func main() {")
	assert.Contains(t, out, "rillPrint(rillDouble(21))")
}

func TestEmitCheckedArithmetic(t *testing.T) {
	out := emitGo(t, `
		let a = 7 + 3;
		let b = a - 1;
		let c = b / 2;
		let d = c % 2;
		print(d);
	`)

	assert.Contains(t, out, "rillAdd(7, 3)")
	assert.Contains(t, out, "rillSub(a, 1)")
	assert.Contains(t, out, "rillDiv(b, 2)")
	assert.Contains(t, out, "rillMod(c, 2)")
}

func TestEmitFloatArithmetic(t *testing.T) {
	out := emitGo(t, `print(1.5 * 2.0);`)

	assert.Contains(t, out, "rillFmul(1.5, 2.0)")
}

func TestEmitShortCircuit(t *testing.T) {
	out := emitGo(t, `
		let x = 5;
		print(x > 0 && x < 10);
		print(x < 0 || x == 5);
	`)

	assert.Contains(t, out, "&&")
	assert.Contains(t, out, "||")
	assert.NotContains(t, out, "func() bool", "boolean operators should not need function literals")
}

func TestEmitStringConcat(t *testing.T) {
	out := emitGo(t, `
		let name = "rill";
		print("hello " + name);
	`)

	assert.Contains(t, out, `"hello "`)
	assert.Contains(t, out, "+")
}

func TestEmitFString(t *testing.T) {
	out := emitGo(t, `
		let n = 42;
		print(f"n is {n}");
	`)

	assert.Contains(t, out, "rillStr(n)")
}

func TestEmitStructDecl(t *testing.T) {
	out := emitGo(t, `
		struct Point { x: Int, y: Int }
		let p = Point { x: 1, y: 2 };
		print(p.x);
	`)

	assert.Contains(t, out, "type Point struct {")
	assert.Contains(t, out, "x int64")
	assert.Contains(t, out, "&Point{x: 1, y: 2}")
	assert.Contains(t, out, "p.x")
	assert.Contains(t, out, "func (v *Point) String() string")
}

func TestEmitEnumDecl(t *testing.T) {
	out := emitGo(t, `
		enum Shape { Circle(Float), Square(Float), Empty }
		let s = Circle(2.0);
		let r = match s {
			Circle(radius) => radius,
			Square(side) => side,
			Empty => 0.0,
		};
		print(r);
	`)

	assert.Contains(t, out, "type Shape struct {")
	assert.Contains(t, out, "tag int64")
	assert.Contains(t, out, "payload []any")
	assert.Contains(t, out, "&Shape{tag: 0, payload: []any{2.0}}")
	assert.Contains(t, out, ".tag")
	assert.Contains(t, out, ".(float64)")
	assert.Contains(t, out, "func (v *Shape) String() string")
}

func TestEmitMatchBecomesTagChain(t *testing.T) {
	out := emitGo(t, `
		enum Color { Red, Green }
		let c = Red;
		let n = match c { Red => 1, Green => 2 };
		print(n);
	`)

	// The decision chain traps only when the checker's exhaustiveness
	// proof is violated at runtime.
	assert.Contains(t, out, `panic("runtime error: unreachable code executed")`)
}

func TestEmitLoops(t *testing.T) {
	out := emitGo(t, `
		let mut total = 0;
		for i in 0..10 {
			if i == 3 { continue; }
			if i > 7 { break; }
			total = total + i;
		}
		print(total);
	`)

	assert.Contains(t, out, "for ")
	assert.Contains(t, out, "continue")
	assert.Contains(t, out, "break")
}

func TestEmitWhile(t *testing.T) {
	out := emitGo(t, `
		let mut n = 0;
		while n < 5 { n = n + 1; }
		print(n);
	`)

	assert.Contains(t, out, "for n < 5 {")
}

func TestEmitClosures(t *testing.T) {
	out := emitGo(t, `
		fn make_adder(n: Int) -> fn(Int) -> Int {
			|x| x + n
		}
		let add2 = make_adder(2);
		print(add2(40));
	`)

	assert.Contains(t, out, "func rillMakeAdder(n int64) func(int64) int64 {")
	assert.Contains(t, out, "func(x int64) int64 {")
	assert.Contains(t, out, "add2(40)")
}

func TestEmitArrays(t *testing.T) {
	out := emitGo(t, `
		let mut xs = [1, 2, 3];
		xs[0] = 10;
		print(xs[0] + len(xs));
	`)

	assert.Contains(t, out, "[]int64{1, 2, 3}")
	assert.Contains(t, out, "rillSetIndex(xs, 0, 10)")
	assert.Contains(t, out, "rillIndex(xs, 0)")
	assert.Contains(t, out, "int64(len(xs))")
}

func TestEmitKeywordLocalsRenamed(t *testing.T) {
	out := emitGo(t, `
		let type = 1;
		print(type);
	`)

	assert.Contains(t, out, "type_")
}

func TestEmitNonUnitResultPrints(t *testing.T) {
	out := emitGo(t, `1 + 2`)

	assert.Contains(t, out, "rillPrint(")
}

func TestEmitGenericBindingBoxes(t *testing.T) {
	out := emitGo(t, `
		let id = |x| x;
		print(id(1) + 1);
	`)

	// A generalized binding keeps its general type; the call site boxes
	// the argument and asserts the result back down.
	assert.Contains(t, out, "func(x any) any {")
	assert.Contains(t, out, "id(int64(1)).(int64)")
}

func TestEmitPrelude(t *testing.T) {
	out := emitGo(t, `print("hi");`)

	// The runtime rides along in every program.
	assert.Contains(t, out, "func rillPrint(v any) rillUnit {")
	assert.Contains(t, out, "func rillRender(v any, nested bool) string {")
	assert.Contains(t, out, "func rillAdd(a, b int64) int64 {")
}

func TestEmitOutputIsGofmted(t *testing.T) {
	out := emitGo(t, `
		fn fib(n: Int) -> Int {
			if n < 2 { n } else { fib(n - 1) + fib(n - 2) }
		}
		print(fib(10));
	`)

	assert.False(t, strings.Contains(out, "\t\n"), "no trailing tabs")
	assert.True(t, strings.HasPrefix(out, "package main\n"))
}

func TestEmitTailIfBecomesReturns(t *testing.T) {
	out := emitGo(t, `
		fn sign(n: Int) -> Int {
			if n < 0 { 0 - 1 } else if n == 0 { 0 } else { 1 }
		}
		print(sign(-5));
	`)

	assert.Contains(t, out, "if n < 0 {")
	assert.Contains(t, out, "return rillSub(0, 1)")
	assert.Contains(t, out, "return 1")
}

// A break in a function literal has no Go loop to target even when a loop
// encloses the literal. The checker rejects such programs, so the module
// is built by hand here.
func TestEmitRejectsBreakInsideFunctionLiteral(t *testing.T) {
	lambda := &mir.Lambda{
		Body: &mir.Block{Stmts: []mir.Stmt{&mir.Break{}}, Typ: mir.Unit},
		Typ:  &mir.FuncType{Ret: mir.Unit},
	}
	m := &mir.Module{Main: &mir.Function{
		Name: "main",
		Body: &mir.Block{
			Stmts: []mir.Stmt{&mir.Loop{
				Cond: &mir.BoolConst{Value: true},
				Body: &mir.Block{
					Stmts: []mir.Stmt{&mir.LocalDecl{Name: "f", Value: lambda, Typ: lambda.Typ}},
					Typ:   mir.Unit,
				},
			}},
			Typ: mir.Unit,
		},
	}}

	_, err := codegen.EmitGo(m)

	var unsupported *codegen.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "break")
}

func TestEmitBreakInLoopInsideLambda(t *testing.T) {
	out := emitGo(t, `
		let count = || {
			let mut n = 0;
			while true {
				n = n + 1;
				if n == 3 { break; }
			}
			n
		};
		print(count());
	`)

	assert.Contains(t, out, "break")
	assert.Contains(t, out, "func() int64 {")
}
