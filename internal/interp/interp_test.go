package interp_test

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/interp"
	"github.com/rill-lang/rill/internal/lexer"
	"github.com/rill-lang/rill/internal/mir"
	"github.com/rill-lang/rill/internal/parser"
	"github.com/rill-lang/rill/internal/types"
)

func compile(t *testing.T, src string) *mir.Module {
	t.Helper()

	prog, ds := parser.New(src).ParseProgram()
	require.False(t, diag.HasErrors(ds), "parse errors: %v", ds)

	info, errs := types.NewChecker().CheckProgram(prog)
	require.Empty(t, errs, "type errors: %v", errs)

	return mir.Lower(prog, info)
}

func run(t *testing.T, src string) (interp.Value, string) {
	t.Helper()

	var out bytes.Buffer
	v, err := interp.New(compile(t, src), interp.WithOutput(&out)).Run()
	require.NoError(t, err)
	return v, out.String()
}

func runErr(t *testing.T, src string) error {
	t.Helper()

	_, err := interp.New(compile(t, src)).Run()
	require.Error(t, err)
	return err
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`2 + 3 * 4`, "14"},
		{`(2 + 3) * 4`, "20"},
		{`10 / 3`, "3"},
		{`10 % 3`, "1"},
		{`-7 / 2`, "-3"},
		{`1.5 * 2.0`, "3.0"},
		{`10.0 / 4.0`, "2.5"},
		{`"foo" + "bar"`, "foobar"},
		{`1 < 2`, "true"},
		{`2.5 >= 2.5`, "true"},
		{`"abc" < "abd"`, "true"},
		{`true && false`, "false"},
		{`!false`, "true"},
		{`-(-5)`, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, _ := run(t, tt.src)
			assert.Equal(t, tt.want, v.Render())
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	err := runErr(t, `1 / 0`)
	re, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, interp.ErrDivisionByZero, re.Kind)

	err = runErr(t, `1 % 0`)
	re = err.(*interp.RuntimeError)
	assert.Equal(t, interp.ErrDivisionByZero, re.Kind)
}

func TestIntegerOverflow(t *testing.T) {
	err := runErr(t, `9223372036854775807 + 1`)
	re, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, interp.ErrIntegerOverflow, re.Kind)
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	// The division would trap if evaluated.
	v, _ := run(t, `false && 1 / 0 == 0`)
	assert.Equal(t, "false", v.Render())

	v, _ = run(t, `true || 1 / 0 == 0`)
	assert.Equal(t, "true", v.Render())
}

func TestFString(t *testing.T) {
	v, _ := run(t, `let x = 5; f"x={x}, next={x + 1}"`)
	assert.Equal(t, "x=5, next=6", v.Render())

	v, _ = run(t, `f"{{literal}} braces"`)
	assert.Equal(t, "{literal} braces", v.Render())
}

func TestRecursion(t *testing.T) {
	v, _ := run(t, `
		fn fib(n: Int) -> Int {
			if n < 2 { n } else { fib(n - 1) + fib(n - 2) }
		}
		fib(15)
	`)
	assert.Equal(t, "610", v.Render())
}

func TestClosuresCaptureEnvironment(t *testing.T) {
	v, _ := run(t, `
		fn make_adder(n: Int) -> fn(Int) -> Int {
			|x| x + n
		}
		let add5 = make_adder(5);
		add5(10)
	`)
	assert.Equal(t, "15", v.Render())
}

func TestClosureSeesMutation(t *testing.T) {
	v, _ := run(t, `
		let mut count = 0;
		let bump = || count = count + 1;
		bump();
		bump();
		count
	`)
	assert.Equal(t, "2", v.Render())
}

func TestWhileLoop(t *testing.T) {
	v, _ := run(t, `
		let mut n = 0;
		let mut total = 0;
		while n < 10 {
			n = n + 1;
			if n % 2 == 0 {
				continue;
			}
			total = total + n;
		}
		total
	`)
	assert.Equal(t, "25", v.Render())
}

func TestForRangeWithBreak(t *testing.T) {
	v, _ := run(t, `
		let mut total = 0;
		for i in 0..100 {
			if i == 5 {
				break;
			}
			total = total + i;
		}
		total
	`)
	assert.Equal(t, "10", v.Render())
}

func TestForOverArray(t *testing.T) {
	v, _ := run(t, `
		let mut total = 0;
		for x in [10, 20, 30] {
			total = total + x;
		}
		total
	`)
	assert.Equal(t, "60", v.Render())
}

func TestContinueStillAdvancesCursor(t *testing.T) {
	// A continue that skipped the cursor increment would loop forever.
	v, _ := run(t, `
		let mut odds = 0;
		for i in 0..10 {
			if i % 2 == 0 {
				continue;
			}
			odds = odds + 1;
		}
		odds
	`)
	assert.Equal(t, "5", v.Render())
}

func TestArraysAreSharedReferences(t *testing.T) {
	v, _ := run(t, `
		let a = [1, 2, 3];
		let b = a;
		b[0] = 99;
		a[0]
	`)
	assert.Equal(t, "99", v.Render())
}

func TestIndexOutOfBounds(t *testing.T) {
	err := runErr(t, `[1, 2, 3][3]`)
	re, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, interp.ErrIndexOutOfBounds, re.Kind)

	err = runErr(t, `[1][-1]`)
	re = err.(*interp.RuntimeError)
	assert.Equal(t, interp.ErrIndexOutOfBounds, re.Kind)
}

func TestStructs(t *testing.T) {
	v, _ := run(t, `
		struct Point { x: Int, y: Int }
		let p = Point { x: 3, y: 4 };
		p.x * p.x + p.y * p.y
	`)
	assert.Equal(t, "25", v.Render())
}

func TestStructFieldAssignment(t *testing.T) {
	v, _ := run(t, `
		struct Counter { n: Int }
		let c = Counter { n: 0 };
		c.n = c.n + 1;
		c.n = c.n + 1;
		c.n
	`)
	assert.Equal(t, "2", v.Render())
}

func TestEnumsAndMatch(t *testing.T) {
	v, _ := run(t, `
		enum Shape {
			Circle(Float),
			Rect(Float, Float),
			Empty,
		}
		fn area(s: Shape) -> Float {
			match s {
				Circle(r) => 3.0 * r * r,
				Rect(w, h) => w * h,
				Empty => 0.0,
			}
		}
		area(Shape::Rect(2.0, 4.0))
	`)
	assert.Equal(t, "8.0", v.Render())
}

func TestMatchFirstArmWins(t *testing.T) {
	v, _ := run(t, `
		match 5 {
			n if n > 0 => "positive",
			n if n > 3 => "unreachable",
			_ => "other",
		}
	`)
	assert.Equal(t, "positive", v.Render())
}

func TestMatchGuardFallsThrough(t *testing.T) {
	v, _ := run(t, `
		match 2 {
			n if n > 10 => "big",
			n if n > 1 => "medium",
			_ => "small",
		}
	`)
	assert.Equal(t, "medium", v.Render())
}

func TestMatchLiteralPatterns(t *testing.T) {
	v, _ := run(t, `
		fn name(n: Int) -> Str {
			match n {
				0 => "zero",
				1 => "one",
				-1 => "minus one",
				_ => "many",
			}
		}
		name(0) + "," + name(-1) + "," + name(7)
	`)
	assert.Equal(t, "zero,minus one,many", v.Render())
}

func TestRecursiveEnum(t *testing.T) {
	v, _ := run(t, `
		enum List { Cons(Int, List), Nil }
		fn sum(l: List) -> Int {
			match l {
				Cons(head, tail) => head + sum(tail),
				Nil => 0,
			}
		}
		sum(List::Cons(1, List::Cons(2, List::Cons(3, List::Nil))))
	`)
	assert.Equal(t, "6", v.Render())
}

func TestPipeline(t *testing.T) {
	v, _ := run(t, `
		fn double(n: Int) -> Int { n * 2 }
		fn inc(n: Int) -> Int { n + 1 }
		5 |> double |> inc
	`)
	assert.Equal(t, "11", v.Render())
}

func TestPrintOutput(t *testing.T) {
	_, out := run(t, `
		print("hello");
		print(42);
		print([1, 2]);
		print(());
	`)
	assert.Equal(t, "hello\n42\n[1, 2]\n()\n", out)
}

func TestStrBuiltin(t *testing.T) {
	v, _ := run(t, `
		struct P { x: Int }
		str(P { x: 1 }) + " " + str(3.5) + " " + str(true)
	`)
	assert.Equal(t, "P { x: 1 } 3.5 true", v.Render())
}

func TestEarlyReturn(t *testing.T) {
	v, _ := run(t, `
		fn sign(n: Int) -> Int {
			if n > 0 {
				return 1;
			}
			if n < 0 {
				return -1;
			}
			0
		}
		sign(-42) + sign(42) * 10
	`)
	assert.Equal(t, "9", v.Render())
}

func TestStackOverflow(t *testing.T) {
	m := compile(t, `
		fn loop_forever(n: Int) -> Int { loop_forever(n + 1) }
		loop_forever(0)
	`)
	_, err := interp.New(m, interp.WithMaxDepth(100)).Run()
	require.Error(t, err)
	re, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, interp.ErrStackOverflow, re.Kind)
}

func TestPolymorphicFunctionValues(t *testing.T) {
	v, _ := run(t, `
		let id = |x| x;
		str(id(1)) + id("s")
	`)
	assert.Equal(t, "1s", v.Render())
}

func TestShadowing(t *testing.T) {
	v, _ := run(t, `
		let x = 1;
		let x = x + 1;
		let x = x * 10;
		x
	`)
	assert.Equal(t, "20", v.Render())
}

func TestStructuralEquality(t *testing.T) {
	v, _ := run(t, `
		struct P { x: Int }
		enum E { A(Int), B }
		let eq1 = P { x: 1 } == P { x: 1 };
		let eq2 = E::A(1) == E::A(2);
		let eq3 = [1, 2] == [1, 2];
		f"{eq1} {eq2} {eq3}"
	`)
	assert.Equal(t, "true false true", v.Render())
}

// Random arithmetic expressions agree with Go's own evaluation, including
// which runtime error they hit first. This exercises the full pipeline
// front to back: lexing, parsing, inference, lowering, and evaluation.
func TestArithmeticAgreesWithHost(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		depth := rapid.IntRange(0, 4).Draw(t, "depth")
		src, want, trap := genIntExpr(t, depth)

		prog, ds := parser.New(src).ParseProgram()
		if diag.HasErrors(ds) {
			t.Fatalf("parse errors for %q: %v", src, ds)
		}
		info, errs := types.NewChecker().CheckProgram(prog)
		if len(errs) > 0 {
			t.Fatalf("type errors for %q: %v", src, errs)
		}

		v, err := interp.New(mir.Lower(prog, info)).Run()
		if trap != nil {
			var rtErr *interp.RuntimeError
			if !errors.As(err, &rtErr) {
				t.Fatalf("%q: want %s, got %v", src, trap, err)
			}
			if rtErr.Kind != *trap {
				t.Fatalf("%q: want %s, got %s", src, trap, rtErr.Kind)
			}
			return
		}
		if err != nil {
			t.Fatalf("eval error for %q: %v", src, err)
		}
		if v.Kind != interp.KindInt || v.Int != want {
			t.Fatalf("%q: got %s, want %d", src, v.Render(), want)
		}
	})
}

// genIntExpr builds a random parenthesized integer expression and its
// exact outcome: either a value or the first runtime error evaluation
// hits. Division and modulus are included, so expressions can trap.
func genIntExpr(t *rapid.T, depth int) (string, int64, *interp.ErrKind) {
	if depth == 0 {
		n := int64(rapid.IntRange(-99, 99).Draw(t, "leaf"))
		if n < 0 {
			return fmt.Sprintf("(%d)", n), n, nil
		}
		return fmt.Sprintf("%d", n), n, nil
	}

	lsrc, lval, ltrap := genIntExpr(t, depth-1)
	rsrc, rval, rtrap := genIntExpr(t, depth-1)

	op := rapid.SampledFrom([]string{"+", "-", "*", "/", "%"}).Draw(t, "op")
	src := fmt.Sprintf("(%s %s %s)", lsrc, op, rsrc)

	// Operands evaluate left to right; the first trap wins.
	if ltrap != nil {
		return src, 0, ltrap
	}
	if rtrap != nil {
		return src, 0, rtrap
	}
	val, trap := applyIntOp(op, lval, rval)
	return src, val, trap
}

// applyIntOp mirrors checked 64-bit arithmetic on the host.
func applyIntOp(op string, a, b int64) (int64, *interp.ErrKind) {
	trap := func(k interp.ErrKind) (int64, *interp.ErrKind) { return 0, &k }
	switch op {
	case "+":
		s := a + b
		if (s > a) != (b > 0) {
			return trap(interp.ErrIntegerOverflow)
		}
		return s, nil
	case "-":
		d := a - b
		if (d < a) != (b > 0) {
			return trap(interp.ErrIntegerOverflow)
		}
		return d, nil
	case "*":
		if a == 0 || b == 0 {
			return 0, nil
		}
		if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
			return trap(interp.ErrIntegerOverflow)
		}
		p := a * b
		if p/b != a {
			return trap(interp.ErrIntegerOverflow)
		}
		return p, nil
	case "/":
		if b == 0 {
			return trap(interp.ErrDivisionByZero)
		}
		if a == math.MinInt64 && b == -1 {
			return trap(interp.ErrIntegerOverflow)
		}
		return a / b, nil
	default: // %
		if b == 0 {
			return trap(interp.ErrDivisionByZero)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, nil
		}
		return a % b, nil
	}
}

// Random well-typed programs over integers, booleans, and strings either
// evaluate to a value of the inferred type or stop at a declared runtime
// error. Never a stuck state, never a panic.
func TestRandomWellTypedProgramsMakeProgress(t *testing.T) {
	kinds := []interp.Kind{interp.KindInt, interp.KindBool, interp.KindStr}
	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom(kinds).Draw(rt, "kind")
		depth := rapid.IntRange(0, 3).Draw(rt, "depth")
		src := genTypedExpr(rt, depth, kind)

		prog, ds := parser.New(src).ParseProgram()
		if diag.HasErrors(ds) {
			rt.Fatalf("parse errors for %q: %v", src, ds)
		}
		info, errs := types.NewChecker().CheckProgram(prog)
		if len(errs) > 0 {
			rt.Fatalf("type errors for %q: %v", src, errs)
		}

		v, err := interp.New(mir.Lower(prog, info)).Run()
		if err != nil {
			var rtErr *interp.RuntimeError
			if !errors.As(err, &rtErr) {
				rt.Fatalf("%q failed with a non-runtime error: %v", src, err)
			}
			return
		}
		if v.Kind != kind {
			rt.Fatalf("%q: inferred %v but evaluated to %s", src, kind, v.Render())
		}
	})
}

// genTypedExpr produces source for a random expression of the given type,
// drawing on arithmetic, comparisons, boolean operators, conditionals,
// let blocks, lambdas applied in place, and string interpolation.
func genTypedExpr(t *rapid.T, depth int, kind interp.Kind) string {
	if depth == 0 {
		switch kind {
		case interp.KindInt:
			return fmt.Sprintf("(%d)", rapid.IntRange(-99, 99).Draw(t, "int"))
		case interp.KindBool:
			if rapid.Bool().Draw(t, "bool") {
				return "true"
			}
			return "false"
		default:
			return fmt.Sprintf("%q", rapid.SampledFrom([]string{"", "a", "rill"}).Draw(t, "str"))
		}
	}

	cond := func() string { return genTypedExpr(t, depth-1, interp.KindBool) }
	sub := func() string { return genTypedExpr(t, depth-1, kind) }

	switch kind {
	case interp.KindInt:
		switch rapid.IntRange(0, 4).Draw(t, "form") {
		case 0:
			op := rapid.SampledFrom([]string{"+", "-", "*", "/", "%"}).Draw(t, "op")
			return fmt.Sprintf("(%s %s %s)", sub(), op, sub())
		case 1:
			return fmt.Sprintf("(if %s { %s } else { %s })", cond(), sub(), sub())
		case 2:
			return fmt.Sprintf("{ let v = %s; v }", sub())
		case 3:
			return fmt.Sprintf("((|p| (p * p))(%s))", sub())
		default:
			return fmt.Sprintf("(-%s)", sub())
		}

	case interp.KindBool:
		switch rapid.IntRange(0, 3).Draw(t, "form") {
		case 0:
			op := rapid.SampledFrom([]string{"<", "<=", ">", ">=", "==", "!="}).Draw(t, "op")
			ints := func() string { return genTypedExpr(t, depth-1, interp.KindInt) }
			return fmt.Sprintf("(%s %s %s)", ints(), op, ints())
		case 1:
			op := rapid.SampledFrom([]string{"&&", "||"}).Draw(t, "op")
			return fmt.Sprintf("(%s %s %s)", sub(), op, sub())
		case 2:
			return fmt.Sprintf("(!%s)", sub())
		default:
			return fmt.Sprintf("(if %s { %s } else { %s })", cond(), sub(), sub())
		}

	default: // Str
		switch rapid.IntRange(0, 3).Draw(t, "form") {
		case 0:
			return fmt.Sprintf("(%s + %s)", sub(), sub())
		case 1:
			// Interpolation holes stay simple: literals only.
			return fmt.Sprintf(`f"v={%s} b={%s}"`,
				genTypedExpr(t, 0, interp.KindInt), genTypedExpr(t, 0, interp.KindBool))
		case 2:
			return fmt.Sprintf("str(%s)", genTypedExpr(t, depth-1, interp.KindInt))
		default:
			return fmt.Sprintf("(if %s { %s } else { %s })", cond(), sub(), sub())
		}
	}
}

func TestRenderNestedAggregates(t *testing.T) {
	v, _ := run(t, `
		struct Pair { name: Str, items: [Int] }
		Pair { name: "box", items: [1, 2] }
	`)
	assert.Equal(t, `Pair { name: "box", items: [1, 2] }`, v.Render())
	assert.True(t, strings.HasPrefix(v.Render(), "Pair"))
}

// Renaming a bound variable must not change what a program computes.
func TestRenamingBoundVariablesPreservesResults(t *testing.T) {
	const template = `
		fn sum_squares(limit: Int) -> Int {
			let mut NAME = 0;
			let mut i = 1;
			while i <= limit {
				NAME = NAME + i * i;
				i = i + 1;
			}
			NAME
		}
		sum_squares(10)
	`

	want, _ := run(t, strings.ReplaceAll(template, "NAME", "acc"))

	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[a-z][a-z0-9_]{0,11}`).Draw(rt, "name")
		// Avoid capturing the other binders or colliding with keywords.
		if name == "i" || name == "limit" || lexer.LookupIdent(name) != lexer.IDENT {
			return
		}

		got, _ := run(t, strings.ReplaceAll(template, "NAME", name))
		if !interp.Equal(got, want) {
			rt.Fatalf("renamed to %q: got %s, want %s", name, got.Render(), want.Render())
		}
	})
}
