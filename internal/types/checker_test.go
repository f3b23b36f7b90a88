package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/parser"
	"github.com/rill-lang/rill/internal/types"
)

func checkSource(t *testing.T, src string) (*types.Info, *ast.Program, []diag.Diagnostic) {
	t.Helper()

	prog, ds := parser.New(src).ParseProgram()
	require.False(t, diag.HasErrors(ds), "unexpected parse errors: %v", ds)

	info, errs := types.NewChecker().CheckProgram(prog)
	return info, prog, errs
}

func requireClean(t *testing.T, src string) (*types.Info, *ast.Program) {
	t.Helper()

	info, prog, errs := checkSource(t, src)
	require.Empty(t, errs, "unexpected type errors")
	return info, prog
}

func hasCode(errs []diag.Diagnostic, code diag.Code) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

// lastExprType returns the resolved type of the final top-level expression
// statement.
func lastExprType(t *testing.T, info *types.Info, prog *ast.Program) types.Type {
	t.Helper()

	require.NotEmpty(t, prog.Stmts)
	es, ok := prog.Stmts[len(prog.Stmts)-1].(*ast.ExprStmt)
	require.True(t, ok, "last statement is not an expression")

	typ, ok := info.TypeOf(es.Expr)
	require.True(t, ok, "no type recorded for final expression")
	return typ
}

func TestInferArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`1 + 2 * 3`, "Int"},
		{`1.5 + 2.5`, "Float"},
		{`"a" + "b"`, "Str"},
		{`10 % 3`, "Int"},
		{`-5`, "Int"},
		{`1 < 2`, "Bool"},
		{`"a" == "b"`, "Bool"},
		{`true && !false`, "Bool"},
		{`if true { 1 } else { 2 }`, "Int"},
		{`[1, 2, 3][0]`, "Int"},
		{`f"x={1 + 2}"`, "Str"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			info, prog := requireClean(t, tt.src)
			assert.Equal(t, tt.want, lastExprType(t, info, prog).String())
		})
	}
}

func TestOperandMismatch(t *testing.T) {
	_, _, errs := checkSource(t, `1 + "a";`)
	assert.True(t, hasCode(errs, diag.CodeTypeMismatch))
}

func TestBoolOperandsRequired(t *testing.T) {
	_, _, errs := checkSource(t, `1 && true;`)
	assert.True(t, hasCode(errs, diag.CodeTypeMismatch))
}

func TestUndefinedIdentifier(t *testing.T) {
	_, _, errs := checkSource(t, `nope + 1;`)
	assert.True(t, hasCode(errs, diag.CodeTypeUndefinedIdentifier))
}

func TestLetAnnotationMismatch(t *testing.T) {
	_, _, errs := checkSource(t, `let x: Int = "s";`)
	assert.True(t, hasCode(errs, diag.CodeTypeMismatch))
}

func TestImmutableAssign(t *testing.T) {
	_, _, errs := checkSource(t, `let x = 1; x = 2;`)
	require.True(t, hasCode(errs, diag.CodeTypeImmutableAssign))

	requireClean(t, `let mut x = 1; x = 2;`)
}

func TestLambdaInference(t *testing.T) {
	info, prog := requireClean(t, `let add = |x, y| x + y; add(1, 2)`)
	assert.Equal(t, "Int", lastExprType(t, info, prog).String())
}

func TestLambdaCheckedAgainstAnnotation(t *testing.T) {
	requireClean(t, `let f: fn(Str) -> Str = |s| s + "!"; f("hi");`)
}

func TestGeneralization(t *testing.T) {
	// `id` must be usable at two different types.
	info, prog := requireClean(t, `
		let id = |x| x;
		let a = id(1);
		let b = id("s");
		b
	`)
	assert.Equal(t, "Str", lastExprType(t, info, prog).String())
}

func TestMutableBindingIsMonomorphic(t *testing.T) {
	_, _, errs := checkSource(t, `
		let mut f = |x| x;
		f(1);
		f("s");
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeMismatch))
}

func TestOccursCheckRejectsSelfApplication(t *testing.T) {
	_, _, errs := checkSource(t, `let f = |x| x(x);`)
	assert.True(t, hasCode(errs, diag.CodeTypeInfiniteType))
}

func TestFunctionDeclarations(t *testing.T) {
	requireClean(t, `
		fn fib(n: Int) -> Int {
			if n < 2 { n } else { fib(n - 1) + fib(n - 2) }
		}
		fib(10);
	`)
}

func TestMutualRecursion(t *testing.T) {
	requireClean(t, `
		fn is_even(n: Int) -> Bool {
			if n == 0 { true } else { is_odd(n - 1) }
		}
		fn is_odd(n: Int) -> Bool {
			if n == 0 { false } else { is_even(n - 1) }
		}
		is_even(10);
	`)
}

func TestEarlyReturnBody(t *testing.T) {
	requireClean(t, `
		fn clamp(n: Int) -> Int {
			if n < 0 {
				return 0;
			}
			n
		}
		clamp(-3);
	`)
}

func TestCallArityMismatch(t *testing.T) {
	_, _, errs := checkSource(t, `
		fn f(a: Int, b: Int) -> Int { a + b }
		f(1);
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeArityMismatch))
}

func TestCallNonFunction(t *testing.T) {
	_, _, errs := checkSource(t, `let x = 1; x(2);`)
	assert.True(t, hasCode(errs, diag.CodeTypeNotAFunction))
}

func TestStructs(t *testing.T) {
	info, prog := requireClean(t, `
		struct Point { x: Int, y: Int }
		let p = Point { x: 1, y: 2 };
		p.x + p.y
	`)
	assert.Equal(t, "Int", lastExprType(t, info, prog).String())
}

func TestStructUnknownField(t *testing.T) {
	_, _, errs := checkSource(t, `
		struct Point { x: Int, y: Int }
		let p = Point { x: 1, y: 2 };
		p.z;
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeUnknownField))
}

func TestStructMissingField(t *testing.T) {
	_, _, errs := checkSource(t, `
		struct Point { x: Int, y: Int }
		Point { x: 1 };
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeMissingField))
}

func TestEnumVariants(t *testing.T) {
	requireClean(t, `
		enum Option { Some(Int), None }
		let a = Option::Some(1);
		let b = Option::None;
		match a {
			Some(n) => n,
			None => 0,
		};
		b;
	`)
}

func TestRecursiveEnum(t *testing.T) {
	requireClean(t, `
		enum List { Cons(Int, List), Nil }
		fn sum(l: List) -> Int {
			match l {
				Cons(head, tail) => head + sum(tail),
				Nil => 0,
			}
		}
		sum(List::Cons(1, List::Cons(2, List::Nil)));
	`)
}

func TestNonExhaustiveMatch(t *testing.T) {
	_, _, errs := checkSource(t, `
		enum Color { Red, Green, Blue }
		fn name(c: Color) -> Str {
			match c {
				Red => "red",
				Green => "green",
			}
		}
	`)
	require.True(t, hasCode(errs, diag.CodeTypeNonExhaustiveMatch))
}

func TestGuardedArmDoesNotCount(t *testing.T) {
	// The wildcard arm carries a guard, so the match can still fall
	// through.
	_, _, errs := checkSource(t, `
		match 1 {
			0 => "zero",
			n if n > 0 => "positive",
		};
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeNonExhaustiveMatch))
}

func TestBoolMatchExhaustive(t *testing.T) {
	requireClean(t, `
		match 1 == 1 {
			true => "yes",
			false => "no",
		};
	`)
}

func TestIntMatchNeedsCatchAll(t *testing.T) {
	_, _, errs := checkSource(t, `
		match 3 {
			0 => "zero",
			1 => "one",
		};
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeNonExhaustiveMatch))
}

func TestMatchArmTypesAgree(t *testing.T) {
	_, _, errs := checkSource(t, `
		match 1 {
			0 => "zero",
			_ => 1,
		};
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeMismatch))
}

func TestForLoops(t *testing.T) {
	requireClean(t, `
		let mut total = 0;
		for i in 0..10 {
			total = total + i;
		}
		for x in [1, 2, 3] {
			total = total + x;
		}
	`)
}

func TestBreakOutsideLoop(t *testing.T) {
	_, _, errs := checkSource(t, `break;`)
	assert.True(t, hasCode(errs, diag.CodeTypeInvalidOperation))
}

func TestBreakInsideLambdaLeavesEnclosingLoop(t *testing.T) {
	// The lambda body is its own function; a loop around the lambda
	// expression is not a valid break target.
	_, _, errs := checkSource(t, `
		let mut i = 0;
		while i < 3 {
			let f = || { break; };
			f();
			i = i + 1;
		}
	`)
	require.True(t, hasCode(errs, diag.CodeTypeInvalidOperation))
	assert.Contains(t, errs[0].Message, "break outside of a loop")
}

func TestContinueInsideLambdaRejected(t *testing.T) {
	_, _, errs := checkSource(t, `
		for i in 0..3 {
			let f = || { continue; };
			f();
		}
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeInvalidOperation))
}

func TestLoopInsideLambdaStillAllowsBreak(t *testing.T) {
	requireClean(t, `
		let count = || {
			let mut n = 0;
			while true {
				n = n + 1;
				if n == 3 { break; }
			}
			n
		};
		count();
	`)
}

func TestBuiltins(t *testing.T) {
	requireClean(t, `
		print("hello");
		print(42);
		let n = len([1, 2, 3]);
		let s = str(3.5);
		n;
		s;
	`)
}

func TestPipelineDesugarsToCalls(t *testing.T) {
	info, prog := requireClean(t, `
		fn double(n: Int) -> Int { n * 2 }
		fn add(a: Int, b: Int) -> Int { a + b }
		5 |> double |> add(3)
	`)
	assert.Equal(t, "Int", lastExprType(t, info, prog).String())
}

func TestDuplicateDeclarations(t *testing.T) {
	_, _, errs := checkSource(t, `
		fn f() -> Int { 1 }
		fn f() -> Int { 2 }
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeDuplicateDecl))

	_, _, errs = checkSource(t, `
		struct S { x: Int }
		struct S { y: Int }
	`)
	assert.True(t, hasCode(errs, diag.CodeTypeDuplicateDecl))
}

func TestIntegerLiteralOutOfRange(t *testing.T) {
	_, _, errs := checkSource(t, `9223372036854775808;`)
	assert.True(t, hasCode(errs, diag.CodeTypeInvalidOperation))
}

func TestErrorsAccumulate(t *testing.T) {
	// One pass reports every error, not just the first.
	_, _, errs := checkSource(t, `
		nope1;
		nope2;
		1 + "a";
	`)
	count := 0
	for _, e := range errs {
		if e.Severity == diag.SeverityError {
			count++
		}
	}
	assert.GreaterOrEqual(t, count, 3)
}

func TestIfWithoutElseIsUnit(t *testing.T) {
	info, prog := requireClean(t, `if true { 1 }`)
	assert.Equal(t, "Unit", lastExprType(t, info, prog).String())
}
