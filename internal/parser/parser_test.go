package parser_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, ds := parser.New(src).ParseProgram()
	require.False(t, diag.HasErrors(ds), "parse errors: %v", ds)
	return prog
}

// firstExpr pulls the expression out of the first statement.
func firstExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	prog := parse(t, src)
	require.NotEmpty(t, prog.Stmts)
	es, ok := prog.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok, "first statement is %T, want expression", prog.Stmts[0])
	return es.Expr
}

func TestParseFunctionDecl(t *testing.T) {
	prog := parse(t, `fn add(a: Int, b: Int) -> Int { a + b }`)

	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.FnDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name.Name)
	assert.NotNil(t, fn.ReturnType)
}

func TestParseUnitFunctionOmitsArrow(t *testing.T) {
	prog := parse(t, `fn greet(name: Str) { print(name); }`)

	fn := prog.Decls[0].(*ast.FnDecl)
	assert.Nil(t, fn.ReturnType)
}

func TestParsePrecedence(t *testing.T) {
	// The printer fully parenthesizes, making grouping visible.
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3;", "(1 + (2 * 3))"},
		{"(1 + 2) * 3;", "((1 + 2) * 3)"},
		{"-a * b;", "(-(a) * b)"},
		{"!a == b;", "(!(a) == b)"},
		{"a + b < c * d;", "((a + b) < (c * d))"},
		{"a == b && c != d;", "((a == b) && (c != d))"},
		{"a && b || c && d;", "((a && b) || (c && d))"},
		{"a.b.c;", "a.b.c"},
		{"xs[0] + xs[1];", "(xs[0] + xs[1])"},
		{"f(a)(b);", "f(a)(b)"},
	}

	for _, tt := range tests {
		got := ast.PrintExpr(firstExpr(t, tt.input))
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParsePipelineDesugar(t *testing.T) {
	// `x |> f` is plain call syntax by the time it reaches the AST.
	tests := []struct {
		input string
		want  string
	}{
		{"x |> f;", "f(x)"},
		{"x |> f(a);", "f(x, a)"},
		{"x |> f |> g;", "g(f(x))"},
		{"xs |> len;", "len(xs)"},
	}

	for _, tt := range tests {
		got := ast.PrintExpr(firstExpr(t, tt.input))
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParsePipelineTargetMustBeCallable(t *testing.T) {
	_, ds := parser.New(`1 |> 2;`).ParseProgram()

	require.True(t, diag.HasErrors(ds))
	assert.Contains(t, ds[0].Message, "pipeline")
}

func TestParseMatchArms(t *testing.T) {
	expr := firstExpr(t, `
		match shape {
			Shape::Circle(r) => r,
			Shape::Rect(w, h) if w > h => w,
			n => n,
			_ => 0,
		};
	`)

	m, ok := expr.(*ast.MatchExpr)
	require.True(t, ok)
	require.Len(t, m.Arms, 4)
	assert.Nil(t, m.Arms[0].Guard)
	assert.NotNil(t, m.Arms[1].Guard)
}

func TestParseMultiErrorRecovery(t *testing.T) {
	// Two broken statements, one good declaration after them. The parser
	// reports both and still produces the declaration.
	src := `
		let = 1;
		let y 2;
		fn ok(n: Int) -> Int { n }
	`
	prog, ds := parser.New(src).ParseProgram()

	errs := 0
	for _, d := range ds {
		if d.Severity == diag.SeverityError {
			errs++
		}
	}
	assert.True(t, errs >= 2, "want at least 2 errors, got %d: %v", errs, ds)

	require.NotNil(t, prog)
	found := false
	for _, d := range prog.Decls {
		if fn, ok := d.(*ast.FnDecl); ok && fn.Name.Name == "ok" {
			found = true
		}
	}
	assert.True(t, found, "declaration after the errors should survive")
}

func TestParseErrorsCarrySpans(t *testing.T) {
	_, ds := parser.New("let x = ;\nlet y = 1;").ParseProgram()

	require.True(t, diag.HasErrors(ds))
	assert.Equal(t, 1, ds[0].Span.Line)
	assert.True(t, ds[0].Span.Column > 0)
}

func TestParseRoundTrip(t *testing.T) {
	// Print then re-parse then print again: the second pass must be a
	// fixed point.
	sources := []string{
		`fn fact(n: Int) -> Int { if n < 2 { 1 } else { n * fact(n - 1) } }
		 print(fact(10));`,
		`struct Point { x: Int, y: Int }
		 let p = Point { x: 1, y: 2 };
		 print(p.x + p.y);`,
		`enum Opt { Some(Int), None }
		 let o = Opt::Some(3);
		 match o { Opt::Some(n) => print(n), Opt::None => print(0) };`,
		`let mut i = 0;
		 while i < 10 { i = i + 1; }
		 for x in 0..i { print(f"x is {x}"); }`,
		`let add = |a, b| a + b;
		 print([1, 2, 3] |> len);`,
	}

	for _, src := range sources {
		first := ast.Print(parse(t, src))
		second := ast.Print(parse(t, first))
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("print/parse not a fixed point (-first +second):\n%s", diff)
		}
	}
}

func TestParseFiles(t *testing.T) {
	sources := map[string]string{
		"main.rill": `print("main");`,
		"lib.rill":  `fn helper(n: Int) -> Int { n * 2 }`,
		"bad.rill":  `fn (`,
	}

	results, err := parser.ParseFiles(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byName := map[string]parser.FileResult{}
	for _, r := range results {
		byName[r.Filename] = r
	}

	assert.False(t, diag.HasErrors(byName["main.rill"].Diagnostics))
	assert.False(t, diag.HasErrors(byName["lib.rill"].Diagnostics))
	require.True(t, diag.HasErrors(byName["bad.rill"].Diagnostics))
	assert.Equal(t, "bad.rill", byName["bad.rill"].Diagnostics[0].Span.Filename)
}

func TestParserNeverPanics(t *testing.T) {
	// Arbitrary input may be rejected but must never crash the parser.
	rapid.Check(t, func(t *rapid.T) {
		src := rapid.String().Draw(t, "src")
		prog, ds := parser.New(src).ParseProgram()
		_ = prog
		_ = ds
	})
}

func TestParserNeverPanicsOnMangledPrograms(t *testing.T) {
	// Start from a valid program and cut it off mid-token.
	base := `
		struct Point { x: Int, y: Int }
		fn dist(a: Point) -> Int { a.x * a.x + a.y * a.y }
		let mut total = 0;
		for i in 0..10 { total = total + dist(Point { x: i, y: i }); }
		print(f"total = {total}");
	`
	rapid.Check(t, func(t *rapid.T) {
		cut := rapid.IntRange(0, len(base)).Draw(t, "cut")
		src := base[:cut]
		_, _ = parser.New(src).ParseProgram()
	})
}

func TestParseBlockAsExpression(t *testing.T) {
	expr := firstExpr(t, `{ let a = 1; a + 1 };`)

	block, ok := expr.(*ast.BlockExpr)
	require.True(t, ok)
	assert.Len(t, block.Stmts, 1)
	assert.NotNil(t, block.Tail)
}

func TestParseStructLitSuppressedInConditions(t *testing.T) {
	// `if x { ... }` must read the brace as the if-body, not a struct
	// literal named x.
	prog := parse(t, `
		let x = true;
		if x { print(1); }
	`)

	assert.True(t, len(prog.Stmts) >= 2)
}

func TestParseFStringParts(t *testing.T) {
	expr := firstExpr(t, `f"a {1 + 2} b {name}";`)

	fs, ok := expr.(*ast.FStringLit)
	require.True(t, ok)

	exprs := 0
	for _, part := range fs.Parts {
		if part.Expr != nil {
			exprs++
		}
	}
	assert.Equal(t, 2, exprs)

	rendered := ast.PrintExpr(fs)
	assert.True(t, strings.HasPrefix(rendered, `f"`))
	assert.Contains(t, rendered, "{(1 + 2)}")
}
