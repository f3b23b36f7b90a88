package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestWalkVisitsEveryIdent(t *testing.T) {
	prog := parse(t, `
		fn twice(n: Int) -> Int { n + n }
		let result = twice(21);
		print(result);
	`)

	names := map[string]int{}
	ast.Walk(prog, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			names[id.Name]++
		}
		return true
	})

	assert.Equal(t, 3, names["n"], "declaration plus two uses")
	assert.Equal(t, 2, names["result"])
	assert.Equal(t, 1, names["print"])
}

func TestWalkPruning(t *testing.T) {
	prog := parse(t, `
		fn inner(n: Int) -> Int { n * secret }
		print(1);
	`)

	sawSecret := false
	ast.Walk(prog, func(n ast.Node) bool {
		if _, ok := n.(*ast.FnDecl); ok {
			return false // skip function bodies
		}
		if id, ok := n.(*ast.Ident); ok && id.Name == "secret" {
			sawSecret = true
		}
		return true
	})

	assert.False(t, sawSecret, "pruned branch must not be visited")
}

func TestWalkReachesMatchGuards(t *testing.T) {
	prog := parse(t, `
		match n {
			x if x > threshold => x,
			_ => 0,
		};
	`)

	sawThreshold := false
	ast.Walk(prog, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && id.Name == "threshold" {
			sawThreshold = true
		}
		return true
	})

	assert.True(t, sawThreshold)
}

func TestPrintDeclarations(t *testing.T) {
	src := `fn add(a: Int, b: Int) -> Int { (a + b) }
struct Point {
    x: Int,
    y: Int,
}
enum Opt {
    Some(Int),
    None,
}
`
	prog := parse(t, src)

	out := ast.Print(prog)
	assert.Contains(t, out, "fn add(a: Int, b: Int) -> Int")
	assert.Contains(t, out, "struct Point")
	assert.Contains(t, out, "Some(Int)")
}

func TestPrintEscapesStrings(t *testing.T) {
	prog := parse(t, `print("line\nbreak \"quoted\"");`)

	out := ast.Print(prog)
	assert.Contains(t, out, `"line\nbreak \"quoted\""`)
}

func TestPrintReparses(t *testing.T) {
	prog := parse(t, `
		enum Shape { Circle(Float), Dot }
		fn area(s: Shape) -> Float {
			match s {
				Shape::Circle(r) => 3.14159 * r * r,
				Shape::Dot => 0.0,
			}
		}
		let mut xs = [1.0, 2.5];
		xs[0] = area(Shape::Circle(2.0));
		for i in 0..len(xs) { print(f"{i}"); }
	`)

	printed := ast.Print(prog)
	_, ds := parser.New(printed).ParseProgram()
	assert.False(t, diag.HasErrors(ds), "printed source must re-parse:\n%s\nerrors: %v", printed, ds)
}

func TestPrintTypeAnnotations(t *testing.T) {
	prog := parse(t, `
		let xs: [Int] = [1];
		let grid: [[Str]] = [["a"]];
		let f: fn(Int, Str) -> [Bool] = |a, b| [true];
		fn apply(g: fn() -> Int) -> Int { g() }
	`)

	out := ast.Print(prog)
	assert.Contains(t, out, "let xs: [Int] = [1];")
	assert.Contains(t, out, "let grid: [[Str]] = ")
	assert.Contains(t, out, "let f: fn(Int, Str) -> [Bool] = ")
	assert.Contains(t, out, "fn apply(g: fn() -> Int) -> Int")

	// The rendered annotations survive a round trip.
	_, ds := parser.New(out).ParseProgram()
	assert.False(t, diag.HasErrors(ds), "printed source must re-parse: %v", ds)
}
