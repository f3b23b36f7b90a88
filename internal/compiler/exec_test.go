package compiler_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rill-lang/rill/internal/compiler"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/interp"
)

// goToolchain locates the go binary or skips the test. The emitter is
// covered structurally elsewhere; execution agreement needs a toolchain.
func goToolchain(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not on PATH")
	}
	return path
}

// runEmittedGo compiles src to Go, writes it to a temp file, and executes
// it, returning stdout, stderr, and the process error.
func runEmittedGo(t *testing.T, goBin, src string) (string, string, error) {
	t.Helper()

	goSrc, ds, err := compiler.EmitGo(src)
	require.NoError(t, err)
	require.False(t, diag.HasErrors(ds), "diagnostics: %v", ds)

	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte(goSrc), 0o644))

	cmd := exec.Command(goBin, "run", file)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	return stdout.String(), stderr.String(), runErr
}

// interpret evaluates src and returns everything an observer would see:
// print output plus the rendered program result when it is not unit.
func interpret(t *testing.T, src string) string {
	t.Helper()

	var out bytes.Buffer
	value, ds, err := compiler.Run(src, &out)
	require.NoError(t, err)
	require.False(t, diag.HasErrors(ds), "diagnostics: %v", ds)

	if value.Kind != interp.KindUnit {
		out.WriteString(value.Render())
		out.WriteByte('\n')
	}
	return out.String()
}

func TestEmittedGoAgreesWithInterpreter(t *testing.T) {
	goBin := goToolchain(t)

	programs := map[string]string{
		"arithmetic": `
			print(2 + 3 * 4);
			print(-7 / 2);
			print(7 % 3);
			print(1.5 * 4.0);
		`,
		"recursion": `
			fn fib(n: Int) -> Int {
				if n < 2 { n } else { fib(n - 1) + fib(n - 2) }
			}
			print(fib(20));
		`,
		"strings": `
			let who = "world";
			print("hello, " + who);
			print(f"{who} has {1 + 2} vowels? {false}");
			print(str(2.5));
		`,
		"loops": `
			let mut total = 0;
			for i in 0..10 {
				if i == 3 { continue; }
				if i > 7 { break; }
				total = total + i;
			}
			print(total);
			let mut n = 27;
			let mut steps = 0;
			while n != 1 {
				if n % 2 == 0 { n = n / 2; } else { n = 3 * n + 1; }
				steps = steps + 1;
			}
			print(steps);
		`,
		"structs": `
			struct Point { x: Int, y: Int }
			let mut p = Point { x: 3, y: 4 };
			p.y = 7;
			print(p);
			print(p.x + p.y);
		`,
		"enums_match": `
			enum Shape { Circle(Float), Rect(Float, Float), Dot }
			fn area(s: Shape) -> Float {
				match s {
					Shape::Circle(r) => 3.0 * r * r,
					Shape::Rect(w, h) => w * h,
					Shape::Dot => 0.0,
				}
			}
			print(area(Shape::Rect(2.0, 3.0)));
			print(Shape::Circle(1.5));
			print(Shape::Dot);
		`,
		"closures": `
			fn adder(n: Int) -> fn(Int) -> Int {
				|x| x + n
			}
			let add5 = adder(5);
			print(add5(37));
		`,
		"arrays": `
			let mut xs = [10, 20, 30];
			xs[1] = 25;
			let mut sum = 0;
			for i in 0..len(xs) {
				sum = sum + xs[i];
			}
			print(sum);
			print(xs);
		`,
		"program_result": `
			fn pow(base: Int, exp: Int) -> Int {
				let mut r = 1;
				let mut n = exp;
				while n > 0 { r = r * base; n = n - 1; }
				r
			}
			print(pow(2, 10));
			pow(3, 4)
		`,
	}

	for name, src := range programs {
		t.Run(name, func(t *testing.T) {
			want := interpret(t, src)

			stdout, stderr, err := runEmittedGo(t, goBin, src)
			require.NoError(t, err, "emitted program failed: %s", stderr)
			assert.Equal(t, want, stdout)
		})
	}
}

func TestEmittedGoTrapsMatchRuntimeErrors(t *testing.T) {
	goBin := goToolchain(t)

	src := `
		fn halve(n: Int) -> Int { 100 / n }
		print(halve(0));
	`

	var out bytes.Buffer
	_, _, err := compiler.Run(src, &out)
	var rtErr *interp.RuntimeError
	require.ErrorAs(t, err, &rtErr)

	_, stderr, runErr := runEmittedGo(t, goBin, src)
	require.Error(t, runErr, "emitted program should exit non-zero")
	assert.Contains(t, stderr, "division by zero")
}
