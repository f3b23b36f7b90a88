package compiler_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rill-lang/rill/internal/compiler"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/interp"
)

func TestCompileCleanProgram(t *testing.T) {
	module, ds := compiler.Compile(`
		fn add(a: Int, b: Int) -> Int { a + b }
		print(add(1, 2));
	`)

	require.NotNil(t, module)
	assert.False(t, diag.HasErrors(ds))
	_, ok := module.FindFunction("add")
	assert.True(t, ok)
}

func TestCompileParseError(t *testing.T) {
	module, ds := compiler.Compile(`let = ;`)

	assert.Nil(t, module)
	require.True(t, diag.HasErrors(ds))
	assert.Equal(t, diag.StageParser, ds[0].Stage)
}

func TestCompileTypeError(t *testing.T) {
	module, ds := compiler.Compile(`1 + "two";`)

	assert.Nil(t, module)
	require.True(t, diag.HasErrors(ds))
	assert.Equal(t, diag.StageTypeCheck, ds[0].Stage)
}

func TestCompileStopsBeforeLoweringOnTypeErrors(t *testing.T) {
	// Multiple errors accumulate; none of them abort the checker early.
	module, ds := compiler.Compile(`
		let a = 1 + "x";
		let b = true * 2;
	`)

	assert.Nil(t, module)
	assert.True(t, len(ds) >= 2)
}

func TestRunProducesOutputAndResult(t *testing.T) {
	var out bytes.Buffer
	value, ds, err := compiler.Run(`
		fn fib(n: Int) -> Int {
			if n < 2 { n } else { fib(n - 1) + fib(n - 2) }
		}
		print(fib(10));
		fib(15)
	`, &out)

	require.NoError(t, err)
	assert.False(t, diag.HasErrors(ds))
	assert.Equal(t, "55\n", out.String())
	assert.Equal(t, interp.KindInt, value.Kind)
	assert.Equal(t, int64(610), value.Int)
}

func TestRunRuntimeError(t *testing.T) {
	var out bytes.Buffer
	_, _, err := compiler.Run(`print(1 / 0);`, &out)

	require.Error(t, err)
	var rtErr *interp.RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, interp.ErrDivisionByZero, rtErr.Kind)
}

func TestRunRejectsBrokenSource(t *testing.T) {
	var out bytes.Buffer
	_, ds, err := compiler.Run(`fn (`, &out)

	require.ErrorIs(t, err, compiler.ErrDidNotCompile)
	assert.True(t, diag.HasErrors(ds))
}

func TestEmitGoEndToEnd(t *testing.T) {
	src, ds, err := compiler.EmitGo(`print("hello");`)

	require.NoError(t, err)
	assert.False(t, diag.HasErrors(ds))
	assert.True(t, strings.HasPrefix(src, "package main"))
	assert.Contains(t, src, `rillPrint("hello")`)
}

func TestEmitWASMEndToEnd(t *testing.T) {
	b, ds, err := compiler.EmitWASM(`print(2 + 3 * 4);`)

	require.NoError(t, err)
	assert.False(t, diag.HasErrors(ds))
	require.True(t, len(b) > 8)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, b[:4])
}

func TestBackendsAgreeOnScalars(t *testing.T) {
	// The same program through the evaluator and the Go emitter: the
	// evaluator runs it, the emitter must at least accept it.
	src := `
		fn pow(base: Int, exp: Int) -> Int {
			let mut result = 1;
			let mut n = exp;
			while n > 0 {
				result = result * base;
				n = n - 1;
			}
			result
		}
		print(pow(2, 16));
	`

	var out bytes.Buffer
	_, _, err := compiler.Run(src, &out)
	require.NoError(t, err)
	assert.Equal(t, "65536\n", out.String())

	goSrc, _, err := compiler.EmitGo(src)
	require.NoError(t, err)
	assert.Contains(t, goSrc, "rillPow")

	wasmBytes, _, err := compiler.EmitWASM(src)
	require.NoError(t, err)
	assert.True(t, len(wasmBytes) > 8)
}
