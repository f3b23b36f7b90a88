package wasm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/mir"
	"github.com/rill-lang/rill/internal/parser"
	"github.com/rill-lang/rill/internal/types"
	"github.com/rill-lang/rill/internal/wasm"
)

func lower(t *testing.T, src string) *mir.Module {
	t.Helper()

	prog, ds := parser.New(src).ParseProgram()
	require.False(t, diag.HasErrors(ds), "parse errors: %v", ds)

	info, errs := types.NewChecker().CheckProgram(prog)
	require.Empty(t, errs, "type errors: %v", errs)

	return mir.Lower(prog, info)
}

func emit(t *testing.T, src string) []byte {
	t.Helper()
	b, err := wasm.Emit(lower(t, src))
	require.NoError(t, err)
	return b
}

func emitErr(t *testing.T, src string) error {
	t.Helper()
	_, err := wasm.Emit(lower(t, src))
	require.Error(t, err)
	return err
}

func TestEmitHeader(t *testing.T) {
	b := emit(t, `print(1 + 2);`)

	require.True(t, len(b) > 8)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, b[:4], "magic")
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, b[4:8], "version")
}

func TestEmitValidates(t *testing.T) {
	b := emit(t, `
		fn square(n: Int) -> Int { n * n }
		print(square(9));
	`)

	assert.NoError(t, wasm.Validate(b))
}

func TestEmitExportsMainAndMemory(t *testing.T) {
	b := emit(t, `print("hi");`)

	assert.True(t, bytes.Contains(b, []byte("main")))
	assert.True(t, bytes.Contains(b, []byte("memory")))
}

func TestEmitHostImports(t *testing.T) {
	b := emit(t, `print(f"n = {41 + 1}");`)

	// Interpolation needs rendering and concatenation from the host.
	assert.True(t, bytes.Contains(b, []byte("rill_host")))
	assert.True(t, bytes.Contains(b, []byte("i64_to_str")))
	assert.True(t, bytes.Contains(b, []byte("str_concat")))
	assert.True(t, bytes.Contains(b, []byte("print_str")))
}

func TestEmitStringLiteralInData(t *testing.T) {
	b := emit(t, `print("interpolated payload");`)

	assert.True(t, bytes.Contains(b, []byte("interpolated payload")),
		"string literal should land in the data section")
}

func TestEmitControlFlow(t *testing.T) {
	b := emit(t, `
		fn collatz_steps(start: Int) -> Int {
			let mut n = start;
			let mut steps = 0;
			while n != 1 {
				if n % 2 == 0 { n = n / 2; } else { n = 3 * n + 1; }
				steps = steps + 1;
			}
			steps
		}
		print(collatz_steps(27));
	`)

	assert.NoError(t, wasm.Validate(b))
}

func TestEmitForRange(t *testing.T) {
	b := emit(t, `
		let mut total = 0;
		for i in 0..10 {
			if i == 3 { continue; }
			if i > 7 { break; }
			total = total + i;
		}
		print(total);
	`)

	assert.NoError(t, wasm.Validate(b))
}

func TestEmitFloatProgram(t *testing.T) {
	b := emit(t, `
		fn area(radius: Float) -> Float { 3.14159 * radius * radius }
		print(area(2.0));
	`)

	assert.True(t, bytes.Contains(b, []byte("print_f64")))
}

func TestEmitEarlyReturn(t *testing.T) {
	b := emit(t, `
		fn clamp(n: Int) -> Int {
			if n < 0 { return 0; }
			if n > 100 { return 100; }
			n
		}
		print(clamp(250));
	`)

	assert.NoError(t, wasm.Validate(b))
}

func TestClosuresUnsupported(t *testing.T) {
	err := emitErr(t, `
		let add = |a, b| a + b;
		print(add(1, 2));
	`)

	var unsupported *wasm.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestArraysUnsupported(t *testing.T) {
	err := emitErr(t, `
		let xs = [1, 2, 3];
		print(len(xs));
	`)

	var unsupported *wasm.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "cannot express in wasm")
}

func TestStructsUnsupported(t *testing.T) {
	err := emitErr(t, `
		struct Point { x: Int, y: Int }
		let p = Point { x: 1, y: 2 };
		print(p.x);
	`)

	var unsupported *wasm.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestValidateRejectsGarbage(t *testing.T) {
	assert.Error(t, wasm.Validate([]byte{0x00, 0x61, 0x73}))
	assert.Error(t, wasm.Validate([]byte("not a wasm module")))

	// Truncated after a valid header.
	assert.Error(t, wasm.Validate([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 0x01, 0xFF}))
}

func TestStringEquality(t *testing.T) {
	b := emit(t, `
		let a = "x";
		print(a == "x");
	`)

	assert.True(t, bytes.Contains(b, []byte("str_eq")))
	assert.True(t, bytes.Contains(b, []byte("print_bool")))
}
