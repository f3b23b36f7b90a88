// Package compiler ties the pipeline together: source text in, lowered
// module or diagnostics out, with conveniences for each backend.
package compiler

import (
	"io"

	"github.com/pkg/errors"

	"github.com/rill-lang/rill/internal/codegen"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/interp"
	"github.com/rill-lang/rill/internal/mir"
	"github.com/rill-lang/rill/internal/parser"
	"github.com/rill-lang/rill/internal/types"
	"github.com/rill-lang/rill/internal/wasm"
)

// Compile runs the front and middle end. A nil module means the source
// did not compile; the diagnostics say why. Diagnostics can be non-empty
// alongside a valid module (warnings only).
func Compile(source string) (*mir.Module, []diag.Diagnostic) {
	prog, ds := parser.New(source).ParseProgram()
	if diag.HasErrors(ds) {
		return nil, ds
	}

	info, typeErrs := types.NewChecker().CheckProgram(prog)
	ds = append(ds, typeErrs...)
	if diag.HasErrors(ds) {
		return nil, ds
	}

	return mir.Lower(prog, info), ds
}

// ErrDidNotCompile reports source rejected by the front or middle end.
// The diagnostics carry the detail.
var ErrDidNotCompile = errors.New("source did not compile")

// Run compiles and evaluates source, writing print output to out. The
// returned value is the program result.
func Run(source string, out io.Writer) (interp.Value, []diag.Diagnostic, error) {
	module, ds := Compile(source)
	if module == nil {
		return interp.Value{}, ds, ErrDidNotCompile
	}
	value, err := interp.New(module, interp.WithOutput(out)).Run()
	if err != nil {
		return interp.Value{}, ds, errors.Wrap(err, "evaluating program")
	}
	return value, ds, nil
}

// EmitGo compiles source and renders it as a Go program.
func EmitGo(source string) (string, []diag.Diagnostic, error) {
	module, ds := Compile(source)
	if module == nil {
		return "", ds, ErrDidNotCompile
	}
	out, err := codegen.EmitGo(module)
	if err != nil {
		return "", ds, errors.Wrap(err, "generating Go")
	}
	return out, ds, nil
}

// EmitWASM compiles source and emits a WebAssembly binary.
func EmitWASM(source string) ([]byte, []diag.Diagnostic, error) {
	module, ds := Compile(source)
	if module == nil {
		return nil, ds, ErrDidNotCompile
	}
	b, err := wasm.Emit(module)
	if err != nil {
		return nil, ds, errors.Wrap(err, "generating wasm")
	}
	return b, ds, nil
}
