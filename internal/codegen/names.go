package codegen

import (
	"go/token"

	"github.com/iancoleman/strcase"
)

// Name mangling keeps the generated program readable while staying clear
// of Go keywords, the entry point, and the emitted runtime helpers (which
// all carry a rill prefix).

// fnName mangles a module-level function name. `make_adder` becomes
// `rillMakeAdder`; the prefix keeps user functions from colliding with
// `main` and the helpers.
func fnName(name string) string {
	return "rill" + strcase.ToCamel(name)
}

// typeName mangles a struct or enum name.
func typeName(name string) string {
	return strcase.ToCamel(name)
}

// fieldName mangles a struct field. Fields stay unexported; rendering goes
// through the generated String methods, never reflection.
func fieldName(name string) string {
	return safeIdent(strcase.ToLowerCamel(name))
}

// localName mangles a local variable. Lowering already made locals unique
// within their function, so only keyword collisions need fixing.
func localName(name string) string {
	return safeIdent(name)
}

func safeIdent(name string) string {
	if token.IsKeyword(name) || name == "main" || name == "any" {
		return name + "_"
	}
	return name
}
