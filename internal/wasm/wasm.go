// Package wasm emits lowered modules as WebAssembly binaries. The backend
// covers top-level functions over the scalar types plus full control flow;
// strings live in linear memory as (ptr, len) pairs packed into a single
// i64 handle, with concatenation and rendering delegated to rill_host
// imports. Closures and aggregate values are outside this backend's scope
// and report a structured error; the interpreter and the Go emitter cover
// the full language.
package wasm

import (
	"bytes"
	"fmt"

	"github.com/rill-lang/rill/internal/mir"
)

// UnsupportedError reports a construct or type outside the backend scope.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return "cannot express in wasm: " + e.Construct
}

func unsupported(format string, args ...interface{}) error {
	return &UnsupportedError{Construct: fmt.Sprintf(format, args...)}
}

// hostImport describes one rill_host function. Imports occupy the front of
// the function index space, in this order.
type hostImport struct {
	name    string
	params  []byte
	results []byte
}

var hostImports = []hostImport{
	{"print_i64", []byte{typeI64}, nil},
	{"print_f64", []byte{typeF64}, nil},
	{"print_bool", []byte{typeI32}, nil},
	{"print_str", []byte{typeI64}, nil},
	{"print_unit", nil, nil},
	{"str_concat", []byte{typeI64, typeI64}, []byte{typeI64}},
	{"str_eq", []byte{typeI64, typeI64}, []byte{typeI32}},
	{"i64_to_str", []byte{typeI64}, []byte{typeI64}},
	{"f64_to_str", []byte{typeF64}, []byte{typeI64}},
	{"bool_to_str", []byte{typeI32}, []byte{typeI64}},
}

func hostIndex(name string) uint32 {
	for i, imp := range hostImports {
		if imp.name == name {
			return uint32(i)
		}
	}
	panic("wasm: unknown host import " + name)
}

// dataBase is where string literals start in linear memory. The first
// bytes stay free so a zero handle never aliases a real string.
const dataBase = 8

// Emitter assembles a WASM binary from a lowered module.
type Emitter struct {
	module *mir.Module

	types     []string
	typeIndex map[string]uint32

	funcIndex map[string]uint32
	functions []*mir.Function

	data       bytes.Buffer
	stringPtrs map[string]uint32

	// per-function state
	locals map[string]localSlot
	ctrl   int
	loops  []loopLabels
	ret    mir.Type
}

type localSlot struct {
	index uint32
	typ   byte
	// Unit-typed bindings occupy no slot.
	hasSlot bool
}

type loopLabels struct {
	exit int
	post int
}

// New creates an emitter for a module.
func New(m *mir.Module) *Emitter {
	return &Emitter{
		module:     m,
		typeIndex:  map[string]uint32{},
		funcIndex:  map[string]uint32{},
		stringPtrs: map[string]uint32{},
	}
}

// Emit produces the binary and self-checks its structure before returning.
func Emit(m *mir.Module) ([]byte, error) {
	b, err := New(m).emit()
	if err != nil {
		return nil, err
	}
	if err := Validate(b); err != nil {
		return nil, fmt.Errorf("emitted module failed validation: %w", err)
	}
	return b, nil
}

func (e *Emitter) emit() ([]byte, error) {
	// Imports claim the first indices; defined functions follow, the
	// synthesized entry last.
	for _, imp := range hostImports {
		e.internType(imp.params, imp.results)
	}
	next := uint32(len(hostImports))
	for _, fn := range e.module.Functions {
		e.funcIndex[fn.Name] = next
		e.functions = append(e.functions, fn)
		next++
	}
	entryIndex := next
	e.functions = append(e.functions, e.module.Main)

	funcTypes := make([]uint32, len(e.functions))
	for i, fn := range e.functions {
		idx, err := e.signature(fn)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		funcTypes[i] = idx
	}

	bodies := make([][]byte, len(e.functions))
	for i, fn := range e.functions {
		body, err := e.emitFunction(fn, fn == e.module.Main)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		bodies[i] = body
	}

	var out bytes.Buffer
	writeBytes(&out, []byte{0x00, 0x61, 0x73, 0x6D})
	writeBytes(&out, []byte{0x01, 0x00, 0x00, 0x00})

	e.emitTypeSection(&out)
	e.emitImportSection(&out)
	e.emitFunctionSection(&out, funcTypes)
	e.emitMemorySection(&out)
	e.emitExportSection(&out, entryIndex)
	e.emitCodeSection(&out, bodies)
	e.emitDataSection(&out)

	return out.Bytes(), nil
}

// internType deduplicates function signatures in the type section.
func (e *Emitter) internType(params, results []byte) uint32 {
	key := string(params) + "->" + string(results)
	if idx, ok := e.typeIndex[key]; ok {
		return idx
	}
	var enc bytes.Buffer
	writeByte(&enc, 0x60)
	writeLEB128(&enc, uint32(len(params)))
	writeBytes(&enc, params)
	writeLEB128(&enc, uint32(len(results)))
	writeBytes(&enc, results)

	idx := uint32(len(e.types))
	e.types = append(e.types, enc.String())
	e.typeIndex[key] = idx
	return idx
}

func (e *Emitter) signature(fn *mir.Function) (uint32, error) {
	var params []byte
	for _, p := range fn.Params {
		if mir.IsKind(p.Type, mir.KindUnit) {
			continue
		}
		vt, err := valueType(p.Type)
		if err != nil {
			return 0, err
		}
		params = append(params, vt)
	}
	var results []byte
	ret := fn.Return
	if fn == e.module.Main {
		// The entry is exported as () -> (); its result prints instead.
		ret = mir.Unit
	}
	if ret != nil && !mir.IsKind(ret, mir.KindUnit) {
		vt, err := valueType(ret)
		if err != nil {
			return 0, err
		}
		results = append(results, vt)
	}
	return e.internType(params, results), nil
}

// valueType maps a lowered type onto the stack machine. Strings are i64
// handles; everything past the scalars is out of scope.
func valueType(t mir.Type) (byte, error) {
	if s, ok := t.(*mir.Scalar); ok {
		switch s.Kind {
		case mir.KindInt, mir.KindStr:
			return typeI64, nil
		case mir.KindFloat:
			return typeF64, nil
		case mir.KindBool:
			return typeI32, nil
		}
	}
	return 0, unsupported("value of type %s", t)
}

// internString pools a literal in the data segment and returns its packed
// (ptr, len) handle.
func (e *Emitter) internString(s string) int64 {
	ptr, ok := e.stringPtrs[s]
	if !ok {
		ptr = dataBase + uint32(e.data.Len())
		e.data.WriteString(s)
		e.stringPtrs[s] = ptr
	}
	return int64(ptr)<<32 | int64(len(s))
}

func (e *Emitter) emitTypeSection(out *bytes.Buffer) {
	var payload bytes.Buffer
	writeLEB128(&payload, uint32(len(e.types)))
	for _, t := range e.types {
		writeBytes(&payload, []byte(t))
	}
	writeSection(out, secType, &payload)
}

func (e *Emitter) emitImportSection(out *bytes.Buffer) {
	var payload bytes.Buffer
	writeLEB128(&payload, uint32(len(hostImports)))
	for _, imp := range hostImports {
		writeName(&payload, "rill_host")
		writeName(&payload, imp.name)
		writeByte(&payload, 0x00)
		writeLEB128(&payload, e.internType(imp.params, imp.results))
	}
	writeSection(out, secImport, &payload)
}

func (e *Emitter) emitFunctionSection(out *bytes.Buffer, funcTypes []uint32) {
	var payload bytes.Buffer
	writeLEB128(&payload, uint32(len(funcTypes)))
	for _, idx := range funcTypes {
		writeLEB128(&payload, idx)
	}
	writeSection(out, secFunction, &payload)
}

func (e *Emitter) emitMemorySection(out *bytes.Buffer) {
	var payload bytes.Buffer
	writeLEB128(&payload, 1)
	writeByte(&payload, 0x00) // min only
	writeLEB128(&payload, 1)  // one page
	writeSection(out, secMemory, &payload)
}

func (e *Emitter) emitExportSection(out *bytes.Buffer, entryIndex uint32) {
	var payload bytes.Buffer
	writeLEB128(&payload, 2)
	writeName(&payload, "memory")
	writeByte(&payload, 0x02)
	writeLEB128(&payload, 0)
	writeName(&payload, "main")
	writeByte(&payload, 0x00)
	writeLEB128(&payload, entryIndex)
	writeSection(out, secExport, &payload)
}

func (e *Emitter) emitCodeSection(out *bytes.Buffer, bodies [][]byte) {
	var payload bytes.Buffer
	writeLEB128(&payload, uint32(len(bodies)))
	for _, body := range bodies {
		writeLEB128(&payload, uint32(len(body)))
		writeBytes(&payload, body)
	}
	writeSection(out, secCode, &payload)
}

func (e *Emitter) emitDataSection(out *bytes.Buffer) {
	if e.data.Len() == 0 {
		return
	}
	var payload bytes.Buffer
	writeLEB128(&payload, 1)
	writeLEB128(&payload, 0) // active segment, memory 0
	writeByte(&payload, opI32Const)
	writeLEB128Signed(&payload, dataBase)
	writeByte(&payload, opEnd)
	writeLEB128(&payload, uint32(e.data.Len()))
	writeBytes(&payload, e.data.Bytes())
	writeSection(out, secData, &payload)
}
