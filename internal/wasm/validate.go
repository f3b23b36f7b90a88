package wasm

import (
	"bytes"
	"fmt"
)

// Validate structurally checks a binary module: header, section ordering,
// section framing, and agreement between the function and code sections.
// It is not a full verifier; it catches the framing mistakes an emitter
// can make, before anyone feeds the bytes to a real runtime.
func Validate(b []byte) error {
	if len(b) < 8 {
		return fmt.Errorf("module too short: %d bytes", len(b))
	}
	if !bytes.Equal(b[:4], []byte{0x00, 0x61, 0x73, 0x6D}) {
		return fmt.Errorf("bad magic: % x", b[:4])
	}
	if !bytes.Equal(b[4:8], []byte{0x01, 0x00, 0x00, 0x00}) {
		return fmt.Errorf("bad version: % x", b[4:8])
	}

	pos := 8
	lastID := byte(0)
	funcCount := -1
	codeCount := -1
	for pos < len(b) {
		id := b[pos]
		pos++
		size, next, ok := readLEB128(b, pos)
		if !ok {
			return fmt.Errorf("bad section size at offset %d", pos)
		}
		pos = next
		if pos+int(size) > len(b) {
			return fmt.Errorf("section %d overruns module: size %d at offset %d", id, size, pos)
		}
		payload := b[pos : pos+int(size)]
		pos += int(size)

		if id == 0 {
			continue // custom sections may appear anywhere
		}
		if id > secData {
			return fmt.Errorf("unknown section id %d", id)
		}
		if id <= lastID {
			return fmt.Errorf("section %d out of order after %d", id, lastID)
		}
		lastID = id

		switch id {
		case secFunction:
			n, _, ok := readLEB128(payload, 0)
			if !ok {
				return fmt.Errorf("bad function section count")
			}
			funcCount = int(n)
		case secCode:
			n, _, ok := readLEB128(payload, 0)
			if !ok {
				return fmt.Errorf("bad code section count")
			}
			codeCount = int(n)
		}
	}

	if funcCount != codeCount {
		return fmt.Errorf("function section declares %d functions, code section has %d", funcCount, codeCount)
	}
	return nil
}
