package wasm

import (
	"bytes"
	"encoding/binary"
	"math"
)

func writeByte(buf *bytes.Buffer, b byte) {
	buf.WriteByte(b)
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
}

func writeLEB128(buf *bytes.Buffer, val uint32) {
	for val >= 0x80 {
		buf.WriteByte(byte(val&0x7F) | 0x80)
		val >>= 7
	}
	buf.WriteByte(byte(val & 0x7F))
}

func writeLEB128Signed(buf *bytes.Buffer, val int64) {
	for {
		b := byte(val & 0x7F)
		val >>= 7
		if (val == 0 && (b&0x40) == 0) || (val == -1 && (b&0x40) != 0) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

func writeF64(buf *bytes.Buffer, val float64) {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], math.Float64bits(val))
	buf.Write(raw[:])
}

func writeName(buf *bytes.Buffer, name string) {
	writeLEB128(buf, uint32(len(name)))
	writeBytes(buf, []byte(name))
}

// writeSection frames a section: id, payload size, payload.
func writeSection(buf *bytes.Buffer, id byte, payload *bytes.Buffer) {
	writeByte(buf, id)
	writeLEB128(buf, uint32(payload.Len()))
	writeBytes(buf, payload.Bytes())
}

func readLEB128(b []byte, pos int) (uint32, int, bool) {
	var result uint32
	var shift uint
	for {
		if pos >= len(b) || shift > 28 {
			return 0, pos, false
		}
		c := b[pos]
		pos++
		result |= uint32(c&0x7F) << shift
		if c&0x80 == 0 {
			return result, pos, true
		}
		shift += 7
	}
}
