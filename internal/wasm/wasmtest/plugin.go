// Package wasmtest assembles tiny compiler plugins for tests.
//
// The generated modules implement the plugin ABI without doing any real
// compilation: malloc is a bump allocator starting at HeapBase, free and
// free_result do nothing, and compile_glsl_to_spirv returns a result that
// was baked into the data section.
package wasmtest

import (
	"encoding/binary"

	wasmabi "github.com/woxQAQ/spirv-bridge/api/wasm"
)

// HeapBase is the first address handed out by the plugin's malloc.
const HeapBase = 1024

const (
	resultAt  = 16
	bufferAt  = 48
	payloadAt = 64
)

// Outcome selects what compile_glsl_to_spirv returns.
type Outcome int

const (
	// Success returns one data buffer holding Payload.
	Success Outcome = iota
	// Failure returns Payload as the error message.
	Failure
	// NullResult returns a null result pointer.
	NullResult
)

// Plugin describes a generated plugin module.
type Plugin struct {
	Outcome Outcome
	Payload []byte
}

// SpirvHeader is the first two words of a SPIR-V 1.0 module, little-endian.
var SpirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

// Bytes assembles the module.
func (p Plugin) Bytes() []byte {
	i32 := byte(0x7f)
	types := vec(
		[]byte{0x60, 1, i32, 1, i32}, // (i32) -> i32
		[]byte{0x60, 1, i32, 0},      // (i32) -> ()
	)
	funcs := vec([]byte{0}, []byte{1}, []byte{0}, []byte{1})
	memory := vec([]byte{0x00, 0x01})
	globals := vec(append([]byte{i32, 0x01}, append(i32Const(HeapBase), 0x0b)...))
	exports := vec(
		export(wasmabi.ExportMemory, 0x02, 0),
		export(wasmabi.ExportMalloc, 0x00, 0),
		export(wasmabi.ExportFree, 0x00, 1),
		export(wasmabi.ExportCompile, 0x00, 2),
		export(wasmabi.ExportFreeResult, 0x00, 3),
	)

	ret := uint32(resultAt)
	if p.Outcome == NullResult {
		ret = 0
	}
	// malloc: old := heap; heap += size; return old
	malloc := body(0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00)
	code := vec(malloc, body(), body(i32Const(ret)...), body())

	data := vec(append(append([]byte{0x00}, append(i32Const(resultAt), 0x0b)...), bytesVec(p.image())...))

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, types)...)
	out = append(out, section(3, funcs)...)
	out = append(out, section(5, memory)...)
	out = append(out, section(6, globals)...)
	out = append(out, section(7, exports)...)
	out = append(out, section(10, code)...)
	out = append(out, section(11, data)...)
	return out
}

// MemoryOnly returns a module that exports a memory and nothing else.
func MemoryOnly() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(5, vec([]byte{0x00, 0x01}))...)
	out = append(out, section(7, vec(export(wasmabi.ExportMemory, 0x02, 0)))...)
	return out
}

// image is guest memory from resultAt onwards.
func (p Plugin) image() []byte {
	img := make([]byte, payloadAt-resultAt+len(p.Payload))
	put := func(addr, v uint32) { binary.LittleEndian.PutUint32(img[addr-resultAt:], v) }

	switch p.Outcome {
	case Success:
		put(resultAt+wasmabi.ResultSucceeded, 1)
		put(resultAt+wasmabi.ResultBuffersLen, 1)
		put(resultAt+wasmabi.ResultBuffers, bufferAt)
		put(bufferAt+wasmabi.BufferLength, uint32(len(p.Payload)))
		put(bufferAt+wasmabi.BufferData, payloadAt)
	case Failure:
		put(resultAt+wasmabi.ResultErrorLen, uint32(len(p.Payload)))
		put(resultAt+wasmabi.ResultErrorData, payloadAt)
	}
	copy(img[payloadAt-resultAt:], p.Payload)
	return img
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

// i32Const encodes i32.const with a non-negative immediate.
func i32Const(v uint32) []byte {
	out := []byte{0x41}
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 && b&0x40 == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func bytesVec(b []byte) []byte {
	return append(uleb(uint32(len(b))), b...)
}

func section(id byte, content []byte) []byte {
	return append([]byte{id}, bytesVec(content)...)
}

func export(name string, kind byte, index uint32) []byte {
	out := bytesVec([]byte(name))
	out = append(out, kind)
	return append(out, uleb(index)...)
}

// body wraps instructions in a function body with no locals.
func body(instrs ...byte) []byte {
	b := append([]byte{0x00}, instrs...)
	b = append(b, 0x0b)
	return bytesVec(b)
}
