package wasm

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/api"

	wasmabi "github.com/woxQAQ/spirv-bridge/api/wasm"
)

var (
	errOutOfBounds = errors.New("out of bounds")
	errNoMemory    = errors.New("module exports no memory")
	errNullAlloc   = errors.New("guest malloc returned null")
)

// Memory provides bounds-checked access to a plugin's linear memory.
//
// Reads return copies, never views, because guest memory may be reused or
// grown by the next guest call. Writes go through the plugin's own
// malloc/free exports, so the guest stays the owner of its heap.
type Memory struct {
	mem    api.Memory
	malloc api.Function
	free   api.Function
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{
		mem:    module.Memory(),
		malloc: module.ExportedFunction(wasmabi.ExportMalloc),
		free:   module.ExportedFunction(wasmabi.ExportFree),
	}
}

// ReadString reads a null-terminated string from Wasm memory.
func (m *Memory) ReadString(ptr uint32, maxLen uint32) (string, bool) {
	buf, ok := m.ReadBytes(ptr, maxLen)
	if !ok {
		return "", false
	}

	end := len(buf)
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}

	return string(buf[:end]), true
}

// ReadBytes copies length bytes out of Wasm memory.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, bool) {
	if m.mem == nil {
		return nil, false
	}
	if length == 0 {
		return nil, true
	}
	view, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, true
}

// ReadUint32 reads a little-endian u32.
func (m *Memory) ReadUint32(ptr uint32) (uint32, error) {
	if m.mem == nil {
		return 0, &MemoryAccessError{Operation: "read", Address: ptr, Length: 4, Err: errNoMemory}
	}
	v, ok := m.mem.ReadUint32Le(ptr)
	if !ok {
		return 0, &MemoryAccessError{Operation: "read", Address: ptr, Length: 4, Err: errOutOfBounds}
	}
	return v, nil
}

// Write copies data into Wasm memory at ptr.
func (m *Memory) Write(ptr uint32, data []byte) error {
	if m.mem == nil {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errNoMemory}
	}
	if !m.mem.Write(ptr, data) {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errOutOfBounds}
	}
	return nil
}

// Alloc reserves size bytes with the guest allocator.
func (m *Memory) Alloc(ctx context.Context, size uint32) (uint32, error) {
	if m.malloc == nil {
		return 0, &FunctionNotFoundError{FunctionName: wasmabi.ExportMalloc}
	}
	res, err := m.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, &GuestCallError{FunctionName: wasmabi.ExportMalloc, Err: err}
	}
	ptr := uint32(res[0])
	if ptr == 0 && size > 0 {
		return 0, &MemoryAccessError{Operation: "alloc", Length: size, Err: errNullAlloc}
	}
	return ptr, nil
}

// Free returns ptr to the guest allocator. Free(0) is a no-op.
func (m *Memory) Free(ctx context.Context, ptr uint32) error {
	if ptr == 0 {
		return nil
	}
	if m.free == nil {
		return &FunctionNotFoundError{FunctionName: wasmabi.ExportFree}
	}
	if _, err := m.free.Call(ctx, uint64(ptr)); err != nil {
		return &GuestCallError{FunctionName: wasmabi.ExportFree, Err: err}
	}
	return nil
}

// WriteBytes allocates guest memory and copies data into it.
// Returns pointer and length. The caller frees the pointer.
func (m *Memory) WriteBytes(ctx context.Context, data []byte) (uint32, uint32, error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	ptr, err := m.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, 0, err
	}
	if err := m.Write(ptr, data); err != nil {
		_ = m.Free(ctx, ptr)
		return 0, 0, err
	}
	return ptr, uint32(len(data)), nil
}

// WriteString writes a string to Wasm memory without a terminator.
func (m *Memory) WriteString(ctx context.Context, s string) (uint32, uint32, error) {
	return m.WriteBytes(ctx, []byte(s))
}
