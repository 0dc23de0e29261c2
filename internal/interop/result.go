package interop

import (
	"unsafe"
)

// BinaryBuffer is an owned, length-prefixed block of bytes. Length always
// equals the allocated extent; a zero-length buffer has a nil Data.
type BinaryBuffer struct {
	Length uint32
	Data   *byte
}

// CopyFrom allocates length bytes from a and copies them from src. Any data
// previously held by the buffer must have been freed by the caller.
func (b *BinaryBuffer) CopyFrom(a Allocator, length uint32, src unsafe.Pointer) {
	b.Length = 0
	b.Data = nil
	if length == 0 {
		return
	}
	dst := a.Alloc(uintptr(length))
	copy(unsafe.Slice((*byte)(dst), length), unsafe.Slice((*byte)(src), length))
	b.Data = (*byte)(dst)
	b.Length = length
}

// CopyString fills the buffer with a copy of s.
func (b *BinaryBuffer) CopyString(a Allocator, s string) {
	if len(s) == 0 {
		b.CopyFrom(a, 0, nil)
		return
	}
	b.CopyFrom(a, uint32(len(s)), unsafe.Pointer(unsafe.StringData(s)))
}

// Bytes returns a slice aliasing the buffer memory.
func (b *BinaryBuffer) Bytes() []byte {
	if b.Length == 0 || b.Data == nil {
		return nil
	}
	return unsafe.Slice(b.Data, b.Length)
}

// String copies the buffer contents into a Go string.
func (b *BinaryBuffer) String() string {
	return string(b.Bytes())
}

// Free releases the buffer data and resets it to empty.
func (b *BinaryBuffer) Free(a Allocator) {
	a.Free(unsafe.Pointer(b.Data))
	b.Data = nil
	b.Length = 0
}

// CompilationResult is the caller-owned outcome of a compile call.
//
// When Succeeded is set, DataBuffers holds at least one buffer and
// ErrorMessage is empty. Otherwise DataBuffers is empty and ErrorMessage
// holds the diagnostic text.
type CompilationResult struct {
	Succeeded    Bool32
	DataBuffers  Array[BinaryBuffer]
	ErrorMessage BinaryBuffer
}

var (
	resultSize = unsafe.Sizeof(CompilationResult{})
	bufferSize = unsafe.Sizeof(BinaryBuffer{})
)

// NewResult allocates an empty result from a.
func NewResult(a Allocator) *CompilationResult {
	return (*CompilationResult)(a.Alloc(resultSize))
}

// NewFailureResult allocates a failed result carrying message.
func NewFailureResult(a Allocator, message string) *CompilationResult {
	r := NewResult(a)
	r.ErrorMessage.CopyString(a, message)
	return r
}

// ResizeBuffers replaces the buffer sequence with n empty buffers. Buffers
// already held are released first.
func (r *CompilationResult) ResizeBuffers(a Allocator, n uint32) {
	r.freeBuffers(a)
	if n == 0 {
		return
	}
	r.DataBuffers.Data = (*BinaryBuffer)(a.Alloc(uintptr(n) * bufferSize))
	r.DataBuffers.Count = n
}

// Buffer returns buffer i without bounds checking.
func (r *CompilationResult) Buffer(i uint32) *BinaryBuffer {
	return r.DataBuffers.At(i)
}

// Message returns the diagnostic text of a failed result.
func (r *CompilationResult) Message() string {
	return r.ErrorMessage.String()
}

func (r *CompilationResult) freeBuffers(a Allocator) {
	bufs := r.DataBuffers.Slice()
	for i := range bufs {
		bufs[i].Free(a)
	}
	a.Free(unsafe.Pointer(r.DataBuffers.Data))
	r.DataBuffers = Array[BinaryBuffer]{}
}

// Free releases everything the result owns, then the result itself. r must
// not be used afterwards.
func (r *CompilationResult) Free(a Allocator) {
	if r == nil {
		return
	}
	r.freeBuffers(a)
	r.ErrorMessage.Free(a)
	a.Free(unsafe.Pointer(r))
}
