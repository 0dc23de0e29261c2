package interop

import (
	"fmt"
	"sync"
	"unsafe"
)

// Allocator provides the memory that outlives a bridge call.
//
// Alloc returns zeroed memory of at least size bytes, or nil for size 0.
// Free releases memory returned by Alloc; Free(nil) is a no-op. Freeing a
// pointer twice, or one that Alloc did not return, is undefined.
type Allocator interface {
	Alloc(size uintptr) unsafe.Pointer
	Free(ptr unsafe.Pointer)
}

// HeapAllocator allocates from the Go heap. Every live block stays reachable
// from the allocator until it is freed, since its only other references are
// raw pointers. Live blocks are counted so leaks can be asserted on.
type HeapAllocator struct {
	mu    sync.Mutex
	live  map[uintptr]heapBlock
	bytes uintptr
}

type heapBlock struct {
	words []uint64
	size  uintptr
}

// NewHeapAllocator creates an empty heap allocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{live: make(map[uintptr]heapBlock)}
}

// Alloc returns a zeroed, 8-byte aligned block.
func (h *HeapAllocator) Alloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	block := make([]uint64, (size+7)/8)
	ptr := unsafe.Pointer(&block[0])

	h.mu.Lock()
	h.live[uintptr(ptr)] = heapBlock{words: block, size: size}
	h.bytes += size
	h.mu.Unlock()

	return ptr
}

// Free releases a block. It panics on pointers it does not own.
func (h *HeapAllocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	block, ok := h.live[uintptr(ptr)]
	if !ok {
		panic(fmt.Sprintf("interop: free of unknown pointer %p", ptr))
	}
	delete(h.live, uintptr(ptr))
	h.bytes -= block.size
}

// Live returns the number of blocks not yet freed.
func (h *HeapAllocator) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// LiveBytes returns the requested size of all blocks not yet freed.
func (h *HeapAllocator) LiveBytes() uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bytes
}
