//go:build cgo

package interop

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// CAllocator allocates from the C heap. Memory it returns may be handed to C
// callers and released by them through the bridge.
type CAllocator struct{}

// Alloc returns zeroed C memory. It panics if the C heap is exhausted.
func (CAllocator) Alloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	ptr := C.calloc(1, C.size_t(size))
	if ptr == nil {
		panic("interop: C allocation failed")
	}
	return ptr
}

// Free releases C memory. Free(nil) is a no-op.
func (CAllocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	C.free(ptr)
}
