package main

/*
#include <stddef.h>
#define SPIRVBRIDGE_TYPES_ONLY
#include "spirvbridge.h"

static size_t info_kind_offset(void) { return offsetof(GlslCompileInfo, kind); }
static size_t info_file_name_offset(void) { return offsetof(GlslCompileInfo, fileName); }
static size_t info_debug_offset(void) { return offsetof(GlslCompileInfo, debug); }
static size_t info_macros_offset(void) { return offsetof(GlslCompileInfo, macros); }
static size_t macro_value_offset(void) { return offsetof(MacroDefinition, valueLength); }
static size_t result_buffers_offset(void) { return offsetof(CompilationResult, dataBuffers); }
static size_t result_message_offset(void) { return offsetof(CompilationResult, errorMessage); }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

// LayoutError reports a Go type whose layout differs from the C header.
type LayoutError struct {
	Field string
	Go    uintptr
	C     uintptr
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout mismatch for %s: Go %d, C %d", e.Field, e.Go, e.C)
}

type layoutCheck struct {
	field string
	goVal uintptr
	cVal  uintptr
}

func layoutChecks() []layoutCheck {
	return []layoutCheck{
		{"TextView", unsafe.Sizeof(interop.TextView{}), uintptr(C.sizeof_TextView)},
		{"MacroDefinition", unsafe.Sizeof(interop.MacroDefinition{}), uintptr(C.sizeof_MacroDefinition)},
		{"MacroDefinition.valueLength", unsafe.Offsetof(interop.MacroDefinition{}.ValueLength), uintptr(C.macro_value_offset())},
		{"GlslCompileInfo", unsafe.Sizeof(interop.GlslCompileInfo{}), uintptr(C.sizeof_GlslCompileInfo)},
		{"GlslCompileInfo.kind", unsafe.Offsetof(interop.GlslCompileInfo{}.Kind), uintptr(C.info_kind_offset())},
		{"GlslCompileInfo.fileName", unsafe.Offsetof(interop.GlslCompileInfo{}.FileName), uintptr(C.info_file_name_offset())},
		{"GlslCompileInfo.debug", unsafe.Offsetof(interop.GlslCompileInfo{}.Debug), uintptr(C.info_debug_offset())},
		{"GlslCompileInfo.macros", unsafe.Offsetof(interop.GlslCompileInfo{}.Macros), uintptr(C.info_macros_offset())},
		{"BinaryBuffer", unsafe.Sizeof(interop.BinaryBuffer{}), uintptr(C.sizeof_BinaryBuffer)},
		{"CompilationResult", unsafe.Sizeof(interop.CompilationResult{}), uintptr(C.sizeof_CompilationResult)},
		{"CompilationResult.dataBuffers", unsafe.Offsetof(interop.CompilationResult{}.DataBuffers), uintptr(C.result_buffers_offset())},
		{"CompilationResult.errorMessage", unsafe.Offsetof(interop.CompilationResult{}.ErrorMessage), uintptr(C.result_message_offset())},
	}
}

// kindChecks pairs each interop shader kind with the header's enum value.
func kindChecks() []layoutCheck {
	return []layoutCheck{
		{"ShaderKindVertex", uintptr(interop.KindVertex), uintptr(C.ShaderKindVertex)},
		{"ShaderKindFragment", uintptr(interop.KindFragment), uintptr(C.ShaderKindFragment)},
		{"ShaderKindCompute", uintptr(interop.KindCompute), uintptr(C.ShaderKindCompute)},
		{"ShaderKindGeometry", uintptr(interop.KindGeometry), uintptr(C.ShaderKindGeometry)},
		{"ShaderKindTessellationControl", uintptr(interop.KindTessellationControl), uintptr(C.ShaderKindTessellationControl)},
		{"ShaderKindTessellationEvaluation", uintptr(interop.KindTessellationEvaluation), uintptr(C.ShaderKindTessellationEvaluation)},
		{"ShaderKindRayGeneration", uintptr(interop.KindRayGeneration), uintptr(C.ShaderKindRayGeneration)},
		{"ShaderKindAnyHit", uintptr(interop.KindAnyHit), uintptr(C.ShaderKindAnyHit)},
		{"ShaderKindClosestHit", uintptr(interop.KindClosestHit), uintptr(C.ShaderKindClosestHit)},
		{"ShaderKindMiss", uintptr(interop.KindMiss), uintptr(C.ShaderKindMiss)},
		{"ShaderKindIntersection", uintptr(interop.KindIntersection), uintptr(C.ShaderKindIntersection)},
		{"ShaderKindCallable", uintptr(interop.KindCallable), uintptr(C.ShaderKindCallable)},
		{"ShaderKindTask", uintptr(interop.KindTask), uintptr(C.ShaderKindTask)},
		{"ShaderKindMesh", uintptr(interop.KindMesh), uintptr(C.ShaderKindMesh)},
	}
}

// checkLayout compares the interop types against the C definitions.
func checkLayout() error {
	for _, c := range append(layoutChecks(), kindChecks()...) {
		if c.goVal != c.cVal {
			return &LayoutError{Field: c.field, Go: c.goVal, C: c.cVal}
		}
	}
	return nil
}
