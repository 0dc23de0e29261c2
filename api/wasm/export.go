//go:build wasm

package wasm

// This file documents the exports a compiler plugin provides.
// Plugins written in Go implement them with //go:wasmexport.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a
// 32-bit linear memory model. See: https://github.com/golang/go/issues/59156
//
// //go:wasmexport malloc
// func malloc(size uint32) uint32
//
// //go:wasmexport free
// func free(ptr uint32)
//
// //go:wasmexport compile_glsl_to_spirv
// func compileGlslToSpirv(infoPtr uint32) uint32
//
// //go:wasmexport free_result
// func freeResult(resultPtr uint32)
//
// compile_glsl_to_spirv must always return a result pointer; a compiler
// failure is reported through Succeeded and ErrorMessage, not by trapping.
