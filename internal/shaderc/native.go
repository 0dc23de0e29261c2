//go:build shaderc

package shaderc

/*
#cgo pkg-config: shaderc
#include <shaderc/shaderc.h>
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"errors"
	"unsafe"
)

var errCompilerInit = errors.New("shaderc_compiler_initialize returned null")

// NativeAvailable reports whether the libshaderc backend is compiled in.
const NativeAvailable = true

// Native compiles in-process through libshaderc.
type Native struct {
	handle C.shaderc_compiler_t

	// TargetEnv applies when the options leave the target unset.
	TargetEnv string
}

// NewNative initializes a libshaderc compiler.
func NewNative(targetEnv string) (*Native, error) {
	handle := C.shaderc_compiler_initialize()
	if handle == nil {
		return nil, &ToolError{Tool: "libshaderc", Err: errCompilerInit}
	}
	return &Native{handle: handle, TargetEnv: targetEnv}, nil
}

// NativeFactory initializes a new libshaderc compiler for every call.
func NativeFactory(targetEnv string) Factory {
	return func(context.Context) (Compiler, error) {
		return NewNative(targetEnv)
	}
}

// CompileGlslToSpv implements Compiler.
func (n *Native) CompileGlslToSpv(_ context.Context, source string, kind ShaderKind, inputFileName string, opts *CompileOptions) (*SpvCompilationResult, error) {
	targetEnv := opts.TargetEnv
	if targetEnv == "" {
		targetEnv = n.TargetEnv
	}
	env, envVersion, envOK := nativeTargetEnv(targetEnv)
	if targetEnv != "" && !envOK {
		return &SpvCompilationResult{
			Status:       StatusConfigurationError,
			ErrorMessage: (&TargetEnvError{Env: targetEnv}).Error(),
		}, nil
	}

	options := C.shaderc_compile_options_initialize()
	defer C.shaderc_compile_options_release(options)

	if opts.GenerateDebugInfo {
		C.shaderc_compile_options_set_generate_debug_info(options)
	}
	C.shaderc_compile_options_set_optimization_level(options, C.shaderc_optimization_level(opts.OptimizationLevel))

	for _, m := range opts.Macros {
		cName := C.CString(m.Name)
		var cValue *C.char
		if m.HasValue {
			cValue = C.CString(m.Value)
		}
		C.shaderc_compile_options_add_macro_definition(options,
			cName, C.size_t(len(m.Name)),
			cValue, C.size_t(len(m.Value)))
		C.free(unsafe.Pointer(cName))
		if cValue != nil {
			C.free(unsafe.Pointer(cValue))
		}
	}

	if envOK {
		C.shaderc_compile_options_set_target_env(options, env, C.uint32_t(envVersion))
	}

	cSource := C.CString(source)
	defer C.free(unsafe.Pointer(cSource))
	cFileName := C.CString(inputFileName)
	defer C.free(unsafe.Pointer(cFileName))
	cEntryPoint := C.CString("main")
	defer C.free(unsafe.Pointer(cEntryPoint))

	result := C.shaderc_compile_into_spv(
		n.handle,
		cSource,
		C.size_t(len(source)),
		C.shaderc_shader_kind(kind),
		cFileName,
		cEntryPoint,
		options,
	)
	if result == nil {
		return &SpvCompilationResult{Status: StatusNullResultObject, ErrorMessage: "libshaderc returned no result"}, nil
	}
	defer C.shaderc_result_release(result)

	status := CompilationStatus(C.shaderc_result_get_compilation_status(result))
	if status != StatusSuccess {
		return &SpvCompilationResult{
			Status:       status,
			ErrorMessage: C.GoString(C.shaderc_result_get_error_message(result)),
		}, nil
	}

	length := int(C.shaderc_result_get_length(result))
	bytes := C.GoBytes(unsafe.Pointer(C.shaderc_result_get_bytes(result)), C.int(length))

	words, err := WordsFromBytes(bytes)
	if err != nil {
		return nil, err
	}
	return &SpvCompilationResult{Status: StatusSuccess, Words: words}, nil
}

// Close releases the libshaderc compiler.
func (n *Native) Close(context.Context) error {
	if n.handle != nil {
		C.shaderc_compiler_release(n.handle)
		n.handle = nil
	}
	return nil
}

func nativeTargetEnv(env string) (C.shaderc_target_env, uint32, bool) {
	switch env {
	case "vulkan1.0":
		return C.shaderc_target_env_vulkan, uint32(C.shaderc_env_version_vulkan_1_0), true
	case "vulkan1.1":
		return C.shaderc_target_env_vulkan, uint32(C.shaderc_env_version_vulkan_1_1), true
	case "vulkan1.2":
		return C.shaderc_target_env_vulkan, uint32(C.shaderc_env_version_vulkan_1_2), true
	case "vulkan1.3":
		return C.shaderc_target_env_vulkan, uint32(C.shaderc_env_version_vulkan_1_3), true
	case "opengl", "opengl4.5":
		return C.shaderc_target_env_opengl, uint32(C.shaderc_env_version_opengl_4_5), true
	default:
		return 0, 0, false
	}
}
