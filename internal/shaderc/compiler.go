// Package shaderc describes the external GLSL-to-SPIR-V compiler the bridge
// delegates to, and provides the backends that implement it.
//
// The shapes mirror libshaderc: a CompileOptions value built per call, a
// shader kind passed through unchanged, and a result that is either a
// sequence of SPIR-V words or a diagnostic message.
package shaderc

import (
	"context"
	"fmt"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

// ShaderKind is the compiler's stage enumeration. It shares its values with
// interop.ShaderKind.
type ShaderKind = interop.ShaderKind

// CompilationStatus mirrors shaderc_compilation_status.
type CompilationStatus int

const (
	StatusSuccess CompilationStatus = iota
	StatusInvalidStage
	StatusCompilationError
	StatusInternalError
	StatusNullResultObject
	StatusInvalidAssembly
	StatusValidationError
	StatusTransformationError
	StatusConfigurationError
)

func (s CompilationStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidStage:
		return "invalid stage"
	case StatusCompilationError:
		return "compilation error"
	case StatusInternalError:
		return "internal error"
	case StatusNullResultObject:
		return "null result object"
	case StatusInvalidAssembly:
		return "invalid assembly"
	case StatusValidationError:
		return "validation error"
	case StatusTransformationError:
		return "transformation error"
	case StatusConfigurationError:
		return "configuration error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// SpvCompilationResult is what a compiler returns for a source it processed.
// Words is set only when Status is StatusSuccess.
type SpvCompilationResult struct {
	Status       CompilationStatus
	Words        []uint32
	ErrorMessage string
}

// Succeeded reports whether compilation produced SPIR-V.
func (r *SpvCompilationResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Compiler compiles one GLSL source to SPIR-V.
//
// A returned error means the compiler could not run at all. A source the
// compiler rejected is reported through the result's status and message.
type Compiler interface {
	CompileGlslToSpv(ctx context.Context, source string, kind ShaderKind, inputFileName string, opts *CompileOptions) (*SpvCompilationResult, error)

	// Close releases the compiler.
	Close(ctx context.Context) error
}

// Factory creates a fresh compiler. The bridge asks for one per call.
type Factory func(ctx context.Context) (Compiler, error)
