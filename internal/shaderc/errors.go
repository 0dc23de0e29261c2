package shaderc

import (
	"errors"
	"fmt"
)

// ErrNativeUnavailable is returned by NativeFactory compilers when the binary
// was built without the shaderc build tag.
var ErrNativeUnavailable = errors.New("native shaderc backend not compiled in (build with -tags shaderc)")

// ToolError occurs when an external compiler executable cannot be run.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("failed to run compiler '%s': %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// OutputError occurs when a compiler produces output that is not SPIR-V words.
type OutputError struct {
	Length int
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("compiler output is %d bytes, not a whole number of 32-bit words", e.Length)
}

// UnsupportedKindError occurs when a backend has no mapping for a stage.
type UnsupportedKindError struct {
	Kind ShaderKind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("shader kind %s is not supported by this compiler", e.Kind)
}

// TargetEnvError reports a target environment the backend does not know.
type TargetEnvError struct {
	Env string
}

func (e *TargetEnvError) Error() string {
	return fmt.Sprintf("unsupported target environment '%s'", e.Env)
}
