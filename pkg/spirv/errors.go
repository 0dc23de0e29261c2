package spirv

// CompilationError reports a shader that could not be compiled, or a request
// that could not be made.
type CompilationError struct {
	Message string
}

func (e *CompilationError) Error() string {
	return e.Message
}
