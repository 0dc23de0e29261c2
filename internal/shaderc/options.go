package shaderc

// OptimizationLevel mirrors shaderc_optimization_level.
type OptimizationLevel int

const (
	OptimizationLevelZero OptimizationLevel = iota
	OptimizationLevelSize
	OptimizationLevelPerformance
)

func (l OptimizationLevel) String() string {
	switch l {
	case OptimizationLevelSize:
		return "size"
	case OptimizationLevelPerformance:
		return "performance"
	default:
		return "zero"
	}
}

// Macro is a preprocessor definition registered on CompileOptions.
type Macro struct {
	Name  string
	Value string

	// HasValue is false for a bare "#define NAME".
	HasValue bool
}

// CompileOptions collects compiler settings for one compilation.
type CompileOptions struct {
	GenerateDebugInfo bool
	OptimizationLevel OptimizationLevel
	Macros            []Macro

	// TargetEnv is passed to the compiler verbatim (e.g. "vulkan1.1").
	// Empty leaves the compiler default.
	TargetEnv string
}

// NewCompileOptions returns options with compiler defaults.
func NewCompileOptions() *CompileOptions {
	return &CompileOptions{}
}

// SetGenerateDebugInfo requests debug information in the output.
func (o *CompileOptions) SetGenerateDebugInfo() {
	o.GenerateDebugInfo = true
}

// SetOptimizationLevel sets the optimization level.
func (o *CompileOptions) SetOptimizationLevel(level OptimizationLevel) {
	o.OptimizationLevel = level
}

// AddMacroDefinition registers a value-less macro.
func (o *CompileOptions) AddMacroDefinition(name string) {
	o.Macros = append(o.Macros, Macro{Name: name})
}

// AddMacroDefinitionValue registers name=value.
func (o *CompileOptions) AddMacroDefinitionValue(name, value string) {
	o.Macros = append(o.Macros, Macro{Name: name, Value: value, HasValue: true})
}

// SetTargetEnv selects the target environment.
func (o *CompileOptions) SetTargetEnv(env string) {
	o.TargetEnv = env
}
