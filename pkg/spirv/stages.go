package spirv

import (
	"fmt"
	"strings"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

// ShaderStages is a set of pipeline stages. Compilation accepts exactly one.
type ShaderStages uint8

const (
	StageNone                   ShaderStages = 0
	StageVertex                 ShaderStages = 1 << 0
	StageGeometry               ShaderStages = 1 << 1
	StageTessellationControl    ShaderStages = 1 << 2
	StageTessellationEvaluation ShaderStages = 1 << 3
	StageFragment               ShaderStages = 1 << 4
	StageCompute                ShaderStages = 1 << 5
)

var stageNames = []struct {
	stage ShaderStages
	name  string
	kind  interop.ShaderKind
}{
	{StageVertex, "Vertex", interop.KindVertex},
	{StageGeometry, "Geometry", interop.KindGeometry},
	{StageTessellationControl, "TessellationControl", interop.KindTessellationControl},
	{StageTessellationEvaluation, "TessellationEvaluation", interop.KindTessellationEvaluation},
	{StageFragment, "Fragment", interop.KindFragment},
	{StageCompute, "Compute", interop.KindCompute},
}

func (s ShaderStages) String() string {
	if s == StageNone {
		return "None"
	}
	var parts []string
	rest := s
	for _, n := range stageNames {
		if s&n.stage != 0 {
			parts = append(parts, n.name)
			rest &^= n.stage
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint8(rest)))
	}
	return strings.Join(parts, ", ")
}

// Kind maps a single stage to the compiler's shader kind.
func (s ShaderStages) Kind() (interop.ShaderKind, error) {
	for _, n := range stageNames {
		if s == n.stage {
			return n.kind, nil
		}
	}
	return 0, &CompilationError{Message: fmt.Sprintf("Invalid shader stage: %s", s)}
}
