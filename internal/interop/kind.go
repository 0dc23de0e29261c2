package interop

import "fmt"

// ShaderKind is the pipeline stage tag carried by a compile request. Values
// match shaderc_shader_kind so they pass through to the compiler unchanged.
type ShaderKind uint32

const (
	KindVertex                 ShaderKind = 0
	KindFragment               ShaderKind = 1
	KindCompute                ShaderKind = 2
	KindGeometry               ShaderKind = 3
	KindTessellationControl    ShaderKind = 4
	KindTessellationEvaluation ShaderKind = 5
	KindRayGeneration          ShaderKind = 14
	KindAnyHit                 ShaderKind = 15
	KindClosestHit             ShaderKind = 16
	KindMiss                   ShaderKind = 17
	KindIntersection           ShaderKind = 18
	KindCallable               ShaderKind = 19
	KindTask                   ShaderKind = 26
	KindMesh                   ShaderKind = 27
)

var kindNames = map[ShaderKind]string{
	KindVertex:                 "vertex",
	KindFragment:               "fragment",
	KindCompute:                "compute",
	KindGeometry:               "geometry",
	KindTessellationControl:    "tess_control",
	KindTessellationEvaluation: "tess_evaluation",
	KindRayGeneration:          "raygen",
	KindAnyHit:                 "anyhit",
	KindClosestHit:             "closesthit",
	KindMiss:                   "miss",
	KindIntersection:           "intersection",
	KindCallable:               "callable",
	KindTask:                   "task",
	KindMesh:                   "mesh",
}

// Valid reports whether k is a recognized stage.
func (k ShaderKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k ShaderKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unrecognized(%d)", uint32(k))
}

// ParseShaderKind resolves a stage name as produced by String.
func ParseShaderKind(name string) (ShaderKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
