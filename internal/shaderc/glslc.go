package shaderc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

// glslcStages maps shader kinds to glslc -fshader-stage names.
var glslcStages = map[ShaderKind]string{
	interop.KindVertex:                 "vert",
	interop.KindFragment:               "frag",
	interop.KindCompute:                "comp",
	interop.KindGeometry:               "geom",
	interop.KindTessellationControl:    "tesc",
	interop.KindTessellationEvaluation: "tese",
	interop.KindRayGeneration:          "rgen",
	interop.KindAnyHit:                 "rahit",
	interop.KindClosestHit:             "rchit",
	interop.KindMiss:                   "rmiss",
	interop.KindIntersection:           "rint",
	interop.KindCallable:               "rcall",
	interop.KindTask:                   "task",
	interop.KindMesh:                   "mesh",
}

// The source is always written under these names, whatever file name the
// caller gives. glslc picks the input language from the extension.
const (
	inputName  = "input.glsl"
	outputName = "out.spv"
)

// Glslc compiles by running shaderc's glslc executable. Each call works in
// its own temporary directory, so one Glslc may be shared between goroutines.
type Glslc struct {
	Bin string

	// TargetEnv is used when the options leave it empty.
	TargetEnv string

	logger *zap.Logger
}

// NewGlslc creates a glslc-backed compiler. An empty bin means "glslc" on PATH.
func NewGlslc(bin, targetEnv string, logger *zap.Logger) *Glslc {
	if bin == "" {
		bin = "glslc"
	}
	return &Glslc{
		Bin:       bin,
		TargetEnv: targetEnv,
		logger:    logger.With(zap.String("component", "glslc")),
	}
}

// GlslcFactory returns a Factory handing out g for every call. glslc runs as
// a fresh process per compilation, so there is no per-call state to rebuild.
func GlslcFactory(g *Glslc) Factory {
	return func(context.Context) (Compiler, error) {
		return g, nil
	}
}

// CompileGlslToSpv implements Compiler.
func (g *Glslc) CompileGlslToSpv(ctx context.Context, source string, kind ShaderKind, inputFileName string, opts *CompileOptions) (*SpvCompilationResult, error) {
	stage, ok := glslcStages[kind]
	if !ok {
		return &SpvCompilationResult{
			Status:       StatusInvalidStage,
			ErrorMessage: (&UnsupportedKindError{Kind: kind}).Error(),
		}, nil
	}

	workDir, err := os.MkdirTemp("", "spirv-bridge-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := os.WriteFile(filepath.Join(workDir, inputName), []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write source: %w", err)
	}

	cmd := exec.CommandContext(ctx, g.Bin, g.args(stage, opts)...)
	cmd.Dir = workDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	startTime := time.Now()
	runErr := cmd.Run()

	g.logger.Debug("glslc finished",
		zap.Strings("args", cmd.Args),
		zap.Duration("duration", time.Since(startTime)),
		zap.Error(runErr),
	)

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, &ToolError{Tool: g.Bin, Err: runErr}
		}
		return &SpvCompilationResult{
			Status:       StatusCompilationError,
			ErrorMessage: attributeDiagnostics(strings.TrimSpace(stderr.String()), inputFileName),
		}, nil
	}

	out, err := os.ReadFile(filepath.Join(workDir, outputName))
	if err != nil {
		return nil, fmt.Errorf("failed to read compiler output: %w", err)
	}

	words, err := WordsFromBytes(out)
	if err != nil {
		return nil, err
	}

	return &SpvCompilationResult{Status: StatusSuccess, Words: words}, nil
}

// Close implements Compiler.
func (g *Glslc) Close(context.Context) error {
	return nil
}

func (g *Glslc) args(stage string, opts *CompileOptions) []string {
	args := []string{"-fshader-stage=" + stage, "-x", "glsl"}

	if opts.GenerateDebugInfo {
		args = append(args, "-g")
	}
	switch opts.OptimizationLevel {
	case OptimizationLevelPerformance:
		args = append(args, "-O")
	case OptimizationLevelSize:
		args = append(args, "-Os")
	default:
		args = append(args, "-O0")
	}

	targetEnv := opts.TargetEnv
	if targetEnv == "" {
		targetEnv = g.TargetEnv
	}
	if targetEnv != "" {
		args = append(args, "--target-env="+targetEnv)
	}

	for _, m := range opts.Macros {
		if m.HasValue {
			args = append(args, "-D"+m.Name+"="+m.Value)
		} else {
			args = append(args, "-D"+m.Name)
		}
	}

	return append(args, "-o", outputName, inputName)
}

// attributeDiagnostics rewrites the leading "input.glsl:" of each line to
// fileName. The rest of each line is left alone.
func attributeDiagnostics(msg, fileName string) string {
	if fileName == "" {
		return msg
	}
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if rest, ok := strings.CutPrefix(line, inputName+":"); ok {
			lines[i] = fileName + ":" + rest
		}
	}
	return strings.Join(lines, "\n")
}
