package shaderc

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

// fakeGlslc stands in for glslc: it records its arguments one per line in
// argv next to itself, rejects sources containing "not glsl" and otherwise
// writes a two-word SPIR-V header to the -o path.
const fakeGlslc = `#!/bin/sh
printf '%s\n' "$@" > "$(dirname "$0")/argv"
out=""
prev=""
last=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
  last="$a"
done
if grep -q "not glsl" "$last"; then
  echo "$last:1: error: '' :  syntax error, unexpected IDENTIFIER" >&2
  exit 1
fi
printf '\003\002\043\007\000\000\001\000' > "$out"
`

func writeFakeGlslc(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake glslc is a shell script")
	}
	path := filepath.Join(t.TempDir(), "glslc")
	if err := os.WriteFile(path, []byte(fakeGlslc), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// recordedArgs returns the arguments of the last fake glslc run.
func recordedArgs(t *testing.T, bin string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "argv"))
	if err != nil {
		t.Fatalf("fake glslc left no argv: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestGlslcArgs(t *testing.T) {
	g := NewGlslc("", "vulkan1.0", zaptest.NewLogger(t))

	opts := NewCompileOptions()
	opts.SetOptimizationLevel(OptimizationLevelPerformance)
	opts.AddMacroDefinitionValue("Name0", "Value0")
	opts.AddMacroDefinition("Name2")

	got := g.args("vert", opts)
	want := []string{
		"-fshader-stage=vert",
		"-x", "glsl",
		"-O",
		"--target-env=vulkan1.0",
		"-DName0=Value0",
		"-DName2",
		"-o", "out.spv", "input.glsl",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	debug := NewCompileOptions()
	debug.SetGenerateDebugInfo()
	debug.SetTargetEnv("vulkan1.2")
	got = g.args("frag", debug)
	want = []string{"-fshader-stage=frag", "-x", "glsl", "-g", "-O0", "--target-env=vulkan1.2", "-o", "out.spv", "input.glsl"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("debug args mismatch (-want +got):\n%s", diff)
	}
}

func TestAttributeDiagnostics(t *testing.T) {
	stderr := "input.glsl:1: error: '' :  syntax error, unexpected IDENTIFIER\n" +
		"input.glsl:3: error: 'input.glsl' : undeclared identifier\n" +
		"2 errors generated."

	tests := []struct {
		file string
		want string
	}{
		{"", stderr},
		{"shaders/e", "shaders/e:1: error: '' :  syntax error, unexpected IDENTIFIER\n" +
			"shaders/e:3: error: 'input.glsl' : undeclared identifier\n" +
			"2 errors generated."},
	}
	for _, tt := range tests {
		if got := attributeDiagnostics(stderr, tt.file); got != tt.want {
			t.Errorf("attributeDiagnostics(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestGlslcSuccess(t *testing.T) {
	g := NewGlslc(writeFakeGlslc(t), "", zaptest.NewLogger(t))

	res, err := g.CompileGlslToSpv(context.Background(), "void main(){}", interop.KindVertex, "t.vert", NewCompileOptions())
	if err != nil {
		t.Fatalf("CompileGlslToSpv() error = %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("status = %s, message = %q", res.Status, res.ErrorMessage)
	}
	if diff := cmp.Diff([]uint32{0x07230203, 0x00010000}, res.Words); diff != "" {
		t.Errorf("words mismatch (-want +got):\n%s", diff)
	}
}

func TestGlslcCompilationErrorMapsFileName(t *testing.T) {
	g := NewGlslc(writeFakeGlslc(t), "", zaptest.NewLogger(t))

	res, err := g.CompileGlslToSpv(context.Background(), "this is not glsl", interop.KindFragment, "<spirv-input>", NewCompileOptions())
	if err != nil {
		t.Fatalf("CompileGlslToSpv() error = %v", err)
	}
	if res.Status != StatusCompilationError {
		t.Fatalf("status = %s, want compilation error", res.Status)
	}
	if !strings.HasPrefix(res.ErrorMessage, "<spirv-input>:1: error") {
		t.Errorf("diagnostic not attributed to file name: %q", res.ErrorMessage)
	}
	if !strings.Contains(res.ErrorMessage, "syntax error") {
		t.Errorf("diagnostic = %q, want syntax error", res.ErrorMessage)
	}
}

func TestGlslcUnsupportedKind(t *testing.T) {
	g := NewGlslc(writeFakeGlslc(t), "", zaptest.NewLogger(t))

	res, err := g.CompileGlslToSpv(context.Background(), "void main(){}", interop.ShaderKind(6), "t.glsl", NewCompileOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusInvalidStage || res.ErrorMessage == "" {
		t.Errorf("got status %s message %q, want invalid stage", res.Status, res.ErrorMessage)
	}
}

func TestGlslcMissingBinary(t *testing.T) {
	g := NewGlslc(filepath.Join(t.TempDir(), "no-such-glslc"), "", zaptest.NewLogger(t))

	_, err := g.CompileGlslToSpv(context.Background(), "void main(){}", interop.KindVertex, "t.vert", NewCompileOptions())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Errorf("expected ToolError, got %T", err)
	}
}

func TestGlslcFactoryReturnsCompiler(t *testing.T) {
	g := NewGlslc("", "", zaptest.NewLogger(t))
	c, err := GlslcFactory(g)(context.Background())
	if err != nil || c != Compiler(g) {
		t.Errorf("factory = %v, %v", c, err)
	}
}

// TestGlslcReal runs the real glslc when it is installed.
func TestGlslcReal(t *testing.T) {
	bin, err := exec.LookPath("glslc")
	if err != nil {
		t.Skip("glslc not on PATH")
	}
	g := NewGlslc(bin, "", zaptest.NewLogger(t))
	ctx := context.Background()

	opts := NewCompileOptions()
	opts.SetOptimizationLevel(OptimizationLevelPerformance)
	res, err := g.CompileGlslToSpv(ctx, "#version 450\nvoid main(){}\n", interop.KindVertex, "t.vert", opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded() || len(res.Words) == 0 || res.Words[0] != 0x07230203 {
		t.Fatalf("unexpected result: status %s, %d words, %q", res.Status, len(res.Words), res.ErrorMessage)
	}

	res, err = g.CompileGlslToSpv(ctx, "this is not glsl", interop.KindFragment, "bad.frag", NewCompileOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded() || !strings.Contains(res.ErrorMessage, "bad.frag") {
		t.Errorf("expected diagnostic mentioning bad.frag, got %q", res.ErrorMessage)
	}
}

func TestGlslcFileNameDoesNotAffectCompilation(t *testing.T) {
	bin := writeFakeGlslc(t)
	g := NewGlslc(bin, "", zaptest.NewLogger(t))
	ctx := context.Background()
	want := []string{"-fshader-stage=frag", "-x", "glsl", "-O0", "-o", "out.spv", "input.glsl"}

	for _, file := range []string{"x.hlsl", "out.spv", "shader.spvasm", "-o", "<spirv-input>", ""} {
		res, err := g.CompileGlslToSpv(ctx, "void main(){}", interop.KindFragment, file, NewCompileOptions())
		if err != nil {
			t.Fatalf("file %q: CompileGlslToSpv() error = %v", file, err)
		}
		if !res.Succeeded() {
			t.Errorf("file %q: status = %s, message = %q", file, res.Status, res.ErrorMessage)
		}
		if diff := cmp.Diff(want, recordedArgs(t, bin)); diff != "" {
			t.Errorf("file %q: argv mismatch (-want +got):\n%s", file, diff)
		}
	}
}

func TestGlslcDiagnosticOnlyRenamesPrefix(t *testing.T) {
	g := NewGlslc(writeFakeGlslc(t), "", zaptest.NewLogger(t))

	res, err := g.CompileGlslToSpv(context.Background(), "this is not glsl", interop.KindFragment, "shaders/e", NewCompileOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := "shaders/e:1: error: '' :  syntax error, unexpected IDENTIFIER"
	if res.ErrorMessage != want {
		t.Errorf("ErrorMessage = %q, want %q", res.ErrorMessage, want)
	}
}

func TestGlslcOptionArgv(t *testing.T) {
	bin := writeFakeGlslc(t)
	g := NewGlslc(bin, "", zaptest.NewLogger(t))

	tests := []struct {
		name  string
		setup func(*CompileOptions)
		want  []string
	}{
		{
			name:  "defaults",
			setup: func(*CompileOptions) {},
			want:  []string{"-O0"},
		},
		{
			name:  "debug",
			setup: func(o *CompileOptions) { o.SetGenerateDebugInfo() },
			want:  []string{"-g", "-O0"},
		},
		{
			name:  "performance",
			setup: func(o *CompileOptions) { o.SetOptimizationLevel(OptimizationLevelPerformance) },
			want:  []string{"-O"},
		},
		{
			name:  "size",
			setup: func(o *CompileOptions) { o.SetOptimizationLevel(OptimizationLevelSize) },
			want:  []string{"-Os"},
		},
		{
			name: "macros",
			setup: func(o *CompileOptions) {
				o.AddMacroDefinition("FOG")
				o.AddMacroDefinitionValue("FOG_DENSITY", "0.5")
				o.AddMacroDefinitionValue("EXPR", "a=b")
			},
			want: []string{"-O0", "-DFOG", "-DFOG_DENSITY=0.5", "-DEXPR=a=b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewCompileOptions()
			tt.setup(opts)
			if _, err := g.CompileGlslToSpv(context.Background(), "void main(){}", interop.KindVertex, "t.vert", opts); err != nil {
				t.Fatal(err)
			}
			want := append([]string{"-fshader-stage=vert", "-x", "glsl"}, tt.want...)
			want = append(want, "-o", "out.spv", "input.glsl")
			if diff := cmp.Diff(want, recordedArgs(t, bin)); diff != "" {
				t.Errorf("argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
