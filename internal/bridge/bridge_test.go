package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
	"github.com/woxQAQ/spirv-bridge/internal/shaderc"
)

var spirvHeader = []uint32{0x07230203, 0x00010000}

// fakeCompiler accepts any source except one containing "not glsl", which
// it rejects the way glslang does.
type fakeCompiler struct {
	mu sync.Mutex

	result     *shaderc.SpvCompilationResult
	err        error
	panicValue any

	source string
	kind   shaderc.ShaderKind
	file   string
	opts   *shaderc.CompileOptions

	created int
	closed  int
}

func (f *fakeCompiler) factory(context.Context) (shaderc.Compiler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f, nil
}

func (f *fakeCompiler) CompileGlslToSpv(_ context.Context, source string, kind shaderc.ShaderKind, file string, opts *shaderc.CompileOptions) (*shaderc.SpvCompilationResult, error) {
	f.mu.Lock()
	f.source, f.kind, f.file, f.opts = source, kind, file, opts
	f.mu.Unlock()

	if f.panicValue != nil {
		panic(f.panicValue)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	if strings.Contains(source, "not glsl") {
		return &shaderc.SpvCompilationResult{
			Status:       shaderc.StatusCompilationError,
			ErrorMessage: file + ":1: error: '' :  syntax error, unexpected IDENTIFIER",
		}, nil
	}
	return &shaderc.SpvCompilationResult{Status: shaderc.StatusSuccess, Words: spirvHeader}, nil
}

func (f *fakeCompiler) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func request(source string, kind interop.ShaderKind, file string, debug bool, macros ...interop.MacroDefinition) *interop.GlslCompileInfo {
	return &interop.GlslCompileInfo{
		SourceText: interop.TextViewOf(source),
		Kind:       kind,
		FileName:   interop.TextViewOf(file),
		Debug:      interop.BoolOf(debug),
		Macros:     interop.ArrayOf(macros),
	}
}

func newTestBridge(t *testing.T, fake *fakeCompiler) (*Bridge, *interop.HeapAllocator) {
	t.Helper()
	alloc := interop.NewHeapAllocator()
	return New(fake.factory, alloc, zaptest.NewLogger(t)), alloc
}

// checkExclusive asserts a result is either a success with buffers and no
// message, or a failure with a message and no buffers.
func checkExclusive(t *testing.T, r *interop.CompilationResult) {
	t.Helper()
	if r == nil {
		t.Fatal("Compile() returned nil")
	}
	if r.Succeeded.Bool() {
		if r.DataBuffers.Count < 1 || r.ErrorMessage.Length != 0 {
			t.Errorf("success with %d buffers and message %q", r.DataBuffers.Count, r.Message())
		}
		return
	}
	if r.DataBuffers.Count != 0 || r.ErrorMessage.Length == 0 {
		t.Errorf("failure with %d buffers and message %q", r.DataBuffers.Count, r.Message())
	}
}

func TestCompileSuccess(t *testing.T) {
	fake := &fakeCompiler{}
	b, alloc := newTestBridge(t, fake)

	r := b.Compile(request("void main(){}", interop.KindVertex, "t.vert", false))
	checkExclusive(t, r)

	if !r.Succeeded.Bool() {
		t.Fatalf("Succeeded = false, message %q", r.Message())
	}
	if r.DataBuffers.Count != 1 {
		t.Fatalf("DataBuffers.Count = %d, want 1", r.DataBuffers.Count)
	}
	buf := r.Buffer(0)
	if buf.Length == 0 || buf.Length%4 != 0 {
		t.Errorf("buffer length = %d, want a positive multiple of 4", buf.Length)
	}
	want := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	if diff := cmp.Diff(want, buf.Bytes()); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}

	if fake.source != "void main(){}" || fake.file != "t.vert" || fake.kind != interop.KindVertex {
		t.Errorf("compiler got (%q, %s, %q)", fake.source, fake.kind, fake.file)
	}

	b.Release(r)
	if alloc.Live() != 0 {
		t.Errorf("%d blocks live after Release", alloc.Live())
	}
}

func TestCompileSyntaxError(t *testing.T) {
	fake := &fakeCompiler{}
	b, alloc := newTestBridge(t, fake)

	r := b.Compile(request("this is not glsl", interop.KindFragment, "t.frag", false))
	checkExclusive(t, r)

	if r.Succeeded.Bool() {
		t.Fatal("Succeeded = true for invalid source")
	}
	if !strings.Contains(r.Message(), "syntax error") {
		t.Errorf("message %q does not mention a syntax error", r.Message())
	}

	b.Release(r)
	if alloc.Live() != 0 {
		t.Errorf("%d blocks live after Release", alloc.Live())
	}
}

func TestCompileOptions(t *testing.T) {
	tests := []struct {
		name   string
		debug  bool
		macros []interop.MacroDefinition
		want   *shaderc.CompileOptions
	}{
		{
			name: "optimized",
			want: &shaderc.CompileOptions{OptimizationLevel: shaderc.OptimizationLevelPerformance},
		},
		{
			name:  "debug",
			debug: true,
			want:  &shaderc.CompileOptions{GenerateDebugInfo: true},
		},
		{
			name: "macros",
			macros: []interop.MacroDefinition{
				interop.NewMacroDefinition("USE_FOG", ""),
				interop.NewMacroDefinition("LIGHTS", "4"),
			},
			want: &shaderc.CompileOptions{
				OptimizationLevel: shaderc.OptimizationLevelPerformance,
				Macros: []shaderc.Macro{
					{Name: "USE_FOG"},
					{Name: "LIGHTS", Value: "4", HasValue: true},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompiler{}
			b, _ := newTestBridge(t, fake)

			r := b.Compile(request("void main(){}", interop.KindVertex, "t.vert", tt.debug, tt.macros...))
			defer b.Release(r)

			if !r.Succeeded.Bool() {
				t.Fatalf("compile failed: %s", r.Message())
			}
			if diff := cmp.Diff(tt.want, fake.opts); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileKindPassThrough(t *testing.T) {
	for _, kind := range []interop.ShaderKind{interop.KindMesh, interop.KindRayGeneration, 99} {
		fake := &fakeCompiler{}
		b, _ := newTestBridge(t, fake)

		b.Release(b.Compile(request("void main(){}", kind, "", false)))
		if fake.kind != kind {
			t.Errorf("compiler got kind %d, want %d", fake.kind, kind)
		}
	}
}

func TestCompileFaults(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeCompiler
		want string
	}{
		{
			name: "compiler error",
			fake: &fakeCompiler{err: errors.New("glslc: executable file not found in $PATH")},
			want: "glslc: executable file not found in $PATH",
		},
		{
			name: "compiler error without text",
			fake: &fakeCompiler{err: errors.New("")},
			want: "compilation failed: *errors.errorString",
		},
		{
			name: "compiler panic",
			fake: &fakeCompiler{panicValue: "boom"},
			want: "panic: boom",
		},
		{
			name: "empty diagnostic",
			fake: &fakeCompiler{result: &shaderc.SpvCompilationResult{Status: shaderc.StatusInternalError}},
			want: "compilation failed: internal error",
		},
		{
			name: "empty output",
			fake: &fakeCompiler{result: &shaderc.SpvCompilationResult{Status: shaderc.StatusSuccess}},
			want: "compilation failed: compiler returned no SPIR-V",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, alloc := newTestBridge(t, tt.fake)

			r := b.Compile(request("void main(){}", interop.KindCompute, "c.comp", false))
			checkExclusive(t, r)
			if r.Message() != tt.want {
				t.Errorf("message = %q, want %q", r.Message(), tt.want)
			}
			if tt.fake.closed != tt.fake.created {
				t.Errorf("created %d compilers, closed %d", tt.fake.created, tt.fake.closed)
			}

			b.Release(r)
			if alloc.Live() != 0 {
				t.Errorf("%d blocks live after Release", alloc.Live())
			}
		})
	}
}

func TestCompileFactoryError(t *testing.T) {
	alloc := interop.NewHeapAllocator()
	factory := func(context.Context) (shaderc.Compiler, error) {
		return nil, shaderc.ErrNativeUnavailable
	}
	b := New(factory, alloc, zaptest.NewLogger(t))

	r := b.Compile(request("void main(){}", interop.KindVertex, "t.vert", false))
	checkExclusive(t, r)
	if r.Message() != shaderc.ErrNativeUnavailable.Error() {
		t.Errorf("message = %q", r.Message())
	}
	b.Release(r)
}

// silentError is an error with no text.
type silentError struct{}

func (*silentError) Error() string { return "" }

func TestCompileFactoryErrorWithoutText(t *testing.T) {
	alloc := interop.NewHeapAllocator()
	factory := func(context.Context) (shaderc.Compiler, error) {
		return nil, &silentError{}
	}
	b := New(factory, alloc, zaptest.NewLogger(t))

	r := b.Compile(request("void main(){}", interop.KindVertex, "t.vert", false))
	checkExclusive(t, r)
	if want := "compilation failed: *bridge.silentError"; r.Message() != want {
		t.Errorf("message = %q, want %q", r.Message(), want)
	}
	b.Release(r)
	if alloc.Live() != 0 {
		t.Errorf("%d blocks live after Release", alloc.Live())
	}
}

func TestCompileNilRequest(t *testing.T) {
	b, alloc := newTestBridge(t, &fakeCompiler{})

	r := b.Compile(nil)
	checkExclusive(t, r)
	if !strings.HasPrefix(r.Message(), "panic: ") {
		t.Errorf("message = %q, want a recovered panic", r.Message())
	}
	b.Release(r)
	if alloc.Live() != 0 {
		t.Errorf("%d blocks live after Release", alloc.Live())
	}
}

func TestFreshCompilerPerCall(t *testing.T) {
	fake := &fakeCompiler{}
	b, _ := newTestBridge(t, fake)

	for i := 0; i < 3; i++ {
		b.Release(b.Compile(request("void main(){}", interop.KindVertex, "t.vert", false)))
	}
	if fake.created != 3 || fake.closed != 3 {
		t.Errorf("created %d, closed %d compilers; want 3 and 3", fake.created, fake.closed)
	}
}

func TestReleaseReclaimsEverything(t *testing.T) {
	fake := &fakeCompiler{}
	b, alloc := newTestBridge(t, fake)

	var results []*interop.CompilationResult
	for i := 0; i < 10; i++ {
		src := "void main(){}"
		if i%2 == 1 {
			src = "this is not glsl"
		}
		results = append(results, b.Compile(request(src, interop.KindFragment, "t.frag", i%3 == 0)))
	}
	if alloc.Live() == 0 {
		t.Fatal("no live blocks while results are held")
	}

	for _, r := range results {
		b.Release(r)
	}
	if alloc.Live() != 0 || alloc.LiveBytes() != 0 {
		t.Errorf("%d blocks (%d bytes) live after releasing every result", alloc.Live(), alloc.LiveBytes())
	}
}

func TestReleaseNil(t *testing.T) {
	b, alloc := newTestBridge(t, &fakeCompiler{})

	b.Release(nil)
	if alloc.Live() != 0 {
		t.Errorf("Release(nil) allocated %d blocks", alloc.Live())
	}
}

func TestConcurrentCompile(t *testing.T) {
	b, alloc := newTestBridge(t, &fakeCompiler{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := "void main(){}"
			if i%2 == 0 {
				src = "this is not glsl"
			}
			r := b.Compile(request(src, interop.KindVertex, "t.vert", false))
			if r.Succeeded.Bool() == (i%2 == 0) {
				t.Errorf("call %d: Succeeded = %v", i, r.Succeeded.Bool())
			}
			b.Release(r)
		}(i)
	}
	wg.Wait()

	if alloc.Live() != 0 {
		t.Errorf("%d blocks live after concurrent compiles", alloc.Live())
	}
}

func TestNewDefaultsAllocator(t *testing.T) {
	b := New((&fakeCompiler{}).factory, nil, zaptest.NewLogger(t))
	if _, ok := b.Allocator().(*interop.HeapAllocator); !ok {
		t.Errorf("Allocator() = %T, want *interop.HeapAllocator", b.Allocator())
	}
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Value: errors.New("index out of range")}
	if got := err.Error(); got != "panic: index out of range" {
		t.Errorf("Error() = %q", got)
	}
}
