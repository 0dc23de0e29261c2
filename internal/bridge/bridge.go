// Package bridge implements the compile/release boundary: it turns a
// GlslCompileInfo into compiler options, runs a fresh compiler and marshals
// the outcome into an allocator-owned CompilationResult.
//
// Compile never panics and never returns nil. Every fault on the way,
// including a panic inside the compiler, becomes a failed result carrying
// the fault's message.
package bridge

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
	"github.com/woxQAQ/spirv-bridge/internal/shaderc"
)

// Bridge holds no per-call state and is safe for concurrent use.
type Bridge struct {
	factory shaderc.Factory
	alloc   interop.Allocator
	logger  *zap.Logger
}

// New creates a bridge that asks factory for a compiler on every call and
// allocates results from alloc. A nil alloc selects a HeapAllocator.
func New(factory shaderc.Factory, alloc interop.Allocator, logger *zap.Logger) *Bridge {
	if alloc == nil {
		alloc = interop.NewHeapAllocator()
	}
	return &Bridge{
		factory: factory,
		alloc:   alloc,
		logger:  logger.With(zap.String("component", "bridge")),
	}
}

// Allocator returns the allocator results are built from.
func (b *Bridge) Allocator() interop.Allocator {
	return b.alloc
}

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// outcome is what a compile attempt produced before marshalling.
type outcome struct {
	succeeded bool
	words     []uint32
	message   string
}

func failed(message string) outcome {
	return outcome{message: message}
}

// faultMessage returns err's text, or a substitute naming its type when the
// text is empty, so a failed result always carries a message.
func faultMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("compilation failed: %T", err)
}

// Compile compiles info and returns a result owned by the caller, who must
// pass it to Release exactly once. info and the memory it points to are only
// read during the call.
func (b *Bridge) Compile(info *interop.GlslCompileInfo) *interop.CompilationResult {
	start := time.Now()
	out := b.run(info)

	result, err := b.marshal(out)
	if err != nil {
		b.logger.Warn("Failed to marshal compilation result", zap.Error(err))
		result = interop.NewFailureResult(b.alloc, faultMessage(err))
	}

	if ce := b.logger.Check(zap.DebugLevel, "Compiled shader"); ce != nil && info != nil {
		ce.Write(
			zap.Stringer("kind", info.Kind),
			zap.String("file", info.FileName.String()),
			zap.Uint32("macros", info.Macros.Count),
			zap.Bool("debug", info.Debug.Bool()),
			zap.Bool("succeeded", out.succeeded),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return result
}

// Release frees a result returned by Compile. Release(nil) is a no-op.
func (b *Bridge) Release(result *interop.CompilationResult) {
	result.Free(b.alloc)
}

// run produces the outcome for info, converting errors and panics into
// failed outcomes.
func (b *Bridge) run(info *interop.GlslCompileInfo) (out outcome) {
	defer func() {
		if v := recover(); v != nil {
			err := &PanicError{Value: v, Stack: debug.Stack()}
			b.logger.Warn("Recovered panic during compilation",
				zap.Error(err),
				zap.ByteString("stack", err.Stack),
			)
			out = failed(err.Error())
		}
	}()

	ctx := context.Background()
	opts := compileOptions(info)

	compiler, err := b.factory(ctx)
	if err != nil {
		b.logger.Warn("Failed to create compiler", zap.Error(err))
		return failed(faultMessage(err))
	}
	defer func() {
		if err := compiler.Close(ctx); err != nil {
			b.logger.Warn("Failed to close compiler", zap.Error(err))
		}
	}()

	res, err := compiler.CompileGlslToSpv(ctx, info.SourceText.String(), info.Kind, info.FileName.String(), opts)
	if err != nil {
		b.logger.Warn("Compiler fault", zap.Error(err))
		return failed(faultMessage(err))
	}
	if !res.Succeeded() {
		msg := res.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("compilation failed: %s", res.Status)
		}
		return failed(msg)
	}
	if len(res.Words) == 0 {
		return failed("compilation failed: compiler returned no SPIR-V")
	}
	return outcome{succeeded: true, words: res.Words}
}

// compileOptions maps the request onto compiler options: debug info when
// Debug is set, full optimization otherwise.
func compileOptions(info *interop.GlslCompileInfo) *shaderc.CompileOptions {
	opts := shaderc.NewCompileOptions()
	if info.Debug.Bool() {
		opts.SetGenerateDebugInfo()
	} else {
		opts.SetOptimizationLevel(shaderc.OptimizationLevelPerformance)
	}

	macros := info.Macros.Slice()
	for i := range macros {
		m := &macros[i]
		if m.HasValue() {
			opts.AddMacroDefinitionValue(m.NameString(), m.ValueString())
		} else {
			opts.AddMacroDefinition(m.NameString())
		}
	}
	return opts
}

// marshal copies out into a new result. A panic frees whatever was
// allocated and is returned as an error.
func (b *Bridge) marshal(out outcome) (result *interop.CompilationResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			result.Free(b.alloc)
			result = nil
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	if !out.succeeded {
		return interop.NewFailureResult(b.alloc, out.message), nil
	}

	result = interop.NewResult(b.alloc)
	result.Succeeded = interop.BoolOf(true)
	result.ResizeBuffers(b.alloc, 1)
	result.Buffer(0).CopyFrom(b.alloc, uint32(len(out.words)*4), unsafe.Pointer(unsafe.SliceData(out.words)))
	return result, nil
}
