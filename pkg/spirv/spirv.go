// Package spirv compiles GLSL shaders to SPIR-V from Go.
//
// A Compiler wraps the compile/release boundary: it builds the request over
// Go memory, copies the SPIR-V out of the result and releases the result
// before returning, so callers never handle boundary memory.
package spirv

import (
	"bytes"
	"context"
	"encoding/binary"

	"go.uber.org/zap"

	nagaspirv "github.com/gogpu/naga/spirv"

	"github.com/woxQAQ/spirv-bridge/internal/bridge"
	"github.com/woxQAQ/spirv-bridge/internal/config"
	"github.com/woxQAQ/spirv-bridge/internal/interop"
	"github.com/woxQAQ/spirv-bridge/internal/service"
)

// DefaultFileName is used for diagnostics when no file name is given.
const DefaultFileName = "<spirv-input>"

// MacroDefinition is a preprocessor definition. An empty Value defines a
// flag macro.
type MacroDefinition struct {
	Name  string
	Value string
}

// GlslCompileOptions controls a GLSL compilation.
type GlslCompileOptions struct {
	// Debug keeps debug information and disables optimization.
	Debug  bool
	Macros []MacroDefinition
}

// CompilationResult holds the SPIR-V produced by a successful compilation.
type CompilationResult struct {
	SpirvBytes []byte
}

// Compiler compiles GLSL through a bridge. It is safe for concurrent use.
type Compiler struct {
	bridge *bridge.Bridge
	close  func(context.Context) error
}

// New wraps an existing bridge.
func New(b *bridge.Bridge) *Compiler {
	return &Compiler{bridge: b}
}

// Open loads configuration from configPath (optional) and starts the
// configured compiler backend.
func Open(ctx context.Context, configPath string, logger *zap.Logger) (*Compiler, error) {
	cfg, err := config.LoadBridgeConfig(configPath)
	if err != nil {
		return nil, err
	}
	svc, err := service.New(ctx, cfg, logger, interop.NewHeapAllocator())
	if err != nil {
		return nil, err
	}
	return &Compiler{bridge: svc.Bridge(), close: svc.Close}, nil
}

// Close stops the backend started by Open.
func (c *Compiler) Close(ctx context.Context) error {
	if c.close == nil {
		return nil
	}
	return c.close(ctx)
}

// CompileGlslToSpirv compiles source for stage. fileName only appears in
// diagnostics. A rejected shader returns a *CompilationError whose message
// starts with "Compilation failed: ".
func (c *Compiler) CompileGlslToSpirv(source, fileName string, stage ShaderStages, opts GlslCompileOptions) (*CompilationResult, error) {
	return c.compile(interop.TextViewOf(source), fileName, stage, opts)
}

// CompileGlslBytesToSpirv is CompileGlslToSpirv for source held in a byte slice.
func (c *Compiler) CompileGlslBytesToSpirv(source []byte, fileName string, stage ShaderStages, opts GlslCompileOptions) (*CompilationResult, error) {
	return c.compile(interop.TextViewOfBytes(source), fileName, stage, opts)
}

func (c *Compiler) compile(source interop.TextView, fileName string, stage ShaderStages, opts GlslCompileOptions) (*CompilationResult, error) {
	kind, err := stage.Kind()
	if err != nil {
		return nil, err
	}
	if fileName == "" {
		fileName = DefaultFileName
	}

	macros := make([]interop.MacroDefinition, len(opts.Macros))
	for i, m := range opts.Macros {
		macros[i] = interop.NewMacroDefinition(m.Name, m.Value)
	}

	info := interop.GlslCompileInfo{
		SourceText: source,
		Kind:       kind,
		FileName:   interop.TextViewOf(fileName),
		Debug:      interop.BoolOf(opts.Debug),
		Macros:     interop.ArrayOf(macros),
	}

	result := c.bridge.Compile(&info)
	defer c.bridge.Release(result)

	if !result.Succeeded.Bool() {
		return nil, &CompilationError{Message: "Compilation failed: " + result.Message()}
	}
	return &CompilationResult{SpirvBytes: bytes.Clone(result.Buffer(0).Bytes())}, nil
}

// HasSpirvHeader reports whether b starts with the SPIR-V magic number.
func HasSpirvHeader(b []byte) bool {
	return len(b) > 4 && binary.LittleEndian.Uint32(b) == nagaspirv.MagicNumber
}
