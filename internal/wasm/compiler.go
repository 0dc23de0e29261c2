package wasm

import (
	"context"
	"encoding/binary"
	"errors"

	"go.uber.org/zap"

	wasmabi "github.com/woxQAQ/spirv-bridge/api/wasm"
	"github.com/woxQAQ/spirv-bridge/internal/shaderc"
)

// maxGuestMessage caps how much of a plugin diagnostic is copied out.
const maxGuestMessage = 1 << 20

// PluginCompiler runs compilations inside one plugin instance.
type PluginCompiler struct {
	instance *Instance
	logger   *zap.Logger
}

var _ shaderc.Compiler = (*PluginCompiler)(nil)

// NewCompilerFactory returns a factory that instantiates moduleName for every
// compiler it creates. The module must already be loaded.
func NewCompilerFactory(manager *InstanceManager, moduleName string, logger *zap.Logger) shaderc.Factory {
	logger = logger.With(zap.String("component", "wasm-compiler"), zap.String("module", moduleName))
	return func(ctx context.Context) (shaderc.Compiler, error) {
		inst, err := manager.Instantiate(ctx, &InstanceConfig{ModuleName: moduleName})
		if err != nil {
			return nil, err
		}
		return &PluginCompiler{instance: inst, logger: logger}, nil
	}
}

// CompileGlslToSpv marshals the request into guest memory, calls the
// plugin's compile export and copies the result back out.
func (c *PluginCompiler) CompileGlslToSpv(ctx context.Context, source string, kind shaderc.ShaderKind, inputFileName string, opts *shaderc.CompileOptions) (*shaderc.SpvCompilationResult, error) {
	if opts == nil {
		opts = shaderc.NewCompileOptions()
	}
	mem := c.instance.Memory()

	arena := newRequestArena(source, kind, inputFileName, opts)
	base, err := mem.Alloc(ctx, uint32(len(arena.buf)))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := mem.Free(ctx, base); err != nil {
			c.logger.Warn("Failed to free request arena", zap.Error(err))
		}
	}()

	if err := mem.Write(base, arena.relocate(base)); err != nil {
		return nil, err
	}

	res, err := c.instance.Call(ctx, wasmabi.ExportCompile, uint64(base))
	if err != nil {
		return nil, err
	}
	resultPtr := uint32(res[0])
	if resultPtr == 0 {
		return &shaderc.SpvCompilationResult{Status: shaderc.StatusNullResultObject}, nil
	}
	defer func() {
		if _, err := c.instance.Call(ctx, wasmabi.ExportFreeResult, uint64(resultPtr)); err != nil {
			c.logger.Warn("Failed to release plugin result", zap.Error(err))
		}
	}()

	return decodeResult(mem, resultPtr)
}

// Close closes the plugin instance.
func (c *PluginCompiler) Close(ctx context.Context) error {
	return c.instance.Close(ctx)
}

// requestArena is a GlslCompileInfo, its macro array and every string it
// points to, packed into one block. Pointers are stored relative to the
// block start until relocate fixes them up.
type requestArena struct {
	buf      []byte
	pointers []uint32 // offsets of pointer fields
}

func newRequestArena(source string, kind shaderc.ShaderKind, fileName string, opts *shaderc.CompileOptions) *requestArena {
	a := &requestArena{}
	macrosAt := uint32(wasmabi.CompileInfoSize)
	a.buf = make([]byte, wasmabi.CompileInfoSize+wasmabi.MacroSize*len(opts.Macros))

	a.putText(wasmabi.InfoSourceCount, wasmabi.InfoSourceData, source)
	a.putU32(wasmabi.InfoKind, uint32(kind))
	a.putText(wasmabi.InfoFileCount, wasmabi.InfoFileData, fileName)
	if opts.GenerateDebugInfo {
		a.putU32(wasmabi.InfoDebug, 1)
	}
	a.putU32(wasmabi.InfoMacrosCount, uint32(len(opts.Macros)))
	if len(opts.Macros) > 0 {
		a.putPtr(wasmabi.InfoMacrosData, macrosAt)
	}

	for i, m := range opts.Macros {
		at := macrosAt + uint32(i*wasmabi.MacroSize)
		a.putText(at+wasmabi.MacroNameLength, at+wasmabi.MacroName, m.Name)
		if m.HasValue {
			a.putText(at+wasmabi.MacroValueLength, at+wasmabi.MacroValue, m.Value)
		}
	}
	return a
}

func (a *requestArena) putU32(off, v uint32) {
	binary.LittleEndian.PutUint32(a.buf[off:], v)
}

func (a *requestArena) putPtr(off, target uint32) {
	a.putU32(off, target)
	a.pointers = append(a.pointers, off)
}

// putText appends s to the arena and records its count and data fields.
// An empty string leaves both zero.
func (a *requestArena) putText(countOff, dataOff uint32, s string) {
	if s == "" {
		return
	}
	at := uint32(len(a.buf))
	a.buf = append(a.buf, s...)
	a.putU32(countOff, uint32(len(s)))
	a.putPtr(dataOff, at)
}

// relocate rewrites every recorded pointer to be absolute for base.
func (a *requestArena) relocate(base uint32) []byte {
	for _, off := range a.pointers {
		rel := binary.LittleEndian.Uint32(a.buf[off:])
		binary.LittleEndian.PutUint32(a.buf[off:], base+rel)
	}
	return a.buf
}

var errMissingBuffers = errors.New("plugin reported success without data buffers")

func decodeResult(mem *Memory, ptr uint32) (*shaderc.SpvCompilationResult, error) {
	header, ok := mem.ReadBytes(ptr, wasmabi.ResultSize)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read", Address: ptr, Length: wasmabi.ResultSize, Err: errOutOfBounds}
	}
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(header[off:]) }

	if u32(wasmabi.ResultSucceeded) == 0 {
		msgLen := min(u32(wasmabi.ResultErrorLen), maxGuestMessage)
		msg, ok := mem.ReadBytes(u32(wasmabi.ResultErrorData), msgLen)
		if !ok {
			return nil, &MemoryAccessError{Operation: "read", Address: u32(wasmabi.ResultErrorData), Length: msgLen, Err: errOutOfBounds}
		}
		return &shaderc.SpvCompilationResult{
			Status:       shaderc.StatusCompilationError,
			ErrorMessage: string(msg),
		}, nil
	}

	if u32(wasmabi.ResultBuffersLen) == 0 {
		return nil, errMissingBuffers
	}

	// The module is the first buffer; any others are ignored.
	first := u32(wasmabi.ResultBuffers)
	length, err := mem.ReadUint32(first + wasmabi.BufferLength)
	if err != nil {
		return nil, err
	}
	data, err := mem.ReadUint32(first + wasmabi.BufferData)
	if err != nil {
		return nil, err
	}
	spirv, ok := mem.ReadBytes(data, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read", Address: data, Length: length, Err: errOutOfBounds}
	}

	words, err := shaderc.WordsFromBytes(spirv)
	if err != nil {
		return nil, err
	}
	return &shaderc.SpvCompilationResult{Status: shaderc.StatusSuccess, Words: words}, nil
}
