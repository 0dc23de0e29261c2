package wasm

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	wasmabi "github.com/woxQAQ/spirv-bridge/api/wasm"
)

// ModuleLoader handles loading and compiling plugin modules.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewModuleLoader creates a new module loader.
func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// ModuleSource represents a source for Wasm bytecode.
type ModuleSource interface {
	// Bytes returns the Wasm bytecode.
	Bytes() ([]byte, error)

	// Name returns a name/identifier for this module.
	Name() string
}

// FileModuleSource loads Wasm from a file.
type FileModuleSource struct {
	Path string
}

// Bytes reads the Wasm file.
func (f *FileModuleSource) Bytes() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Name returns the file path as the module name.
func (f *FileModuleSource) Name() string {
	return f.Path
}

// MemoryModuleSource loads Wasm from memory.
type MemoryModuleSource struct {
	ModuleName string
	Data       []byte
}

// Bytes returns the Wasm bytecode.
func (m *MemoryModuleSource) Bytes() ([]byte, error) {
	return m.Data, nil
}

// Name returns the module name.
func (m *MemoryModuleSource) Name() string {
	return m.ModuleName
}

// LoadModule compiles a module from source, or returns the cached copy.
func (l *ModuleLoader) LoadModule(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	if cached, ok := l.runtime.Module(source.Name()); ok {
		l.logger.Debug("Module cache hit",
			zap.String("module", source.Name()),
		)
		return cached, nil
	}

	wasmBytes, err := source.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", source.Name(), err)
	}

	l.logger.Info("Compiling plugin module",
		zap.String("module", source.Name()),
		zap.Int("size_bytes", len(wasmBytes)),
	)

	startTime := time.Now()

	// CompileModule decodes and validates the binary; with a compilation
	// cache configured this is only expensive the first time.
	compiled, err := l.runtime.engine.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompilationError{
			ModuleName: source.Name(),
			Err:        err,
		}
	}

	compiledModule := &CompiledModule{
		Module:     compiled,
		Name:       source.Name(),
		Source:     source.Name(),
		SizeBytes:  int64(len(wasmBytes)),
		CompiledAt: time.Now(),
	}

	l.runtime.addModule(compiledModule)

	l.logger.Info("Module compiled successfully",
		zap.String("module", source.Name()),
		zap.Duration("duration", time.Since(startTime)),
	)

	return compiledModule, nil
}

// LoadModuleFromFile is a convenience function for loading from a file path.
func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, path string) (*CompiledModule, error) {
	return l.LoadModule(ctx, &FileModuleSource{Path: path})
}

// LoadModuleFromMemory loads from a byte slice.
func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	return l.LoadModule(ctx, &MemoryModuleSource{ModuleName: name, Data: data})
}

// CheckExports verifies the module exports every function of the plugin ABI
// and a memory.
func (m *CompiledModule) CheckExports() error {
	funcs := m.Module.ExportedFunctions()
	for _, name := range wasmabi.RequiredExports {
		if _, ok := funcs[name]; !ok {
			return &FunctionNotFoundError{ModuleName: m.Name, FunctionName: name}
		}
	}
	if _, ok := m.Module.ExportedMemories()[wasmabi.ExportMemory]; !ok {
		return &FunctionNotFoundError{ModuleName: m.Name, FunctionName: wasmabi.ExportMemory}
	}
	return nil
}
