// Package plugin discovers GLSL compiler plugins: directories holding a
// manifest.yaml and the WebAssembly module it names.
package plugin

import (
	"slices"
	"time"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
	"github.com/woxQAQ/spirv-bridge/internal/wasm"
)

// Plugin represents a loaded plugin with its manifest and compiled Wasm module.
type Plugin struct {
	// Manifest is the parsed plugin metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the plugin was loaded
	LoadedAt time.Time
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return p.Manifest.Name
}

// Version returns the plugin version.
func (p *Plugin) Version() string {
	return p.Manifest.Version
}

// Stages returns the shader kinds the plugin compiles.
func (p *Plugin) Stages() []interop.ShaderKind {
	return p.Manifest.kinds
}

// Supports reports whether the plugin compiles kind.
func (p *Plugin) Supports(kind interop.ShaderKind) bool {
	return slices.Contains(p.Manifest.kinds, kind)
}
