package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	wasmabi "github.com/woxQAQ/spirv-bridge/api/wasm"
	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

// ManifestFile is the file name looked up in each plugin directory.
const ManifestFile = "manifest.yaml"

// Manifest represents the plugin manifest.yaml structure.
type Manifest struct {
	Name    string     `yaml:"name"`
	Version string     `yaml:"version"`
	ABI     int        `yaml:"abi"`
	Wasm    WasmConfig `yaml:"wasm"`
	Stages  []string   `yaml:"stages"`
	Author  string     `yaml:"author"`
	License string     `yaml:"license"`

	dir   string
	kinds []interop.ShaderKind
}

// WasmConfig names the plugin module.
type WasmConfig struct {
	File string `yaml:"file"`
}

// ParseManifest reads and validates manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields and resolves the stage names.
func (m *Manifest) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return &ManifestValidationError{Path: m.Path(), Field: field, Message: fmt.Sprintf(format, args...)}
	}

	if m.Name == "" {
		return invalid("name", "name is required")
	}
	if m.Version == "" {
		return invalid("version", "version is required")
	}
	if m.ABI != wasmabi.ABIVersion {
		return invalid("abi", "unsupported plugin ABI %d (want %d)", m.ABI, wasmabi.ABIVersion)
	}
	if m.Wasm.File == "" {
		return invalid("wasm.file", "wasm.file is required")
	}
	if len(m.Stages) == 0 {
		return invalid("stages", "at least one stage is required")
	}

	m.kinds = m.kinds[:0]
	for _, name := range m.Stages {
		kind, ok := interop.ParseShaderKind(name)
		if !ok {
			return invalid("stages", "unknown stage: %s", name)
		}
		m.kinds = append(m.kinds, kind)
	}

	if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
