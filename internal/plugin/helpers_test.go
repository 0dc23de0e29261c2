package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/spirv-bridge/internal/wasm"
	"github.com/woxQAQ/spirv-bridge/internal/wasm/wasmtest"
)

const validManifest = `name: glslang
version: 1.0.0
abi: 1
wasm:
  file: glslang.wasm
stages: [vertex, fragment]
author: Shader Tools
license: BSD-3-Clause
`

// writePlugin creates base/dir with the given manifest and, unless module is
// nil, the module file glslang.wasm.
func writePlugin(t *testing.T, base, dir, manifest string, module []byte) string {
	t.Helper()
	pluginDir := filepath.Join(base, dir)
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if module != nil {
		if err := os.WriteFile(filepath.Join(pluginDir, "glslang.wasm"), module, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return pluginDir
}

func successModule() []byte {
	return wasmtest.Plugin{Outcome: wasmtest.Success, Payload: wasmtest.SpirvHeader}.Bytes()
}

func newTestRuntime(t *testing.T) *wasm.Runtime {
	t.Helper()
	runtime, err := wasm.NewRuntime(context.Background(), zaptest.NewLogger(t), wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(func() { runtime.Close(context.Background()) })
	return runtime
}
