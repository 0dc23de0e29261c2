//go:build shaderc

package shaderc

import (
	"context"
	"testing"

	"github.com/woxQAQ/spirv-bridge/internal/interop"
)

func TestNativeUnknownTargetEnv(t *testing.T) {
	n, err := NewNative("vulkan9.9")
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close(context.Background())

	res, err := n.CompileGlslToSpv(context.Background(), "#version 450\nvoid main(){}\n", interop.KindVertex, "t.vert", NewCompileOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusConfigurationError {
		t.Errorf("status = %s, want configuration error", res.Status)
	}
	if want := "unsupported target environment 'vulkan9.9'"; res.ErrorMessage != want {
		t.Errorf("ErrorMessage = %q, want %q", res.ErrorMessage, want)
	}
}

func TestNativeKnownTargetEnv(t *testing.T) {
	n, err := NewNative("")
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close(context.Background())

	opts := NewCompileOptions()
	opts.SetTargetEnv("vulkan1.1")
	res, err := n.CompileGlslToSpv(context.Background(), "#version 450\nvoid main(){}\n", interop.KindVertex, "t.vert", opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded() {
		t.Errorf("status = %s, message = %q", res.Status, res.ErrorMessage)
	}
}
