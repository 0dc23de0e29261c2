package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Compiler backends.
const (
	BackendGlslc  = "glslc"
	BackendWasm   = "wasm"
	BackendNative = "native"
)

// EnvPrefix prefixes environment overrides, e.g. SPIRV_BRIDGE_COMPILER_BACKEND.
const EnvPrefix = "SPIRV_BRIDGE"

type BridgeConfig struct {
	LogLevel    string         `mapstructure:"log_level"`
	LogEncoding string         `mapstructure:"log_encoding"`
	PluginPaths []string       `mapstructure:"plugin_paths"`
	Compiler    CompilerConfig `mapstructure:"compiler"`
	Wasm        WasmConfig     `mapstructure:"wasm"`
}

// CompilerConfig selects and configures the GLSL compiler.
type CompilerConfig struct {
	// One of glslc, wasm or native.
	Backend string `mapstructure:"backend"`
	// glslc executable, looked up on PATH unless absolute.
	GlslcPath string `mapstructure:"glslc_path"`
	// Target environment such as vulkan1.1. Empty keeps the compiler default.
	TargetEnv string `mapstructure:"target_env"`
	// Plugin used by the wasm backend. Empty picks the first registered.
	Plugin string `mapstructure:"plugin"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Keep debug info in compiled plugins.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory. Empty disables the on-disk cache.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
}

// LoadBridgeConfig reads configPath if set, applies SPIRV_BRIDGE_* overrides
// and validates the result.
func LoadBridgeConfig(configPath string) (*BridgeConfig, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
	v.SetDefault("plugin_paths", []string{"./plugins"})

	v.SetDefault("compiler.backend", BackendGlslc)
	v.SetDefault("compiler.glslc_path", "glslc")
	v.SetDefault("compiler.target_env", "")
	v.SetDefault("compiler.plugin", "")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg BridgeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *BridgeConfig) Validate() error {
	switch c.Compiler.Backend {
	case BackendGlslc, BackendWasm, BackendNative:
	default:
		return fmt.Errorf("unknown compiler backend %q (must be one of: glslc, wasm, native)", c.Compiler.Backend)
	}
	switch c.LogEncoding {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log encoding %q (must be json or console)", c.LogEncoding)
	}
	return nil
}
