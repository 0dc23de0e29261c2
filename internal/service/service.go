// Package service wires configuration, the selected compiler backend and
// the bridge together.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/bridge"
	"github.com/woxQAQ/spirv-bridge/internal/config"
	"github.com/woxQAQ/spirv-bridge/internal/interop"
	"github.com/woxQAQ/spirv-bridge/internal/plugin"
	"github.com/woxQAQ/spirv-bridge/internal/shaderc"
	"github.com/woxQAQ/spirv-bridge/internal/wasm"
)

type Service struct {
	cfg     *config.BridgeConfig
	logger  *zap.Logger
	bridge  *bridge.Bridge
	plugins *plugin.Manager
}

// New builds the compiler backend named by cfg.Compiler.Backend and a bridge
// that allocates results from alloc.
func New(ctx context.Context, cfg *config.BridgeConfig, logger *zap.Logger, alloc interop.Allocator) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "service")),
	}

	var factory shaderc.Factory
	switch cfg.Compiler.Backend {
	case config.BackendGlslc:
		factory = shaderc.GlslcFactory(shaderc.NewGlslc(cfg.Compiler.GlslcPath, cfg.Compiler.TargetEnv, logger))
	case config.BackendNative:
		if !shaderc.NativeAvailable {
			return nil, shaderc.ErrNativeUnavailable
		}
		factory = shaderc.NativeFactory(cfg.Compiler.TargetEnv)
	case config.BackendWasm:
		f, err := s.startPlugins(ctx, logger)
		if err != nil {
			return nil, err
		}
		factory = f
	default:
		return nil, fmt.Errorf("unknown compiler backend %q", cfg.Compiler.Backend)
	}

	s.bridge = bridge.New(factory, alloc, logger)

	s.logger.Info("Compilation service initialized",
		zap.String("backend", cfg.Compiler.Backend),
		zap.String("target_env", cfg.Compiler.TargetEnv),
	)
	return s, nil
}

func (s *Service) startPlugins(ctx context.Context, logger *zap.Logger) (shaderc.Factory, error) {
	runtime, err := wasm.NewRuntime(ctx, logger, &wasm.RuntimeConfig{
		MemoryPages:  s.cfg.Wasm.MemoryPages,
		DebugEnabled: s.cfg.Wasm.Debug,
		CacheDir:     s.cfg.Wasm.CacheDir,
		MaxInstances: s.cfg.Wasm.MaxInstances,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	manager, err := plugin.NewManager(ctx, s.cfg, runtime, wasm.NewHostFunctions(logger), logger)
	if err != nil {
		runtime.Close(ctx)
		return nil, err
	}
	if err := manager.LoadAll(ctx); err != nil {
		manager.Shutdown(ctx)
		return nil, err
	}
	factory, err := manager.CompilerFactory()
	if err != nil {
		manager.Shutdown(ctx)
		return nil, err
	}

	s.plugins = manager
	return factory, nil
}

// Bridge returns the compile/release boundary.
func (s *Service) Bridge() *bridge.Bridge {
	return s.bridge
}

// Plugins returns the plugin manager, nil unless the wasm backend is in use.
func (s *Service) Plugins() *plugin.Manager {
	return s.plugins
}

// Close gracefully shuts down the service.
func (s *Service) Close(ctx context.Context) error {
	if s.plugins == nil {
		return nil
	}
	s.logger.Info("Shutting down compilation service")
	return s.plugins.Shutdown(ctx)
}
