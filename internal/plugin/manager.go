package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/config"
	"github.com/woxQAQ/spirv-bridge/internal/interop"
	"github.com/woxQAQ/spirv-bridge/internal/shaderc"
	"github.com/woxQAQ/spirv-bridge/internal/wasm"
)

// Manager manages plugin lifecycle.
type Manager struct {
	cfg         *config.BridgeConfig
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new plugin manager.
func NewManager(
	ctx context.Context,
	cfg *config.BridgeConfig,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) (*Manager, error) {
	instanceMgr, err := wasm.NewInstanceManager(ctx, runtime, hostFuncs, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: instanceMgr,
		logger:      logger.With(zap.String("component", "plugin-manager")),
	}, nil
}

// LoadAll discovers and loads all plugins from configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("plugins already loaded")
	}

	m.logger.Info("Loading plugins",
		zap.Strings("paths", m.cfg.PluginPaths),
	)

	plugins, err := m.loader.DiscoverPlugins(ctx, m.cfg.PluginPaths)
	if err != nil {
		var noPlugins *NoPluginsFoundError
		if errors.As(err, &noPlugins) {
			m.logger.Warn("No plugins found in configured paths",
				zap.Strings("paths", m.cfg.PluginPaths),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	for _, p := range plugins {
		if err := m.registry.Register(p); err != nil {
			m.logger.Error("Failed to register plugin",
				zap.String("name", p.Name()),
				zap.Error(err),
			)
		}
	}

	m.loaded = true

	m.logger.Info("Plugins loaded successfully",
		zap.Int("count", m.registry.Count()),
	)

	return nil
}

// GetPlugin retrieves a plugin by name.
func (m *Manager) GetPlugin(name string) (*Plugin, error) {
	p, ok := m.registry.Get(name)
	if !ok {
		return nil, &PluginNotFoundError{PluginName: name}
	}
	return p, nil
}

// FindPluginForStage returns the first registered plugin that compiles kind.
func (m *Manager) FindPluginForStage(kind interop.ShaderKind) (*Plugin, error) {
	plugins := m.registry.LookupByStage(kind)
	if len(plugins) == 0 {
		return nil, fmt.Errorf("no plugin found for stage '%s'", kind)
	}
	return plugins[0], nil
}

// Instantiate creates a new instance of a plugin.
func (m *Manager) Instantiate(ctx context.Context, name string) (*wasm.Instance, error) {
	p, err := m.GetPlugin(name)
	if err != nil {
		return nil, err
	}
	return m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{ModuleName: p.Compiled.Name})
}

// CompilerFactory returns a factory for compilers backed by plugins. When
// compiler.plugin is set every call goes to that plugin; otherwise each call
// goes to the first plugin that supports the requested stage.
func (m *Manager) CompilerFactory() (shaderc.Factory, error) {
	if name := m.cfg.Compiler.Plugin; name != "" {
		p, err := m.GetPlugin(name)
		if err != nil {
			return nil, err
		}
		return wasm.NewCompilerFactory(m.instanceMgr, p.Compiled.Name, m.logger), nil
	}

	router := &stageRouter{manager: m}
	return func(context.Context) (shaderc.Compiler, error) {
		return router, nil
	}, nil
}

// Shutdown closes the runtime and every plugin instance.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down plugin manager")

	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("Plugin manager shutdown complete")
	return nil
}

// Registry returns the plugin registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether plugins have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// stageRouter picks a plugin per compilation from the requested stage.
type stageRouter struct {
	manager *Manager
}

func (r *stageRouter) CompileGlslToSpv(ctx context.Context, source string, kind shaderc.ShaderKind, inputFileName string, opts *shaderc.CompileOptions) (*shaderc.SpvCompilationResult, error) {
	p, err := r.manager.FindPluginForStage(kind)
	if err != nil {
		return &shaderc.SpvCompilationResult{
			Status:       shaderc.StatusInvalidStage,
			ErrorMessage: err.Error(),
		}, nil
	}

	compiler, err := wasm.NewCompilerFactory(r.manager.instanceMgr, p.Compiled.Name, r.manager.logger)(ctx)
	if err != nil {
		return nil, err
	}
	defer compiler.Close(ctx)

	return compiler.CompileGlslToSpv(ctx, source, kind, inputFileName, opts)
}

func (r *stageRouter) Close(context.Context) error {
	return nil
}
