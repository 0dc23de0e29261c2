package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/wasm"
)

// Loader handles loading plugins from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new plugin loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "plugin-loader")),
	}
}

// LoadPlugin loads a single plugin from a directory.
func (l *Loader) LoadPlugin(ctx context.Context, dir string) (*Plugin, error) {
	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading plugin",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Strings("stages", manifest.Stages),
	)

	// Compile Wasm module (uses internal caching)
	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, manifest.WasmPath())
	if err != nil {
		return nil, &PluginLoadError{PluginName: manifest.Name, Err: err}
	}
	if err := compiled.CheckExports(); err != nil {
		return nil, &PluginLoadError{PluginName: manifest.Name, Err: err}
	}

	l.logger.Info("Plugin loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return &Plugin{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}, nil
}

// DiscoverPlugins loads every plugin directory directly under paths.
// Directories that fail to load are logged and skipped.
func (l *Loader) DiscoverPlugins(ctx context.Context, paths []string) ([]*Plugin, error) {
	var plugins []*Plugin
	var failed int

	for _, basePath := range paths {
		l.logger.Debug("Scanning plugin directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Plugin path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			pluginDir := filepath.Join(basePath, entry.Name())

			p, err := l.LoadPlugin(ctx, pluginDir)
			if err != nil {
				l.logger.Error("Failed to load plugin",
					zap.String("dir", pluginDir),
					zap.Error(err),
				)
				failed++
				continue
			}

			plugins = append(plugins, p)
		}
	}

	if len(plugins) > 0 && failed > 0 {
		l.logger.Warn("Some plugins failed to load",
			zap.Int("loaded", len(plugins)),
			zap.Int("failed", failed),
		)
	}

	if len(plugins) == 0 {
		return nil, &NoPluginsFoundError{Paths: paths}
	}

	return plugins, nil
}
