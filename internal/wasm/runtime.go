package wasm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Runtime owns the wazero runtime shared by every plugin compiler of a
// service, the plugin modules compiled on it and the instances still live.
type Runtime struct {
	engine wazero.Runtime
	// nil unless RuntimeConfig.CacheDir is set.
	cache  wazero.CompilationCache
	config *RuntimeConfig
	logger *zap.Logger

	mu        sync.Mutex
	modules   map[string]*CompiledModule
	instances map[string]*Instance
	lastID    uint64
	closed    bool
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limit per plugin instance, in 64KiB pages. Zero keeps the
	// wazero default.
	MemoryPages uint32

	// Keep DWARF debug info for plugin stack traces.
	DebugEnabled bool

	// Directory for wazero's on-disk compilation cache. Empty disables it.
	CacheDir string

	// Maximum number of live instances. Zero means unbounded.
	MaxInstances int
}

// DefaultRuntimeConfig returns the configuration used when none is given.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:  256, // 16MiB
		MaxInstances: 100,
	}
}

// CompiledModule is a plugin module compiled on the runtime.
type CompiledModule struct {
	Module wazero.CompiledModule

	Name       string
	Source     string // file path, or the name given for in-memory modules
	SizeBytes  int64
	CompiledAt time.Time
}

// NewRuntime creates a wazero runtime with WASI preview1 available to
// plugins. A nil config selects DefaultRuntimeConfig.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	rc := wazero.NewRuntimeConfig().WithDebugInfoEnabled(config.DebugEnabled)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}

	var cache wazero.CompilationCache
	if config.CacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", config.CacheDir, err)
		}
		cache = c
		rc = rc.WithCompilationCache(cache)
	}

	engine := wazero.NewRuntimeWithConfig(ctx, rc)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, engine); err != nil {
		_ = engine.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	r := &Runtime{
		engine:    engine,
		cache:     cache,
		config:    config,
		logger:    logger.With(zap.String("component", "wasm-runtime")),
		modules:   make(map[string]*CompiledModule),
		instances: make(map[string]*Instance),
	}

	r.logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
	)
	return r, nil
}

// Module returns a compiled module by name.
func (r *Runtime) Module(name string) (*CompiledModule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[name]
	return m, ok
}

func (r *Runtime) addModule(m *CompiledModule) {
	r.mu.Lock()
	r.modules[m.Name] = m
	r.mu.Unlock()
}

// Instance returns a live instance by ID.
func (r *Runtime) Instance(id string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// LiveInstances returns the number of instances not yet closed.
func (r *Runtime) LiveInstances() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

func (r *Runtime) track(inst *Instance) {
	r.mu.Lock()
	r.instances[inst.ID] = inst
	r.mu.Unlock()
}

func (r *Runtime) untrack(id string) {
	r.mu.Lock()
	delete(r.instances, id)
	r.mu.Unlock()
}

// newInstanceID returns a name that is unique within the wazero runtime.
func (r *Runtime) newInstanceID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	return fmt.Sprintf("inst-%d", r.lastID)
}

// Closed reports whether Close has been called.
func (r *Runtime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close closes every live instance, then the runtime and its compilation
// cache. Later calls return nil.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	live := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		live = append(live, inst)
	}
	r.mu.Unlock()

	r.logger.Info("Shutting down Wasm runtime", zap.Int("live_instances", len(live)))

	for _, inst := range live {
		if err := inst.Close(ctx); err != nil {
			r.logger.Warn("Failed to close instance",
				zap.String("instance_id", inst.ID),
				zap.Error(err),
			)
		}
	}

	err := r.engine.Close(ctx)
	if r.cache != nil {
		if cacheErr := r.cache.Close(ctx); cacheErr != nil && err == nil {
			err = cacheErr
		}
	}
	return err
}
