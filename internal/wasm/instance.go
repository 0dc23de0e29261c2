package wasm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmabi "github.com/woxQAQ/spirv-bridge/api/wasm"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl

	// slots bounds the number of live instances to RuntimeConfig.MaxInstances.
	slots chan struct{}
}

// NewInstanceManager creates a new instance manager and registers the host
// module with the runtime.
func NewInstanceManager(ctx context.Context, runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) (*InstanceManager, error) {
	if err := hostFuncs.instantiate(ctx, runtime.engine); err != nil {
		return nil, fmt.Errorf("failed to export host functions: %w", err)
	}

	m := &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
	if max := runtime.config.MaxInstances; max > 0 {
		m.slots = make(chan struct{}, max)
	}
	return m, nil
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string
}

// Instance represents an instantiated plugin module.
type Instance struct {
	// wazero module instance.
	module api.Module

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt time.Time

	// Exported functions (cached for performance).
	exports map[string]api.Function

	release   func()
	closeOnce sync.Once
	closeErr  error
}

// Instantiate creates a new instance from a compiled module. It blocks while
// MaxInstances instances are live.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.Module(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = m.runtime.newInstanceID()
	}

	if m.slots != nil {
		select {
		case m.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	release := func() {
		if m.slots != nil {
			<-m.slots
		}
	}

	m.logger.Debug("Instantiating plugin module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions(wasmabi.ExportInitialize)

	module, err := m.runtime.engine.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		release()
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	instance := &Instance{
		module:    module,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now(),
		exports:   cacheExportedFunctions(module),
	}
	instance.release = func() {
		m.runtime.untrack(instanceID)
		release()
	}
	m.runtime.track(instance)

	return instance, nil
}

// Call invokes an exported ABI function.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := i.exports[name]
	if !ok {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, &GuestCallError{FunctionName: name, Err: err}
	}
	return res, nil
}

// Memory returns a helper over the instance memory.
func (i *Instance) Memory() *Memory {
	return NewMemory(i.module)
}

// Close closes the instance and releases its slot. Safe to call more than once.
func (i *Instance) Close(ctx context.Context) error {
	i.closeOnce.Do(func() {
		i.closeErr = i.module.Close(ctx)
		i.release()
	})
	return i.closeErr
}

// cacheExportedFunctions caches references to the ABI functions the module exports.
func cacheExportedFunctions(module api.Module) map[string]api.Function {
	exports := make(map[string]api.Function)
	for _, name := range wasmabi.RequiredExports {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}
	return exports
}
