package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmabi "github.com/woxQAQ/spirv-bridge/api/wasm"
)

// HostFunctionsImpl implements host functions for plugin modules.
type HostFunctionsImpl struct {
	logger *zap.Logger
}

var _ wasmabi.HostFunctions = (*HostFunctionsImpl)(nil)

// NewHostFunctions creates a new host functions implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// LogMessage is called by plugins to log messages.
// Signature: log_message(level, ptr, length)
func (h *HostFunctionsImpl) LogMessage(ctx context.Context, mod api.Module, level uint32, ptr uint32, length uint32) {
	msg, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from plugin memory",
			zap.Error(&HostFunctionError{
				FunctionName: wasmabi.HostLogMessage,
				Err:          &MemoryAccessError{Operation: "read", Address: ptr, Length: length, Err: errOutOfBounds},
			}),
		)
		return
	}

	logger := h.logger.With(zap.String("plugin", mod.Name()))
	switch level {
	case wasmabi.LogLevelDebug:
		logger.Debug(string(msg))
	case wasmabi.LogLevelInfo:
		logger.Info(string(msg))
	case wasmabi.LogLevelWarn:
		logger.Warn(string(msg))
	case wasmabi.LogLevelError:
		logger.Error(string(msg))
	default:
		logger.Info(string(msg))
	}
}

// instantiate registers the host module with r unless it already is.
func (h *HostFunctionsImpl) instantiate(ctx context.Context, r wazero.Runtime) error {
	if r.Module(wasmabi.HostModule) != nil {
		return nil
	}
	_, err := r.NewHostModuleBuilder(wasmabi.HostModule).
		NewFunctionBuilder().
		WithFunc(h.LogMessage).
		WithParameterNames("level", "ptr", "length").
		Export(wasmabi.HostLogMessage).
		Instantiate(ctx)
	return err
}
