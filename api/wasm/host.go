//go:build !wasm

package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// HostFunctions defines the functions the host exports to plugins under
// HostModule.
type HostFunctions interface {
	// LogMessage forwards a plugin log line (level, ptr, length) to the
	// host logger.
	LogMessage(ctx context.Context, mod api.Module, level, ptr, length uint32)
}
