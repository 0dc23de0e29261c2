// Command libspirvbridge builds the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libspirvbridge.so ./cmd/libspirvbridge
//
// The backend is configured from the file named by SPIRV_BRIDGE_CONFIG and
// the usual SPIRV_BRIDGE_* overrides, on the first compile call.
package main

/*
#define SPIRVBRIDGE_TYPES_ONLY
#include "spirvbridge.h"
*/
import "C"

import (
	"context"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/bridge"
	"github.com/woxQAQ/spirv-bridge/internal/config"
	"github.com/woxQAQ/spirv-bridge/internal/interop"
	"github.com/woxQAQ/spirv-bridge/internal/logging"
	"github.com/woxQAQ/spirv-bridge/internal/service"
)

// ConfigEnv names the configuration file read on first use.
const ConfigEnv = config.EnvPrefix + "_CONFIG"

var (
	initOnce sync.Once
	shared   *bridge.Bridge
	initErr  error
)

func sharedBridge() (*bridge.Bridge, error) {
	initOnce.Do(func() {
		shared, initErr = start()
	})
	return shared, initErr
}

func start() (*bridge.Bridge, error) {
	if err := checkLayout(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadBridgeConfig(os.Getenv(ConfigEnv))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return nil, err
	}
	// The library lives until the host process exits, so the service is
	// never closed.
	svc, err := service.New(context.Background(), cfg, logger, interop.CAllocator{})
	if err != nil {
		logger.Error("Failed to start compilation service", zap.Error(err))
		return nil, err
	}
	return svc.Bridge(), nil
}

//export CompileGlslToSpirv
func CompileGlslToSpirv(info *C.GlslCompileInfo) *C.CompilationResult {
	b, err := sharedBridge()
	if err != nil {
		return (*C.CompilationResult)(unsafe.Pointer(interop.NewFailureResult(interop.CAllocator{}, err.Error())))
	}
	result := b.Compile((*interop.GlslCompileInfo)(unsafe.Pointer(info)))
	return (*C.CompilationResult)(unsafe.Pointer(result))
}

//export FreeResult
func FreeResult(result *C.CompilationResult) {
	(*interop.CompilationResult)(unsafe.Pointer(result)).Free(interop.CAllocator{})
}

func main() {}
