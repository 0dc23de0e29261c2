package wasm

import (
	"fmt"
)

// CompilationError occurs when a plugin module fails to compile
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile plugin module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when module instantiation fails.
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not in cache.
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// FunctionNotFoundError occurs when a plugin does not export an ABI function.
type FunctionNotFoundError struct {
	ModuleName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in module '%s'",
		e.FunctionName, e.ModuleName)
}

// MemoryAccessError occurs when a guest memory access is out of bounds or
// the guest allocator fails.
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d): %v",
		e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

// GuestCallError occurs when a call into the plugin traps.
type GuestCallError struct {
	FunctionName string
	Err          error
}

func (e *GuestCallError) Error() string {
	return fmt.Sprintf("call to '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *GuestCallError) Unwrap() error {
	return e.Err
}

// HostFunctionError occurs when host function execution fails.
type HostFunctionError struct {
	FunctionName string
	Err          error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("host function '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HostFunctionError) Unwrap() error {
	return e.Err
}
