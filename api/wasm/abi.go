// Package wasm defines the ABI between the bridge and compiler plugins
// built as WebAssembly modules.
//
// A plugin implements the same compile/release contract as the native
// library, laid out for wasm32: every pointer and length is a 32-bit
// little-endian integer, and structs have no padding.
//
//	GlslCompileInfo  (32 bytes)
//	  0  SourceText.Count   4  SourceText.Data
//	  8  Kind
//	 12  FileName.Count    16  FileName.Data
//	 20  Debug
//	 24  Macros.Count      28  Macros.Data
//
//	MacroDefinition  (16 bytes)
//	  0  NameLength  4  Name  8  ValueLength  12  Value
//
//	CompilationResult (20 bytes)
//	  0  Succeeded
//	  4  DataBuffers.Count  8  DataBuffers.Data
//	 12  ErrorMessage.Length  16  ErrorMessage.Data
//
//	BinaryBuffer (8 bytes)
//	  0  Length  4  Data
package wasm

// ABIVersion is the plugin ABI revision described by this package.
const ABIVersion = 1

// Functions a plugin must export.
const (
	ExportMemory     = "memory"
	ExportMalloc     = "malloc"
	ExportFree       = "free"
	ExportCompile    = "compile_glsl_to_spirv"
	ExportFreeResult = "free_result"

	// ExportInitialize is run after instantiation when present (WASI reactors).
	ExportInitialize = "_initialize"
)

// RequiredExports lists the functions checked before a plugin is used.
var RequiredExports = []string{ExportMalloc, ExportFree, ExportCompile, ExportFreeResult}

// Host module offered to plugins.
const (
	HostModule     = "host"
	HostLogMessage = "log_message"
)

// Log levels accepted by host.log_message.
const (
	LogLevelDebug uint32 = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Struct sizes in guest memory.
const (
	CompileInfoSize = 32
	MacroSize       = 16
	ResultSize      = 20
	BufferSize      = 8
)

// Field offsets in guest memory.
const (
	InfoSourceCount  = 0
	InfoSourceData   = 4
	InfoKind         = 8
	InfoFileCount    = 12
	InfoFileData     = 16
	InfoDebug        = 20
	InfoMacrosCount  = 24
	InfoMacrosData   = 28
	MacroNameLength  = 0
	MacroName        = 4
	MacroValueLength = 8
	MacroValue       = 12
	ResultSucceeded  = 0
	ResultBuffersLen = 4
	ResultBuffers    = 8
	ResultErrorLen   = 12
	ResultErrorData  = 16
	BufferLength     = 0
	BufferData       = 4
)
