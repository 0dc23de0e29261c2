// Package interop defines the fixed-layout types exchanged across the
// compilation boundary.
//
// Every type here has the same memory layout as its C counterpart in
// cmd/libspirvbridge/spirvbridge.h. Variable-length data is referenced
// through {count, pointer} pairs, never stored inline.
//
// Views passed into the bridge (TextView, MacroDefinition, Array) are
// borrowed: they are only valid for the duration of one call and must be
// copied if the data is needed afterwards. Buffers handed out inside a
// CompilationResult are owned by whoever holds the result, and are
// reclaimed through the Allocator that produced them.
package interop

import (
	"unsafe"
)

// Bool32 is a 4-byte boolean. It keeps struct layouts identical across
// C compilers, where sizeof(bool) is not pinned down.
type Bool32 uint32

// Bool converts to a Go bool.
func (b Bool32) Bool() bool { return b != 0 }

// BoolOf converts a Go bool to a Bool32.
func BoolOf(v bool) Bool32 {
	if v {
		return 1
	}
	return 0
}

// TextView is a borrowed, non-terminated run of bytes.
type TextView struct {
	Count uint32
	Data  *byte
}

// TextViewOf returns a view over s. The view aliases s and must not outlive it.
func TextViewOf(s string) TextView {
	if len(s) == 0 {
		return TextView{}
	}
	return TextView{Count: uint32(len(s)), Data: unsafe.StringData(s)}
}

// TextViewOfBytes returns a view over b. The view aliases b.
func TextViewOfBytes(b []byte) TextView {
	if len(b) == 0 {
		return TextView{}
	}
	return TextView{Count: uint32(len(b)), Data: &b[0]}
}

// String copies the viewed bytes into a new Go string.
func (v TextView) String() string {
	if v.Count == 0 || v.Data == nil {
		return ""
	}
	return string(unsafe.Slice(v.Data, v.Count))
}

// Array is a borrowed {count, pointer} sequence.
type Array[T any] struct {
	Count uint32
	Data  *T
}

// ArrayOf returns an array view over s. The view aliases s.
func ArrayOf[T any](s []T) Array[T] {
	if len(s) == 0 {
		return Array[T]{}
	}
	return Array[T]{Count: uint32(len(s)), Data: &s[0]}
}

// At returns a pointer to element i. The index is not checked: i must be
// less than Count.
func (a Array[T]) At(i uint32) *T {
	var zero T
	return (*T)(unsafe.Add(unsafe.Pointer(a.Data), uintptr(i)*unsafe.Sizeof(zero)))
}

// Slice returns the elements as a slice aliasing the array memory.
func (a Array[T]) Slice() []T {
	if a.Count == 0 || a.Data == nil {
		return nil
	}
	return unsafe.Slice(a.Data, a.Count)
}

// MacroDefinition is a borrowed preprocessor definition. A zero ValueLength
// means a flag-style macro with no value.
type MacroDefinition struct {
	NameLength  uint32
	Name        *byte
	ValueLength uint32
	Value       *byte
}

// NewMacroDefinition builds a view over name and value.
func NewMacroDefinition(name, value string) MacroDefinition {
	n, v := TextViewOf(name), TextViewOf(value)
	return MacroDefinition{
		NameLength:  n.Count,
		Name:        n.Data,
		ValueLength: v.Count,
		Value:       v.Data,
	}
}

// NameString copies the macro name.
func (m *MacroDefinition) NameString() string {
	return TextView{Count: m.NameLength, Data: m.Name}.String()
}

// ValueString copies the macro value; empty for flag macros.
func (m *MacroDefinition) ValueString() string {
	return TextView{Count: m.ValueLength, Data: m.Value}.String()
}

// HasValue reports whether the macro carries a value.
func (m *MacroDefinition) HasValue() bool {
	return m.ValueLength != 0
}

// GlslCompileInfo is a compile request. All views must stay valid while the
// request is being compiled; the bridge never retains it.
type GlslCompileInfo struct {
	SourceText TextView
	Kind       ShaderKind
	FileName   TextView
	Debug      Bool32
	Macros     Array[MacroDefinition]
}
