//go:build !shaderc

package shaderc

import "context"

// NativeAvailable reports whether the libshaderc backend is compiled in.
const NativeAvailable = false

// NativeFactory returns a factory that always fails with ErrNativeUnavailable.
func NativeFactory(string) Factory {
	return func(context.Context) (Compiler, error) {
		return nil, ErrNativeUnavailable
	}
}
