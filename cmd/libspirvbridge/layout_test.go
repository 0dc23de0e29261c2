package main

import "testing"

func TestLayoutMatchesHeader(t *testing.T) {
	for _, c := range layoutChecks() {
		if c.goVal != c.cVal {
			t.Errorf("%s: Go %d, C %d", c.field, c.goVal, c.cVal)
		}
	}
	if err := checkLayout(); err != nil {
		t.Errorf("checkLayout() = %v", err)
	}
}

func TestShaderKindsMatchHeader(t *testing.T) {
	for _, c := range kindChecks() {
		if c.goVal != c.cVal {
			t.Errorf("%s: Go %d, C %d", c.field, c.goVal, c.cVal)
		}
	}
	if n := len(kindChecks()); n != 14 {
		t.Errorf("header covers %d shader kinds, want 14", n)
	}
}

func TestLayoutError(t *testing.T) {
	err := &LayoutError{Field: "GlslCompileInfo", Go: 64, C: 56}
	want := "layout mismatch for GlslCompileInfo: Go 64, C 56"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
