package spirv

// ShaderDescription describes one shader as either SPIR-V or GLSL source.
type ShaderDescription struct {
	Stage       ShaderStages
	ShaderBytes []byte
	EntryPoint  string
	Debug       bool
}

// EnsureSpirv returns desc.ShaderBytes unchanged when they are already
// SPIR-V, and otherwise compiles them as GLSL with desc.Debug and no macros.
func (c *Compiler) EnsureSpirv(desc ShaderDescription) ([]byte, error) {
	if HasSpirvHeader(desc.ShaderBytes) {
		return desc.ShaderBytes, nil
	}
	res, err := c.CompileGlslBytesToSpirv(desc.ShaderBytes, "", desc.Stage, GlslCompileOptions{Debug: desc.Debug})
	if err != nil {
		return nil, err
	}
	return res.SpirvBytes, nil
}

// EnsureSpirvPair applies EnsureSpirv to a vertex and fragment shader and
// returns both descriptions with SPIR-V bytes.
func (c *Compiler) EnsureSpirvPair(vertex, fragment ShaderDescription) (ShaderDescription, ShaderDescription, error) {
	vs, err := c.EnsureSpirv(vertex)
	if err != nil {
		return ShaderDescription{}, ShaderDescription{}, err
	}
	fs, err := c.EnsureSpirv(fragment)
	if err != nil {
		return ShaderDescription{}, ShaderDescription{}, err
	}
	vertex.ShaderBytes = vs
	fragment.ShaderBytes = fs
	return vertex, fragment, nil
}
