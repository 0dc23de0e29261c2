package shaderc

import "encoding/binary"

// WordsFromBytes decodes little-endian SPIR-V bytes into words.
func WordsFromBytes(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, &OutputError{Length: len(b)}
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}
