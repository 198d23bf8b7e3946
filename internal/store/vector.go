package store

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32Blob packs a float32 vector into a fixed-width little-endian
// byte blob, the on-disk representation for embedding columns. This plays
// the role the teacher's CozoDB `<F32; N>` vector type plays natively;
// here dimensionality is implicit in blob length (4 bytes per component)
// rather than declared in a native column type.
func EncodeFloat32Blob(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeFloat32Blob is the inverse of EncodeFloat32Blob.
func DecodeFloat32Blob(buf []byte) []float32 {
	n := len(buf) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
