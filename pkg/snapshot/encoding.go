package snapshot

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding converts a float32 slice to a little-endian byte slice.
// A nil or empty slice encodes to nil.
func EncodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding converts a little-endian byte slice back to a float32
// slice. A nil or empty slice decodes to nil.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob length %d is not divisible by 4", ErrIncompatible, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
