package domain

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding serializa o vetor no layout little-endian float64 usado
// pela coluna encoding. The layout is bit-compatible with galleries written
// by the legacy application, so stored rows keep round-tripping exactly.
func EncodeEmbedding(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("decode embedding: %d bytes is not a float64 vector", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}
