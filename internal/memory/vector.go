package memory

import (
	"encoding/binary"
	"math"
	"sort"
)

// encodeVector stores a vector as little-endian float32s. A nil vector is
// stored as NULL.
func encodeVector(v []float32) any {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Trailing bytes that do not
// form a whole float are ignored.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// sortScored orders by similarity, most similar first. Ties keep the
// store's newest-first order.
func sortScored(nodes []ScoredNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Similarity > nodes[j].Similarity
	})
}
