package semantic

import (
	"errors"
	"fmt"
	"math"
)

// DefaultDecay is the per-step decay applied from newest to oldest when
// collapsing a trajectory. The newest embedding gets weight 1 before
// normalization, the one before it DefaultDecay, and so on.
const DefaultDecay = 0.7

var (
	// ErrNoEmbeddings is returned when a trajectory is requested for an
	// empty sequence.
	ErrNoEmbeddings = errors.New("semantic: at least one embedding required")

	// ErrWeightsLength is returned when caller weights don't match the
	// number of embeddings.
	ErrWeightsLength = errors.New("semantic: weights length does not match embeddings length")

	// ErrDimensionMismatch is returned when embeddings in a trajectory
	// have different lengths.
	ErrDimensionMismatch = errors.New("semantic: embeddings have different dimensions")
)

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. It returns 0 when either vector has zero magnitude. Vectors of
// different length are compared over their common prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / math.Sqrt(normA*normB)
	// Rounding can push parallel vectors a hair past ±1.
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Tension is ΔS = 1 - CosineSimilarity(current, expected), in [0, 2]:
// 0 for identical direction, 1 for orthogonal, 2 for opposite.
func Tension(current, expected []float32) float64 {
	return 1 - CosineSimilarity(current, expected)
}

// DecayWeights returns n exponential-decay weights ordered oldest first and
// normalized to sum to 1.
func DecayWeights(n int, decay float64) []float64 {
	if n <= 0 {
		return nil
	}
	weights := make([]float64, n)
	var total float64
	for i := range weights {
		weights[i] = math.Pow(decay, float64(n-1-i))
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// TrajectoryEmbedding collapses embeddings (oldest first) into one vector
// that leans toward recent entries. With nil weights it uses
// DecayWeights(len(embeddings), DefaultDecay). Caller weights are applied
// as given, without renormalization.
func TrajectoryEmbedding(embeddings [][]float32, weights []float64) ([]float32, error) {
	return TrajectoryEmbeddingDecay(embeddings, weights, DefaultDecay)
}

// TrajectoryEmbeddingDecay is TrajectoryEmbedding with an explicit decay
// factor for the default weighting.
func TrajectoryEmbeddingDecay(embeddings [][]float32, weights []float64, decay float64) ([]float32, error) {
	n := len(embeddings)
	if n == 0 {
		return nil, ErrNoEmbeddings
	}
	if weights != nil && len(weights) != n {
		return nil, fmt.Errorf("%w: %d weights for %d embeddings", ErrWeightsLength, len(weights), n)
	}

	dim := len(embeddings[0])
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(e), dim)
		}
	}

	if n == 1 && weights == nil {
		out := make([]float32, dim)
		copy(out, embeddings[0])
		return out, nil
	}

	if weights == nil {
		weights = DecayWeights(n, decay)
	}

	sum := make([]float64, dim)
	for i, e := range embeddings {
		w := weights[i]
		for j, v := range e {
			sum[j] += float64(v) * w
		}
	}

	out := make([]float32, dim)
	for j, v := range sum {
		out[j] = float32(v)
	}
	return out, nil
}
