package embedding

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Static maps known texts to fixed vectors. A text that is not an exact
// key takes the vector of the longest key it contains; anything else gets
// the zero vector. It also counts calls, which tests use to check caching.
type Static struct {
	dims    int
	vectors map[string][]float32
	keys    []string

	mu    sync.Mutex
	calls int
}

// NewStatic returns a Static embedder of the given dimensions.
func NewStatic(dims int, vectors map[string][]float32) *Static {
	keys := make([]string, 0, len(vectors))
	for k := range vectors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Static{dims: dims, vectors: vectors, keys: keys}
}

// Dimensions returns the vector length.
func (s *Static) Dimensions() int { return s.dims }

// Calls returns how many texts have been embedded.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Embed returns the vector registered for text.
func (s *Static) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if v, ok := s.vectors[text]; ok {
		return clone(v), nil
	}
	for _, k := range s.keys {
		if strings.Contains(text, k) {
			return clone(s.vectors[k]), nil
		}
	}
	return make([]float32, s.dims), nil
}

// EmbedBatch embeds each text in order.
func (s *Static) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := s.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}
