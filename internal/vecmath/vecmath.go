// Package vecmath provides small vector math helpers for embedding vectors.
package vecmath

import "math"

// CosineSimilarity returns the cosine similarity between a and b.
// Returns 0.0 when either vector has zero norm or the lengths differ,
// so callers never divide by zero. Embedding services produce
// non-negative components, so in practice the result lies in [0, 1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
