package domain

import "math"

// Cosine computes dot(a, b) / (|a| * |b|). It returns 0 when either vector has
// zero norm or the lengths differ, and clamps rounding noise into [-1, 1].
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	s := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
