package rag

import (
	"fmt"
	"math"
	"strings"
)

// Distance selects the similarity metric used by a store.
type Distance string

const (
	// DistanceCosine ranks by cosine similarity in [-1, 1].
	DistanceCosine Distance = "cosine"

	// DistanceL2 ranks by Euclidean distance d, reported as 1/(1+d).
	DistanceL2 Distance = "l2"
)

// ParseDistance maps a configuration string onto a Distance. Empty selects cosine.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine", "cos":
		return DistanceCosine, nil
	case "l2", "euclid", "euclidean":
		return DistanceL2, nil
	}
	return "", fmt.Errorf("rag: unknown distance %q (want cosine or l2)", s)
}

// Similarity scores b against a under d. Callers guarantee equal lengths.
func (d Distance) Similarity(a, b []float32) float32 {
	if d == DistanceL2 {
		return l2Similarity(a, b)
	}
	return cosineSimilarity(a, b)
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func l2Similarity(a, b []float32) float32 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return float32(1 / (1 + math.Sqrt(sum)))
}
