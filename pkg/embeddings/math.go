// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package embeddings

import "math"

// Centroid returns the arithmetic mean of the vectors. Returns nil for
// an empty input.
func Centroid(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	centroid := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			centroid[i] += v[i]
		}
	}
	for i := range centroid {
		centroid[i] /= float64(len(vectors))
	}
	return centroid
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// PairwiseSimilarityVariance returns the population variance of cosine
// similarities over all unordered vector pairs. Zero when fewer than
// two vectors.
func PairwiseSimilarityVariance(vectors [][]float64) float64 {
	if len(vectors) < 2 {
		return 0
	}

	var sims []float64
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sims = append(sims, CosineSimilarity(vectors[i], vectors[j]))
		}
	}

	var mean float64
	for _, s := range sims {
		mean += s
	}
	mean /= float64(len(sims))

	var variance float64
	for _, s := range sims {
		d := s - mean
		variance += d * d
	}
	return variance / float64(len(sims))
}
