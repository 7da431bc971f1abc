// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedServer(t *testing.T, respond func(texts []string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		fmt.Fprint(w, respond(req.Texts))
	}))
}

func TestEmbedResponseShapes(t *testing.T) {
	shapes := map[string]func(texts []string) string{
		"bare array": func(texts []string) string {
			return vectorsJSON(texts, "")
		},
		"embeddings field": func(texts []string) string {
			return `{"embeddings":` + vectorsJSON(texts, "") + `}`
		},
		"openai data field": func(texts []string) string {
			out := `{"data":[`
			for i := range texts {
				if i > 0 {
					out += ","
				}
				out += fmt.Sprintf(`{"embedding":[%d,0.5]}`, i)
			}
			return out + `]}`
		},
	}

	for name, respond := range shapes {
		t.Run(name, func(t *testing.T) {
			srv := embedServer(t, respond)
			defer srv.Close()

			client := NewClient(Config{ServiceURL: srv.URL, ModelName: "all-minilm"})
			vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
			require.NoError(t, err)
			require.Len(t, vectors, 3)
			for _, v := range vectors {
				assert.Len(t, v, 2)
			}
		})
	}
}

func vectorsJSON(texts []string, _ string) string {
	out := "["
	for i := range texts {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("[%d,0.5]", i)
	}
	return out + "]"
}

func TestEmbedBatching(t *testing.T) {
	var batches [][]string
	srv := embedServer(t, func(texts []string) string {
		batches = append(batches, texts)
		return vectorsJSON(texts, "")
	})
	defer srv.Close()

	texts := make([]string, 70)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	client := NewClient(Config{ServiceURL: srv.URL, ModelName: "all-minilm"})
	vectors, err := client.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 70)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 32)
	assert.Len(t, batches[1], 32)
	assert.Len(t, batches[2], 6)
}

func TestEmbedRejectsNonUniformVectors(t *testing.T) {
	srv := embedServer(t, func(texts []string) string {
		return `[[0.1,0.2],[0.3]]`
	})
	defer srv.Close()

	client := NewClient(Config{ServiceURL: srv.URL, ModelName: "all-minilm"})
	_, err := client.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length")
}

func TestEmbedRejectsUnknownShape(t *testing.T) {
	srv := embedServer(t, func(texts []string) string {
		return `{"vectors":[[0.1]]}`
	})
	defer srv.Close()

	client := NewClient(Config{ServiceURL: srv.URL, ModelName: "all-minilm"})
	_, err := client.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestEmbedUnconfigured(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestCentroid(t *testing.T) {
	centroid := Centroid([][]float64{{1, 2}, {3, 4}})
	assert.Equal(t, []float64{2, 3}, centroid)
	assert.Nil(t, Centroid(nil))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float64{0.3, 0.7, 0.1}
	b := []float64{0.9, 0.2, 0.5}
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestPairwiseSimilarityVariance(t *testing.T) {
	// Identical vectors: all similarities 1, variance 0.
	same := [][]float64{{1, 1}, {2, 2}, {3, 3}}
	assert.InDelta(t, 0.0, PairwiseSimilarityVariance(same), 1e-9)

	mixed := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	v := PairwiseSimilarityVariance(mixed)
	assert.Greater(t, v, 0.0)
	assert.False(t, math.IsNaN(v))

	assert.Equal(t, 0.0, PairwiseSimilarityVariance([][]float64{{1}}))
}
