// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package embeddings talks to the external embedding service and
// provides the vector math the drift engine needs.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// BatchSize is the number of texts sent per service call.
const BatchSize = 32

const defaultTimeout = 30 * time.Second

// Config holds configuration for the embedding client.
type Config struct {
	ServiceURL string
	ModelName  string
	Timeout    time.Duration // Default: 30s
}

// Client posts texts to the embedding service and returns one vector
// per text.
type Client struct {
	serviceURL string
	modelName  string
	httpClient *http.Client
}

// NewClient creates an embedding client. ServiceURL may be empty, in
// which case Embed fails and callers degrade gracefully.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		serviceURL: config.ServiceURL,
		modelName:  config.ModelName,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// ModelName returns the configured embedding model name.
func (c *Client) ModelName() string { return c.modelName }

// Embed returns one vector per input text, preserving order. Texts are
// sent in batches of BatchSize. All vectors from one response must
// share the same length or the response is rejected.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if c.serviceURL == "" {
		return nil, fmt.Errorf("embedding service URL not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += BatchSize {
		end := start + BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(map[string]any{
		"texts": texts,
		"model": c.modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	vectors, err := parseVectors(respBody)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// parseVectors accepts the three response shapes the service contract
// allows: a bare array of vectors, {"embeddings": [...]}, or
// {"data": [{"embedding": [...]}, ...]}.
func parseVectors(body []byte) ([][]float64, error) {
	parsed := gjson.ParseBytes(body)

	var raw gjson.Result
	switch {
	case parsed.IsArray():
		raw = parsed
	case parsed.Get("embeddings").IsArray():
		raw = parsed.Get("embeddings")
	case parsed.Get("data").IsArray():
		var vectors [][]float64
		for _, item := range parsed.Get("data").Array() {
			vec, err := parseVector(item.Get("embedding"))
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, vec)
		}
		return checkUniform(vectors)
	default:
		return nil, fmt.Errorf("unrecognized embedding response shape")
	}

	var vectors [][]float64
	for _, item := range raw.Array() {
		vec, err := parseVector(item)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return checkUniform(vectors)
}

func parseVector(result gjson.Result) ([]float64, error) {
	if !result.IsArray() {
		return nil, fmt.Errorf("embedding entry is not an array")
	}
	items := result.Array()
	vec := make([]float64, len(items))
	for i, item := range items {
		vec[i] = item.Float()
	}
	return vec, nil
}

func checkUniform(vectors [][]float64) ([][]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding response contains no vectors")
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding vector %d has length %d, expected %d", i, len(v), dim)
		}
	}
	return vectors, nil
}
