// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package transport is the single shared HTTP client every probe
// adapter uses to talk to the LLM endpoint under test. It renders the
// configured payload template, applies timeout and bounded retries, and
// extracts the completion text from the JSON reply.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// Default client configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	initialBackoff     = 500 * time.Millisecond
	maxBackoffInterval = 8 * time.Second
)

// responsePaths are tried in order when extracting the completion text
// from the JSON reply.
var responsePaths = []string{
	"choices.0.message.content",
	"choices.0.text",
	"response",
	"output",
	"text",
}

// Config holds configuration for the shared client.
type Config struct {
	Timeout    time.Duration // Default: 30s; overridden per-request by LLMConfig.TimeoutSeconds
	MaxRetries int           // Default: 3; overridden per-request by LLMConfig.MaxRetries
	Logger     *zap.Logger
}

// Client is the shared LLM HTTP client. Safe for concurrent use; the
// underlying connection pool is shared across all workers.
type Client struct {
	httpClient *http.Client
	maxRetries int
	logger     *zap.Logger
}

// NewClient creates a new shared transport client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Client{
		// No client-level timeout: per-request deadlines come from
		// the context so each LLMConfig can carry its own.
		httpClient: &http.Client{},
		maxRetries: config.MaxRetries,
		logger:     config.Logger,
	}
}

// Complete renders the payload template for the given prompts, posts it
// to the configured endpoint, and returns the extracted completion
// text.
//
// Transport errors and 5xx responses are retried with exponential
// backoff (base 0.5s, factor 2, cap 8s, jittered); 4xx is not retried.
// A 2xx body recognized as an error envelope yields an *EnvelopeError.
func (c *Client) Complete(ctx context.Context, cfg *types.LLMConfig, prompt, systemPrompt string) (string, error) {
	body, err := RenderPayload(cfg.PayloadTemplate, prompt, systemPrompt)
	if err != nil {
		return "", err
	}

	timeout := DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	maxRetries := c.maxRetries
	if cfg.MaxRetries > 0 {
		maxRetries = cfg.MaxRetries
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	// Header values may carry API keys; only the names are logged.
	c.logger.Debug("calling LLM endpoint",
		zap.String("url", cfg.EndpointURL),
		zap.String("method", method),
		zap.Strings("header_names", headerNames(cfg.Headers)),
		zap.Duration("timeout", timeout))

	operation := func() ([]byte, error) {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, method, cfg.EndpointURL, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{Code: resp.StatusCode, Body: string(respBody)}
			if !statusErr.Retriable() {
				return nil, backoff.Permanent(statusErr)
			}
			return nil, statusErr
		}

		return respBody, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.Multiplier = 2
	bo.MaxInterval = maxBackoffInterval
	bo.RandomizationFactor = 0.1

	respBody, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxRetries+1)))
	if err != nil {
		return "", err
	}

	return ExtractResponse(respBody)
}

// ExtractResponse pulls the completion text out of a JSON reply. The
// known response shapes are tried in order; if none yields a non-empty
// string the raw body is returned, unless the body is an error
// envelope.
func ExtractResponse(body []byte) (string, error) {
	parsed := gjson.ParseBytes(body)

	for _, path := range responsePaths {
		if v := parsed.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String(), nil
		}
	}

	// A top-level JSON string is the completion itself.
	if parsed.Type == gjson.String && parsed.String() != "" {
		return parsed.String(), nil
	}

	if errField := parsed.Get("error"); errField.Exists() {
		msg := errField.Get("message").String()
		if msg == "" {
			msg = errField.String()
		}
		return "", &EnvelopeError{Message: msg}
	}

	return strings.TrimSpace(string(body)), nil
}

func headerNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	return names
}
