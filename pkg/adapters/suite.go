// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package adapters

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/promptshield/internal/log"
	"github.com/teradata-labs/promptshield/pkg/types"
)

// classifier maps one (category, prompt, response) triple to a
// severity string.
type classifier func(category, prompt, response string) string

// suite is the shared probe loop every built-in adapter runs: for each
// supported category, send each crafted prompt and classify the reply.
// A failed call produces an adapter_error finding and the loop
// continues; partial progress is always preserved.
type suite struct {
	name           string
	client         Completer
	prompts        map[string][]string
	systemPrompts  map[string]string
	classify       classifier
	confidenceHigh float64
	confidenceLow  float64
}

func (s *suite) Name() string { return s.name }

func (s *suite) Supports(category string) bool {
	_, ok := s.prompts[category]
	return ok
}

func (s *suite) Execute(ctx context.Context, cfg *types.LLMConfig, categories []string) ([]types.RawFinding, error) {
	var findings []types.RawFinding

	for _, category := range categories {
		prompts, ok := s.prompts[category]
		if !ok {
			continue
		}
		systemPrompt := s.systemPrompts[category]

		for _, prompt := range prompts {
			if err := ctx.Err(); err != nil {
				return findings, err
			}

			response, err := s.client.Complete(ctx, cfg, prompt, systemPrompt)
			if err != nil {
				log.Warn("probe failed",
					zap.String("suite", s.name),
					zap.String("category", category),
					zap.Error(err))
				findings = append(findings, types.RawFinding{
					Library:      s.name,
					TestCategory: category,
					Severity:     string(types.SeverityInfo),
					RiskType:     "adapter_error",
					Prompt:       prompt,
					Metadata:     map[string]any{"error": err.Error()},
				})
				continue
			}

			severity := s.classify(category, prompt, response)
			findings = append(findings, types.RawFinding{
				Library:      s.name,
				TestCategory: category,
				Severity:     severity,
				RiskType:     category,
				Prompt:       prompt,
				Response:     response,
				Confidence:   types.Float64Ptr(s.confidence(severity)),
			})
		}
	}

	return findings, nil
}

func (s *suite) confidence(severity string) float64 {
	if severity == string(types.SeverityCritical) || severity == string(types.SeverityHigh) {
		return s.confidenceHigh
	}
	return s.confidenceLow
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
