// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package normalize converts adapter raw findings into canonical
// Finding records. Normalization never discards data: every raw
// finding maps to exactly one Finding, with validation problems noted
// in the record itself.
package normalize

import (
	"fmt"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// Normalize validates one raw finding and returns the canonical record.
//
// Rules:
//   - severity outside {critical, high, medium, low, info} (after alias
//     mapping) becomes info, with a validation note in Extra.
//   - confidence, when present, is clamped to [0, 1]; absent stays nil.
//   - empty risk_type defaults to the test category.
//   - prompt and response are stored verbatim, however long.
func Normalize(executionID int64, raw types.RawFinding) types.Finding {
	var notes []string

	severity, ok := types.ParseSeverity(raw.Severity)
	if !ok {
		notes = append(notes, fmt.Sprintf("unknown severity %q, defaulted to info", raw.Severity))
	}

	confidence := raw.Confidence
	if confidence != nil {
		c := clamp01(*confidence)
		if c != *confidence {
			notes = append(notes, fmt.Sprintf("confidence %v clamped to %v", *confidence, c))
		}
		confidence = &c
	}

	riskType := raw.RiskType
	if riskType == "" {
		riskType = raw.TestCategory
	}

	extra := make(map[string]any, len(raw.Metadata)+1)
	for k, v := range raw.Metadata {
		extra[k] = v
	}
	if len(notes) > 0 {
		extra["validation_notes"] = notes
	}

	return types.Finding{
		ExecutionID:      executionID,
		Library:          raw.Library,
		TestCategory:     raw.TestCategory,
		Severity:         severity,
		RiskType:         riskType,
		EvidencePrompt:   raw.Prompt,
		EvidenceResponse: raw.Response,
		Confidence:       confidence,
		Extra:            extra,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
