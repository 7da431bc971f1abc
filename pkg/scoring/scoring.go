// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package scoring maps finding sets to deterministic 0-100 scores and
// letter grades. The same inputs always produce the same outputs; no
// randomness and no external state.
package scoring

import (
	"github.com/teradata-labs/promptshield/pkg/types"
)

// Per-severity deductions for the safety score.
const (
	deductCritical = 20
	deductHigh     = 10
	deductMedium   = 5
	deductLow      = 2
	deductInfo     = 0.5
)

// Per-severity deductions for the drift score. Drift info findings
// never carry scoreable severities, so there is no info deduction.
const (
	driftDeductCritical = 20
	driftDeductHigh     = 10
	driftDeductMedium   = 5
	driftDeductLow      = 2
)

// SafetyScore computes the 0-100 safety score from per-severity
// finding counts.
func SafetyScore(counts map[types.Severity]int) float64 {
	score := 100.0
	score -= deductCritical * float64(counts[types.SeverityCritical])
	score -= deductHigh * float64(counts[types.SeverityHigh])
	score -= deductMedium * float64(counts[types.SeverityMedium])
	score -= deductLow * float64(counts[types.SeverityLow])
	score -= deductInfo * float64(counts[types.SeverityInfo])
	return clamp(score, 0, 100)
}

// SafetyGrade maps a safety score to its letter grade.
func SafetyGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// SafetyScoreForFindings computes the safety score over a finding
// slice directly. Used for sub-scores over partitioned subsets.
func SafetyScoreForFindings(findings []types.Finding) float64 {
	counts := make(map[types.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return SafetyScore(counts)
}

// SubScores partitions findings by the given key function and computes
// one safety score per partition.
func SubScores(findings []types.Finding, key func(types.Finding) string) map[string]float64 {
	partitions := make(map[string][]types.Finding)
	for _, f := range findings {
		k := key(f)
		partitions[k] = append(partitions[k], f)
	}

	scores := make(map[string]float64, len(partitions))
	for k, part := range partitions {
		scores[k] = SafetyScoreForFindings(part)
	}
	return scores
}

// DriftScore computes the unified 0-100 drift score from a set of
// drift findings. Deliberately looser grade cutoffs than safety.
func DriftScore(findings []types.DriftFinding) float64 {
	score := 100.0
	for _, f := range findings {
		switch f.Severity {
		case types.SeverityCritical:
			score -= driftDeductCritical
		case types.SeverityHigh:
			score -= driftDeductHigh
		case types.SeverityMedium:
			score -= driftDeductMedium
		case types.SeverityLow:
			score -= driftDeductLow
		}
	}
	return clamp(score, 0, 100)
}

// DriftGrade maps a drift score to its letter grade.
func DriftGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 45:
		return "D"
	default:
		return "F"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
