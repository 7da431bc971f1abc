// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package engine

import (
	"context"
	"fmt"

	"github.com/teradata-labs/promptshield/pkg/scoring"
	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/types"
)

// Summary aggregates one execution's findings into scores and counts.
// Drift fields are set only when a drift comparison exists for the
// execution.
type Summary struct {
	ExecutionID         int64                  `json:"execution_id"`
	Status              types.ExecutionStatus  `json:"status"`
	TotalFindings       int                    `json:"total_findings"`
	BySeverity          map[types.Severity]int `json:"by_severity"`
	ByLibrary           map[string]int         `json:"by_library"`
	ByCategory          map[string]int         `json:"by_category"`
	SafetyScore         float64                `json:"safety_score"`
	SafetyGrade         string                 `json:"safety_grade"`
	SubScoresByLibrary  map[string]float64     `json:"sub_scores_by_library"`
	SubScoresByCategory map[string]float64     `json:"sub_scores_by_category"`
	DriftScore          *float64               `json:"drift_score,omitempty"`
	DriftGrade          *string                `json:"drift_grade,omitempty"`
}

// Summarize computes the summary for an execution from the store.
func (e *Engine) Summarize(ctx context.Context, executionID int64) (*Summary, error) {
	exec, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %d: %w", executionID, err)
	}
	findings, err := e.store.ListFindings(ctx, executionID, store.FindingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}

	bySeverity := make(map[types.Severity]int)
	byLibrary := make(map[string]int)
	byCategory := make(map[string]int)
	for _, f := range findings {
		bySeverity[f.Severity]++
		byLibrary[f.Library]++
		byCategory[f.TestCategory]++
	}

	score := scoring.SafetyScoreForFindings(findings)
	summary := &Summary{
		ExecutionID:         executionID,
		Status:              exec.Status,
		TotalFindings:       len(findings),
		BySeverity:          bySeverity,
		ByLibrary:           byLibrary,
		ByCategory:          byCategory,
		SafetyScore:         score,
		SafetyGrade:         scoring.SafetyGrade(score),
		SubScoresByLibrary:  scoring.SubScores(findings, func(f types.Finding) string { return f.Library }),
		SubScoresByCategory: scoring.SubScores(findings, func(f types.Finding) string { return f.TestCategory }),
	}

	driftFindings, err := e.store.LatestDriftFindings(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drift findings: %w", err)
	}
	if driftFindings != nil {
		driftScore := scoring.DriftScore(driftFindings)
		driftGrade := scoring.DriftGrade(driftScore)
		summary.DriftScore = &driftScore
		summary.DriftGrade = &driftGrade
	}

	return summary, nil
}
