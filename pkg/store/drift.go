// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// ReplaceDriftFindings atomically replaces all drift findings for the
// (execution, baseline) pair with the given set. Re-running a
// comparison is therefore idempotent.
func (s *Store) ReplaceDriftFindings(ctx context.Context, executionID, baselineExecutionID int64, findings []types.DriftFinding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM drift_findings WHERE execution_id = ? AND baseline_execution_id = ?`,
		executionID, baselineExecutionID)
	if err != nil {
		return fmt.Errorf("failed to delete prior drift findings: %w", err)
	}

	for _, f := range findings {
		detailsJSON, err := json.Marshal(f.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal drift details: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO drift_findings (execution_id, baseline_execution_id, channel, metric,
				value, threshold, severity, confidence, details)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			executionID, baselineExecutionID, f.Channel, f.Metric,
			f.Value, f.Threshold, f.Severity, f.Confidence, string(detailsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert drift finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListDriftFindings returns the drift findings recorded for one
// (execution, baseline) pair.
func (s *Store) ListDriftFindings(ctx context.Context, executionID, baselineExecutionID int64) ([]types.DriftFinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, baseline_execution_id, channel, metric,
			value, threshold, severity, confidence, details, created_at
		FROM drift_findings
		WHERE execution_id = ? AND baseline_execution_id = ?`,
		executionID, baselineExecutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drift findings: %w", err)
	}
	defer rows.Close()

	var findings []types.DriftFinding
	for rows.Next() {
		var f types.DriftFinding
		var confidence sql.NullFloat64
		var detailsJSON sql.NullString

		err := rows.Scan(&f.ID, &f.ExecutionID, &f.BaselineExecutionID, &f.Channel, &f.Metric,
			&f.Value, &f.Threshold, &f.Severity, &confidence, &detailsJSON, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drift finding: %w", err)
		}

		if confidence.Valid {
			f.Confidence = &confidence.Float64
		}
		if detailsJSON.Valid && detailsJSON.String != "" && detailsJSON.String != "null" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &f.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal drift details: %w", err)
			}
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// LatestDriftFindings returns the drift findings from the most recent
// comparison involving the execution, regardless of baseline.
func (s *Store) LatestDriftFindings(ctx context.Context, executionID int64) ([]types.DriftFinding, error) {
	var baselineID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT baseline_execution_id FROM drift_findings
		WHERE execution_id = ? ORDER BY id DESC LIMIT 1`, executionID,
	).Scan(&baselineID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest drift comparison: %w", err)
	}
	return s.ListDriftFindings(ctx, executionID, baselineID)
}
