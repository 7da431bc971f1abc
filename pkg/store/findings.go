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

// FindingFilter narrows ListFindings. Zero values mean no filter.
type FindingFilter struct {
	Severity     types.Severity
	Library      string
	TestCategory string
	RiskType     string
}

// InsertFindings persists a batch of findings for one execution in a
// single transaction. The insert is rejected with ErrConflict once the
// execution has reached Completed or Failed; findings are immutable
// after that point.
func (s *Store) InsertFindings(ctx context.Context, executionID int64, findings []types.Finding) ([]int64, error) {
	if len(findings) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkWritable(ctx, tx, executionID); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(findings))
	for _, f := range findings {
		extraJSON, err := json.Marshal(f.Extra)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extra metadata: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO findings (execution_id, library, test_category, severity, risk_type,
				evidence_prompt, evidence_response, confidence, extra)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			executionID, f.Library, f.TestCategory, f.Severity, f.RiskType,
			f.EvidencePrompt, f.EvidenceResponse, f.Confidence, string(extraJSON),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert finding: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get last insert ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ids, nil
}

// InsertFinding persists a single finding. Same write rules as
// InsertFindings.
func (s *Store) InsertFinding(ctx context.Context, f types.Finding) (int64, error) {
	ids, err := s.InsertFindings(ctx, f.ExecutionID, []types.Finding{f})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func checkWritable(ctx context.Context, tx *sql.Tx, executionID int64) error {
	var status types.ExecutionStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM executions WHERE id = ?`, executionID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("execution %d: %w", executionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query execution status: %w", err)
	}
	if status == types.StatusCompleted || status == types.StatusFailed {
		return fmt.Errorf("execution %d is %s: %w", executionID, status, ErrConflict)
	}
	return nil
}

// ListFindings returns an execution's findings matching the filter.
// No ordering is guaranteed beyond ids being insertion-monotonic.
func (s *Store) ListFindings(ctx context.Context, executionID int64, filter FindingFilter) ([]types.Finding, error) {
	query := `
		SELECT id, execution_id, library, test_category, severity, risk_type,
			evidence_prompt, evidence_response, confidence, extra, created_at
		FROM findings WHERE execution_id = ?`
	args := []any{executionID}

	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, filter.Severity)
	}
	if filter.Library != "" {
		query += ` AND library = ?`
		args = append(args, filter.Library)
	}
	if filter.TestCategory != "" {
		query += ` AND test_category = ?`
		args = append(args, filter.TestCategory)
	}
	if filter.RiskType != "" {
		query += ` AND risk_type = ?`
		args = append(args, filter.RiskType)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []types.Finding
	for rows.Next() {
		var f types.Finding
		var confidence sql.NullFloat64
		var extraJSON sql.NullString

		err := rows.Scan(&f.ID, &f.ExecutionID, &f.Library, &f.TestCategory, &f.Severity,
			&f.RiskType, &f.EvidencePrompt, &f.EvidenceResponse, &confidence, &extraJSON, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}

		if confidence.Valid {
			f.Confidence = &confidence.Float64
		}
		if extraJSON.Valid && extraJSON.String != "" && extraJSON.String != "null" {
			if err := json.Unmarshal([]byte(extraJSON.String), &f.Extra); err != nil {
				return nil, fmt.Errorf("failed to unmarshal extra metadata: %w", err)
			}
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// CountFindingsBySeverity returns per-severity finding counts for an
// execution. Absent severities map to zero.
func (s *Store) CountFindingsBySeverity(ctx context.Context, executionID int64) (map[types.Severity]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM findings
		WHERE execution_id = ? GROUP BY severity`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count findings: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Severity]int)
	for _, sev := range types.Severities() {
		counts[sev] = 0
	}
	for rows.Next() {
		var sev types.Severity
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		counts[sev] = n
	}
	return counts, rows.Err()
}
