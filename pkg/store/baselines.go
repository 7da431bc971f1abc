// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// CreateBaseline designates a Completed execution as a drift
// reference. Tags, when set, are unique among non-deleted baselines;
// a duplicate returns ErrConflict.
func (s *Store) CreateBaseline(ctx context.Context, b *types.Baseline) (int64, error) {
	exec, err := s.GetExecution(ctx, b.ExecutionID)
	if err != nil {
		return 0, err
	}
	if exec.Status != types.StatusCompleted {
		return 0, fmt.Errorf("execution %d is %s, not completed: %w", exec.ID, exec.Status, ErrConflict)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO baselines (execution_id, pipeline_id, llm_config_id, name, tag)
		VALUES (?, ?, ?, ?, ?)`,
		b.ExecutionID, exec.PipelineID, exec.LLMConfigID, b.Name, b.Tag,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, fmt.Errorf("baseline tag %q already in use: %w", b.Tag, ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert baseline: %w", err)
	}
	return res.LastInsertId()
}

// GetBaseline loads one non-deleted baseline.
func (s *Store) GetBaseline(ctx context.Context, id int64) (*types.Baseline, error) {
	return s.queryBaseline(ctx, `id = ?`, id)
}

// GetBaselineByTag resolves a tag to its baseline.
func (s *Store) GetBaselineByTag(ctx context.Context, tag string) (*types.Baseline, error) {
	return s.queryBaseline(ctx, `tag = ?`, tag)
}

func (s *Store) queryBaseline(ctx context.Context, where string, arg any) (*types.Baseline, error) {
	var b types.Baseline
	var tag sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, execution_id, pipeline_id, llm_config_id, name, tag, created_at
		FROM baselines WHERE deleted_at IS NULL AND `+where, arg,
	).Scan(&b.ID, &b.ExecutionID, &b.PipelineID, &b.LLMConfigID, &b.Name, &tag, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("baseline %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline: %w", err)
	}
	b.Tag = tag.String
	return &b, nil
}

// ListBaselines returns all non-deleted baselines, newest first.
func (s *Store) ListBaselines(ctx context.Context) ([]types.Baseline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, pipeline_id, llm_config_id, name, tag, created_at
		FROM baselines WHERE deleted_at IS NULL ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query baselines: %w", err)
	}
	defer rows.Close()

	var baselines []types.Baseline
	for rows.Next() {
		var b types.Baseline
		var tag sql.NullString
		if err := rows.Scan(&b.ID, &b.ExecutionID, &b.PipelineID, &b.LLMConfigID, &b.Name, &tag, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		b.Tag = tag.String
		baselines = append(baselines, b)
	}
	return baselines, rows.Err()
}

// DeleteBaseline soft-deletes a baseline. Rejected with ErrReferenced
// while drift findings still reference its execution as their
// comparison baseline.
func (s *Store) DeleteBaseline(ctx context.Context, id int64) error {
	b, err := s.GetBaseline(ctx, id)
	if err != nil {
		return err
	}

	var refs int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drift_findings WHERE baseline_execution_id = ?`, b.ExecutionID,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to count drift references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("baseline %d is referenced by %d drift finding(s): %w", id, refs, ErrReferenced)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE baselines SET deleted_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete baseline: %w", err)
	}
	return nil
}
