// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// CreateExecution inserts a new Pending execution row.
func (s *Store) CreateExecution(ctx context.Context, pipelineID, llmConfigID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (pipeline_id, llm_config_id, status)
		VALUES (?, ?, ?)`,
		pipelineID, llmConfigID, types.StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert execution: %w", err)
	}
	return res.LastInsertId()
}

// GetExecution loads one execution.
func (s *Store) GetExecution(ctx context.Context, id int64) (*types.Execution, error) {
	var e types.Execution
	var startedAt, completedAt sql.NullTime
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, pipeline_id, llm_config_id, status, started_at, completed_at, error_message
		FROM executions WHERE id = ?`, id,
	).Scan(&e.ID, &e.PipelineID, &e.LLMConfigID, &e.Status, &startedAt, &completedAt, &errorMessage)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query execution: %w", err)
	}

	if startedAt.Valid {
		e.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	e.ErrorMessage = errorMessage.String
	return &e, nil
}

// TransitionExecution moves an execution from one status to another
// with a compare-and-set on the current status. started_at is stamped
// on entering Running, completed_at on entering any terminal state.
// Returns ErrConflict if the execution is not in the expected state.
func (s *Store) TransitionExecution(ctx context.Context, id int64, from, to types.ExecutionStatus) error {
	return s.transition(ctx, id, from, to, "")
}

// FailExecution transitions to Failed and records a short error
// message, truncated to 1000 characters.
func (s *Store) FailExecution(ctx context.Context, id int64, from types.ExecutionStatus, errorMessage string) error {
	return s.transition(ctx, id, from, types.StatusFailed, truncateMessage(errorMessage))
}

// allowedTransitions is the execution state machine: monotonic, with
// cancellation possible before a run finishes.
var allowedTransitions = map[types.ExecutionStatus][]types.ExecutionStatus{
	types.StatusPending: {types.StatusRunning, types.StatusFailed, types.StatusCancelled},
	types.StatusRunning: {types.StatusCompleted, types.StatusFailed, types.StatusCancelled},
}

func (s *Store) transition(ctx context.Context, id int64, from, to types.ExecutionStatus, errorMessage string) error {
	valid := false
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid transition %s -> %s: %w", from, to, ErrConflict)
	}

	now := time.Now().UTC()

	query := `UPDATE executions SET status = ?`
	args := []any{to}
	if to == types.StatusRunning {
		query += `, started_at = ?`
		args = append(args, now)
	}
	if to.Terminal() {
		query += `, completed_at = ?`
		args = append(args, now)
	}
	if errorMessage != "" {
		query += `, error_message = ?`
		args = append(args, errorMessage)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, from)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update execution status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another writer won the CAS.
		if _, getErr := s.GetExecution(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("execution %d is not %s: %w", id, from, ErrConflict)
	}
	return nil
}

// LatestCompletedBefore returns the most recent Completed execution for
// the same pipeline and llm config with an id strictly less than
// beforeID. Used by the Previous baseline mode.
func (s *Store) LatestCompletedBefore(ctx context.Context, pipelineID, llmConfigID, beforeID int64) (*types.Execution, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM executions
		WHERE pipeline_id = ? AND llm_config_id = ? AND status = ? AND id < ?
		ORDER BY id DESC LIMIT 1`,
		pipelineID, llmConfigID, types.StatusCompleted, beforeID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no completed execution before %d: %w", beforeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query previous execution: %w", err)
	}
	return s.GetExecution(ctx, id)
}

// DeleteExecution removes an execution. Rejected while any baseline
// still references it.
func (s *Store) DeleteExecution(ctx context.Context, id int64) error {
	var refs int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM baselines WHERE execution_id = ? AND deleted_at IS NULL`, id,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to count baseline references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("execution %d is referenced by %d baseline(s): %w", id, refs, ErrReferenced)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete execution: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("execution %d: %w", id, ErrNotFound)
	}
	return nil
}
