// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// InsertEmbedding persists one vector for a finding. At most one
// embedding may exist per finding; a second insert returns ErrConflict,
// as does inserting after the execution reached Completed or Failed.
func (s *Store) InsertEmbedding(ctx context.Context, e types.Embedding) (int64, error) {
	vectorJSON, err := json.Marshal(e.Vector)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal vector: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkWritable(ctx, tx, e.ExecutionID); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO embeddings (finding_id, execution_id, model_name, vector)
		VALUES (?, ?, ?, ?)`,
		e.FindingID, e.ExecutionID, e.ModelName, string(vectorJSON),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, fmt.Errorf("finding %d already has an embedding: %w", e.FindingID, ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert embedding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// ListEmbeddings returns all embeddings recorded for an execution.
func (s *Store) ListEmbeddings(ctx context.Context, executionID int64) ([]types.Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, finding_id, execution_id, model_name, vector
		FROM embeddings WHERE execution_id = ?`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []types.Embedding
	for rows.Next() {
		var e types.Embedding
		var vectorJSON string
		if err := rows.Scan(&e.ID, &e.FindingID, &e.ExecutionID, &e.ModelName, &vectorJSON); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(vectorJSON), &e.Vector); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vector: %w", err)
		}
		embeddings = append(embeddings, e)
	}
	return embeddings, rows.Err()
}
