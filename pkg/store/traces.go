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

// InsertAgentTrace persists one extracted tool-call sequence. One
// trace per finding; a duplicate returns ErrConflict.
func (s *Store) InsertAgentTrace(ctx context.Context, t types.AgentTrace) (int64, error) {
	callsJSON, err := json.Marshal(t.Calls)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal tool calls: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_traces (execution_id, finding_id, calls)
		VALUES (?, ?, ?)`,
		t.ExecutionID, t.FindingID, string(callsJSON),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, fmt.Errorf("finding %d already has a trace: %w", t.FindingID, ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert agent trace: %w", err)
	}
	return res.LastInsertId()
}

// ListAgentTraces returns all traces recorded for an execution.
func (s *Store) ListAgentTraces(ctx context.Context, executionID int64) ([]types.AgentTrace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, finding_id, calls
		FROM agent_traces WHERE execution_id = ?`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent traces: %w", err)
	}
	defer rows.Close()

	var traces []types.AgentTrace
	for rows.Next() {
		var t types.AgentTrace
		var callsJSON string
		if err := rows.Scan(&t.ID, &t.ExecutionID, &t.FindingID, &callsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan agent trace: %w", err)
		}
		if err := json.Unmarshal([]byte(callsJSON), &t.Calls); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}
