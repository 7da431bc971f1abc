// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package baseline manages drift comparison references and resolves
// which prior execution a comparison runs against.
package baseline

import (
	"context"
	"errors"
	"fmt"

	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/types"
)

var (
	// ErrNotFound means the requested baseline or execution does not
	// exist.
	ErrNotFound = errors.New("baseline not found")

	// ErrNotUsable means the baseline exists but cannot serve as a
	// comparison reference (execution not Completed, or
	// self-comparison outside self-check mode).
	ErrNotUsable = errors.New("baseline not usable")
)

// Ref selects a baseline one of three ways: an explicit execution id,
// a baseline tag, or the previous completed execution of the same
// pipeline and endpoint.
type Ref struct {
	ExplicitID int64
	Tag        string
	Previous   bool
}

// Manager creates, lists and deletes baselines and resolves Refs to
// execution ids.
type Manager struct {
	store *store.Store

	// AllowSelfComparison permits resolving a baseline equal to the
	// current execution. Only the drift engine's self-check mode sets
	// this.
	AllowSelfComparison bool
}

// NewManager creates a baseline manager.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Create designates a Completed execution as a baseline.
func (m *Manager) Create(ctx context.Context, executionID int64, name, tag string) (*types.Baseline, error) {
	id, err := m.store.CreateBaseline(ctx, &types.Baseline{
		ExecutionID: executionID,
		Name:        name,
		Tag:         tag,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("execution %d: %w", executionID, ErrNotFound)
		}
		return nil, err
	}
	return m.store.GetBaseline(ctx, id)
}

// List returns all live baselines.
func (m *Manager) List(ctx context.Context) ([]types.Baseline, error) {
	return m.store.ListBaselines(ctx)
}

// Delete removes a baseline. Rejected while drift findings reference it.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	err := m.store.DeleteBaseline(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("baseline %d: %w", id, ErrNotFound)
	}
	return err
}

// Resolve maps (current execution, ref) to the baseline execution id a
// drift comparison should read. The resolved execution must be
// Completed; a self-reference is rejected unless AllowSelfComparison.
func (m *Manager) Resolve(ctx context.Context, currentID int64, ref Ref) (int64, error) {
	var baselineExecID int64

	switch {
	case ref.ExplicitID != 0:
		baselineExecID = ref.ExplicitID

	case ref.Tag != "":
		b, err := m.store.GetBaselineByTag(ctx, ref.Tag)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, fmt.Errorf("tag %q: %w", ref.Tag, ErrNotFound)
			}
			return 0, err
		}
		baselineExecID = b.ExecutionID

	case ref.Previous:
		current, err := m.store.GetExecution(ctx, currentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, fmt.Errorf("execution %d: %w", currentID, ErrNotFound)
			}
			return 0, err
		}
		prev, err := m.store.LatestCompletedBefore(ctx, current.PipelineID, current.LLMConfigID, currentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, fmt.Errorf("no previous completed execution for pipeline %d: %w", current.PipelineID, ErrNotFound)
			}
			return 0, err
		}
		return prev.ID, nil

	default:
		return 0, fmt.Errorf("empty baseline reference: %w", ErrNotFound)
	}

	exec, err := m.store.GetExecution(ctx, baselineExecID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("execution %d: %w", baselineExecID, ErrNotFound)
		}
		return 0, err
	}
	if exec.Status != types.StatusCompleted {
		return 0, fmt.Errorf("execution %d is %s: %w", baselineExecID, exec.Status, ErrNotUsable)
	}
	if baselineExecID == currentID && !m.AllowSelfComparison {
		return 0, fmt.Errorf("execution %d cannot be its own baseline: %w", currentID, ErrNotUsable)
	}
	return baselineExecID, nil
}
