// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package baseline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/types"
)

type fixture struct {
	store       *store.Store
	manager     *Manager
	pipelineID  int64
	llmConfigID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfgID, err := s.CreateLLMConfig(ctx, &types.LLMConfig{Name: "ep", EndpointURL: "http://x"})
	require.NoError(t, err)
	pipeID, err := s.CreatePipeline(ctx, &types.Pipeline{
		Name: "p", Libraries: []string{"garak"}, TestCategories: []string{"misuse"}, LLMConfigID: cfgID,
	})
	require.NoError(t, err)

	return &fixture{store: s, manager: NewManager(s), pipelineID: pipeID, llmConfigID: cfgID}
}

func (f *fixture) execution(t *testing.T, status types.ExecutionStatus) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.store.CreateExecution(ctx, f.pipelineID, f.llmConfigID)
	require.NoError(t, err)
	if status != types.StatusPending {
		require.NoError(t, f.store.TransitionExecution(ctx, id, types.StatusPending, types.StatusRunning))
	}
	if status.Terminal() {
		require.NoError(t, f.store.TransitionExecution(ctx, id, types.StatusRunning, status))
	}
	return id
}

func TestCreateListDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	execID := f.execution(t, types.StatusCompleted)
	b, err := f.manager.Create(ctx, execID, "golden", "v1")
	require.NoError(t, err)
	assert.Equal(t, execID, b.ExecutionID)
	assert.Equal(t, "v1", b.Tag)

	list, err := f.manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.manager.Delete(ctx, b.ID))
	list, err = f.manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, f.manager.Delete(ctx, b.ID), ErrNotFound)
}

func TestResolveExplicitID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baseID := f.execution(t, types.StatusCompleted)
	currentID := f.execution(t, types.StatusCompleted)

	got, err := f.manager.Resolve(ctx, currentID, Ref{ExplicitID: baseID})
	require.NoError(t, err)
	assert.Equal(t, baseID, got)

	// Unknown execution.
	_, err = f.manager.Resolve(ctx, currentID, Ref{ExplicitID: 9999})
	assert.ErrorIs(t, err, ErrNotFound)

	// Not completed.
	runningID := f.execution(t, types.StatusRunning)
	_, err = f.manager.Resolve(ctx, currentID, Ref{ExplicitID: runningID})
	assert.ErrorIs(t, err, ErrNotUsable)
}

func TestResolveTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baseID := f.execution(t, types.StatusCompleted)
	currentID := f.execution(t, types.StatusCompleted)
	_, err := f.manager.Create(ctx, baseID, "golden", "release-1")
	require.NoError(t, err)

	got, err := f.manager.Resolve(ctx, currentID, Ref{Tag: "release-1"})
	require.NoError(t, err)
	assert.Equal(t, baseID, got)

	_, err = f.manager.Resolve(ctx, currentID, Ref{Tag: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolvePrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.execution(t, types.StatusCompleted)
	second := f.execution(t, types.StatusCompleted)
	f.execution(t, types.StatusFailed) // ignored: not completed
	current := f.execution(t, types.StatusCompleted)

	got, err := f.manager.Resolve(ctx, current, Ref{Previous: true})
	require.NoError(t, err)
	assert.Equal(t, second, got)

	// The earliest execution has nothing before it.
	_, err = f.manager.Resolve(ctx, first, Ref{Previous: true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRejectsSelfReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	execID := f.execution(t, types.StatusCompleted)

	_, err := f.manager.Resolve(ctx, execID, Ref{ExplicitID: execID})
	assert.ErrorIs(t, err, ErrNotUsable)

	f.manager.AllowSelfComparison = true
	got, err := f.manager.Resolve(ctx, execID, Ref{ExplicitID: execID})
	require.NoError(t, err)
	assert.Equal(t, execID, got)
}

func TestResolveEmptyRef(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Resolve(context.Background(), 1, Ref{})
	assert.ErrorIs(t, err, ErrNotFound)
}
