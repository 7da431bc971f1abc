// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package drift

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/promptshield/pkg/baseline"
	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/types"
)

type fixture struct {
	t          *testing.T
	store      *store.Store
	baselines  *baseline.Manager
	engine     *Engine
	pipelineID int64
	configID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	configID, err := st.CreateLLMConfig(ctx, &types.LLMConfig{
		Name:        "staging",
		EndpointURL: "http://localhost:9999/v1/chat/completions",
	})
	require.NoError(t, err)

	pipelineID, err := st.CreatePipeline(ctx, &types.Pipeline{
		Name:           "nightly",
		Libraries:      []string{"garak"},
		TestCategories: []string{"prompt_injection"},
		LLMConfigID:    configID,
	})
	require.NoError(t, err)

	baselines := baseline.NewManager(st)
	return &fixture{
		t:          t,
		store:      st,
		baselines:  baselines,
		engine:     NewEngine(st, baselines, Config{}),
		pipelineID: pipelineID,
		configID:   configID,
	}
}

// startExecution creates a Running execution ready to receive findings.
func (f *fixture) startExecution() int64 {
	f.t.Helper()
	ctx := context.Background()
	id, err := f.store.CreateExecution(ctx, f.pipelineID, f.configID)
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.TransitionExecution(ctx, id, types.StatusPending, types.StatusRunning))
	return id
}

func (f *fixture) complete(id int64) {
	f.t.Helper()
	require.NoError(f.t, f.store.TransitionExecution(context.Background(), id, types.StatusRunning, types.StatusCompleted))
}

// seedExecution persists a completed execution holding the given
// findings and returns (execution id, finding ids).
func (f *fixture) seedExecution(findings []types.Finding) (int64, []int64) {
	f.t.Helper()
	id := f.startExecution()
	findingIDs, err := f.store.InsertFindings(context.Background(), id, findings)
	require.NoError(f.t, err)
	f.complete(id)
	return id, findingIDs
}

// uniformFindings builds n findings of one severity whose evidence
// responses all have the given length.
func uniformFindings(n int, sev types.Severity, responseLen int) []types.Finding {
	out := make([]types.Finding, n)
	for i := range out {
		out[i] = types.Finding{
			Library:          "garak",
			TestCategory:     "prompt_injection",
			Severity:         sev,
			RiskType:         "prompt_injection",
			EvidencePrompt:   "probe",
			EvidenceResponse: strings.Repeat("a", responseLen),
		}
	}
	return out
}

// findingsBySeverity builds one finding per unit of each severity count.
func findingsBySeverity(counts map[types.Severity]int) []types.Finding {
	var out []types.Finding
	for _, sev := range types.Severities() {
		out = append(out, uniformFindings(counts[sev], sev, 120)...)
	}
	return out
}

func findMetric(findings []types.DriftFinding, metric string) (types.DriftFinding, bool) {
	for _, f := range findings {
		if f.Metric == metric {
			return f, true
		}
	}
	return types.DriftFinding{}, false
}

func TestCompareResponseLengthDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baselineID, _ := f.seedExecution(uniformFindings(20, types.SeverityInfo, 100))
	currentID, _ := f.seedExecution(uniformFindings(20, types.SeverityInfo, 500))

	result, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: baselineID})
	require.NoError(t, err)

	ks, ok := findMetric(result.Findings, "response_length_ks")
	require.True(t, ok)
	assert.Equal(t, types.ChannelOutput, ks.Channel)
	assert.Equal(t, 1.0, ks.Value)
	assert.Equal(t, types.SeverityCritical, ks.Severity)
	require.NotNil(t, ks.Confidence)
	assert.Greater(t, *ks.Confidence, 0.99)
	assert.Equal(t, currentID, ks.ExecutionID)
	assert.Equal(t, baselineID, ks.BaselineExecutionID)

	// Identical severity distributions leave the other statistical
	// channels quiet.
	_, ok = findMetric(result.Findings, "severity_psi")
	assert.False(t, ok)
	_, ok = findMetric(result.Findings, "safety_score_delta")
	assert.False(t, ok)
}

func TestCompareSeverityDistributionShift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baselineID, _ := f.seedExecution(findingsBySeverity(map[types.Severity]int{
		types.SeverityCritical: 2, types.SeverityHigh: 6,
		types.SeverityMedium: 6, types.SeverityLow: 4, types.SeverityInfo: 2,
	}))
	currentID, _ := f.seedExecution(findingsBySeverity(map[types.Severity]int{
		types.SeverityCritical: 7, types.SeverityHigh: 5,
		types.SeverityMedium: 5, types.SeverityLow: 3, types.SeverityInfo: 0,
	}))

	result, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: baselineID})
	require.NoError(t, err)

	psi, ok := findMetric(result.Findings, "severity_psi")
	require.True(t, ok)
	assert.Equal(t, types.ChannelDistribution, psi.Channel)
	assert.Equal(t, types.SeverityCritical, psi.Severity)
	assert.Greater(t, psi.Value, 0.25)
}

func TestCompareEmbeddingsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baselineFindings := uniformFindings(3, types.SeverityInfo, 100)
	baselineID, findingIDs := f.seedExecutionWithEmbeddings(baselineFindings, [][]float64{
		{1, 0, 0}, {0.9, 0.1, 0}, {0.8, 0.2, 0},
	})
	_ = findingIDs

	currentID, _ := f.seedExecution(uniformFindings(3, types.SeverityInfo, 100))

	result, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: baselineID})
	require.NoError(t, err)

	unavailable, ok := findMetric(result.Findings, "embeddings_unavailable")
	require.True(t, ok)
	assert.Equal(t, types.ChannelEmbedding, unavailable.Channel)
	assert.Equal(t, types.SeverityLow, unavailable.Severity)
	assert.EqualValues(t, 0, unavailable.Details["current_embedding_count"])

	// Only the marker comes out of the embedding channel.
	for _, df := range result.Findings {
		if df.Channel == types.ChannelEmbedding {
			assert.Equal(t, "embeddings_unavailable", df.Metric)
		}
	}
}

// seedExecutionWithEmbeddings seeds a completed execution whose
// findings carry embeddings under one model.
func (f *fixture) seedExecutionWithEmbeddings(findings []types.Finding, vectors [][]float64) (int64, []int64) {
	f.t.Helper()
	ctx := context.Background()
	id := f.startExecution()
	findingIDs, err := f.store.InsertFindings(ctx, id, findings)
	require.NoError(f.t, err)
	for i, vec := range vectors {
		_, err := f.store.InsertEmbedding(ctx, types.Embedding{
			FindingID:   findingIDs[i],
			ExecutionID: id,
			ModelName:   "all-MiniLM-L6-v2",
			Vector:      vec,
		})
		require.NoError(f.t, err)
	}
	f.complete(id)
	return id, findingIDs
}

func TestCompareAgentToolDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedTraces := func(sequences [][]string) int64 {
		id := f.startExecution()
		findingIDs, err := f.store.InsertFindings(ctx, id, uniformFindings(len(sequences), types.SeverityInfo, 100))
		require.NoError(f.t, err)
		for i, seq := range sequences {
			calls := make([]types.ToolCall, len(seq))
			for j, tool := range seq {
				calls[j] = types.ToolCall{Tool: tool}
			}
			_, err := f.store.InsertAgentTrace(ctx, types.AgentTrace{
				ExecutionID: id,
				FindingID:   findingIDs[i],
				Calls:       calls,
			})
			require.NoError(f.t, err)
		}
		f.complete(id)
		return id
	}

	baselineID := seedTraces([][]string{
		{"search", "calculator"},
		{"search", "calculator"},
	})
	currentID := seedTraces([][]string{
		{"browser", "browser", "browser", "email"},
		{"browser", "email"},
	})

	result, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: baselineID})
	require.NoError(t, err)

	seq, ok := findMetric(result.Findings, "tool_sequence_jaccard")
	require.True(t, ok)
	assert.Equal(t, 1.0, seq.Value)
	assert.Equal(t, types.SeverityCritical, seq.Severity)

	loop, ok := findMetric(result.Findings, "tool_loop_detected")
	require.True(t, ok)
	assert.Equal(t, types.SeverityMedium, loop.Severity)
	assert.Equal(t, "browser", loop.Details["tool"])

	var newTools []string
	for _, df := range result.Findings {
		if df.Metric == "new_tool_introduced" {
			assert.Equal(t, types.SeverityLow, df.Severity)
			newTools = append(newTools, df.Details["tool"].(string))
		}
	}
	assert.ElementsMatch(t, []string{"browser", "email"}, newTools)
}

func TestCompareIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baselineID, _ := f.seedExecution(uniformFindings(20, types.SeverityInfo, 100))
	currentID, _ := f.seedExecution(uniformFindings(20, types.SeverityInfo, 500))

	first, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: baselineID})
	require.NoError(t, err)
	second, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: baselineID})
	require.NoError(t, err)

	require.Len(t, second.Findings, len(first.Findings))
	for i := range first.Findings {
		assert.Equal(t, first.Findings[i].Metric, second.Findings[i].Metric)
		assert.Equal(t, first.Findings[i].Value, second.Findings[i].Value)
		assert.Equal(t, first.Findings[i].Severity, second.Findings[i].Severity)
	}
	assert.Equal(t, first.Score, second.Score)

	// The store holds exactly one generation of findings for the pair.
	persisted, err := f.store.ListDriftFindings(ctx, currentID, baselineID)
	require.NoError(t, err)
	assert.Len(t, persisted, len(first.Findings))
}

func TestCompareBaselineErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	currentID, _ := f.seedExecution(uniformFindings(2, types.SeverityInfo, 100))
	running := f.startExecution()

	_, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: 9999})
	assert.ErrorIs(t, err, baseline.ErrNotFound)

	_, err = f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: running})
	assert.ErrorIs(t, err, baseline.ErrNotUsable)

	// Self-comparison is rejected outside self-check mode.
	_, err = f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: currentID})
	assert.ErrorIs(t, err, baseline.ErrNotUsable)

	// Nothing was persisted on any failed resolution.
	persisted, err := f.store.ListDriftFindings(ctx, currentID, currentID)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestCompareSelfCheck(t *testing.T) {
	f := newFixture(t)
	f.baselines.AllowSelfComparison = true
	ctx := context.Background()

	id, _ := f.seedExecution(findingsBySeverity(map[types.Severity]int{
		types.SeverityHigh: 2, types.SeverityMedium: 3, types.SeverityInfo: 5,
	}))

	result, err := f.engine.Compare(ctx, id, baseline.Ref{ExplicitID: id})
	require.NoError(t, err)

	// An execution compared against itself shows no drift at all.
	assert.Empty(t, result.Findings)
	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, "A", result.Grade)
}

func TestCompareEmptyExecutions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baselineID, _ := f.seedExecution(nil)
	currentID, _ := f.seedExecution(nil)

	result, err := f.engine.Compare(ctx, currentID, baseline.Ref{ExplicitID: baselineID})
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, "A", result.Grade)
}

func TestCompareResolvesByTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	baselineID, _ := f.seedExecution(uniformFindings(5, types.SeverityInfo, 100))
	_, err := f.baselines.Create(ctx, baselineID, "golden", "v1.0")
	require.NoError(t, err)

	currentID, _ := f.seedExecution(uniformFindings(5, types.SeverityInfo, 500))

	result, err := f.engine.Compare(ctx, currentID, baseline.Ref{Tag: "v1.0"})
	require.NoError(t, err)
	assert.Equal(t, baselineID, result.BaselineExecutionID)
}

func TestCompareResolvesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	firstID, _ := f.seedExecution(uniformFindings(5, types.SeverityInfo, 100))
	currentID, _ := f.seedExecution(uniformFindings(5, types.SeverityInfo, 100))

	result, err := f.engine.Compare(ctx, currentID, baseline.Ref{Previous: true})
	require.NoError(t, err)
	assert.Equal(t, firstID, result.BaselineExecutionID)
}

func TestRunChannelRecoversPanic(t *testing.T) {
	f := newFixture(t)

	boom := func(current, baseline *side, threshold float64) []types.DriftFinding {
		panic("channel exploded")
	}
	findings := f.engine.runChannel(types.ChannelOutput, boom, &side{}, &side{})
	require.Len(t, findings, 1)
	assert.Equal(t, "channel_error", findings[0].Metric)
	assert.Equal(t, types.SeverityLow, findings[0].Severity)
	assert.Contains(t, findings[0].Details["error"], "channel exploded")
}
