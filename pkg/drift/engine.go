// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package drift compares two executions' persisted artifacts across
// five channels and aggregates the results into a unified drift score.
// All calculations are deterministic given the same inputs.
package drift

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teradata-labs/promptshield/internal/log"
	"github.com/teradata-labs/promptshield/pkg/baseline"
	"github.com/teradata-labs/promptshield/pkg/metrics"
	"github.com/teradata-labs/promptshield/pkg/scoring"
	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/types"
)

// DefaultComparisonTimeout bounds one full drift comparison.
const DefaultComparisonTimeout = 600 * time.Second

// state tracks a comparison through its lifecycle. Purely
// observational; failures surface as errors.
type state string

const (
	stateRequested  state = "requested"
	stateCollecting state = "collecting"
	stateComputing  state = "computing"
	stateEmitting   state = "emitting"
	stateAggregated state = "aggregated"
	stateFailed     state = "failed"
)

// Result is the outcome of one drift comparison.
type Result struct {
	ExecutionID         int64
	BaselineExecutionID int64
	Findings            []types.DriftFinding
	Score               float64
	Grade               string
}

// Config holds configuration for the drift engine.
type Config struct {
	Thresholds map[types.DriftChannel]float64 // Defaults per channel when nil
	Timeout    time.Duration                  // Default: 600s
}

// Engine runs drift comparisons.
type Engine struct {
	store      *store.Store
	baselines  *baseline.Manager
	thresholds map[types.DriftChannel]float64
	timeout    time.Duration
}

// NewEngine creates a drift engine.
func NewEngine(s *store.Store, baselines *baseline.Manager, config Config) *Engine {
	thresholds := make(map[types.DriftChannel]float64, len(DefaultThresholds))
	for channel, def := range DefaultThresholds {
		thresholds[channel] = def
		if v, ok := config.Thresholds[channel]; ok {
			thresholds[channel] = v
		}
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultComparisonTimeout
	}
	return &Engine{
		store:      s,
		baselines:  baselines,
		thresholds: thresholds,
		timeout:    timeout,
	}
}

// Compare resolves the baseline reference, runs all five channels and
// atomically replaces any prior drift findings for the (current,
// baseline) pair. Re-running the same comparison is idempotent. A
// failing channel degrades to a channel_error finding; baseline
// resolution errors abort with nothing persisted.
func (e *Engine) Compare(ctx context.Context, currentID int64, ref baseline.Ref) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	logger := log.Logger().With(zap.Int64("execution_id", currentID))
	logger.Debug("drift comparison state", zap.String("state", string(stateRequested)))

	baselineID, err := e.baselines.Resolve(ctx, currentID, ref)
	if err != nil {
		metrics.DriftComparisonsTotal.WithLabelValues("baseline_error").Inc()
		return nil, err
	}
	logger = logger.With(zap.Int64("baseline_execution_id", baselineID))

	logger.Debug("drift comparison state", zap.String("state", string(stateCollecting)))
	current, err := e.collect(ctx, currentID)
	if err != nil {
		metrics.DriftComparisonsTotal.WithLabelValues(string(stateFailed)).Inc()
		return nil, fmt.Errorf("failed to collect current execution %d: %w", currentID, err)
	}
	base, err := e.collect(ctx, baselineID)
	if err != nil {
		metrics.DriftComparisonsTotal.WithLabelValues(string(stateFailed)).Inc()
		return nil, fmt.Errorf("failed to collect baseline execution %d: %w", baselineID, err)
	}

	logger.Debug("drift comparison state", zap.String("state", string(stateComputing)))
	findings := e.compute(ctx, current, base)

	for i := range findings {
		findings[i].ExecutionID = currentID
		findings[i].BaselineExecutionID = baselineID
	}

	logger.Debug("drift comparison state", zap.String("state", string(stateEmitting)))
	if err := e.store.ReplaceDriftFindings(ctx, currentID, baselineID, findings); err != nil {
		metrics.DriftComparisonsTotal.WithLabelValues(string(stateFailed)).Inc()
		return nil, fmt.Errorf("failed to persist drift findings: %w", err)
	}

	score := scoring.DriftScore(findings)
	result := &Result{
		ExecutionID:         currentID,
		BaselineExecutionID: baselineID,
		Findings:            findings,
		Score:               score,
		Grade:               scoring.DriftGrade(score),
	}

	metrics.DriftComparisonsTotal.WithLabelValues(string(stateAggregated)).Inc()
	logger.Info("drift comparison complete",
		zap.String("state", string(stateAggregated)),
		zap.Int("findings", len(findings)),
		zap.Float64("drift_score", score),
		zap.String("drift_grade", result.Grade))
	return result, nil
}

func (e *Engine) collect(ctx context.Context, executionID int64) (*side, error) {
	s := &side{executionID: executionID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s.findings, err = e.store.ListFindings(gctx, executionID, store.FindingFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		s.counts, err = e.store.CountFindingsBySeverity(gctx, executionID)
		return err
	})
	g.Go(func() error {
		var err error
		s.embeddings, err = e.store.ListEmbeddings(gctx, executionID)
		return err
	})
	g.Go(func() error {
		var err error
		s.traces, err = e.store.ListAgentTraces(gctx, executionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

// channelFunc computes one channel's findings.
type channelFunc func(current, baseline *side, threshold float64) []types.DriftFinding

func (e *Engine) compute(ctx context.Context, current, base *side) []types.DriftFinding {
	channels := map[types.DriftChannel]channelFunc{
		types.ChannelOutput:       outputChannel,
		types.ChannelSafety:       safetyChannel,
		types.ChannelDistribution: distributionChannel,
		types.ChannelEmbedding:    embeddingChannel,
		types.ChannelAgentTool:    agentToolChannel,
	}

	results := make(map[types.DriftChannel][]types.DriftFinding, len(channels))
	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for channel, run := range channels {
		g.Go(func() error {
			start := time.Now()
			findings := e.runChannel(channel, run, current, base)
			metrics.DriftChannelDuration.WithLabelValues(string(channel)).Observe(time.Since(start).Seconds())

			mu.Lock()
			results[channel] = findings
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Deterministic channel order in the output.
	var all []types.DriftFinding
	for _, channel := range types.DriftChannels() {
		findings := results[channel]
		sort.SliceStable(findings, func(i, j int) bool { return findings[i].Metric < findings[j].Metric })
		all = append(all, findings...)
	}
	return all
}

// runChannel isolates one channel: a panic or failure degrades to a
// low-severity channel_error finding instead of aborting the
// comparison.
func (e *Engine) runChannel(channel types.DriftChannel, run channelFunc, current, base *side) (findings []types.DriftFinding) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("drift channel failed",
				zap.String("channel", string(channel)),
				zap.Any("panic", r))
			findings = []types.DriftFinding{{
				Channel:   channel,
				Metric:    "channel_error",
				Value:     0,
				Threshold: e.thresholds[channel],
				Severity:  types.SeverityLow,
				Details:   map[string]any{"error": fmt.Sprint(r)},
			}}
		}
	}()

	return run(current, base, e.thresholds[channel])
}
