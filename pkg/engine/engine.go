// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package engine runs validation pipelines: it fans the (probe suite,
// category) work set onto a bounded worker pool, normalizes and
// persists every raw finding, and drives the execution state machine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/promptshield/internal/log"
	"github.com/teradata-labs/promptshield/pkg/adapters"
	"github.com/teradata-labs/promptshield/pkg/embeddings"
	"github.com/teradata-labs/promptshield/pkg/metrics"
	"github.com/teradata-labs/promptshield/pkg/normalize"
	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/trace"
	"github.com/teradata-labs/promptshield/pkg/types"
)

const (
	// DefaultWorkerParallelism bounds concurrent jobs per execution.
	DefaultWorkerParallelism = 8

	// jobTimeBudget scales the per-execution timeout with the size of
	// the work set.
	jobTimeBudget = 300 * time.Second
)

// Config holds configuration for the execution engine.
type Config struct {
	WorkerParallelism int  // Default: 8
	EnableAgentTraces bool // Default: false
}

// Engine executes pipelines against LLM endpoints. Safe for concurrent
// use; multiple executions may run at once.
type Engine struct {
	store    *store.Store
	registry *adapters.Registry
	embedder *embeddings.Client // nil disables the embedding hook

	parallelism  int
	enableTraces bool

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
}

// NewEngine creates an execution engine. embedder may be nil when no
// embedding service is configured.
func NewEngine(s *store.Store, registry *adapters.Registry, embedder *embeddings.Client, config Config) *Engine {
	parallelism := config.WorkerParallelism
	if parallelism <= 0 {
		parallelism = DefaultWorkerParallelism
	}
	return &Engine{
		store:        s,
		registry:     registry,
		embedder:     embedder,
		parallelism:  parallelism,
		enableTraces: config.EnableAgentTraces,
		cancels:      make(map[int64]context.CancelFunc),
	}
}

// StartExecution creates a Pending execution for the pipeline. The
// caller schedules RunExecution.
func (e *Engine) StartExecution(ctx context.Context, pipelineID, llmConfigID int64) (int64, error) {
	id, err := e.store.CreateExecution(ctx, pipelineID, llmConfigID)
	if err != nil {
		return 0, fmt.Errorf("failed to create execution: %w", err)
	}
	log.Info("execution created",
		zap.Int64("execution_id", id),
		zap.Int64("pipeline_id", pipelineID),
		zap.Int64("llm_config_id", llmConfigID))
	return id, nil
}

// CancelExecution signals a running execution to stop. Workers finish
// their in-flight probe and drain; the execution lands in Cancelled.
// Idempotent; a no-op for unknown or already finished executions.
func (e *Engine) CancelExecution(executionID int64) {
	e.mu.Lock()
	cancel, ok := e.cancels[executionID]
	e.mu.Unlock()
	if ok {
		log.Info("execution cancel requested", zap.Int64("execution_id", executionID))
		cancel()
	}
}

// job is one (probe suite, category) unit of work.
type job struct {
	adapter  adapters.Adapter
	category string
}

// RunExecution drives one execution from Pending to a terminal state.
// Adapter failures are isolated into adapter_error findings; only a
// persistence failure by the engine itself fails the execution.
func (e *Engine) RunExecution(ctx context.Context, executionID int64) error {
	exec, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %d: %w", executionID, err)
	}
	pipeline, err := e.store.GetPipeline(ctx, exec.PipelineID)
	if err != nil {
		return fmt.Errorf("failed to load pipeline %d: %w", exec.PipelineID, err)
	}
	cfg, err := e.store.GetLLMConfig(ctx, exec.LLMConfigID)
	if err != nil {
		return fmt.Errorf("failed to load llm config %d: %w", exec.LLMConfigID, err)
	}

	logger := log.Logger().With(
		zap.Int64("execution_id", executionID),
		zap.String("run_id", uuid.NewString()),
		zap.String("pipeline", pipeline.Name))

	if err := e.store.TransitionExecution(ctx, executionID, types.StatusPending, types.StatusRunning); err != nil {
		return fmt.Errorf("failed to start execution %d: %w", executionID, err)
	}
	started := time.Now()

	jobs := e.workSet(pipeline, logger)
	logger.Info("execution started",
		zap.Int("jobs", len(jobs)),
		zap.Int("parallelism", e.parallelism))

	result, timedOut, cancelled := e.runJobs(ctx, executionID, cfg, jobs, logger)

	// Status updates and hooks must survive the worker context.
	finishCtx := context.WithoutCancel(ctx)

	var runErr error
	var terminal types.ExecutionStatus
	switch {
	case result.persistErr != nil:
		terminal = types.StatusFailed
		runErr = fmt.Errorf("failed to persist findings: %w", result.persistErr)
		if err := e.store.FailExecution(finishCtx, executionID, types.StatusRunning, result.persistErr.Error()); err != nil {
			logger.Error("failed to mark execution failed", zap.Error(err))
		}

	case cancelled:
		terminal = types.StatusCancelled
		if err := e.store.TransitionExecution(finishCtx, executionID, types.StatusRunning, types.StatusCancelled); err != nil {
			logger.Error("failed to mark execution cancelled", zap.Error(err))
		}

	case timedOut:
		terminal = types.StatusFailed
		runErr = fmt.Errorf("execution %d timed out", executionID)
		msg := fmt.Sprintf("execution timed out after %s", time.Duration(len(jobs))*jobTimeBudget)
		if err := e.store.FailExecution(finishCtx, executionID, types.StatusRunning, msg); err != nil {
			logger.Error("failed to mark execution failed", zap.Error(err))
		}

	default:
		// Post-execution hooks are best-effort; the execution
		// completes regardless.
		e.runHooks(finishCtx, executionID, logger)
		terminal = types.StatusCompleted
		if err := e.store.TransitionExecution(finishCtx, executionID, types.StatusRunning, types.StatusCompleted); err != nil {
			logger.Error("failed to mark execution completed", zap.Error(err))
			runErr = fmt.Errorf("failed to complete execution %d: %w", executionID, err)
			terminal = types.StatusFailed
		}
	}

	metrics.ExecutionsTotal.WithLabelValues(string(terminal)).Inc()
	metrics.ExecutionDuration.Observe(time.Since(started).Seconds())
	logger.Info("execution finished",
		zap.String("status", string(terminal)),
		zap.Duration("duration", time.Since(started)))
	return runErr
}

// workSet expands the pipeline into (adapter, category) jobs. Unknown
// suites and unsupported categories are skipped.
func (e *Engine) workSet(pipeline *types.Pipeline, logger *zap.Logger) []job {
	var jobs []job
	for _, library := range pipeline.Libraries {
		adapter, err := e.registry.Get(library)
		if err != nil {
			logger.Warn("skipping unknown probe suite", zap.String("library", library))
			continue
		}
		for _, category := range pipeline.TestCategories {
			if !adapter.Supports(category) {
				continue
			}
			jobs = append(jobs, job{adapter: adapter, category: category})
		}
	}
	return jobs
}

// runResult carries the outcome of the worker phase.
type runResult struct {
	persistErr error
}

// runJobs fans the work set onto the bounded pool. The cancel signal is
// observed between jobs; in-flight probes finish and persist.
func (e *Engine) runJobs(ctx context.Context, executionID int64, cfg *types.LLMConfig, jobs []job, logger *zap.Logger) (*runResult, bool, bool) {
	timeout := time.Duration(len(jobs)) * jobTimeBudget
	if timeout == 0 {
		timeout = jobTimeBudget
	}
	workCtx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	workCtx, cancel := context.WithCancel(workCtx)
	defer cancel()

	var cancelRequested bool
	var cancelMu sync.Mutex
	e.mu.Lock()
	e.cancels[executionID] = func() {
		cancelMu.Lock()
		cancelRequested = true
		cancelMu.Unlock()
		cancel()
	}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cancels, executionID)
		e.mu.Unlock()
	}()

	result := &runResult{}
	var resultMu sync.Mutex
	fail := func(err error) {
		resultMu.Lock()
		if result.persistErr == nil {
			result.persistErr = err
		}
		resultMu.Unlock()
		cancel()
	}

	sem := make(chan struct{}, e.parallelism)
	var wg sync.WaitGroup
	for _, j := range jobs {
		if workCtx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.runJob(workCtx, executionID, cfg, j, fail, logger)
		}()
	}
	wg.Wait()

	cancelMu.Lock()
	wasCancelled := cancelRequested
	cancelMu.Unlock()
	timedOut := !wasCancelled && errors.Is(workCtx.Err(), context.DeadlineExceeded)
	return result, timedOut, wasCancelled
}

// runJob executes one (adapter, category) job and persists its
// findings. A panicking or failing adapter degrades to one
// adapter_error finding.
func (e *Engine) runJob(ctx context.Context, executionID int64, cfg *types.LLMConfig, j job, fail func(error), logger *zap.Logger) {
	raws, err := func() (raws []types.RawFinding, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("probe suite panicked",
					zap.String("library", j.adapter.Name()),
					zap.String("category", j.category),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
				raws = append(raws, types.RawFinding{
					Library:      j.adapter.Name(),
					TestCategory: j.category,
					Severity:     string(types.SeverityInfo),
					RiskType:     "adapter_error",
					Metadata: map[string]any{
						"error": fmt.Sprint(r),
						"stack": string(debug.Stack()),
					},
				})
				err = nil
			}
		}()
		return j.adapter.Execute(ctx, cfg, []string{j.category})
	}()

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Drain: partial findings from before the signal still persist.
		outcome = "cancelled"
	default:
		outcome = "error"
		logger.Error("probe suite failed",
			zap.String("library", j.adapter.Name()),
			zap.String("category", j.category),
			zap.Error(err))
		raws = append(raws, types.RawFinding{
			Library:      j.adapter.Name(),
			TestCategory: j.category,
			Severity:     string(types.SeverityInfo),
			RiskType:     "adapter_error",
			Metadata:     map[string]any{"error": err.Error()},
		})
	}
	metrics.ProbesTotal.WithLabelValues(j.adapter.Name(), outcome).Inc()

	if len(raws) == 0 {
		return
	}

	findings := make([]types.Finding, 0, len(raws))
	for _, raw := range raws {
		findings = append(findings, normalize.Normalize(executionID, raw))
	}

	// DB writes use a context that outlives cancellation so drained
	// findings are not lost.
	if _, err := e.store.InsertFindings(context.WithoutCancel(ctx), executionID, findings); err != nil {
		fail(fmt.Errorf("failed to insert findings for %s/%s: %w", j.adapter.Name(), j.category, err))
		return
	}
	for _, f := range findings {
		metrics.FindingsTotal.WithLabelValues(string(f.Severity)).Inc()
	}
}

// runHooks runs the post-execution hooks: embedding generation and
// agent-trace extraction. Failures log and never fail the execution.
func (e *Engine) runHooks(ctx context.Context, executionID int64, logger *zap.Logger) {
	findings, err := e.store.ListFindings(ctx, executionID, store.FindingFilter{})
	if err != nil {
		logger.Warn("post-execution hooks skipped", zap.Error(err))
		return
	}

	e.embedFindings(ctx, executionID, findings, logger)

	if e.enableTraces {
		e.extractTraces(ctx, executionID, findings, logger)
	}
}

// embedFindings requests vectors for every non-empty evidence response
// and stores one embedding per finding.
func (e *Engine) embedFindings(ctx context.Context, executionID int64, findings []types.Finding, logger *zap.Logger) {
	if e.embedder == nil {
		return
	}

	var ids []int64
	var texts []string
	for _, f := range findings {
		if f.EvidenceResponse == "" {
			continue
		}
		ids = append(ids, f.ID)
		texts = append(texts, f.EvidenceResponse)
	}
	if len(texts) == 0 {
		return
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		metrics.EmbeddingBatchesTotal.WithLabelValues("error").Inc()
		logger.Warn("embedding generation failed", zap.Error(err))
		return
	}
	metrics.EmbeddingBatchesTotal.WithLabelValues("ok").Inc()

	stored := 0
	for i, vec := range vectors {
		_, err := e.store.InsertEmbedding(ctx, types.Embedding{
			FindingID:   ids[i],
			ExecutionID: executionID,
			ModelName:   e.embedder.ModelName(),
			Vector:      vec,
		})
		if err != nil {
			logger.Warn("failed to store embedding",
				zap.Int64("finding_id", ids[i]),
				zap.Error(err))
			continue
		}
		stored++
	}
	logger.Info("embeddings stored",
		zap.Int("count", stored),
		zap.String("model", e.embedder.ModelName()))
}

// extractTraces persists agent traces found in finding metadata.
func (e *Engine) extractTraces(ctx context.Context, executionID int64, findings []types.Finding, logger *zap.Logger) {
	traces := trace.ExtractAll(findings)
	for _, t := range traces {
		t.ExecutionID = executionID
		if _, err := e.store.InsertAgentTrace(ctx, t); err != nil && !errors.Is(err, store.ErrConflict) {
			logger.Warn("failed to store agent trace",
				zap.Int64("finding_id", t.FindingID),
				zap.Error(err))
		}
	}
	if len(traces) > 0 {
		logger.Info("agent traces stored", zap.Int("count", len(traces)))
	}
}

// ListFindings returns the persisted findings of an execution.
func (e *Engine) ListFindings(ctx context.Context, executionID int64, filter store.FindingFilter) ([]types.Finding, error) {
	return e.store.ListFindings(ctx, executionID, filter)
}
