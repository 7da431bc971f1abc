// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package metrics exposes Prometheus instrumentation for the
// execution and drift engines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal counts executions by terminal status.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptshield",
		Name:      "executions_total",
		Help:      "Executions finished, labeled by terminal status.",
	}, []string{"status"})

	// ProbesTotal counts individual probe calls by suite and outcome.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptshield",
		Name:      "probes_total",
		Help:      "Probe prompts sent, labeled by suite and outcome.",
	}, []string{"suite", "outcome"})

	// FindingsTotal counts persisted findings by severity.
	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptshield",
		Name:      "findings_total",
		Help:      "Findings persisted, labeled by severity.",
	}, []string{"severity"})

	// ExecutionDuration observes wall time per execution.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "promptshield",
		Name:      "execution_duration_seconds",
		Help:      "Wall time of one execution from Running to a terminal state.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	// DriftComparisonsTotal counts drift comparisons by outcome.
	DriftComparisonsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptshield",
		Name:      "drift_comparisons_total",
		Help:      "Drift comparisons run, labeled by outcome.",
	}, []string{"outcome"})

	// DriftChannelDuration observes per-channel computation time.
	DriftChannelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptshield",
		Name:      "drift_channel_duration_seconds",
		Help:      "Computation time per drift channel.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"channel"})

	// EmbeddingBatchesTotal counts embedding service calls by outcome.
	EmbeddingBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptshield",
		Name:      "embedding_batches_total",
		Help:      "Embedding service batch calls, labeled by outcome.",
	}, []string{"outcome"})
)
