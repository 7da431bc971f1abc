// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types defines the entities shared across the validation and
// drift pipeline: LLM endpoint configurations, pipelines, executions,
// findings, embeddings, baselines, drift findings and agent traces.
package types

import "time"

// LLMConfig describes the HTTP endpoint under test. It is read-only
// during execution; the engine never mutates it.
type LLMConfig struct {
	ID              int64
	Name            string
	EndpointURL     string
	Method          string
	Headers         map[string]string
	PayloadTemplate string
	TimeoutSeconds  int
	MaxRetries      int
	Environment     string
}

// Pipeline selects which probe suites and test categories an execution
// runs, against which LLM configuration.
type Pipeline struct {
	ID                 int64
	Name               string
	Libraries          []string
	TestCategories     []string
	SeverityThresholds map[Severity]int
	LLMConfigID        int64
}

// ExecutionStatus is the execution state machine. Transitions are
// monotonic with one exception: Running -> Cancelled.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether no further state transitions are allowed.
// Once terminal, no findings or embeddings may be persisted for the
// execution.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Execution is one run of a pipeline against an LLM configuration.
type Execution struct {
	ID           int64
	PipelineID   int64
	LLMConfigID  int64
	Status       ExecutionStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// RawFinding is what an adapter produces for one probe before
// normalization. Severity is a free string until the normalizer
// validates it.
type RawFinding struct {
	Library      string
	TestCategory string
	Severity     string
	RiskType     string
	Prompt       string
	Response     string
	Confidence   *float64
	Metadata     map[string]any
}

// Finding is one normalized probe outcome. Immutable once persisted.
type Finding struct {
	ID               int64
	ExecutionID      int64
	Library          string
	TestCategory     string
	Severity         Severity
	RiskType         string
	EvidencePrompt   string
	EvidenceResponse string
	Confidence       *float64
	Extra            map[string]any
	CreatedAt        time.Time
}

// Embedding holds the fixed-dimension vector for one finding's
// response. At most one embedding exists per finding.
type Embedding struct {
	ID          int64
	FindingID   int64
	ExecutionID int64
	ModelName   string
	Vector      []float64
}

// Baseline designates a completed execution as a drift comparison
// reference. Tag, when set, is unique across non-deleted baselines.
type Baseline struct {
	ID          int64
	ExecutionID int64
	PipelineID  int64
	LLMConfigID int64
	Name        string
	Tag         string
	CreatedAt   time.Time
}

// DriftChannel identifies which analysis produced a drift finding.
type DriftChannel string

const (
	ChannelOutput       DriftChannel = "output"
	ChannelSafety       DriftChannel = "safety"
	ChannelDistribution DriftChannel = "distribution"
	ChannelEmbedding    DriftChannel = "embedding"
	ChannelAgentTool    DriftChannel = "agent_tool"
)

// DriftChannels returns all channels in the order the engine runs them.
func DriftChannels() []DriftChannel {
	return []DriftChannel{ChannelOutput, ChannelSafety, ChannelDistribution, ChannelEmbedding, ChannelAgentTool}
}

// DriftFinding is one statistical observation on one channel comparing
// a current execution against a baseline execution.
type DriftFinding struct {
	ID                  int64
	ExecutionID         int64
	BaselineExecutionID int64
	Channel             DriftChannel
	Metric              string
	Value               float64
	Threshold           float64
	Severity            Severity
	Confidence          *float64
	Details             map[string]any
	CreatedAt           time.Time
}

// ToolCall is one tool invocation inside an agent trace.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
}

// AgentTrace is the ordered tool-call sequence extracted from one
// finding's metadata. Derived data, not authoritative.
type AgentTrace struct {
	ID          int64
	ExecutionID int64
	FindingID   int64
	Calls       []ToolCall
}

// ToolNames returns the tool-name sequence of the trace.
func (t AgentTrace) ToolNames() []string {
	names := make([]string, 0, len(t.Calls))
	for _, c := range t.Calls {
		names = append(names, c.Tool)
	}
	return names
}

// Float64Ptr returns a pointer to v. Convenience for optional
// confidence values.
func Float64Ptr(v float64) *float64 { return &v }
