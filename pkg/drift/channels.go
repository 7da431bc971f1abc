// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package drift

import (
	"math"

	"github.com/teradata-labs/promptshield/pkg/embeddings"
	"github.com/teradata-labs/promptshield/pkg/scoring"
	"github.com/teradata-labs/promptshield/pkg/types"
)

// Default per-channel thresholds.
var DefaultThresholds = map[types.DriftChannel]float64{
	types.ChannelOutput:       0.20,
	types.ChannelSafety:       0.15,
	types.ChannelDistribution: 0.20,
	types.ChannelEmbedding:    0.30,
	types.ChannelAgentTool:    0.25,
}

// Fixed per-metric confidence values for metrics without a p-value.
const (
	confidenceEntropy     = 0.7
	confidenceSafety      = 0.9
	confidencePSI         = 0.8
	confidenceEmbedding   = 0.85
	confidenceToolSeq     = 0.75
	confidenceToolFreq    = 0.8
	minConsecutiveRepeats = 3
)

// side bundles one execution's persisted artifacts for comparison.
type side struct {
	executionID int64
	findings    []types.Finding
	counts      map[types.Severity]int
	embeddings  []types.Embedding
	traces      []types.AgentTrace
}

func (s *side) responses() []string {
	var out []string
	for _, f := range s.findings {
		if f.EvidenceResponse != "" {
			out = append(out, f.EvidenceResponse)
		}
	}
	return out
}

func (s *side) responseLengths() []float64 {
	var out []float64
	for _, f := range s.findings {
		if f.EvidenceResponse != "" {
			out = append(out, float64(len(f.EvidenceResponse)))
		}
	}
	return out
}

func (s *side) toolCounts() map[string]int {
	counts := make(map[string]int)
	for _, t := range s.traces {
		for _, name := range t.ToolNames() {
			counts[name]++
		}
	}
	return counts
}

func (s *side) toolSequences() [][]string {
	var out [][]string
	for _, t := range s.traces {
		out = append(out, t.ToolNames())
	}
	return out
}

// assignSeverity maps a drift value to a severity, or false when the
// value is too small to report.
func assignSeverity(v float64) (types.Severity, bool) {
	switch {
	case v >= 0.45:
		return types.SeverityCritical, true
	case v >= 0.30:
		return types.SeverityHigh, true
	case v >= 0.20:
		return types.SeverityMedium, true
	case v >= 0.10:
		return types.SeverityLow, true
	default:
		return "", false
	}
}

// psiSeverity uses the PSI-specific brackets; values below the channel
// threshold are not reported.
func psiSeverity(v, threshold float64) (types.Severity, bool) {
	switch {
	case v >= 0.25:
		return types.SeverityCritical, true
	case v >= 0.15:
		return types.SeverityHigh, true
	case v >= 0.10:
		return types.SeverityMedium, true
	case v >= threshold:
		return types.SeverityLow, true
	default:
		return "", false
	}
}

// outputChannel compares response length distributions and response
// entropy.
func outputChannel(current, baseline *side, threshold float64) []types.DriftFinding {
	var findings []types.DriftFinding

	currentLengths := current.responseLengths()
	baselineLengths := baseline.responseLengths()

	if len(currentLengths) > 0 && len(baselineLengths) > 0 {
		d := ksStatistic(currentLengths, baselineLengths)
		if sev, ok := assignSeverity(d); ok {
			p := ksPValue(d, len(currentLengths), len(baselineLengths))
			findings = append(findings, types.DriftFinding{
				Channel:    types.ChannelOutput,
				Metric:     "response_length_ks",
				Value:      d,
				Threshold:  threshold,
				Severity:   sev,
				Confidence: types.Float64Ptr(clamp01(1 - p)),
				Details: map[string]any{
					"ks_statistic":         d,
					"p_value":              p,
					"current_mean_length":  mean(currentLengths),
					"baseline_mean_length": mean(baselineLengths),
				},
			})
		}
	}

	currentEntropy := meanEntropy(current.responses())
	baselineEntropy := meanEntropy(baseline.responses())
	entropyDelta := math.Abs(currentEntropy-baselineEntropy) / math.Max(baselineEntropy, entropyEpsilon)
	if sev, ok := assignSeverity(entropyDelta); ok {
		findings = append(findings, types.DriftFinding{
			Channel:    types.ChannelOutput,
			Metric:     "response_entropy_delta",
			Value:      entropyDelta,
			Threshold:  threshold,
			Severity:   sev,
			Confidence: types.Float64Ptr(confidenceEntropy),
			Details: map[string]any{
				"current_entropy":  currentEntropy,
				"baseline_entropy": baselineEntropy,
			},
		})
	}

	return findings
}

// safetyChannel compares safety scores and per-severity finding
// counts.
func safetyChannel(current, baseline *side, threshold float64) []types.DriftFinding {
	var findings []types.DriftFinding

	currentScore := scoring.SafetyScore(current.counts)
	baselineScore := scoring.SafetyScore(baseline.counts)
	scoreDelta := math.Abs(currentScore-baselineScore) / 100

	if sev, ok := assignSeverity(scoreDelta); ok {
		findings = append(findings, types.DriftFinding{
			Channel:    types.ChannelSafety,
			Metric:     "safety_score_delta",
			Value:      scoreDelta,
			Threshold:  threshold,
			Severity:   sev,
			Confidence: types.Float64Ptr(confidenceSafety),
			Details: map[string]any{
				"current_safety_score":  currentScore,
				"baseline_safety_score": baselineScore,
			},
		})
	}

	for _, severity := range types.Severities() {
		delta := current.counts[severity] - baseline.counts[severity]
		if delta == 0 {
			continue
		}
		denom := baseline.counts[severity]
		if denom < 1 {
			denom = 1
		}
		value := math.Abs(float64(delta)) / float64(denom)
		sev, ok := assignSeverity(value)
		if !ok {
			continue
		}
		findings = append(findings, types.DriftFinding{
			Channel:    types.ChannelSafety,
			Metric:     "severity_count_delta_" + string(severity),
			Value:      value,
			Threshold:  threshold,
			Severity:   sev,
			Confidence: types.Float64Ptr(confidenceSafety),
			Details: map[string]any{
				"severity":       string(severity),
				"current_count":  current.counts[severity],
				"baseline_count": baseline.counts[severity],
				"delta":          delta,
			},
		})
	}

	return findings
}

// distributionChannel computes PSI over the severity distribution.
func distributionChannel(current, baseline *side, threshold float64) []types.DriftFinding {
	value := psi(current.counts, baseline.counts)
	sev, ok := psiSeverity(value, threshold)
	if !ok {
		return nil
	}
	return []types.DriftFinding{{
		Channel:    types.ChannelDistribution,
		Metric:     "severity_psi",
		Value:      value,
		Threshold:  threshold,
		Severity:   sev,
		Confidence: types.Float64Ptr(confidencePSI),
		Details: map[string]any{
			"psi_value":         value,
			"current_severity":  severityCounts(current.counts),
			"baseline_severity": severityCounts(baseline.counts),
		},
	}}
}

// embeddingChannel compares the semantic centroids of both sides.
// Both sides need embeddings under the same model; when only one side
// has vectors, or the models differ, a single low-severity
// unavailability marker is emitted instead.
func embeddingChannel(current, baseline *side, threshold float64) []types.DriftFinding {
	currentModel := sharedModelName(current.embeddings)
	baselineModel := sharedModelName(baseline.embeddings)

	// Neither side ever had embeddings: nothing to say.
	if len(current.embeddings) == 0 && len(baseline.embeddings) == 0 {
		return nil
	}

	if len(current.embeddings) == 0 || len(baseline.embeddings) == 0 || currentModel == "" || currentModel != baselineModel {
		return []types.DriftFinding{{
			Channel:   types.ChannelEmbedding,
			Metric:    "embeddings_unavailable",
			Value:     0,
			Threshold: threshold,
			Severity:  types.SeverityLow,
			Details: map[string]any{
				"current_embedding_count":  len(current.embeddings),
				"baseline_embedding_count": len(baseline.embeddings),
				"current_model":            currentModel,
				"baseline_model":           baselineModel,
			},
		}}
	}

	currentVectors := vectorsOf(current.embeddings)
	baselineVectors := vectorsOf(baseline.embeddings)

	similarity := embeddings.CosineSimilarity(
		embeddings.Centroid(currentVectors),
		embeddings.Centroid(baselineVectors),
	)
	distance := 1 - similarity

	var findings []types.DriftFinding
	// Centroid distance below the channel threshold is noise for
	// high-dimensional embeddings; nothing is reported.
	if sev, ok := assignSeverity(distance); ok && distance >= threshold {
		findings = append(findings, types.DriftFinding{
			Channel:    types.ChannelEmbedding,
			Metric:     "centroid_cosine_distance",
			Value:      distance,
			Threshold:  threshold,
			Severity:   sev,
			Confidence: types.Float64Ptr(confidenceEmbedding),
			Details: map[string]any{
				"cosine_similarity":        similarity,
				"current_embedding_count":  len(current.embeddings),
				"baseline_embedding_count": len(baseline.embeddings),
				"model":                    currentModel,
			},
		})
	}

	varianceDelta := math.Abs(
		embeddings.PairwiseSimilarityVariance(currentVectors) -
			embeddings.PairwiseSimilarityVariance(baselineVectors))
	if sev, ok := assignSeverity(varianceDelta); ok && varianceDelta >= threshold {
		findings = append(findings, types.DriftFinding{
			Channel:    types.ChannelEmbedding,
			Metric:     "pairwise_similarity_variance_delta",
			Value:      varianceDelta,
			Threshold:  threshold,
			Severity:   sev,
			Confidence: types.Float64Ptr(confidenceEmbedding),
			Details: map[string]any{
				"variance_delta": varianceDelta,
			},
		})
	}

	return findings
}

// agentToolChannel compares tool usage between the two sides. Only
// emitted when both sides have at least one trace.
func agentToolChannel(current, baseline *side, threshold float64) []types.DriftFinding {
	if len(current.traces) == 0 || len(baseline.traces) == 0 {
		return nil
	}

	var findings []types.DriftFinding
	currentTools := current.toolCounts()
	baselineTools := baseline.toolCounts()

	// Tool frequency.
	freq := chiSquaredNormalized(currentTools, baselineTools)
	if sev, ok := assignSeverity(freq); ok {
		findings = append(findings, types.DriftFinding{
			Channel:    types.ChannelAgentTool,
			Metric:     "tool_frequency_chi2",
			Value:      freq,
			Threshold:  threshold,
			Severity:   sev,
			Confidence: types.Float64Ptr(confidenceToolFreq),
			Details: map[string]any{
				"current_tool_counts":  currentTools,
				"baseline_tool_counts": baselineTools,
			},
		})
	}

	// Tool sequence bigrams.
	seqDistance := bigramJaccardDistance(current.toolSequences(), baseline.toolSequences())
	if sev, ok := assignSeverity(seqDistance); ok {
		findings = append(findings, types.DriftFinding{
			Channel:    types.ChannelAgentTool,
			Metric:     "tool_sequence_jaccard",
			Value:      seqDistance,
			Threshold:  threshold,
			Severity:   sev,
			Confidence: types.Float64Ptr(confidenceToolSeq),
			Details: map[string]any{
				"jaccard_distance": seqDistance,
			},
		})
	}

	// New-tool introduction.
	for tool := range currentTools {
		if _, known := baselineTools[tool]; !known {
			findings = append(findings, types.DriftFinding{
				Channel:   types.ChannelAgentTool,
				Metric:    "new_tool_introduced",
				Value:     1.0,
				Threshold: threshold,
				Severity:  types.SeverityLow,
				Details:   map[string]any{"tool": tool},
			})
		}
	}

	// Loop detection: a tool repeating at least three times in a row
	// in a current trace, with no such repeat anywhere in baseline.
	baselineLoops := loopingTools(baseline.toolSequences())
	for tool := range loopingTools(current.toolSequences()) {
		if _, known := baselineLoops[tool]; known {
			continue
		}
		findings = append(findings, types.DriftFinding{
			Channel:   types.ChannelAgentTool,
			Metric:    "tool_loop_detected",
			Value:     1.0,
			Threshold: threshold,
			Severity:  types.SeverityMedium,
			Details:   map[string]any{"tool": tool},
		})
	}

	return findings
}

// loopingTools returns the set of tools with minConsecutiveRepeats or
// more consecutive invocations in any sequence.
func loopingTools(sequences [][]string) map[string]struct{} {
	loops := make(map[string]struct{})
	for _, seq := range sequences {
		run := 0
		prev := ""
		for _, tool := range seq {
			if tool == prev {
				run++
			} else {
				run = 1
				prev = tool
			}
			if run >= minConsecutiveRepeats {
				loops[tool] = struct{}{}
			}
		}
	}
	return loops
}

func sharedModelName(embs []types.Embedding) string {
	if len(embs) == 0 {
		return ""
	}
	name := embs[0].ModelName
	for _, e := range embs[1:] {
		if e.ModelName != name {
			return ""
		}
	}
	return name
}

func vectorsOf(embs []types.Embedding) [][]float64 {
	out := make([][]float64, len(embs))
	for i, e := range embs {
		out[i] = e.Vector
	}
	return out
}

func severityCounts(counts map[types.Severity]int) map[string]int {
	out := make(map[string]int, len(counts))
	for sev, n := range counts {
		out[string(sev)] = n
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
