// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package trace reconstructs agent tool-call sequences from finding
// metadata for agent/tool drift analysis.
package trace

import (
	"github.com/teradata-labs/promptshield/pkg/types"
)

// metadataKey is where adapters place trace data in Finding.Extra.
const metadataKey = "agent_trace"

// Extract reads the recognized trace shape from a finding's metadata:
//
//	{"agent_trace": [{"tool": "...", "args": {...}, "result": "..."}, ...]}
//
// "tool_name" is accepted as an alias for "tool". Entries without a
// tool name are skipped. Returns false when the finding carries no
// usable trace.
func Extract(f types.Finding) (types.AgentTrace, bool) {
	raw, ok := f.Extra[metadataKey]
	if !ok {
		return types.AgentTrace{}, false
	}

	entries, ok := raw.([]any)
	if !ok {
		return types.AgentTrace{}, false
	}

	var calls []types.ToolCall
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		tool, _ := m["tool"].(string)
		if tool == "" {
			tool, _ = m["tool_name"].(string)
		}
		if tool == "" {
			continue
		}

		call := types.ToolCall{Tool: tool}
		if args, ok := m["args"].(map[string]any); ok {
			call.Args = args
		}
		if result, ok := m["result"].(string); ok {
			call.Result = result
		}
		calls = append(calls, call)
	}

	if len(calls) == 0 {
		return types.AgentTrace{}, false
	}

	return types.AgentTrace{
		ExecutionID: f.ExecutionID,
		FindingID:   f.ID,
		Calls:       calls,
	}, true
}

// ExtractAll returns the traces found across a set of findings.
func ExtractAll(findings []types.Finding) []types.AgentTrace {
	var traces []types.AgentTrace
	for _, f := range findings {
		if t, ok := Extract(f); ok {
			traces = append(traces, t)
		}
	}
	return traces
}
