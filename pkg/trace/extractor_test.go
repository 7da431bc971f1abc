// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/promptshield/pkg/types"
)

func TestExtractRecognizedShape(t *testing.T) {
	f := types.Finding{
		ID:          7,
		ExecutionID: 3,
		Extra: map[string]any{
			"agent_trace": []any{
				map[string]any{"tool": "search", "args": map[string]any{"q": "weather"}, "result": "sunny"},
				map[string]any{"tool": "calculator"},
			},
		},
	}

	trace, ok := Extract(f)
	require.True(t, ok)
	assert.Equal(t, int64(3), trace.ExecutionID)
	assert.Equal(t, int64(7), trace.FindingID)
	require.Len(t, trace.Calls, 2)
	assert.Equal(t, "search", trace.Calls[0].Tool)
	assert.Equal(t, "sunny", trace.Calls[0].Result)
	assert.Equal(t, "weather", trace.Calls[0].Args["q"])
}

func TestExtractToolNameAlias(t *testing.T) {
	f := types.Finding{
		Extra: map[string]any{
			"agent_trace": []any{
				map[string]any{"tool_name": "browser"},
			},
		},
	}
	trace, ok := Extract(f)
	require.True(t, ok)
	assert.Equal(t, "browser", trace.Calls[0].Tool)
}

func TestExtractSkipsMalformedEntries(t *testing.T) {
	f := types.Finding{
		Extra: map[string]any{
			"agent_trace": []any{
				"not a map",
				map[string]any{"args": map[string]any{}}, // no tool name
				map[string]any{"tool": "valid"},
			},
		},
	}
	trace, ok := Extract(f)
	require.True(t, ok)
	require.Len(t, trace.Calls, 1)
	assert.Equal(t, "valid", trace.Calls[0].Tool)
}

func TestExtractAbsentOrUnusable(t *testing.T) {
	tests := []struct {
		name  string
		extra map[string]any
	}{
		{"no metadata", nil},
		{"no trace key", map[string]any{"probe": "dan"}},
		{"wrong type", map[string]any{"agent_trace": "oops"}},
		{"empty list", map[string]any{"agent_trace": []any{}}},
		{"all malformed", map[string]any{"agent_trace": []any{map[string]any{"x": 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Extract(types.Finding{Extra: tt.extra})
			assert.False(t, ok)
		})
	}
}

func TestExtractAll(t *testing.T) {
	findings := []types.Finding{
		{ID: 1, Extra: map[string]any{"agent_trace": []any{map[string]any{"tool": "a"}}}},
		{ID: 2},
		{ID: 3, Extra: map[string]any{"agent_trace": []any{map[string]any{"tool": "b"}}}},
	}

	traces := ExtractAll(findings)
	require.Len(t, traces, 2)
	assert.Equal(t, int64(1), traces[0].FindingID)
	assert.Equal(t, int64(3), traces[1].FindingID)
}
