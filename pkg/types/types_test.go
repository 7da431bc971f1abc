// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		raw  string
		want Severity
		ok   bool
	}{
		{"critical", SeverityCritical, true},
		{"HIGH", SeverityHigh, true},
		{" medium ", SeverityMedium, true},
		{"low", SeverityLow, true},
		{"info", SeverityInfo, true},
		{"warning", SeverityMedium, true},
		{"error", SeverityHigh, true},
		{"bogus", SeverityInfo, false},
		{"", SeverityInfo, false},
	}

	for _, tt := range tests {
		sev, ok := ParseSeverity(tt.raw)
		assert.Equal(t, tt.want, sev, "raw=%q", tt.raw)
		assert.Equal(t, tt.ok, ok, "raw=%q", tt.raw)
	}
}

func TestSeverityValid(t *testing.T) {
	for _, s := range Severities() {
		assert.True(t, s.Valid())
	}
	assert.False(t, Severity("warning").Valid())
	assert.False(t, Severity("").Valid())
}

func TestExecutionStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestAgentTraceToolNames(t *testing.T) {
	trace := AgentTrace{
		Calls: []ToolCall{
			{Tool: "search"},
			{Tool: "calculator"},
			{Tool: "search"},
		},
	}
	assert.Equal(t, []string{"search", "calculator", "search"}, trace.ToolNames())
}
