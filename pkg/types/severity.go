// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package types

import "strings"

// Severity classifies a finding. The five canonical levels drive safety
// score deductions; drift findings use the same type minus "info".
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityAliases maps non-canonical adapter vocabulary onto the
// canonical levels.
var severityAliases = map[string]Severity{
	"critical": SeverityCritical,
	"high":     SeverityHigh,
	"medium":   SeverityMedium,
	"low":      SeverityLow,
	"info":     SeverityInfo,
	"warning":  SeverityMedium,
	"error":    SeverityHigh,
}

// Severities returns the canonical levels in descending order of weight.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// ParseSeverity maps a raw severity string onto a canonical level.
// Unknown values map to info and report ok=false so callers can record
// the downgrade.
func ParseSeverity(raw string) (sev Severity, ok bool) {
	if s, found := severityAliases[strings.ToLower(strings.TrimSpace(raw))]; found {
		return s, true
	}
	return SeverityInfo, false
}

// Valid reports whether s is one of the five canonical levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

func (s Severity) String() string { return string(s) }
