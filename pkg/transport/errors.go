// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package transport

import "fmt"

// StatusError is a non-2xx HTTP response from the LLM endpoint.
// Retriable only for 5xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM endpoint returned status %d: %s", e.Code, truncate(e.Body, 200))
}

// Retriable reports whether the status warrants another attempt.
func (e *StatusError) Retriable() bool { return e.Code >= 500 }

// PayloadRenderError means the payload template did not produce valid
// JSON after placeholder substitution. Fatal to the single probe.
type PayloadRenderError struct {
	Err error
}

func (e *PayloadRenderError) Error() string {
	return fmt.Sprintf("failed to render payload template: %v", e.Err)
}

func (e *PayloadRenderError) Unwrap() error { return e.Err }

// EnvelopeError means the endpoint answered 2xx but the body is an
// error envelope rather than a completion. Callers record it as an
// adapter_error finding.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("LLM endpoint returned an error envelope: %s", truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
