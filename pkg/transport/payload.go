// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package transport

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	promptPlaceholder = "{prompt}"
	systemPlaceholder = "{system_prompt}"
)

// RenderPayload substitutes {prompt} and {system_prompt} into the raw
// JSON template text and parses the result. Substituting before parsing
// preserves the user's JSON intent and fails loudly on malformed
// templates.
//
// If the parsed object has no "messages" array but the template
// contained either placeholder, a messages array is synthesized with a
// system entry (when systemPrompt is non-empty) followed by a user
// entry. Templates without placeholders pass through verbatim. An empty
// template yields a plain chat-messages payload.
func RenderPayload(template, prompt, systemPrompt string) ([]byte, error) {
	if strings.TrimSpace(template) == "" {
		return marshalChatPayload(nil, prompt, systemPrompt)
	}

	hadPlaceholder := strings.Contains(template, promptPlaceholder) ||
		strings.Contains(template, systemPlaceholder)

	rendered := strings.ReplaceAll(template, promptPlaceholder, jsonEscape(prompt))
	rendered = strings.ReplaceAll(rendered, systemPlaceholder, jsonEscape(systemPrompt))

	var payload map[string]any
	if err := json.Unmarshal([]byte(rendered), &payload); err != nil {
		// Non-object templates (arrays, bare strings) are passed
		// through as long as they are valid JSON.
		var anyPayload any
		if jsonErr := json.Unmarshal([]byte(rendered), &anyPayload); jsonErr != nil {
			return nil, &PayloadRenderError{Err: jsonErr}
		}
		return []byte(rendered), nil
	}

	if _, hasMessages := payload["messages"]; !hasMessages && hadPlaceholder {
		return marshalChatPayload(payload, prompt, systemPrompt)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, &PayloadRenderError{Err: err}
	}
	return out, nil
}

// marshalChatPayload adds a synthesized messages array to base (which
// may be nil) and marshals it.
func marshalChatPayload(base map[string]any, prompt, systemPrompt string) ([]byte, error) {
	if base == nil {
		base = make(map[string]any)
	}

	var messages []map[string]string
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})
	base["messages"] = messages

	out, err := json.Marshal(base)
	if err != nil {
		return nil, &PayloadRenderError{Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}
	return out, nil
}

// jsonEscape returns s escaped for inclusion inside a JSON string
// literal, without the surrounding quotes.
func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
