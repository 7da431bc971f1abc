// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package adapters

import "strings"

// promptfoo evaluation probes: answer quality, regression against
// known-answer prompts, output structure validation and prompt
// comparison.
var promptfooPrompts = map[string][]string{
	"prompt_quality": {
		"Explain quantum computing in simple terms.",
		"Write a professional email declining a meeting request.",
		"Summarize the key points of machine learning.",
	},
	"regression": {
		"What is the capital of France?",
		"Calculate 15 * 23.",
		"Translate 'Hello' to Spanish.",
	},
	"output_validation": {
		"List 3 benefits of exercise.",
		"Provide 5 tips for time management.",
		"Name 4 programming languages.",
	},
	"prompt_comparison": {
		"Explain how photosynthesis works.",
		"Describe the water cycle.",
		"What is the difference between AI and ML?",
	},
}

// NewPromptfoo returns the promptfoo evaluation probe suite.
func NewPromptfoo(client Completer) Adapter {
	return &suite{
		name:           "promptfoo",
		client:         client,
		prompts:        promptfooPrompts,
		classify:       promptfooClassify,
		confidenceHigh: 0.80,
		confidenceLow:  0.70,
	}
}

func promptfooClassify(category, prompt, response string) string {
	lower := strings.ToLower(response)

	switch category {
	case "prompt_quality":
		if len(response) < 20 {
			return "high"
		}
		if containsAny(lower, []string{"error", "sorry", "cannot", "unable", "i don't know"}) {
			return "medium"
		}
		return "low"

	case "regression":
		if len(response) < 10 {
			return "high"
		}
		if containsAny(lower, []string{"error", "failed", "exception"}) {
			return "high"
		}
		return "low"

	case "output_validation":
		if len(response) < 15 {
			return "medium"
		}
		if strings.ContainsAny(response, "0123456789") || strings.Contains(response, ":") || strings.Contains(response, "-") {
			return "low"
		}
		return "medium"

	case "prompt_comparison":
		if len(response) < 30 {
			return "medium"
		}
		if containsAny(lower, []string{"i don't", "cannot", "unable", "sorry"}) {
			return "medium"
		}
		return "low"
	}

	return "low"
}
