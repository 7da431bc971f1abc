// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// llmConfigFile is the YAML shape for an LLM endpoint definition.
type llmConfigFile struct {
	Name            string            `yaml:"name"`
	EndpointURL     string            `yaml:"endpoint_url"`
	Method          string            `yaml:"method"`
	Headers         map[string]string `yaml:"headers"`
	PayloadTemplate string            `yaml:"payload_template"`
	TimeoutSeconds  int               `yaml:"timeout_seconds"`
	MaxRetries      int               `yaml:"max_retries"`
	Environment     string            `yaml:"environment"`
}

// pipelineFile is the YAML shape for a pipeline definition.
type pipelineFile struct {
	Name               string         `yaml:"name"`
	Libraries          []string       `yaml:"libraries"`
	TestCategories     []string       `yaml:"test_categories"`
	SeverityThresholds map[string]int `yaml:"severity_thresholds"`
}

// loadLLMConfigFile parses an LLM endpoint definition from YAML.
func loadLLMConfigFile(path string) (*types.LLMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read llm config %s: %w", path, err)
	}

	var file llmConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse llm config %s: %w", path, err)
	}
	if file.EndpointURL == "" {
		return nil, fmt.Errorf("llm config %s: endpoint_url is required", path)
	}

	return &types.LLMConfig{
		Name:            file.Name,
		EndpointURL:     file.EndpointURL,
		Method:          file.Method,
		Headers:         file.Headers,
		PayloadTemplate: file.PayloadTemplate,
		TimeoutSeconds:  file.TimeoutSeconds,
		MaxRetries:      file.MaxRetries,
		Environment:     file.Environment,
	}, nil
}

// loadPipelineFile parses a pipeline definition from YAML.
func loadPipelineFile(path string) (*types.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline %s: %w", path, err)
	}

	var file pipelineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline %s: %w", path, err)
	}
	if len(file.Libraries) == 0 {
		return nil, fmt.Errorf("pipeline %s: at least one library is required", path)
	}
	if len(file.TestCategories) == 0 {
		return nil, fmt.Errorf("pipeline %s: at least one test category is required", path)
	}

	thresholds := make(map[types.Severity]int, len(file.SeverityThresholds))
	for raw, limit := range file.SeverityThresholds {
		sev, ok := types.ParseSeverity(raw)
		if !ok {
			return nil, fmt.Errorf("pipeline %s: unknown severity %q", path, raw)
		}
		thresholds[sev] = limit
	}

	return &types.Pipeline{
		Name:               file.Name,
		Libraries:          file.Libraries,
		TestCategories:     file.TestCategories,
		SeverityThresholds: thresholds,
	}, nil
}
