// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package adapters holds the probe-suite plug-ins and their registry.
// Each adapter sends a fixed family of crafted prompts to the endpoint
// under test and classifies the responses with keyword heuristics.
package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// Completer abstracts the shared LLM transport so adapters can be
// tested against a stub.
type Completer interface {
	Complete(ctx context.Context, cfg *types.LLMConfig, prompt, systemPrompt string) (string, error)
}

// Adapter is one probe suite. Execute runs every supported category in
// categories against the endpoint and returns raw findings. Per-prompt
// failures are recorded as adapter_error findings, never dropped; the
// returned error is reserved for suite-level failures.
type Adapter interface {
	Name() string
	Supports(category string) bool
	Execute(ctx context.Context, cfg *types.LLMConfig, categories []string) ([]types.RawFinding, error)
}

// Registry maps probe-suite names to adapters. Adding a suite is a
// pure registry operation; no schema change is involved.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns a registry pre-populated with the built-in
// adapters, all sharing the given transport.
func NewRegistry(client Completer) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Register(NewGarak(client))
	r.Register(NewPyRIT(client))
	r.Register(NewLangTest(client))
	r.Register(NewPromptfoo(client))
	return r
}

// Register adds or replaces an adapter under its name.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown probe suite %q", name)
	}
	return a, nil
}

// Names returns the registered suite names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
