// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/teradata-labs/promptshield/pkg/types"
)

// CreateLLMConfig inserts a new endpoint configuration and returns its id.
func (s *Store) CreateLLMConfig(ctx context.Context, cfg *types.LLMConfig) (int64, error) {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal headers: %w", err)
	}

	method := cfg.Method
	if method == "" {
		method = "POST"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_configs (name, endpoint_url, method, headers, payload_template, timeout_seconds, max_retries, environment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.Name, cfg.EndpointURL, method, string(headersJSON),
		cfg.PayloadTemplate, cfg.TimeoutSeconds, cfg.MaxRetries, cfg.Environment,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert llm config: %w", err)
	}
	return res.LastInsertId()
}

// GetLLMConfig loads one endpoint configuration.
func (s *Store) GetLLMConfig(ctx context.Context, id int64) (*types.LLMConfig, error) {
	var cfg types.LLMConfig
	var headersJSON sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, endpoint_url, method, headers, payload_template, timeout_seconds, max_retries, environment
		FROM llm_configs WHERE id = ?`, id,
	).Scan(&cfg.ID, &cfg.Name, &cfg.EndpointURL, &cfg.Method, &headersJSON,
		&cfg.PayloadTemplate, &cfg.TimeoutSeconds, &cfg.MaxRetries, &cfg.Environment)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("llm config %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query llm config: %w", err)
	}

	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &cfg.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
		}
	}
	return &cfg, nil
}

// CreatePipeline inserts a new pipeline and returns its id.
func (s *Store) CreatePipeline(ctx context.Context, p *types.Pipeline) (int64, error) {
	librariesJSON, err := json.Marshal(p.Libraries)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal libraries: %w", err)
	}
	categoriesJSON, err := json.Marshal(p.TestCategories)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal test categories: %w", err)
	}
	thresholdsJSON, err := json.Marshal(p.SeverityThresholds)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal severity thresholds: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pipelines (name, libraries, test_categories, severity_thresholds, llm_config_id)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, string(librariesJSON), string(categoriesJSON), string(thresholdsJSON), p.LLMConfigID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pipeline: %w", err)
	}
	return res.LastInsertId()
}

// GetPipeline loads one pipeline.
func (s *Store) GetPipeline(ctx context.Context, id int64) (*types.Pipeline, error) {
	var p types.Pipeline
	var librariesJSON, categoriesJSON string
	var thresholdsJSON sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, libraries, test_categories, severity_thresholds, llm_config_id
		FROM pipelines WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &librariesJSON, &categoriesJSON, &thresholdsJSON, &p.LLMConfigID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pipeline %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline: %w", err)
	}

	if err := json.Unmarshal([]byte(librariesJSON), &p.Libraries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal libraries: %w", err)
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &p.TestCategories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal test categories: %w", err)
	}
	if thresholdsJSON.Valid && thresholdsJSON.String != "" && thresholdsJSON.String != "null" {
		if err := json.Unmarshal([]byte(thresholdsJSON.String), &p.SeverityThresholds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal severity thresholds: %w", err)
		}
	}
	return &p, nil
}
