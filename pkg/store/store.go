// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package store persists executions, findings, embeddings, baselines,
// drift findings and agent traces in SQLite. Every write is a single
// row insert or a status update guarded by a compare-and-set on the
// execution id plus its current status.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write loses a compare-and-set or
	// violates a uniqueness rule (duplicate embedding, duplicate tag,
	// insert into a finished execution).
	ErrConflict = errors.New("conflict")

	// ErrReferenced is returned when a delete is rejected because
	// other rows still reference the target.
	ErrReferenced = errors.New("still referenced")
)

// maxErrorMessageLen bounds execution error_message columns.
const maxErrorMessageLen = 1000

// Store manages persistent storage for the validation pipeline.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and initializes
// the schema. Use ":memory:" for an in-memory database in tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; serializing through a single
	// connection avoids SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		endpoint_url TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT 'POST',
		headers TEXT, -- JSON object
		payload_template TEXT,
		timeout_seconds INTEGER NOT NULL DEFAULT 30,
		max_retries INTEGER NOT NULL DEFAULT 3,
		environment TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pipelines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		libraries TEXT NOT NULL,           -- JSON array
		test_categories TEXT NOT NULL,     -- JSON array
		severity_thresholds TEXT,          -- JSON object
		llm_config_id INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

		FOREIGN KEY (llm_config_id) REFERENCES llm_configs(id)
	);

	CREATE TABLE IF NOT EXISTS executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pipeline_id INTEGER NOT NULL,
		llm_config_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		error_message TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_executions_pipeline ON executions(pipeline_id, llm_config_id);

	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id INTEGER NOT NULL,
		library TEXT NOT NULL,
		test_category TEXT NOT NULL,
		severity TEXT NOT NULL,
		risk_type TEXT NOT NULL,
		evidence_prompt TEXT,
		evidence_response TEXT,
		confidence REAL,
		extra TEXT, -- JSON object
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

		FOREIGN KEY (execution_id) REFERENCES executions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_findings_execution ON findings(execution_id);
	CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(execution_id, severity);

	CREATE TABLE IF NOT EXISTS embeddings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		finding_id INTEGER NOT NULL UNIQUE,
		execution_id INTEGER NOT NULL,
		model_name TEXT NOT NULL,
		vector TEXT NOT NULL, -- JSON array
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

		FOREIGN KEY (finding_id) REFERENCES findings(id)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_execution ON embeddings(execution_id);

	CREATE TABLE IF NOT EXISTS baselines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id INTEGER NOT NULL,
		pipeline_id INTEGER NOT NULL,
		llm_config_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		tag TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		deleted_at TIMESTAMP,

		FOREIGN KEY (execution_id) REFERENCES executions(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_baselines_tag
		ON baselines(tag) WHERE deleted_at IS NULL AND tag IS NOT NULL AND tag != '';

	CREATE TABLE IF NOT EXISTS drift_findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id INTEGER NOT NULL,
		baseline_execution_id INTEGER NOT NULL,
		channel TEXT NOT NULL,
		metric TEXT NOT NULL,
		value REAL NOT NULL,
		threshold REAL NOT NULL,
		severity TEXT NOT NULL,
		confidence REAL,
		details TEXT, -- JSON object
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_drift_pair ON drift_findings(execution_id, baseline_execution_id);

	CREATE TABLE IF NOT EXISTS agent_traces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id INTEGER NOT NULL,
		finding_id INTEGER NOT NULL UNIQUE,
		calls TEXT NOT NULL, -- JSON array of {tool, args?, result?}
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

		FOREIGN KEY (finding_id) REFERENCES findings(id)
	);

	CREATE INDEX IF NOT EXISTS idx_traces_execution ON agent_traces(execution_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func truncateMessage(msg string) string {
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	return msg[:maxErrorMessageLen]
}
