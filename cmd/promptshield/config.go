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
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the name of the config file
const DefaultConfigFileName = "promptshield"

// Config holds all configuration for the PromptShield CLI.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// HTTP transport configuration for the LLM endpoints under test
	HTTP HTTPConfig `mapstructure:"http"`

	// Engine configuration
	Engine EngineConfig `mapstructure:"engine"`

	// Embedding service configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Drift comparison configuration
	Drift DriftConfig `mapstructure:"drift"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	// Path is the SQLite database path (default: promptshield.db)
	Path string `mapstructure:"path"`
}

// HTTPConfig holds defaults for the shared LLM transport. Individual
// LLM configurations override these per endpoint.
type HTTPConfig struct {
	// TimeoutSeconds is the per-request timeout (default: 30)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// MaxRetries bounds retry attempts for transport errors and 5xx
	// responses (default: 3)
	MaxRetries int `mapstructure:"max_retries"`
}

// EngineConfig holds execution engine configuration.
type EngineConfig struct {
	// WorkerParallelism bounds concurrent (suite, category) jobs per
	// execution (default: 8)
	WorkerParallelism int `mapstructure:"worker_parallelism"`

	// EnableAgentTraces turns on agent-trace extraction from finding
	// metadata (default: false)
	EnableAgentTraces bool `mapstructure:"enable_agent_traces"`
}

// EmbeddingConfig holds embedding service configuration. An empty
// ServiceURL disables embedding generation.
type EmbeddingConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	ModelName  string `mapstructure:"model_name"`
}

// DriftConfig holds drift engine configuration.
type DriftConfig struct {
	// Thresholds overrides per-channel drift thresholds
	// (output, safety, distribution, embedding, agent_tool).
	Thresholds map[string]float64 `mapstructure:"thresholds"`

	// ComparisonTimeoutSeconds bounds one drift comparison
	// (default: 600)
	ComparisonTimeoutSeconds int `mapstructure:"comparison_timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: debug, info, warn, error (default: info)
	Level string `mapstructure:"level"`

	// Format is the log format: json or console (default: console)
	Format string `mapstructure:"format"`
}

// initConfig reads the config file and environment into the global
// config. Called by cobra before any command runs.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/promptshield/")
		viper.SetConfigName(DefaultConfigFileName)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "failed to read config file: %v\n", err)
			os.Exit(1)
		}
	}

	viper.SetEnvPrefix("PROMPTSHIELD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config = &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse configuration: %v\n", err)
		os.Exit(1)
	}
}

func setDefaults() {
	viper.SetDefault("database.path", "promptshield.db")

	viper.SetDefault("http.timeout_seconds", 30)
	viper.SetDefault("http.max_retries", 3)

	viper.SetDefault("engine.worker_parallelism", 8)
	viper.SetDefault("engine.enable_agent_traces", false)

	viper.SetDefault("embedding.service_url", "")
	viper.SetDefault("embedding.model_name", "all-MiniLM-L6-v2")

	viper.SetDefault("drift.comparison_timeout_seconds", 600)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}
