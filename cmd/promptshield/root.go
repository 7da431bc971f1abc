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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teradata-labs/promptshield/internal/log"
	"github.com/teradata-labs/promptshield/internal/version"
	"github.com/teradata-labs/promptshield/pkg/adapters"
	"github.com/teradata-labs/promptshield/pkg/baseline"
	"github.com/teradata-labs/promptshield/pkg/drift"
	"github.com/teradata-labs/promptshield/pkg/embeddings"
	"github.com/teradata-labs/promptshield/pkg/engine"
	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/transport"
	"github.com/teradata-labs/promptshield/pkg/types"
)

var (
	cfgFile string
	config  *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "promptshield",
	Short: "PromptShield - LLM endpoint validation and drift detection",
	Long: `PromptShield runs adversarial probe suites against LLM HTTP endpoints,
normalizes the evidence into findings, scores endpoint safety, and detects
behavioral drift between executions across five statistical channels.`,
	Version: version.Get(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Setup(config.Logging.Level, config.Logging.Format)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./promptshield.yaml)")

	rootCmd.PersistentFlags().String("db", "promptshield.db", "SQLite database path")
	rootCmd.PersistentFlags().Int("workers", 8, "worker parallelism per execution")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("engine.worker_parallelism", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// app wires the store and engines for one command invocation.
type app struct {
	store     *store.Store
	registry  *adapters.Registry
	engine    *engine.Engine
	baselines *baseline.Manager
	drift     *drift.Engine
}

// newApp opens the database and constructs the component graph.
func newApp() (*app, error) {
	st, err := store.NewStore(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", config.Database.Path, err)
	}

	client := transport.NewClient(transport.Config{
		Timeout:    time.Duration(config.HTTP.TimeoutSeconds) * time.Second,
		MaxRetries: config.HTTP.MaxRetries,
		Logger:     log.Logger(),
	})
	registry := adapters.NewRegistry(client)

	var embedder *embeddings.Client
	if config.Embedding.ServiceURL != "" {
		embedder = embeddings.NewClient(embeddings.Config{
			ServiceURL: config.Embedding.ServiceURL,
			ModelName:  config.Embedding.ModelName,
		})
	}

	baselines := baseline.NewManager(st)

	thresholds := make(map[types.DriftChannel]float64, len(config.Drift.Thresholds))
	for channel, v := range config.Drift.Thresholds {
		thresholds[types.DriftChannel(channel)] = v
	}

	return &app{
		store:     st,
		registry:  registry,
		baselines: baselines,
		engine: engine.NewEngine(st, registry, embedder, engine.Config{
			WorkerParallelism: config.Engine.WorkerParallelism,
			EnableAgentTraces: config.Engine.EnableAgentTraces,
		}),
		drift: drift.NewEngine(st, baselines, drift.Config{
			Thresholds: thresholds,
			Timeout:    time.Duration(config.Drift.ComparisonTimeoutSeconds) * time.Second,
		}),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn("failed to close database")
	}
}
