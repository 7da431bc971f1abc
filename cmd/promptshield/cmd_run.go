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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/promptshield/internal/log"
)

var (
	runPipelineID   int64
	runLLMConfigID  int64
	runPipelineFile string
	runLLMFile      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a validation pipeline against an LLM endpoint",
	Long: `Run executes a pipeline's probe suites against the configured LLM
endpoint, persists the normalized findings, and prints the execution summary.

The pipeline and endpoint may reference existing database rows by id, or be
created from YAML definition files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		llmConfigID := runLLMConfigID
		if runLLMFile != "" {
			cfg, err := loadLLMConfigFile(runLLMFile)
			if err != nil {
				return err
			}
			llmConfigID, err = a.store.CreateLLMConfig(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to store llm config: %w", err)
			}
		}
		if llmConfigID == 0 {
			return fmt.Errorf("one of --llm-id or --llm-file is required")
		}

		pipelineID := runPipelineID
		if runPipelineFile != "" {
			pipeline, err := loadPipelineFile(runPipelineFile)
			if err != nil {
				return err
			}
			pipeline.LLMConfigID = llmConfigID
			pipelineID, err = a.store.CreatePipeline(ctx, pipeline)
			if err != nil {
				return fmt.Errorf("failed to store pipeline: %w", err)
			}
		}
		if pipelineID == 0 {
			return fmt.Errorf("one of --pipeline-id or --pipeline-file is required")
		}

		executionID, err := a.engine.StartExecution(ctx, pipelineID, llmConfigID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "execution %d started\n", executionID)

		// First interrupt drains the execution; a second one kills the
		// process the usual way.
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)
		go func() {
			<-sigs
			log.Warn("interrupt received, draining execution")
			a.engine.CancelExecution(executionID)
			signal.Stop(sigs)
		}()

		if err := a.engine.RunExecution(ctx, executionID); err != nil {
			return err
		}

		summary, err := a.engine.Summarize(ctx, executionID)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int64Var(&runPipelineID, "pipeline-id", 0, "existing pipeline id")
	runCmd.Flags().Int64Var(&runLLMConfigID, "llm-id", 0, "existing LLM config id")
	runCmd.Flags().StringVar(&runPipelineFile, "pipeline-file", "", "pipeline definition YAML")
	runCmd.Flags().StringVar(&runLLMFile, "llm-file", "", "LLM endpoint definition YAML")
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
