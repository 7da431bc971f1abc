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
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/types"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel EXECUTION_ID",
	Short: "Cancel a pending or running execution",
	Long: `Cancel marks an execution as cancelled. A Pending execution is cancelled
immediately. For a Running execution the status row is flipped; the running
process observes this when it tries to finish and its in-flight probes drain
first. Cancelling an already finished execution is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		executionID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid execution id %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		exec, err := a.store.GetExecution(ctx, executionID)
		if err != nil {
			return fmt.Errorf("failed to load execution %d: %w", executionID, err)
		}

		switch exec.Status {
		case types.StatusPending, types.StatusRunning:
			err := a.store.TransitionExecution(ctx, executionID, exec.Status, types.StatusCancelled)
			if errors.Is(err, store.ErrConflict) {
				// Lost the race with the engine; treat like a finished
				// execution.
				break
			}
			if err != nil {
				return fmt.Errorf("failed to cancel execution %d: %w", executionID, err)
			}
			fmt.Printf("execution %d cancelled\n", executionID)
			return nil
		}

		fmt.Printf("execution %d already %s\n", executionID, exec.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
