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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/promptshield/pkg/baseline"
)

var (
	driftBaselineID int64
	driftTag        string
	driftPrevious   bool
)

var driftCmd = &cobra.Command{
	Use:   "drift EXECUTION_ID",
	Short: "Compare an execution against a baseline",
	Long: `Drift compares a completed execution against a baseline across the
output, safety, distribution, embedding and agent/tool channels, persists the
drift findings, and prints them with the unified drift score.

The baseline is selected by exactly one of --baseline-id (an execution id),
--tag (a baseline tag), or --previous (the most recent completed execution of
the same pipeline and endpoint).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		executionID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid execution id %q", args[0])
		}

		selected := 0
		for _, set := range []bool{driftBaselineID != 0, driftTag != "", driftPrevious} {
			if set {
				selected++
			}
		}
		if selected != 1 {
			return fmt.Errorf("exactly one of --baseline-id, --tag or --previous is required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.drift.Compare(cmd.Context(), executionID, baseline.Ref{
			ExplicitID: driftBaselineID,
			Tag:        driftTag,
			Previous:   driftPrevious,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(driftCmd)

	driftCmd.Flags().Int64Var(&driftBaselineID, "baseline-id", 0, "baseline execution id")
	driftCmd.Flags().StringVar(&driftTag, "tag", "", "baseline tag")
	driftCmd.Flags().BoolVar(&driftPrevious, "previous", false, "use the previous completed execution")
}
