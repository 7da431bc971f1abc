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
)

var (
	baselineExecutionID int64
	baselineName        string
	baselineTag         string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage drift comparison baselines",
}

var baselineCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Designate a completed execution as a baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if baselineExecutionID == 0 {
			return fmt.Errorf("--execution is required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.baselines.Create(cmd.Context(), baselineExecutionID, baselineName, baselineTag)
		if err != nil {
			return err
		}
		return printJSON(b)
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List baselines",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		baselines, err := a.baselines.List(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(baselines)
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete BASELINE_ID",
	Short: "Delete a baseline",
	Long: `Delete removes a baseline. Rejected while drift findings still
reference the baseline's execution.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid baseline id %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.baselines.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("baseline %d deleted\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(baselineCmd)
	baselineCmd.AddCommand(baselineCreateCmd)
	baselineCmd.AddCommand(baselineListCmd)
	baselineCmd.AddCommand(baselineDeleteCmd)

	baselineCreateCmd.Flags().Int64Var(&baselineExecutionID, "execution", 0, "completed execution id")
	baselineCreateCmd.Flags().StringVar(&baselineName, "name", "", "baseline name")
	baselineCreateCmd.Flags().StringVar(&baselineTag, "tag", "", "unique baseline tag")
}
