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

	"github.com/teradata-labs/promptshield/pkg/store"
	"github.com/teradata-labs/promptshield/pkg/types"
)

var (
	findingsSeverity string
	findingsLibrary  string
	findingsCategory string
	findingsRiskType string
)

var findingsCmd = &cobra.Command{
	Use:   "findings EXECUTION_ID",
	Short: "List an execution's findings",
	Args:  cobra.ExactArgs(1),
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

		findings, err := a.engine.ListFindings(cmd.Context(), executionID, store.FindingFilter{
			Severity:     types.Severity(findingsSeverity),
			Library:      findingsLibrary,
			TestCategory: findingsCategory,
			RiskType:     findingsRiskType,
		})
		if err != nil {
			return err
		}
		return printJSON(findings)
	},
}

func init() {
	rootCmd.AddCommand(findingsCmd)

	findingsCmd.Flags().StringVar(&findingsSeverity, "severity", "", "filter by severity")
	findingsCmd.Flags().StringVar(&findingsLibrary, "library", "", "filter by probe suite")
	findingsCmd.Flags().StringVar(&findingsCategory, "category", "", "filter by test category")
	findingsCmd.Flags().StringVar(&findingsRiskType, "risk-type", "", "filter by risk type")
}
