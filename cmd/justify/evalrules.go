package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"justify/internal/model"
	"justify/internal/rules"
)

var (
	evalSnapshot string
	evalRules    string
	evalFormat   string
)

var evalCmd = &cobra.Command{
	Use:   "eval <file>",
	Short: "Evaluate rules against a source file",
	Long: `Run naming and structural rules against a file, fully offline.

Naming rules match entity names from the loaded snapshot. Structural rules
parse the file's source when a grammar for its language is available;
without one they run degraded with zero violations. Rules the offline
evaluator cannot run are counted as skipped, never silently dropped.

Examples:
  justify eval internal/billing/refund.go --rules=.justify/rules.yaml
  justify eval src/payment.ts --format=json`,
	Args: cobra.ExactArgs(1),
	Run:  runEvalRules,
}

func init() {
	evalCmd.Flags().StringVar(&evalSnapshot, "snapshot", "snapshot.jsnp", "Snapshot file to load")
	evalCmd.Flags().StringVar(&evalRules, "rules", "", "Rule set YAML (default: rules embedded in the snapshot)")
	evalCmd.Flags().StringVar(&evalFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(evalCmd)
}

func runEvalRules(cmd *cobra.Command, args []string) {
	filePath := args[0]
	store, env := mustLoadSnapshot(evalSnapshot)

	var ruleSet []model.Rule
	if evalRules != "" {
		loaded, err := rules.LoadFile(evalRules)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading rules: %v\n", err)
			os.Exit(1)
		}
		ruleSet = loaded
	} else {
		ruleSet = env.Rules
	}
	if len(ruleSet) == 0 {
		fmt.Fprintln(os.Stderr, "No rules to evaluate (pass --rules or export a snapshot with rules embedded)")
		os.Exit(1)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	ev := rules.NewEvaluator(store, rules.NewParsers())
	result := ev.Evaluate(newContext(), ruleSet, filePath, content)

	if evalFormat == "json" {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	} else {
		for _, v := range result.Violations {
			fmt.Printf("%s:%d [%s] %s: %s\n", v.FilePath, v.Line, v.Severity, v.RuleID, v.Message)
			if v.Snippet != "" {
				fmt.Printf("    %s\n", v.Snippet)
			}
		}
		fmt.Printf("\n%d violations, %d rules evaluated, %d skipped",
			len(result.Violations), result.Meta.EvaluatedRules, result.Meta.SkippedRules)
		if result.Meta.DegradedRules > 0 {
			fmt.Printf(", %d degraded (no grammar)", result.Meta.DegradedRules)
		}
		fmt.Println()
		for _, w := range result.Meta.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
	}

	if len(result.Violations) > 0 {
		os.Exit(1)
	}
}
