package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchSnapshot string
	searchLimit    int
	searchCallers  bool
	searchCallees  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search entities in a snapshot",
	Long: `Load a snapshot into the embedded local store and run a token
search against entity names. Queries are case-insensitive and split on
identifier casing, so "payment" matches processPaymentRefund.

Examples:
  justify search payment --snapshot=snapshot.jsnp
  justify search refund --callers    # Also list each hit's callers`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchSnapshot, "snapshot", "snapshot.jsnp", "Snapshot file to load")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")
	searchCmd.Flags().BoolVar(&searchCallers, "callers", false, "Show callers of each result")
	searchCmd.Flags().BoolVar(&searchCallees, "callees", false, "Show callees of each result")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	store, env := mustLoadSnapshot(searchSnapshot)

	results := store.Search(args[0], searchLimit)
	if len(results) == 0 {
		fmt.Printf("No results for %q in %s/%s\n", args[0], env.Org, env.Repo)
		return
	}

	fmt.Printf("%d results for %q\n", len(results), args[0])
	for _, e := range results {
		fmt.Printf("  %s  %s:%d", e.Name, e.FilePath, e.StartLine)
		if e.Taxonomy != "" {
			fmt.Printf("  [%s]", e.Taxonomy)
		}
		if len(e.DomainConcepts) > 0 {
			fmt.Printf("  concepts: %s", strings.Join(e.DomainConcepts, ", "))
		}
		fmt.Println()

		if searchCallers {
			for _, c := range store.CallersOf(e.ID) {
				fmt.Printf("    caller: %s  %s:%d\n", c.Name, c.FilePath, c.StartLine)
			}
		}
		if searchCallees {
			for _, c := range store.CalleesOf(e.ID) {
				fmt.Printf("    callee: %s  %s:%d\n", c.Name, c.FilePath, c.StartLine)
			}
		}
	}
}
