package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"justify/internal/snapshot"
)

var verifyDigest string

var verifyCmd = &cobra.Command{
	Use:   "verify <snapshot-file>",
	Short: "Verify and describe a snapshot file",
	Long: `Decode a snapshot file, check its format version, and print its
contents summary. With --digest, also compare the file's sha256 digest
against an expected value.

Examples:
  justify verify snapshot.jsnp
  justify verify snapshot.jsnp --digest=3a7f...`,
	Args: cobra.ExactArgs(1),
	Run:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyDigest, "digest", "", "Expected sha256 digest")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
		os.Exit(1)
	}

	actual := snapshot.Digest(data)
	if verifyDigest != "" && actual != verifyDigest {
		fmt.Fprintf(os.Stderr, "Digest mismatch:\n  expected %s\n  actual   %s\n", verifyDigest, actual)
		os.Exit(1)
	}

	codec, err := snapshot.NewCodec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	env, err := codec.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Snapshot OK\n")
	fmt.Printf("  Version:   %d\n", env.Version)
	fmt.Printf("  Origin:    %s/%s\n", env.Org, env.Repo)
	fmt.Printf("  Generated: %s\n", env.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("  Entities:  %d\n", len(env.Entities))
	fmt.Printf("  Edges:     %d\n", len(env.Edges))
	if len(env.Rules) > 0 {
		fmt.Printf("  Rules:     %d\n", len(env.Rules))
	}
	fmt.Printf("  Digest:    %s\n", actual)
}
