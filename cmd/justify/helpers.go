package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"justify/internal/config"
	"justify/internal/graphstore"
	"justify/internal/localstore"
	"justify/internal/logging"
	"justify/internal/snapshot"
)

var (
	dbOnce   sync.Once
	sharedDB *graphstore.DB
	dbErr    error
)

// getDB returns a shared graph store handle, lazily opened on first use.
func getDB(repoRoot string, logger *logging.Logger) (*graphstore.DB, error) {
	dbOnce.Do(func() {
		db, err := graphstore.Open(repoRoot, logger)
		if err != nil {
			dbErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		sharedDB = db
	})
	return sharedDB, dbErr
}

// mustGetDB returns the shared graph store or exits on error.
func mustGetDB(repoRoot string, logger *logging.Logger) *graphstore.DB {
	db, err := getDB(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening graph store: %v\n", err)
		os.Exit(1)
	}
	return db
}

// getRepoRoot returns the repository root directory.
func getRepoRoot() (string, error) {
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// mustLoadConfig loads and validates configuration, or exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// resolveOrigin determines the (org, repo) pair from CLI flags and config.
// Flags win over config.
func resolveOrigin(cfg *config.Config) (string, string, error) {
	org := cfg.Org
	repo := cfg.Repo
	if orgFlag != "" {
		org = orgFlag
	}
	if repoFlag != "" {
		repo = repoFlag
	}
	if org == "" || repo == "" {
		return "", "", fmt.Errorf("org and repo must be set via --org/--repo or .justify/config.json")
	}
	return org, repo, nil
}

// mustResolveOrigin resolves the origin or exits on error.
func mustResolveOrigin(cfg *config.Config) (string, string) {
	org, repo, err := resolveOrigin(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return org, repo
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger from the config's logging section.
func newLogger(cfg *config.Config) *logging.Logger {
	format := logging.HumanFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	return logging.New(logging.Config{
		Format: format,
		Level:  logging.Level(cfg.Logging.Level),
	})
}

// mustLoadSnapshot decodes a snapshot file into a populated local store.
func mustLoadSnapshot(path string) (*localstore.Store, *snapshot.Envelope) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
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

	store := localstore.New()
	store.Load(env)
	return store, env
}
