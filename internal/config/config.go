// Package config loads and validates the pipeline configuration from
// .justify/config.json. Every empirically chosen constant in the pipeline
// (similarity threshold, quality floor, chunk sizes, caps) lives here as a
// tunable rather than a hard-coded behavior.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version.
const CurrentVersion = 2

// Config is the complete configuration.
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Org     string `json:"org" mapstructure:"org"`
	Repo    string `json:"repo" mapstructure:"repo"`

	Thresholds  ThresholdsConfig  `json:"thresholds" mapstructure:"thresholds"`
	Propagation PropagationConfig `json:"propagation" mapstructure:"propagation"`
	Snapshot    SnapshotConfig    `json:"snapshot" mapstructure:"snapshot"`
	Concurrency ConcurrencyConfig `json:"concurrency" mapstructure:"concurrency"`
	Lock        LockConfig        `json:"lock" mapstructure:"lock"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// ThresholdsConfig holds the staleness tunables. Both values are empirical;
// correctness only requires that some threshold exists.
type ThresholdsConfig struct {
	// Similarity is the Jaccard similarity at or above which a recomputed
	// callee counts as cosmetically rephrased and does not cascade.
	Similarity float64 `json:"similarity" mapstructure:"similarity"`
	// QualityFloor is the minimum quality score a prior justification needs
	// to be reused.
	QualityFloor float64 `json:"qualityFloor" mapstructure:"qualityFloor"`
}

// PropagationConfig holds context-propagation settings.
type PropagationConfig struct {
	MaxConcepts int      `json:"maxConcepts" mapstructure:"maxConcepts"`
	GenericTags []string `json:"genericTags" mapstructure:"genericTags"`
}

// SnapshotConfig holds snapshot export settings.
type SnapshotConfig struct {
	// ChunkSize is the entity count per encoded chunk; 0 disables chunking.
	ChunkSize int `json:"chunkSize" mapstructure:"chunkSize"`
	// MaxSignatureLen is the longest signature kept in the compact
	// projection.
	MaxSignatureLen int `json:"maxSignatureLen" mapstructure:"maxSignatureLen"`
}

// ConcurrencyConfig bounds within-level parallelism.
type ConcurrencyConfig struct {
	// ChunkSize is the batch size above which a level is split into
	// concurrently processed chunks.
	ChunkSize int `json:"chunkSize" mapstructure:"chunkSize"`
	// MaxParallel caps concurrent chunks per level.
	MaxParallel int `json:"maxParallel" mapstructure:"maxParallel"`
}

// LockConfig configures the shared-overlay lease lock.
type LockConfig struct {
	TTLSeconds int `json:"ttlSeconds" mapstructure:"ttlSeconds"`
	MaxRetries int `json:"maxRetries" mapstructure:"maxRetries"`
	// RetryBackoffMs is the initial backoff; it doubles per attempt.
	RetryBackoffMs int `json:"retryBackoffMs" mapstructure:"retryBackoffMs"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Thresholds: ThresholdsConfig{
			Similarity:   0.75,
			QualityFloor: 0.4,
		},
		Propagation: PropagationConfig{
			MaxConcepts: 10,
			GenericTags: []string{"", "unclassified", "utility", "misc", "helper", "unknown"},
		},
		Snapshot: SnapshotConfig{
			ChunkSize:       5000,
			MaxSignatureLen: 300,
		},
		Concurrency: ConcurrencyConfig{
			ChunkSize:   100,
			MaxParallel: 4,
		},
		Lock: LockConfig{
			TTLSeconds:     30,
			MaxRetries:     5,
			RetryBackoffMs: 200,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <repoRoot>/.justify/config.json,
// returning defaults when no config file exists.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".justify"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to <repoRoot>/.justify/config.json.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".justify")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &Error{Field: "version", Message: "unsupported config version"}
	}
	if c.Thresholds.Similarity < 0 || c.Thresholds.Similarity > 1 {
		return &Error{Field: "thresholds.similarity", Message: "must be in [0, 1]"}
	}
	if c.Thresholds.QualityFloor < 0 || c.Thresholds.QualityFloor > 1 {
		return &Error{Field: "thresholds.qualityFloor", Message: "must be in [0, 1]"}
	}
	if c.Concurrency.ChunkSize < 1 {
		return &Error{Field: "concurrency.chunkSize", Message: "must be at least 1"}
	}
	return nil
}

// Error is a configuration validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
