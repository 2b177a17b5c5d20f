package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/concilia-dev/concilia/internal/model"
)

// Config represents the top-level concilia.yaml configuration.
type Config struct {
	Database       Database       `yaml:"database"`
	Matching       Matching       `yaml:"matching"`
	Reconciliation Reconciliation `yaml:"reconciliation"`
	Logging        Logging        `yaml:"logging"`
}

// Database locates the sqlite file.
type Database struct {
	Path string `yaml:"path"`
}

// Logging controls log output.
type Logging struct {
	Level string `yaml:"level"`
}

// Weights are the per-signal shares of the confidence score. They are
// heuristic and deliberately kept per record kind; the defaults differ
// across kinds and should stay overridable rather than be collapsed into
// one canonical set.
type Weights struct {
	Amount       float64 `yaml:"amount"`
	Date         float64 `yaml:"date"`
	Reference    float64 `yaml:"reference"`
	Counterparty float64 `yaml:"counterparty"`
}

// KindMatching tunes scoring for one matchable kind.
type KindMatching struct {
	Weights Weights `yaml:"weights"`
	// DateWindowDays is the span over which the date signal decays to zero.
	DateWindowDays int `yaml:"date_window_days"`
	// AutoMatchThreshold is the confidence a lone candidate must clear
	// before auto-match commits it without review.
	AutoMatchThreshold float64 `yaml:"auto_match_threshold"`
}

// Matching tunes the scoring engine.
type Matching struct {
	// MinConfidence discards candidates scoring below it.
	MinConfidence float64 `yaml:"min_confidence"`
	// SimilarityThreshold is the character-similarity ratio above which
	// two counterparty names count as the same.
	SimilarityThreshold float64      `yaml:"similarity_threshold"`
	Payments            KindMatching `yaml:"payments"`
	Invoices            KindMatching `yaml:"invoices"`
	Expenses            KindMatching `yaml:"expenses"`
}

// ForKind returns the tuning for one matchable kind.
func (m Matching) ForKind(kind model.MatchableKind) KindMatching {
	switch kind {
	case model.KindInvoice:
		return m.Invoices
	case model.KindExpense:
		return m.Expenses
	default:
		return m.Payments
	}
}

// Reconciliation tunes session completion.
type Reconciliation struct {
	// CompletionEpsilon is the residual difference still treated as zero.
	CompletionEpsilon float64 `yaml:"completion_epsilon"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: Database{Path: "concilia.db"},
		Matching: Matching{
			MinConfidence:       0.8,
			SimilarityThreshold: 0.8,
			Payments: KindMatching{
				Weights:            Weights{Amount: 0.40, Date: 0.30, Reference: 0.10, Counterparty: 0.20},
				DateWindowDays:     7,
				AutoMatchThreshold: 0.9,
			},
			Invoices: KindMatching{
				Weights:            Weights{Amount: 0.40, Date: 0.25, Reference: 0.10, Counterparty: 0.25},
				DateWindowDays:     30,
				AutoMatchThreshold: 0.9,
			},
			Expenses: KindMatching{
				Weights:            Weights{Amount: 0.40, Date: 0.30, Reference: 0.10, Counterparty: 0.20},
				DateWindowDays:     10,
				AutoMatchThreshold: 0.9,
			},
		},
		Reconciliation: Reconciliation{CompletionEpsilon: 0.01},
		Logging:        Logging{Level: "info"},
	}
}

// Load reads a concilia.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
