package app

import (
	"fmt"

	"us-bars/internal/saver"
	"us-bars/internal/validate"
)

// ProvideConfig loads config from the environment (for Wire).
func ProvideConfig() (*Config, error) {
	return LoadConfig()
}

// ProvideTableSaver creates the output saver from config (for Wire).
// Returns an error if SaveFormat is not supported.
func ProvideTableSaver(cfg *Config) (saver.TableSaver, error) {
	s := saver.NewTableSaver(cfg.SaveFormat)
	if s == nil {
		return nil, fmt.Errorf("unsupported SAVE_FORMAT %q (use: csv, parquet, json)", cfg.SaveFormat)
	}
	return s, nil
}

// ProvideValidator builds the consistency validator with configured sampling
// (for Wire).
func ProvideValidator(cfg *Config) *validate.Validator {
	v := validate.New()
	if cfg.ValidateSamples > 0 {
		v.Samples = cfg.ValidateSamples
	}
	if cfg.ValidateSeed != 0 {
		v.Seed = cfg.ValidateSeed
	}
	return v
}
