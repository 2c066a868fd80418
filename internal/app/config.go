package app

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"us-bars/internal/aggregate"
)

// Config holds application configuration, environment-driven with defaults.
type Config struct {
	DataDir    string
	Datasets   []string
	Intervals  []aggregate.Interval
	SaveFormat string
	Workers    int
	LogLevel   string // debug | info | warn | error

	ValidateMode    string // off | spot | exhaustive
	ValidateSamples int
	ValidateSeed    int64
	MaxErrors       int

	MassiveAPIKeys []string
	TickersFile    string
}

// LoadConfig reads configuration from the environment via viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("DATASETS", "us_stocks_sip")
	v.SetDefault("INTERVALS", "5,15,30,60")
	v.SetDefault("SAVE_FORMAT", "csv")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VALIDATE_MODE", "spot")
	v.SetDefault("VALIDATE_SAMPLES", 10)
	v.SetDefault("VALIDATE_SEED", 42)
	v.SetDefault("MAX_ERRORS", 10)

	cfg := &Config{
		DataDir:         v.GetString("DATA_DIR"),
		Datasets:        splitList(v.GetString("DATASETS")),
		SaveFormat:      v.GetString("SAVE_FORMAT"),
		Workers:         v.GetInt("WORKERS"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		ValidateMode:    v.GetString("VALIDATE_MODE"),
		ValidateSamples: v.GetInt("VALIDATE_SAMPLES"),
		ValidateSeed:    v.GetInt64("VALIDATE_SEED"),
		MaxErrors:       v.GetInt("MAX_ERRORS"),
		MassiveAPIKeys:  splitList(v.GetString("MASSIVE_API_KEYS")),
		TickersFile:     v.GetString("TICKERS_FILE"),
	}

	intervals, err := parseIntervals(v.GetString("INTERVALS"))
	if err != nil {
		return nil, err
	}
	cfg.Intervals = intervals
	return cfg, nil
}

// DatasetDir returns the dataset's directory under the data root.
func (c *Config) DatasetDir(dataset string) string {
	return filepath.Join(c.DataDir, dataset)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntervals(s string) ([]aggregate.Interval, error) {
	var out []aggregate.Interval
	for _, p := range splitList(s) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("INTERVALS: %q is not a number", p)
		}
		iv := aggregate.Interval(n)
		if !iv.Valid() {
			return nil, &aggregate.ErrUnsupportedInterval{Interval: iv}
		}
		out = append(out, iv)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("INTERVALS: empty")
	}
	return out, nil
}
