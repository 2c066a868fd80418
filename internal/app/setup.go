package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"us-bars/internal/provider"
)

// CreateProvider builds the download DataProvider. Only the download path
// needs API keys; aggregation-only runs never call this.
func CreateProvider(cfg *Config) (provider.DataProvider, error) {
	return provider.NewMassiveProvider(cfg.MassiveAPIKeys)
}

// LoadTickers reads the ticker universe from the configured file, one ticker
// per line, '#' comments and blank lines ignored.
func LoadTickers(cfg *Config) ([]string, error) {
	if cfg.TickersFile == "" {
		return nil, fmt.Errorf("TICKERS_FILE not set")
	}
	f, err := os.Open(cfg.TickersFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tickers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tickers = append(tickers, strings.ToUpper(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers in %s", cfg.TickersFile)
	}
	return tickers, nil
}
