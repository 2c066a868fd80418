package provider

import (
	"fmt"
	"time"

	"us-bars/internal/model"
	"us-bars/internal/provider/massive"
)

// MassiveProvider is a DataProvider backed by the aggregates REST API.
// It embeds *massive.Crawler to expose crawl capabilities with minimal
// boilerplate.
type MassiveProvider struct {
	*massive.Crawler
	keys []string
}

// NewMassiveProvider creates the API-backed DataProvider. Multiple keys are
// rotated through a pool, one download worker per key.
func NewMassiveProvider(apiKeys []string) (*MassiveProvider, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("MASSIVE_API_KEYS not set")
	}
	return &MassiveProvider{Crawler: massive.NewCrawler(), keys: apiKeys}, nil
}

// GetName returns the provider name.
func (p *MassiveProvider) GetName() string {
	return "Massive"
}

// FetchDay downloads one day of 1-minute bars for the tickers.
func (p *MassiveProvider) FetchDay(tickers []string, day time.Time) (*model.Table, error) {
	return p.Crawler.FetchDay(tickers, p.keys, day)
}

// SetLogFunc sets the fan-in logger used during parallel downloads.
func (p *MassiveProvider) SetLogFunc(fn massive.LogFunc) {
	if p.Crawler != nil {
		p.Crawler.LogFunc = fn
	}
}
