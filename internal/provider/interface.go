package provider

import (
	"time"

	"us-bars/internal/model"
)

// DataProvider is the abstraction used when fetching day-files that are not
// yet present locally. Implementations own their crawl logic and cleanup.
type DataProvider interface {
	GetName() string
	// FetchDay returns one day's canonical 1-minute table for the tickers.
	FetchDay(tickers []string, day time.Time) (*model.Table, error)
	Close() error
}
