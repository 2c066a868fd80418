package saver

import (
	"encoding/json"
	"os"

	"us-bars/internal/model"
)

// JSONSaver writes the table as an indented JSON array, mainly for manual
// inspection during development.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

type jsonRow struct {
	Ticker       string  `json:"ticker"`
	WindowStart  int64   `json:"window_start"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	Volume       float64 `json:"volume,omitempty"`
	Transactions int64   `json:"transactions,omitempty"`
}

func (JSONSaver) Save(t *model.Table, path string) error {
	return writeAtomic(path, func(f *os.File) error {
		rows := make([]jsonRow, len(t.Bars))
		for i, b := range t.Bars {
			rows[i] = jsonRow{
				Ticker:      b.Ticker,
				WindowStart: b.Timestamp,
				Open:        b.Open,
				High:        b.High,
				Low:         b.Low,
				Close:       b.Close,
			}
			if t.HasVolume {
				rows[i].Volume = b.Volume
			}
			if t.HasTransactions {
				rows[i].Transactions = b.Transactions
			}
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	})
}
