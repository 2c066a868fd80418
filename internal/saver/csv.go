package saver

import (
	"os"

	"github.com/gocarina/gocsv"

	"us-bars/internal/model"
)

// CSVSaver writes the fixed CSV contract: header always present, one column
// order per capability shape, window_start as integer nanoseconds of the
// bucket start. Struct tag order below *is* the contract; the historical
// scripts each invented their own ordering and this is decided once here.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

type rowFull struct {
	Ticker       string  `csv:"ticker"`
	Volume       float64 `csv:"volume"`
	Open         float64 `csv:"open"`
	Close        float64 `csv:"close"`
	High         float64 `csv:"high"`
	Low          float64 `csv:"low"`
	WindowStart  int64   `csv:"window_start"`
	Transactions int64   `csv:"transactions"`
}

type rowVolume struct {
	Ticker      string  `csv:"ticker"`
	Volume      float64 `csv:"volume"`
	Open        float64 `csv:"open"`
	Close       float64 `csv:"close"`
	High        float64 `csv:"high"`
	Low         float64 `csv:"low"`
	WindowStart int64   `csv:"window_start"`
}

type rowPlain struct {
	Ticker      string  `csv:"ticker"`
	Open        float64 `csv:"open"`
	Close       float64 `csv:"close"`
	High        float64 `csv:"high"`
	Low         float64 `csv:"low"`
	WindowStart int64   `csv:"window_start"`
}

func (CSVSaver) Save(t *model.Table, path string) error {
	return writeAtomic(path, func(f *os.File) error {
		switch {
		case t.HasVolume && t.HasTransactions:
			rows := make([]rowFull, len(t.Bars))
			for i, b := range t.Bars {
				rows[i] = rowFull{
					Ticker:       b.Ticker,
					Volume:       b.Volume,
					Open:         b.Open,
					Close:        b.Close,
					High:         b.High,
					Low:          b.Low,
					WindowStart:  b.Timestamp,
					Transactions: b.Transactions,
				}
			}
			return gocsv.Marshal(&rows, f)
		case t.HasVolume:
			rows := make([]rowVolume, len(t.Bars))
			for i, b := range t.Bars {
				rows[i] = rowVolume{
					Ticker:      b.Ticker,
					Volume:      b.Volume,
					Open:        b.Open,
					Close:       b.Close,
					High:        b.High,
					Low:         b.Low,
					WindowStart: b.Timestamp,
				}
			}
			return gocsv.Marshal(&rows, f)
		default:
			rows := make([]rowPlain, len(t.Bars))
			for i, b := range t.Bars {
				rows[i] = rowPlain{
					Ticker:      b.Ticker,
					Open:        b.Open,
					Close:       b.Close,
					High:        b.High,
					Low:         b.Low,
					WindowStart: b.Timestamp,
				}
			}
			return gocsv.Marshal(&rows, f)
		}
	})
}
