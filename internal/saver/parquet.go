package saver

import (
	"os"

	"github.com/parquet-go/parquet-go"

	"us-bars/internal/model"
)

// ParquetSaver writes the table as parquet, for datasets consumed by
// columnar tooling.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

type parquetRow struct {
	Ticker       string  `parquet:"ticker"`
	WindowStart  int64   `parquet:"window_start"`
	Open         float64 `parquet:"open"`
	High         float64 `parquet:"high"`
	Low          float64 `parquet:"low"`
	Close        float64 `parquet:"close"`
	Volume       float64 `parquet:"volume,optional"`
	Transactions int64   `parquet:"transactions,optional"`
}

func (ParquetSaver) Save(t *model.Table, path string) error {
	rows := make([]parquetRow, len(t.Bars))
	for i, b := range t.Bars {
		rows[i] = parquetRow{
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
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
