package model

// Bar is one canonical OHLCV observation for one ticker at one instant.
// Timestamp is nanoseconds since epoch, the unit used by the source day-files.
type Bar struct {
	Ticker       string
	Timestamp    int64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Transactions int64
}

// Table is the canonical in-memory form of one day-file, independent of the
// column layout the file arrived in. Capability flags are decided once during
// normalization; downstream code reads them instead of re-sniffing columns.
type Table struct {
	Bars            []Bar
	HasVolume       bool
	HasTransactions bool

	// Dropped counts rows removed during normalization (unparseable
	// timestamp or price). Carried so run reports can distinguish clean
	// from lossy files.
	Dropped int
}

// Tickers returns the distinct tickers in the table, in first-seen order.
func (t *Table) Tickers() []string {
	seen := make(map[string]bool, 16)
	var out []string
	for _, b := range t.Bars {
		if !seen[b.Ticker] {
			seen[b.Ticker] = true
			out = append(out, b.Ticker)
		}
	}
	return out
}
