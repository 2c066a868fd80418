package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"us-bars/internal/model"
)

// SchemaError is fatal for the whole file: the column layout cannot be mapped
// onto the canonical bar shape.
type SchemaError struct {
	Columns int
	Reason  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s (%d columns)", e.Reason, e.Columns)
}

// timestampAliases are the accepted header names for the timestamp column.
var timestampAliases = []string{"timestamp", "window_start", "time", "t", "datetime"}

// layout maps column positions onto canonical fields. -1 means absent.
type layout struct {
	ticker, open, high, low, close int
	timestamp                      int
	volume, transactions           int
}

// positionalLayout returns the fixed column assignment for headerless files.
// These orderings are load-bearing: they are the historically observed raw
// layouts and govern every downstream field.
func positionalLayout(cols int) (layout, error) {
	switch cols {
	case 8:
		// stocks/crypto raw layout, volume and transaction count present
		return layout{ticker: 0, volume: 1, open: 2, close: 3, high: 4, low: 5, timestamp: 6, transactions: 7}, nil
	case 7:
		// volume present, transactions absent
		return layout{ticker: 0, open: 1, close: 2, high: 3, low: 4, timestamp: 5, volume: 6, transactions: -1}, nil
	case 6:
		// index-type instruments, no volume, no transactions
		return layout{ticker: 0, open: 1, close: 2, high: 3, low: 4, timestamp: 5, volume: -1, transactions: -1}, nil
	default:
		return layout{}, &SchemaError{Columns: cols, Reason: "unrecognized column count"}
	}
}

// headerLayout maps columns by header name. Returns ok=false when the header
// carries no recognizable timestamp column, which means the row was data after
// all (headerless files start with a ticker string, which also fails the
// numeric probe).
func headerLayout(header []string) (layout, bool, error) {
	l := layout{ticker: -1, open: -1, high: -1, low: -1, close: -1, timestamp: -1, volume: -1, transactions: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ticker", "symbol":
			l.ticker = i
		case "open", "o":
			l.open = i
		case "high", "h":
			l.high = i
		case "low", "l":
			l.low = i
		case "close", "c":
			l.close = i
		case "volume", "v", "vol":
			l.volume = i
		case "transactions", "n":
			l.transactions = i
		default:
			if l.timestamp < 0 && isTimestampAlias(name) {
				l.timestamp = i
			}
		}
	}
	if l.timestamp < 0 {
		return layout{}, false, nil
	}
	if l.ticker < 0 || l.open < 0 || l.high < 0 || l.low < 0 || l.close < 0 {
		return layout{}, true, &SchemaError{Columns: len(header), Reason: "header is missing required OHLC columns"}
	}
	return l, true, nil
}

func isTimestampAlias(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, a := range timestampAliases {
		if n == a {
			return true
		}
	}
	return false
}

// NormalizeFile reads one raw day-file and returns its canonical table.
func NormalizeFile(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Normalize(f)
}

// Normalize maps an arbitrary raw tabular read onto the canonical Bar shape.
// Header presence is probed by parsing the first cell of the first row as a
// number; a header row that carries no timestamp alias is demoted back to data
// and the file is mapped positionally by column count. Rows whose timestamp or
// prices fail numeric coercion are dropped and counted, not fatal.
func Normalize(r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return &model.Table{}, nil
	}

	first := records[0]
	var l layout
	rows := records

	if _, numErr := strconv.ParseFloat(strings.TrimSpace(first[0]), 64); numErr != nil {
		// First cell is not a number: candidate header row.
		hl, isHeader, err := headerLayout(first)
		if err != nil {
			return nil, err
		}
		if isHeader {
			l = hl
			rows = records[1:]
		} else {
			// No timestamp alias in the row; headerless file whose
			// first column is the ticker.
			l, err = positionalLayout(len(first))
			if err != nil {
				return nil, err
			}
		}
	} else {
		l, err = positionalLayout(len(first))
		if err != nil {
			return nil, err
		}
	}

	t := &model.Table{
		HasVolume:       l.volume >= 0,
		HasTransactions: l.transactions >= 0,
	}
	t.Bars = make([]model.Bar, 0, len(rows))

	width := maxIndex(l) + 1
	for _, rec := range rows {
		if len(rec) < width {
			t.Dropped++
			continue
		}
		b, ok := coerceRow(rec, l)
		if !ok {
			t.Dropped++
			continue
		}
		t.Bars = append(t.Bars, b)
	}
	return t, nil
}

// coerceRow converts one record into a canonical bar. ok=false means the row
// is malformed (unparseable timestamp or price) and must be dropped.
func coerceRow(rec []string, l layout) (model.Bar, bool) {
	b := model.Bar{Ticker: strings.TrimSpace(rec[l.ticker])}
	if b.Ticker == "" {
		return model.Bar{}, false
	}

	ts, err := parseNanos(rec[l.timestamp])
	if err != nil {
		return model.Bar{}, false
	}
	b.Timestamp = ts

	var ok bool
	if b.Open, ok = parsePrice(rec[l.open]); !ok {
		return model.Bar{}, false
	}
	if b.High, ok = parsePrice(rec[l.high]); !ok {
		return model.Bar{}, false
	}
	if b.Low, ok = parsePrice(rec[l.low]); !ok {
		return model.Bar{}, false
	}
	if b.Close, ok = parsePrice(rec[l.close]); !ok {
		return model.Bar{}, false
	}

	if l.volume >= 0 {
		v, ok := parsePrice(rec[l.volume])
		if !ok {
			return model.Bar{}, false
		}
		b.Volume = v
	}
	if l.transactions >= 0 {
		n, err := parseNanos(rec[l.transactions])
		if err != nil || n < 0 {
			return model.Bar{}, false
		}
		b.Transactions = n
	}
	return b, true
}

// parseNanos coerces a cell to int64. Accepts plain integers and float
// renderings of integers (upstream exports sometimes emit 1.7e+18).
func parseNanos(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	return int64(f), nil
}

// parsePrice coerces a price or quantity cell. ParseFloat accepts "NaN" and
// "Inf", which must never reach a canonical bar, so finiteness is checked
// alongside the sign.
func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func maxIndex(l layout) int {
	m := l.ticker
	for _, i := range []int{l.open, l.high, l.low, l.close, l.timestamp, l.volume, l.transactions} {
		if i > m {
			m = i
		}
	}
	return m
}
