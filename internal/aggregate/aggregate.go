package aggregate

import (
	"fmt"
	"sort"

	"us-bars/internal/model"
)

// Interval is a target bucket width in minutes.
type Interval int

// Supported lists the bucket widths the engine produces. 1-minute is the
// source granularity, not an aggregation target.
var Supported = []Interval{5, 15, 30, 60}

const minuteNanos = int64(60) * 1e9

// ErrUnsupportedInterval is returned before any aggregation work begins.
type ErrUnsupportedInterval struct {
	Interval Interval
}

func (e *ErrUnsupportedInterval) Error() string {
	return fmt.Sprintf("unsupported interval %d (use 5, 15, 30 or 60)", int(e.Interval))
}

// Valid reports whether iv is one of the supported widths.
func (iv Interval) Valid() bool {
	for _, s := range Supported {
		if iv == s {
			return true
		}
	}
	return false
}

// Minutes returns the width in minutes.
func (iv Interval) Minutes() int { return int(iv) }

// Nanos returns the bucket width in nanoseconds.
func (iv Interval) Nanos() int64 { return int64(iv) * minuteNanos }

// Label returns the directory label, e.g. "5MINUTE_BARS".
func (iv Interval) Label() string { return fmt.Sprintf("%dMINUTE_BARS", int(iv)) }

// BucketStart floors ts to the nearest interval boundary. Buckets are
// left-closed right-open: a bar at exactly start+interval opens the next
// bucket. True floor, so pre-epoch timestamps bucket downward rather than
// toward zero.
func (iv Interval) BucketStart(ts int64) int64 {
	n := iv.Nanos()
	r := ts % n
	if r < 0 {
		r += n
	}
	return ts - r
}

// Reduce collapses a canonical 1-minute table into iv-wide bars, independently
// per ticker. open/close come from the first/last bar of each bucket by
// timestamp, high/low are the extremes, volume/transactions are sums when the
// source table carries them. Buckets with no source bars are never emitted.
// Output is sorted by ticker then bucket start, so reruns on unchanged input
// are byte-identical.
func Reduce(src *model.Table, iv Interval) (*model.Table, error) {
	if !iv.Valid() {
		return nil, &ErrUnsupportedInterval{Interval: iv}
	}

	out := &model.Table{
		HasVolume:       src.HasVolume,
		HasTransactions: src.HasTransactions,
	}
	if len(src.Bars) == 0 {
		return out, nil
	}

	byTicker := partition(src.Bars)
	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		bars := byTicker[ticker]
		// Stable: ties (which the uniqueness invariant rules out)
		// keep input order, so first/last semantics stay deterministic.
		sort.SliceStable(bars, func(i, j int) bool {
			return bars[i].Timestamp < bars[j].Timestamp
		})
		out.Bars = append(out.Bars, reduceSeries(bars, iv)...)
	}
	return out, nil
}

// partition splits bars by ticker, preserving input order within each slice.
func partition(bars []model.Bar) map[string][]model.Bar {
	m := make(map[string][]model.Bar, 16)
	for _, b := range bars {
		m[b.Ticker] = append(m[b.Ticker], b)
	}
	return m
}

// reduceSeries reduces one ticker's time-ordered bars. Bars are grouped into
// [start, start+interval) windows; the emitted bar's timestamp is the bucket
// start, not a contributing bar's timestamp.
func reduceSeries(bars []model.Bar, iv Interval) []model.Bar {
	var out []model.Bar
	i := 0
	for i < len(bars) {
		start := iv.BucketStart(bars[i].Timestamp)
		end := start + iv.Nanos()

		agg := model.Bar{
			Ticker:    bars[i].Ticker,
			Timestamp: start,
			Open:      bars[i].Open,
			High:      bars[i].High,
			Low:       bars[i].Low,
		}
		j := i
		for j < len(bars) && bars[j].Timestamp < end {
			b := bars[j]
			if b.High > agg.High {
				agg.High = b.High
			}
			if b.Low < agg.Low {
				agg.Low = b.Low
			}
			agg.Close = b.Close
			agg.Volume += b.Volume
			agg.Transactions += b.Transactions
			j++
		}
		out = append(out, agg)
		i = j
	}
	return out
}
