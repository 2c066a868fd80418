package validate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"us-bars/internal/aggregate"
	"us-bars/internal/model"
)

// Severity classifies a finding: a structural problem with the aggregated bar
// versus a numeric disagreement with the recomputed expectation.
type Severity string

const (
	SeverityFormat  Severity = "format"
	SeverityNumeric Severity = "numeric"
)

// Finding is one structured disagreement between an aggregated bar and the
// value recomputed directly from its source rows.
type Finding struct {
	Ticker      string   `json:"ticker"`
	BucketStart int64    `json:"bucket_start"`
	Field       string   `json:"field"`
	Expected    float64  `json:"expected"`
	Actual      float64  `json:"actual"`
	Severity    Severity `json:"severity"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s@%d %s: expected %v, got %v (%s)",
		f.Ticker, f.BucketStart, f.Field, f.Expected, f.Actual, f.Severity)
}

// Validator recomputes bucket reductions from raw bars and compares them
// against stored aggregates, without trusting the aggregator's output path.
type Validator struct {
	// PriceTol is the absolute tolerance for open/high/low/close.
	// Effectively exact-match for rounded price data; it only absorbs
	// float noise.
	PriceTol float64
	// QtyTol is the absolute tolerance for volume/transactions. Sums of
	// non-negative integers should match exactly barring upstream float
	// artifacts.
	QtyTol float64
	// Samples is the per-ticker sample count in spot-check mode.
	Samples int
	// Seed makes spot-check sampling reproducible for deterministic
	// replay of a failed run.
	Seed int64
}

// New returns a Validator with the default tolerances and sampling.
func New() *Validator {
	return &Validator{
		PriceTol: 1e-8,
		QtyTol:   0.01,
		Samples:  10,
		Seed:     42,
	}
}

// Exhaustive validates every aggregated bar against the raw table.
func (v *Validator) Exhaustive(src, agg *model.Table, iv aggregate.Interval) Report {
	idx := indexByTicker(src)
	rep := Report{Mode: "exhaustive", Interval: iv.Minutes()}
	for _, b := range agg.Bars {
		v.checkBar(&rep, idx, src, b, iv)
	}
	rep.finish()
	return rep
}

// SpotCheck samples a fixed number of aggregated bars per ticker and validates
// only those. The same comparison path as Exhaustive is used.
func (v *Validator) SpotCheck(src, agg *model.Table, iv aggregate.Interval) Report {
	idx := indexByTicker(src)
	rep := Report{Mode: "spot", Interval: iv.Minutes()}
	rng := rand.New(rand.NewSource(v.Seed))

	byTicker := make(map[string][]model.Bar, 16)
	var order []string
	for _, b := range agg.Bars {
		if _, ok := byTicker[b.Ticker]; !ok {
			order = append(order, b.Ticker)
		}
		byTicker[b.Ticker] = append(byTicker[b.Ticker], b)
	}
	// Fixed ticker order so a fixed seed always picks the same bars.
	sort.Strings(order)

	for _, ticker := range order {
		bars := byTicker[ticker]
		n := v.Samples
		if n <= 0 || n > len(bars) {
			n = len(bars)
		}
		for _, i := range rng.Perm(len(bars))[:n] {
			v.checkBar(&rep, idx, src, bars[i], iv)
		}
	}
	rep.finish()
	return rep
}

// checkBar recomputes the [start, start+interval) reduction for one aggregated
// bar and records a finding per disagreeing field.
func (v *Validator) checkBar(rep *Report, idx map[string][]model.Bar, src *model.Table, b model.Bar, iv aggregate.Interval) {
	rep.Checked++
	window := selectWindow(idx[b.Ticker], b.Timestamp, b.Timestamp+iv.Nanos())
	if len(window) == 0 {
		// The aggregated bar exists but no raw rows back it. This is a
		// contradiction, never a silent pass.
		rep.add(Finding{
			Ticker:      b.Ticker,
			BucketStart: b.Timestamp,
			Field:       "source",
			Severity:    SeverityFormat,
		})
		return
	}

	before := len(rep.Findings)

	v.compare(rep, b, "open", window[0].Open, b.Open, v.PriceTol)
	v.compare(rep, b, "close", window[len(window)-1].Close, b.Close, v.PriceTol)

	high, low := window[0].High, window[0].Low
	var volume float64
	var transactions int64
	for _, w := range window {
		if w.High > high {
			high = w.High
		}
		if w.Low < low {
			low = w.Low
		}
		volume += w.Volume
		transactions += w.Transactions
	}
	v.compare(rep, b, "high", high, b.High, v.PriceTol)
	v.compare(rep, b, "low", low, b.Low, v.PriceTol)
	if src.HasVolume {
		v.compare(rep, b, "volume", volume, b.Volume, v.QtyTol)
	}
	if src.HasTransactions {
		v.compare(rep, b, "transactions", float64(transactions), float64(b.Transactions), v.QtyTol)
	}

	if len(rep.Findings) == before {
		rep.passedBars++
	}
}

func (v *Validator) compare(rep *Report, b model.Bar, field string, expected, actual, tol float64) {
	if math.Abs(expected-actual) <= tol {
		return
	}
	rep.add(Finding{
		Ticker:      b.Ticker,
		BucketStart: b.Timestamp,
		Field:       field,
		Expected:    expected,
		Actual:      actual,
		Severity:    SeverityNumeric,
	})
}

// indexByTicker builds a timestamp-sorted index of raw bars per ticker.
func indexByTicker(src *model.Table) map[string][]model.Bar {
	m := make(map[string][]model.Bar, 16)
	for _, b := range src.Bars {
		m[b.Ticker] = append(m[b.Ticker], b)
	}
	for t := range m {
		bars := m[t]
		sort.SliceStable(bars, func(i, j int) bool {
			return bars[i].Timestamp < bars[j].Timestamp
		})
	}
	return m
}

// selectWindow returns the bars with timestamp in [start, end) from a
// timestamp-sorted slice.
func selectWindow(bars []model.Bar, start, end int64) []model.Bar {
	lo := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp >= start })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp >= end })
	return bars[lo:hi]
}
