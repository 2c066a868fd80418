package validate

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Report is the result of validating one aggregated table. OK is exactly
// "no findings"; the deviation summary gives operators a sense of how far off
// the failing fields were.
type Report struct {
	Mode       string    `json:"mode"`
	Interval   int       `json:"interval_minutes"`
	Checked    int       `json:"bars_checked"`
	BarsPassed int       `json:"bars_passed"`
	BarsFailed int       `json:"bars_failed"`
	Findings   []Finding `json:"findings,omitempty"`

	// Absolute deviation summary over numeric findings.
	MaxDeviation  float64 `json:"max_deviation,omitempty"`
	MeanDeviation float64 `json:"mean_deviation,omitempty"`

	passedBars int
}

// OK reports whether every checked bar matched its recomputation.
func (r *Report) OK() bool { return r.BarsFailed == 0 && len(r.Findings) == 0 }

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// finish computes the pass counts and deviation summary once all findings
// are in.
func (r *Report) finish() {
	r.BarsPassed = r.passedBars
	r.BarsFailed = r.Checked - r.passedBars

	var devs []float64
	for _, f := range r.Findings {
		if f.Severity != SeverityNumeric {
			continue
		}
		devs = append(devs, math.Abs(f.Expected-f.Actual))
	}
	if len(devs) == 0 {
		return
	}
	// stats errors only on empty input, which is excluded above.
	r.MaxDeviation, _ = stats.Max(devs)
	r.MeanDeviation, _ = stats.Mean(devs)
}

// Truncate caps the finding list for bounded run reports. The counts and
// deviation summary are unaffected.
func (r *Report) Truncate(n int) {
	if n >= 0 && len(r.Findings) > n {
		r.Findings = r.Findings[:n]
	}
}
