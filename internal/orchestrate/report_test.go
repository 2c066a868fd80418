package orchestrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"us-bars/internal/validate"
)

func numericFinding(ticker string, dev float64) validate.Finding {
	return validate.Finding{
		Ticker:   ticker,
		Field:    "high",
		Expected: 100,
		Actual:   100 + dev,
		Severity: validate.SeverityNumeric,
	}
}

func TestMergeValidationFoldsDeviationSummary(t *testing.T) {
	ir := &IntervalReport{Interval: 5}

	first := &validate.Report{
		Mode: "spot", Interval: 5, Checked: 10, BarsPassed: 8, BarsFailed: 2,
		Findings:     []validate.Finding{numericFinding("AAPL", 1), numericFinding("AAPL", 3)},
		MaxDeviation: 3, MeanDeviation: 2,
	}
	second := &validate.Report{
		Mode: "spot", Interval: 5, Checked: 10, BarsPassed: 9, BarsFailed: 1,
		Findings:     []validate.Finding{numericFinding("MSFT", 8)},
		MaxDeviation: 8, MeanDeviation: 8,
	}

	ir.mergeValidation(first, 20)
	ir.mergeValidation(second, 20)

	v := ir.Validation
	require.NotNil(t, v)
	assert.Equal(t, 20, v.Checked)
	assert.Equal(t, 3, v.BarsFailed)
	assert.Len(t, v.Findings, 3)
	assert.Equal(t, 8.0, v.MaxDeviation)
	// Weighted by finding count: (2*2 + 8*1) / 3.
	assert.InDelta(t, 4.0, v.MeanDeviation, 1e-9)
}

func TestMergeValidationIgnoresFormatOnlyReports(t *testing.T) {
	ir := &IntervalReport{Interval: 5}
	ir.mergeValidation(&validate.Report{
		Mode: "spot", Interval: 5, Checked: 1, BarsFailed: 1,
		Findings: []validate.Finding{{Ticker: "GHOST", Field: "source", Severity: validate.SeverityFormat}},
	}, 20)

	assert.Zero(t, ir.Validation.MeanDeviation)
	assert.Zero(t, ir.Validation.MaxDeviation)

	ir.mergeValidation(nil, 20)
	assert.Equal(t, 1, ir.Validation.Checked)
}

func TestMergeValidationBoundsFindings(t *testing.T) {
	ir := &IntervalReport{Interval: 5}
	rep := &validate.Report{Mode: "spot", Interval: 5, Checked: 5, BarsFailed: 5}
	for i := 0; i < 5; i++ {
		rep.Findings = append(rep.Findings, numericFinding("AAPL", float64(i+1)))
	}
	ir.mergeValidation(rep, 3)

	assert.Len(t, ir.Validation.Findings, 3)
	assert.Equal(t, 5, ir.Validation.BarsFailed)
}
