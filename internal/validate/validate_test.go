package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"us-bars/internal/aggregate"
	"us-bars/internal/model"
)

func minuteNano(hh, mm int) int64 {
	return time.Date(2024, 1, 2, hh, mm, 0, 0, time.UTC).UnixNano()
}

// day builds a source table with a bar per minute for each ticker over the
// given span, plus its correct 5-minute aggregation.
func day(t *testing.T, tickers []string, minutes int) (*model.Table, *model.Table) {
	t.Helper()
	src := &model.Table{HasVolume: true, HasTransactions: true}
	for _, tk := range tickers {
		for m := 0; m < minutes; m++ {
			p := 100 + float64(m%11)
			src.Bars = append(src.Bars, model.Bar{
				Ticker:    tk,
				Timestamp: minuteNano(9, 30) + int64(m)*60*1e9,
				Open:      p, High: p + 1.5, Low: p - 1.5, Close: p + 0.25,
				Volume: float64(100 + m), Transactions: int64(m + 1),
			})
		}
	}
	agg, err := aggregate.Reduce(src, 5)
	require.NoError(t, err)
	return src, agg
}

func TestExhaustivePassesOnCorrectAggregation(t *testing.T) {
	src, agg := day(t, []string{"AAPL", "MSFT"}, 90)

	rep := New().Exhaustive(src, agg, 5)
	assert.True(t, rep.OK())
	assert.Equal(t, len(agg.Bars), rep.Checked)
	assert.Equal(t, rep.Checked, rep.BarsPassed)
	assert.Zero(t, rep.BarsFailed)
	assert.Empty(t, rep.Findings)
}

func TestExhaustiveCatchesTamperedFields(t *testing.T) {
	src, agg := day(t, []string{"AAPL"}, 30)

	agg.Bars[2].High += 3.0
	agg.Bars[4].Volume += 50

	rep := New().Exhaustive(src, agg, 5)
	assert.False(t, rep.OK())
	assert.Equal(t, 2, rep.BarsFailed)
	require.Len(t, rep.Findings, 2)

	byField := map[string]Finding{}
	for _, f := range rep.Findings {
		byField[f.Field] = f
	}
	high, ok := byField["high"]
	require.True(t, ok)
	assert.Equal(t, SeverityNumeric, high.Severity)
	assert.Equal(t, high.Expected+3.0, high.Actual)

	vol, ok := byField["volume"]
	require.True(t, ok)
	assert.Equal(t, SeverityNumeric, vol.Severity)

	assert.InDelta(t, 50.0, rep.MaxDeviation, 1e-9)
}

func TestMissingSourceIsAFinding(t *testing.T) {
	src, agg := day(t, []string{"AAPL"}, 30)

	// An aggregated bar with no raw rows behind it must never silently
	// pass.
	agg.Bars = append(agg.Bars, model.Bar{
		Ticker:    "GHOST",
		Timestamp: minuteNano(9, 30),
		Open:      1, High: 1, Low: 1, Close: 1,
	})

	rep := New().Exhaustive(src, agg, 5)
	assert.False(t, rep.OK())
	require.Len(t, rep.Findings, 1)
	f := rep.Findings[0]
	assert.Equal(t, "GHOST", f.Ticker)
	assert.Equal(t, "source", f.Field)
	assert.Equal(t, SeverityFormat, f.Severity)
}

func TestToleranceAbsorbsFloatNoise(t *testing.T) {
	src, agg := day(t, []string{"AAPL"}, 30)
	agg.Bars[0].Open += 1e-10

	rep := New().Exhaustive(src, agg, 5)
	assert.True(t, rep.OK())
}

func TestSpotCheckReproducibleUnderFixedSeed(t *testing.T) {
	src, agg := day(t, []string{"AAPL", "MSFT", "SPY"}, 390)
	agg.Bars[7].Close += 1.0

	v := New()
	v.Samples = 5

	first := v.SpotCheck(src, agg, 5)
	second := v.SpotCheck(src, agg, 5)
	assert.Equal(t, first.Checked, second.Checked)
	assert.Equal(t, first.Findings, second.Findings)

	// 3 tickers, 5 samples each.
	assert.Equal(t, 15, first.Checked)
}

func TestSpotCheckSamplesCappedBySeriesLength(t *testing.T) {
	src, agg := day(t, []string{"AAPL"}, 10) // two 5-minute bars

	v := New()
	v.Samples = 100
	rep := v.SpotCheck(src, agg, 5)
	assert.Equal(t, len(agg.Bars), rep.Checked)
	assert.True(t, rep.OK())
}

func TestSpotCheckAndExhaustiveShareComparison(t *testing.T) {
	src, agg := day(t, []string{"AAPL"}, 30)
	agg.Bars[1].Low -= 2.0

	v := New()
	v.Samples = 0 // sample everything
	spot := v.SpotCheck(src, agg, 5)
	exhaustive := v.Exhaustive(src, agg, 5)
	assert.Equal(t, exhaustive.BarsFailed, spot.BarsFailed)
	assert.Len(t, spot.Findings, 1)
	assert.Equal(t, "low", spot.Findings[0].Field)
}

func TestReportTruncateKeepsCounts(t *testing.T) {
	src, agg := day(t, []string{"AAPL"}, 60)
	for i := range agg.Bars {
		agg.Bars[i].High += 5
	}

	rep := New().Exhaustive(src, agg, 5)
	failed := rep.BarsFailed
	require.Greater(t, failed, 3)

	rep.Truncate(3)
	assert.Len(t, rep.Findings, 3)
	assert.Equal(t, failed, rep.BarsFailed)
	assert.False(t, rep.OK())
}
