package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"us-bars/internal/model"
)

// minuteNano returns the nanosecond timestamp of hh:mm UTC on a fixed day.
func minuteNano(hh, mm int) int64 {
	return time.Date(2024, 1, 2, hh, mm, 0, 0, time.UTC).UnixNano()
}

func bar(ticker string, ts int64, o, h, l, c, v float64, n int64) model.Bar {
	return model.Bar{Ticker: ticker, Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v, Transactions: n}
}

func TestReduceSingleBucket(t *testing.T) {
	// Three consecutive 1-minute bars inside one 5-minute window must
	// collapse to exactly one bar with first/last/max/min/sum semantics.
	src := &model.Table{
		HasVolume: true,
		Bars: []model.Bar{
			bar("X", minuteNano(10, 0), 1, 3, 1, 2, 10, 0),
			bar("X", minuteNano(10, 1), 2, 4, 2, 3, 20, 0),
			bar("X", minuteNano(10, 2), 3, 5, 3, 4, 30, 0),
		},
	}

	out, err := Reduce(src, 5)
	require.NoError(t, err)
	require.Len(t, out.Bars, 1)

	b := out.Bars[0]
	assert.Equal(t, minuteNano(10, 0), b.Timestamp)
	assert.Equal(t, 1.0, b.Open)
	assert.Equal(t, 5.0, b.High)
	assert.Equal(t, 1.0, b.Low)
	assert.Equal(t, 4.0, b.Close)
	assert.Equal(t, 60.0, b.Volume)
	assert.True(t, out.HasVolume)
	assert.False(t, out.HasTransactions)
}

func TestReduceSingleBarFloorsToBoundary(t *testing.T) {
	// One bar at 09:31 lands in the [09:30, 09:35) bucket.
	src := &model.Table{
		HasVolume: true,
		Bars:      []model.Bar{bar("SPY", minuteNano(9, 31), 471.2, 471.9, 471.0, 471.5, 1200, 0)},
	}

	out, err := Reduce(src, 5)
	require.NoError(t, err)
	require.Len(t, out.Bars, 1)

	b := out.Bars[0]
	assert.Equal(t, minuteNano(9, 30), b.Timestamp)
	assert.Equal(t, 471.2, b.Open)
	assert.Equal(t, 471.9, b.High)
	assert.Equal(t, 471.0, b.Low)
	assert.Equal(t, 471.5, b.Close)
	assert.Equal(t, 1200.0, b.Volume)
}

func TestReduceBucketBoundaryIsHalfOpen(t *testing.T) {
	// A bar at exactly start+interval belongs to the next bucket.
	src := &model.Table{Bars: []model.Bar{
		bar("X", minuteNano(10, 0), 1, 1, 1, 1, 0, 0),
		bar("X", minuteNano(10, 4), 2, 2, 2, 2, 0, 0),
		bar("X", minuteNano(10, 5), 3, 3, 3, 3, 0, 0),
	}}

	out, err := Reduce(src, 5)
	require.NoError(t, err)
	require.Len(t, out.Bars, 2)
	assert.Equal(t, minuteNano(10, 0), out.Bars[0].Timestamp)
	assert.Equal(t, 2.0, out.Bars[0].Close)
	assert.Equal(t, minuteNano(10, 5), out.Bars[1].Timestamp)
	assert.Equal(t, 3.0, out.Bars[1].Open)
}

func TestReduceDropsEmptyBuckets(t *testing.T) {
	// A gap in source data produces a gap in output, not null-filled rows.
	src := &model.Table{Bars: []model.Bar{
		bar("X", minuteNano(10, 0), 1, 1, 1, 1, 0, 0),
		bar("X", minuteNano(11, 0), 2, 2, 2, 2, 0, 0),
	}}

	out, err := Reduce(src, 15)
	require.NoError(t, err)
	require.Len(t, out.Bars, 2)
	assert.Equal(t, minuteNano(10, 0), out.Bars[0].Timestamp)
	assert.Equal(t, minuteNano(11, 0), out.Bars[1].Timestamp)
}

func TestReduceUnsortedInput(t *testing.T) {
	// The per-ticker partition is sorted before first/last semantics apply.
	src := &model.Table{Bars: []model.Bar{
		bar("X", minuteNano(10, 2), 3, 5, 3, 4, 0, 0),
		bar("X", minuteNano(10, 0), 1, 3, 1, 2, 0, 0),
		bar("X", minuteNano(10, 1), 2, 4, 2, 3, 0, 0),
	}}

	out, err := Reduce(src, 5)
	require.NoError(t, err)
	require.Len(t, out.Bars, 1)
	assert.Equal(t, 1.0, out.Bars[0].Open)
	assert.Equal(t, 4.0, out.Bars[0].Close)
}

func TestReduceMultiTickerOrdering(t *testing.T) {
	// Interleaved tickers come out partitioned, sorted by ticker then
	// bucket start.
	src := &model.Table{Bars: []model.Bar{
		bar("MSFT", minuteNano(10, 0), 1, 1, 1, 1, 0, 0),
		bar("AAPL", minuteNano(10, 6), 2, 2, 2, 2, 0, 0),
		bar("AAPL", minuteNano(10, 0), 3, 3, 3, 3, 0, 0),
		bar("MSFT", minuteNano(10, 6), 4, 4, 4, 4, 0, 0),
	}}

	out, err := Reduce(src, 5)
	require.NoError(t, err)
	require.Len(t, out.Bars, 4)
	assert.Equal(t, "AAPL", out.Bars[0].Ticker)
	assert.Equal(t, minuteNano(10, 0), out.Bars[0].Timestamp)
	assert.Equal(t, "AAPL", out.Bars[1].Ticker)
	assert.Equal(t, minuteNano(10, 5), out.Bars[1].Timestamp)
	assert.Equal(t, "MSFT", out.Bars[2].Ticker)
	assert.Equal(t, "MSFT", out.Bars[3].Ticker)
}

func TestReduceDeterministic(t *testing.T) {
	src := &model.Table{HasVolume: true, HasTransactions: true, Bars: []model.Bar{
		bar("B", minuteNano(10, 3), 2, 4, 2, 3, 20, 2),
		bar("A", minuteNano(10, 0), 1, 3, 1, 2, 10, 1),
		bar("B", minuteNano(10, 0), 3, 5, 3, 4, 30, 3),
		bar("A", minuteNano(10, 59), 4, 6, 4, 5, 40, 4),
	}}

	first, err := Reduce(src, 15)
	require.NoError(t, err)
	second, err := Reduce(src, 15)
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(first, second))
}

func TestReduceInvariants(t *testing.T) {
	src := &model.Table{HasVolume: true, Bars: []model.Bar{}}
	for m := 0; m < 120; m++ {
		o := 100 + float64(m%7)
		c := 100 + float64((m+3)%7)
		h := o
		if c > h {
			h = c
		}
		l := o
		if c < l {
			l = c
		}
		src.Bars = append(src.Bars, bar("X", minuteNano(9, 0)+int64(m)*60*1e9, o, h+0.5, l-0.5, c, 100, 0))
	}

	for _, iv := range Supported {
		t.Run(iv.Label(), func(t *testing.T) {
			out, err := Reduce(src, iv)
			require.NoError(t, err)
			require.NotEmpty(t, out.Bars)
			for _, b := range out.Bars {
				// Bucket starts align exactly to the interval grid.
				assert.Zero(t, b.Timestamp%iv.Nanos())
				assert.LessOrEqual(t, b.Low, b.Open)
				assert.LessOrEqual(t, b.Low, b.Close)
				assert.GreaterOrEqual(t, b.High, b.Open)
				assert.GreaterOrEqual(t, b.High, b.Close)
			}
		})
	}
}

func TestReduceUnsupportedInterval(t *testing.T) {
	src := &model.Table{Bars: []model.Bar{bar("X", minuteNano(10, 0), 1, 1, 1, 1, 0, 0)}}
	for _, iv := range []Interval{0, 1, 7, 10, 120} {
		_, err := Reduce(src, iv)
		var uerr *ErrUnsupportedInterval
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, iv, uerr.Interval)
	}
}

func TestReduceEmptyTable(t *testing.T) {
	out, err := Reduce(&model.Table{HasVolume: true}, 5)
	require.NoError(t, err)
	assert.Empty(t, out.Bars)
	assert.True(t, out.HasVolume)
}

func TestIntervalHelpers(t *testing.T) {
	assert.Equal(t, "5MINUTE_BARS", Interval(5).Label())
	assert.Equal(t, int64(5)*60*1e9, Interval(5).Nanos())
	assert.True(t, Interval(60).Valid())
	assert.False(t, Interval(2).Valid())

	ts := minuteNano(9, 31)
	assert.Equal(t, minuteNano(9, 30), Interval(5).BucketStart(ts))
	assert.Equal(t, minuteNano(9, 30), Interval(15).BucketStart(ts))
	assert.Equal(t, minuteNano(9, 30), Interval(30).BucketStart(ts))
	assert.Equal(t, minuteNano(9, 0), Interval(60).BucketStart(ts))
}

func TestBucketStartFloorsPreEpoch(t *testing.T) {
	// Flooring, not truncation toward zero: 30s before the epoch belongs to
	// the bucket starting 5 minutes before it.
	assert.Equal(t, int64(-5*60*1e9), Interval(5).BucketStart(int64(-30*1e9)))
	assert.Equal(t, int64(0), Interval(5).BucketStart(0))
	assert.Equal(t, int64(-5*60*1e9), Interval(5).BucketStart(int64(-5*60*1e9)))
}
