package massive

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt64(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{`42`, 42},
		{`42.0`, 42},
		{`1.2e3`, 1200},
		{`"314"`, 314},
		{`"2.5e2"`, 250},
	}
	for _, tc := range cases {
		var f flexInt64
		require.NoError(t, json.Unmarshal([]byte(tc.in), &f), tc.in)
		assert.Equal(t, tc.want, f.Int64(), tc.in)
	}

	var f flexInt64
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}

func TestToBarConvertsMillisToNanos(t *testing.T) {
	br := barRaw{Timestamp: 1704205800000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100, Transactions: 7}
	b := br.toBar("AAPL")
	assert.Equal(t, "AAPL", b.Ticker)
	assert.Equal(t, int64(1704205800000000000), b.Timestamp)
	assert.Equal(t, int64(7), b.Transactions)
}

func TestBuildDayRequest(t *testing.T) {
	c := NewCrawler()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	req, err := c.buildDayRequest("AAPL", "key123", day)
	require.NoError(t, err)

	assert.Contains(t, req.URL.Path, "/v2/aggs/ticker/AAPL/range/1/minute/")
	q := req.URL.Query()
	assert.Equal(t, "true", q.Get("adjusted"))
	assert.Equal(t, "asc", q.Get("sort"))
	assert.Equal(t, "50000", q.Get("limit"))
	assert.Equal(t, "key123", q.Get("apiKey"))
}

func apiResponse(t *testing.T, status string, results []barRaw) []byte {
	t.Helper()
	data, err := json.Marshal(aggsResponse{Status: status, Results: results, ResultsCount: len(results)})
	require.NoError(t, err)
	return data
}

func TestDoRequestOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(apiResponse(t, "OK", []barRaw{{Timestamp: 1704205800000, Open: 1, Close: 2}}))
	}))
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewCrawler().doRequest(req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Len(t, resp.Results, 1)
}

func TestDoRequestDelayedMeansSkip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(apiResponse(t, "DELAYED", nil))
	}))
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewCrawler().doRequest(req)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestDoRequestNonOKStatusFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL, nil)
	require.NoError(t, err)

	_, err = NewCrawler().doRequest(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
