package massive

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"us-bars/internal/model"
)

const (
	// Max results per aggregates request; one trading day of minute bars
	// (~960 with extended hours) fits far under this.
	maxLimit = 50000

	// KeyCooldownSec: 5 req/min plan => 12s between requests per key.
	KeyCooldownSec = 12

	maxRetries = 3
	retryDelay = 15 * time.Second
)

// LogFunc emits a log line. When set, used instead of the default logger
// (fan-in logging during parallel downloads).
type LogFunc func(msg string)

// Crawler fetches 1-minute aggregates from the upstream API. Callers own
// API-key rotation and rate limiting; the crawler only enforces retries.
type Crawler struct {
	client  *http.Client
	LogFunc LogFunc
}

func (c *Crawler) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.LogFunc != nil {
		c.LogFunc(msg)
	} else {
		slog.Info(msg)
	}
}

// Close closes connections.
func (c *Crawler) Close() error {
	return nil
}

// buildDayRequest builds the GET request for one ticker's 1-minute aggregates
// over one calendar day (adjusted, ascending).
func (c *Crawler) buildDayRequest(ticker, apiKey string, day time.Time) (*http.Request, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Millisecond)
	rawURL := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/minute/%d/%d",
		baseURL, ticker, from.UnixMilli(), to.UnixMilli())
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("adjusted", "true")
	q.Set("limit", strconv.Itoa(maxLimit))
	q.Set("sort", "asc")
	q.Set("apiKey", apiKey)
	u.RawQuery = q.Encode()
	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Connection", "close")
	return req, nil
}

// doRequest runs one GET with retries. Returns (nil, nil) when the API
// reports DELAYED, meaning the day is not final yet and the caller should
// skip it.
func (c *Crawler) doRequest(req *http.Request) (*aggsResponse, error) {
	client := c.client
	if client == nil {
		client = http.DefaultClient
	}
	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("API call failed after %d attempts: %w", maxRetries, err)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests {
				if attempt < maxRetries {
					time.Sleep(retryDelay)
					continue
				}
				return nil, fmt.Errorf("API rate limit (429) after %d attempts: %s", maxRetries, string(body))
			}
			return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
		}

		var result aggsResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			if attempt < maxRetries {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		resp.Body.Close()

		if result.Status != "OK" {
			if result.Status == "DELAYED" {
				return nil, nil
			}
			return nil, fmt.Errorf("API status not OK: %s", result.Status)
		}
		return &result, nil
	}
	return nil, fmt.Errorf("no response")
}

// FetchMinuteBars fetches one ticker's 1-minute bars for one day using the
// provided API key.
func (c *Crawler) FetchMinuteBars(ticker, apiKey string, day time.Time) ([]model.Bar, error) {
	req, err := c.buildDayRequest(ticker, apiKey, day)
	if err != nil {
		return nil, err
	}
	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		c.logf("[%s] %s not final yet (DELAYED), skip", ticker, day.Format("2006-01-02"))
		return nil, nil
	}

	bars := make([]model.Bar, 0, len(resp.Results))
	for _, br := range resp.Results {
		bars = append(bars, br.toBar(ticker))
	}
	return bars, nil
}
