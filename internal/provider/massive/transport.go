package massive

import (
	"net/http"
	"time"
)

const baseURL = "https://api.massive.com"

// baseTransportConfig returns the shared HTTP transport configuration.
// Keep-alives are disabled: crawl requests are minutes apart per key, so a
// pooled connection would only go stale.
func baseTransportConfig() *http.Transport {
	return &http.Transport{
		ResponseHeaderTimeout: 10 * time.Minute,
		IdleConnTimeout:       0,
		TLSHandshakeTimeout:   10 * time.Second,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   0,
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: baseTransportConfig(),
		Timeout:   10 * time.Minute,
	}
}

// NewCrawler constructs a Crawler with a shared HTTP client.
func NewCrawler() *Crawler {
	return &Crawler{client: newHTTPClient()}
}
