package massive

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"us-bars/internal/model"
)

// FetchDay downloads one day of 1-minute bars for every ticker, using one
// worker per API key with a key-pool channel for rotation. The returned table
// is in canonical form, sorted by ticker then timestamp so the written
// day-file is deterministic.
func (c *Crawler) FetchDay(tickers, apiKeys []string, day time.Time) (*model.Table, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("massive: no API keys")
	}

	pending := make(chan string, len(tickers))
	for _, t := range tickers {
		pending <- t
	}
	close(pending)

	keyPool := make(chan string, len(apiKeys))
	for _, k := range apiKeys {
		keyPool <- k
	}

	table := &model.Table{HasVolume: true, HasTransactions: true}
	var mu sync.Mutex
	var failed []string

	var wg sync.WaitGroup
	wg.Add(len(apiKeys))
	for i := 0; i < len(apiKeys); i++ {
		go func() {
			defer wg.Done()
			for ticker := range pending {
				key := <-keyPool
				bars, err := c.FetchMinuteBars(ticker, key, day)
				// Cooldown before the key goes back in the pool so the
				// next taker can fire immediately.
				time.Sleep(KeyCooldownSec * time.Second)
				keyPool <- key

				mu.Lock()
				if err != nil {
					c.logf("[%s] fetch failed: %v", ticker, err)
					failed = append(failed, ticker)
				} else {
					table.Bars = append(table.Bars, bars...)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.SliceStable(table.Bars, func(i, j int) bool {
		if table.Bars[i].Ticker != table.Bars[j].Ticker {
			return table.Bars[i].Ticker < table.Bars[j].Ticker
		}
		return table.Bars[i].Timestamp < table.Bars[j].Timestamp
	})

	if len(failed) > 0 {
		return table, fmt.Errorf("massive: %d/%d tickers failed (%s...)", len(failed), len(tickers), failed[0])
	}
	return table, nil
}
