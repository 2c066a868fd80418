package massive

import (
	"encoding/json"
	"fmt"
	"strconv"

	"us-bars/internal/model"
)

// barRaw is one aggregate result from the API. Volume and Transactions use
// flexInt64 because the API emits them as ints, floats or scientific notation
// depending on magnitude.
type barRaw struct {
	Timestamp    int64     `json:"t"` // Unix milliseconds
	Open         float64   `json:"o"`
	High         float64   `json:"h"`
	Low          float64   `json:"l"`
	Close        float64   `json:"c"`
	Volume       float64   `json:"v"`
	Transactions flexInt64 `json:"n,omitempty"`
}

// toBar converts an API bar to the canonical shape. The API reports
// milliseconds; day-files carry nanoseconds.
func (br barRaw) toBar(ticker string) model.Bar {
	return model.Bar{
		Ticker:       ticker,
		Timestamp:    br.Timestamp * int64(1e6),
		Open:         br.Open,
		High:         br.High,
		Low:          br.Low,
		Close:        br.Close,
		Volume:       br.Volume,
		Transactions: br.Transactions.Int64(),
	}
}

// aggsResponse is the aggregates endpoint envelope.
type aggsResponse struct {
	Ticker       string   `json:"ticker"`
	ResultsCount int      `json:"resultsCount"`
	Results      []barRaw `json:"results"`
	Status       string   `json:"status"`
	RequestID    string   `json:"request_id"`
	NextURL      string   `json:"next_url,omitempty"`
}

// flexInt64 parses int, float (scientific notation) or quoted numbers.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = flexInt64(int64(val))
		return nil
	}

	var floatVal float64
	if err := json.Unmarshal(data, &floatVal); err == nil {
		*f = flexInt64(int64(floatVal))
		return nil
	}

	var intVal int64
	if err := json.Unmarshal(data, &intVal); err == nil {
		*f = flexInt64(intVal)
		return nil
	}

	return fmt.Errorf("cannot parse as int64: %s", string(data))
}

func (f flexInt64) Int64() int64 {
	return int64(f)
}
