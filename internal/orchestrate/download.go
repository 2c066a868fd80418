package orchestrate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"us-bars/internal/provider"
	"us-bars/internal/saver"
)

// DownloadOptions configures a source-file backfill for one dataset.
type DownloadOptions struct {
	DataDir string
	Dataset string
	Tickers []string
	From    time.Time
	To      time.Time
}

// DownloadReport counts backfill outcomes per day.
type DownloadReport struct {
	Dataset string `json:"dataset"`
	New     int    `json:"new"`
	Skipped int    `json:"skipped"`
	Empty   int    `json:"empty"`
	Errors  int    `json:"errors"`
}

// RunDownload fetches any missing day-files in [From, To] into the dataset's
// 1MINUTE_BARS directory, in the canonical 8-column layout the aggregation
// pipeline consumes. Existing files are never re-fetched or overwritten, so a
// killed backfill can simply be restarted.
func RunDownload(dp provider.DataProvider, opts DownloadOptions) (*DownloadReport, error) {
	if len(opts.Tickers) == 0 {
		return nil, fmt.Errorf("download: no tickers")
	}
	sourceDir := filepath.Join(opts.DataDir, opts.Dataset, "1MINUTE_BARS")
	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		return nil, err
	}

	rep := &DownloadReport{Dataset: opts.Dataset}
	cs := saver.CSVSaver{}

	from := opts.From.UTC().Truncate(24 * time.Hour)
	to := opts.To.UTC().Truncate(24 * time.Hour)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		outPath := filepath.Join(sourceDir, date+".csv")
		if fileExists(outPath) {
			rep.Skipped++
			continue
		}

		table, err := dp.FetchDay(opts.Tickers, day)
		if err != nil {
			slog.Error("download failed", "dataset", opts.Dataset, "date", date, "error", err)
			rep.Errors++
			continue
		}
		if len(table.Bars) == 0 {
			// Weekend or holiday: nothing traded, no file.
			rep.Empty++
			continue
		}
		if err := cs.Save(table, outPath); err != nil {
			slog.Error("download save failed", "dataset", opts.Dataset, "date", date, "error", err)
			rep.Errors++
			continue
		}
		slog.Info("downloaded", "dataset", opts.Dataset, "date", date, "bars", len(table.Bars))
		rep.New++
	}

	slog.Info("download done", "dataset", opts.Dataset,
		"new", rep.New, "skipped", rep.Skipped, "empty", rep.Empty, "errors", rep.Errors)
	return rep, nil
}
