package orchestrate

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"us-bars/internal/model"
	"us-bars/internal/schema"
	"us-bars/internal/validate"
)

// DateValidation is the validation result for one (date, interval) pair.
type DateValidation struct {
	Date     string           `json:"date"`
	Interval int              `json:"interval_minutes"`
	Error    string           `json:"error,omitempty"`
	Report   *validate.Report `json:"report,omitempty"`
}

// ValidationRun summarizes an offline validation pass over one dataset's
// persisted outputs.
type ValidationRun struct {
	RunID      string           `json:"run_id"`
	Dataset    string           `json:"dataset"`
	Mode       string           `json:"mode"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Checked    int              `json:"bars_checked"`
	Passed     int              `json:"bars_passed"`
	Failed     int              `json:"bars_failed"`
	Dates      []DateValidation `json:"dates"`
}

// RunValidation re-reads persisted aggregated outputs and verifies them
// against their source files, without trusting anything the aggregation run
// kept in memory. Only the CSV contract can be re-read this way.
func RunValidation(opts Options) ([]*ValidationRun, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	mode := opts.Validation
	if mode == ValidationOff {
		mode = ValidationSpot
	}

	var runs []*ValidationRun
	for _, dataset := range opts.Datasets {
		run, err := validateDataset(&opts, dataset, mode)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)

		datasetDir := filepath.Join(opts.DataDir, dataset)
		if err := writeValidationRun(datasetDir, run); err != nil {
			slog.Warn("could not write validation report", "dataset", dataset, "error", err)
		}
	}
	return runs, nil
}

func validateDataset(opts *Options, dataset, mode string) (*ValidationRun, error) {
	datasetDir := filepath.Join(opts.DataDir, dataset)
	sourceDir := filepath.Join(datasetDir, "1MINUTE_BARS")

	jobs, err := listDayFiles(sourceDir)
	if err != nil {
		return nil, err
	}

	run := &ValidationRun{
		RunID:     uuid.NewString(),
		Dataset:   dataset,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}

	for _, j := range jobs {
		var src *parsedSource
		for _, iv := range opts.Intervals {
			aggPath := filepath.Join(datasetDir, iv.Label(), j.date+".csv")
			if !fileExists(aggPath) {
				continue
			}
			dv := DateValidation{Date: j.date, Interval: iv.Minutes()}

			if src == nil {
				src = &parsedSource{}
				src.table, src.err = schema.NormalizeFile(j.path)
			}
			if src.err != nil {
				dv.Error = src.err.Error()
				run.Dates = append(run.Dates, dv)
				continue
			}

			aggTable, err := schema.NormalizeFile(aggPath)
			if err != nil {
				dv.Error = err.Error()
				run.Dates = append(run.Dates, dv)
				continue
			}

			var rep validate.Report
			if mode == ValidationExhaustive {
				rep = opts.Validator.Exhaustive(src.table, aggTable, iv)
			} else {
				rep = opts.Validator.SpotCheck(src.table, aggTable, iv)
			}
			rep.Truncate(opts.MaxFindings)
			run.Checked += rep.Checked
			run.Passed += rep.BarsPassed
			run.Failed += rep.BarsFailed
			dv.Report = &rep
			run.Dates = append(run.Dates, dv)

			if !rep.OK() {
				slog.Warn("validation failed", "dataset", dataset, "date", j.date,
					"interval", iv.Minutes(), "failed", rep.BarsFailed)
			}
		}
	}
	run.FinishedAt = time.Now().UTC()
	slog.Info("validation done", "dataset", dataset, "mode", mode,
		"checked", run.Checked, "passed", run.Passed, "failed", run.Failed)
	return run, nil
}

// parsedSource caches the day's normalized source across intervals.
type parsedSource struct {
	table *model.Table
	err   error
}

func writeValidationRun(datasetDir string, run *ValidationRun) error {
	if err := os.MkdirAll(datasetDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(datasetDir, ".lastrun.validation.json"), data, 0644)
}
