package orchestrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"us-bars/internal/validate"
)

// IntervalReport aggregates outcomes for one (dataset, interval).
type IntervalReport struct {
	Interval int `json:"interval_minutes"`
	New      int `json:"new"`
	Skipped  int `json:"skipped"`
	Empty    int `json:"empty"`
	Errors   int `json:"errors"`

	// ErrorSample holds the first N error strings with enough context
	// (file, interval) to locate the failure.
	ErrorSample []string `json:"error_sample,omitempty"`

	Validation *validate.Report `json:"validation,omitempty"`

	// numericFindings weights the merged mean deviation across per-file
	// reports.
	numericFindings int
}

// DatasetReport summarizes one dataset's run.
type DatasetReport struct {
	Dataset     string            `json:"dataset"`
	Files       int               `json:"files"`
	DroppedRows int               `json:"dropped_rows"`
	Intervals   []*IntervalReport `json:"intervals"`
}

// Report is the run-level report the orchestrator hands to operators. A run
// that only dropped rows is still successful; DroppedRows makes lossy runs
// distinguishable from clean ones.
type Report struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Datasets   []*DatasetReport `json:"datasets"`
}

// HasErrors reports whether any file/interval in the run failed.
func (r *Report) HasErrors() bool {
	for _, d := range r.Datasets {
		for _, iv := range d.Intervals {
			if iv.Errors > 0 {
				return true
			}
		}
	}
	return false
}

func (ir *IntervalReport) recordError(maxErrors int, file string, err error) {
	ir.Errors++
	if len(ir.ErrorSample) < maxErrors {
		ir.ErrorSample = append(ir.ErrorSample,
			fmt.Sprintf("%s [%dm]: %v", file, ir.Interval, err))
	}
}

// mergeValidation folds one per-file validation report into the interval's
// running totals, keeping the finding list bounded.
func (ir *IntervalReport) mergeValidation(rep *validate.Report, maxFindings int) {
	if rep == nil {
		return
	}
	if ir.Validation == nil {
		ir.Validation = &validate.Report{Mode: rep.Mode, Interval: rep.Interval}
	}
	v := ir.Validation
	v.Checked += rep.Checked
	v.BarsPassed += rep.BarsPassed
	v.BarsFailed += rep.BarsFailed
	room := maxFindings - len(v.Findings)
	for i, f := range rep.Findings {
		if i >= room {
			break
		}
		v.Findings = append(v.Findings, f)
	}
	if rep.MaxDeviation > v.MaxDeviation {
		v.MaxDeviation = rep.MaxDeviation
	}

	// Fold the per-file mean in, weighted by its numeric finding count.
	var w int
	for _, f := range rep.Findings {
		if f.Severity == validate.SeverityNumeric {
			w++
		}
	}
	if w > 0 {
		total := ir.numericFindings + w
		v.MeanDeviation = (v.MeanDeviation*float64(ir.numericFindings) +
			rep.MeanDeviation*float64(w)) / float64(total)
		ir.numericFindings = total
	}
}

// writeDatasetReport persists the dataset's report under its directory,
// alongside the data it describes.
func writeDatasetReport(datasetDir string, runID string, dr *DatasetReport) error {
	if err := os.MkdirAll(datasetDir, 0755); err != nil {
		return err
	}
	payload := struct {
		RunID string `json:"run_id"`
		*DatasetReport
	}{RunID: runID, DatasetReport: dr}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(datasetDir, ".lastrun.report.json"), data, 0644)
}
