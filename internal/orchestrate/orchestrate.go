package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"us-bars/internal/aggregate"
	"us-bars/internal/model"
	"us-bars/internal/saver"
	"us-bars/internal/schema"
	"us-bars/internal/slogx"
	"us-bars/internal/validate"
)

// Validation modes for Options.Validation.
const (
	ValidationOff        = "off"
	ValidationSpot       = "spot"
	ValidationExhaustive = "exhaustive"
)

// Options configures one batch run. Datasets are directories under DataDir
// holding a 1MINUTE_BARS source tree.
type Options struct {
	DataDir    string
	Datasets   []string
	Intervals  []aggregate.Interval
	Workers    int
	Saver      saver.TableSaver
	Validation string // off | spot | exhaustive
	Validator  *validate.Validator
	// MaxErrors bounds the error sample per (dataset, interval).
	MaxErrors int
	// MaxFindings bounds stored validation findings per (dataset, interval).
	MaxFindings int
}

func (o *Options) normalize() error {
	if o.DataDir == "" {
		return fmt.Errorf("orchestrate: DataDir is required")
	}
	if o.Saver == nil {
		return fmt.Errorf("orchestrate: Saver is required")
	}
	if len(o.Intervals) == 0 {
		o.Intervals = aggregate.Supported
	}
	for _, iv := range o.Intervals {
		if !iv.Valid() {
			return &aggregate.ErrUnsupportedInterval{Interval: iv}
		}
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Validation == "" {
		o.Validation = ValidationOff
	}
	if o.Validator == nil {
		o.Validator = validate.New()
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = 10
	}
	if o.MaxFindings <= 0 {
		o.MaxFindings = 20
	}
	return nil
}

// job is one unit of work: a single source day-file. Files are independent;
// one worker owns all of a file's outputs for the duration of its processing.
type job struct {
	path string
	date string
}

// intervalOutcome is what one (file, interval) pair produced.
type intervalOutcome struct {
	status string // new | skipped | empty | error
	err    error
	report *validate.Report
}

// fileResult is sent by workers for fan-in.
type fileResult struct {
	date     string
	dropped  int
	outcomes map[aggregate.Interval]intervalOutcome
}

// Run drives normalize → aggregate → save → validate across every dataset,
// file and interval. Failures are isolated: one bad file never aborts the
// batch; it is recorded and processing continues.
func Run(opts Options) (*Report, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	for _, dataset := range opts.Datasets {
		dr, err := runDataset(&opts, dataset)
		if err != nil {
			return nil, err
		}
		rep.Datasets = append(rep.Datasets, dr)

		datasetDir := filepath.Join(opts.DataDir, dataset)
		if err := writeDatasetReport(datasetDir, rep.RunID, dr); err != nil {
			slog.Warn("could not write run report", "dataset", dataset, "error", err)
		}
	}
	rep.FinishedAt = time.Now().UTC()
	return rep, nil
}

func runDataset(opts *Options, dataset string) (*DatasetReport, error) {
	datasetDir := filepath.Join(opts.DataDir, dataset)
	sourceDir := filepath.Join(datasetDir, "1MINUTE_BARS")

	jobs, err := listDayFiles(sourceDir)
	if err != nil {
		return nil, err
	}

	dr := &DatasetReport{Dataset: dataset, Files: len(jobs)}
	byInterval := make(map[aggregate.Interval]*IntervalReport, len(opts.Intervals))
	for _, iv := range opts.Intervals {
		ir := &IntervalReport{Interval: iv.Minutes()}
		byInterval[iv] = ir
		dr.Intervals = append(dr.Intervals, ir)
		if err := os.MkdirAll(filepath.Join(datasetDir, iv.Label()), 0755); err != nil {
			return nil, err
		}
	}
	if len(jobs) == 0 {
		slog.Info("no source files", "dataset", dataset, "dir", sourceDir)
		return dr, nil
	}

	slog.Info("dataset start", "dataset", dataset, "files", len(jobs), "intervals", len(opts.Intervals), "workers", opts.Workers)

	logs := make(chan string, 2048)
	logger := slogx.NewChanLogger(logs)
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(logs)
	}()

	checkpointPath := filepath.Join(datasetDir, ".checkpoint.json")
	cp := loadCheckpoint(checkpointPath)
	cpUpdates := make(chan CheckpointUpdate, 256)
	var cpWg sync.WaitGroup
	cpWg.Add(1)
	go func() {
		defer cpWg.Done()
		// The writer owns its own copy; workers read cp as loaded.
		runCheckpointWriter(checkpointPath, cp.clone(), cpUpdates)
	}()

	pending := make(chan job, len(jobs))
	for _, j := range jobs {
		pending <- j
	}
	close(pending)

	results := make(chan fileResult, len(jobs))
	var mu sync.Mutex
	var done int
	var resWg sync.WaitGroup
	resWg.Add(1)
	go func() {
		defer resWg.Done()
		runResultCollector(results, opts, dr, byInterval, &mu, &done)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go runHeartbeat(ctx, 30*time.Second, len(jobs), &mu, &done, logger)

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer wg.Done()
			for j := range pending {
				results <- processFile(opts, datasetDir, cp, cpUpdates, logger, j)
			}
		}()
	}
	wg.Wait()
	close(results)
	resWg.Wait()
	cancel()
	close(cpUpdates)
	cpWg.Wait()
	close(logs)
	logWg.Wait()

	logDatasetSummary(dataset, dr)
	return dr, nil
}

// processFile produces every interval's output for one day-file. The file is
// normalized at most once; intervals whose output already exists are skipped
// without touching it.
func processFile(opts *Options, datasetDir string, cp *Checkpoint, cpUpdates chan<- CheckpointUpdate, logger *slog.Logger, j job) fileResult {
	res := fileResult{date: j.date, outcomes: make(map[aggregate.Interval]intervalOutcome, len(opts.Intervals))}

	var todo []aggregate.Interval
	for _, iv := range opts.Intervals {
		outPath := filepath.Join(datasetDir, iv.Label(), j.date+"."+opts.Saver.Extension())
		if cp.Done(iv.Label(), j.date) || fileExists(outPath) {
			res.outcomes[iv] = intervalOutcome{status: "skipped"}
			continue
		}
		todo = append(todo, iv)
	}
	if len(todo) == 0 {
		logger.Info("file skipped", "date", j.date)
		return res
	}

	table, err := schema.NormalizeFile(j.path)
	if err != nil {
		// Fatal for this file only: schema errors and unreadable files
		// are recorded per pending interval and the batch moves on.
		logger.Error("normalize failed", "date", j.date, "error", err)
		for _, iv := range todo {
			res.outcomes[iv] = intervalOutcome{status: "error", err: err}
		}
		return res
	}
	res.dropped = table.Dropped
	if table.Dropped > 0 {
		logger.Warn("rows dropped", "date", j.date, "dropped", table.Dropped, "kept", len(table.Bars))
	}

	for _, iv := range todo {
		res.outcomes[iv] = processInterval(opts, datasetDir, logger, j, table, iv)
		if res.outcomes[iv].err == nil {
			select {
			case cpUpdates <- CheckpointUpdate{Label: iv.Label(), Date: j.date}:
			default:
				logger.Warn("checkpoint channel full, skip update", "date", j.date)
			}
		}
	}
	return res
}

func processInterval(opts *Options, datasetDir string, logger *slog.Logger, j job, table *model.Table, iv aggregate.Interval) intervalOutcome {
	agg, err := aggregate.Reduce(table, iv)
	if err != nil {
		return intervalOutcome{status: "error", err: err}
	}

	outPath := filepath.Join(datasetDir, iv.Label(), j.date+"."+opts.Saver.Extension())
	if err := opts.Saver.Save(agg, outPath); err != nil {
		logger.Error("save failed", "date", j.date, "interval", iv.Minutes(), "error", err)
		return intervalOutcome{status: "error", err: err}
	}

	out := intervalOutcome{status: "new"}
	if len(agg.Bars) == 0 {
		out.status = "empty"
	}
	logger.Info("aggregated", "date", j.date, "interval", iv.Minutes(), "rows", len(agg.Bars))

	switch opts.Validation {
	case ValidationSpot:
		rep := opts.Validator.SpotCheck(table, agg, iv)
		out.report = &rep
	case ValidationExhaustive:
		rep := opts.Validator.Exhaustive(table, agg, iv)
		out.report = &rep
	}
	if out.report != nil && !out.report.OK() {
		logger.Warn("validation findings", "date", j.date, "interval", iv.Minutes(),
			"checked", out.report.Checked, "failed", out.report.BarsFailed)
	}
	return out
}

// runResultCollector folds worker results into the dataset report.
func runResultCollector(results <-chan fileResult, opts *Options, dr *DatasetReport, byInterval map[aggregate.Interval]*IntervalReport, mu *sync.Mutex, done *int) {
	for r := range results {
		mu.Lock()
		*done++
		dr.DroppedRows += r.dropped
		for iv, out := range r.outcomes {
			ir := byInterval[iv]
			switch out.status {
			case "new":
				ir.New++
			case "skipped":
				ir.Skipped++
			case "empty":
				ir.Empty++
			case "error":
				ir.recordError(opts.MaxErrors, r.date, out.err)
			}
			ir.mergeValidation(out.report, opts.MaxFindings)
		}
		mu.Unlock()
	}
}

// listDayFiles returns the dataset's day-files in lexicographic order, which
// is chronological for the YYYY-MM-DD naming convention.
func listDayFiles(sourceDir string) ([]job, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read source dir %s: %w", sourceDir, err)
	}
	var jobs []job
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		jobs = append(jobs, job{
			path: filepath.Join(sourceDir, name),
			date: strings.TrimSuffix(name, ".csv"),
		})
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].date < jobs[k].date })
	return jobs, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func logDatasetSummary(dataset string, dr *DatasetReport) {
	for _, ir := range dr.Intervals {
		slog.Info("dataset summary", "dataset", dataset, "interval", ir.Interval,
			"new", ir.New, "skipped", ir.Skipped, "empty", ir.Empty, "errors", ir.Errors)
	}
	if dr.DroppedRows > 0 {
		slog.Warn("dataset had lossy files", "dataset", dataset, "dropped_rows", dr.DroppedRows)
	}
}
