package orchestrate

import (
	"encoding/json"
	"log/slog"
	"os"
)

const checkpointVersion = 1

// Checkpoint records which (interval, date) outputs a dataset has completed.
// It is the primary resume mechanism; scanning the output directory remains
// the fallback skip rule, so a deleted checkpoint only costs a stat per file.
type Checkpoint struct {
	Version int `json:"version"`
	// Completed is keyed by interval label ("5MINUTE_BARS"), then date.
	Completed map[string]map[string]bool `json:"completed"`
}

// CheckpointUpdate marks one (interval, date) output as published.
type CheckpointUpdate struct {
	Label string
	Date  string
}

func loadCheckpoint(path string) *Checkpoint {
	cp := &Checkpoint{Version: checkpointVersion, Completed: make(map[string]map[string]bool)}
	data, err := os.ReadFile(path)
	if err != nil {
		return cp
	}
	var loaded Checkpoint
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.Version != checkpointVersion {
		// Unknown version: start fresh, the directory scan still protects
		// completed outputs from being recomputed.
		return cp
	}
	if loaded.Completed == nil {
		loaded.Completed = make(map[string]map[string]bool)
	}
	return &loaded
}

// Done reports whether the checkpoint records (label, date) as completed.
func (cp *Checkpoint) Done(label, date string) bool {
	return cp.Completed[label][date]
}

// clone deep-copies the checkpoint. The writer goroutine mutates its own copy
// so workers can read the loaded state without locking.
func (cp *Checkpoint) clone() *Checkpoint {
	out := &Checkpoint{Version: cp.Version, Completed: make(map[string]map[string]bool, len(cp.Completed))}
	for label, dates := range cp.Completed {
		m := make(map[string]bool, len(dates))
		for d, v := range dates {
			m[d] = v
		}
		out.Completed[label] = m
	}
	return out
}

func (cp *Checkpoint) mark(label, date string) {
	if cp.Completed[label] == nil {
		cp.Completed[label] = make(map[string]bool)
	}
	cp.Completed[label][date] = true
}

// runCheckpointWriter receives updates and persists the checkpoint after each
// one. Run as a goroutine; owns the file for the duration of the run.
func runCheckpointWriter(path string, cp *Checkpoint, updates <-chan CheckpointUpdate) {
	for u := range updates {
		cp.mark(u.Label, u.Date)
		data, err := json.MarshalIndent(cp, "", "  ")
		if err != nil {
			slog.Warn("checkpoint marshal error", "error", err)
			continue
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			slog.Warn("checkpoint write error", "error", err)
			continue
		}
		if err := os.Rename(tmp, path); err != nil {
			slog.Warn("checkpoint publish error", "error", err)
		}
	}
}
