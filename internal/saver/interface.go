package saver

import (
	"strings"

	"us-bars/internal/model"
)

// TableSaver persists one canonical table to disk. High-level code injects the
// implementation; the orchestrator depends only on this interface.
//
// Implementations publish atomically: the file is written to a temporary
// sibling and renamed into place, so a partially written output is never
// observable as complete and reruns never append to an existing file.
type TableSaver interface {
	Save(t *model.Table, path string) error
	Extension() string
}

// NewTableSaver creates an implementation by format (csv, parquet, json).
// Returns nil if the format is not supported.
func NewTableSaver(format string) TableSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}
