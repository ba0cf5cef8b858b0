package store

import (
	"time"

	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/index"
)

// Unit describes the exported compilation.
type Unit struct {
	ID         string
	CreatedAt  time.Time
	Iterations int
	Duration   time.Duration
}

// File is one exported source file.
type File struct {
	ID         int64
	Path       string
	UserLoaded bool
	Modified   bool
}

// Export is everything one WriteSnapshot call stores.
type Export struct {
	Unit        Unit
	Files       []File
	Snapshot    *index.Snapshot
	Diagnostics map[string][]diag.Diagnostic
}
