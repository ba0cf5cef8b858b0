package veriscope

import (
	"github.com/jward/veriscope/internal/complete"
	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/index"
	"github.com/jward/veriscope/internal/source"
)

// Public type aliases for the internal types that appear in the Engine
// API. External consumers use these names; no conversion is needed.

type Settings = source.Settings
type SourceFile = source.File
type ProjectConfig = source.Config
type Symbol = index.Symbol
type Record = index.Record
type Member = index.Member
type Kind = index.Kind
type Diagnostic = diag.Diagnostic
type Severity = diag.Severity
type RangePolicy = diag.RangePolicy
type CompletionItem = complete.Item
type CompletionResult = complete.Result

// Range policies, re-exported for WithRangePolicy.
const (
	LastHighlight    = diag.LastHighlight
	PrimaryHighlight = diag.PrimaryHighlight
	UnionHighlights  = diag.UnionHighlights
)
