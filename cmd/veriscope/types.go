package main

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly symbol.
type CLISymbol struct {
	File        string `json:"file"`
	Name        string `json:"name"`
	Scope       string `json:"scope,omitempty"`
	Type        string `json:"type"`
	Record      string `json:"record,omitempty"`
	ArrayLevels int    `json:"array_levels"`
	Kind        string `json:"kind"`
}

// CLIMember is one field of a CLIRecord.
type CLIMember struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Record      string `json:"record,omitempty"`
	ArrayLevels int    `json:"array_levels"`
	Kind        string `json:"kind"`
}

// CLIRecord is a JSON-friendly record type.
type CLIRecord struct {
	Name    string      `json:"name"`
	Members []CLIMember `json:"members"`
}

// CLISymbolTable is the output of the symbols command.
type CLISymbolTable struct {
	Symbols  []CLISymbol `json:"symbols"`
	Records  []CLIRecord `json:"records"`
	Packages []string    `json:"packages"`
}

// CLIDiagnostic is a JSON-friendly diagnostic. Lines and columns are
// 0-based.
type CLIDiagnostic struct {
	File      string `json:"file"`
	Severity  string `json:"severity"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLICheck is the output of the check command.
type CLICheck struct {
	UnitID      string          `json:"unit_id"`
	Files       int             `json:"files"`
	AutoLoaded  []string        `json:"auto_loaded"`
	Iterations  int             `json:"iterations"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
}

// CLICompletion is the output of the complete command.
type CLICompletion struct {
	Strategy string              `json:"strategy"`
	Items    []CLICompletionItem `json:"items"`
}

// CLICompletionItem is one completion candidate.
type CLICompletionItem struct {
	Label         string `json:"label"`
	InsertText    string `json:"insert_text,omitempty"`
	Kind          string `json:"kind"`
	Detail        string `json:"detail,omitempty"`
	Documentation string `json:"documentation,omitempty"`
}
