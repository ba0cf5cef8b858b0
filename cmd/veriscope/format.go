package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// outputResult writes a CLIResult to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to w as a
// CLIResult envelope. In text mode it goes to errW.
func outputError(w, errW io.Writer, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(errW, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLISymbol:
		return formatSymbolsText(w, v)
	case CLISymbolTable:
		return formatSymbolTableText(w, v)
	case []CLIRecord:
		return formatRecordsText(w, v)
	case []CLIDiagnostic:
		return formatDiagnosticsText(w, v)
	case CLICheck:
		return formatCheckText(w, v)
	case CLICompletion:
		return formatCompletionText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
}

func formatSymbolsText(w io.Writer, syms []CLISymbol) error {
	table := tablewriter.NewWriter(w)
	table.Header("FILE", "NAME", "SCOPE", "TYPE", "KIND")
	for _, s := range syms {
		if err := table.Append([]string{s.File, s.Name, s.Scope, s.Type, s.Kind}); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatRecordsText(w io.Writer, records []CLIRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header("RECORD", "MEMBER", "TYPE", "KIND")
	for _, r := range records {
		if len(r.Members) == 0 {
			if err := table.Append([]string{r.Name, "", "", ""}); err != nil {
				return err
			}
		}
		for _, m := range r.Members {
			if err := table.Append([]string{r.Name, m.Name, m.Type, m.Kind}); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

func formatSymbolTableText(w io.Writer, st CLISymbolTable) error {
	fmt.Fprintln(w, "Symbols:")
	if err := formatSymbolsText(w, st.Symbols); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Records:")
	if err := formatRecordsText(w, st.Records); err != nil {
		return err
	}
	if len(st.Packages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Package files:")
		for _, p := range st.Packages {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}

// formatDiagnosticsText prints one "file:line:col: severity: message" line
// per diagnostic, with 1-based positions as compilers print them.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) error {
	for _, d := range diags {
		code := ""
		if d.Code != "" {
			code = " [" + d.Code + "]"
		}
		fmt.Fprintf(w, "%s:%d:%d: %s: %s%s\n",
			d.File, d.StartLine+1, d.StartCol+1, d.Severity, d.Message, code)
	}
	return nil
}

func formatCheckText(w io.Writer, c CLICheck) error {
	if err := formatDiagnosticsText(w, c.Diagnostics); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d files, %d auto-loaded, %d iterations, %d diagnostics\n",
		c.Files, len(c.AutoLoaded), c.Iterations, len(c.Diagnostics))
	return nil
}

func formatCompletionText(w io.Writer, c CLICompletion) error {
	fmt.Fprintf(w, "strategy: %s\n", c.Strategy)
	if len(c.Items) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("LABEL", "KIND", "DETAIL")
	for _, it := range c.Items {
		if err := table.Append([]string{it.Label, it.Kind, it.Detail}); err != nil {
			return err
		}
	}
	return table.Render()
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}
