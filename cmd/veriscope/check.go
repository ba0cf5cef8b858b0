package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jward/veriscope"
	"github.com/jward/veriscope/internal/diag"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Compile sources and print diagnostics",
	Long:  "Loads the given files and directories, resolves missing modules and packages from the library directories, and prints every diagnostic. Exits non-zero when errors are found.",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	e, report, err := loadEngine(context.Background(), args)
	if err != nil {
		return outputError(out, errOut, "check", err)
	}

	result := CLICheck{
		UnitID:      report.UnitID,
		Files:       len(report.Files),
		AutoLoaded:  report.AutoLoaded,
		Iterations:  report.Iterations,
		Diagnostics: diagnosticsToCLI(e.Diagnostics()),
	}
	if err := outputResult(out, CLIResult{Command: "check", Results: result}); err != nil {
		return err
	}
	if n := countErrors(result.Diagnostics); n > 0 {
		errorHandled = true
		return fmt.Errorf("%d errors", n)
	}
	return nil
}

// diagnosticsToCLI flattens per-file diagnostics, ordered by file and then
// report order.
func diagnosticsToCLI(byFile map[string][]veriscope.Diagnostic) []CLIDiagnostic {
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	out := []CLIDiagnostic{}
	for _, f := range files {
		for _, d := range byFile[f] {
			out = append(out, diagnosticToCLI(f, d))
		}
	}
	return out
}

func diagnosticToCLI(file string, d veriscope.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		File:      file,
		Severity:  d.Severity.String(),
		Code:      d.Code,
		Message:   d.Message,
		StartLine: d.Start.Line,
		StartCol:  d.Start.Character,
		EndLine:   d.End.Line,
		EndCol:    d.End.Character,
	}
}

func countErrors(diags []CLIDiagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diag.SeverityError.String() {
			n++
		}
	}
	return n
}
