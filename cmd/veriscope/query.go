package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/veriscope/internal/index"
	"github.com/jward/veriscope/internal/store"
)

var (
	flagName string
	flagFile string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query an exported index",
	Long:  "Reads the SQLite database written by 'veriscope index'. All line and column numbers are 0-based.",
}

var querySymbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List exported symbols, optionally filtered by --name or --file",
	Args:  cobra.NoArgs,
	RunE:  runQuerySymbols,
}

var queryRecordsCmd = &cobra.Command{
	Use:   "records [name]",
	Short: "List record types and their members",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQueryRecords,
}

var queryDiagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "List exported diagnostics, optionally filtered by --file",
	Args:  cobra.NoArgs,
	RunE:  runQueryDiagnostics,
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .veriscope/index.db relative to repo root)")
	querySymbolsCmd.Flags().StringVar(&flagName, "name", "", "only symbols with this name")
	querySymbolsCmd.Flags().StringVar(&flagFile, "file", "", "only symbols declared in this file")
	queryDiagnosticsCmd.Flags().StringVar(&flagFile, "file", "", "only diagnostics of this file")

	queryCmd.AddCommand(querySymbolsCmd)
	queryCmd.AddCommand(queryRecordsCmd)
	queryCmd.AddCommand(queryDiagnosticsCmd)
}

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'veriscope index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// exportedFiles returns the single file named by --file, or every
// exported file.
func exportedFiles(s *store.Store) ([]string, error) {
	if flagFile != "" {
		abs, err := resolveFilePath(flagFile)
		if err != nil {
			return nil, err
		}
		return []string{abs}, nil
	}
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out, nil
}

func runQuerySymbols(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	fail := func(err error) error { return outputError(out, errOut, "query symbols", err) }

	s, err := openStore()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	var syms []index.Symbol
	if flagName != "" {
		if syms, err = s.SymbolsByName(flagName); err != nil {
			return fail(err)
		}
	} else {
		files, err := exportedFiles(s)
		if err != nil {
			return fail(err)
		}
		for _, f := range files {
			list, err := s.SymbolsByFile(f)
			if err != nil {
				return fail(err)
			}
			syms = append(syms, list...)
		}
	}

	result := []CLISymbol{}
	for _, sym := range syms {
		if flagFile != "" && flagName != "" {
			if abs, _ := resolveFilePath(flagFile); abs != sym.File {
				continue
			}
		}
		result = append(result, symbolToCLI(sym))
	}
	total := len(result)
	return outputResult(out, CLIResult{Command: "query symbols", Results: result, TotalCount: &total})
}

func runQueryRecords(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	fail := func(err error) error { return outputError(out, errOut, "query records", err) }

	s, err := openStore()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	names := args
	if len(names) == 0 {
		if names, err = s.Records(); err != nil {
			return fail(err)
		}
	}
	result := []CLIRecord{}
	for _, name := range names {
		members, err := s.RecordMembers(name)
		if err != nil {
			return fail(err)
		}
		result = append(result, recordToCLI(name, members))
	}
	total := len(result)
	return outputResult(out, CLIResult{Command: "query records", Results: result, TotalCount: &total})
}

func runQueryDiagnostics(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	fail := func(err error) error { return outputError(out, errOut, "query diagnostics", err) }

	s, err := openStore()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	files, err := exportedFiles(s)
	if err != nil {
		return fail(err)
	}
	result := []CLIDiagnostic{}
	for _, f := range files {
		list, err := s.DiagnosticsByFile(f)
		if err != nil {
			return fail(err)
		}
		for _, d := range list {
			result = append(result, diagnosticToCLI(f, d))
		}
	}
	total := len(result)
	return outputResult(out, CLIResult{Command: "query diagnostics", Results: result, TotalCount: &total})
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}
