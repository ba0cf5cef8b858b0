package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagDB    string
	flagForce bool
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Export the symbol index to SQLite",
	Long:  "Compiles the given files and directories and writes files, symbols, record types, package files and diagnostics to a SQLite database. Each run replaces the previous export.",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagDB, "db", "", "database path (default: .veriscope/index.db relative to repo root)")
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database file before exporting")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	errOut := cmd.ErrOrStderr()

	ctx := context.Background()
	e, report, err := loadEngine(ctx, args)
	if err != nil {
		return err
	}

	dbPath := resolveDBPath(findRepoRoot(e.Config().RootPath))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(errOut, "Cleared database: %s\n", dbPath)
	}
	if err := e.Export(dbPath); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	fmt.Fprintf(errOut, "Indexed %d files (%d auto-loaded, %d iterations) in %s\n",
		len(report.Files), len(report.AutoLoaded), report.Iterations,
		time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(errOut, "Database: %s\n", dbPath)
	return nil
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".veriscope", "index.db")
}
