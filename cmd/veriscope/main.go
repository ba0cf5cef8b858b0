package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/veriscope"
	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/source"
)

var (
	flagFormat    string
	flagIncludes  []string
	flagLibraries []string
	flagFilelists []string
	flagPolicy    string
	flagVerbose   bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "veriscope",
	Short:         "SystemVerilog completion and diagnostics",
	Long:          "Veriscope compiles SystemVerilog sources, loads missing modules and packages from library directories, and serves completion and diagnostics to editors.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		if _, ok := diag.ParseRangePolicy(flagPolicy); !ok {
			return fmt.Errorf("invalid range policy %q: must be last, primary or union", flagPolicy)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagFormat, "format", "json", "output format: json|text")
	pf.StringSliceVarP(&flagIncludes, "include", "I", nil, "include directory (repeatable)")
	pf.StringSliceVarP(&flagLibraries, "library", "y", nil, "library directory searched for missing modules and packages (repeatable)")
	pf.StringSliceVarP(&flagFilelists, "filelist", "f", nil, "filelist (.f) to load (repeatable)")
	pf.StringVar(&flagPolicy, "range-policy", diag.LastHighlight.String(), "diagnostic range: last|primary|union")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log compilation progress to stderr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
}

// logOutput is where component logs go. Only --verbose shows them.
func logOutput() io.Writer {
	if flagVerbose {
		return os.Stderr
	}
	return io.Discard
}

// newEngine creates an engine rooted at the repository containing dir and
// applies environment and flag settings on top of discovery.
func newEngine(ctx context.Context, dir string) (*veriscope.Engine, error) {
	policy, _ := diag.ParseRangePolicy(flagPolicy)
	e := veriscope.New(veriscope.WithLogger(logOutput()), veriscope.WithRangePolicy(policy))
	e.SetRoot(findRepoRoot(dir))

	st, err := source.LoadEnv()
	if err != nil {
		return nil, err
	}
	st.IncludePaths = append(st.IncludePaths, absAll(flagIncludes)...)
	st.LibraryPaths = append(st.LibraryPaths, absAll(flagLibraries)...)
	st.Filelists = append(st.Filelists, absAll(flagFilelists)...)
	if !st.Empty() {
		if _, err := e.Configure(ctx, st); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, p)
	}
	return out
}

// collectSources expands the arguments into source files. Directories are
// walked with .gitignore rules; no arguments means the working directory.
func collectSources(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	var out []string
	seen := make(map[string]bool)
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", abs)
		}
		files := []string{abs}
		if info.IsDir() {
			if files, err = source.Walk(abs); err != nil {
				return nil, fmt.Errorf("walking %s: %w", abs, err)
			}
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no SystemVerilog sources found in %v", args)
	}
	return out, nil
}

// baseDir is the directory discovery starts from for a set of sources.
func baseDir(paths []string) string {
	if len(paths) == 0 {
		cwd, _ := os.Getwd()
		return cwd
	}
	return filepath.Dir(paths[0])
}

// loadEngine compiles the sources named by args once.
func loadEngine(ctx context.Context, args []string) (*veriscope.Engine, *veriscope.Report, error) {
	paths, err := collectSources(args)
	if err != nil {
		return nil, nil, err
	}
	e, err := newEngine(ctx, baseDir(paths))
	if err != nil {
		return nil, nil, err
	}
	report, err := e.AddFiles(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	return e, report, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}
