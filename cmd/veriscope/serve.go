package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/glsp/server"

	"github.com/jward/veriscope/internal/lsp"
	"github.com/jward/veriscope/internal/watch"
)

// version is reported to LSP clients.
var version = "dev"

var (
	flagWatch    bool
	flagDebounce time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server over stdio",
	Long:  "Serves completion and diagnostics over the Language Server Protocol on stdin/stdout. Logs go to stderr.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagWatch, "watch", false, "re-index when library or on-disk sources change")
	serveCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounceDelay, "delay before a batch of file changes triggers a re-index")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	e, err := newEngine(ctx, cwd)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	srv := lsp.New(e,
		lsp.WithContext(ctx),
		lsp.WithVersion(version),
		lsp.WithExit(func() { os.Exit(0) }),
	)
	if flagWatch {
		go func() {
			if err := srv.Watch(ctx, flagDebounce); err != nil {
				fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			}
		}()
	}
	return server.NewServer(srv.Handler(), "veriscope", false).RunStdio()
}
