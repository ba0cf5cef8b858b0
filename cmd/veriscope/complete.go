package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/veriscope/internal/complete"
)

var completeCmd = &cobra.Command{
	Use:   "complete <file> <line> <col>",
	Short: "Complete at a position",
	Long:  "Compiles the file with its dependencies and completes at a 0-based line and UTF-16 column.",
	Args:  cobra.ExactArgs(3),
	RunE:  runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	fail := func(err error) error { return outputError(out, errOut, "complete", err) }

	file, err := filepath.Abs(args[0])
	if err != nil {
		return fail(fmt.Errorf("resolving file path %q: %w", args[0], err))
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return fail(err)
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return fail(err)
	}

	ctx := context.Background()
	e, err := newEngine(ctx, filepath.Dir(file))
	if err != nil {
		return fail(err)
	}
	if _, err := e.OpenFromDisk(ctx, file); err != nil {
		return fail(err)
	}
	return outputResult(out, CLIResult{Command: "complete", Results: completionToCLI(e.Complete(file, line, col))})
}

func completionToCLI(res complete.Result) CLICompletion {
	c := CLICompletion{Strategy: res.Strategy.String(), Items: make([]CLICompletionItem, 0, len(res.Items))}
	for _, it := range res.Items {
		c.Items = append(c.Items, CLICompletionItem{
			Label:         it.Label,
			InsertText:    it.InsertText,
			Kind:          it.Kind.String(),
			Detail:        it.Detail,
			Documentation: it.Documentation,
		})
	}
	return c
}
