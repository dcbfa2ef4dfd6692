package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trackpull/internal/scratch"
)

func newScratchCommand(ctx *commandContext) *cobra.Command {
	scratchCmd := &cobra.Command{
		Use:   "scratch",
		Short: "Scratch directory maintenance",
	}
	scratchCmd.AddCommand(newScratchCleanCommand(ctx))
	return scratchCmd
}

func newScratchCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch files left behind by crashed runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			mgr := scratch.New(cfg.Paths.ScratchDir, logger)
			defer mgr.Close()
			result, err := mgr.SweepStale(cmd.Context(), maxAge)
			if errors.Is(err, scratch.ErrBusy) {
				return fmt.Errorf("scratch directory %s is in use by a running trackpull process", cfg.Paths.ScratchDir)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, path := range result.Removed {
				fmt.Fprintln(out, renderStatusLine("Removed", statusOK, path, colorize))
			}
			for _, failure := range result.Errors {
				fmt.Fprintln(out, renderStatusLine("Failed", statusError, fmt.Sprintf("%s: %v", failure.Path, failure.Error), colorize))
			}
			fmt.Fprintf(out, "Removed %d stale entr%s\n", len(result.Removed), pluralY(len(result.Removed)))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d entries could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "older-than", time.Hour, "Only remove entries older than this")
	return cmd
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
