package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"trackpull/internal/api"
	"trackpull/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		track  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded track outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return errors.New("ledger is disabled (set ledger.enabled = true)")
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []ledger.Entry
			if track != "" {
				entries, err = store.ForTrack(cmd.Context(), track)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, api.HistoryResponse{Entries: api.FromLedgerEntries(entries)})
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No outcomes recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				result := string(e.Disposition)
				if e.ErrorKind != "" {
					result += " (" + e.ErrorKind + ")"
				}
				tier := ""
				if e.Tier.Valid() {
					tier = e.Tier.String()
				}
				rows = append(rows, []string{
					e.FinishedAt.Local().Format("2006-01-02 15:04:05"),
					e.ExternalID,
					trackLabel(e),
					result,
					e.Strategy,
					tier,
					fmt.Sprint(e.Attempts),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "ID", "Track", "Result", "Strategy", "Tier", "Attempts"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show")
	cmd.Flags().StringVar(&track, "track", "", "Only show outcomes for this track id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func trackLabel(e ledger.Entry) string {
	switch {
	case e.Artist != "" && e.Title != "":
		return e.Artist + " - " + e.Title
	case e.Title != "":
		return e.Title
	default:
		return e.Artist
	}
}
