package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trackpull/internal/api"
	"trackpull/internal/manifest"
	"trackpull/internal/model"
	"trackpull/internal/quality"
)

func newGetCommand(ctx *commandContext) *cobra.Command {
	var (
		title     string
		artist    string
		tierFlag  string
		outputDir string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "get <id-or-url>",
		Short: "Acquire and transcode a single track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := manifest.ExtractID(args[0])
			if err != nil {
				return err
			}
			req := model.TrackRequest{ID: id, Title: strings.TrimSpace(title), Artist: strings.TrimSpace(artist)}
			if strings.TrimSpace(tierFlag) != "" {
				tier, err := quality.Parse(tierFlag)
				if err != nil {
					return err
				}
				req.Quality = tier
			}

			sess, err := ctx.openSession(nil)
			if err != nil {
				return err
			}
			defer sess.close()

			runCtx, stop := signalContext(cmd)
			defer stop()
			outcome := sess.pipeline.AcquireAndTranscode(runCtx, req)
			sess.record("", outcome)

			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = sess.cfg.Paths.OutputDir
			}
			var saved string
			if outcome.Status == model.StatusComplete {
				saved, err = saveOutcome(dir, outcome)
				if err != nil {
					return err
				}
			}

			if asJSON {
				if err := writeJSON(cmd, getResult(outcome, saved)); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine(req.Label(), dispositionKind(outcome.Disposition()), outcomeDetail(outcome, saved), colorize))
				if !outcome.Succeeded() {
					printFailure(out, outcome, colorize)
				}
			}
			if !outcome.Succeeded() {
				return fmt.Errorf("track %s: %s", id, outcome.Disposition())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Track title used for the output filename and tags")
	cmd.Flags().StringVar(&artist, "artist", "", "Track artist used for the output filename and tags")
	cmd.Flags().StringVarP(&tierFlag, "quality", "q", "", "Quality tier (1-4 or low, medium, high, best)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the transcoded file (defaults to paths.output_dir)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	return cmd
}

type getOutput struct {
	RunID       string               `json:"runId"`
	TrackID     string               `json:"trackId"`
	Status      string               `json:"status"`
	Disposition string               `json:"disposition"`
	Strategy    string               `json:"strategy,omitempty"`
	Tier        int                  `json:"tier,omitempty"`
	Path        string               `json:"path,omitempty"`
	SizeBytes   int64                `json:"sizeBytes,omitempty"`
	RedirectURL string               `json:"redirectUrl,omitempty"`
	Failure     *api.FailureResponse `json:"failure,omitempty"`
}

func getResult(o model.Outcome, saved string) getOutput {
	res := getOutput{
		RunID:       o.RunID,
		TrackID:     o.Request.ID,
		Status:      string(o.Status),
		Disposition: string(o.Disposition()),
		Strategy:    string(o.Strategy),
		Tier:        int(o.Tier),
		Path:        saved,
		Failure:     api.FromOutcome(o),
	}
	if o.Result != nil {
		res.SizeBytes = o.Result.SizeBytes
	}
	if o.Redirect != nil {
		res.RedirectURL = o.Redirect.URL
	}
	return res
}
