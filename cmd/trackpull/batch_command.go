package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trackpull/internal/batch"
	"trackpull/internal/logging"
	"trackpull/internal/manifest"
	"trackpull/internal/model"
	"trackpull/internal/notifications"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		concurrency int
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "batch <manifest.toml>",
		Short: "Process a manifest of tracks with bounded concurrency",
		Long: "Process every [[track]] entry of a TOML manifest. At most --concurrency tracks are\n" +
			"in flight; Ctrl-C stops admitting new tracks and cancels the ones running.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			sess, err := ctx.openSession(nil)
			if err != nil {
				return err
			}
			defer sess.close()

			bound := concurrency
			if bound <= 0 {
				bound = sess.cfg.Batch.Concurrency
			}
			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = sess.cfg.Paths.OutputDir
			}

			saved := make([]string, len(reqs))
			var batchID string
			controller := batch.New(sess.pipeline,
				batch.WithLogger(sess.logger),
				batch.WithObserver(func(evt batch.Event) {
					batchID = evt.BatchID
				}),
				batch.WithSink(func(index int, outcome model.Outcome) {
					sess.record(batchID, outcome)
					if outcome.Status != model.StatusComplete {
						return
					}
					path, err := saveAndRelease(dir, outcome)
					if err != nil {
						logging.ErrorWithContext(sess.logger, "save track failed", "output_write_failed",
							logging.String(logging.FieldTrackID, outcome.Request.ID),
							logging.String(logging.FieldErrorHint, "check output directory permissions and free space"),
							logging.Error(err),
						)
						return
					}
					saved[index] = path
				}),
			)

			notifier := notifications.NewService(sess.cfg)
			notify(sess, "batch start", notifier.NotifyBatchStarted(cmd.Context(), len(reqs), bound))

			runCtx, stop := signalContext(cmd)
			defer stop()
			report := controller.Run(runCtx, reqs, bound)

			counts := report.Counts()
			notify(sess, "batch summary", notifier.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{
				Tracks:     len(reqs),
				Complete:   counts.Complete,
				Redirected: counts.Redirected,
				Failed:     counts.Failed,
				Cancelled:  counts.Cancelled,
				Duration:   report.Duration,
			}))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderBatchTable(report, saved))
			fmt.Fprintf(out, "Batch %s %s in %s: %d complete, %d redirected, %d failed (%d retry later, %d unavailable, %d cancelled)\n",
				report.BatchID, report.State, report.Duration.Round(time.Millisecond),
				counts.Complete, counts.Redirected, counts.Failed,
				counts.RetryLater, counts.Unavailable, counts.Cancelled)

			if report.State == batch.StateCancelled {
				return fmt.Errorf("batch cancelled after %d of %d tracks", len(reqs)-counts.Cancelled, len(reqs))
			}
			if counts.Failed > 0 {
				return fmt.Errorf("%d of %d tracks failed", counts.Failed, len(reqs))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Maximum tracks in flight (defaults to batch.concurrency)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for transcoded files (defaults to paths.output_dir)")
	return cmd
}

func notify(sess *session, what string, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(sess.logger, "notification failed", "notification_failed",
		logging.String("notification", what),
		logging.String(logging.FieldImpact, "ntfy subscribers were not informed"),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.Error(err),
	)
}

func renderBatchTable(report batch.Report, saved []string) string {
	headers := []string{"#", "Track", "Result", "Strategy", "Tier", "Attempts", "Detail"}
	rows := make([][]string, 0, len(report.Outcomes))
	for i, o := range report.Outcomes {
		tier := ""
		if o.Tier.Valid() {
			tier = o.Tier.String()
		}
		path := ""
		if i < len(saved) {
			path = saved[i]
		}
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			o.Request.Label(),
			string(o.Disposition()),
			string(o.Strategy),
			tier,
			fmt.Sprint(len(o.Attempts)),
			outcomeDetail(o, path),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
}
