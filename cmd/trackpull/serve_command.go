package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trackpull/internal/api"
	"trackpull/internal/deps"
	"trackpull/internal/metrics"
	"trackpull/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tracks over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := metrics.New()
			sess, err := ctx.openSession(m)
			if err != nil {
				return err
			}
			defer sess.close()

			cfg := sess.cfg
			opts := []api.HandlerOption{
				api.WithDiagnostics(func(ctx context.Context) ([]preflight.Result, []deps.Status) {
					return preflight.RunAll(ctx, cfg), preflight.CheckTools(ctx, cfg)
				}),
			}
			if sess.ledger != nil {
				opts = append(opts, api.WithHistory(sess.ledger))
			}
			handler := api.NewHandler(sess.pipeline, sess.logger, opts...)
			router := api.NewRouter(handler, sess.logger, m)

			address := strings.TrimSpace(bind)
			if address == "" {
				address = cfg.Server.Bind
			}
			srv, err := api.NewServer(address, router, sess.logger)
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd)
			defer stop()
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

			<-runCtx.Done()
			srv.Stop()
			sess.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}
