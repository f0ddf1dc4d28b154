package cli

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/editor"
	"github.com/meikuraledutech/flowchart/internal/logging"
	"github.com/meikuraledutech/flowchart/metrics"
	"github.com/meikuraledutech/flowchart/server"
)

type serveOpts struct {
	addr string
	open string
}

func newServeCmd(root *rootOpts) *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one editing session over HTTP",
		Long: `Starts an HTTP server around a single editor session. The session
can be saved to and loaded from the configured store, and Prometheus
metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}

			ctx := cmd.Context()
			logger := logging.FromContext(ctx)

			store, closeStore, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer closeStore()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())

			ed := editor.New(cfg.EditorConfig(),
				editor.WithObserver(metrics.New(reg)),
				editor.WithLogger(logger.WithPrefix("editor")),
			)
			if opts.open != "" {
				err := ed.LoadFrom(ctx, store, opts.open)
				switch {
				case errors.Is(err, flowchart.ErrDocumentNotFound):
					logger.Warn("no stored document, starting empty", "id", opts.open)
				case err != nil:
					return err
				}
			}

			srv := server.New(ed,
				server.WithStore(store),
				server.WithGatherer(reg),
				server.WithLogger(logger.WithPrefix("http")),
			)

			errc := make(chan error, 1)
			go func() {
				errc <- srv.Listen(cfg.Server.Addr)
			}()

			select {
			case err := <-errc:
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
				logger.Info("shutting down")
				if err := srv.Shutdown(); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.open, "open", "", "load this stored document at startup")
	return cmd
}
