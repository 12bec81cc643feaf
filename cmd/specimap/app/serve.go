package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/specimap/internal/server"
	"github.com/agentstation/specimap/pkg/logging"
)

// NewServeCommand creates the serve command.
func (a *App) NewServeCommand() *cobra.Command {
	var (
		host     string
		port     int
		noEnrich bool
	)
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Short:   "Serve the record API and Prometheus metrics",
		Long: `Serve starts an HTTP server that accepts single records for the
enrich-score-reconcile pipeline, reads stored records and their version
history, and exposes Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.config.Engine.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			ctx := logging.WithLogger(cmd.Context(), a.logger)
			p, err := a.Pipeline(ctx, a.config.Engine, BuildOptions{SkipEnrichment: noEnrich})
			if err != nil {
				return err
			}

			srv := server.New(cfg, p.Processor, p.Store, p.Metrics.Registry, a.logger)
			return srv.ListenAndServe(ctx)
		},
	}

	defaults := a.config.Engine.Server
	cmd.Flags().StringVar(&host, "host", defaults.Host, "listen host")
	cmd.Flags().IntVar(&port, "port", defaults.Port, "listen port")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "reconcile submitted records as received")
	return cmd
}
