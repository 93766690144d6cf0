package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/internal/server"
	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
)

func newServeCommand(global *globalOptions) *cobra.Command {
	var (
		host    string
		port    int
		maxBody string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the head finding HTTP API",
		Long: `Serve the HTTP API:
  POST /api/heads        resolve {"tree": ...}
  GET  /api/rules        list rules
  GET  /api/rules/{tag}  describe one rule
  GET  /healthz          liveness and pack summary
  GET  /metrics          Prometheus metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var limit uint64

			if maxBody != "" {
				parsed, err := humanize.ParseBytes(maxBody)
				if err != nil {
					return fmt.Errorf("invalid --max-body %q: %w", maxBody, err)
				}

				limit = parsed
			}

			s, err := global.open(cmd, observability.ModeServe, func(obs *observability.Config) {
				obs.Prometheus = true
			})
			if err != nil {
				return err
			}
			defer s.close()

			if cmd.Flags().Changed("host") {
				s.cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				s.cfg.Server.Port = port
			}

			if limit > 0 {
				s.cfg.Server.MaxBodyBytes = int64(limit) //nolint:gosec // bounded by humanize parsing of a CLI flag.
			}

			err = s.cfg.Validate()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			red, err := observability.NewREDMetrics(s.providers.Meter)
			if err != nil {
				return err
			}

			heads, err := observability.NewHeadMetrics(s.providers.Meter)
			if err != nil {
				return err
			}

			handler := server.NewHandler(server.Deps{
				Annotator:    annotate.New(s.finder, annotate.WithMetrics(heads), annotate.WithLogger(s.logger())),
				Logger:       s.logger(),
				Tracer:       s.providers.Tracer,
				RED:          red,
				Metrics:      s.providers.MetricsHandler,
				MaxBodyBytes: s.cfg.Server.MaxBodyBytes,
			})

			s.logger().InfoContext(cmd.Context(), "starting headfind server",
				"addr", s.cfg.Server.Addr(), "pack", s.finder.Name(),
				"max_body", humanize.IBytes(uint64(s.cfg.Server.MaxBodyBytes))) //nolint:gosec // validated positive.

			return server.New(s.cfg.Server, handler, s.logger()).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().StringVar(&maxBody, "max-body", "", `request body limit, e.g. "4MiB" (default from config)`)

	return cmd
}
