package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
	"github.com/Sumatoshi-tech/headfinder/pkg/mcp"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/version"
)

func newMCPCommand(global *globalOptions) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - find_heads: resolve heads of a JSON constituency tree
  - list_rules: describe the loaded rule pack`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := global.open(cmd, observability.ModeMCP, func(obs *observability.Config) {
				obs.LogJSON = true

				if debug {
					obs.LogLevel = slog.LevelDebug
				}
			})
			if err != nil {
				return err
			}
			defer s.close()

			red, err := observability.NewREDMetrics(s.providers.Meter)
			if err != nil {
				return err
			}

			heads, err := observability.NewHeadMetrics(s.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Annotator: annotate.New(s.finder, annotate.WithMetrics(heads), annotate.WithLogger(s.logger())),
				Version:   version.Version,
				Logger:    s.logger(),
				Metrics:   red,
				Tracer:    s.providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")

	return cmd
}
