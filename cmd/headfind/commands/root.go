// Package commands implements the headfind subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/pkg/config"
	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/rulepack"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
	"github.com/Sumatoshi-tech/headfinder/pkg/version"
)

const (
	flagConfig    = "config"
	flagPack      = "pack"
	flagTable     = "table"
	flagUnmapped  = "unmapped"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// globalOptions holds the persistent flag values.
type globalOptions struct {
	configPath string
	pack       string
	table      string
	unmapped   string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the headfind command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "headfind",
		Short: "Find syntactic heads in constituency trees",
		Long: `headfind locates the head child of every node of a constituency parse tree
using a rule table plus language-specific override rules.

Trees are read as JSON: {"tag": "S", "children": [{"tag": "NP", ...}]}, with
"word" on leaves and an optional "head": true marking gold heads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, flagConfig, "", "config file (default ./headfind.yaml, ./config/, /etc/headfind/)")
	flags.StringVar(&opts.pack, flagPack, "", "rule pack name (default "+config.DefaultPack+")")
	flags.StringVar(&opts.table, flagTable, "", "replacement rule table file for the pack")
	flags.StringVar(&opts.unmapped, flagUnmapped, "", "unmapped-tag policy: fail or default (default: pack manifest)")
	flags.StringVar(&opts.logLevel, flagLogLevel, "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, flagLogFormat, "", "log format: text or json")

	rootCmd.AddCommand(
		newHeadsCommand(opts),
		newRulesCommand(opts),
		newCheckCommand(),
		newValidateCommand(),
		newEvalCommand(opts),
		newPacksCommand(),
		newServeCommand(opts),
		newMCPCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

// loadConfig reads the config file and environment, then applies the
// persistent flags that were set explicitly.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}

	override(flagPack, &cfg.Rules.Pack, o.pack)
	override(flagTable, &cfg.Rules.Table, o.table)
	override(flagUnmapped, &cfg.Rules.Unmapped, o.unmapped)
	override(flagLogLevel, &cfg.Logging.Level, o.logLevel)
	override(flagLogFormat, &cfg.Logging.Format, o.logFormat)

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// session is the per-invocation state shared by commands that resolve trees.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	finder    *headrules.Finder
}

func (s *session) logger() *slog.Logger { return s.providers.Logger }

func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.logger().Warn("observability shutdown failed", "error", err)
	}
}

// observabilityConfig maps the loaded configuration onto the telemetry setup.
func observabilityConfig(cfg *config.Config, mode observability.AppMode) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.Mode = mode
	obs.Environment = cfg.Telemetry.Environment
	obs.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obs.SampleRatio = cfg.Telemetry.SampleRatio
	obs.LogLevel = cfg.Logging.SlogLevel()
	obs.LogJSON = strings.EqualFold(cfg.Logging.Format, "json")

	return obs
}

// open loads the configuration, initializes telemetry and loads the rule pack.
func (o *globalOptions) open(cmd *cobra.Command, mode observability.AppMode, tune func(*observability.Config)) (*session, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	obs := observabilityConfig(cfg, mode)
	obs.LogOutput = cmd.ErrOrStderr()

	if tune != nil {
		tune(&obs)
	}

	providers, err := observability.Init(obs)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	s := &session{cfg: cfg, providers: providers}

	s.finder, err = loadFinder(cfg.Rules, symbol.NewTable(), providers.Logger)
	if err != nil {
		s.close()

		return nil, err
	}

	return s, nil
}

func loadFinder(rules config.RulesConfig, tab *symbol.Table, logger *slog.Logger) (*headrules.Finder, error) {
	opts := []rulepack.Option{rulepack.WithLogger(logger)}

	if rules.Table != "" {
		opts = append(opts, rulepack.WithTableFile(rules.Table))
	}

	if rules.Unmapped != "" {
		policy, err := headrules.ParseUnmappedPolicy(rules.Unmapped)
		if err != nil {
			return nil, err
		}

		opts = append(opts, rulepack.WithUnmapped(policy))
	}

	f, err := rulepack.Load(rules.Pack, tab, opts...)
	if err != nil {
		return nil, fmt.Errorf("load rule pack %q: %w", rules.Pack, err)
	}

	return f, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
