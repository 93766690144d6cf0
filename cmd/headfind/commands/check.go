package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// ErrLintFindings is returned by check --strict when a rule is unreachable.
var ErrLintFindings = errors.New("table has unreachable rules")

func newCheckCommand() *cobra.Command {
	var (
		grammarName string
		strict      bool
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "check <table-file>",
		Short: "Parse and lint a head rule table",
		Long: `Parse a rule table file, report the first malformed line with its line
number, and lint every rule for sub-rules that can never be reached.

Examples:
  headfind check heads.txt
  headfind check --grammar opennlp es_heads.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grammar, err := headrules.ParseGrammar(grammarName)
			if err != nil {
				return err
			}

			resolved, err := resolveUserFilePath(args[0])
			if err != nil {
				return err
			}

			file, err := os.Open(resolved)
			if err != nil {
				return fmt.Errorf("open table: %w", err)
			}
			defer file.Close()

			tab := symbol.NewTable()

			entries, err := headrules.ParseTable(file, tab, grammar)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			builder := headrules.NewBuilder(tab, nil)

			err = builder.AddEntries(entries)
			if err != nil {
				return err
			}

			finder, err := builder.Build(headrules.WithName(filepath.Base(resolved)))
			if err != nil {
				return err
			}

			colors := newPalette(noColor)
			out := cmd.OutOrStdout()

			colors.ok.Fprintf(out, "%s: %s entries (%s grammar)\n", args[0], humanize.Comma(int64(len(entries))), grammar)

			dead := finder.Lint()
			for _, d := range dead {
				colors.warn.Fprintf(out, "  - %s\n", d)
			}

			if len(dead) > 0 && strict {
				return fmt.Errorf("%w: %d", ErrLintFindings, len(dead))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&grammarName, "grammar", string(headrules.GrammarGrouped), "table grammar: grouped or opennlp")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when lint finds unreachable rules")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}
