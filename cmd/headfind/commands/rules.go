package commands

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
)

func newRulesCommand(global *globalOptions) *cobra.Command {
	var (
		tag    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the head rules of the loaded pack",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := global.open(cmd, observability.ModeCLI, nil)
			if err != nil {
				return err
			}
			defer s.close()

			annotator := annotate.New(s.finder, annotate.WithLogger(s.logger()))

			var infos []annotate.RuleInfo

			if tag != "" {
				info, ruleErr := annotator.Rule(tag)
				if ruleErr != nil {
					return ruleErr
				}

				infos = []annotate.RuleInfo{info}
			} else {
				infos = annotator.Rules()
				if def, ok := annotator.Default(); ok {
					infos = append(infos, def)
				}
			}

			if format == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(infos)
			}

			fmt.Fprintln(cmd.OutOrStdout(), rulesTable(s.finder.Name(), infos))

			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "show only the rule for this parent tag")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")

	return cmd
}

func rulesTable(pack string, infos []annotate.RuleInfo) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("rule pack " + pack)
	tbl.AppendHeader(table.Row{"Tag", "Kind", "Rule"})

	for _, info := range infos {
		tbl.AppendRow(table.Row{info.Tag, info.Description.Kind, info.Rule})
	}

	tbl.AppendFooter(table.Row{"", "", "Total: " + humanize.Comma(int64(len(infos))) + " rules"})

	return tbl.Render()
}
