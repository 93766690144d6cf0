package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/pkg/evaluation"
	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

const percent = 100

func newEvalCommand(global *globalOptions) *cobra.Command {
	var (
		format     string
		mismatches bool
		diff       bool
		htmlPath   string
	)

	cmd := &cobra.Command{
		Use:   "eval <file.json...>",
		Short: "Score resolved heads against gold head marks",
		Long: `Resolve every tree and compare each node's head with its gold mark
("head": true on exactly one child). Nodes without a gold mark are skipped.

Examples:
  headfind eval --pack english gold/*.json
  headfind eval --diff gold.json
  headfind eval --html accuracy.html gold/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := global.open(cmd, observability.ModeCLI, nil)
			if err != nil {
				return err
			}
			defer s.close()

			trees := make([]*tree.Tree, 0, len(args))
			labels := make([]string, 0, len(args))

			for _, arg := range args {
				data, label, readErr := readInput(arg, cmd.InOrStdin())
				if readErr != nil {
					return readErr
				}

				t, parseErr := tree.Parse(data, s.finder.Table())
				if parseErr != nil {
					return fmt.Errorf("%s: %w", label, parseErr)
				}

				trees = append(trees, t)
				labels = append(labels, label)
			}

			report, err := evaluation.Score(cmd.Context(), s.finder, trees)
			if err != nil {
				return err
			}

			s.logger().DebugContext(cmd.Context(), "evaluation finished",
				"trees", report.Trees, "total", report.Total, "correct", report.Correct)

			out := cmd.OutOrStdout()

			if htmlPath != "" {
				err = writeChartFile(htmlPath, report, s.finder.Name())
				if err != nil {
					return err
				}
			}

			if format == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")

				return enc.Encode(report)
			}

			fmt.Fprintln(out, evalTable(report))

			if mismatches {
				for _, m := range report.Mismatches {
					fmt.Fprintf(out, "  %s\n", m)
				}
			}

			if diff {
				return writeDiffs(cmd, s.finder, trees, labels, report)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	cmd.Flags().BoolVar(&mismatches, "mismatches", false, "list every mismatched node")
	cmd.Flags().BoolVar(&diff, "diff", false, "print a gold/predicted diff of every tree with mismatches")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write a per-tag accuracy chart to this HTML file")

	return cmd
}

func evalTable(report *evaluation.Report) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("%s trees, %s nodes skipped", humanize.Comma(int64(report.Trees)), humanize.Comma(int64(report.Skipped))))
	tbl.AppendHeader(table.Row{"Tag", "Correct", "Total", "Accuracy"})

	for _, score := range report.Tags() {
		tbl.AppendRow(table.Row{
			score.Tag,
			humanize.Comma(int64(score.Correct)),
			humanize.Comma(int64(score.Total)),
			formatPercent(score.Accuracy()),
		})
	}

	tbl.AppendFooter(table.Row{
		"all",
		humanize.Comma(int64(report.Correct)),
		humanize.Comma(int64(report.Total)),
		formatPercent(report.Accuracy()),
	})

	return tbl.Render()
}

func formatPercent(ratio float64) string {
	return humanize.FtoaWithDigits(ratio*percent, 2) + "%"
}

func writeChartFile(path string, report *evaluation.Report, pack string) error {
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	err = report.WriteChart(file, "rule pack "+pack)
	if err != nil {
		file.Close()

		return err
	}

	return file.Close()
}

// writeDiffs prints the gold/predicted diff of each tree that has at least
// one mismatch.
func writeDiffs(cmd *cobra.Command, f *headrules.Finder, trees []*tree.Tree, labels []string, report *evaluation.Report) error {
	out := cmd.OutOrStdout()
	seen := make(map[int]bool)

	for _, m := range report.Mismatches {
		if seen[m.Tree] {
			continue
		}

		seen[m.Tree] = true

		heads, err := headrules.Resolve(cmd.Context(), f, trees[m.Tree])
		if err != nil {
			return fmt.Errorf("%s: %w", labels[m.Tree], err)
		}

		fmt.Fprintf(out, "--- gold %s\n+++ predicted %s\n", labels[m.Tree], labels[m.Tree])
		fmt.Fprint(out, sanitizeLines(evaluation.Diff(trees[m.Tree], heads)))
	}

	return nil
}

func sanitizeLines(text string) string {
	lines := strings.SplitAfter(text, "\n")
	for idx, line := range lines {
		if trimmed, ok := strings.CutSuffix(line, "\n"); ok {
			lines[idx] = sanitizeForTerminal(trimmed) + "\n"
		}
	}

	return strings.Join(lines, "")
}
