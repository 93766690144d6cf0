package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/pkg/rulepack"
)

func newPacksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "packs",
		Short: "List the bundled rule packs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Name", "Language", "Format", "Default", "Unmapped", "Description"})

			for _, name := range rulepack.Names() {
				m, err := rulepack.Lookup(name)
				if err != nil {
					return err
				}

				tbl.AppendRow(table.Row{m.Name, m.Language, m.Format, m.Direction, m.Unmapped, m.Description})
			}

			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())

			return nil
		},
	}
}
