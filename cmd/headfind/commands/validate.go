package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

// ErrInvalidTree is returned by validate when the document fails the schema.
var ErrInvalidTree = errors.New("tree validation failed")

func newValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <file.json|->",
		Short: "Validate a JSON tree against the tree schema",
		Long: `Validate a JSON constituency tree against the embedded tree schema.

Examples:
  headfind validate sentence.json
  headfind validate - < sentence.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, label, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			colors := newPalette(noColor)
			out := cmd.OutOrStdout()

			err = tree.Validate(data)
			if err == nil {
				colors.ok.Fprintf(out, "tree is valid (%s)\n", label)

				return nil
			}

			var verr *tree.ValidationError
			if !errors.As(err, &verr) {
				colors.bad.Fprintf(out, "invalid JSON in %s: %v\n", label, err)

				return fmt.Errorf("%w: %s", ErrInvalidTree, label)
			}

			colors.bad.Fprintf(out, "tree validation failed (%s)\n", label)
			fmt.Fprintf(out, "\nErrors:\n")

			for _, v := range verr.Violations {
				colors.bad.Fprintf(out, "  - %s: %s\n", sanitizeForTerminal(v.Field), sanitizeForTerminal(v.Description))
			}

			return fmt.Errorf("%w: %d violations in %s", ErrInvalidTree, len(verr.Violations), label)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}
