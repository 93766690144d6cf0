package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

const (
	formatJSON = "json"
	formatTree = "tree"

	headMark = "*"
)

var (
	// ErrUnknownFormat is returned for an unsupported --format value.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrStdinRepeated is returned when "-" appears more than once.
	ErrStdinRepeated = errors.New(`stdin ("-") may be given only once`)
)

type headsOptions struct {
	format  string
	workers int
	noColor bool
}

func newHeadsCommand(global *globalOptions) *cobra.Command {
	opts := &headsOptions{}

	cmd := &cobra.Command{
		Use:   "heads [file.json...|-]",
		Short: "Resolve the head of every node of JSON trees",
		Long: `Resolve the head child of every internal node and print the annotated trees.

With no arguments, or "-", the tree is read from stdin. Several files are
resolved in parallel; output keeps the argument order.

Examples:
  headfind heads sentence.json
  headfind heads -f tree --pack english a.json b.json
  echo '{"tag":"NP","children":[...]}' | headfind heads -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeads(cmd, global, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: json or tree")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", runtime.GOMAXPROCS(0), "maximum files resolved in parallel")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored tree output")

	return cmd
}

func runHeads(cmd *cobra.Command, global *globalOptions, opts *headsOptions, args []string) error {
	switch opts.format {
	case formatJSON, formatTree:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.format)
	}

	if len(args) == 0 {
		args = []string{stdinArg}
	}

	stdinCount := 0

	for _, arg := range args {
		if arg == stdinArg {
			stdinCount++
		}
	}

	if stdinCount > 1 {
		return ErrStdinRepeated
	}

	s, err := global.open(cmd, observability.ModeCLI, nil)
	if err != nil {
		return err
	}
	defer s.close()

	annotator := annotate.New(s.finder, annotate.WithLogger(s.logger()))

	results := make([]*annotate.Result, len(args))
	labels := make([]string, len(args))

	group, ctx := errgroup.WithContext(cmd.Context())
	group.SetLimit(max(opts.workers, 1))

	// stdin is read before fan-out so only one goroutine ever touches it.
	inputs := make([][]byte, len(args))

	for idx, arg := range args {
		if arg != stdinArg {
			continue
		}

		inputs[idx], labels[idx], err = readInput(arg, cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	for idx, arg := range args {
		group.Go(func() error {
			data := inputs[idx]
			if data == nil {
				var readErr error

				data, labels[idx], readErr = readInput(arg, nil)
				if readErr != nil {
					return readErr
				}
			}

			res, annotateErr := annotator.Annotate(ctx, data)
			if annotateErr != nil {
				return fmt.Errorf("%s: %w", labels[idx], annotateErr)
			}

			results[idx] = res

			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if opts.format == formatJSON {
		return writeResultsJSON(out, results)
	}

	colors := newPalette(opts.noColor)

	for idx, res := range results {
		if len(results) > 1 {
			fmt.Fprintf(out, "# %s\n", labels[idx])
		}

		colors.renderTree(out, res)
	}

	return nil
}

func writeResultsJSON(out io.Writer, results []*annotate.Result) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	for _, res := range results {
		err := enc.Encode(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}

	return nil
}

// renderTree prints one node per line, indented by depth. Head children
// carry a "*" mark.
func (p *palette) renderTree(out io.Writer, res *annotate.Result) {
	var walk func(node *tree.JSONNode, depth int)

	walk = func(node *tree.JSONNode, depth int) {
		indent := strings.Repeat("  ", depth)
		tag := sanitizeForTerminal(node.Tag)

		var label string

		if node.Head {
			label = p.head.Sprint(headMark + tag)
		} else {
			label = p.tag.Sprint(" " + tag)
		}

		if node.Word != "" && node.Word != node.Tag {
			label += " " + p.word.Sprint(sanitizeForTerminal(node.Word))
		}

		fmt.Fprintf(out, "%s%s\n", indent, label)

		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}

	walk(res.Tree, 0)

	if res.HeadWord != "" {
		fmt.Fprintf(out, "head: %s\n", p.head.Sprint(sanitizeForTerminal(res.HeadWord)))
	}
}
