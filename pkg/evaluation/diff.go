package evaluation

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

// Line prefixes of Diff output.
const (
	diffSame = "  "
	diffGold = "- "
	diffPred = "+ "
)

// Diff renders t once with its gold head marks and once with the predicted
// heads, one node per line, and returns the line diff of the two renderings.
// Gold-only lines start with "- ", predicted-only lines with "+ ". Only
// children of scored nodes carry a mark, so unmarked subtrees never differ.
func Diff(t *tree.Tree, heads tree.Heads) string {
	gold := render(t, t.GoldHead)
	predicted := render(t, func(id tree.NodeID) bool { return heads.IsHead(t, id) })

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(gold, predicted)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)

	var out strings.Builder

	for _, d := range diffs {
		prefix := diffSame

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = diffGold
		case diffmatchpatch.DiffInsert:
			prefix = diffPred
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			out.WriteString(prefix)
			out.WriteString(line)
		}
	}

	return out.String()
}

func render(t *tree.Tree, marked func(tree.NodeID) bool) string {
	var b strings.Builder

	var walk func(id tree.NodeID, depth int)

	walk = func(id tree.NodeID, depth int) {
		mark := " "
		if scored(t, t.Parent(id)) && marked(id) {
			mark = "*"
		}

		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(mark)
		b.WriteString(t.Tag(id).String())

		if t.IsLeaf(id) && t.Word(id) != t.Tag(id).String() {
			b.WriteString(" ")
			b.WriteString(t.Word(id))
		}

		b.WriteString("\n")

		for _, child := range t.Children(id) {
			walk(child, depth+1)
		}
	}

	walk(t.Root(), 0)

	return b.String()
}

// scored reports whether id is a node Score compares.
func scored(t *tree.Tree, id tree.NodeID) bool {
	if id == tree.None || t.IsLeaf(id) || t.IsPreterminal(id) {
		return false
	}

	return t.GoldHeadOf(id) != tree.None
}
