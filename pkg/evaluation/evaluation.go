// Package evaluation scores resolved heads against gold head marks.
package evaluation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

// Pair holds a reference item (the key) and the item compared against it.
type Pair[K, T any] struct {
	Key  K `json:"key"`
	Test T `json:"test"`
}

// PairOf builds a Pair. The key comes first.
func PairOf[K, T any](key K, test T) Pair[K, T] {
	return Pair[K, T]{Key: key, Test: test}
}

// Both applies fn to both sides of p.
func Both[T, R any](p Pair[T, T], fn func(T) R) Pair[R, R] {
	return Pair[R, R]{Key: fn(p.Key), Test: fn(p.Test)}
}

// TagScore counts scored nodes of one parent tag.
type TagScore struct {
	Tag     string `json:"tag"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
}

// Accuracy returns Correct/Total, or 0 for no nodes.
func (s TagScore) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}

	return float64(s.Correct) / float64(s.Total)
}

// Mismatch is one node whose predicted head differs from its gold head.
type Mismatch struct {
	Tree   int    `json:"tree"`
	Path   string `json:"path"`
	Parent string `json:"parent"`
	// Heads holds the gold (key) and predicted (test) head child as
	// "TAG[index]".
	Heads Pair[string, string] `json:"heads"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("tree %d %s: gold %s, predicted %s", m.Tree, m.Path, m.Heads.Key, m.Heads.Test)
}

// Report is the result of Score.
type Report struct {
	Trees      int                  `json:"trees"`
	Skipped    int                  `json:"skipped"`
	Total      int                  `json:"total"`
	Correct    int                  `json:"correct"`
	ByTag      map[string]*TagScore `json:"by_tag"`
	Mismatches []Mismatch           `json:"mismatches,omitempty"`
}

// Accuracy returns the overall share of correct heads.
func (r *Report) Accuracy() float64 {
	return TagScore{Total: r.Total, Correct: r.Correct}.Accuracy()
}

// Tags returns the per-tag scores sorted by tag.
func (r *Report) Tags() []TagScore {
	out := make([]TagScore, 0, len(r.ByTag))
	for _, s := range r.ByTag {
		out = append(out, *s)
	}

	slices.SortFunc(out, func(a, b TagScore) int { return strings.Compare(a.Tag, b.Tag) })

	return out
}

// Score resolves every tree and compares each internal node that has
// exactly one gold-marked child. Nodes without a usable gold mark are
// counted in Skipped. The first resolution error aborts scoring.
func Score(ctx context.Context, f *headrules.Finder, trees []*tree.Tree) (*Report, error) {
	report := &Report{ByTag: make(map[string]*TagScore)}

	for tidx, t := range trees {
		heads, err := headrules.Resolve(ctx, f, t)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", tidx, err)
		}

		report.Trees++

		scoreTree(report, tidx, t, heads)
	}

	return report, nil
}

func scoreTree(report *Report, tidx int, t *tree.Tree, heads tree.Heads) {
	t.Walk(func(id tree.NodeID) bool {
		if t.IsLeaf(id) || t.IsPreterminal(id) {
			return false
		}

		gold := t.GoldHeadOf(id)
		if gold == tree.None {
			report.Skipped++

			return true
		}

		parent := t.Tag(id).String()

		score, ok := report.ByTag[parent]
		if !ok {
			score = &TagScore{Tag: parent}
			report.ByTag[parent] = score
		}

		score.Total++
		report.Total++

		predicted := heads.Of(id)
		if predicted == gold {
			score.Correct++
			report.Correct++

			return true
		}

		report.Mismatches = append(report.Mismatches, Mismatch{
			Tree:   tidx,
			Path:   t.Path(id),
			Parent: parent,
			Heads:  Both(PairOf(gold, predicted), func(child tree.NodeID) string { return childLabel(t, child) }),
		})

		return true
	})
}

func childLabel(t *tree.Tree, child tree.NodeID) string {
	if child == tree.None {
		return "-"
	}

	parent := t.Parent(child)

	for idx, sibling := range t.Children(parent) {
		if sibling == child {
			return fmt.Sprintf("%s[%d]", t.Tag(child), idx)
		}
	}

	return t.Tag(child).String()
}
