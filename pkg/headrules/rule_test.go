package headrules_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

func tags(tab *symbol.Table, strs ...string) []symbol.Tag {
	return symbol.ListFrom(tab, strs)
}

func TestRule_EmptyInputNeverMatches(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	rules := map[string]headrules.Rule{
		"pattern":   headrules.MustPattern(headrules.HeadInitial, [][]string{{".*"}}),
		"set":       headrules.NewSet(headrules.HeadFinal, symbol.SetFrom(tab, "NP")),
		"ordered":   headrules.MustOrdered(headrules.HeadInitial, []string{".*"}),
		"fallback":  headrules.NewFallback(headrules.HeadInitial),
		"composite": headrules.MustComposite(headrules.NewFallback(headrules.HeadFinal)),
		"zero":      {},
	}

	for name, rule := range rules {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			idx, ok := rule.Match(nil)
			assert.False(t, ok)
			assert.Equal(t, -1, idx)

			idx, ok = rule.Match([]symbol.Tag{})
			assert.False(t, ok)
			assert.Equal(t, -1, idx)
		})
	}
}

func TestPattern_DirectionEquivalence(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	groups := [][]string{{"B"}}

	final := headrules.MustPattern(headrules.HeadFinal, groups)
	initial := headrules.MustPattern(headrules.HeadInitial, groups)

	forward := tags(tab, "A", "B", "C")
	reversed := tags(tab, "C", "B", "A")

	fi, fok := final.Match(forward)
	ii, iok := initial.Match(reversed)

	require.True(t, fok)
	require.True(t, iok)
	assert.Equal(t, forward[fi], reversed[ii])
	assert.Equal(t, "B", forward[fi].String())
}

func TestPattern_ScanOrder(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	children := tags(tab, "NN", "JJ", "NN")

	idx, ok := headrules.MustPattern(headrules.HeadInitial, [][]string{{"NN"}}).Match(children)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = headrules.MustPattern(headrules.HeadFinal, [][]string{{"NN"}}).Match(children)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestPattern_GroupPriorityBeatsPosition(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	children := tags(tab, "A", "X")

	idx, ok := headrules.MustPattern(headrules.HeadInitial, [][]string{{"X"}, {"A"}}).Match(children)
	require.True(t, ok)
	assert.Equal(t, 1, idx, "first group wins even though A comes first")

	idx, ok = headrules.MustPattern(headrules.HeadInitial, [][]string{{"X", "A"}}).Match(children)
	require.True(t, ok)
	assert.Equal(t, 0, idx, "position breaks ties inside a group")
}

func TestPattern_FullMatch(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	rule := headrules.MustPattern(headrules.HeadInitial, [][]string{{"N"}})

	_, ok := rule.Match(tags(tab, "NN", "NP"))
	assert.False(t, ok)

	idx, ok := headrules.MustPattern(headrules.HeadInitial, [][]string{{"N|NN"}}).Match(tags(tab, "NP", "NN"))
	require.True(t, ok)
	assert.Equal(t, 1, idx, "alternation is anchored as a whole")
}

func TestNewPattern_Errors(t *testing.T) {
	t.Parallel()

	_, err := headrules.NewPattern(headrules.HeadInitial, nil)
	require.ErrorIs(t, err, headrules.ErrNoPatterns)

	_, err = headrules.NewPattern(headrules.HeadInitial, [][]string{{}})
	require.ErrorIs(t, err, headrules.ErrEmptyPattern)

	_, err = headrules.NewPattern(headrules.HeadInitial, [][]string{{"NN", ""}})
	require.ErrorIs(t, err, headrules.ErrEmptyPattern)

	_, err = headrules.NewPattern(headrules.HeadInitial, [][]string{{"NN("}})
	require.ErrorIs(t, err, headrules.ErrBadPattern)

	assert.Panics(t, func() { headrules.MustPattern(headrules.HeadInitial, nil) })
}

func TestSet_Membership(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	rule := headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "SN", "GRUP.NOM"))

	idx, ok := rule.Match(tags(tab, "SP", "GRUP.NOM", "SN"))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = rule.Match(tags(tab, "SP", "sn"))
	assert.False(t, ok)

	other := symbol.NewTable()
	_, ok = rule.Match(tags(other, "SN"))
	assert.False(t, ok, "tags from another table never match")
}

func TestOrdered_CandidateMajor(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	rule := headrules.MustOrdered(headrules.HeadInitial, []string{"B", "A"})

	idx, ok := rule.Match(tags(tab, "A", "B"))
	require.True(t, ok)
	assert.Equal(t, 0, idx, "the first candidate matching any pattern wins")
}

func TestOrdered_FoldCase(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	children := tags(tab, "sp", "rg")

	strict := headrules.MustOrdered(headrules.HeadInitial, []string{"RG"})
	_, ok := strict.Match(children)
	assert.False(t, ok)

	folded := headrules.MustOrdered(headrules.HeadInitial, []string{"RG"}, headrules.FoldCase(language.Spanish))
	idx, ok := folded.Match(children)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = folded.Match(tags(tab, "RG"))
	require.True(t, ok)
	assert.Equal(t, 0, idx, "the authored form still matches")
}

func TestFallback_PicksLastInScanOrder(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	children := tags(tab, "A", "B", "C")

	idx, ok := headrules.NewFallback(headrules.HeadInitial).Match(children)
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = headrules.NewFallback(headrules.HeadFinal).Match(children)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = headrules.NewFallback(headrules.HeadFinal).Match(children[:1])
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestComposite_ShortCircuit(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	r1 := headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "A")).Named("r1")
	r2 := headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "B")).Named("r2")
	chain := headrules.MustComposite(r1, r2, headrules.NewFallback(headrules.HeadInitial).Named("fallback"))

	idx, ok, steps := chain.Explain(tags(tab, "B", "A"))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	require.Len(t, steps, 2)
	assert.Equal(t, 0, steps[0].Depth)
	assert.Equal(t, "r1", steps[1].Rule)
	assert.Equal(t, 1, steps[1].Depth)
	assert.True(t, steps[1].Matched)

	for _, step := range steps {
		assert.NotEqual(t, "r2", step.Rule)
		assert.NotEqual(t, "fallback", step.Rule)
	}

	matchIdx, matchOK := chain.Match(tags(tab, "B", "A"))
	assert.Equal(t, idx, matchIdx)
	assert.Equal(t, ok, matchOK)
}

func TestComposite_FallsThrough(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	chain := headrules.MustComposite(
		headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "Z")).Named("z"),
		headrules.NewFallback(headrules.HeadInitial).Named("fallback"),
	)

	idx, ok, steps := chain.Explain(tags(tab, "A", "B"))
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	require.Len(t, steps, 3)
	assert.False(t, steps[1].Matched)
	assert.Equal(t, -1, steps[1].Index)
	assert.True(t, steps[2].Matched)

	noFallback := headrules.MustComposite(headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "Z")))
	_, ok = noFallback.Match(tags(tab, "A"))
	assert.False(t, ok)
}

func TestComposite_FallbackTermination(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	chain := headrules.MustComposite(
		headrules.MustOrdered(headrules.HeadFinal, []string{"NN.*"}),
		headrules.NewFallback(headrules.HeadFinal),
	)
	require.True(t, chain.AlwaysMatches())

	inputs := [][]string{{"X"}, {"X", "Y"}, {"DT", "JJ", "RB"}, {"NNS", "X"}}

	for _, in := range inputs {
		idx, ok := chain.Match(tags(tab, in...))
		require.True(t, ok, in)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(in))
	}
}

func TestNewComposite_Errors(t *testing.T) {
	t.Parallel()

	_, err := headrules.NewComposite()
	require.ErrorIs(t, err, headrules.ErrEmptyComposite)

	_, err = headrules.NewComposite(headrules.NewFallback(headrules.HeadInitial), headrules.Rule{})
	require.ErrorIs(t, err, headrules.ErrInvalidRule)

	assert.Panics(t, func() { headrules.MustComposite() })
}

func TestRule_AlwaysMatches(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	set := headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "A"))

	assert.True(t, headrules.NewFallback(headrules.HeadInitial).AlwaysMatches())
	assert.False(t, set.AlwaysMatches())
	assert.False(t, headrules.MustComposite(set).AlwaysMatches())
	assert.True(t, headrules.MustComposite(set, headrules.NewFallback(headrules.HeadFinal)).AlwaysMatches())
	assert.False(t, headrules.Rule{}.Valid())
}

func TestRule_Determinism(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	rule := headrules.MustPattern(headrules.HeadFinal, [][]string{{"NN", "NNS"}, {"NP"}})
	children := tags(tab, "DT", "NP", "NNS", "NN", "POS")
	snapshot := append([]symbol.Tag(nil), children...)

	first, ok := rule.Match(children)
	require.True(t, ok)

	for range 10 {
		idx, again := rule.Match(children)
		assert.True(t, again)
		assert.Equal(t, first, idx)
	}

	assert.Equal(t, snapshot, children, "input is not mutated")
}

func TestRule_String(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	assert.Equal(t, "fallback(head-final)", headrules.NewFallback(headrules.HeadFinal).String())
	assert.Equal(t, "pattern(head-initial: [NN,NNS] [NP])",
		headrules.MustPattern(headrules.HeadInitial, [][]string{{"NN", "NNS"}, {"NP"}}).String())
	assert.Equal(t, "set(head-initial: {GRUP.NOM SN})",
		headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "SN", "GRUP.NOM")).String())
	assert.Equal(t, "more=ordered(head-initial, fold-case: RG)",
		headrules.MustOrdered(headrules.HeadInitial, []string{"RG"}, headrules.FoldCase(language.Und)).Named("more").String())
	assert.Equal(t, "first(fallback(head-initial))",
		headrules.MustComposite(headrules.NewFallback(headrules.HeadInitial)).String())
}

func TestRule_Describe(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	chain := headrules.MustComposite(
		headrules.NewSet(headrules.HeadInitial, symbol.SetFrom(tab, "SN")).Named("nouns"),
		headrules.NewFallback(headrules.HeadInitial),
	).Named("np")

	data, err := json.Marshal(chain.Describe())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"kind": "first",
		"name": "np",
		"rules": [
			{"kind": "set", "name": "nouns", "direction": "head-initial", "members": ["SN"]},
			{"kind": "fallback", "direction": "head-initial"}
		]
	}`, string(data))
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	for _, dir := range []headrules.Direction{headrules.HeadInitial, headrules.HeadFinal} {
		got, err := headrules.ParseDirection(dir.String())
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	}

	_, err := headrules.ParseDirection("left")
	require.ErrorIs(t, err, headrules.ErrUnknownDirection)
}
