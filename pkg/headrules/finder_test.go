package headrules_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

func newFinder(t *testing.T, tab *symbol.Table, table string, opts ...headrules.Option) *headrules.Finder {
	t.Helper()

	entries, err := headrules.ParseTable(strings.NewReader(table), tab, headrules.GrammarGrouped)
	require.NoError(t, err)

	b := headrules.NewBuilder(tab, nil)
	require.NoError(t, b.AddEntries(entries))

	f, err := b.Build(opts...)
	require.NoError(t, err)

	return f
}

func TestFinder_NounPhraseScenario(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	f := newFinder(t, tab, "NP false NOUN,NN.*\n")

	idx, err := f.HeadIndex(tab.Intern("NP"), tags(tab, "DET", "ADJ", "NOUN"))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestHeadOf_ReturnsOwnChild(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	f := newFinder(t, tab, "NP false NOUN\n")

	b := tree.NewBuilder(tab)
	det := b.Node("DET", b.Leaf("the", "the"))
	adj := b.Node("ADJ", b.Leaf("big", "big"))
	noun := b.Node("NOUN", b.Leaf("dog", "dog"))
	root := b.Node("NP", det, adj, noun)

	tr, err := b.Build(root)
	require.NoError(t, err)

	head, err := headrules.HeadOf(f, tr.Ref(root))
	require.NoError(t, err)
	assert.Equal(t, noun, head.ID())
	assert.Equal(t, tr.Root(), tr.Parent(head.ID()))

	again, err := headrules.HeadOf(f, tr.Ref(root))
	require.NoError(t, err)
	assert.Equal(t, head, again)
}

func TestFinder_UnmappedFail(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	f := newFinder(t, tab, "NP false NN\n")

	assert.Equal(t, headrules.UnmappedFail, f.Policy())

	_, err := f.HeadIndex(tab.Intern("VP"), tags(tab, "VB"))
	require.ErrorIs(t, err, headrules.ErrNoRule)

	var uerr *headrules.UnmappedError

	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "VP", uerr.Tag)
}

func TestFinder_UnmappedDefault(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	f := newFinder(t, tab, "NP false NN\n", headrules.WithDefault(headrules.NewFallback(headrules.HeadFinal)))

	assert.Equal(t, headrules.UnmappedDefault, f.Policy())

	idx, err := f.HeadIndex(tab.Intern("VP"), tags(tab, "VB", "NP"))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	rule, ok := f.Default()
	require.True(t, ok)
	assert.Equal(t, headrules.KindFallback, rule.Kind())
}

func TestBuild_DefaultNeedsRule(t *testing.T) {
	t.Parallel()

	_, err := headrules.NewBuilder(symbol.NewTable(), nil).Build(headrules.WithDefault(headrules.Rule{}))
	require.ErrorIs(t, err, headrules.ErrNoDefaultRule)
}

func TestFinder_NoHead(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	f := newFinder(t, tab, "NP false NN\n")

	_, err := f.HeadIndex(tab.Intern("NP"), tags(tab, "DT", "JJ"))
	require.ErrorIs(t, err, headrules.ErrNoHead)
	assert.Contains(t, err.Error(), "DT JJ")

	_, err = f.HeadIndex(tab.Intern("NP"), nil)
	require.ErrorIs(t, err, headrules.ErrNoChildren)
}

func TestBuilder_SetAndOverride(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	var logs bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b := headrules.NewBuilder(tab, logger)

	np := tab.Intern("NP")
	table := headrules.MustPattern(headrules.HeadFinal, [][]string{{"NN"}})

	require.NoError(t, b.Set(np, table))
	require.ErrorIs(t, b.Set(np, table), headrules.ErrDuplicateTag)

	override := headrules.NewFallback(headrules.HeadInitial).Named("np-override")
	require.NoError(t, b.Override(np, override))
	require.NoError(t, b.Override(tab.Intern("VP"), override))

	f, err := b.Build()
	require.NoError(t, err)

	rule, ok := f.Rule(np)
	require.True(t, ok)
	assert.Equal(t, "np-override", rule.Name())

	assert.Contains(t, logs.String(), "head rule override")
	assert.Contains(t, logs.String(), "tag=NP")
	assert.Contains(t, logs.String(), "replaced=true")
	assert.Contains(t, logs.String(), "replaced=false")
}

func TestBuilder_RejectsBadInput(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	b := headrules.NewBuilder(tab, nil)
	rule := headrules.NewFallback(headrules.HeadInitial)

	require.ErrorIs(t, b.Set(symbol.Tag{}, rule), headrules.ErrZeroTag)
	require.ErrorIs(t, b.Set(symbol.NewTable().Intern("NP"), rule), headrules.ErrTableMismatch)
	require.ErrorIs(t, b.Override(tab.Intern("NP"), headrules.Rule{}), headrules.ErrInvalidRule)
	assert.Equal(t, 0, b.Len())
}

func TestAddEntries_DuplicateCarriesLine(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	b := headrules.NewBuilder(tab, nil)

	entries := []headrules.Entry{
		{Tag: tab.Intern("NP"), Rule: headrules.NewFallback(headrules.HeadInitial), Line: 1},
		{Tag: tab.Intern("NP"), Rule: headrules.NewFallback(headrules.HeadFinal), Line: 7},
	}

	err := b.AddEntries(entries)
	require.ErrorIs(t, err, headrules.ErrDuplicateTag)
	assert.Contains(t, err.Error(), "line 7")
}

func TestFinder_Immutable(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	b := headrules.NewBuilder(tab, nil)
	require.NoError(t, b.Set(tab.Intern("VP"), headrules.NewFallback(headrules.HeadInitial)))
	require.NoError(t, b.Set(tab.Intern("ADJP"), headrules.NewFallback(headrules.HeadInitial)))

	f, err := b.Build(headrules.WithName("tiny"))
	require.NoError(t, err)

	require.NoError(t, b.Set(tab.Intern("NP"), headrules.NewFallback(headrules.HeadInitial)))

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []string{"ADJP", "VP"}, symbol.Strings(f.Tags()))
	assert.Equal(t, "tiny", f.Name())
	assert.Same(t, tab, f.Table())

	listed := f.Tags()
	listed[0] = tab.Intern("ZZ")
	assert.Equal(t, "ADJP", f.Tags()[0].String())
}

func TestFinder_ForeignTag(t *testing.T) {
	t.Parallel()

	f := newFinder(t, symbol.NewTable(), "NP false NN\n")
	other := symbol.NewTable()

	_, err := f.RuleFor(other.Intern("NP"))
	require.ErrorIs(t, err, headrules.ErrTableMismatch)

	_, err = f.RuleFor(symbol.Tag{})
	require.ErrorIs(t, err, headrules.ErrZeroTag)
}

func TestParseUnmappedPolicy(t *testing.T) {
	t.Parallel()

	p, err := headrules.ParseUnmappedPolicy("Default")
	require.NoError(t, err)
	assert.Equal(t, headrules.UnmappedDefault, p)
	assert.Equal(t, "default", p.String())

	p, err = headrules.ParseUnmappedPolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, "fail", p.String())

	_, err = headrules.ParseUnmappedPolicy("ignore")
	require.ErrorIs(t, err, headrules.ErrUnknownUnmapped)
}
