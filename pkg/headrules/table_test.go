package headrules_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/headfinder/pkg/convert"
	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

const groupedTable = `# Collins-style fragment
NP false NN,NNS,NNP NP

  VP   true   VB.*,MD  VP
ADJP false JJ.*
`

func TestParseTable_Grouped(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	entries, err := headrules.ParseTable(strings.NewReader(groupedTable), tab, headrules.GrammarGrouped)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "NP", entries[0].Tag.String())
	assert.Equal(t, 2, entries[0].Line)
	assert.Equal(t, headrules.HeadFinal, entries[0].Rule.Direction())
	assert.Equal(t, "VP", entries[1].Tag.String())
	assert.Equal(t, 4, entries[1].Line)
	assert.Equal(t, headrules.HeadInitial, entries[1].Rule.Direction())

	np := entries[0].Rule

	idx, ok := np.Match(tags(tab, "DT", "NP", "NNS", "JJ"))
	require.True(t, ok)
	assert.Equal(t, 2, idx, "group one beats the NP group")

	desc := np.Describe()
	assert.Equal(t, [][]string{{"NN", "NNS", "NNP"}, {"NP"}}, desc.Groups)
}

func TestParseTable_GroupedBraces(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	entries, err := headrules.ParseTable(strings.NewReader(`X true A{1,2},B [,;]`), tab, headrules.GrammarGrouped)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	desc := entries[0].Rule.Describe()
	assert.Equal(t, [][]string{{"A{1,2}", "B"}, {"[,;]"}}, desc.Groups)

	idx, ok := entries[0].Rule.Match(tags(tab, "C", "AA"))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = entries[0].Rule.Match(tags(tab, "C", ","))
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestParseTable_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		grammar headrules.Grammar
		table   string
		line    int
		want    error
	}{
		{name: "missing direction", grammar: headrules.GrammarGrouped, table: "# header\nNP NN,NNS\n", line: 2, want: headrules.ErrMissingDirection},
		{name: "tag only", grammar: headrules.GrammarGrouped, table: "NP\n", line: 1, want: headrules.ErrMissingFields},
		{name: "no groups", grammar: headrules.GrammarGrouped, table: "NP true\n", line: 1, want: headrules.ErrNoPatterns},
		{name: "non-boolean direction", grammar: headrules.GrammarGrouped, table: "NP yes NN\n", line: 1, want: headrules.ErrInvalidDirection},
		{name: "capitalised direction", grammar: headrules.GrammarGrouped, table: "NP True NN\n", line: 1, want: convert.ErrNotStrictBool},
		{name: "empty alternative", grammar: headrules.GrammarGrouped, table: "NP true NN,,NNS\n", line: 1, want: headrules.ErrEmptyPattern},
		{name: "bad regex", grammar: headrules.GrammarGrouped, table: "VP true VB\nNP true NN(\n", line: 2, want: headrules.ErrBadPattern},
		{name: "duplicate tag", grammar: headrules.GrammarGrouped, table: "NP true NN\nNP false NNS\n", line: 2, want: headrules.ErrDuplicateTag},
		{name: "opennlp count", grammar: headrules.GrammarOpenNLP, table: "5 NP 0 NN NNS\n", line: 1, want: headrules.ErrFieldCount},
		{name: "opennlp count not a number", grammar: headrules.GrammarOpenNLP, table: "x NP 0 NN\n", line: 1, want: headrules.ErrFieldCount},
		{name: "opennlp direction", grammar: headrules.GrammarOpenNLP, table: "3 NP 2 NN\n", line: 1, want: headrules.ErrInvalidDirection},
		{name: "opennlp missing direction", grammar: headrules.GrammarOpenNLP, table: "\n\n1 NP\n", line: 3, want: headrules.ErrMissingDirection},
		{name: "opennlp no patterns", grammar: headrules.GrammarOpenNLP, table: "2 NP 1\n", line: 1, want: headrules.ErrNoPatterns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entries, err := headrules.ParseTable(strings.NewReader(tt.table), symbol.NewTable(), tt.grammar)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, entries, "no partial table")

			var lerr *headrules.LineError

			require.ErrorAs(t, err, &lerr)
			assert.Equal(t, tt.line, lerr.Line)
			assert.Contains(t, err.Error(), "line ")
		})
	}
}

func TestParseTable_OpenNLP(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()
	table := "4 NP 0 NN NNS\n3 SA 1 AQ.*\n"

	entries, err := headrules.ParseTable(strings.NewReader(table), tab, headrules.GrammarOpenNLP)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	np := entries[0].Rule
	assert.Equal(t, headrules.HeadFinal, np.Direction())
	assert.Equal(t, [][]string{{"NN"}, {"NNS"}}, np.Describe().Groups)

	idx, ok := np.Match(tags(tab, "NN", "NNS", "NN", "DT"))
	require.True(t, ok)
	assert.Equal(t, 2, idx, "rightmost NN before any NNS")

	idx, ok = entries[1].Rule.Match(tags(tab, "RG", "AQ0MS0", "AQ0FS0"))
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestParseTable_UnknownGrammar(t *testing.T) {
	t.Parallel()

	_, err := headrules.ParseTable(strings.NewReader("NP true NN"), symbol.NewTable(), "penn")
	require.ErrorIs(t, err, headrules.ErrUnknownGrammar)
}

func TestParseGrammar(t *testing.T) {
	t.Parallel()

	g, err := headrules.ParseGrammar(" OpenNLP ")
	require.NoError(t, err)
	assert.Equal(t, headrules.GrammarOpenNLP, g)

	_, err = headrules.ParseGrammar("csv")
	require.ErrorIs(t, err, headrules.ErrUnknownGrammar)

	assert.Len(t, headrules.Grammars(), 2)
}

func TestParseLine_SkipsBlankAndComments(t *testing.T) {
	t.Parallel()

	tab := symbol.NewTable()

	for _, line := range []string{"", "   ", "# NP true NN", "\t#comment"} {
		_, ok, err := headrules.ParseLine(line, tab, headrules.GrammarGrouped)
		require.NoError(t, err)
		assert.False(t, ok, "%q", line)
	}

	entry, ok, err := headrules.ParseLine("  PP true IN,TO  ", tab, headrules.GrammarGrouped)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tab.Intern("PP"), entry.Tag)
}
