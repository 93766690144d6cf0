package annotate_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

const sentence = `{"tag":"S","children":[
	{"tag":"NP","children":[{"tag":"NN","children":[{"tag":"dogs","word":"dogs"}]}]},
	{"tag":"VP","children":[{"tag":"VBP","children":[{"tag":"bark","word":"bark"}]}]}]}`

func newFinder(t *testing.T, opts ...headrules.Option) *headrules.Finder {
	t.Helper()

	tab := symbol.NewTable()

	entries, err := headrules.ParseTable(strings.NewReader("S true VP\nNP false NN\nVP true VB.*\n"), tab, headrules.GrammarGrouped)
	require.NoError(t, err)

	b := headrules.NewBuilder(tab, nil)
	require.NoError(t, b.AddEntries(entries))

	f, err := b.Build(append([]headrules.Option{headrules.WithName("test")}, opts...)...)
	require.NoError(t, err)

	return f
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	a := annotate.New(newFinder(t))

	res, err := a.Annotate(context.Background(), []byte(sentence))
	require.NoError(t, err)

	assert.Equal(t, "bark", res.HeadWord)
	assert.Equal(t, 7, res.Nodes)
	assert.Equal(t, 5, res.Resolved)
	assert.False(t, res.Tree.Children[0].Head)
	assert.True(t, res.Tree.Children[1].Head)
}

func TestAnnotate_Errors(t *testing.T) {
	t.Parallel()

	a := annotate.New(newFinder(t))

	_, err := a.Annotate(context.Background(), []byte(`{"children":[]}`))
	require.ErrorIs(t, err, tree.ErrSchemaViolation)

	_, err = a.Annotate(context.Background(), []byte(`{"tag":"X","children":[{"tag":"Y","children":[{"tag":"a","word":"a"}]},{"tag":"Z","children":[{"tag":"b","word":"b"}]}]}`))
	require.ErrorIs(t, err, headrules.ErrNoRule)

	var rerr *headrules.ResolveError

	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "X", rerr.Path)
}

func TestAnnotate_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	hm, err := observability.NewHeadMetrics(mp.Meter("test"))
	require.NoError(t, err)

	a := annotate.New(newFinder(t), annotate.WithMetrics(hm))

	_, err = a.Annotate(context.Background(), []byte(sentence))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	var trees int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "headfind.trees.total" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					trees += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(1), trees)
}

func TestAnnotate_Concurrent(t *testing.T) {
	t.Parallel()

	a := annotate.New(newFinder(t))

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res, err := a.Annotate(context.Background(), []byte(sentence))
			assert.NoError(t, err)
			assert.Equal(t, "bark", res.HeadWord)
		}()
	}

	wg.Wait()
}

func TestRules(t *testing.T) {
	t.Parallel()

	a := annotate.New(newFinder(t))

	rules := a.Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"NP", "S", "VP"}, []string{rules[0].Tag, rules[1].Tag, rules[2].Tag})
	assert.Equal(t, "pattern", rules[0].Description.Kind)

	info, err := a.Rule("VP")
	require.NoError(t, err)
	assert.Equal(t, "pattern(head-initial: [VB.*])", info.Rule)

	_, err = a.Rule("ADJP")
	require.ErrorIs(t, err, annotate.ErrUnknownTag)

	_, ok := a.Default()
	assert.False(t, ok)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	a := annotate.New(newFinder(t, headrules.WithDefault(headrules.NewFallback(headrules.HeadFinal))))

	info, ok := a.Default()
	require.True(t, ok)
	assert.Equal(t, "*", info.Tag)
	assert.Equal(t, "fallback", info.Description.Kind)
}
