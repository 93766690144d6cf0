// Package annotate is the request-level head resolution shared by the HTTP
// and MCP surfaces: validate a JSON tree, resolve it against one Finder,
// record metrics and return the annotated wire form.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/tree"
)

// ErrUnknownTag is returned by Rule for a tag the finder has no rule for.
var ErrUnknownTag = errors.New("no rule registered for tag")

// Result is one annotated tree.
type Result struct {
	Tree     *tree.JSONNode `json:"tree"`
	HeadWord string         `json:"head_word,omitempty"`
	Nodes    int            `json:"nodes"`
	Resolved int            `json:"resolved"`
}

// RuleInfo describes the rule registered for one tag.
type RuleInfo struct {
	Tag         string                `json:"tag"`
	Rule        string                `json:"rule"`
	Description headrules.Description `json:"description"`
}

// Annotator resolves trees against one Finder. It is safe for concurrent use.
type Annotator struct {
	finder  *headrules.Finder
	metrics *observability.HeadMetrics
	logger  *slog.Logger
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithMetrics records every resolution on hm.
func WithMetrics(hm *observability.HeadMetrics) Option {
	return func(a *Annotator) { a.metrics = hm }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Annotator) { a.logger = logger }
}

// New returns an Annotator over f.
func New(f *headrules.Finder, opts ...Option) *Annotator {
	a := &Annotator{finder: f, logger: slog.Default()}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Finder returns the underlying finder.
func (a *Annotator) Finder() *headrules.Finder { return a.finder }

// Annotate validates data as a JSON tree, decodes it into the finder's tag
// table and resolves every head. Schema failures are *tree.ValidationError;
// resolution failures are *headrules.ResolveError.
func (a *Annotator) Annotate(ctx context.Context, data []byte) (*Result, error) {
	t, err := tree.Parse(data, a.finder.Table())
	if err != nil {
		return nil, err
	}

	return a.AnnotateTree(ctx, t)
}

// AnnotateTree resolves an already decoded tree.
func (a *Annotator) AnnotateTree(ctx context.Context, t *tree.Tree) (*Result, error) {
	start := time.Now()

	heads, err := headrules.Resolve(ctx, a.finder, t)

	resolved := countHeads(heads)

	if a.metrics != nil {
		a.metrics.RecordTree(ctx, a.finder.Name(), resolved, time.Since(start), err)
	}

	if err != nil {
		a.logger.DebugContext(ctx, "head resolution failed", "pack", a.finder.Name(), "error", err)

		return nil, err
	}

	res := &Result{
		Tree:     tree.ToJSON(t, heads),
		Nodes:    t.Len(),
		Resolved: resolved,
	}

	if word := tree.LexicalHead(t, heads, t.Root()); word != tree.None {
		res.HeadWord = t.Word(word)
	}

	return res, nil
}

// Rules describes every registered rule, in tag order.
func (a *Annotator) Rules() []RuleInfo {
	tags := a.finder.Tags()
	out := make([]RuleInfo, 0, len(tags))

	for _, tag := range tags {
		rule, _ := a.finder.Rule(tag)
		out = append(out, describe(tag.String(), rule))
	}

	return out
}

// Rule describes the rule registered for tag. The unmapped-tag default is
// not reported here; see Default.
func (a *Annotator) Rule(tag string) (RuleInfo, error) {
	sym, ok := a.finder.Table().Lookup(tag)
	if ok {
		if rule, found := a.finder.Rule(sym); found {
			return describe(tag, rule), nil
		}
	}

	return RuleInfo{}, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
}

// Default describes the unmapped-tag default rule, if the finder has one.
func (a *Annotator) Default() (RuleInfo, bool) {
	rule, ok := a.finder.Default()
	if !ok {
		return RuleInfo{}, false
	}

	return describe("*", rule), true
}

func describe(tag string, rule headrules.Rule) RuleInfo {
	return RuleInfo{Tag: tag, Rule: rule.String(), Description: rule.Describe()}
}

func countHeads(heads tree.Heads) int {
	n := 0

	for _, h := range heads {
		if h != tree.None {
			n++
		}
	}

	return n
}
