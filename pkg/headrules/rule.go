// Package headrules finds the syntactic head child of constituency tree
// nodes.
//
// A [Rule] selects one child out of an ordered list of candidate tags. The
// rule kinds are a closed set: table-derived pattern rules, set-membership
// rules, ordered-pattern rules, the fallback rule and composite chains. A
// [Finder] maps a parent tag to the rule governing it. Rules and finders are
// immutable once built and safe for concurrent use.
package headrules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// Sentinel errors for rule construction.
var (
	ErrNoPatterns     = errors.New("rule has no patterns")
	ErrEmptyPattern   = errors.New("empty pattern")
	ErrBadPattern     = errors.New("invalid pattern")
	ErrEmptyComposite = errors.New("composite rule needs at least one sub-rule")
	ErrInvalidRule    = errors.New("invalid rule")
)

// Kind identifies the variant of a Rule.
type Kind uint8

// Rule kinds.
const (
	KindInvalid Kind = iota
	KindPattern
	KindSet
	KindOrdered
	KindFallback
	KindComposite
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindPattern:   "pattern",
	KindSet:       "set",
	KindOrdered:   "ordered",
	KindFallback:  "fallback",
	KindComposite: "first",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "invalid"
}

// pattern is one compiled full-match tag pattern.
type pattern struct {
	src    string
	re     *regexp.Regexp
	folded *regexp.Regexp
}

func compilePattern(src string) (pattern, error) {
	if src == "" {
		return pattern{}, ErrEmptyPattern
	}

	re, err := regexp.Compile(`^(?:` + src + `)$`)
	if err != nil {
		return pattern{}, fmt.Errorf("%w %q: %w", ErrBadPattern, src, err)
	}

	return pattern{src: src, re: re}, nil
}

func (p pattern) matches(text string) bool {
	if p.re.MatchString(text) {
		return true
	}

	return p.folded != nil && p.folded.MatchString(text)
}

// Rule selects the head among candidate children. The zero Rule is
// KindInvalid and never matches.
type Rule struct {
	kind     Kind
	dir      Direction
	name     string
	groups   [][]pattern
	patterns []pattern
	set      symbol.Set
	rules    []Rule
	foldCase bool
}

// NewPattern builds a table-derived rule. Groups are tried in priority
// order; every pattern of a group is tried against the whole scan before
// the next group is considered.
func NewPattern(dir Direction, groups [][]string) (Rule, error) {
	if len(groups) == 0 {
		return Rule{}, ErrNoPatterns
	}

	compiled := make([][]pattern, len(groups))

	for gidx, group := range groups {
		if len(group) == 0 {
			return Rule{}, fmt.Errorf("group %d: %w", gidx+1, ErrEmptyPattern)
		}

		compiled[gidx] = make([]pattern, len(group))

		for pidx, src := range group {
			p, err := compilePattern(src)
			if err != nil {
				return Rule{}, fmt.Errorf("group %d: %w", gidx+1, err)
			}

			compiled[gidx][pidx] = p
		}
	}

	return Rule{kind: KindPattern, dir: dir, groups: compiled}, nil
}

// MustPattern is NewPattern for hand-written rules; it panics on error.
func MustPattern(dir Direction, groups [][]string) Rule {
	r, err := NewPattern(dir, groups)
	if err != nil {
		panic(err)
	}

	return r
}

// NewSet builds a rule matching the first candidate whose tag is in set.
func NewSet(dir Direction, set symbol.Set) Rule {
	return Rule{kind: KindSet, dir: dir, set: set}
}

// OrderedOption configures NewOrdered.
type OrderedOption func(*orderedConfig)

type orderedConfig struct {
	fold     bool
	foldLang language.Tag
}

// FoldCase makes an ordered rule also try the lower-cased form of each
// pattern, lower-cased by the rules of lang.
func FoldCase(lang language.Tag) OrderedOption {
	return func(cfg *orderedConfig) {
		cfg.fold = true
		cfg.foldLang = lang
	}
}

// NewOrdered builds a rule matching the first candidate, in scan order,
// whose tag fully matches any of patterns.
func NewOrdered(dir Direction, patterns []string, opts ...OrderedOption) (Rule, error) {
	if len(patterns) == 0 {
		return Rule{}, ErrNoPatterns
	}

	var cfg orderedConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	var lower cases.Caser
	if cfg.fold {
		lower = cases.Lower(cfg.foldLang)
	}

	compiled := make([]pattern, len(patterns))

	for idx, src := range patterns {
		p, err := compilePattern(src)
		if err != nil {
			return Rule{}, err
		}

		if cfg.fold {
			if folded := lower.String(src); folded != src {
				lp, ferr := compilePattern(folded)
				if ferr != nil {
					return Rule{}, ferr
				}

				p.folded = lp.re
			}
		}

		compiled[idx] = p
	}

	return Rule{kind: KindOrdered, dir: dir, patterns: compiled, foldCase: cfg.fold}, nil
}

// MustOrdered is NewOrdered for hand-written rules; it panics on error.
func MustOrdered(dir Direction, patterns []string, opts ...OrderedOption) Rule {
	r, err := NewOrdered(dir, patterns, opts...)
	if err != nil {
		panic(err)
	}

	return r
}

// NewFallback builds a rule that always selects the last candidate in scan
// order: the rightmost child when head-initial, the leftmost when
// head-final.
func NewFallback(dir Direction) Rule {
	return Rule{kind: KindFallback, dir: dir}
}

// NewComposite chains rules; the first one that matches wins.
func NewComposite(rules ...Rule) (Rule, error) {
	if len(rules) == 0 {
		return Rule{}, ErrEmptyComposite
	}

	for idx, sub := range rules {
		if !sub.Valid() {
			return Rule{}, fmt.Errorf("%w: sub-rule %d", ErrInvalidRule, idx)
		}
	}

	return Rule{kind: KindComposite, rules: append([]Rule(nil), rules...)}, nil
}

// MustComposite is NewComposite for hand-written chains; it panics on error.
func MustComposite(rules ...Rule) Rule {
	r, err := NewComposite(rules...)
	if err != nil {
		panic(err)
	}

	return r
}

// Named returns a copy of r labelled with name for listings and lint output.
func (r Rule) Named(name string) Rule {
	r.name = name

	return r
}

// Name returns the label given by Named.
func (r Rule) Name() string { return r.name }

// Kind returns the rule variant.
func (r Rule) Kind() Kind { return r.kind }

// Direction returns the scan direction. Composites report HeadInitial.
func (r Rule) Direction() Direction { return r.dir }

// Valid reports whether r was built by a constructor.
func (r Rule) Valid() bool { return r.kind != KindInvalid }

// Rules returns the sub-rules of a composite.
func (r Rule) Rules() []Rule { return append([]Rule(nil), r.rules...) }

// AlwaysMatches reports whether r selects a head for every non-empty input.
func (r Rule) AlwaysMatches() bool {
	switch r.kind {
	case KindFallback:
		return true
	case KindComposite:
		for _, sub := range r.rules {
			if sub.AlwaysMatches() {
				return true
			}
		}
	}

	return false
}

// Match returns the index into children of the selected head. Empty input
// never matches.
func (r Rule) Match(children []symbol.Tag) (int, bool) {
	return r.eval(children, nil)
}

// Step records one rule evaluation made by Explain.
type Step struct {
	Rule    string
	Depth   int
	Matched bool
	Index   int
}

// Explain evaluates r like Match and also returns every rule evaluated, in
// order. Sub-rules skipped by a composite's short-circuit do not appear.
func (r Rule) Explain(children []symbol.Tag) (int, bool, []Step) {
	rec := &recorder{}
	idx, ok := r.eval(children, rec)

	return idx, ok, rec.steps
}

type recorder struct {
	steps []Step
	depth int
}

func (r Rule) eval(children []symbol.Tag, rec *recorder) (int, bool) {
	var step int

	if rec != nil {
		step = len(rec.steps)
		rec.steps = append(rec.steps, Step{Rule: r.label(), Depth: rec.depth, Index: -1})
	}

	idx, ok := r.dispatch(children, rec)

	if rec != nil {
		rec.steps[step].Matched = ok
		rec.steps[step].Index = idx
	}

	return idx, ok
}

func (r Rule) dispatch(children []symbol.Tag, rec *recorder) (int, bool) {
	n := len(children)
	if n == 0 {
		return -1, false
	}

	switch r.kind {
	case KindPattern:
		for _, group := range r.groups {
			idx, ok := r.dir.scan(n, func(i int) bool {
				return anyMatch(group, children[i].String())
			})
			if ok {
				return idx, true
			}
		}

		return -1, false

	case KindSet:
		return r.dir.scan(n, func(i int) bool {
			return r.set.Contains(children[i])
		})

	case KindOrdered:
		return r.dir.scan(n, func(i int) bool {
			return anyMatch(r.patterns, children[i].String())
		})

	case KindFallback:
		return r.dir.last(n), true

	case KindComposite:
		if rec != nil {
			rec.depth++
			defer func() { rec.depth-- }()
		}

		for _, sub := range r.rules {
			if idx, ok := sub.eval(children, rec); ok {
				return idx, true
			}
		}

		return -1, false

	default:
		return -1, false
	}
}

func anyMatch(patterns []pattern, text string) bool {
	for _, p := range patterns {
		if p.matches(text) {
			return true
		}
	}

	return false
}

// String renders a compact description, e.g.
// "pattern(head-final: [NN,NNS] [NP])".
func (r Rule) String() string {
	var body string

	switch r.kind {
	case KindPattern:
		parts := make([]string, len(r.groups))
		for idx, group := range r.groups {
			parts[idx] = "[" + strings.Join(sources(group), ",") + "]"
		}

		body = fmt.Sprintf("%s(%s: %s)", r.kind, r.dir, strings.Join(parts, " "))
	case KindSet:
		body = fmt.Sprintf("%s(%s: {%s})", r.kind, r.dir, strings.Join(symbol.Strings(r.set.Tags()), " "))
	case KindOrdered:
		mode := r.dir.String()
		if r.foldCase {
			mode += ", fold-case"
		}

		body = fmt.Sprintf("%s(%s: %s)", r.kind, mode, strings.Join(sources(r.patterns), " "))
	case KindFallback:
		body = fmt.Sprintf("%s(%s)", r.kind, r.dir)
	case KindComposite:
		parts := make([]string, len(r.rules))
		for idx, sub := range r.rules {
			parts[idx] = sub.String()
		}

		body = fmt.Sprintf("%s(%s)", r.kind, strings.Join(parts, ", "))
	default:
		body = r.kind.String()
	}

	if r.name != "" {
		return r.name + "=" + body
	}

	return body
}

// label is the short form used in Explain steps.
func (r Rule) label() string {
	if r.name != "" {
		return r.name
	}

	if r.kind == KindComposite {
		return fmt.Sprintf("%s/%d", r.kind, len(r.rules))
	}

	return r.String()
}

func sources(patterns []pattern) []string {
	out := make([]string, len(patterns))

	for idx, p := range patterns {
		out[idx] = p.src
	}

	return out
}

// Description is the structured form of a rule for JSON output.
type Description struct {
	Kind      string        `json:"kind"`
	Name      string        `json:"name,omitempty"`
	Direction string        `json:"direction,omitempty"`
	Groups    [][]string    `json:"groups,omitempty"`
	Patterns  []string      `json:"patterns,omitempty"`
	Members   []string      `json:"members,omitempty"`
	FoldCase  bool          `json:"fold_case,omitempty"`
	Rules     []Description `json:"rules,omitempty"`
}

// Describe returns the structured description of r.
func (r Rule) Describe() Description {
	desc := Description{Kind: r.kind.String(), Name: r.name}

	if r.kind != KindComposite && r.kind != KindInvalid {
		desc.Direction = r.dir.String()
	}

	switch r.kind {
	case KindPattern:
		for _, group := range r.groups {
			desc.Groups = append(desc.Groups, sources(group))
		}
	case KindSet:
		desc.Members = symbol.Strings(r.set.Tags())
	case KindOrdered:
		desc.Patterns = sources(r.patterns)
		desc.FoldCase = r.foldCase
	case KindComposite:
		for _, sub := range r.rules {
			desc.Rules = append(desc.Rules, sub.Describe())
		}
	}

	return desc
}
