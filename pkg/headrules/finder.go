package headrules

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// Sentinel errors for finder construction and lookup.
var (
	ErrNoRule          = errors.New("no head rule for tag")
	ErrNoHead          = errors.New("no child matched the head rule")
	ErrNoDefaultRule   = errors.New("unmapped policy default needs a default rule")
	ErrTableMismatch   = errors.New("tag belongs to a different symbol table")
	ErrUnknownUnmapped = errors.New("unknown unmapped-tag policy")
	ErrZeroTag         = errors.New("zero tag")
	ErrNoChildren      = errors.New("node has no children")
)

// UnmappedPolicy decides what happens when a parent tag has no rule.
type UnmappedPolicy uint8

const (
	// UnmappedFail returns an *UnmappedError.
	UnmappedFail UnmappedPolicy = iota
	// UnmappedDefault applies the finder's default rule.
	UnmappedDefault
)

func (p UnmappedPolicy) String() string {
	if p == UnmappedDefault {
		return "default"
	}

	return "fail"
}

// ParseUnmappedPolicy accepts "fail" and "default".
func ParseUnmappedPolicy(s string) (UnmappedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail":
		return UnmappedFail, nil
	case "default":
		return UnmappedDefault, nil
	default:
		return UnmappedFail, fmt.Errorf("%w: %q", ErrUnknownUnmapped, s)
	}
}

// UnmappedError is returned for a parent tag with no registered rule.
type UnmappedError struct {
	Tag string
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("%v %q", ErrNoRule, e.Tag)
}

func (e *UnmappedError) Unwrap() error { return ErrNoRule }

// Builder collects rules for a Finder. It is not safe for concurrent use.
type Builder struct {
	tab    *symbol.Table
	rules  map[symbol.Tag]Rule
	logger *slog.Logger
}

// NewBuilder creates a builder for tags of tab. A nil logger uses
// slog.Default.
func NewBuilder(tab *symbol.Table, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{tab: tab, rules: make(map[symbol.Tag]Rule), logger: logger}
}

func (b *Builder) check(tag symbol.Tag, rule Rule) error {
	if tag.IsZero() {
		return ErrZeroTag
	}

	if !b.tab.Owns(tag) {
		return fmt.Errorf("%w: %s", ErrTableMismatch, tag)
	}

	if !rule.Valid() {
		return fmt.Errorf("%w for %s", ErrInvalidRule, tag)
	}

	return nil
}

// AddEntries registers parsed table entries. A tag that already has a rule
// fails with ErrDuplicateTag.
func (b *Builder) AddEntries(entries []Entry) error {
	for _, entry := range entries {
		err := b.Set(entry.Tag, entry.Rule)
		if err != nil {
			if entry.Line > 0 {
				return fmt.Errorf("line %d: %w", entry.Line, err)
			}

			return err
		}
	}

	return nil
}

// Set registers rule for tag. Registering a tag twice fails with
// ErrDuplicateTag; use Override to replace a rule deliberately.
func (b *Builder) Set(tag symbol.Tag, rule Rule) error {
	err := b.check(tag, rule)
	if err != nil {
		return err
	}

	if _, exists := b.rules[tag]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTag, tag)
	}

	b.rules[tag] = rule

	return nil
}

// Override registers rule for tag, replacing any earlier rule.
func (b *Builder) Override(tag symbol.Tag, rule Rule) error {
	err := b.check(tag, rule)
	if err != nil {
		return err
	}

	prev, replaced := b.rules[tag]
	b.rules[tag] = rule

	attrs := []any{"tag", tag.String(), "rule", rule.label(), "replaced", replaced}
	if replaced {
		attrs = append(attrs, "previous", prev.Kind().String())
	}

	b.logger.Debug("head rule override", attrs...)

	return nil
}

// Len returns the number of registered rules.
func (b *Builder) Len() int { return len(b.rules) }

// Option configures Build.
type Option func(*Finder)

// WithDefault switches the finder to UnmappedDefault, applying rule to
// parent tags without a registered rule.
func WithDefault(rule Rule) Option {
	return func(f *Finder) {
		f.policy = UnmappedDefault
		f.fallback = rule
	}
}

// WithName labels the finder, usually with its rule pack name.
func WithName(name string) Option {
	return func(f *Finder) { f.name = name }
}

// Build returns an immutable Finder over the registered rules. The builder
// may keep being used; later changes do not affect built finders.
func (b *Builder) Build(opts ...Option) (*Finder, error) {
	f := &Finder{
		tab:    b.tab,
		rules:  maps.Clone(b.rules),
		policy: UnmappedFail,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.policy == UnmappedDefault && !f.fallback.Valid() {
		return nil, ErrNoDefaultRule
	}

	f.tags = slices.Collect(maps.Keys(f.rules))
	symbol.Sort(f.tags)

	return f, nil
}

// Finder maps parent tags to head rules. It is immutable and safe for
// concurrent use.
type Finder struct {
	tab      *symbol.Table
	rules    map[symbol.Tag]Rule
	tags     []symbol.Tag
	policy   UnmappedPolicy
	fallback Rule
	name     string
}

// Table returns the symbol table the finder's tags belong to.
func (f *Finder) Table() *symbol.Table { return f.tab }

// Name returns the label set by WithName.
func (f *Finder) Name() string { return f.name }

// Policy returns the unmapped-tag policy.
func (f *Finder) Policy() UnmappedPolicy { return f.policy }

// Default returns the rule applied to unmapped tags, if any.
func (f *Finder) Default() (Rule, bool) {
	return f.fallback, f.policy == UnmappedDefault
}

// Len returns the number of tags with a rule.
func (f *Finder) Len() int { return len(f.rules) }

// Tags returns the tags with a rule, sorted by text.
func (f *Finder) Tags() []symbol.Tag { return slices.Clone(f.tags) }

// Rule returns the rule registered for tag.
func (f *Finder) Rule(tag symbol.Tag) (Rule, bool) {
	rule, ok := f.rules[tag]

	return rule, ok
}

// RuleFor returns the rule governing parent after applying the unmapped
// policy.
func (f *Finder) RuleFor(parent symbol.Tag) (Rule, error) {
	if parent.IsZero() {
		return Rule{}, ErrZeroTag
	}

	if rule, ok := f.rules[parent]; ok {
		return rule, nil
	}

	if !f.tab.Owns(parent) {
		return Rule{}, fmt.Errorf("%w: %s", ErrTableMismatch, parent)
	}

	if f.policy == UnmappedDefault {
		return f.fallback, nil
	}

	return Rule{}, &UnmappedError{Tag: parent.String()}
}

// HeadIndex returns the index into children of the head child of a node
// tagged parent.
func (f *Finder) HeadIndex(parent symbol.Tag, children []symbol.Tag) (int, error) {
	rule, err := f.RuleFor(parent)
	if err != nil {
		return -1, err
	}

	if len(children) == 0 {
		return -1, fmt.Errorf("%w: %s", ErrNoChildren, parent)
	}

	idx, ok := rule.Match(children)
	if !ok {
		return -1, fmt.Errorf("%w: %s over [%s]", ErrNoHead, parent,
			strings.Join(symbol.Strings(children), " "))
	}

	return idx, nil
}

// Node is any tree node exposing a tag and its ordered children.
type Node[N any] interface {
	Tag() symbol.Tag
	Children() []N
}

// HeadOf returns the head child of n. The result is always one of
// n.Children().
func HeadOf[N Node[N]](f *Finder, n N) (N, error) {
	children := n.Children()

	tags := make([]symbol.Tag, len(children))
	for idx, child := range children {
		tags[idx] = child.Tag()
	}

	idx, err := f.HeadIndex(n.Tag(), tags)
	if err != nil {
		var zero N

		return zero, err
	}

	return children[idx], nil
}
