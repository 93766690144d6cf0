package headrules

import (
	"fmt"
	"strconv"
)

// DeadRule is a sub-rule that can never be evaluated because an earlier
// sibling always matches.
type DeadRule struct {
	// Tag is the governed parent tag; empty when linting a bare rule.
	Tag string `json:"tag,omitempty"`
	// Path locates the dead sub-rule, e.g. "2" or "1.3".
	Path string `json:"path"`
	// Rule is the dead sub-rule's String form.
	Rule string `json:"rule"`
	// Shadow is the String form of the always-matching rule before it.
	Shadow string `json:"shadow"`
}

func (d DeadRule) String() string {
	prefix := ""
	if d.Tag != "" {
		prefix = d.Tag + ": "
	}

	return fmt.Sprintf("%ssub-rule %s %s is unreachable after %s", prefix, d.Path, d.Rule, d.Shadow)
}

// Lint reports sub-rules of composites, at any depth, that follow an
// always-matching sibling.
func Lint(rule Rule) []DeadRule {
	var out []DeadRule

	lintInto(&out, rule, "")

	return out
}

func lintInto(out *[]DeadRule, rule Rule, prefix string) {
	if rule.kind != KindComposite {
		return
	}

	var shadow *Rule

	for idx := range rule.rules {
		sub := rule.rules[idx]
		path := prefix + strconv.Itoa(idx+1)

		if shadow != nil {
			*out = append(*out, DeadRule{Path: path, Rule: sub.String(), Shadow: shadow.String()})

			continue
		}

		lintInto(out, sub, path+".")

		if sub.AlwaysMatches() {
			shadow = &rule.rules[idx]
		}
	}
}

// Lint runs [Lint] over every rule of f, in tag order.
func (f *Finder) Lint() []DeadRule {
	var out []DeadRule

	for _, tag := range f.Tags() {
		rule, _ := f.Rule(tag)

		for _, dead := range Lint(rule) {
			dead.Tag = tag.String()
			out = append(out, dead)
		}
	}

	if f.policy == UnmappedDefault {
		for _, dead := range Lint(f.fallback) {
			dead.Tag = "*"
			out = append(out, dead)
		}
	}

	return out
}
