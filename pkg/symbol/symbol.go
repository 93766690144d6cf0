// Package symbol provides interned grammatical tags.
//
// A [Table] owns the interned strings. Tags interned through the same table
// compare equal with == exactly when their text is equal, so rule sets can
// test membership by identity instead of by string comparison. Tags from
// different tables never compare equal.
package symbol

import (
	"slices"
	"strings"
	"sync"
)

// entry is the interned payload a Tag points at.
type entry struct {
	text string
}

// Tag is an interned grammatical category label such as "NP" or "GRUP.NOM".
// The zero Tag is invalid.
type Tag struct {
	e *entry
}

// String returns the text the tag was interned from.
func (t Tag) String() string {
	if t.e == nil {
		return ""
	}

	return t.e.text
}

// IsZero reports whether the tag was never interned.
func (t Tag) IsZero() bool {
	return t.e == nil
}

// Table interns tag text. It is safe for concurrent use; after warm-up
// nearly every call takes only the read lock.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Intern returns the tag for text, creating it on first use.
func (tab *Table) Intern(text string) Tag {
	tab.mu.RLock()
	e, ok := tab.entries[text]
	tab.mu.RUnlock()

	if ok {
		return Tag{e: e}
	}

	tab.mu.Lock()
	defer tab.mu.Unlock()

	if e, ok = tab.entries[text]; ok {
		return Tag{e: e}
	}

	e = &entry{text: text}
	tab.entries[text] = e

	return Tag{e: e}
}

// Lookup returns the tag for text without interning it.
func (tab *Table) Lookup(text string) (Tag, bool) {
	tab.mu.RLock()
	defer tab.mu.RUnlock()

	e, ok := tab.entries[text]
	if !ok {
		return Tag{}, false
	}

	return Tag{e: e}, true
}

// Owns reports whether tag was interned by this table.
func (tab *Table) Owns(tag Tag) bool {
	if tag.e == nil {
		return false
	}

	tab.mu.RLock()
	defer tab.mu.RUnlock()

	return tab.entries[tag.e.text] == tag.e
}

// Len returns the number of interned tags.
func (tab *Table) Len() int {
	tab.mu.RLock()
	defer tab.mu.RUnlock()

	return len(tab.entries)
}

// Compare orders tags by their text.
func Compare(a, b Tag) int {
	return strings.Compare(a.String(), b.String())
}

// Sort sorts tags in place by text.
func Sort(tags []Tag) {
	slices.SortFunc(tags, Compare)
}

// ListFrom interns every string, keeping order and duplicates.
func ListFrom(tab *Table, strs []string) []Tag {
	out := make([]Tag, len(strs))

	for idx, s := range strs {
		out[idx] = tab.Intern(s)
	}

	return out
}

// Strings returns the text of each tag.
func Strings(tags []Tag) []string {
	out := make([]string, len(tags))

	for idx, tag := range tags {
		out[idx] = tag.String()
	}

	return out
}

// Lowercase interns the lower-cased text of tag.
func Lowercase(tab *Table, tag Tag) Tag {
	return tab.Intern(strings.ToLower(tag.String()))
}

// Concat interns the concatenated text of a and b.
func Concat(tab *Table, a, b Tag) Tag {
	return tab.Intern(a.String() + b.String())
}
