package symbol

// Set is an immutable set of tags.
type Set struct {
	members map[Tag]struct{}
}

// NewSet builds a set from tags. Duplicates collapse.
func NewSet(tags ...Tag) Set {
	members := make(map[Tag]struct{}, len(tags))

	for _, tag := range tags {
		members[tag] = struct{}{}
	}

	return Set{members: members}
}

// SetFrom interns strs and returns them as a set.
func SetFrom(tab *Table, strs ...string) Set {
	return NewSet(ListFrom(tab, strs)...)
}

// Contains reports membership by identity.
func (s Set) Contains(tag Tag) bool {
	_, ok := s.members[tag]

	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.members)
}

// Tags returns the members sorted by text.
func (s Set) Tags() []Tag {
	out := make([]Tag, 0, len(s.members))

	for tag := range s.members {
		out = append(out, tag)
	}

	Sort(out)

	return out
}
