package tree

// Heads maps each node of one Tree to its head child. Leaves map to None.
type Heads []NodeID

// NewHeads returns a Heads for t with every entry set to None.
func NewHeads(t *Tree) Heads {
	heads := make(Heads, t.Len())

	for idx := range heads {
		heads[idx] = None
	}

	return heads
}

// Of returns the head child of id.
func (h Heads) Of(id NodeID) NodeID {
	if id < 0 || int(id) >= len(h) {
		return None
	}

	return h[id]
}

// IsHead reports whether id is the head child of its parent in t.
func (h Heads) IsHead(t *Tree, id NodeID) bool {
	parent := t.Parent(id)

	return parent != None && h.Of(parent) == id
}

// LexicalHead follows head children from id down to a leaf. It returns None
// when the chain is broken by an unresolved node.
func LexicalHead(t *Tree, heads Heads, id NodeID) NodeID {
	for !t.IsLeaf(id) {
		id = heads.Of(id)
		if id == None {
			return None
		}
	}

	return id
}
