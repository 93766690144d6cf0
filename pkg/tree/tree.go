// Package tree provides an arena-backed constituency tree.
//
// Nodes live in one slice owned by the [Tree] and refer to their children
// by [NodeID]. Children are kept in surface order, left to right. A built
// tree is immutable and may be shared between goroutines.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// NodeID addresses a node inside its Tree.
type NodeID int32

// None is the NodeID of no node.
const None NodeID = -1

// Sentinel errors for tree construction.
var (
	ErrUnknownNode     = errors.New("unknown node id")
	ErrMultipleParents = errors.New("node has more than one parent")
	ErrUnreachable     = errors.New("node is not reachable from the root")
	ErrEmptyTag        = errors.New("node tag is empty")
	ErrBuilderUsed     = errors.New("builder already built a tree")
)

type node struct {
	tag      symbol.Tag
	word     string
	children []NodeID
	parent   NodeID
	gold     bool
}

// Tree is an immutable constituency tree.
type Tree struct {
	tab   *symbol.Table
	nodes []node
	root  NodeID
}

// Table returns the tag table the tree's tags were interned in.
func (t *Tree) Table() *symbol.Table { return t.tab }

// Root returns the root node id.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Tag returns the tag of id.
func (t *Tree) Tag(id NodeID) symbol.Tag { return t.nodes[id].tag }

// Word returns the surface word of a leaf, or "".
func (t *Tree) Word(id NodeID) string { return t.nodes[id].word }

// Children returns the child ids of id in surface order. The slice must
// not be modified.
func (t *Tree) Children(id NodeID) []NodeID { return t.nodes[id].children }

// Parent returns the parent of id, or None for the root.
func (t *Tree) Parent(id NodeID) NodeID { return t.nodes[id].parent }

// IsLeaf reports whether id has no children.
func (t *Tree) IsLeaf(id NodeID) bool { return len(t.nodes[id].children) == 0 }

// IsPreterminal reports whether id has exactly one child and that child is a leaf.
func (t *Tree) IsPreterminal(id NodeID) bool {
	children := t.nodes[id].children

	return len(children) == 1 && t.IsLeaf(children[0])
}

// GoldHead reports whether id carries a gold head mark.
func (t *Tree) GoldHead(id NodeID) bool { return t.nodes[id].gold }

// GoldHeadOf returns the gold-marked child of id, or None when no child or
// more than one child is marked.
func (t *Tree) GoldHeadOf(id NodeID) NodeID {
	found := None

	for _, child := range t.nodes[id].children {
		if !t.nodes[child].gold {
			continue
		}

		if found != None {
			return None
		}

		found = child
	}

	return found
}

// ChildTags returns the tags of id's children in surface order.
func (t *Tree) ChildTags(id NodeID) []symbol.Tag {
	children := t.nodes[id].children
	tags := make([]symbol.Tag, len(children))

	for idx, child := range children {
		tags[idx] = t.nodes[child].tag
	}

	return tags
}

// Walk visits nodes in pre-order starting at the root. Returning false from
// fn skips the node's subtree.
func (t *Tree) Walk(fn func(id NodeID) bool) {
	stack := []NodeID{t.root}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(id) {
			continue
		}

		children := t.nodes[id].children
		for idx := len(children) - 1; idx >= 0; idx-- {
			stack = append(stack, children[idx])
		}
	}
}

// Path renders the route from the root to id, e.g. "S/NP[0]/NN[2]".
func (t *Tree) Path(id NodeID) string {
	var parts []string

	for cur := id; cur != None; cur = t.nodes[cur].parent {
		parent := t.nodes[cur].parent
		if parent == None {
			parts = append(parts, t.nodes[cur].tag.String())

			break
		}

		pos := 0

		for idx, child := range t.nodes[parent].children {
			if child == cur {
				pos = idx

				break
			}
		}

		parts = append(parts, fmt.Sprintf("%s[%d]", t.nodes[cur].tag, pos))
	}

	for left, right := 0, len(parts)-1; left < right; left, right = left+1, right-1 {
		parts[left], parts[right] = parts[right], parts[left]
	}

	return strings.Join(parts, "/")
}

// Ref returns a read-only view of id.
func (t *Tree) Ref(id NodeID) Ref { return Ref{t: t, id: id} }

// Ref is a (tree, node) pair. It is a small value and cheap to copy.
type Ref struct {
	t  *Tree
	id NodeID
}

// ID returns the node id.
func (r Ref) ID() NodeID { return r.id }

// Tree returns the owning tree.
func (r Ref) Tree() *Tree { return r.t }

// Tag returns the node's tag.
func (r Ref) Tag() symbol.Tag { return r.t.Tag(r.id) }

// Word returns the node's surface word.
func (r Ref) Word() string { return r.t.Word(r.id) }

// Children returns views of the node's children in surface order.
func (r Ref) Children() []Ref {
	ids := r.t.Children(r.id)
	out := make([]Ref, len(ids))

	for idx, id := range ids {
		out[idx] = Ref{t: r.t, id: id}
	}

	return out
}

// Builder assembles a Tree bottom-up. Children must be created before
// their parent, which keeps every built tree acyclic.
type Builder struct {
	tab   *symbol.Table
	nodes []node
	err   error
	built bool
}

// NewBuilder creates a builder interning tags into tab.
func NewBuilder(tab *symbol.Table) *Builder {
	return &Builder{tab: tab}
}

// Leaf adds a childless node.
func (b *Builder) Leaf(tag, word string) NodeID {
	id := b.add(tag, nil)
	if id != None {
		b.nodes[id].word = word
	}

	return id
}

// Node adds an internal node over children, in surface order.
func (b *Builder) Node(tag string, children ...NodeID) NodeID {
	return b.add(tag, children)
}

// MarkHead records a gold head mark on id.
func (b *Builder) MarkHead(id NodeID) {
	if b.err != nil {
		return
	}

	if id < 0 || int(id) >= len(b.nodes) {
		b.err = fmt.Errorf("%w: %d", ErrUnknownNode, id)

		return
	}

	b.nodes[id].gold = true
}

func (b *Builder) add(tag string, children []NodeID) NodeID {
	if b.err != nil {
		return None
	}

	if tag == "" {
		b.err = ErrEmptyTag

		return None
	}

	id := NodeID(len(b.nodes))

	for _, child := range children {
		if child < 0 || child >= id {
			b.err = fmt.Errorf("%w: %d", ErrUnknownNode, child)

			return None
		}

		if b.nodes[child].parent != None {
			b.err = fmt.Errorf("%w: %d", ErrMultipleParents, child)

			return None
		}

		b.nodes[child].parent = id
	}

	b.nodes = append(b.nodes, node{
		tag:      b.tab.Intern(tag),
		children: append([]NodeID(nil), children...),
		parent:   None,
	})

	return id
}

// Build finishes the tree rooted at root. Every added node must be reachable
// from root. A builder builds at most one tree.
func (b *Builder) Build(root NodeID) (*Tree, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	if b.err != nil {
		return nil, b.err
	}

	if root < 0 || int(root) >= len(b.nodes) {
		return nil, fmt.Errorf("%w: root %d", ErrUnknownNode, root)
	}

	if b.nodes[root].parent != None {
		return nil, fmt.Errorf("%w: root %d", ErrMultipleParents, root)
	}

	t := &Tree{tab: b.tab, nodes: b.nodes, root: root}

	seen := 0

	t.Walk(func(NodeID) bool {
		seen++

		return true
	})

	if seen != len(b.nodes) {
		return nil, fmt.Errorf("%w: %d of %d nodes", ErrUnreachable, len(b.nodes)-seen, len(b.nodes))
	}

	b.built = true
	b.nodes = nil

	return t, nil
}
