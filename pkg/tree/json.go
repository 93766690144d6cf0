package tree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// ErrWordOnInternal is returned when a node with children also carries a word.
var ErrWordOnInternal = errors.New("only leaf nodes may carry a word")

// JSONNode is the wire form of one tree node.
type JSONNode struct {
	Tag      string      `json:"tag"`
	Word     string      `json:"word,omitempty"`
	Head     bool        `json:"head,omitempty"`
	Children []*JSONNode `json:"children,omitempty"`
}

// Decode builds a Tree from JSON bytes. It does not run schema validation;
// see [Parse].
func Decode(data []byte, tab *symbol.Table) (*Tree, error) {
	var root JSONNode

	err := json.Unmarshal(data, &root)
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}

	return FromJSON(&root, tab)
}

// Parse validates data against the tree schema and decodes it.
func Parse(data []byte, tab *symbol.Table) (*Tree, error) {
	err := Validate(data)
	if err != nil {
		return nil, err
	}

	return Decode(data, tab)
}

// FromJSON builds a Tree from an already decoded wire node.
func FromJSON(root *JSONNode, tab *symbol.Table) (*Tree, error) {
	b := NewBuilder(tab)

	var add func(jn *JSONNode) (NodeID, error)

	add = func(jn *JSONNode) (NodeID, error) {
		if jn == nil {
			return None, fmt.Errorf("decode tree: %w", ErrEmptyTag)
		}

		var id NodeID

		if len(jn.Children) == 0 {
			id = b.Leaf(jn.Tag, jn.Word)
		} else {
			if jn.Word != "" {
				return None, fmt.Errorf("decode tree: %w: %q", ErrWordOnInternal, jn.Tag)
			}

			children := make([]NodeID, len(jn.Children))

			for idx, child := range jn.Children {
				childID, err := add(child)
				if err != nil {
					return None, err
				}

				children[idx] = childID
			}

			id = b.Node(jn.Tag, children...)
		}

		if jn.Head {
			b.MarkHead(id)
		}

		return id, nil
	}

	rootID, err := add(root)
	if err != nil {
		return nil, err
	}

	t, err := b.Build(rootID)
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}

	return t, nil
}

// ToJSON converts t to its wire form. When heads is non-nil the resolved
// head children are marked; otherwise the gold marks are kept.
func ToJSON(t *Tree, heads Heads) *JSONNode {
	var conv func(id NodeID) *JSONNode

	conv = func(id NodeID) *JSONNode {
		jn := &JSONNode{Tag: t.Tag(id).String(), Word: t.Word(id)}

		if heads != nil {
			jn.Head = heads.IsHead(t, id)
		} else {
			jn.Head = t.GoldHead(id)
		}

		for _, child := range t.Children(id) {
			jn.Children = append(jn.Children, conv(child))
		}

		return jn
	}

	return conv(t.Root())
}

// Encode writes t as indented JSON with resolved heads marked.
func Encode(w io.Writer, t *Tree, heads Heads) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(ToJSON(t, heads))
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}

	return nil
}
