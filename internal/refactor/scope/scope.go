// Package scope builds per-file scope trees and classifies symbol
// references against them, feeding the refactoring engine's rename
// conflict detection (C5).
package scope

import (
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// Kind distinguishes the structural anchors a scope tree nests.
type Kind int

const (
	Module Kind = iota
	Class
	Function
	Block
)

// Anchor is one structural boundary found in a file, before nesting.
type Anchor struct {
	Kind  Kind
	Range matcher.Range
}

// Node is one level of a file's scope tree.
type Node struct {
	ID       int
	Kind     Kind
	Range    matcher.Range
	Parent   *Node
	Children []*Node
}

// Tree is the full nesting for one file, rooted at an implicit module
// scope spanning the whole file.
type Tree struct {
	Root  *Node
	nodes []*Node
}

// Build nests anchors into a Tree rooted at a module scope spanning
// [1,1) to the given file's last line/column. Anchors are assumed
// well-formed (non-overlapping except by containment), matching what a
// structural scan over matched function/class/block constructs
// produces.
func Build(anchors []Anchor, fileEnd matcher.Position) *Tree {
	root := &Node{
		ID:   0,
		Kind: Module,
		Range: matcher.Range{
			Start: matcher.Position{Line: 1, Column: 1},
			End:   fileEnd,
		},
	}
	t := &Tree{Root: root, nodes: []*Node{root}}

	ordered := sortedByStart(anchors)
	for _, a := range ordered {
		parent := t.innermostContaining(a.Range.Start)
		node := &Node{
			ID:     len(t.nodes),
			Kind:   a.Kind,
			Range:  a.Range,
			Parent: parent,
		}
		parent.Children = append(parent.Children, node)
		t.nodes = append(t.nodes, node)
	}
	return t
}

func sortedByStart(anchors []Anchor) []Anchor {
	out := make([]Anchor, len(anchors))
	copy(out, anchors)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && before(out[j].Range.Start, out[j-1].Range.Start); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func before(a, b matcher.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

func contains(r matcher.Range, p matcher.Position) bool {
	if before(p, r.Start) {
		return false
	}
	return before(p, r.End)
}

// innermostContaining walks the tree built so far to find the deepest
// node whose range contains pos.
func (t *Tree) innermostContaining(pos matcher.Position) *Node {
	return deepestContaining(t.Root, pos)
}

func deepestContaining(n *Node, pos matcher.Position) *Node {
	for _, c := range n.Children {
		if contains(c.Range, pos) {
			return deepestContaining(c, pos)
		}
	}
	return n
}

// InnermostAt is the public lookup used to tag a reference with its
// enclosing scope.
func (t *Tree) InnermostAt(pos matcher.Position) *Node {
	return t.innermostContaining(pos)
}

// Ancestors reports every node from n up to (and including) the
// scope tree's root, innermost first, matching the lexical lookup
// order a reference resolves names against.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}
