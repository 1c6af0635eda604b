// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cst implements a lossless concrete syntax tree facade over
// Python source, backed by tree-sitter. Rendering an unmodified Tree
// reproduces its input byte-for-byte; edits are queued and only take
// effect when Commit is called, which re-splices the original bytes and
// reparses the result.
package cst

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ParseError is returned by Parse when the input cannot be parsed as
// Python. Unlike a generic error, it carries a location so callers can
// report it the way the Risk & Validation component requires.
type ParseError struct {
	Line, Col int
	Msg       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// Tree is a parsed Python source file plus a queue of pending edits.
// Node identity is the *sitter.Node pointer into this Tree's root; it is
// only valid until the next Commit, after which a fresh Tree (with fresh
// node identities) is produced.
type Tree struct {
	source []byte
	root   *sitter.Node
	tree   *sitter.Tree

	edits []edit
}

// Parse parses source as Python and returns a lossless Tree. It fails
// with a *ParseError if the source contains a syntax error; unlike a
// best-effort parser, there is no partial-tree recovery, matching the
// spec's "no recovery" contract for the CST Facade.
func Parse(source []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	defer parser.Close()

	t, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, err
	}
	root := t.RootNode()
	if errNode := firstError(root); errNode != nil {
		pt := errNode.StartPoint()
		return nil, &ParseError{
			Line: int(pt.Row) + 1,
			Col:  int(pt.Column) + 1,
			Msg:  fmt.Sprintf("syntax error near %q", snippet(source, errNode)),
		}
	}
	return &Tree{source: source, root: root, tree: t}, nil
}

func snippet(source []byte, n *sitter.Node) string {
	const max = 40
	s := n.Content(source)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// firstError returns the first ERROR node (or MISSING token) found via a
// depth-first walk, or nil if the tree is well-formed.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstError(n.Child(i)); e != nil {
			return e
		}
	}
	return nil
}

// Source returns the tree's current underlying bytes (before any queued,
// uncommitted edits are applied).
func (t *Tree) Source() []byte { return t.source }

// Root returns the root node of the tree.
func (t *Tree) Root() *Node { return &Node{n: t.root, src: t.source} }

// Render returns the tree's source bytes. For an unmodified Tree (no
// Commit has introduced a change), this is byte-identical to the bytes
// passed to Parse, satisfying the losslessness property.
func (t *Tree) Render() []byte { return t.source }

// Close releases the tree-sitter tree's resources. Safe to call on a nil
// receiver.
func (t *Tree) Close() {
	if t == nil || t.tree == nil {
		return
	}
	t.tree.Close()
}

// Node is a CST node together with the source bytes it was parsed from,
// so Text() and byte-offset accessors need no extra arguments.
type Node struct {
	n   *sitter.Node
	src []byte
}

func wrap(n *sitter.Node, src []byte) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n, src: src}
}

// Raw exposes the underlying tree-sitter node for callers (inside this
// module) that need it, e.g. to key a position map.
func (n *Node) Raw() *sitter.Node { return n.n }

// Type returns the grammar node type, e.g. "call", "import_statement".
func (n *Node) Type() string { return n.n.Type() }

// Text returns the exact source text spanned by the node.
func (n *Node) Text() string { return n.n.Content(n.src) }

// StartByte and EndByte return the half-open byte range [Start,End) of
// the node within the tree's source.
func (n *Node) StartByte() uint32 { return n.n.StartByte() }
func (n *Node) EndByte() uint32   { return n.n.EndByte() }

// Line returns the 1-based source line the node starts on.
func (n *Node) Line() int { return int(n.n.StartPoint().Row) + 1 }

// Col returns the 1-based source column the node starts on.
func (n *Node) Col() int { return int(n.n.StartPoint().Column) + 1 }

// ChildCount returns the number of children, named and anonymous.
func (n *Node) ChildCount() int { return int(n.n.ChildCount()) }

// Child returns the i-th child, named or anonymous.
func (n *Node) Child(i int) *Node { return wrap(n.n.Child(i), n.src) }

// NamedChildCount returns the number of named children (punctuation and
// keywords are not named).
func (n *Node) NamedChildCount() int { return int(n.n.NamedChildCount()) }

// NamedChild returns the i-th named child.
func (n *Node) NamedChild(i int) *Node { return wrap(n.n.NamedChild(i), n.src) }

// ChildByFieldName returns the child stored under the given grammar
// field, or nil if absent.
func (n *Node) ChildByFieldName(name string) *Node {
	return wrap(n.n.ChildByFieldName(name), n.src)
}

// IsNamed reports whether this is a named (non-punctuation) node.
func (n *Node) IsNamed() bool { return n.n.IsNamed() }

// Walker visits a node; returning false skips its children.
type Walker func(*Cursor) bool

// Cursor is passed to a Walker. It exposes the current node and the
// chain of ancestors, innermost last, so matchers can ask "is this
// inside a decorator" or "is the parent a call" the way open2opaque's
// rule matchers inspect cursor.Parent().
type Cursor struct {
	Node      *Node
	Ancestors []*Node // root first, does not include Node itself
}

// Parent returns the immediate parent, or nil at the root.
func (c *Cursor) Parent() *Node {
	if len(c.Ancestors) == 0 {
		return nil
	}
	return c.Ancestors[len(c.Ancestors)-1]
}

// Walk performs a depth-first, pre-order traversal of root, calling pre
// before descending into a node's children and post after. Either may be
// nil. Returning false from pre skips the node's children (post is still
// called for that node if non-nil).
func Walk(root *Node, pre, post Walker) {
	var ancestors []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		c := &Cursor{Node: n, Ancestors: ancestors}
		descend := true
		if pre != nil {
			descend = pre(c)
		}
		if descend {
			ancestors = append(ancestors, n)
			for i := 0; i < n.ChildCount(); i++ {
				visit(n.Child(i))
			}
			ancestors = ancestors[:len(ancestors)-1]
		}
		if post != nil {
			post(c)
		}
	}
	visit(root)
}

// WalkNamed is like Walk but only visits named nodes (skipping
// punctuation/keyword tokens), which is what every matcher in
// internal/transform wants.
func WalkNamed(root *Node, pre, post Walker) {
	var ancestors []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		c := &Cursor{Node: n, Ancestors: ancestors}
		descend := true
		if pre != nil {
			descend = pre(c)
		}
		if descend {
			ancestors = append(ancestors, n)
			for i := 0; i < n.NamedChildCount(); i++ {
				visit(n.NamedChild(i))
			}
			ancestors = ancestors[:len(ancestors)-1]
		}
		if post != nil {
			post(c)
		}
	}
	visit(root)
}

func logUnreachableNode(kind string, n *Node) {
	log.V(2).Infof("cst: %s at %d:%d: %q", kind, n.Line(), n.Col(), n.Type())
}
