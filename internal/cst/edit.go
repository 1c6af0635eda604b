// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cst

import (
	"fmt"
	"sort"

	"github.com/migrapy/migrapy/internal/difftext"
)

// edit is a single queued byte-range replacement. Every mutation a
// transformer performs — renaming a call, rewriting a decorator,
// restructuring a class body, adding or dropping an import — reduces to
// one of these, the same way the import-attribute migrator in the
// reference corpus splices ranges over an untouched source buffer rather
// than mutating the parsed tree in place.
type edit struct {
	start, end uint32 // half-open byte range in the tree's current source
	text       string // replacement text, "" for a deletion
	desc       string // short human description, used in conflict errors
}

// ReplaceNode queues replacement of n's full byte range with text.
func (t *Tree) ReplaceNode(n *Node, text string) {
	t.edits = append(t.edits, edit{n.StartByte(), n.EndByte(), text, fmt.Sprintf("replace %s", n.Type())})
}

// ReplaceRange queues replacement of the half-open byte range [start,end)
// with text. Callers normally go through ReplaceNode; ReplaceRange exists
// for edits spanning multiple sibling nodes (e.g. a class's whole body).
func (t *Tree) ReplaceRange(start, end uint32, text string) {
	t.edits = append(t.edits, edit{start, end, text, "replace range"})
}

// InsertBefore queues a zero-width insertion immediately before n.
func (t *Tree) InsertBefore(n *Node, text string) {
	t.edits = append(t.edits, edit{n.StartByte(), n.StartByte(), text, fmt.Sprintf("insert before %s", n.Type())})
}

// InsertAfter queues a zero-width insertion immediately after n.
func (t *Tree) InsertAfter(n *Node, text string) {
	t.edits = append(t.edits, edit{n.EndByte(), n.EndByte(), text, fmt.Sprintf("insert after %s", n.Type())})
}

// DeleteNode queues deletion of n's full byte range.
func (t *Tree) DeleteNode(n *Node) {
	t.edits = append(t.edits, edit{n.StartByte(), n.EndByte(), "", fmt.Sprintf("delete %s", n.Type())})
}

// DeleteListEntry queues deletion of n, one entry in a comma-separated
// list (a call's arguments, an import's symbol list), consuming
// whichever adjacent comma in the surrounding source text would
// otherwise be left dangling: the comma following n if there is one,
// else the comma preceding it. This is a text-level scan rather than a
// sibling walk, which keeps it usable from any caller that only holds
// the matched node, not its parent.
func (t *Tree) DeleteListEntry(n *Node) {
	src := t.source
	start, end := n.StartByte(), n.EndByte()

	i := end
	for i < uint32(len(src)) && isSpaceByte(src[i]) {
		i++
	}
	if i < uint32(len(src)) && src[i] == ',' {
		end = i + 1
		for end < uint32(len(src)) && src[end] == ' ' {
			end++
		}
		t.ReplaceRange(start, end, "")
		return
	}

	j := start
	for j > 0 && isSpaceByte(src[j-1]) {
		j--
	}
	if j > 0 && src[j-1] == ',' {
		start = j - 1
	}
	t.ReplaceRange(start, end, "")
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// Pending reports whether any edits are queued.
func (t *Tree) Pending() bool { return len(t.edits) > 0 }

// Discard drops all queued edits without applying them.
func (t *Tree) Discard() { t.edits = nil }

// Commit applies all queued edits to the tree's source in a single pass,
// reparses the result, and returns the new tree together with a unified
// diff of the change. The receiver is left with its edit queue cleared;
// it still reflects the pre-commit source and can be discarded by the
// caller. Edits that overlap are a programming error in a transformer and
// are reported rather than silently resolved, since silently picking a
// winner would make a rewrite's output depend on rule registration order
// in a way that is not documented anywhere.
func (t *Tree) Commit() (*Tree, []byte, error) {
	if len(t.edits) == 0 {
		return t, nil, nil
	}

	edits := make([]edit, len(t.edits))
	copy(edits, t.edits)
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	for i := 1; i < len(edits); i++ {
		if edits[i].start < edits[i-1].end {
			return nil, nil, fmt.Errorf("cst: overlapping edits: %q [%d,%d) and %q [%d,%d)",
				edits[i-1].desc, edits[i-1].start, edits[i-1].end,
				edits[i].desc, edits[i].start, edits[i].end)
		}
	}

	var out []byte
	var cursor uint32
	for _, e := range edits {
		out = append(out, t.source[cursor:e.start]...)
		out = append(out, e.text...)
		cursor = e.end
	}
	out = append(out, t.source[cursor:]...)

	next, err := Parse(out)
	if err != nil {
		return nil, nil, fmt.Errorf("cst: commit produced unparseable source: %w", err)
	}

	diff, err := difftext.Unified(t.source, out)
	if err != nil {
		return nil, nil, fmt.Errorf("cst: diff: %w", err)
	}

	t.edits = nil
	return next, diff, nil
}
