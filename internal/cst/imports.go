// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cst

import (
	"fmt"
	"strings"
)

// Import describes one name bound into scope by a top-level import
// statement: either a whole module (`import pydantic`, `import x as y`)
// or one symbol pulled from a module (`from pydantic import BaseModel`,
// `from pydantic import BaseModel as Base`). Wildcard imports
// (`from pydantic import *`) are reported with Wildcard set and an empty
// BoundName, since the bound names they introduce cannot be determined
// without resolving the target module.
type Import struct {
	Module    string // dotted module path, leading dots kept for relative imports
	Symbol    string // imported symbol name; empty for a whole-module import
	BoundName string // the identifier this import binds in the current scope
	Wildcard  bool
	stmt      *Node // the enclosing import_statement / import_from_statement
	entry     *Node // the specific dotted_name/aliased_import/wildcard_import child
}

// Imports walks the direct children of the module root and returns every
// top-level import. Imports nested inside a function or class body (a
// conditional re-import, a lazy import) are intentionally not reported:
// the Usage Index only resolves names visible at module scope.
func Imports(tree *Tree) []Import {
	var out []Import
	root := tree.Root()
	for i := 0; i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		switch stmt.Type() {
		case "import_statement":
			out = append(out, importStatementBindings(stmt)...)
		case "import_from_statement":
			out = append(out, importFromBindings(stmt)...)
		}
	}
	return out
}

func importStatementBindings(stmt *Node) []Import {
	var out []Import
	for i := 0; i < stmt.NamedChildCount(); i++ {
		c := stmt.NamedChild(i)
		switch c.Type() {
		case "dotted_name":
			module := c.Text()
			out = append(out, Import{Module: module, BoundName: topComponent(module), stmt: stmt, entry: c})
		case "aliased_import":
			module := c.ChildByFieldName("name").Text()
			alias := c.ChildByFieldName("alias").Text()
			out = append(out, Import{Module: module, BoundName: alias, stmt: stmt, entry: c})
		}
	}
	return out
}

func importFromBindings(stmt *Node) []Import {
	module := ""
	if m := stmt.ChildByFieldName("module_name"); m != nil {
		module = m.Text()
	}
	var out []Import
	for i := 0; i < stmt.NamedChildCount(); i++ {
		c := stmt.NamedChild(i)
		switch c.Type() {
		case "wildcard_import":
			out = append(out, Import{Module: module, Wildcard: true, stmt: stmt, entry: c})
		case "dotted_name":
			if m := stmt.ChildByFieldName("module_name"); m != nil && c.StartByte() == m.StartByte() && c.EndByte() == m.EndByte() {
				continue
			}
			sym := c.Text()
			out = append(out, Import{Module: module, Symbol: sym, BoundName: sym, stmt: stmt, entry: c})
		case "aliased_import":
			sym := c.ChildByFieldName("name").Text()
			alias := c.ChildByFieldName("alias").Text()
			out = append(out, Import{Module: module, Symbol: sym, BoundName: alias, stmt: stmt, entry: c})
		}
	}
	return out
}

func topComponent(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}

// EnsureImport queues an edit (if needed) so that symbol is importable
// from module under the name it would bind without an alias, i.e.
// `from module import symbol`. If a `from module import ...` statement
// already exists, symbol is appended to its list; otherwise a new
// statement is inserted after the last existing top-level import, or at
// the top of the file if there are none. EnsureImport is a no-op if the
// binding already exists.
func (t *Tree) EnsureImport(module, symbol string) {
	for _, im := range Imports(t) {
		if im.Wildcard && im.Module == module {
			return // already covered by from module import *
		}
		if im.Module == module && im.Symbol == symbol && im.BoundName == symbol {
			return
		}
	}

	for _, im := range Imports(t) {
		if im.Module == module && !im.Wildcard && im.stmt.Type() == "import_from_statement" {
			t.InsertAfter(im.entry, fmt.Sprintf(", %s", symbol))
			return
		}
	}

	line := fmt.Sprintf("from %s import %s\n", module, symbol)
	if anchor := lastTopLevelImport(t); anchor != nil {
		t.InsertAfter(anchor, "\n"+strings.TrimSuffix(line, "\n"))
	} else if first := firstStatement(t); first != nil {
		t.InsertBefore(first, line)
	} else {
		t.ReplaceRange(0, 0, line)
	}
}

func lastTopLevelImport(t *Tree) *Node {
	root := t.Root()
	var last *Node
	for i := 0; i < root.ChildCount(); i++ {
		c := root.Child(i)
		if c.Type() == "import_statement" || c.Type() == "import_from_statement" {
			last = c
		}
	}
	return last
}

func firstStatement(t *Tree) *Node {
	root := t.Root()
	for i := 0; i < root.ChildCount(); i++ {
		if root.Child(i).IsNamed() {
			return root.Child(i)
		}
	}
	return nil
}

// RemoveUnusedImports queues deletion of every binding for which used
// returns false. A multi-symbol `from module import a, b, c` loses only
// the unused entries (and, if every entry in the statement becomes
// unused, the whole statement); a whole-module `import x` is only
// removed if x itself is unused. Wildcard imports are never removed,
// since their bound names cannot be enumerated without resolving the
// target module.
func (t *Tree) RemoveUnusedImports(used func(boundName string) bool) {
	byStmt := map[*Node][]Import{}
	var order []*Node
	for _, im := range Imports(t) {
		if im.Wildcard || used(im.BoundName) {
			continue
		}
		if _, ok := byStmt[im.stmt]; !ok {
			order = append(order, im.stmt)
		}
		byStmt[im.stmt] = append(byStmt[im.stmt], im)
	}

	for _, stmt := range order {
		unused := byStmt[stmt]
		total := 0
		for i := 0; i < stmt.NamedChildCount(); i++ {
			if k := stmt.NamedChild(i).Type(); k == "dotted_name" || k == "aliased_import" || k == "wildcard_import" {
				if m := stmt.ChildByFieldName("module_name"); stmt.Type() == "import_from_statement" && m != nil && stmt.NamedChild(i).StartByte() == m.StartByte() {
					continue
				}
				total++
			}
		}
		if total == len(unused) {
			t.DeleteNode(stmt)
			continue
		}
		for _, im := range unused {
			deleteImportEntry(t, stmt, im.entry)
		}
	}
}

// deleteImportEntry removes one comma-separated entry from a multi-name
// import statement, consuming the comma that follows it (or, if it is
// the last entry, the comma that precedes it) so the surviving list
// doesn't end up with a dangling separator.
func deleteImportEntry(t *Tree, stmt, entry *Node) {
	children := make([]*Node, stmt.ChildCount())
	idx := -1
	for i := range children {
		children[i] = stmt.Child(i)
		if children[i].StartByte() == entry.StartByte() && children[i].EndByte() == entry.EndByte() {
			idx = i
		}
	}
	start, end := entry.StartByte(), entry.EndByte()
	if idx >= 0 {
		for j := idx + 1; j < len(children); j++ {
			if children[j].Type() == "," {
				end = children[j].EndByte()
				break
			}
			if children[j].IsNamed() {
				break
			}
		}
		if end == entry.EndByte() {
			for j := idx - 1; j >= 0; j-- {
				if children[j].Type() == "," {
					start = children[j].StartByte()
					break
				}
				if children[j].IsNamed() {
					break
				}
			}
		}
	}
	t.ReplaceRange(start, end, "")
}
