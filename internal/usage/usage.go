// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package usage builds, for a parsed Python file and a target library,
// the set of import and usage records referring to that library: every
// name bound from it, and every place that name is subsequently read.
// It generalizes golang-open2opaque's internal/fix/fiximports.go (which
// tracks a Go file's import set the same way) to Python's richer import
// syntax and to the confidence levels the transformer and engine layers
// depend on.
package usage

import (
	"github.com/migrapy/migrapy/internal/cst"
)

// Confidence mirrors the tier/rule confidence vocabulary used throughout
// the engine: high requires an unambiguous syntactic shape, medium
// allows a heuristic shape, low is a risky guess.
type Confidence int

const (
	High Confidence = iota
	Medium
	Low
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

// Role is the syntactic position a reference to a library symbol
// appears in.
type Role int

const (
	RoleUnknown Role = iota
	RoleCall
	RoleDecorator
	RoleAttribute
	RoleBaseClass
	RoleDefaultValue
	RoleTypeAnnotation
)

// ImportRecord is one binding of a local name to a library symbol.
type ImportRecord struct {
	LocalName string // the name bound into file scope
	Symbol    string // the fully qualified library symbol, e.g. "pydantic.BaseModel"
	Wildcard  bool
	Import    cst.Import
}

// UsageRecord is one reference to a name bound by an ImportRecord.
type UsageRecord struct {
	Node       *cst.Node
	Symbol     string
	LocalName  string
	Role       Role
	Confidence Confidence
	// Rebound is true if this reference occurs after the local name was
	// reassigned to something else; per the engine's rebinding policy,
	// such references are still treated as the library symbol but forced
	// to low confidence.
	Rebound bool
}

// Index is the complete set of import/usage records for one library in
// one file.
type Index struct {
	Library  string
	Imports  []ImportRecord
	Usages   []UsageRecord
	Rebound  map[string]bool // local names observed being reassigned
}

// Build resolves every ImportRecord and UsageRecord in tree that refers
// to library, applying the resolution rules in order: plain imports,
// aliased imports, from-imports (including aliased symbols), wildcard
// imports (conservative, low-confidence), and the rebinding policy.
// Relative imports are resolved only when pkgPath is non-empty; pkgPath
// is the dotted package path of the file being scanned (e.g. "app.models"
// for app/models.py), used to turn a leading-dot module name into an
// absolute one.
func Build(tree *cst.Tree, library, pkgPath string) *Index {
	idx := &Index{Library: library, Rebound: map[string]bool{}}

	for _, im := range cst.Imports(tree) {
		mod := resolveModule(im.Module, pkgPath)
		if mod == "" {
			continue // relative import with unknown package path: rule 5
		}
		switch {
		case im.Wildcard:
			if mod == library {
				idx.Imports = append(idx.Imports, ImportRecord{Symbol: library, Wildcard: true, Import: im})
			}
		case im.Symbol == "": // whole-module import: rule 1/2
			if mod == library {
				idx.Imports = append(idx.Imports, ImportRecord{LocalName: im.BoundName, Symbol: mod, Import: im})
			}
		default: // from-import: rule 3
			if mod == library {
				idx.Imports = append(idx.Imports, ImportRecord{
					LocalName: im.BoundName,
					Symbol:    mod + "." + im.Symbol,
					Import:    im,
				})
			}
		}
	}
	if len(idx.Imports) == 0 {
		return idx
	}

	bound := map[string]ImportRecord{}
	wildcard := false
	for _, ir := range idx.Imports {
		if ir.Wildcard {
			wildcard = true
			continue
		}
		bound[ir.LocalName] = ir
	}

	cst.Walk(tree.Root(), func(c *cst.Cursor) bool {
		n := c.Node
		if n.Type() != "identifier" {
			return true
		}
		name := n.Text()

		if isRebindingTarget(c) {
			idx.Rebound[name] = true
			return true
		}

		ir, ok := bound[name]
		if !ok {
			if !wildcard {
				return true
			}
			if isImportReferenceSite(c) {
				return true // the import statement itself, not a usage
			}
			idx.Usages = append(idx.Usages, UsageRecord{
				Node:       n,
				Symbol:     library + "." + name,
				LocalName:  name,
				Role:       roleOf(c),
				Confidence: Low,
			})
			return true
		}
		if isImportReferenceSite(c) {
			return true
		}
		conf := High
		if idx.Rebound[name] {
			conf = Low
		}
		idx.Usages = append(idx.Usages, UsageRecord{
			Node:       n,
			Symbol:     ir.Symbol,
			LocalName:  name,
			Role:       roleOf(c),
			Confidence: conf,
			Rebound:    idx.Rebound[name],
		})
		return true
	}, nil)

	return idx
}

// resolveModule turns a possibly-relative module name into an absolute
// dotted path, or "" if it is relative and pkgPath is unknown (rule 5).
func resolveModule(module, pkgPath string) string {
	if module == "" {
		return ""
	}
	if module[0] != '.' {
		return module
	}
	if pkgPath == "" {
		return ""
	}
	return pkgPath + module
}

// isImportReferenceSite reports whether n's identifier occurs as part of
// an import statement itself (the module name, an alias target, the
// imported symbol name) rather than as a use of the bound name elsewhere
// in the file.
func isImportReferenceSite(c *cst.Cursor) bool {
	for _, a := range c.Ancestors {
		switch a.Type() {
		case "import_statement", "import_from_statement", "dotted_name", "aliased_import":
			return true
		}
	}
	return false
}

// isRebindingTarget reports whether n is the left-hand side of a plain
// assignment, e.g. `requests = mock_requests`.
func isRebindingTarget(c *cst.Cursor) bool {
	p := c.Parent()
	if p == nil || p.Type() != "assignment" {
		return false
	}
	left := p.ChildByFieldName("left")
	return left != nil && left.StartByte() == c.Node.StartByte() && left.EndByte() == c.Node.EndByte()
}

func roleOf(c *cst.Cursor) Role {
	p := c.Parent()
	if p == nil {
		return RoleUnknown
	}
	switch p.Type() {
	case "attribute":
		return RoleAttribute
	case "call":
		return RoleCall
	case "decorator":
		return RoleDecorator
	case "default_parameter", "keyword_argument":
		return RoleDefaultValue
	case "type", "typed_parameter":
		return RoleTypeAnnotation
	}
	for i := len(c.Ancestors) - 1; i >= 0; i-- {
		switch c.Ancestors[i].Type() {
		case "argument_list":
			if i > 0 && c.Ancestors[i-1].Type() == "call" {
				return RoleCall
			}
		case "class_definition":
			if sl := c.Ancestors[i].ChildByFieldName("superclasses"); sl != nil {
				return RoleBaseClass
			}
		case "decorator":
			return RoleDecorator
		}
	}
	return RoleAttribute
}
