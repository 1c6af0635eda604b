// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"github.com/migrapy/migrapy/internal/cst"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/usage"
)

// starletteImportMoves lists the starlette submodules that moved under
// fastapi's own namespace. starlette.status is deliberately absent: it
// stayed put, so `from starlette.status import ...` must be left alone.
var starletteImportMoves = map[string]string{
	"starlette.responses":  "fastapi.responses",
	"starlette.middleware": "fastapi.middleware",
	"starlette.exceptions": "fastapi.exceptions",
}

// Starlette returns the Tier-1 transformer for moving starlette imports
// that FastAPI now re-exports under its own package, per spec.md's S7.
func Starlette() *Transformer {
	return &Transformer{
		Library: "starlette",
		Rules:   []Rule{starletteImportMove()},
	}
}

func starletteImportMove() Rule {
	return Rule{
		Name:       "starletteImportMove",
		Kind:       knowledge.ImportMove,
		Confidence: knowledge.High,
		Match: func(c *cst.Cursor, idx *usage.Index) Match {
			n := c.Node
			if n.Type() != "import_from_statement" {
				return noMatch
			}
			mod := n.ChildByFieldName("module_name")
			if mod == nil {
				return noMatch
			}
			newMod, ok := starletteImportMoves[mod.Text()]
			if !ok {
				return noMatch
			}
			return Match{Matched: true, Captures: map[string]string{"new": newMod}}
		},
		Rewrite: func(tree *cst.Tree, n *cst.Node, cap map[string]string) {
			mod := n.ChildByFieldName("module_name")
			tree.ReplaceNode(mod, cap["new"])
		},
	}
}
