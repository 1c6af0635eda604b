// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"strings"

	"github.com/migrapy/migrapy/internal/cst"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/usage"
)

// SQLAlchemy returns the Tier-1 transformer for SQLAlchemy's 1.4 → 2.0
// migration: the query-chain rewrite, call-wrapping and argument-removal
// scenarios from spec.md's S4–S6.
func SQLAlchemy() *Transformer {
	return &Transformer{
		Library: "sqlalchemy",
		Rules: []Rule{
			sqlalchemyQueryChain(),
			sqlalchemyCallWrapping(),
			sqlalchemyArgumentRemove(),
		},
	}
}

// sqlalchemyQueryChain rewrites the legacy `session.query(X)...` chain
// into the 2.0 `session.execute(select(X)...)` form. It recognizes two
// shapes: `.query(X).filter(c1).filter(c2)....first()` (each `.filter`
// becomes a `.where`; `.all()` and `.one()` tails are handled the same
// way) and `.query(X).count()` with no filters.
func sqlalchemyQueryChain() Rule {
	return Rule{
		Name:            "sqlalchemyQueryChain",
		Kind:            knowledge.FunctionSignature,
		Confidence:      knowledge.Medium,
		RequiresImports: []string{"sqlalchemy:select", "sqlalchemy:func"},
		Match: func(c *cst.Cursor, idx *usage.Index) Match {
			if len(idx.Imports) == 0 {
				return noMatch
			}
			n := c.Node
			if n.Type() != "call" {
				return noMatch
			}
			// Only match the outermost call of a chain, i.e. one whose
			// parent is not itself the object of another attribute/call.
			if p := c.Parent(); p != nil && p.Type() == "attribute" {
				if gp := grandparent(c); gp != nil && gp.Type() == "call" {
					return noMatch
				}
			}
			chain, ok := parseQueryChain(n)
			if !ok {
				return noMatch
			}
			return Match{Matched: true, Captures: map[string]string{"entity": chain.entity, "recv": chain.recv}}
		},
		Rewrite: func(tree *cst.Tree, n *cst.Node, cap map[string]string) {
			chain, _ := parseQueryChain(n)
			tree.ReplaceNode(n, chain.render())
		},
	}
}

type queryChain struct {
	recv    string
	entity  string
	filters []string
	tail    string // "first", "all", "one" or "count"
}

func (q queryChain) render() string {
	var b strings.Builder
	b.WriteString(q.recv + ".execute(")
	switch q.tail {
	case "count":
		b.WriteString("select(func.count()).select_from(" + q.entity + ")")
	default:
		b.WriteString("select(" + q.entity + ")")
		for _, f := range q.filters {
			b.WriteString(".where(" + f + ")")
		}
	}
	b.WriteString(")")
	switch q.tail {
	case "count":
		b.WriteString(".scalar()")
	default:
		b.WriteString(".scalars()." + q.tail + "()")
	}
	return b.String()
}

// parseQueryChain walks a `.query(X).filter(...)....tail()` call chain
// from the outermost call inward, returning its pieces if the shape
// matches exactly.
func parseQueryChain(outer *cst.Node) (queryChain, bool) {
	var filters []string
	tail := ""
	cur := outer
	for {
		fn := cur.ChildByFieldName("function")
		if fn == nil || fn.Type() != "attribute" {
			return queryChain{}, false
		}
		method := fn.ChildByFieldName("attribute").Text()
		recv := fn.ChildByFieldName("object")
		args := cur.ChildByFieldName("arguments")

		switch method {
		case "first", "count", "all", "one":
			if tail != "" {
				return queryChain{}, false
			}
			tail = method
		case "filter":
			if args == nil || args.NamedChildCount() != 1 {
				return queryChain{}, false
			}
			filters = append([]string{args.NamedChild(0).Text()}, filters...)
		case "query":
			if args == nil || args.NamedChildCount() != 1 {
				return queryChain{}, false
			}
			if tail == "" || recv == nil {
				return queryChain{}, false
			}
			if tail == "count" && len(filters) > 0 {
				return queryChain{}, false
			}
			return queryChain{recv: recv.Text(), entity: args.NamedChild(0).Text(), filters: filters, tail: tail}, true
		default:
			return queryChain{}, false
		}

		if recv == nil || recv.Type() != "call" {
			return queryChain{}, false
		}
		cur = recv
	}
}

func grandparent(c *cst.Cursor) *cst.Node {
	if len(c.Ancestors) < 2 {
		return nil
	}
	return c.Ancestors[len(c.Ancestors)-2]
}

// sqlalchemyCallWrapping wraps a bare SQL string literal passed to
// `conn.execute(...)` in `text(...)`.
func sqlalchemyCallWrapping() Rule {
	return Rule{
		Name:            "sqlalchemyCallWrapping",
		Kind:            knowledge.FunctionSignature,
		Confidence:      knowledge.Medium,
		RequiresImports: []string{"sqlalchemy:text"},
		Match: func(c *cst.Cursor, idx *usage.Index) Match {
			if len(idx.Imports) == 0 {
				return noMatch
			}
			n := c.Node
			if n.Type() != "call" {
				return noMatch
			}
			fn := n.ChildByFieldName("function")
			if fn == nil || fn.Type() != "attribute" || fn.ChildByFieldName("attribute").Text() != "execute" {
				return noMatch
			}
			args := n.ChildByFieldName("arguments")
			if args == nil || args.NamedChildCount() == 0 {
				return noMatch
			}
			first := args.NamedChild(0)
			if first.Type() != "string" {
				return noMatch
			}
			return Match{Matched: true, Captures: map[string]string{"sql": first.Text()}}
		},
		Rewrite: func(tree *cst.Tree, n *cst.Node, cap map[string]string) {
			args := n.ChildByFieldName("arguments")
			first := args.NamedChild(0)
			tree.ReplaceNode(first, "text("+cap["sql"]+")")
		},
	}
}

// sqlalchemyArgumentRemove drops the `future=True` keyword argument from
// a `create_engine(...)` call, along with whichever neighboring comma
// would otherwise dangle.
func sqlalchemyArgumentRemove() Rule {
	return Rule{
		Name:       "sqlalchemyArgumentRemove",
		Kind:       knowledge.ArgumentRemoved,
		Confidence: knowledge.High,
		Match: func(c *cst.Cursor, idx *usage.Index) Match {
			n := c.Node
			if n.Type() != "keyword_argument" {
				return noMatch
			}
			if n.ChildByFieldName("name").Text() != "future" {
				return noMatch
			}
			p := c.Parent()
			if p == nil || p.Type() != "argument_list" {
				return noMatch
			}
			gp := grandparent(c)
			if gp == nil || gp.Type() != "call" {
				return noMatch
			}
			fn := gp.ChildByFieldName("function")
			if fn == nil || fn.Type() != "identifier" || fn.Text() != "create_engine" {
				return noMatch
			}
			return Match{Matched: true}
		},
		Rewrite: func(tree *cst.Tree, n *cst.Node, cap map[string]string) {
			tree.DeleteListEntry(n)
		},
	}
}
