// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"strings"

	log "github.com/golang/glog"

	"github.com/migrapy/migrapy/internal/cst"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/transform"
	"github.com/migrapy/migrapy/internal/usage"
)

// specTransformer turns an acquired knowledge.MigrationSpec into a
// transform.Transformer, so tier-2 rewrites run through the exact same
// fixpoint/commit machinery a hand-coded Tier-1 transformer does. Each
// BreakingChange becomes one Rule: the match shape is the same
// attribute/decorator/identifier heuristics the hand-coded Tier-1 rules
// use (spec.md's rule-authoring section calls this style out as the
// canonical medium-confidence heuristic), and the rewrite is either a
// literal substitution of BreakingChange.Replacement.Text (the Open
// Question (b) fast path, taken whenever every placeholder in the
// template is one of the match's own captures) or a call to
// the RewriteOracle to complete a template referencing anything else.
func specTransformer(ctx context.Context, library string, spec *knowledge.MigrationSpec, floor knowledge.Confidence, oracle RewriteOracle, gate AuthGate, from, to string) *transform.Transformer {
	var rules []transform.Rule
	for _, bc := range spec.BreakingChanges {
		if !meetsFloor(bc.Confidence, floor) {
			continue
		}
		matcher := genericMatcher(bc)
		if matcher == nil {
			continue // kind has no generic syntactic shape; left to tier 3
		}
		rules = append(rules, transform.Rule{
			Name:            "tier2:" + bc.ID,
			Kind:            bc.Kind,
			Confidence:      bc.Confidence,
			Match:           matcher,
			RequiresImports: bc.RequiresImports,
			Rewrite:         genericRewriter(ctx, bc, oracle, gate, library, from, to),
		})
	}
	return &transform.Transformer{Library: library, Rules: rules}
}

// genericMatcher builds a Matcher for a BreakingChange's Kind, using the
// same structural shapes (attribute-in-a-call, decorator-call,
// import-from module name, keyword argument, class definition) a
// hand-coded rule would hard-code for one specific symbol.
func genericMatcher(bc knowledge.BreakingChange) transform.Matcher {
	symbol := bc.Match.Symbol
	if symbol == "" {
		return nil
	}
	switch bc.Kind {
	case knowledge.MethodRename, knowledge.AttributeRename:
		return func(c *cst.Cursor, idx *usage.Index) transform.Match {
			if len(idx.Imports) == 0 {
				return transform.Match{}
			}
			n := c.Node
			if n.Type() != "attribute" {
				return transform.Match{}
			}
			attr := n.ChildByFieldName("attribute")
			if attr == nil || attr.Text() != symbol {
				return transform.Match{}
			}
			p := c.Parent()
			if bc.Match.Role == "call" && (p == nil || p.Type() != "call") {
				return transform.Match{}
			}
			if bc.Match.RequireZeroPositionalArgs && p != nil && p.Type() == "call" {
				if args := p.ChildByFieldName("arguments"); args != nil {
					for i := 0; i < args.NamedChildCount(); i++ {
						if args.NamedChild(i).Type() != "keyword_argument" {
							return transform.Match{}
						}
					}
				}
			}
			obj := n.ChildByFieldName("object")
			if obj == nil {
				return transform.Match{}
			}
			return transform.Match{Matched: true, Captures: map[string]string{"recv": obj.Text(), "symbol": symbol}}
		}

	case knowledge.DecoratorShape:
		return func(c *cst.Cursor, idx *usage.Index) transform.Match {
			if len(idx.Imports) == 0 {
				return transform.Match{}
			}
			n := c.Node
			if n.Type() != "decorator" {
				return transform.Match{}
			}
			call := decoratorCall(n)
			if call == nil {
				return transform.Match{}
			}
			name := call.ChildByFieldName("function")
			if name == nil || name.Text() != symbol {
				return transform.Match{}
			}
			return transform.Match{Matched: true, Captures: map[string]string{"symbol": symbol}}
		}

	case knowledge.ImportMove:
		return func(c *cst.Cursor, idx *usage.Index) transform.Match {
			n := c.Node
			if n.Type() != "import_from_statement" {
				return transform.Match{}
			}
			mod := n.ChildByFieldName("module_name")
			if mod == nil || mod.Text() != symbol {
				return transform.Match{}
			}
			return transform.Match{Matched: true, Captures: map[string]string{"symbol": symbol}}
		}

	case knowledge.ArgumentRename, knowledge.ArgumentRemoved:
		return func(c *cst.Cursor, idx *usage.Index) transform.Match {
			n := c.Node
			if n.Type() != "keyword_argument" {
				return transform.Match{}
			}
			name := n.ChildByFieldName("name")
			if name == nil || name.Text() != symbol {
				return transform.Match{}
			}
			return transform.Match{Matched: true, Captures: map[string]string{"symbol": symbol}}
		}

	case knowledge.ClassConfigRestructure:
		return func(c *cst.Cursor, idx *usage.Index) transform.Match {
			n := c.Node
			if n.Type() != "class_definition" {
				return transform.Match{}
			}
			name := n.ChildByFieldName("name")
			if name == nil || name.Text() != symbol {
				return transform.Match{}
			}
			return transform.Match{Matched: true, Captures: map[string]string{"symbol": symbol}}
		}

	default:
		// SymbolRename, FunctionSignature, BehaviorChange: no fixed
		// syntactic anchor generic enough to guess at here safely, they
		// fall through to tier 3.
		return nil
	}
}

// genericRewriter queues the edit for one matched tier-2 node: a
// literal interpolation when the match's captures resolve every
// placeholder in the template, otherwise a RewriteOracle completion
// gated on the AuthGate. A failed or refused oracle call leaves the
// node untouched rather than aborting the file, matching Tier 1's
// "skip the rule, keep going" failure semantics.
func genericRewriter(ctx context.Context, bc knowledge.BreakingChange, oracle RewriteOracle, gate AuthGate, library, from, to string) transform.Rewriter {
	return func(tree *cst.Tree, n *cst.Node, captures map[string]string) {
		if bc.Replacement.ResolvedBy(captures) {
			tree.ReplaceNode(n, interpolate(bc.Replacement.Text, captures))
			return
		}
		if oracle == nil {
			log.Infof("engine: tier2 change %s needs oracle completion but none is configured, skipping", bc.ID)
			return
		}
		if gate == nil {
			gate = AlwaysAllow
		}
		if !gate(ctx) {
			log.Infof("engine: tier2 oracle call for %s declined by auth gate, skipping", bc.ID)
			return
		}
		out, err := oracle.Rewrite(ctx, RewriteRequest{
			Library:        library,
			FromVersion:    from,
			ToVersion:      to,
			BreakingChange: &bc,
			FileSlice:      n.Text(),
		})
		if err != nil {
			log.Warningf("engine: oracle completion for %s failed, skipping: %v", bc.ID, err)
			return
		}
		tree.ReplaceNode(n, out)
	}
}

func decoratorCall(decorator *cst.Node) *cst.Node {
	for i := 0; i < decorator.NamedChildCount(); i++ {
		if c := decorator.NamedChild(i); c.Type() == "call" {
			return c
		}
	}
	return nil
}

func interpolate(template string, captures map[string]string) string {
	out := template
	for k, v := range captures {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
