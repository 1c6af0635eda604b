// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transform implements the Tier-1 transformer library: one
// named Transformer per pre-coded library migration, each a composition
// of small, deterministic CST rewrite Rules. The shape — an ordered list
// of named rewrite stages, each run to a fixed point before the next
// begins, with a failed rule logged and skipped rather than aborting the
// transformer — generalizes golang-open2opaque's internal/fix/rules.go
// `rewrites []rewrite` list (there run via dstutil.Apply over *dst.File;
// here run via cst.Walk over a *cst.Tree).
package transform

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/migrapy/migrapy/internal/cst"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/usage"
)

// Match is what a Rule's Matcher returns for one candidate node: whether
// it matched, and the named captures its Rewrite function needs.
type Match struct {
	Matched  bool
	Captures map[string]string
}

// noMatch is returned by matchers that declined a node.
var noMatch = Match{}

// Matcher inspects one CST node (with its ancestor chain via Cursor) and
// the file's usage index for the rule's library, and decides whether the
// rule applies at that node.
type Matcher func(c *cst.Cursor, idx *usage.Index) Match

// Rewriter queues the edits for one matched node against tree, given its
// captures. It may queue more than one edit (e.g. renaming a decorator
// call and inserting a sibling @classmethod above the function it
// decorates) but must stay local to the statement containing node unless
// the rule is explicitly documented as multi-statement. It must be a
// pure function of its inputs: Tier-1 determinism requires the same
// input to always produce the same edits.
type Rewriter func(tree *cst.Tree, node *cst.Node, captures map[string]string)

// Rule is one deterministic CST rewrite within a Transformer.
type Rule struct {
	Name       string
	Kind       knowledge.Kind
	Confidence knowledge.Confidence
	Match      Matcher
	Rewrite    Rewriter
	// RequiresImports lists "module" or "module:symbol" entries to
	// ensure exist after the rule fires at least once.
	RequiresImports []string
}

// Applied records one rule firing, for the Migration Engine's Patch
// provenance and the Risk & Validation tier mix.
type Applied struct {
	Rule       string
	Kind       knowledge.Kind
	Confidence knowledge.Confidence
	Start, End uint32
}

// Transformer is a named composition of Rules for one library migration.
type Transformer struct {
	Library string
	Rules   []Rule
}

// Apply runs every rule in order against tree, repeating each rule until
// a pass matches nothing (bounded by maxPasses, which also enforces
// idempotence: a well-behaved rule's second pass always matches nothing)
// and committing after every pass that matched. Once a rule has fired at
// least once, its RequiresImports are ensured. It returns the final tree
// and the list of edits actually applied. A pass whose commit fails to
// parse is a logic error in the rule: it is logged, that pass's edits
// are discarded (passes of the same rule already committed are kept),
// and the remaining rules still run.
func (tr *Transformer) Apply(tree *cst.Tree, pkgPath string) (*cst.Tree, []Applied, error) {
	const maxPasses = 8
	var applied []Applied

	for _, rule := range tr.Rules {
		appliedBefore := len(applied)
		for pass := 0; pass < maxPasses; pass++ {
			idx := usage.Build(tree, tr.Library, pkgPath)
			matches := collectMatches(tree, rule, idx)
			if len(matches) == 0 {
				break
			}
			for _, m := range matches {
				rule.Rewrite(tree, m.node, m.captures)
			}
			next, _, err := tree.Commit()
			if err != nil {
				log.Warningf("transform: rule %s produced an unparseable result, skipping: %v", rule.Name, err)
				tree.Discard()
				break
			}
			tree = next
			for _, m := range matches {
				applied = append(applied, Applied{Rule: rule.Name, Kind: rule.Kind, Confidence: rule.Confidence, Start: m.node.StartByte(), End: m.node.EndByte()})
			}
		}
		if len(applied) > appliedBefore {
			for _, imp := range rule.RequiresImports {
				module, symbol := splitImport(imp)
				if symbol != "" {
					tree.EnsureImport(module, symbol)
				}
			}
		}
		if tree.Pending() {
			next, _, err := tree.Commit()
			if err != nil {
				return nil, nil, fmt.Errorf("transform: import bookkeeping for rule %s: %w", rule.Name, err)
			}
			tree = next
		}
	}

	return tree, applied, nil
}

type matched struct {
	node     *cst.Node
	captures map[string]string
}

// collectMatches walks the tree once and gathers every non-overlapping
// match for rule, outermost match wins when a nested node would also
// match (e.g. a call inside a call), matching the single-statement,
// local-scope rule-authoring constraint.
func collectMatches(tree *cst.Tree, rule Rule, idx *usage.Index) []matched {
	var out []matched
	var lastEnd uint32
	first := true
	cst.Walk(tree.Root(), func(c *cst.Cursor) bool {
		if !first && c.Node.StartByte() < lastEnd {
			return false // inside an already-matched node
		}
		m := rule.Match(c, idx)
		if m.Matched {
			out = append(out, matched{node: c.Node, captures: m.Captures})
			lastEnd = c.Node.EndByte()
			first = false
			return false
		}
		return true
	}, nil)
	return out
}

func splitImport(spec string) (module, symbol string) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == ':' {
			return spec[:i], spec[i+1:]
		}
	}
	return spec, ""
}

// Registry maps a library name to its Transformer, used by the engine to
// decide whether Tier 1 is available and by the `libraries()` external
// interface to advertise what's supported.
type Registry struct {
	byLibrary map[string]*Transformer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byLibrary: map[string]*Transformer{}}
}

// Register adds or replaces the Transformer for its Library.
func (r *Registry) Register(t *Transformer) {
	r.byLibrary[t.Library] = t
}

// Lookup returns the Transformer for library, or nil if Tier 1 is not
// available for it.
func (r *Registry) Lookup(library string) *Transformer {
	return r.byLibrary[library]
}

// Libraries returns the names of every registered Transformer.
func (r *Registry) Libraries() []string {
	out := make([]string, 0, len(r.byLibrary))
	for name := range r.byLibrary {
		out = append(out, name)
	}
	return out
}

// Default returns a Registry pre-populated with every Tier-1 transformer
// this repository ships.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Pydantic())
	r.Register(SQLAlchemy())
	r.Register(Starlette())
	return r
}
