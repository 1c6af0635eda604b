// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package knowledge holds the in-memory representation of a library
// migration: a set of BreakingChanges and the MigrationSpec that
// groups them for one (library, version-range) pair. Nothing in this
// package performs I/O; internal/acquire is responsible for producing
// and caching these values.
package knowledge

import "strings"

// Kind identifies the shape of a BreakingChange, matching the mandatory
// Tier-1 rewrite kinds so a Tier-2 template can reuse the same rewrite
// machinery as a hand-coded Tier-1 rule.
type Kind string

const (
	SymbolRename            Kind = "symbol-rename"
	AttributeRename         Kind = "attribute-rename"
	MethodRename            Kind = "method-rename"
	FunctionSignature       Kind = "function-signature"
	DecoratorShape          Kind = "decorator-shape"
	ClassConfigRestructure  Kind = "class-config-restructure"
	ImportMove              Kind = "import-move"
	ArgumentRename          Kind = "argument-rename"
	ArgumentRemoved         Kind = "argument-removed"
	BehaviorChange          Kind = "behavior-change"
)

// Confidence is the engine-wide three-level confidence vocabulary.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Rank orders confidences so callers can compute a minimum, as the
// acquisition merge algorithm requires.
func (c Confidence) Rank() int {
	switch c {
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}

// Min returns whichever of a, b ranks lower.
func Min(a, b Confidence) Confidence {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// Match is a source-version pattern a BreakingChange applies to: a
// symbol (the bare name compared at the usage site, e.g. "dict" for
// `m.dict()`) plus optional syntactic predicates a rewrite rule
// evaluates against a usage.UsageRecord (call, attribute, decorator,
// base class...).
type Match struct {
	Symbol string
	// Role restricts the match to one syntactic role. Only the
	// method/attribute-rename matcher reads it, and only "call" narrows
	// the match (the attribute must be the callee of a call); any other
	// value, including empty, matches any role.
	Role string
	// RequireZeroPositionalArgs restricts call-shape matches the way
	// spec.md's worked example for `.dict()` does.
	RequireZeroPositionalArgs bool
}

// Replacement is a target-version shape with capture interpolation: Text
// may reference captures from the match (e.g. "{recv}.model_dump", which
// replaces the matched attribute expression, so a call's parentheses and
// arguments are kept).
// A Replacement whose placeholders are all satisfied by the match's
// captures is a pure template and can be applied by literal
// interpolation without an oracle call (the Tier-2 fast path); a
// Replacement referencing anything else (e.g. "{call}", asking for a
// full rewritten call expression no matcher captures) needs the oracle
// to fill in the rest.
type Replacement struct {
	Text string
}

// Placeholders reports whether Text references any `{...}` token at
// all, resolvable capture or not.
func (r Replacement) Placeholders() bool {
	return strings.ContainsRune(r.Text, '{')
}

// ResolvedBy reports whether every placeholder in Text names a key
// present in captures, i.e. whether interpolate(r.Text, captures) would
// leave no unresolved placeholder behind.
func (r Replacement) ResolvedBy(captures map[string]string) bool {
	text := r.Text
	for {
		start := strings.IndexByte(text, '{')
		if start == -1 {
			return true
		}
		rest := text[start+1:]
		end := strings.IndexByte(rest, '}')
		if end == -1 {
			return true // unterminated, not a placeholder
		}
		key := rest[:end]
		if _, ok := captures[key]; !ok {
			return false
		}
		text = rest[end+1:]
	}
}

// BreakingChange is one documented, machine-consumable API change.
type BreakingChange struct {
	ID              string
	Kind            Kind
	Match           Match
	Replacement     Replacement
	Confidence      Confidence
	RequiresImports []string // "module" or "module:symbol"
	RemovesImports  []string
	Explanation     string
	ProvenanceURL   string
	ProvenanceText  string
}

// Key is the de-duplication key the acquisition merge algorithm uses:
// (kind, symbol, replacement text).
func (b BreakingChange) Key() string {
	return string(b.Kind) + "\x00" + b.Match.Symbol + "\x00" + b.Replacement.Text
}

// MigrationSpec is the ordered, immutable list of BreakingChanges for
// one (library, source-range, target-version) migration.
type MigrationSpec struct {
	Library         string
	SourceRange     string
	TargetVersion   string
	BreakingChanges []BreakingChange
}

// ID returns the cache identity (library, source-range, target-version).
func (s *MigrationSpec) ID() string {
	return s.Library + "@" + s.SourceRange + "->" + s.TargetVersion
}

// ForSymbol returns every BreakingChange matching symbol, in declared
// order.
func (s *MigrationSpec) ForSymbol(symbol string) []BreakingChange {
	var out []BreakingChange
	for _, bc := range s.BreakingChanges {
		if bc.Match.Symbol == symbol {
			out = append(out, bc)
		}
	}
	return out
}
