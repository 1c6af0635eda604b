// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine is the Migration Engine: for a requested (library,
// from-version, to-version) upgrade over a project, it chooses a tier
// per candidate change, drives the Transformer Library (tier 1) or the
// external oracles (tiers 2/3), merges per-file edits into a
// patchstore.Session, and hands the result to Risk & Validation. The
// worker-pool fan-out across files generalizes
// golang-open2opaque's internal/o2o/rewrite package, which drives the
// same per-package analyse/rewrite loop over errgroup-bounded
// concurrency.
package engine

import (
	"context"

	"github.com/migrapy/migrapy/internal/knowledge"
)

// Tier is a category of rewrite strategy.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// Policy bounds which tiers Analyse is allowed to use.
type Policy string

const (
	Tier1Only  Policy = "tier1-only"
	UpToTier2  Policy = "up-to-tier2"
	AllTiers   Policy = "all"
)

func (p Policy) allows(t Tier) bool {
	switch p {
	case Tier1Only:
		return t == Tier1
	case UpToTier2:
		return t == Tier1 || t == Tier2
	default:
		return true
	}
}

// Options controls one Analyse call, matching the `analyse` options in
// spec.md §6.
type Options struct {
	TierPolicy      Policy
	ConfidenceFloor knowledge.Confidence
	Exclude         []string
	DryRun          bool
}

func (o Options) confidenceFloor() knowledge.Confidence {
	if o.ConfidenceFloor == "" {
		return knowledge.Low
	}
	return o.ConfidenceFloor
}

func meetsFloor(c, floor knowledge.Confidence) bool {
	return c.Rank() >= floor.Rank()
}

// RewriteRequest is what the Migration Engine hands to the external
// rewrite oracle: enough context to produce a replacement for one file
// slice, for a tier-2 completion or a tier-3 rewrite.
type RewriteRequest struct {
	Library, FromVersion, ToVersion string
	// BreakingChange is non-nil for a tier-2 completion (the template
	// the oracle should complete); nil for a tier-3 oracle-only rewrite.
	BreakingChange *knowledge.BreakingChange
	FileSlice      string
}

// RewriteOracle completes a tier-2 template or performs a tier-3
// rewrite. Its output must parse; the engine rejects it otherwise.
type RewriteOracle interface {
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
}

// AuthGate is consulted before every rewrite oracle call; on false the
// engine degrades to the next lower tier instead of erroring.
type AuthGate func(ctx context.Context) bool

// AlwaysAllow is the default AuthGate used when none is configured.
func AlwaysAllow(context.Context) bool { return true }

// PolicyFromString parses the config.EngineConfig.TierPolicy string
// into a Policy, defaulting to UpToTier2 for an unrecognized value so a
// malformed config degrades to the conservative default rather than
// refusing to run.
func PolicyFromString(s string) Policy {
	switch Policy(s) {
	case Tier1Only, UpToTier2, AllTiers:
		return Policy(s)
	default:
		return UpToTier2
	}
}

// ConfidenceFromString parses the config.EngineConfig.ConfidenceFloor
// string into a knowledge.Confidence, defaulting to Low (the most
// permissive floor) for an unrecognized value.
func ConfidenceFromString(s string) knowledge.Confidence {
	switch knowledge.Confidence(s) {
	case knowledge.High, knowledge.Medium, knowledge.Low:
		return knowledge.Confidence(s)
	default:
		return knowledge.Low
	}
}
