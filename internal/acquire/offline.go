// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acquire

import (
	"context"

	"github.com/migrapy/migrapy/internal/knowledge"
)

// OfflineOracle is a hermetic ExtractionOracle for local/offline use,
// the acquisition-side equivalent of golang-open2opaque's fakeloader: it
// never touches a network or a model service, answering only from a
// small built-in table keyed by (library, fromVersion, toVersion). A
// miss returns no BreakingChanges rather than an error, so Tier 2/3
// degrade gracefully exactly as they would for an unknown library.
type OfflineOracle struct {
	Table map[OfflineKey][]knowledge.BreakingChange
}

// OfflineKey identifies one (library, from, to) entry in an
// OfflineOracle's table.
type OfflineKey struct {
	Library, From, To string
}

// NewOfflineOracle returns an OfflineOracle seeded with DefaultOfflineTable.
func NewOfflineOracle() *OfflineOracle {
	return &OfflineOracle{Table: DefaultOfflineTable()}
}

// Extract implements ExtractionOracle. doc is ignored: the offline
// oracle does not parse free text, it only recognizes the (library,
// from, to) triple.
func (o *OfflineOracle) Extract(ctx context.Context, library, from, to string, doc Document) ([]knowledge.BreakingChange, error) {
	bcs, ok := o.Table[OfflineKey{library, from, to}]
	if !ok {
		return nil, nil
	}
	out := make([]knowledge.BreakingChange, len(bcs))
	copy(out, bcs)
	return out, nil
}

// DefaultOfflineTable seeds a couple of entries for libraries with no
// coded Tier-1 transformer, so `up-to-tier2`/`all` runs have something
// to exercise without a network connection configured.
func DefaultOfflineTable() map[OfflineKey][]knowledge.BreakingChange {
	return map[OfflineKey][]knowledge.BreakingChange{
		{"httpx", "0.x", "1.0"}: {
			{
				ID:          "httpx-client-timeout-kwarg",
				Kind:        knowledge.ArgumentRename,
				Match:       knowledge.Match{Symbol: "httpx.Client", Role: "call"},
				Replacement: knowledge.Replacement{Text: "{call}"},
				Confidence:  knowledge.Medium,
				Explanation: "httpx.Client's implicit float timeout argument became keyword-only in 1.0",
			},
		},
	}
}
