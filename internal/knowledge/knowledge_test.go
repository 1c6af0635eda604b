// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package knowledge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestConfidenceRankOrdersHighAboveLow(t *testing.T) {
	assert.Greater(t, High.Rank(), Medium.Rank())
	assert.Greater(t, Medium.Rank(), Low.Rank())
}

func TestMinReturnsLowerConfidence(t *testing.T) {
	assert.Equal(t, Low, Min(High, Low))
	assert.Equal(t, Medium, Min(High, Medium))
}

func TestReplacementPlaceholdersDetectsCaptures(t *testing.T) {
	assert.False(t, Replacement{Text: "model_dump()"}.Placeholders())
	assert.True(t, Replacement{Text: "{recv}.model_dump()"}.Placeholders())
}

func TestReplacementResolvedByDistinguishesCapturesFromOraclePlaceholders(t *testing.T) {
	captures := map[string]string{"recv": "c", "symbol": "request_legacy"}
	assert.True(t, Replacement{Text: "{recv}.request()"}.ResolvedBy(captures))
	assert.True(t, Replacement{Text: "model_dump()"}.ResolvedBy(captures))
	assert.False(t, Replacement{Text: "{call}"}.ResolvedBy(captures))
}

func TestBreakingChangeKeyIdentifiesDuplicates(t *testing.T) {
	a := BreakingChange{Kind: MethodRename, Match: Match{Symbol: "dict"}, Replacement: Replacement{Text: "{recv}.model_dump()"}}
	b := a
	b.Confidence = High // differs, but Key ignores confidence
	c := a
	c.Match.Symbol = "json"

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestMigrationSpecRoundTripsThroughEquivalentValue(t *testing.T) {
	want := MigrationSpec{
		Library:       "pydantic",
		SourceRange:   "1.x",
		TargetVersion: "2.0",
		BreakingChanges: []BreakingChange{
			{ID: "p1", Kind: MethodRename, Match: Match{Symbol: "dict", Role: "call"}, Replacement: Replacement{Text: "{recv}.model_dump()"}, Confidence: Medium},
		},
	}
	got := want // a plain value type: copying it must produce a deep-equal spec
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MigrationSpec mismatch (-want +got):\n%s", diff)
	}
}
