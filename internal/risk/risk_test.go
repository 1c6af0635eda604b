// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreOfNoChangesIsZero(t *testing.T) {
	r := Score(nil)
	assert.Equal(t, 0, r.Score)
	assert.Empty(t, r.Factors)
}

func TestScoreWeightsTierAndConfidence(t *testing.T) {
	tier1 := Score([]Change{{FilePath: "a.py", Tier: Tier1, Confidence: High}})
	tier3 := Score([]Change{{FilePath: "a.py", Tier: Tier3, Confidence: Low}})
	assert.Less(t, tier1.Score, tier3.Score)
}

func TestScoreFlagsSensitivePaths(t *testing.T) {
	plain := Score([]Change{{FilePath: "app/views.py", Tier: Tier1, Confidence: High}})
	sensitive := Score([]Change{{FilePath: "app/auth/login.py", Tier: Tier1, Confidence: High}})
	assert.Less(t, plain.Score, sensitive.Score)

	var found bool
	for _, f := range sensitive.Factors {
		if f.Name == "sensitive_paths" {
			found = true
			assert.Greater(t, f.Points, 0.0)
		}
	}
	require.True(t, found)
}

func TestScoreIsDeterministic(t *testing.T) {
	changes := []Change{
		{FilePath: "a.py", Tier: Tier1, Confidence: High},
		{FilePath: "b.py", Tier: Tier2, Confidence: Medium},
	}
	first := Score(changes)
	second := Score(changes)
	assert.Equal(t, first, second)
}

func TestScoreNeverExceeds100(t *testing.T) {
	var changes []Change
	for i := 0; i < 200; i++ {
		changes = append(changes, Change{FilePath: "auth/migrations/huge.py", Tier: Tier3, Confidence: Low})
	}
	r := Score(changes)
	assert.LessOrEqual(t, r.Score, 100)
}

func TestValidateRejectsUnparseableOutput(t *testing.T) {
	assert.NoError(t, Validate([]byte("x = 1\n")))
	assert.Error(t, Validate([]byte("def (((\n")))
}
