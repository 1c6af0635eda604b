// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package risk scores a MigrationSession's advisory risk and validates
// that every modified file still parses. The score is a deterministic
// weighted sum, the same "documented, stable across runs" contract
// golang-open2opaque's risk levels (None/Green/Yellow/Red) give a
// reviewer, generalized here to a 0-100 score with a factor breakdown.
package risk

import (
	"strings"
)

// Tier mirrors engine.Tier without importing the engine package, to
// keep risk free of a dependency on the orchestration layer it scores.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// Confidence mirrors knowledge.Confidence for the same reason.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Change is the minimal shape risk needs to know about one edit: which
// tier produced it, at what confidence, and in which file.
type Change struct {
	FilePath   string
	Tier       Tier
	Confidence Confidence
}

// sensitivePathMarkers are path substrings that raise a file's weight:
// changes that land in auth/config/migration code are worth a closer
// look than changes to an arbitrary module.
var sensitivePathMarkers = []string{"auth", "security", "config", "migrations"}

// Factor is one named contributor to the aggregate score, so a caller
// can explain why a session scored the way it did rather than being
// handed a bare number.
type Factor struct {
	Name   string
	Points float64
}

// Report is the result of scoring a session.
type Report struct {
	Score   int
	Factors []Factor
}

// weight constants. Exact values are an implementation choice; what
// matters is they are fixed and documented, per spec.md's "the
// weighting is deterministic... exact weights are an implementation
// choice but must be stable across runs."
const (
	perFileWeight       = 1.5
	perFileWeightCap    = 20.0
	perChangeWeight     = 0.5
	perChangeWeightCap  = 20.0
	tier3Weight         = 6.0
	tier2Weight         = 2.0
	sensitivePathWeight = 8.0
	lowConfidenceWeight = 30.0
)

// Score computes a Report for changes. It has no dependency on how the
// changes were produced, only their (file, tier, confidence) shape, so
// it can be unit tested without constructing a real MigrationSession.
func Score(changes []Change) Report {
	if len(changes) == 0 {
		return Report{Score: 0}
	}

	files := map[string]bool{}
	sensitiveFiles := map[string]bool{}
	var tier2, tier3, lowOrMedium int
	for _, c := range changes {
		files[c.FilePath] = true
		if isSensitivePath(c.FilePath) {
			sensitiveFiles[c.FilePath] = true
		}
		switch c.Tier {
		case Tier2:
			tier2++
		case Tier3:
			tier3++
		}
		if c.Confidence == Medium || c.Confidence == Low {
			lowOrMedium++
		}
	}

	fileFactor := min(float64(len(files))*perFileWeight, perFileWeightCap)
	changeFactor := min(float64(len(changes))*perChangeWeight, perChangeWeightCap)
	tierFactor := float64(tier2)*tier2Weight + float64(tier3)*tier3Weight
	pathFactor := float64(len(sensitiveFiles)) * sensitivePathWeight
	confidenceFraction := float64(lowOrMedium) / float64(len(changes))
	confidenceFactor := confidenceFraction * lowConfidenceWeight

	factors := []Factor{
		{Name: "file_count", Points: fileFactor},
		{Name: "change_count", Points: changeFactor},
		{Name: "tier_mix", Points: tierFactor},
		{Name: "sensitive_paths", Points: pathFactor},
		{Name: "low_confidence_fraction", Points: confidenceFactor},
	}

	total := 0.0
	for _, f := range factors {
		total += f.Points
	}
	score := int(total)
	if score > 100 {
		score = 100
	}
	return Report{Score: score, Factors: factors}
}

func isSensitivePath(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range sensitivePathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
