// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadLayersFileOverDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migrapy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
tier_policy = "tier1-only"
workers = 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tier1-only", cfg.Engine.TierPolicy)
	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, "medium", cfg.Engine.ConfidenceFloor) // untouched default survives
}

func TestLoadLayersEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migrapy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
tier_policy = "tier1-only"
`), 0o644))

	t.Setenv("MIGRAPY_TIER_POLICY", "all")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "all", cfg.Engine.TierPolicy)
}

func TestLoadRejectsInvalidTierPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migrapy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
tier_policy = "bogus"
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadDefaultsCacheDirUnderStateDir(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg.Engine.StateDir+"/cache", cfg.Cache.Dir)
}
