// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"

	"github.com/migrapy/migrapy/internal/acquire"
	"github.com/migrapy/migrapy/internal/config"
	"github.com/migrapy/migrapy/internal/engine"
	"github.com/migrapy/migrapy/internal/patchstore"
	"github.com/migrapy/migrapy/internal/transform"
)

// commonFlags are accepted by every subcommand that drives the engine.
type commonFlags struct {
	configPath string
	offline    bool
}

func (c *commonFlags) register(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a migrapy.toml config file (default: MIGRAPY_CONFIG env var, then ./migrapy.toml)")
	f.BoolVar(&c.offline, "offline", false, "use the built-in offline knowledge table instead of fetching changelogs over the network")
}

// buildEngine assembles an *engine.Engine and its patchstore.Store from
// config.Load plus the built-in Tier-1 registry, wiring a network
// SourceFetcher backed by a file-backed MigrationSpec cache unless
// -offline substitutes the hermetic OfflineOracle for both fetch and
// extraction.
func buildEngine(projectRoot string, cf commonFlags) (*engine.Engine, *patchstore.Store, *config.Config, error) {
	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	store := patchstore.New(projectRoot, cfg.Engine.StateDir)

	var acquirer *acquire.Acquirer
	if cf.offline {
		offline := acquire.NewOfflineOracle()
		acquirer = &acquire.Acquirer{Fetcher: noopFetcher{}, Oracle: offline, Cache: patchstore.NewCache(store)}
	} else {
		// No real ExtractionOracle ships with this repository (a
		// production deployment would point this at an LLM-backed
		// extraction service); the offline table still backs
		// extraction so a real fetch at least has somewhere to land.
		acquirer = &acquire.Acquirer{Fetcher: &acquire.HTTPFetcher{}, Oracle: acquire.NewOfflineOracle(), Cache: patchstore.NewCache(store)}
	}

	e := &engine.Engine{
		Registry: transform.Default(),
		Acquirer: acquirer,
		Workers:  cfg.Engine.Workers,
	}
	return e, store, cfg, nil
}

// noopFetcher is used in -offline mode: it makes no network request and
// returns one empty placeholder Document, so that Acquire still runs
// extraction through the OfflineOracle (which never reads its Document
// argument).
type noopFetcher struct{}

func (noopFetcher) Fetch(ctx context.Context, library, from, to string) ([]acquire.Document, error) {
	return []acquire.Document{{URL: "offline"}}, nil
}
