// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patchstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/migrapy/migrapy/internal/knowledge"
)

// specFile is the on-disk shape of a cached MigrationSpec, versioned
// independently of the session schema since specs long outlive any one
// session (TTL is months; invalidation is manual).
type specFile struct {
	SchemaVersion int                        `yaml:"schema_version"`
	Library       string                     `yaml:"library"`
	SourceRange   string                     `yaml:"source_range"`
	TargetVersion string                     `yaml:"target_version"`
	Changes       []knowledge.BreakingChange `yaml:"changes"`
}

// Cache implements acquire.Cache on top of the patch store's cache
// directory, one file per (library, from, to) triple.
type Cache struct {
	store *Store
}

// NewCache returns a Cache rooted at store's cache directory.
func NewCache(store *Store) *Cache { return &Cache{store: store} }

func (c *Cache) path(library, from, to string) string {
	name := fmt.Sprintf("%s_%s_%s.spec", library, from, to)
	return filepath.Join(c.store.cacheDirPath(), name)
}

// Get implements acquire.Cache.
func (c *Cache) Get(ctx context.Context, library, from, to string) (*knowledge.MigrationSpec, bool, error) {
	b, err := os.ReadFile(c.path(library, from, to))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var sf specFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, false, fmt.Errorf("patchstore: decoding cache entry: %w", err)
	}
	if sf.SchemaVersion > SchemaVersion {
		return nil, false, fmt.Errorf("patchstore: cache entry for %s %s->%s was written by a newer schema version %d", library, from, to, sf.SchemaVersion)
	}
	return &knowledge.MigrationSpec{
		Library:         sf.Library,
		SourceRange:     sf.SourceRange,
		TargetVersion:   sf.TargetVersion,
		BreakingChanges: sf.Changes,
	}, true, nil
}

// Put implements acquire.Cache.
func (c *Cache) Put(ctx context.Context, spec *knowledge.MigrationSpec) error {
	sf := specFile{
		SchemaVersion: SchemaVersion,
		Library:       spec.Library,
		SourceRange:   spec.SourceRange,
		TargetVersion: spec.TargetVersion,
		Changes:       spec.BreakingChanges,
	}
	return atomicWriteYAML(c.path(spec.Library, spec.SourceRange, spec.TargetVersion), sf)
}
