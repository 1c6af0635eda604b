// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package acquire builds a knowledge.MigrationSpec for a library version
// pair that has no hard-coded Tier-1 transformer, by fetching upstream
// sources and running an external extraction oracle over them, caching
// the result. The collaborator interfaces mirror golang-open2opaque's
// loader.Loader shape (a pluggable interface with a real and a fake
// implementation): SourceFetcher/ExtractionOracle here play the role
// loader.Loader plays there.
package acquire

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/migrapy/migrapy/internal/errutil"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/syncset"
)

// Document is one changelog/migration-guide source returned by a
// SourceFetcher.
type Document struct {
	URL         string
	ContentType string
	Bytes       []byte
}

// SourceFetcher returns changelog/migration-guide documents for a
// package upgrade. Implementations may hit the network; callers should
// assume arbitrary latency and apply their own timeout.
type SourceFetcher interface {
	Fetch(ctx context.Context, library, fromVersion, toVersion string) ([]Document, error)
}

// ExtractionOracle converts free-form release notes into structured
// BreakingChange candidates.
type ExtractionOracle interface {
	Extract(ctx context.Context, library, fromVersion, toVersion string, doc Document) ([]knowledge.BreakingChange, error)
}

// Cache persists MigrationSpecs keyed by (library, from, to). The
// default implementation is internal/patchstore's file-backed cache;
// tests typically use an in-memory map.
type Cache interface {
	Get(ctx context.Context, library, from, to string) (*knowledge.MigrationSpec, bool, error)
	Put(ctx context.Context, spec *knowledge.MigrationSpec) error
}

// Retry controls the exponential backoff applied to resource errors
// (fetch/oracle failures), per the error handling design's "resource
// errors are retriable" policy.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetry is used when an Acquirer is constructed with a zero Retry.
var DefaultRetry = Retry{MaxAttempts: 4, BaseDelay: 250 * time.Millisecond}

func (r Retry) delay(attempt int) time.Duration {
	if r.BaseDelay <= 0 {
		r = DefaultRetry
	}
	return time.Duration(float64(r.BaseDelay) * math.Pow(2, float64(attempt)))
}

// Acquirer wires a SourceFetcher, ExtractionOracle and Cache together to
// implement the Knowledge Acquisition algorithm.
type Acquirer struct {
	Fetcher SourceFetcher
	Oracle  ExtractionOracle
	Cache   Cache
	Retry   Retry

	writeOnce sync.Once
	written   *syncset.Set
}

// writeSet lazily builds the set of cache keys this Acquirer has already
// written this process, per spec's "writer-serialized" cache-write model:
// concurrent Acquire calls for the same (library, from, to) key race to
// extract, but only the first to finish actually writes the cache.
func (a *Acquirer) writeSet() *syncset.Set {
	a.writeOnce.Do(func() { a.written = syncset.New() })
	return a.written
}

// Acquire implements the algorithm in the Knowledge Acquisition
// component: consult the cache, fetch sources with one SourceFetcher
// call, extract BreakingChanges from each document independently and in
// parallel, merge and de-duplicate, and
// persist the result. A cache hit never touches the network (the
// acquire.Cache.Get call itself may still be I/O, e.g. reading a file,
// but no SourceFetcher/ExtractionOracle call is made).
func (a *Acquirer) Acquire(ctx context.Context, library, fromVersion, toVersion string) (spec *knowledge.MigrationSpec, err error) {
	defer errutil.Annotatef(&err, "acquire.Acquire(%s, %s->%s)", library, fromVersion, toVersion)

	if a.Cache != nil {
		if spec, ok, err := a.Cache.Get(ctx, library, fromVersion, toVersion); err != nil {
			return nil, fmt.Errorf("acquire: cache lookup: %w", err)
		} else if ok {
			return spec, nil
		}
	}

	docs, err := a.fetchWithRetry(ctx, library, fromVersion, toVersion)
	if err != nil {
		log.Warningf("acquire: %s %s->%s: fetch failed after retries: %v", library, fromVersion, toVersion, err)
	}
	if len(docs) == 0 {
		spec := &knowledge.MigrationSpec{Library: library, SourceRange: fromVersion, TargetVersion: toVersion}
		log.Infof("acquire: %s %s->%s: no sources found, returning empty spec", library, fromVersion, toVersion)
		return spec, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([][]knowledge.BreakingChange, len(docs))
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			bcs, err := a.extractWithRetry(gctx, library, fromVersion, toVersion, doc)
			if err != nil {
				log.Warningf("acquire: %s: extraction failed for %s: %v", library, doc.URL, err)
				return nil // a single failed source degrades, it doesn't abort acquisition
			}
			results[i] = bcs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := merge(results)
	spec = &knowledge.MigrationSpec{
		Library:         library,
		SourceRange:     fromVersion,
		TargetVersion:   toVersion,
		BreakingChanges: merged,
	}

	if a.Cache != nil && a.writeSet().Add(spec.ID()) {
		if err := a.Cache.Put(ctx, spec); err != nil {
			log.Warningf("acquire: cache write failed for %s: %v", spec.ID(), err)
		}
	}
	return spec, nil
}

func (a *Acquirer) fetchWithRetry(ctx context.Context, library, from, to string) ([]Document, error) {
	if a.Fetcher == nil {
		return nil, nil
	}
	retry := a.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetry
	}
	var lastErr error
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		docs, err := a.Fetcher.Fetch(ctx, library, from, to)
		if err == nil {
			return docs, nil
		}
		lastErr = err
		if attempt < retry.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retry.delay(attempt)):
			}
		}
	}
	return nil, lastErr
}

func (a *Acquirer) extractWithRetry(ctx context.Context, library, from, to string, doc Document) ([]knowledge.BreakingChange, error) {
	retry := a.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetry
	}
	var lastErr error
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		bcs, err := a.Oracle.Extract(ctx, library, from, to, doc)
		if err == nil {
			return bcs, nil
		}
		lastErr = err
		if attempt < retry.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retry.delay(attempt)):
			}
		}
	}
	return nil, lastErr
}

// merge de-duplicates BreakingChanges by their (kind, symbol,
// replacement) key across all sources, assigns confidence = min of the
// source confidences for a given key, and promotes any entry seen in
// more than one source to high confidence.
func merge(perSource [][]knowledge.BreakingChange) []knowledge.BreakingChange {
	type entry struct {
		bc   knowledge.BreakingChange
		seen int
	}
	byKey := map[string]*entry{}
	var order []string

	for _, bcs := range perSource {
		for _, bc := range bcs {
			key := bc.Key()
			if e, ok := byKey[key]; ok {
				e.seen++
				e.bc.Confidence = knowledge.Min(e.bc.Confidence, bc.Confidence)
			} else {
				byKey[key] = &entry{bc: bc, seen: 1}
				order = append(order, key)
			}
		}
	}

	sort.Strings(order)
	out := make([]knowledge.BreakingChange, 0, len(order))
	for _, key := range order {
		e := byKey[key]
		if e.seen > 1 {
			e.bc.Confidence = knowledge.High
		}
		out = append(out, e.bc)
	}
	return out
}
