// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acquire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrapy/migrapy/internal/knowledge"
)

type fakeCache struct {
	spec *knowledge.MigrationSpec
	puts int
}

func (c *fakeCache) Get(ctx context.Context, library, from, to string) (*knowledge.MigrationSpec, bool, error) {
	return c.spec, c.spec != nil, nil
}
func (c *fakeCache) Put(ctx context.Context, spec *knowledge.MigrationSpec) error {
	c.puts++
	c.spec = spec
	return nil
}

type fakeFetcher struct {
	docs []Document
	err  error
	fail int // number of times to fail before succeeding
}

func (f *fakeFetcher) Fetch(ctx context.Context, library, from, to string) ([]Document, error) {
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("transient fetch error")
	}
	return f.docs, f.err
}

type fakeOracle struct {
	bySource map[string][]knowledge.BreakingChange
}

func (o *fakeOracle) Extract(ctx context.Context, library, from, to string, doc Document) ([]knowledge.BreakingChange, error) {
	return o.bySource[doc.URL], nil
}

func TestAcquireReturnsCachedSpecWithoutFetching(t *testing.T) {
	cached := &knowledge.MigrationSpec{Library: "pydantic", SourceRange: "1.x", TargetVersion: "2.0"}
	fetcher := &fakeFetcher{}
	a := &Acquirer{Fetcher: fetcher, Cache: &fakeCache{spec: cached}}

	got, err := a.Acquire(context.Background(), "pydantic", "1.x", "2.0")
	require.NoError(t, err)
	assert.Same(t, cached, got)
}

func TestAcquireMergesAndDedupsAcrossSources(t *testing.T) {
	bc := knowledge.BreakingChange{Kind: knowledge.MethodRename, Match: knowledge.Match{Symbol: "dict"}, Replacement: knowledge.Replacement{Text: "{recv}.model_dump()"}, Confidence: knowledge.Medium}
	fetcher := &fakeFetcher{docs: []Document{{URL: "a"}, {URL: "b"}}}
	oracle := &fakeOracle{bySource: map[string][]knowledge.BreakingChange{
		"a": {bc},
		"b": {bc},
	}}
	cache := &fakeCache{}
	a := &Acquirer{Fetcher: fetcher, Oracle: oracle, Cache: cache}

	spec, err := a.Acquire(context.Background(), "pydantic", "1.x", "2.0")
	require.NoError(t, err)
	require.Len(t, spec.BreakingChanges, 1)
	assert.Equal(t, knowledge.High, spec.BreakingChanges[0].Confidence) // seen from >1 source, promoted
	assert.Equal(t, 1, cache.puts)
}

func TestAcquireRetriesFetchOnTransientFailure(t *testing.T) {
	fetcher := &fakeFetcher{fail: 2, docs: []Document{{URL: "a"}}}
	oracle := &fakeOracle{bySource: map[string][]knowledge.BreakingChange{}}
	a := &Acquirer{Fetcher: fetcher, Oracle: oracle, Cache: &fakeCache{}, Retry: Retry{MaxAttempts: 4, BaseDelay: time.Millisecond}}

	spec, err := a.Acquire(context.Background(), "pydantic", "1.x", "2.0")
	require.NoError(t, err)
	assert.Empty(t, spec.BreakingChanges)
	assert.Equal(t, 0, fetcher.fail)
}

func TestAcquireReturnsEmptySpecWhenNoSourcesFound(t *testing.T) {
	a := &Acquirer{Fetcher: &fakeFetcher{}, Cache: &fakeCache{}}
	spec, err := a.Acquire(context.Background(), "pydantic", "1.x", "2.0")
	require.NoError(t, err)
	assert.Empty(t, spec.BreakingChanges)
}
