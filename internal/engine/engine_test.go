// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrapy/migrapy/internal/acquire"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/patchstore"
	"github.com/migrapy/migrapy/internal/transform"
)

func TestOrderLibrariesPutsDependenciesFirst(t *testing.T) {
	out, err := OrderLibraries([]string{"fastapi", "pydantic", "starlette"})
	require.NoError(t, err)
	pos := map[string]int{}
	for i, l := range out {
		pos[l] = i
	}
	assert.Less(t, pos["pydantic"], pos["fastapi"])
	assert.Less(t, pos["starlette"], pos["fastapi"])
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestAnalyseAppliesTier1AndProducesReadyPatch(t *testing.T) {
	root := writeProject(t, map[string]string{
		"app.py": "from pydantic import Model\nu = Model()\nd = u.dict()\n",
	})

	e := &Engine{Registry: transform.Default(), Workers: 2}
	opts := Options{TierPolicy: AllTiers, ConfidenceFloor: knowledge.Low}

	sess, err := e.Analyse(context.Background(), "pydantic", "1.x", "2.0", root, opts, nil)
	require.NoError(t, err)
	require.Len(t, sess.Patches, 1)

	p := sess.Patches[0]
	assert.Equal(t, patchstore.Ready, p.Status)
	assert.Contains(t, string(p.Rendered), "model_dump()")
	assert.Equal(t, "app.py", p.FilePath)
	require.Len(t, p.Changes, 1)
	assert.Equal(t, 1, p.Changes[0].Tier)
}

func TestAnalyseSkipsFilesThatDoNotImportTheLibrary(t *testing.T) {
	root := writeProject(t, map[string]string{
		"unrelated.py": "import os\nprint(os.getcwd())\n",
	})
	e := &Engine{Registry: transform.Default()}
	sess, err := e.Analyse(context.Background(), "pydantic", "1.x", "2.0", root, Options{TierPolicy: AllTiers}, nil)
	require.NoError(t, err)
	assert.Empty(t, sess.Patches)
	assert.Empty(t, sess.FailedFiles)
}

type memCache struct {
	spec *knowledge.MigrationSpec
}

func (m *memCache) Get(ctx context.Context, library, from, to string) (*knowledge.MigrationSpec, bool, error) {
	return m.spec, m.spec != nil, nil
}
func (m *memCache) Put(ctx context.Context, spec *knowledge.MigrationSpec) error {
	m.spec = spec
	return nil
}

func TestAnalyseTier2PureTemplateNeedsNoOracle(t *testing.T) {
	root := writeProject(t, map[string]string{
		"app.py": "from httpx import Client\nc = Client()\nr = c.request_legacy()\n",
	})

	spec := &knowledge.MigrationSpec{
		Library:       "httpx",
		SourceRange:   "0.x",
		TargetVersion: "1.0",
		BreakingChanges: []knowledge.BreakingChange{
			{
				ID:         "httpx-request-legacy",
				Kind:       knowledge.MethodRename,
				Match:      knowledge.Match{Symbol: "request_legacy", Role: "call"},
				Replacement: knowledge.Replacement{Text: "{recv}.request"},
				Confidence: knowledge.Medium,
			},
		},
	}
	acquirer := &acquire.Acquirer{Cache: &memCache{spec: spec}}
	e := &Engine{Registry: transform.NewRegistry(), Acquirer: acquirer}

	sess, err := e.Analyse(context.Background(), "httpx", "0.x", "1.0", root, Options{TierPolicy: AllTiers, ConfidenceFloor: knowledge.Low}, nil)
	require.NoError(t, err)
	require.Len(t, sess.Patches, 1)
	assert.Contains(t, string(sess.Patches[0].Rendered), "c.request()")
	assert.Equal(t, 2, sess.Patches[0].Changes[0].Tier)
}

func TestAnalyseSweepsImportThatBecomesUnused(t *testing.T) {
	root := writeProject(t, map[string]string{
		"app.py": "from pydantic import validator\n\n\nclass Model:\n    @validator(\"x\")\n    def check(cls, v):\n        return v\n",
	})

	e := &Engine{Registry: transform.Default()}
	sess, err := e.Analyse(context.Background(), "pydantic", "1.x", "2.0", root, Options{TierPolicy: AllTiers, ConfidenceFloor: knowledge.Low}, nil)
	require.NoError(t, err)
	require.Len(t, sess.Patches, 1)

	rendered := string(sess.Patches[0].Rendered)
	assert.Contains(t, rendered, "field_validator")
	assert.NotContains(t, rendered, "import validator")
}

func TestAnalysePersistsSessionUnlessDryRun(t *testing.T) {
	root := writeProject(t, map[string]string{
		"app.py": "from pydantic import Model\nu = Model()\nd = u.dict()\n",
	})
	e := &Engine{Registry: transform.Default()}
	store := patchstore.New(root, "")

	_, err := e.Analyse(context.Background(), "pydantic", "1.x", "2.0", root, Options{TierPolicy: AllTiers}, store)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Patches, 1)
}
