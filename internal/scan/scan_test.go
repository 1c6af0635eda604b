// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func paths(res *Result) []string {
	var out []string
	for _, f := range res.Files {
		out = append(out, f.Path)
	}
	return out
}

func TestScanFindsPythonFilesInSortedOrder(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"b.py":        "x = 1\n",
		"a/a.py":      "y = 2\n",
		"README.md":   "not python\n",
	})
	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/a.py", "b.py"}, paths(res))
}

func TestScanAppliesDefaultExcludes(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"app.py":              "x = 1\n",
		".venv/lib/thing.py":  "x = 1\n",
		"__pycache__/c.py":    "x = 1\n",
	})
	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, paths(res))
}

func TestScanExcludesTestFilesUnlessIncludeTests(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"app.py":             "x = 1\n",
		"test_app.py":        "x = 1\n",
		"tests/test_more.py": "x = 1\n",
	})
	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, paths(res))

	res, err = Scan(root, Options{IncludeTests: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app.py", "test_app.py", "tests/test_more.py"}, paths(res))
}

func TestScanSkipsFilesThatFailToParse(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"good.py": "x = 1\n",
		"bad.py":  "def (((\n",
	})
	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"good.py"}, paths(res))
}

func TestScanSkipsFilesOverMaxBytes(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"big.py": "x = 1\n",
	})
	res, err := Scan(root, Options{MaxFileBytes: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "exceeds max file size", res.Skipped[0].Reason)
}

func TestScanHonorsCustomExcludeGlobs(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"app.py":          "x = 1\n",
		"vendor/dep.py":   "x = 1\n",
	})
	res, err := Scan(root, Options{Exclude: []string{"vendor/**"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, paths(res))
}
