// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patchstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrapy/migrapy/internal/risk"
)

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

func TestNewPatchComputesDiffAndSHA(t *testing.T) {
	original := []byte("d = u.dict()\n")
	rendered := []byte("d = u.model_dump()\n")
	p := NewPatch("app.py", original, rendered, nil)
	assert.NotEmpty(t, p.SHA)
	assert.Contains(t, p.Diff, "model_dump")
	assert.Equal(t, Proposed, p.Status)
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	root := newProject(t, map[string]string{"app.py": "d = u.dict()\n"})
	store := New(root, "")

	patch := NewPatch("app.py", []byte("d = u.dict()\n"), []byte("d = u.model_dump()\n"), []ChangeRecord{{Rule: "pydanticMethodRename", Kind: "method-rename", Tier: 1, Confidence: "medium"}})
	patch.Status = Ready
	sess := &Session{Library: "pydantic", FromVersion: "1.x", ToVersion: "2.0", Patches: []Patch{patch}, Risk: risk.Report{Score: 5}}

	require.NoError(t, store.Save(sess))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Patches, 1)
	assert.Equal(t, Ready, loaded.Patches[0].Status)
	assert.Equal(t, 5, loaded.Risk.Score)
}

func TestStoreLoadReturnsNilWhenNoSession(t *testing.T) {
	root := t.TempDir()
	loaded, err := New(root, "").Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestApplyWritesReadyPatchesAndSkipsOthers(t *testing.T) {
	root := newProject(t, map[string]string{
		"app.py":   "d = u.dict()\n",
		"other.py": "x = 1\n",
	})
	store := New(root, "")

	ready := NewPatch("app.py", []byte("d = u.dict()\n"), []byte("d = u.model_dump()\n"), []ChangeRecord{{Rule: "r", Tier: 1}})
	ready.Status = Ready
	rejected := NewPatch("other.py", []byte("x = 1\n"), []byte("x = 2\n"), []ChangeRecord{{Rule: "r", Tier: 1}})
	rejected.Status = Rejected

	sess := &Session{Library: "pydantic", Patches: []Patch{ready, rejected}}
	require.NoError(t, store.Save(sess))

	report, err := store.Apply(sess, ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, report.Applied)
	assert.Equal(t, []string{"other.py"}, report.Skipped)

	got, err := os.ReadFile(filepath.Join(root, "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "d = u.model_dump()\n", string(got))
}

func TestApplyIsIdempotent(t *testing.T) {
	root := newProject(t, map[string]string{"app.py": "d = u.model_dump()\n"})
	store := New(root, "")

	ready := NewPatch("app.py", []byte("d = u.dict()\n"), []byte("d = u.model_dump()\n"), nil)
	ready.Status = Ready
	sess := &Session{Patches: []Patch{ready}}

	report, err := store.Apply(sess, ApplyOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Applied)
	assert.Equal(t, []string{"app.py"}, report.Skipped)
	assert.Equal(t, Applied, sess.Patches[0].Status)
}

func TestApplyWritesBackupWhenRequested(t *testing.T) {
	root := newProject(t, map[string]string{"app.py": "d = u.dict()\n"})
	store := New(root, "")

	ready := NewPatch("app.py", []byte("d = u.dict()\n"), []byte("d = u.model_dump()\n"), nil)
	ready.Status = Ready
	sess := &Session{Patches: []Patch{ready}}

	_, err := store.Apply(sess, ApplyOptions{Backup: true})
	require.NoError(t, err)

	backup, err := os.ReadFile(filepath.Join(root, "app.py.bak"))
	require.NoError(t, err)
	assert.Equal(t, "d = u.dict()\n", string(backup))
}
