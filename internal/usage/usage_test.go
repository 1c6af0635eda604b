// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrapy/migrapy/internal/cst"
)

func build(t *testing.T, src, library, pkgPath string) *Index {
	t.Helper()
	tree, err := cst.Parse([]byte(src))
	require.NoError(t, err)
	return Build(tree, library, pkgPath)
}

func TestBuildResolvesPlainImport(t *testing.T) {
	idx := build(t, "import pydantic\nm = pydantic.BaseModel()\n", "pydantic", "")
	require.Len(t, idx.Imports, 1)
	assert.Equal(t, "pydantic", idx.Imports[0].LocalName)
	require.Len(t, idx.Usages, 1)
	assert.Equal(t, High, idx.Usages[0].Confidence)
}

func TestBuildResolvesFromImportWithAlias(t *testing.T) {
	idx := build(t, "from pydantic import BaseModel as BM\nm = BM()\n", "pydantic", "")
	require.Len(t, idx.Imports, 1)
	assert.Equal(t, "pydantic.BaseModel", idx.Imports[0].Symbol)
	require.Len(t, idx.Usages, 1)
	assert.Equal(t, "BM", idx.Usages[0].LocalName)
}

func TestBuildTreatsWildcardImportAsLowConfidence(t *testing.T) {
	idx := build(t, "from pydantic import *\nm = BaseModel()\n", "pydantic", "")
	require.Len(t, idx.Imports, 1)
	assert.True(t, idx.Imports[0].Wildcard)
	require.Len(t, idx.Usages, 1)
	assert.Equal(t, Low, idx.Usages[0].Confidence)
}

func TestBuildIgnoresRelativeImportWithoutPkgPath(t *testing.T) {
	idx := build(t, "from . import models\n", "pydantic", "")
	assert.Empty(t, idx.Imports)
}

func TestBuildResolvesRelativeImportWithPkgPath(t *testing.T) {
	idx := build(t, "from .pydantic import BaseModel\n", "app.pydantic", "app")
	require.Len(t, idx.Imports, 1)
	assert.Equal(t, "app.pydantic.BaseModel", idx.Imports[0].Symbol)
}

func TestBuildForcesLowConfidenceAfterRebinding(t *testing.T) {
	idx := build(t, "import pydantic\npydantic = mock\nx = pydantic.BaseModel\n", "pydantic", "")
	require.Len(t, idx.Usages, 1)
	assert.Equal(t, Low, idx.Usages[0].Confidence)
	assert.True(t, idx.Usages[0].Rebound)
}

func TestBuildReturnsEmptyIndexWhenLibraryNotImported(t *testing.T) {
	idx := build(t, "import os\nos.getcwd()\n", "pydantic", "")
	assert.Empty(t, idx.Imports)
	assert.Empty(t, idx.Usages)
}
