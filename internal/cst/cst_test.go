// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRenderIsLossless(t *testing.T) {
	sources := []string{
		"x = 1\n",
		"",
		"def f(a, b=2):\n    # comment\n    return a + b\n",
		"import os\nfrom typing import (\n    List,\n    Dict,\n)\n",
		"class C:\n    \"\"\"doc.\"\"\"\n\n    x: int = 1\n",
	}
	for _, src := range sources {
		tree, err := Parse([]byte(src))
		require.NoError(t, err, "source: %q", src)
		assert.Equal(t, src, string(tree.Render()))
	}
}

func TestParseReportsSyntaxError(t *testing.T) {
	_, err := Parse([]byte("def f(:\n"))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
}

func TestCommitSplicesNonOverlappingEdits(t *testing.T) {
	src := "a = 1\nb = 2\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	root := tree.Root()
	a := root.Child(0)
	b := root.Child(1)
	tree.ReplaceNode(a, "a = 10")
	tree.ReplaceNode(b, "b = 20")

	next, diff, err := tree.Commit()
	require.NoError(t, err)
	assert.Equal(t, "a = 10\nb = 20\n", string(next.Render()))
	assert.NotEmpty(t, diff)
}

func TestCommitRejectsOverlappingEdits(t *testing.T) {
	src := "foo(bar)\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	call := tree.Root().Child(0)
	tree.ReplaceNode(call, "baz(bar)\n")
	tree.ReplaceRange(call.StartByte(), call.StartByte()+3, "qux")

	_, _, err = tree.Commit()
	assert.Error(t, err)
}

func TestCommitNoopWhenNoEdits(t *testing.T) {
	src := "x = 1\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	next, diff, err := tree.Commit()
	require.NoError(t, err)
	assert.Same(t, tree, next)
	assert.Nil(t, diff)
}

func TestImportsReportsTopLevelBindings(t *testing.T) {
	src := "import os\nimport numpy as np\nfrom typing import List, Dict as D\nfrom . import models\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	imports := Imports(tree)
	require.Len(t, imports, 5)
	assert.Equal(t, "os", imports[0].BoundName)
	assert.Equal(t, "np", imports[1].BoundName)
	assert.Equal(t, "List", imports[2].BoundName)
	assert.Equal(t, "D", imports[3].BoundName)
	assert.Equal(t, "models", imports[4].BoundName)
}

func TestEnsureImportAddsToExistingFromStatement(t *testing.T) {
	src := "from pydantic import BaseModel\n\nclass M(BaseModel):\n    pass\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	tree.EnsureImport("pydantic", "ConfigDict")
	next, _, err := tree.Commit()
	require.NoError(t, err)
	assert.Contains(t, string(next.Render()), "from pydantic import BaseModel, ConfigDict")
}

func TestEnsureImportInsertsNewStatement(t *testing.T) {
	src := "x = 1\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	tree.EnsureImport("pydantic", "ConfigDict")
	next, _, err := tree.Commit()
	require.NoError(t, err)
	assert.Contains(t, string(next.Render()), "from pydantic import ConfigDict")
	assert.Contains(t, string(next.Render()), "x = 1")
}

func TestEnsureImportIsIdempotent(t *testing.T) {
	src := "from pydantic import BaseModel\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	tree.EnsureImport("pydantic", "BaseModel")
	assert.False(t, tree.Pending())
}

func TestRemoveUnusedImportsDropsOnlyUnusedEntries(t *testing.T) {
	src := "from typing import List, Dict\n\nx: List[int] = []\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	used := map[string]bool{"List": true}
	tree.RemoveUnusedImports(func(name string) bool { return used[name] })
	next, _, err := tree.Commit()
	require.NoError(t, err)
	out := string(next.Render())
	assert.Contains(t, out, "List")
	assert.NotContains(t, out, "Dict")
}

func TestRemoveUnusedImportsDropsWholeStatement(t *testing.T) {
	src := "import os\n\nx = 1\n"
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	tree.RemoveUnusedImports(func(name string) bool { return false })
	next, _, err := tree.Commit()
	require.NoError(t, err)
	assert.NotContains(t, string(next.Render()), "import os")
}
