// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"
)

// libraryOrder is a static table of "library X's rewrites should land
// before library Y's" constraints, generalizing the Pydantic-before-
// FastAPI observation (FastAPI route signatures embed Pydantic models,
// so a request-body type needs its Pydantic-side rename resolved before
// FastAPI-side import moves are worth attempting) to every pairing this
// repository knows about. Keys depend on the values they list.
var libraryOrder = map[string][]string{
	"fastapi":    {"pydantic", "starlette"},
	"starlette":  {},
	"pydantic":   {},
	"sqlalchemy": {},
}

// dependsOn reports whether library transitively depends on candidate
// per libraryOrder.
func dependsOn(library, candidate string, seen map[string]bool) bool {
	if seen[library] {
		return false
	}
	seen[library] = true
	if slices.Contains(libraryOrder[library], candidate) {
		return true
	}
	for _, dep := range libraryOrder[library] {
		if dependsOn(dep, candidate, seen) {
			return true
		}
	}
	return false
}

// OrderLibraries returns libraries sorted so that every dependency named
// in libraryOrder precedes its dependent, breaking ties alphabetically
// so the order is stable across runs. A library absent from
// libraryOrder is treated as having no constraints.
func OrderLibraries(libraries []string) ([]string, error) {
	out := append([]string{}, libraries...)
	sort.Strings(out)
	sort.SliceStable(out, func(i, j int) bool {
		return dependsOn(out[j], out[i], map[string]bool{})
	})
	for _, lib := range out {
		for _, dep := range libraryOrder[lib] {
			if dependsOn(dep, lib, map[string]bool{}) {
				return nil, fmt.Errorf("engine: library order cycle between %q and %q", lib, dep)
			}
		}
	}
	return out, nil
}
