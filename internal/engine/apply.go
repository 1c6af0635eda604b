// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"

	"github.com/migrapy/migrapy/internal/patchstore"
)

// Apply writes every Ready Patch of a previously persisted session to
// disk. It is a thin wrapper over patchstore.Store.Apply: Analyse
// already did the work of deciding what to write and in what order, and
// the store already knows how to write it atomically and idempotently,
// so the engine's apply() contract adds nothing beyond loading the
// session and delegating.
func Apply(store *patchstore.Store, opts patchstore.ApplyOptions) (*patchstore.ApplyReport, error) {
	sess, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: loading session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("engine: no pending session at %s; run analyse first", store.Root)
	}
	return store.Apply(sess, opts)
}
