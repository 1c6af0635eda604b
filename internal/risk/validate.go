// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package risk

import (
	"fmt"

	"github.com/migrapy/migrapy/internal/cst"
)

// Validate re-parses rendered, the post-patch bytes for one file, and
// reports whether it is still valid Python. Per spec.md §4.7, a Patch
// that fails this check must be rejected and excluded from apply.
func Validate(rendered []byte) error {
	tree, err := cst.Parse(rendered)
	if err != nil {
		return fmt.Errorf("post-patch file does not parse: %w", err)
	}
	tree.Close()
	return nil
}
