// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patchstore persists a MigrationSession between the analyse and
// apply phases, renders Patches as unified diffs, and applies them to
// disk atomically. The on-disk layout — a hidden directory at the
// project root holding a session file plus one entry per artifact, each
// with a version header — mirrors how golang-open2opaque's internal/fix
// package renders reviewable unified diffs (internal/fix/diff.go,
// reused here as internal/difftext), generalized to a full session
// store since golang-open2opaque itself writes changes directly rather
// than keeping a pending session on disk.
package patchstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	log "github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/migrapy/migrapy/internal/difftext"
	"github.com/migrapy/migrapy/internal/errutil"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/risk"
)

// SchemaVersion is bumped whenever the on-disk record shapes change in
// an incompatible way. Store refuses to read a session or cache entry
// written by a newer version than it understands.
const SchemaVersion = 1

// StateDirName is the default hidden directory name at a project root.
const StateDirName = ".migrapy"

// PatchStatus is a Patch's position in its state machine:
// Proposed -> (parse-check) -> Ready | Rejected; Ready -> (apply) ->
// Applied | Failed.
type PatchStatus string

const (
	Proposed PatchStatus = "proposed"
	Ready    PatchStatus = "ready"
	Rejected PatchStatus = "rejected"
	Applied  PatchStatus = "applied"
	Failed   PatchStatus = "failed"
)

// ChangeRecord is the persisted form of one transform.Applied edit,
// carrying the provenance a reviewer needs without requiring the full
// transform/engine packages to deserialize a session.
type ChangeRecord struct {
	Rule       string `yaml:"rule"`
	Kind       string `yaml:"kind"`
	Tier       int    `yaml:"tier"`
	Confidence string `yaml:"confidence"`
}

// Patch is one file's ordered edits, rendered as a unified diff, plus
// enough metadata to drive apply() and risk scoring without re-running
// the engine.
type Patch struct {
	FilePath   string         `yaml:"file_path"`
	SHA        string         `yaml:"sha"`
	Diff       string         `yaml:"diff"`
	Original   []byte         `yaml:"-"`
	Rendered   []byte         `yaml:"rendered"`
	Changes    []ChangeRecord `yaml:"changes"`
	Status     PatchStatus    `yaml:"status"`
	RejectedBy string         `yaml:"rejected_by,omitempty"`
}

// NewPatch builds a Patch from the original and post-edit bytes of one
// file, computing its diff and content-addressed identity.
func NewPatch(filePath string, original, rendered []byte, changes []ChangeRecord) Patch {
	diff, err := difftext.WithHeader(filePath, original, rendered)
	if err != nil {
		log.Warningf("patchstore: failed to render diff for %s: %v", filePath, err)
	}
	return Patch{
		FilePath: filePath,
		SHA:      sha(rendered),
		Diff:     string(diff),
		Original: original,
		Rendered: rendered,
		Changes:  changes,
		Status:   Proposed,
	}
}

func sha(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Session is a MigrationSession: what library/version pair it covers,
// the resulting Patches, and the aggregate risk assessment.
type Session struct {
	SchemaVersion int         `yaml:"schema_version"`
	SessionID     string      `yaml:"session_id"`
	Library       string      `yaml:"library"`
	FromVersion   string      `yaml:"from_version"`
	ToVersion     string      `yaml:"to_version"`
	CreatedAt     time.Time   `yaml:"created_at"`
	Risk          risk.Report `yaml:"risk"`
	Patches       []Patch     `yaml:"patches"`
	FailedFiles   []string    `yaml:"failed_files,omitempty"`
}

// Store reads and writes a Session and its cache entries at a fixed
// location under a project root.
type Store struct {
	Root     string
	StateDir string
}

// New returns a Store rooted at projectRoot, using the given state
// directory name (StateDirName if empty).
func New(projectRoot, stateDir string) *Store {
	if stateDir == "" {
		stateDir = StateDirName
	}
	return &Store{Root: projectRoot, StateDir: stateDir}
}

func (s *Store) stateDirPath() string   { return filepath.Join(s.Root, s.StateDir) }
func (s *Store) sessionPath() string    { return filepath.Join(s.stateDirPath(), "session.json") }
func (s *Store) patchesDirPath() string { return filepath.Join(s.stateDirPath(), "patches") }
func (s *Store) cacheDirPath() string   { return filepath.Join(s.stateDirPath(), "cache") }

// Save persists sess to the session file and writes one patch file per
// Patch, all via atomic temp-file-then-rename writes.
func (s *Store) Save(sess *Session) error {
	sess.SchemaVersion = SchemaVersion
	if err := os.MkdirAll(s.patchesDirPath(), 0o755); err != nil {
		return fmt.Errorf("patchstore: %w", err)
	}

	for _, p := range sess.Patches {
		path := filepath.Join(s.patchesDirPath(), p.SHA+".patch")
		if err := atomicWriteYAML(path, p); err != nil {
			return fmt.Errorf("patchstore: writing patch %s: %w", p.FilePath, err)
		}
	}
	if err := atomicWriteYAML(s.sessionPath(), sess); err != nil {
		return fmt.Errorf("patchstore: writing session: %w", err)
	}
	return nil
}

// Load reads the current session from disk, or (nil, nil) if none
// exists.
func (s *Store) Load() (*Session, error) {
	b, err := os.ReadFile(s.sessionPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("patchstore: reading session: %w", err)
	}
	var sess Session
	if err := yaml.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("patchstore: decoding session: %w", err)
	}
	if sess.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("patchstore: session was written by a newer schema version %d (understand up to %d)", sess.SchemaVersion, SchemaVersion)
	}
	return &sess, nil
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	Backup bool
	// OnlyFile restricts the apply to one file's Patch, if non-empty.
	OnlyFile string
}

// ApplyReport summarizes the result of an Apply call.
type ApplyReport struct {
	Applied  []string
	Skipped  []string
	Failures map[string]string
}

// Apply writes every Ready Patch in sess to disk. Each file's write is
// atomic: the new content lands in a temp file in the same directory,
// which is then renamed over the original, so a crash mid-write can
// never leave a half-written file. Applying a Patch whose target file
// already equals the post-patch bytes is a no-op, satisfying the
// idempotence contract.
func (s *Store) Apply(sess *Session, opts ApplyOptions) (report *ApplyReport, err error) {
	defer errutil.Annotatef(&err, "patchstore.Apply(session %s)", sess.SessionID)

	report = &ApplyReport{Failures: map[string]string{}}

	for i := range sess.Patches {
		p := &sess.Patches[i]
		if opts.OnlyFile != "" && p.FilePath != opts.OnlyFile {
			continue
		}
		if p.Status != Ready {
			report.Skipped = append(report.Skipped, p.FilePath)
			continue
		}

		abs := filepath.Join(s.Root, p.FilePath)
		current, err := os.ReadFile(abs)
		if err != nil {
			p.Status = Failed
			report.Failures[p.FilePath] = err.Error()
			continue
		}
		if sha(current) == p.SHA {
			p.Status = Applied
			report.Skipped = append(report.Skipped, p.FilePath)
			continue
		}

		if opts.Backup {
			if err := os.WriteFile(abs+".bak", current, 0o644); err != nil {
				p.Status = Failed
				report.Failures[p.FilePath] = fmt.Sprintf("backup failed: %v", err)
				continue
			}
		}
		if err := atomicWrite(abs, p.Rendered); err != nil {
			p.Status = Failed
			report.Failures[p.FilePath] = err.Error()
			continue
		}
		p.Status = Applied
		report.Applied = append(report.Applied, p.FilePath)
	}

	sort.Strings(report.Applied)
	sort.Strings(report.Skipped)
	return report, s.Save(sess)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".migrapy-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func atomicWriteYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicWrite(path, data)
}
