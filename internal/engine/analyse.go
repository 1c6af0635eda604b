// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/migrapy/migrapy/internal/acquire"
	"github.com/migrapy/migrapy/internal/cst"
	"github.com/migrapy/migrapy/internal/errutil"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/patchstore"
	"github.com/migrapy/migrapy/internal/profile"
	"github.com/migrapy/migrapy/internal/risk"
	"github.com/migrapy/migrapy/internal/scan"
	"github.com/migrapy/migrapy/internal/transform"
	"github.com/migrapy/migrapy/internal/usage"
)

// Engine wires together everything Analyse needs: the Tier-1 transformer
// registry, the knowledge acquirer (tier 2/3 source of MigrationSpecs),
// an optional rewrite oracle for tier-2 completion and tier-3 rewrites,
// and the auth gate that guards every oracle call.
type Engine struct {
	Registry *transform.Registry
	Acquirer *acquire.Acquirer
	Oracle   RewriteOracle
	Gate     AuthGate
	// Workers bounds file-level concurrency; zero means sequential.
	Workers int
}

func (e *Engine) gate() AuthGate {
	if e.Gate != nil {
		return e.Gate
	}
	return AlwaysAllow
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return 1
	}
	return e.Workers
}

// fileResult is one file's outcome, computed independently of every
// other file so the worker pool can run them concurrently.
type fileResult struct {
	path    string
	patch   patchstore.Patch
	changes []risk.Change
	failed  bool
	failErr error
}

// Analyse scans projectRoot, applies every available tier of rewrite
// for library's upgrade from fromVersion to toVersion across the whole
// project, and returns the resulting MigrationSession. It does not touch
// any file on disk unless opts.DryRun is false and store is non-nil, in
// which case the session (and every Patch) is persisted before Analyse
// returns — so a crash between scoring and persistence can never leave
// a caller holding a session it cannot later Load and Apply.
func (e *Engine) Analyse(ctx context.Context, library, fromVersion, toVersion, projectRoot string, opts Options, store *patchstore.Store) (sess *patchstore.Session, err error) {
	defer errutil.Annotatef(&err, "engine.Analyse(%s, %s->%s)", library, fromVersion, toVersion)

	ctx = profile.NewContext(ctx)
	defer func() {
		log.V(1).Infof("engine: analyse profile:\n%s", profile.Dump(ctx))
	}()

	libraries, err := OrderLibraries([]string{library})
	if err != nil {
		return nil, err
	}

	result, err := scan.Scan(projectRoot, scan.Options{Exclude: opts.Exclude})
	if err != nil {
		return nil, fmt.Errorf("engine: scan failed: %w", err)
	}
	profile.Add(ctx, "scan")
	for _, skipped := range result.Skipped {
		log.Infof("engine: skipped %s: %s", skipped.Path, skipped.Reason)
	}

	spec, specErr := e.acquireSpec(ctx, library, fromVersion, toVersion)
	if specErr != nil {
		log.Warningf("engine: knowledge acquisition for %s %s->%s failed, tier 2 unavailable: %v", library, fromVersion, toVersion, specErr)
	}
	profile.Add(ctx, "acquire")

	var (
		mu       sync.Mutex
		results  []fileResult
	)
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.workers())

	for _, sf := range result.Files {
		sf := sf
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			fr := e.analyseFile(gctx, sf, libraries, library, fromVersion, toVersion, opts, spec)
			mu.Lock()
			results = append(results, fr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("engine: analyse cancelled: %w", err)
	}
	profile.Add(ctx, "rewrite")

	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })

	sess = &patchstore.Session{
		SessionID:   uuid.NewString(),
		Library:     library,
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		CreatedAt:   time.Now().UTC(),
	}
	var allChanges []risk.Change
	for _, fr := range results {
		if fr.failed {
			sess.FailedFiles = append(sess.FailedFiles, fr.path)
			log.Warningf("engine: %s: %v", fr.path, fr.failErr)
			continue
		}
		if len(fr.patch.Changes) == 0 {
			continue // no candidate rewrite touched this file
		}
		sess.Patches = append(sess.Patches, fr.patch)
		allChanges = append(allChanges, fr.changes...)
	}
	sess.Risk = risk.Score(allChanges)

	if !opts.DryRun && store != nil {
		if err := store.Save(sess); err != nil {
			return nil, fmt.Errorf("engine: persisting session: %w", err)
		}
	}
	return sess, nil
}

func (e *Engine) acquireSpec(ctx context.Context, library, from, to string) (*knowledge.MigrationSpec, error) {
	if e.Acquirer == nil {
		return nil, nil
	}
	return e.Acquirer.Acquire(ctx, library, from, to)
}

// analyseFile runs every configured tier against one file's tree for
// every library it actually imports, then sweeps unused imports left
// behind by the rewrites and validates the result. It never mutates
// sf.Tree itself; cst.Tree.Commit always returns a fresh tree, so a
// worker never touches another worker's state.
func (e *Engine) analyseFile(ctx context.Context, sf *scan.SourceFile, libraries []string, library, from, to string, opts Options, spec *knowledge.MigrationSpec) fileResult {
	pkgPath := pkgPathFor(sf.Path)
	tree := sf.Tree
	original := append([]byte(nil), tree.Source()...)

	var applied []transform.Applied
	var tier3Used bool

	for _, lib := range libraries {
		idx := usage.Build(tree, lib, pkgPath)
		if len(idx.Imports) == 0 {
			continue
		}

		if opts.TierPolicy.allows(Tier1) {
			if t1 := e.Registry.Lookup(lib); t1 != nil {
				next, a, err := t1.Apply(tree, pkgPath)
				if err != nil {
					return fileResult{path: sf.Path, failed: true, failErr: err}
				}
				tree = next
				applied = append(applied, a...)
			}
		}

		if opts.TierPolicy.allows(Tier2) && spec != nil && lib == library {
			t2 := specTransformer(ctx, lib, spec, opts.confidenceFloor(), e.Oracle, e.gate(), from, to)
			next, a, err := t2.Apply(tree, pkgPath)
			if err != nil {
				return fileResult{path: sf.Path, failed: true, failErr: err}
			}
			tree = next
			applied = append(applied, a...)
		}
	}

	if opts.TierPolicy.allows(Tier3) && e.Oracle != nil && len(applied) == 0 {
		if idx := usage.Build(tree, library, pkgPath); len(idx.Imports) != 0 {
			if next, ok := e.tier3Rewrite(ctx, tree, library, from, to); ok {
				tree = next
				tier3Used = true
			}
		}
	}

	sweepUnusedImports(tree)
	if tree.Pending() {
		next, _, err := tree.Commit()
		if err != nil {
			return fileResult{path: sf.Path, failed: true, failErr: fmt.Errorf("import sweep: %w", err)}
		}
		tree = next
	}

	rendered := tree.Render()
	var changes []patchstore.ChangeRecord
	var riskChanges []risk.Change
	for _, a := range applied {
		tier := Tier1
		if strings.HasPrefix(a.Rule, "tier2:") {
			tier = Tier2
		}
		changes = append(changes, patchstore.ChangeRecord{Rule: a.Rule, Kind: string(a.Kind), Tier: int(tier), Confidence: string(a.Confidence)})
		riskChanges = append(riskChanges, risk.Change{FilePath: sf.Path, Tier: risk.Tier(tier), Confidence: risk.Confidence(a.Confidence)})
	}
	if tier3Used {
		changes = append(changes, patchstore.ChangeRecord{Rule: "tier3:oracle", Kind: string(knowledge.BehaviorChange), Tier: int(Tier3), Confidence: string(knowledge.Low)})
		riskChanges = append(riskChanges, risk.Change{FilePath: sf.Path, Tier: risk.Tier3, Confidence: risk.Low})
	}

	patch := patchstore.NewPatch(sf.Path, original, rendered, changes)
	if len(changes) > 0 {
		if err := risk.Validate(rendered); err != nil {
			patch.Status = patchstore.Rejected
			patch.RejectedBy = err.Error()
		} else {
			patch.Status = patchstore.Ready
		}
	}

	return fileResult{path: sf.Path, patch: patch, changes: riskChanges}
}

// tier3Rewrite asks the oracle to rewrite the whole file for library,
// accepting the result only if it still parses.
func (e *Engine) tier3Rewrite(ctx context.Context, tree *cst.Tree, library, from, to string) (*cst.Tree, bool) {
	if !e.gate()(ctx) {
		log.Infof("engine: tier3 oracle call for %s declined by auth gate", library)
		return tree, false
	}
	out, err := e.Oracle.Rewrite(ctx, RewriteRequest{Library: library, FromVersion: from, ToVersion: to, FileSlice: string(tree.Source())})
	if err != nil {
		log.Warningf("engine: tier3 rewrite for %s failed: %v", library, err)
		return tree, false
	}
	reparsed, err := cst.Parse([]byte(out))
	if err != nil {
		log.Warningf("engine: tier3 rewrite for %s produced unparseable output, discarding: %v", library, err)
		return tree, false
	}
	return reparsed, true
}

// sweepUnusedImports queues deletion of any import binding no longer
// referenced anywhere in tree, the same import-hygiene contract
// cst.RemoveUnusedImports documents: a rewrite that replaces every call
// site of a symbol must not leave its now-dead import behind.
func sweepUnusedImports(tree *cst.Tree) {
	used := usedIdentifiers(tree)
	tree.RemoveUnusedImports(func(boundName string) bool { return used[boundName] })
}

// usedIdentifiers collects every identifier referenced outside of an
// import statement, so RemoveUnusedImports can tell a dead binding from
// a live one.
func usedIdentifiers(tree *cst.Tree) map[string]bool {
	used := map[string]bool{}
	cst.Walk(tree.Root(), func(c *cst.Cursor) bool {
		switch c.Node.Type() {
		case "import_statement", "import_from_statement":
			return false
		case "identifier":
			used[c.Node.Text()] = true
		}
		return true
	}, nil)
	return used
}

// pkgPathFor turns a scan-relative path like "app/models.py" into the
// dotted package path "app.models" usage.Build needs to resolve
// relative imports, treating "__init__.py" as naming its containing
// package.
func pkgPathFor(relPath string) string {
	rel := strings.TrimSuffix(relPath, ".py")
	rel = strings.TrimSuffix(rel, "/__init__")
	return strings.ReplaceAll(rel, "/", ".")
}
