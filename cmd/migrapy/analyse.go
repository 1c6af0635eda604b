// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"

	log "github.com/golang/glog"
	"github.com/google/subcommands"

	"github.com/migrapy/migrapy/internal/engine"
)

// analyseCmd implements the analyse subcommand: scan a project, decide a
// rewrite per candidate change across every available tier, and persist
// the resulting session for review with diff/status before apply.
type analyseCmd struct {
	common          commonFlags
	fromVersion     string
	toVersion       string
	tierPolicy      string
	confidenceFloor string
	dryRun          bool
}

func analyseCommand() *analyseCmd { return &analyseCmd{} }

func (*analyseCmd) Name() string     { return "analyse" }
func (*analyseCmd) Synopsis() string { return "analyse a project for a library upgrade and propose patches" }
func (*analyseCmd) Usage() string {
	return `Usage: migrapy analyse -from=<version> -to=<version> <library> <project-root>
`
}

func (c *analyseCmd) SetFlags(f *flag.FlagSet) {
	c.common.register(f)
	f.StringVar(&c.fromVersion, "from", "", "source version range of the library, e.g. \"1.x\"")
	f.StringVar(&c.toVersion, "to", "", "target version of the library, e.g. \"2.0\"")
	f.StringVar(&c.tierPolicy, "tier-policy", "", "tier1-only | up-to-tier2 | all (default: from config)")
	f.StringVar(&c.confidenceFloor, "confidence-floor", "", "high | medium | low (default: from config)")
	f.BoolVar(&c.dryRun, "dry-run", false, "compute and print the session without persisting it")
}

// Execute takes the library as a positional argument rather than a flag:
// it is the first of two required positionals, <library> <project-root>,
// read via f.Arg.
func (c *analyseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprint(f.Output(), c.Usage())
		return subcommands.ExitUsageError
	}
	library, root := f.Arg(0), f.Arg(1)
	if c.fromVersion == "" || c.toVersion == "" {
		fmt.Fprintln(f.Output(), "both -from and -to are required")
		return subcommands.ExitUsageError
	}

	e, store, cfg, err := buildEngine(root, c.common)
	if err != nil {
		log.Errorf("analyse: %v", err)
		return subcommands.ExitFailure
	}

	policy := engine.PolicyFromString(cfg.Engine.TierPolicy)
	if c.tierPolicy != "" {
		policy = engine.PolicyFromString(c.tierPolicy)
	}
	floor := engine.ConfidenceFromString(cfg.Engine.ConfidenceFloor)
	if c.confidenceFloor != "" {
		floor = engine.ConfidenceFromString(c.confidenceFloor)
	}

	opts := engine.Options{TierPolicy: policy, ConfidenceFloor: floor, DryRun: c.dryRun}

	sess, err := e.Analyse(ctx, library, c.fromVersion, c.toVersion, root, opts, store)
	if err != nil {
		log.Errorf("analyse: %v", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("%d file(s) changed, risk score %d/100\n", len(sess.Patches), sess.Risk.Score)
	for _, factor := range sess.Risk.Factors {
		if factor.Points > 0 {
			fmt.Printf("  %-20s +%.1f\n", factor.Name, factor.Points)
		}
	}
	for _, p := range sess.Patches {
		fmt.Printf("  %s [%s]\n", p.FilePath, p.Status)
	}
	if len(sess.FailedFiles) > 0 {
		fmt.Printf("%d file(s) failed to analyse:\n", len(sess.FailedFiles))
		for _, path := range sess.FailedFiles {
			fmt.Printf("  %s\n", path)
		}
	}
	if c.dryRun {
		fmt.Println("(dry run: session not persisted)")
	}
	return subcommands.ExitSuccess
}
