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
	"github.com/migrapy/migrapy/internal/patchstore"
)

// applyCmd writes every Ready patch of the pending session to disk.
type applyCmd struct {
	backup   bool
	onlyFile string
}

func applyCommand() *applyCmd { return &applyCmd{} }

func (*applyCmd) Name() string     { return "apply" }
func (*applyCmd) Synopsis() string { return "write the pending session's Ready patches to disk" }
func (*applyCmd) Usage() string {
	return "Usage: migrapy apply [-backup] [-file=path] <project-root>\n"
}

func (c *applyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.backup, "backup", false, "write a .bak copy of each file before overwriting it")
	f.StringVar(&c.onlyFile, "file", "", "restrict the apply to one patch, by project-relative path")
}

func (c *applyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(f.Output(), c.Usage())
		return subcommands.ExitUsageError
	}
	root := f.Arg(0)
	store := patchstore.New(root, "")

	report, err := engine.Apply(store, patchstore.ApplyOptions{Backup: c.backup, OnlyFile: c.onlyFile})
	if err != nil {
		log.Errorf("apply: %v", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("applied %d, skipped %d, failed %d\n", len(report.Applied), len(report.Skipped), len(report.Failures))
	for path, reason := range report.Failures {
		fmt.Printf("  %s: %s\n", path, reason)
	}
	if len(report.Failures) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
