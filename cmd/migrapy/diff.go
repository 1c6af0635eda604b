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

	"github.com/migrapy/migrapy/internal/patchstore"
)

// diffCmd prints the unified diffs of a pending session's patches.
type diffCmd struct {
	only string
}

func diffCommand() *diffCmd { return &diffCmd{} }

func (*diffCmd) Name() string     { return "diff" }
func (*diffCmd) Synopsis() string { return "print the unified diffs of a pending session" }
func (*diffCmd) Usage() string    { return "Usage: migrapy diff [-file=path] <project-root>\n" }

func (c *diffCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.only, "file", "", "restrict output to one patch, by project-relative path")
}

func (c *diffCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(f.Output(), c.Usage())
		return subcommands.ExitUsageError
	}
	root := f.Arg(0)
	store := patchstore.New(root, "")

	sess, err := store.Load()
	if err != nil {
		log.Errorf("diff: %v", err)
		return subcommands.ExitFailure
	}
	if sess == nil {
		fmt.Println("no pending session; run 'migrapy analyse' first")
		return subcommands.ExitSuccess
	}

	for _, p := range sess.Patches {
		if c.only != "" && p.FilePath != c.only {
			continue
		}
		fmt.Print(p.Diff)
	}
	return subcommands.ExitSuccess
}
