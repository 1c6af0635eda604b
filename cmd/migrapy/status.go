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

// statusCmd prints a pending session's summary: library/version,
// risk score, and each patch's current PatchStatus.
type statusCmd struct{}

func statusCommand() *statusCmd { return &statusCmd{} }

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "summarize the pending session" }
func (*statusCmd) Usage() string    { return "Usage: migrapy status <project-root>\n" }
func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (*statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(f.Output(), "Usage: migrapy status <project-root>\n")
		return subcommands.ExitUsageError
	}
	root := f.Arg(0)
	store := patchstore.New(root, "")

	sess, err := store.Load()
	if err != nil {
		log.Errorf("status: %v", err)
		return subcommands.ExitFailure
	}
	if sess == nil {
		fmt.Println("no pending session; run 'migrapy analyse' first")
		return subcommands.ExitSuccess
	}

	fmt.Printf("session %s: %s %s -> %s, created %s\n", sess.SessionID, sess.Library, sess.FromVersion, sess.ToVersion, sess.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("risk score: %d/100\n", sess.Risk.Score)
	counts := map[patchstore.PatchStatus]int{}
	for _, p := range sess.Patches {
		counts[p.Status]++
	}
	for _, status := range []patchstore.PatchStatus{patchstore.Proposed, patchstore.Ready, patchstore.Rejected, patchstore.Applied, patchstore.Failed} {
		if counts[status] > 0 {
			fmt.Printf("  %-10s %d\n", status, counts[status])
		}
	}
	if len(sess.FailedFiles) > 0 {
		fmt.Printf("%d file(s) could not be analysed\n", len(sess.FailedFiles))
	}
	return subcommands.ExitSuccess
}
