// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"golang.org/x/exp/slices"

	"github.com/migrapy/migrapy/internal/transform"
)

type librariesCmd struct{}

func librariesCommand() *librariesCmd { return &librariesCmd{} }

func (*librariesCmd) Name() string     { return "libraries" }
func (*librariesCmd) Synopsis() string { return "list libraries with a built-in Tier-1 transformer" }
func (*librariesCmd) Usage() string    { return "Usage: migrapy libraries\n" }
func (*librariesCmd) SetFlags(*flag.FlagSet) {}

func (*librariesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	libs := transform.Default().Libraries()
	slices.Sort(libs)
	for _, l := range libs {
		fmt.Println(l)
	}
	return subcommands.ExitSuccess
}
