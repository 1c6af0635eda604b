// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/subcommands"
)

type versionCmd struct{}

func versionCommand() *versionCmd { return &versionCmd{} }

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "print tool version" }
func (*versionCmd) Usage() string          { return "Usage: migrapy version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (*versionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	info, ok := debug.ReadBuildInfo()
	v := "(unknown)"
	if ok {
		v = info.Main.Version
		if v == "(devel)" {
			v = synthesizeVersion(info)
		}
	}
	fmt.Printf("migrapy %s\n", v)
	return subcommands.ExitSuccess
}

// synthesizeVersion reconstructs a pseudo-version from VCS build
// settings when the main module version is just "(devel)", the same
// fallback `go build` itself stopped needing once a module has a
// recorded VCS revision.
func synthesizeVersion(info *debug.BuildInfo) string {
	const fallback = "(devel)"
	settings := make(map[string]string)
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	rev, ok := settings["vcs.revision"]
	if !ok {
		return fallback
	}
	commitTime, err := time.Parse(time.RFC3339Nano, settings["vcs.time"])
	if err != nil {
		return fallback
	}
	modified := ""
	if settings["vcs.modified"] == "true" {
		modified = "+dirty"
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	const pseudoVersionTimestampFormat = "20060102150405"
	return fmt.Sprintf("v?.?.?-%s-%s%s", commitTime.UTC().Format(pseudoVersionTimestampFormat), rev, modified)
}
