// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The program migrapy rewrites Python source code after one of its
// library dependencies has undergone a breaking-change version upgrade.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"

	log "github.com/golang/glog"
	"github.com/google/subcommands"
)

const (
	groupAnalyse = "analysing and rewriting a project"
	groupOther   = "working with this tool"
)

func main() {
	ctx := context.Background()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	defaultExplain := commander.Explain
	commander.Explain = func(w io.Writer) {
		fmt.Fprintf(w, "migrapy rewrites Python source code after a library dependency's breaking-change version upgrade.\n\n")
		fmt.Fprintf(w, "A typical session runs 'analyse' to produce a pending set of patches, inspects them with\n")
		fmt.Fprintf(w, "'diff' and 'status', then runs 'apply' once satisfied.\n\n")
		defaultExplain(w)
	}

	commander.Register(commander.HelpCommand(), groupOther)
	commander.Register(commander.FlagsCommand(), groupOther)
	commander.Register(versionCommand(), groupOther)
	commander.Register(librariesCommand(), groupOther)

	commander.Register(scanCommand(), groupAnalyse)
	commander.Register(analyseCommand(), groupAnalyse)
	commander.Register(diffCommand(), groupAnalyse)
	commander.Register(statusCommand(), groupAnalyse)
	commander.Register(applyCommand(), groupAnalyse)

	flag.Usage = func() {
		commander.HelpCommand().Execute(ctx, flag.CommandLine)
	}
	flag.Parse()

	code := int(commander.Execute(ctx))
	log.Flush()
	os.Exit(code)
}
