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

	"github.com/migrapy/migrapy/internal/scan"
)

// scanCmd lists the files a later analyse would consider, without
// acquiring any knowledge or running any transformer. It exists so a
// user can sanity-check exclude globs before spending a real analyse
// run, the same separation golang-open2opaque keeps between loading
// packages and rewriting them.
type scanCmd struct {
	exclude stringList
}

func scanCommand() *scanCmd { return &scanCmd{} }

func (*scanCmd) Name() string     { return "scan" }
func (*scanCmd) Synopsis() string { return "list the Python files a migration would consider" }
func (*scanCmd) Usage() string {
	return "Usage: migrapy scan [-exclude=pattern ...] <project-root>\n"
}

func (c *scanCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.exclude, "exclude", "additional doublestar exclude glob, may be repeated")
}

func (c *scanCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(f.Output(), c.Usage())
		return subcommands.ExitUsageError
	}
	root := f.Arg(0)

	result, err := scan.Scan(root, scan.Options{Exclude: c.exclude})
	if err != nil {
		log.Errorf("scan: %v", err)
		return subcommands.ExitFailure
	}
	for _, sf := range result.Files {
		fmt.Println(sf.Path)
	}
	for _, sk := range result.Skipped {
		log.Infof("skipped %s: %s", sk.Path, sk.Reason)
	}
	return subcommands.ExitSuccess
}

// stringList implements flag.Value so -exclude can be repeated.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
