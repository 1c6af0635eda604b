// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package difftext renders unified text diffs between two byte slices,
// shelling out to the system diff(1) the way golang-open2opaque's
// internal/fix/diff.go does, so the output format is the one reviewers
// already recognize.
package difftext

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Unified returns a unified diff of x versus y, with the "---"/"+++"
// header lines stripped (callers supply their own headers with file
// paths). Returns nil, nil if x and y are identical.
func Unified(x, y []byte) ([]byte, error) {
	if bytes.Equal(x, y) {
		return nil, nil
	}
	xp, err := pipe(x)
	if err != nil {
		return nil, err
	}
	defer xp.Close()
	yp, err := pipe(y)
	if err != nil {
		return nil, err
	}
	defer yp.Close()

	var stderr bytes.Buffer
	cmd := exec.Command("diff", "-u", "/dev/fd/3", "/dev/fd/4")
	cmd.ExtraFiles = []*os.File{xp, yp}
	cmd.Stderr = &stderr
	stdout, err := cmd.Output()
	if ee, ok := err.(*exec.ExitError); ok {
		if exitErrorMeansDiff(ee) {
			err = nil
		}
	}
	if err != nil {
		return nil, err
	}
	if stderr.Len() != 0 {
		return nil, fmt.Errorf("diff: %s", &stderr)
	}
	nl := []byte("\n")
	lines := bytes.Split(stdout, nl)
	if len(lines) < 2 {
		return stdout, nil
	}
	if strings.HasPrefix(string(lines[0]), "--- /dev/fd/3\t") &&
		strings.HasPrefix(string(lines[1]), "+++ /dev/fd/4\t") {
		stdout = bytes.Join(lines[2:], nl)
	}
	return stdout, nil
}

// WithHeader is a convenience wrapper around Unified that prepends the
// conventional "--- a/path" / "+++ b/path" header lines used by patch(1)
// and most code review tools.
func WithHeader(path string, x, y []byte) ([]byte, error) {
	body, err := Unified(x, y)
	if err != nil || body == nil {
		return body, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n+++ b/%s\n", path, path)
	buf.Write(body)
	return buf.Bytes(), nil
}

func pipe(data []byte) (*os.File, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("os.Pipe: %v", err)
	}
	go func() {
		pw.Write(data)
		pw.Close()
	}()
	return pr, nil
}
