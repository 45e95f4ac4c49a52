// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloudeng.io/errors"
	"github.com/go-print/capttk"
	"github.com/schollz/progressbar/v2"
	"golang.org/x/crypto/ssh/terminal"
)

func infoFile(ctx context.Context, name string) error {
	job, cleanup, err := openJobOrURL(ctx, name)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := job.PageCount()
	if err != nil {
		return err
	}
	fmt.Printf("%v: version %v, %d page(s)\n", name, job.Version(), n)
	return nil
}

func info(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	handleSignals(cancel)
	errs := errors.M{}
	for _, arg := range args {
		errs.Append(infoFile(ctx, arg))
	}
	return errs.Err()
}

func formatFromFlag(s string) (capttk.OutputFormat, error) {
	switch s {
	case "raw":
		return capttk.FormatRaw, nil
	case "p4", "":
		return capttk.FormatP4, nil
	default:
		return 0, fmt.Errorf("%w: %q", capttk.ErrUnsupportedFormat, s)
	}
}

func extract(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	handleSignals(cancel)
	cl := values.(*extractFlags)

	format, err := formatFromFlag(cl.Format)
	if err != nil {
		return err
	}

	job, cleanup, err := openJobOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	wr, writerCleanup, err := createFile(ctx, cl.OutputFile)
	if err != nil {
		return err
	}

	out := wr
	var bar *progressbar.ProgressBar
	if cl.ProgressBar && len(cl.OutputFile) > 0 {
		isTTY := terminal.IsTerminal(int(os.Stdout.Fd()))
		barWr := io.Writer(os.Stdout)
		if !isTTY {
			barWr = os.Stderr
		}
		bar = progressbar.NewOptions(-1, progressbar.OptionSetWriter(barWr))
		out = io.MultiWriter(wr, bar)
	}

	errs := &errors.M{}
	// cl.Page is the 1-based page number shown to users; Job.WritePage
	// takes a 0-indexed page.
	errs.Append(job.WritePage(out, cl.Page-1, format))
	errs.Append(writerCleanup(ctx))
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	return errs.Err()
}
