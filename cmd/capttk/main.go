// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-print/capttk"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
)

type infoFlags struct{}

type extractFlags struct {
	Page        int    `subcmd:"page,1,'1-based page number to extract'"`
	Format      string `subcmd:"format,p4,'output format: raw or p4'"`
	OutputFile  string `subcmd:"output,,'output file, omit for stdout'"`
	ProgressBar bool   `subcmd:"progress,true,display a progress bar when writing to a file'"`
}

var cmdSet *subcmd.CommandSet

func init() {
	infoCmd := subcmd.NewCommand("info",
		subcmd.MustRegisterFlagStruct(&infoFlags{}, nil, nil),
		info, subcmd.AtLeastNArguments(1))
	infoCmd.Document(`print the version and page count of one or more CAPT job files. Files may be local, on S3 or a URL.`)

	extractCmd := subcmd.NewCommand("extract",
		subcmd.MustRegisterFlagStruct(&extractFlags{}, nil, nil),
		extract, subcmd.ExactlyNumArguments(1))
	extractCmd.Document(`extract a single page from a CAPT job file as a raw codec stream or a decoded PBM (P4) image.`)

	cmdSet = subcmd.NewCommandSet(infoCmd, extractCmd)
	cmdSet.Document(`inspect and extract pages from Canon CAPT printer job files.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

// openJobOrURL returns a Job for name, which may be a local path, an S3
// path or an http(s) URL. Job requires random access to locate page
// boundaries, so a remote name is first copied to a local temporary
// file; cleanup removes that temporary file, if one was created.
func openJobOrURL(ctx context.Context, name string) (job *capttk.Job, cleanup func(), err error) {
	if isLocal(name) {
		j, err := capttk.OpenJob(name)
		if err != nil {
			return nil, nil, err
		}
		return j, func() { j.Close() }, nil
	}

	tmp, err := os.CreateTemp("", "capttk-job-*")
	if err != nil {
		return nil, nil, err
	}
	cleanupTemp := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	rd, closeRemote, err := openRemote(ctx, name)
	if err != nil {
		cleanupTemp()
		return nil, nil, err
	}
	defer closeRemote()

	if _, err := io.Copy(tmp, rd); err != nil {
		cleanupTemp()
		return nil, nil, err
	}

	j, err := capttk.OpenJob(tmp.Name())
	if err != nil {
		cleanupTemp()
		return nil, nil, err
	}
	return j, func() {
		j.Close()
		cleanupTemp()
	}, nil
}

func isLocal(name string) bool {
	return !strings.HasPrefix(name, "http://") &&
		!strings.HasPrefix(name, "https://") &&
		!strings.HasPrefix(name, "s3://")
}

func openRemote(ctx context.Context, name string) (io.Reader, func(), error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name) //nolint:gosec // URL is an explicit CLI argument.
		if err != nil {
			return nil, nil, err
		}
		return resp.Body, func() { resp.Body.Close() }, nil
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Reader(ctx), func() { f.Close(ctx) }, nil
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}

func handleSignals(cancel context.CancelFunc) {
	cmdutil.HandleSignals(cancel, os.Interrupt)
}
