// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command maxcalls prints the maximum number of concurrent calls in a set
// of calls. Without flags it uses a built-in set of six calls.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/maxcalls/calls"
	"github.com/grailbio/maxcalls/concurrency"
)

type options struct {
	calls       string
	profile     string
	method      concurrency.Method
	parallelism int
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("maxcalls: ")
	log.AddFlags()
	var opts options
	flag.StringVar(&opts.calls, "calls", "", "read calls from this TSV file (columns start, end) instead of the built-in set")
	flag.StringVar(&opts.profile, "profile", "", "write the number of concurrent calls at each call's start to this TSV file")
	flag.Var(&opts.method, "method", "counter to use: sweep, scan or stab")
	flag.IntVar(&opts.parallelism, "parallelism", runtime.NumCPU(), "parallelism used to sort calls")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: maxcalls [-calls path] [-method m] [-profile path]

Maxcalls sorts a set of calls by start time and prints the
maximum number of calls active at the same time. Calls that
touch (one ends exactly when the other starts) are counted
as concurrent.

`)
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if opts.parallelism < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("parallelism must be positive, got %d", opts.parallelism))
	}
	c := calls.Fixed()
	if opts.calls != "" {
		var err error
		if c, err = readCalls(ctx, opts.calls); err != nil {
			return err
		}
	}
	if err := calls.Validate(c); err != nil {
		return err
	}
	calls.SortByStart(c, opts.parallelism)
	log.Debug.Printf("sorted %d calls", len(c))
	n, err := concurrency.Count(opts.method, c)
	if err != nil {
		return err
	}
	if opts.profile != "" {
		if err := writeProfile(ctx, opts.profile, c); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(stdout, "The Maximum number of Concurrent Calls is:\n%d\n", n)
	return err
}

func readCalls(ctx context.Context, path string) (_ []calls.Call, err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E("open calls", err)
	}
	defer errors.CleanUpCtx(ctx, f.Close, &err)
	c, err := calls.ReadTSV(f.Reader(ctx))
	if err != nil {
		return nil, errors.E(fmt.Sprintf("read calls from %s", path), err)
	}
	log.Printf("read %d calls from %s", len(c), path)
	return c, nil
}

func writeProfile(ctx context.Context, path string, c []calls.Call) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E("create profile", err)
	}
	defer errors.CleanUpCtx(ctx, f.Close, &err)
	return calls.WriteProfile(f.Writer(ctx), c, concurrency.Profile(c))
}
