// Command qokconv converts images to and from the qok format.
//
// Usage:
//
//	qokconv [flags] encode|decode INPUT OUTPUT [INPUT OUTPUT ...]
//
// encode reads a binary PPM (or a PNG, if INPUT ends in .png) and writes a
// qok stream. decode reads a qok stream and writes a binary PPM (or a PNG,
// if OUTPUT ends in .png). Several INPUT OUTPUT pairs are converted
// concurrently.
//
// The flags are:
//
//	-log_level=""
//	    minimum severity to log (debug, info, warning, error, fatal);
//	    defaults to $QOK_LOG_LEVEL
//	-parallel=4
//	    maximum number of files converted at once
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ccmtaylor/qok/internal/log"
)

var (
	logLevel = flag.String("log_level", os.Getenv("QOK_LOG_LEVEL"), "minimum severity to log")
	parallel = flag.Int("parallel", 4, "maximum number of files converted at once")
)

func main() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "usage: %s [flags] encode|decode INPUT OUTPUT [INPUT OUTPUT ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	log.SetLevel(*logLevel)
	ctx := context.Background()

	m, jobs, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(flag.CommandLine.Output(), err)
		flag.Usage()
		os.Exit(2)
	}
	if err := run(ctx, m, jobs, *parallel); err != nil {
		log.Fatalf(ctx, "%v", err)
	}
}

var errUsage = errors.New("usage error")

type mode string

const (
	modeEncode mode = "encode"
	modeDecode mode = "decode"
)

type job struct {
	in, out string
}

func parseArgs(args []string) (mode, []job, error) {
	if len(args) < 3 {
		return "", nil, fmt.Errorf("%w: want a mode, an input and an output", errUsage)
	}
	m := mode(args[0])
	if m != modeEncode && m != modeDecode {
		return "", nil, fmt.Errorf("%w: unknown mode %q", errUsage, args[0])
	}
	paths := args[1:]
	if len(paths)%2 != 0 {
		return "", nil, fmt.Errorf("%w: input %q has no output", errUsage, paths[len(paths)-1])
	}
	var jobs []job
	for i := 0; i < len(paths); i += 2 {
		jobs = append(jobs, job{in: paths[i], out: paths[i+1]})
	}
	return m, jobs, nil
}
