package main

import (
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ccmtaylor/qok"
	"github.com/ccmtaylor/qok/internal/derrors"
	"github.com/ccmtaylor/qok/internal/log"
	"github.com/ccmtaylor/qok/internal/ppm"
)

// run converts every job, at most limit at a time, and returns the first
// failure.
func run(ctx context.Context, m mode, jobs []job, limit int) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				log.Warningf(ctx, "skipping %s: %v", j.in, err)
				return err
			}
			return convert(ctx, m, j)
		})
	}
	return g.Wait()
}

// convert performs a single job. The output file is removed if anything
// fails.
func convert(ctx context.Context, m mode, j job) (err error) {
	defer derrors.Wrap(&err, "%s(%q, %q)", m, j.in, j.out)

	in, err := os.Open(j.in)
	if err != nil {
		return err
	}
	defer in.Close()

	img, err := read(m, j.in, in)
	if err != nil {
		return err
	}

	out, err := os.Create(j.out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(j.out)
		}
	}()
	if err := write(m, j.out, out, img); err != nil {
		return err
	}

	if fi, err := out.Stat(); err == nil {
		log.Debugf(ctx, "%s: %dx%d, %d bytes", j.out, img.Width, img.Height, fi.Size())
	}
	log.Infof(ctx, "%s %s -> %s", m, j.in, j.out)
	return nil
}

func read(m mode, name string, r io.Reader) (*qok.Image, error) {
	switch {
	case m == modeDecode:
		return qok.Decode(r)
	case isPNG(name):
		pi, err := png.Decode(r)
		if err != nil {
			return nil, err
		}
		return qok.FromImage(pi), nil
	default:
		return ppm.Read(r)
	}
}

func write(m mode, name string, w io.Writer, img *qok.Image) error {
	switch {
	case m == modeEncode:
		return qok.Encode(w, img)
	case isPNG(name):
		return png.Encode(w, img.NRGBA())
	default:
		return ppm.Write(w, img)
	}
}

func isPNG(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".png")
}
