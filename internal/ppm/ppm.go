// Package ppm reads and writes binary PPM ("P6") images with a maximum
// value of 255 and no comment lines.
package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/ccmtaylor/qok"
	"github.com/ccmtaylor/qok/internal/derrors"
)

// ErrHeader reports a header that is not "P6 <width> <height> 255".
var ErrHeader = errors.New("bad ppm header")

// Read reads a P6 image as a 3 channel qok.Image.
func Read(r io.Reader) (_ *qok.Image, err error) {
	defer derrors.Wrap(&err, "ppm.Read")

	br := bufio.NewReader(r)
	var (
		magic         string
		width, height uint32
		maxval        int
	)
	if _, err := fmt.Fscan(br, &magic, &width, &height, &maxval); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	if magic != "P6" {
		return nil, fmt.Errorf("%w: magic %q", ErrHeader, magic)
	}
	if maxval != 255 {
		return nil, fmt.Errorf("%w: maxval %d", ErrHeader, maxval)
	}
	if uint64(width)*uint64(height) > qok.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrHeader, width, height, qok.MaxPixels)
	}
	// exactly one whitespace byte separates the header from the raster
	sep, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	if !isSpace(sep) {
		return nil, fmt.Errorf("%w: separator %q", ErrHeader, sep)
	}

	img, err := qok.NewImage(width, height, 3)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(br, img.Pix); err != nil {
		return nil, err
	}
	return img, nil
}

// Write writes img as P6. The alpha channel of a 4 channel image is
// dropped.
func Write(w io.Writer, img *qok.Image) (err error) {
	defer derrors.Wrap(&err, "ppm.Write")

	ch := int(img.Channels)
	if ch != 3 && ch != 4 {
		return fmt.Errorf("%w: %d channels", qok.ErrUnsupported, ch)
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6 %d %d 255\n", img.Width, img.Height); err != nil {
		return err
	}
	if ch == 3 {
		if _, err := bw.Write(img.Pix); err != nil {
			return err
		}
	} else {
		for i := 0; i+ch <= len(img.Pix); i += ch {
			if _, err := bw.Write(img.Pix[i : i+3]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
