package qok

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ccmtaylor/qok/internal/derrors"
)

// Encode writes img to w. The header always declares 3 channels and
// colorspace 0. A 4 channel image is scanned with its alpha, but any pixel
// that would need a literal RGBA chunk fails with ErrUnsupported.
func Encode(w io.Writer, img *Image) (err error) {
	defer derrors.Wrap(&err, "qok.Encode")
	return encode(w, img, nil)
}

// encode is Encode with an optional hook that observes the codec state
// after every chunk.
func encode(w io.Writer, img *Image, trace func(state)) error {
	if err := img.validate(); err != nil {
		return err
	}
	e := &encoder{
		w:     bufio.NewWriter(w),
		st:    newState(),
		trace: trace,
	}
	d := desc{
		Magic:  magicBytes,
		Width:  img.Width,
		Height: img.Height,
		// only RGB output is defined
		Channels:   3,
		Colorspace: 0,
	}
	if err := binary.Write(e.w, binary.BigEndian, d); err != nil {
		return err
	}
	if err := e.encodePixels(img.Pix, int(img.Channels)); err != nil {
		return err
	}
	if _, err := e.w.Write(trailer[:]); err != nil {
		return err
	}
	return e.w.Flush()
}

type encoder struct {
	w *bufio.Writer

	st  *state
	run int

	trace func(state)
	err   error
}

func (e *encoder) encodePixels(pix []byte, channels int) error {
	for i := 0; i < len(pix); i += channels {
		c := Pixel{pix[i], pix[i+1], pix[i+2], 255}
		if channels == 4 {
			c.A = pix[i+3]
		}
		if c == e.st.Prev {
			e.run++
			continue
		}
		e.writeRun()
		if err := e.writePixel(c, channels); err != nil {
			return err
		}
	}
	e.writeRun()
	return e.err
}

func (e *encoder) writePixel(c Pixel, channels int) error {
	p := e.st.Prev

	dr := int(c.R) - int(p.R)
	dg := int(c.G) - int(p.G)
	db := int(c.B) - int(p.B)
	drdg, dbdg := dr-dg, db-dg

	slot, seen := e.st.lookup(c)
	switch {
	case seen:
		e.writeByte(packIndex(slot))
	case c.A == p.A &&
		inRange(dr, -2, 1) &&
		inRange(dg, -2, 1) &&
		inRange(db, -2, 1):
		e.writeByte(packDiff(dr, dg, db))
	case c.A == p.A &&
		inRange(dg, -32, 31) &&
		inRange(drdg, -8, 7) &&
		inRange(dbdg, -8, 7):
		b1, b2 := packLuma(dg, drdg, dbdg)
		e.writeByte(b1)
		e.writeByte(b2)
	case channels == 4:
		return fmt.Errorf("%w: pixel %v needs a literal RGBA chunk", ErrUnsupported, c)
	default:
		e.writeByte(opRGB)
		e.writeByte(c.R)
		e.writeByte(c.G)
		e.writeByte(c.B)
	}

	e.st.remember(c)
	e.chunk()
	return e.err
}

// writeRun emits the pending run as RUN chunks of at most maxRun pixels.
// RUN chunks leave the cache alone.
func (e *encoder) writeRun() {
	for e.run > 0 {
		n := min(e.run, maxRun)
		e.writeByte(packRun(n))
		e.run -= n
		e.chunk()
	}
}

func (e *encoder) chunk() {
	if e.trace != nil {
		e.trace(*e.st)
	}
}

func (e *encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}
