package qok

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ccmtaylor/qok/internal/derrors"
)

// Decode reads a complete stream from r. The returned image has the channel
// count declared in the header.
func Decode(r io.Reader) (_ *Image, err error) {
	defer derrors.Wrap(&err, "qok.Decode")
	return decode(r, nil)
}

// DecodeHeader reads and validates only the header.
func DecodeHeader(r io.Reader) (_ Header, err error) {
	defer derrors.Wrap(&err, "qok.DecodeHeader")
	return readHeader(r)
}

func readHeader(r io.Reader) (Header, error) {
	var d desc
	if err := binary.Read(r, binary.BigEndian, &d); err != nil {
		return Header{}, truncated(err)
	}
	if d.Magic != magicBytes {
		return Header{}, ErrBadMagic
	}
	if d.Channels != 3 && d.Channels != 4 {
		return Header{}, fmt.Errorf("%w: %d", ErrBadChannels, d.Channels)
	}
	if uint64(d.Width)*uint64(d.Height) > MaxPixels {
		return Header{}, fmt.Errorf("%w: %dx%d", ErrTooLarge, d.Width, d.Height)
	}
	return Header{
		Width:      d.Width,
		Height:     d.Height,
		Channels:   d.Channels,
		Colorspace: d.Colorspace,
	}, nil
}

func decode(r io.Reader, trace func(state)) (*Image, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	d := &decoder{
		r:     br,
		st:    newState(),
		trace: trace,
	}
	size := int(h.Width) * int(h.Height) * int(h.Channels)
	pix, err := d.decodePixels(size, int(h.Channels))
	if err != nil {
		return nil, err
	}
	var end [8]byte
	if _, err := io.ReadFull(br, end[:]); err != nil {
		return nil, truncated(err)
	}
	if end != trailer {
		return nil, fmt.Errorf("%w: % x", ErrBadTrailer, end[:])
	}
	return &Image{
		Width:    h.Width,
		Height:   h.Height,
		Channels: h.Channels,
		Pix:      pix,
	}, nil
}

type decoder struct {
	r  *bufio.Reader
	st *state

	trace func(state)
	err   error
}

func (d *decoder) read8() byte {
	if d.err != nil {
		return 0
	}
	var b byte
	b, d.err = d.r.ReadByte()
	return b
}

// initialPix caps the buffer allocated before any chunk is read, so a
// header alone cannot force a large allocation.
const initialPix = 1 << 20

// decodePixels returns size bytes of decoded pixels. The buffer grows as
// chunks arrive.
func (d *decoder) decodePixels(size, channels int) ([]byte, error) {
	pix := make([]byte, 0, min(size, initialPix))
	p := &d.st.Prev
	for len(pix) < size {
		b1 := d.read8()
		if d.err != nil {
			return nil, truncated(d.err)
		}
		run := 1

		switch {
		case b1 == opRGB:
			p.R, p.G, p.B = d.read8(), d.read8(), d.read8()

		case b1 == opRGBA:
			p.R, p.G, p.B, p.A = d.read8(), d.read8(), d.read8(), d.read8()

		case b1&maskOp == opIndex:
			*p = d.st.Cache[b1&maskValue]

		case b1&maskOp == opDiff:
			dr, dg, db := unpackDiff(b1)
			p.R, p.G, p.B = add(p.R, dr), add(p.G, dg), add(p.B, db)

		case b1&maskOp == opLuma:
			dr, dg, db := unpackLuma(b1, d.read8())
			p.R, p.G, p.B = add(p.R, dr), add(p.G, dg), add(p.B, db)

		case b1&maskOp == opRun:
			v := b1 & maskValue
			if v >= 63 {
				return nil, fmt.Errorf("%w: payload %d", ErrBadRun, v)
			}
			run = int(v) + 1
		}
		if d.err != nil {
			return nil, truncated(d.err)
		}

		if len(pix)+run*channels > size {
			return nil, fmt.Errorf("%w: run of %d pixels at offset %d overflows image", ErrFormat, run, len(pix))
		}
		for j := 0; j < run; j++ {
			pix = append(pix, p.R, p.G, p.B)
			if channels == 4 {
				pix = append(pix, p.A)
			}
		}

		d.st.remember(*p)
		if d.trace != nil {
			d.trace(*d.st)
		}
	}
	return pix, nil
}

// truncated maps a premature end of input to ErrTruncated.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
