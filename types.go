// Package qok implements a lossless codec for RGB raster images. The stream
// is a 14 byte header, a sequence of differential and run-length chunks, and
// a fixed 8 byte trailer.
package qok

import (
	"errors"
	"fmt"
)

const (
	opIndex byte = 0x00 // 00xxxxxx
	opDiff  byte = 0x40 // 01xxxxxx
	opLuma  byte = 0x80 // 10xxxxxx
	opRun   byte = 0xc0 // 11xxxxxx
	opRGB   byte = 0xfe // 11111110
	opRGBA  byte = 0xff // 11111111

	maskOp    byte = 0xc0 // 11000000
	maskValue byte = 0x3f // 00111111
)

const (
	cacheSize = 64
	maxRun    = 62
)

// MaxPixels is the largest width*height accepted when reading an image.
const MaxPixels = 400_000_000

// Header is the fixed-layout record at the start of every stream.
type Header struct {
	Width, Height uint32
	Channels      uint8
	Colorspace    uint8
}

// desc is the wire form of Header. encoding/binary packs it without padding.
type desc struct {
	Magic                [4]byte
	Width, Height        uint32
	Channels, Colorspace uint8
}

// Pixel is a single RGBA value. Three channel images carry A implicitly.
type Pixel struct {
	R, G, B, A uint8
}

func (p Pixel) hash() uint8 {
	return (3*p.R + 5*p.G + 7*p.B + 11*p.A) % cacheSize
}

// Image is an uncompressed raster: Width*Height pixels of Channels
// interleaved bytes each, row-major, no padding.
type Image struct {
	Width, Height uint32
	Channels      uint8
	Pix           []byte
}

// NewImage allocates a zeroed image. It reports ErrUnsupported for channel
// counts other than 3 and 4.
func NewImage(width, height uint32, channels uint8) (*Image, error) {
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupported, channels)
	}
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, int(width)*int(height)*int(channels)),
	}, nil
}

func (img *Image) validate() error {
	if img.Channels != 3 && img.Channels != 4 {
		return fmt.Errorf("%w: %d channels", ErrUnsupported, img.Channels)
	}
	if want := uint64(img.Width) * uint64(img.Height) * uint64(img.Channels); uint64(len(img.Pix)) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidImage, len(img.Pix), want)
	}
	return nil
}

var (
	// Magic is the tag every stream starts with.
	Magic = string(magicBytes[:])

	magicBytes = [4]byte{'q', 'o', 'i', 'f'}
	trailer    = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
	start      = Pixel{0, 0, 0, 255}
)

var (
	// ErrFormat reports a malformed stream. All decode failures caused by
	// the input wrap it.
	ErrFormat = errors.New("invalid format")
	// ErrUnsupported reports an image the encoder cannot represent.
	ErrUnsupported = errors.New("unsupported configuration")
	// ErrInvalidImage reports an Image whose buffer does not match its
	// dimensions.
	ErrInvalidImage = errors.New("invalid image")

	ErrBadMagic    = fmt.Errorf("%w: bad magic value", ErrFormat)
	ErrBadTrailer  = fmt.Errorf("%w: bad trailer", ErrFormat)
	ErrBadRun      = fmt.Errorf("%w: bad run length", ErrFormat)
	ErrBadChannels = fmt.Errorf("%w: bad channels", ErrFormat)
	ErrTooLarge    = fmt.Errorf("%w: image too large", ErrFormat)
	ErrTruncated   = fmt.Errorf("%w: truncated stream", ErrFormat)
)
