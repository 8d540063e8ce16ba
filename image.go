package qok

import (
	"image"
	"image/color"
	"io"
)

// init registers the format with the image package. The magic is shared
// with QOI, so in a program that imports this package image.Decode routes
// every stream starting with "qoif" here, including QOI files this decoder
// does not understand.
func init() {
	image.RegisterFormat("qok", Magic, DecodeImage, DecodeConfig)
}

// DecodeImage decodes a stream into an *image.NRGBA. Three channel streams
// decode as opaque.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return img.NRGBA(), nil
}

// DecodeConfig returns the dimensions declared in the header.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

// NRGBA converts img to the standard library representation.
func (img *Image) NRGBA() *image.NRGBA {
	w, h, ch := int(img.Width), int(img.Height), int(img.Channels)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+ch <= len(img.Pix) && j < len(out.Pix); i, j = i+ch, j+4 {
		out.Pix[j], out.Pix[j+1], out.Pix[j+2], out.Pix[j+3] = img.Pix[i], img.Pix[i+1], img.Pix[i+2], 255
		if ch == 4 {
			out.Pix[j+3] = img.Pix[i+3]
		}
	}
	return out
}

// FromImage flattens any image.Image into a 3 channel Image. Alpha is
// dropped after conversion to non-premultiplied color.
func FromImage(m image.Image) *Image {
	b := m.Bounds()
	img := &Image{
		Width:    uint32(b.Dx()),
		Height:   uint32(b.Dy()),
		Channels: 3,
		Pix:      make([]byte, 0, b.Dx()*b.Dy()*3),
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			img.Pix = append(img.Pix, c.R, c.G, c.B)
		}
	}
	return img
}
