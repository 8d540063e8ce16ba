package qok

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDecode(t *testing.T) {
	for _, test := range []struct {
		name string
		in   []byte
		want *Image
	}{
		{
			name: "single black pixel",
			in:   stream(1, 1, 0xc0),
			want: rgb(1, 1, 0, 0, 0),
		},
		{
			name: "diff wraps around",
			in:   stream(1, 1, 0x40|0<<4|2<<2|2),
			want: rgb(1, 1, 254, 0, 0),
		},
		{
			name: "luma wraps around",
			in:   stream(1, 1, 0x80|0, 0x88),
			want: rgb(1, 1, 224, 224, 224),
		},
		{
			name: "index",
			in:   stream(3, 1, 0xfe, 100, 0, 200, 0x7e, 25),
			want: rgb(3, 1, 100, 0, 200, 101, 1, 200, 100, 0, 200),
		},
		{
			name: "run repeats previous",
			in:   stream(4, 1, 0xfe, 9, 8, 7, 0xc0|2),
			want: rgb(4, 1, 9, 8, 7, 9, 8, 7, 9, 8, 7, 9, 8, 7),
		},
		{
			name: "trailing data ignored",
			in:   append(stream(1, 1, 0xc0), 0xde, 0xad),
			want: rgb(1, 1, 0, 0, 0),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Decode(bytes.NewReader(test.in))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func rgbaStream(width, height uint32, chunks ...byte) []byte {
	b := stream(width, height, chunks...)
	b[12] = 4
	return b
}

func TestDecodeFourChannels(t *testing.T) {
	for _, test := range []struct {
		name string
		in   []byte
		want []byte
	}{
		{
			name: "rgba literal",
			in:   rgbaStream(1, 1, 0xff, 1, 2, 3, 4),
			want: []byte{1, 2, 3, 4},
		},
		{
			name: "rgb literal keeps alpha",
			in:   rgbaStream(2, 1, 0xff, 1, 2, 3, 4, 0xfe, 5, 6, 7),
			want: []byte{1, 2, 3, 4, 5, 6, 7, 4},
		},
		{
			name: "initial alpha",
			in:   rgbaStream(1, 1, 0xc0),
			want: []byte{0, 0, 0, 255},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Decode(bytes.NewReader(test.in))
			if err != nil {
				t.Fatal(err)
			}
			if got.Channels != 4 {
				t.Errorf("got %d channels, want 4", got.Channels)
			}
			if diff := cmp.Diff(test.want, got.Pix); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	badMagic := stream(1, 1, 0xc0)
	badMagic[3] = 'g'
	badChannels := stream(1, 1, 0xc0)
	badChannels[12] = 5

	for _, test := range []struct {
		name string
		in   []byte
		want error
	}{
		{"bad magic", badMagic, ErrBadMagic},
		{"bad channels", badChannels, ErrBadChannels},
		{"too large", stream(1<<20, 1<<20), ErrTooLarge},
		{"empty", nil, ErrTruncated},
		{"short header", header(1, 1)[:9], ErrTruncated},
		{"no chunks", header(1, 1), ErrTruncated},
		{"short rgb", append(header(1, 1), 0xfe, 1), ErrTruncated},
		{"short luma", append(header(1, 1), 0x80), ErrTruncated},
		{"short trailer", append(header(1, 1), 0xc0, 0, 0, 0), ErrTruncated},
		{"run overflows image", stream(2, 1, 0xc0|2), ErrFormat},
		{"wrong trailer", append(header(1, 1), 0xc0, 1, 2, 3, 4, 5, 6, 7, 8), ErrBadTrailer},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(test.in))
			if !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("got %v, want it to wrap ErrFormat", err)
			}
		})
	}
}

func TestDecodeCorruptTrailer(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testImage(17, 9, 3)); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()
	for i := len(valid) - 8; i < len(valid); i++ {
		in := bytes.Clone(valid)
		in[i] ^= 0xff
		if _, err := Decode(bytes.NewReader(in)); !errors.Is(err, ErrBadTrailer) {
			t.Errorf("byte %d flipped: got %v, want ErrBadTrailer", i, err)
		}
	}
}

func TestDecodeHeader(t *testing.T) {
	got, err := DecodeHeader(bytes.NewReader(stream(640, 480)))
	if err != nil {
		t.Fatal(err)
	}
	want := Header{Width: 640, Height: 480, Channels: 3, Colorspace: 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, test := range []struct {
		name string
		img  *Image
	}{
		{"empty", rgb(0, 0)},
		{"single pixel", rgb(1, 1, 5, 5, 5)},
		{"white", solid(31, 7, 255)},
		{"black", solid(200, 3, 0)},
		{"mixed small", testImage(3, 5, 1)},
		{"mixed", testImage(64, 48, 2)},
		{"mixed tall", testImage(1, 1000, 3)},
		{"noise", noise(40, 40)},
	} {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, test.img); err != nil {
				t.Fatal(err)
			}
			got, err := Decode(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.img, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// After each chunk the decoder has the encoder's previous pixel and every
// pixel the encoder has cached. The decoder may additionally hold the start
// pixel after a leading run, in a slot the encoder has left empty.
func TestStateParity(t *testing.T) {
	images := []*Image{
		rgb(4, 1, 0, 0, 0, 200, 100, 50, 0, 0, 0, 0, 0, 0),
		solid(70, 1, 0),
	}
	for seed := int64(0); seed < 8; seed++ {
		images = append(images, testImage(37, 23, seed))
	}
	for i, img := range images {
		var enc, dec []state
		var buf bytes.Buffer
		if err := encode(&buf, img, func(s state) { enc = append(enc, s) }); err != nil {
			t.Fatal(err)
		}
		if _, err := decode(&buf, func(s state) { dec = append(dec, s) }); err != nil {
			t.Fatal(err)
		}
		if len(enc) == 0 || len(enc) != len(dec) {
			t.Fatalf("image %d: traced %d encoder and %d decoder chunks", i, len(enc), len(dec))
		}
		for k := range enc {
			if diff := cmp.Diff(enc[k].Prev, dec[k].Prev); diff != "" {
				t.Fatalf("image %d chunk %d: previous pixel mismatch (-encoder +decoder):\n%s", i, k, diff)
			}
			for slot, p := range enc[k].Cache {
				if p != (Pixel{}) && p != dec[k].Cache[slot] {
					t.Fatalf("image %d chunk %d slot %d: encoder has %v, decoder has %v", i, k, slot, p, dec[k].Cache[slot])
				}
			}
		}
	}
}

func TestDecodeLargeHeaderTruncated(t *testing.T) {
	// 20000x20000 is within the pixel limit; the missing chunks must be
	// detected without allocating the whole image.
	in := append(header(20000, 20000), 0xfe, 1, 2, 3)
	if _, err := Decode(bytes.NewReader(in)); !errors.Is(err, ErrTruncated) {
		t.Errorf("got %v, want ErrTruncated", err)
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add(uint8(1), []byte{0, 0, 0})
	f.Add(uint8(2), []byte{10, 10, 10, 8, 12, 9})
	f.Add(uint8(4), testImage(4, 4, 0).Pix)
	f.Fuzz(func(t *testing.T, width uint8, pix []byte) {
		w := int(width%32) + 1
		h := len(pix) / 3 / w
		img := rgb(uint32(w), uint32(h), pix[:w*h*3]...)

		var buf bytes.Buffer
		if err := Encode(&buf, img); err != nil {
			t.Fatal(err)
		}
		got, err := Decode(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(img, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func BenchmarkDecode(b *testing.B) {
	img := testImage(256, 256, 1)
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()
	b.SetBytes(int64(len(img.Pix)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

func solid(width, height uint32, v byte) *Image {
	return rgb(width, height, bytes.Repeat([]byte{v}, int(width*height*3))...)
}

func noise(width, height uint32) *Image {
	img := testImage(width, height, 0)
	for i := range img.Pix {
		img.Pix[i] = byte(i*131 + i*i*7)
	}
	return img
}
