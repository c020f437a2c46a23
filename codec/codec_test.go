package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/internal/testimage"
)

func TestDecode(t *testing.T) {
	img, mime, err := Decode(testimage.JPEG(12, 8))
	require.NoError(t, err)
	assert.Equal(t, formats.MIMEJPEG, mime)
	assert.Equal(t, image.Rect(0, 0, 12, 8), img.Bounds())

	cfg, mime, err := DecodeConfig(testimage.PNG(5, 7))
	require.NoError(t, err)
	assert.Equal(t, formats.MIMEPNG, mime)
	assert.Equal(t, 5, cfg.Width)
	assert.Equal(t, 7, cfg.Height)

	_, _, err = Decode([]byte("definitely not an image"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeDecodeFailed, errors.GetCode(err))
}

func TestEncodeRoundTrip(t *testing.T) {
	src := testimage.Gradient(20, 10)

	for _, mime := range []string{formats.MIMEPNG, formats.MIMEJPEG, formats.MIMEGIF, formats.MIMEBMP, formats.MIMETIFF, formats.MIMEICO} {
		t.Run(mime, func(t *testing.T) {
			require.True(t, CanEncode(mime))

			data, err := EncodeBytes(src, mime, 0)
			require.NoError(t, err)

			img, got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, mime, got)
			assert.Equal(t, 20, img.Bounds().Dx())
			assert.Equal(t, 10, img.Bounds().Dy())
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	for _, mime := range []string{formats.MIMEWebP, formats.MIMEAVIF, "image/heic"} {
		assert.False(t, CanEncode(mime))

		var buf bytes.Buffer
		err := Encode(&buf, testimage.Gradient(2, 2), mime, 80)
		require.Error(t, err)
		assert.Equal(t, errors.CodeUnsupported, errors.GetCode(err))
		assert.Zero(t, buf.Len())
	}
}

func TestEncodeJPEGQuality(t *testing.T) {
	src := testimage.Gradient(64, 64)
	low, err := EncodeBytes(src, formats.MIMEJPEG, 10)
	require.NoError(t, err)
	high, err := EncodeBytes(src, formats.MIMEJPEG, 100)
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))

	clamped, err := EncodeBytes(src, formats.MIMEJPEG, 500)
	require.NoError(t, err)
	assert.Equal(t, high, clamped)
}

func TestEncodeICOScalesDown(t *testing.T) {
	data, err := EncodeBytes(testimage.Gradient(512, 300), formats.MIMEICO, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 1, 0, 1, 0}, data[:6])
	assert.Equal(t, byte(0), data[6], "256 is stored as zero")
	assert.Equal(t, byte(150), data[7])

	cfg, mime, err := DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, formats.MIMEICO, mime)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 150, cfg.Height)
}

// bitmapICO builds a single-entry icon holding a bottom-up BMP with an AND mask.
func bitmapICO(w, h, bpp int, pixels, mask []byte) []byte {
	le := binary.LittleEndian
	var body []byte
	body = le.AppendUint32(body, 40)
	body = le.AppendUint32(body, uint32(w))
	body = le.AppendUint32(body, uint32(2*h))
	body = le.AppendUint16(body, 1)
	body = le.AppendUint16(body, uint16(bpp))
	body = append(body, make([]byte, 24)...)
	body = append(body, pixels...)
	body = append(body, mask...)

	out := []byte{0, 0, 1, 0, 1, 0, byte(w), byte(h), 0, 0}
	out = le.AppendUint16(out, 1)
	out = le.AppendUint16(out, uint16(bpp))
	out = le.AppendUint32(out, uint32(len(body)))
	out = le.AppendUint32(out, 22)
	return append(out, body...)
}

func TestDecodeICOBitmap(t *testing.T) {
	t.Run("24-bit with mask", func(t *testing.T) {
		pixels := []byte{
			0xFF, 0x00, 0x00, 0x00, 0xFF, 0x00, 0, 0, // bottom row: blue, green
			0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0, 0, // top row: red, white
		}
		mask := []byte{
			0x00, 0, 0, 0,
			0x40, 0, 0, 0, // top row, x=1 transparent
		}
		data := bitmapICO(2, 2, 24, pixels, mask)

		cfg, mime, err := DecodeConfig(data)
		require.NoError(t, err)
		assert.Equal(t, formats.MIMEICO, mime)
		assert.Equal(t, 2, cfg.Width)
		assert.Equal(t, 2, cfg.Height)

		img, _, err := Decode(data)
		require.NoError(t, err)
		nrgba, ok := img.(*image.NRGBA)
		require.True(t, ok)
		assert.Equal(t, color.NRGBA{R: 255, A: 255}, nrgba.NRGBAAt(0, 0))
		assert.Equal(t, uint8(0), nrgba.NRGBAAt(1, 0).A)
		assert.Equal(t, color.NRGBA{B: 255, A: 255}, nrgba.NRGBAAt(0, 1))
		assert.Equal(t, color.NRGBA{G: 255, A: 255}, nrgba.NRGBAAt(1, 1))
	})

	t.Run("32-bit alpha", func(t *testing.T) {
		pixels := []byte{0x00, 0x00, 0xFF, 0x80, 0xFF, 0x00, 0x00, 0xFF}
		data := bitmapICO(2, 1, 32, pixels, []byte{0, 0, 0, 0})

		img, _, err := Decode(data)
		require.NoError(t, err)
		nrgba := img.(*image.NRGBA)
		assert.Equal(t, color.NRGBA{R: 255, A: 0x80}, nrgba.NRGBAAt(0, 0))
		assert.Equal(t, color.NRGBA{B: 255, A: 255}, nrgba.NRGBAAt(1, 0))
	})

	t.Run("unsupported depth", func(t *testing.T) {
		_, _, err := Decode(bitmapICO(8, 1, 4, make([]byte, 4), make([]byte, 4)))
		assert.Equal(t, errors.CodeDecodeFailed, errors.GetCode(err))
	})
}

func TestReencode(t *testing.T) {
	tagged := testimage.InsertAfterSOI(testimage.JPEG(16, 16), testimage.XMPSegment("<x:xmpmeta/>"))

	out, err := Reencode(tagged, formats.MIMEJPEG, DefaultQuality)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(out, []byte("xmpmeta")))

	img, _, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	_, err = Reencode(tagged, formats.MIMEWebP, 80)
	assert.Equal(t, errors.CodeUnsupported, errors.GetCode(err))

	_, err = Reencode([]byte{0xFF, 0xD8, 0xFF}, formats.MIMEJPEG, 80)
	assert.Equal(t, errors.CodeDecodeFailed, errors.GetCode(err))
}

func TestFlatten(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 12, 11))
	src.SetNRGBA(10, 10, color.NRGBA{R: 255, A: 255})
	// (11,10) stays fully transparent.

	out := Flatten(src, color.White)
	assert.Equal(t, image.Rect(0, 0, 2, 1), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(1, 0))
	assert.False(t, HasAlpha(out))
	assert.True(t, HasAlpha(src))
}
