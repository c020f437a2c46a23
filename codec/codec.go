// Package codec turns encoded images into pixels and back. It is the only
// place that knows which formats have a decoder or an encoder.
package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
)

// DefaultQuality is used for lossy output when no quality is given.
const DefaultQuality = 92

// decoderMIME maps the names registered with the image package to MIME types.
var decoderMIME = map[string]string{
	"jpeg": formats.MIMEJPEG,
	"png":  formats.MIMEPNG,
	"gif":  formats.MIMEGIF,
	"bmp":  formats.MIMEBMP,
	"tiff": formats.MIMETIFF,
	"webp": formats.MIMEWebP,
	"ico":  formats.MIMEICO,
}

// Decode decodes data into pixels and reports the MIME type of the decoder
// that accepted it.
func Decode(data []byte) (image.Image, string, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeDecodeFailed, "failed to decode image")
	}
	return img, decoderMIME[name], nil
}

// DecodeConfig reads the dimensions and MIME type of data without decoding
// the pixels.
func DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", errors.Wrap(err, errors.CodeDecodeFailed, "failed to read image header")
	}
	return cfg, decoderMIME[name], nil
}

// CanEncode reports whether Encode supports mime.
func CanEncode(mime string) bool {
	switch formats.Normalize(mime) {
	case formats.MIMEPNG, formats.MIMEJPEG, formats.MIMEGIF, formats.MIMEBMP, formats.MIMETIFF, formats.MIMEICO:
		return true
	}
	return false
}

// Encode writes img to w as mime. quality applies to lossy formats and is
// clamped to 1..100; zero selects DefaultQuality. Formats without an alpha
// channel are composited onto white first.
func Encode(w io.Writer, img image.Image, mime string, quality int) error {
	mime = formats.Normalize(mime)

	var err error
	switch mime {
	case formats.MIMEPNG:
		err = png.Encode(w, img)
	case formats.MIMEJPEG:
		err = jpeg.Encode(w, Flatten(img, color.White), &jpeg.Options{Quality: clampQuality(quality)})
	case formats.MIMEGIF:
		err = gif.Encode(w, img, nil)
	case formats.MIMEBMP:
		err = bmp.Encode(w, img)
	case formats.MIMETIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case formats.MIMEICO:
		err = encodeICO(w, img)
	default:
		return errors.Newf(errors.CodeUnsupported, "%s is not supported by this encoder", formats.FormatName(mime)).
			WithOp("codec.Encode").
			WithContext("mime", mime)
	}
	if err != nil {
		return errors.WrapWithContext(err, errors.CodeEncodeFailed, "failed to encode image", map[string]interface{}{
			"mime": mime,
		})
	}
	return nil
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(img image.Image, mime string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, mime, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reencode decodes data and encodes the pixels again as mime. Everything but
// the pixels is lost.
func Reencode(data []byte, mime string, quality int) ([]byte, error) {
	if !CanEncode(mime) {
		return nil, errors.Newf(errors.CodeUnsupported, "%s is not supported by this encoder", formats.FormatName(mime)).
			WithOp("codec.Reencode")
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeBytes(img, mime, quality)
}

// Flatten composites img over an opaque background.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// HasAlpha reports whether any pixel of img is not fully opaque.
func HasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xFFFF {
				return true
			}
		}
	}
	return false
}

func clampQuality(q int) int {
	switch {
	case q == 0:
		return DefaultQuality
	case q < 1:
		return 1
	case q > 100:
		return 100
	default:
		return q
	}
}
