// Package corners renders images with anti-aliased rounded corners.
package corners

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
)

// DefaultRadius is the radius used when none is requested.
const DefaultRadius = 32

// PresetRadii are the radii offered as one-click choices.
var PresetRadii = []int{8, 16, 24, 32, 48, 64}

// kappa places cubic Bézier control points so that four curves approximate a
// circle.
const kappa = 0.5522847498

// Background fills the area outside the rounded shape.
type Background string

const (
	BackgroundTransparent Background = "transparent"
	BackgroundWhite       Background = "white"
	BackgroundBlack       Background = "black"
)

// ParseBackground resolves a background name; the empty string is transparent.
func ParseBackground(s string) (Background, error) {
	switch b := Background(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackgroundTransparent, nil
	case BackgroundTransparent, BackgroundWhite, BackgroundBlack:
		return b, nil
	default:
		return "", errors.Newf(errors.CodeInvalidInput, "unknown background %q", s).
			WithContext("allowed", "transparent,white,black")
	}
}

// Color returns the fill color, or false for a transparent background.
func (b Background) Color() (color.Color, bool) {
	switch b {
	case BackgroundWhite:
		return color.White, true
	case BackgroundBlack:
		return color.Black, true
	default:
		return nil, false
	}
}

// Options controls Round.
type Options struct {
	// Radius in pixels. It is clamped to [0, MaxRadius].
	Radius int

	Background Background

	// MIME is the intended output format. A transparent background is
	// replaced by white when the format has no alpha channel. Empty means
	// no constraint.
	MIME string
}

// Result is a rendered image.
type Result struct {
	Image *image.NRGBA

	// Radius is the radius actually applied after clamping.
	Radius int

	// Background is the background actually used.
	Background Background

	// Warning is set when the requested background could not be honored.
	Warning string
}

// MaxRadius is the largest useful radius for a w×h image.
func MaxRadius(w, h int) int {
	return min(w, h) / 2
}

// ClampRadius limits r to [0, MaxRadius(w, h)].
func ClampRadius(r, w, h int) int {
	return max(0, min(r, MaxRadius(w, h)))
}

// AlphaWarning is the message shown when mime cannot carry transparency.
func AlphaWarning(mime string) string {
	return fmt.Sprintf("%s does not support transparency. Using white background. For transparency use PNG or WebP.", formats.FormatName(mime))
}

// Round draws src clipped to a rounded rectangle over the chosen background.
func Round(src image.Image, opts Options) *Result {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	res := &Result{
		Radius:     ClampRadius(opts.Radius, w, h),
		Background: opts.Background,
	}
	if res.Background == "" {
		res.Background = BackgroundTransparent
	}
	if res.Background == BackgroundTransparent && opts.MIME != "" && !formats.SupportsAlpha(opts.MIME) {
		res.Background = BackgroundWhite
		res.Warning = AlphaWarning(opts.MIME)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if bg, ok := res.Background.Color(); ok {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	if res.Radius == 0 {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.DrawMask(dst, dst.Bounds(), src, b.Min, Mask(w, h, res.Radius), image.Point{}, draw.Over)
	}

	res.Image = dst
	return res
}

// Mask rasterizes a w×h rounded rectangle with corner radius r.
func Mask(w, h, r int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return mask
	}

	fw, fh, fr := float32(w), float32(h), float32(r)
	k := float32(kappa) * fr

	z := vector.NewRasterizer(w, h)
	z.MoveTo(fr, 0)
	z.LineTo(fw-fr, 0)
	z.CubeTo(fw-fr+k, 0, fw, fr-k, fw, fr)
	z.LineTo(fw, fh-fr)
	z.CubeTo(fw, fh-fr+k, fw-fr+k, fh, fw-fr, fh)
	z.LineTo(fr, fh)
	z.CubeTo(fr-k, fh, 0, fh-fr+k, 0, fh-fr)
	z.LineTo(0, fr)
	z.CubeTo(0, fr-k, fr-k, 0, fr, 0)
	z.ClosePath()
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}
