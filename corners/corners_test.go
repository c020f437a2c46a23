package corners

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/internal/testimage"
)

func TestClampRadius(t *testing.T) {
	tests := []struct {
		r, w, h int
		want    int
	}{
		{32, 100, 100, 32},
		{64, 100, 40, 20},
		{-5, 100, 100, 0},
		{8, 1, 1, 0},
		{9, 19, 21, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampRadius(tt.r, tt.w, tt.h), "r=%d %dx%d", tt.r, tt.w, tt.h)
	}
}

func TestParseBackground(t *testing.T) {
	b, err := ParseBackground("")
	require.NoError(t, err)
	assert.Equal(t, BackgroundTransparent, b)

	b, err = ParseBackground(" White ")
	require.NoError(t, err)
	assert.Equal(t, BackgroundWhite, b)

	_, err = ParseBackground("magenta")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestRoundTransparent(t *testing.T) {
	src := testimage.Gradient(100, 40)
	res := Round(src, Options{Radius: 64, Background: BackgroundTransparent, MIME: formats.MIMEPNG})

	assert.Equal(t, 20, res.Radius)
	assert.Empty(t, res.Warning)
	assert.Equal(t, image.Rect(0, 0, 100, 40), res.Image.Bounds())

	for _, p := range []image.Point{{0, 0}, {99, 0}, {0, 39}, {99, 39}} {
		assert.Equal(t, uint8(0), res.Image.NRGBAAt(p.X, p.Y).A, "corner %v", p)
	}
	assert.Equal(t, src.NRGBAAt(50, 20), res.Image.NRGBAAt(50, 20))
	assert.Equal(t, uint8(255), res.Image.NRGBAAt(50, 0).A)
	// Where two arcs meet the flattened curves leave the pixel partly covered.
	assert.GreaterOrEqual(t, res.Image.NRGBAAt(0, 20).A, uint8(0xE0))
}

func TestRoundStraightEdgesOpaque(t *testing.T) {
	res := Round(testimage.Gradient(100, 100), Options{Radius: 20, MIME: formats.MIMEPNG})

	for _, p := range []image.Point{{0, 50}, {99, 50}, {50, 0}, {50, 99}} {
		assert.Equal(t, uint8(255), res.Image.NRGBAAt(p.X, p.Y).A, "edge %v", p)
	}
}

func TestRoundAlphaWarning(t *testing.T) {
	res := Round(testimage.Gradient(50, 50), Options{Radius: 16, MIME: formats.MIMEJPEG})

	assert.Equal(t, BackgroundWhite, res.Background)
	assert.Equal(t, "JPEG does not support transparency. Using white background. For transparency use PNG or WebP.", res.Warning)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, res.Image.NRGBAAt(0, 0))
}

func TestRoundBlackBackground(t *testing.T) {
	res := Round(testimage.Gradient(50, 50), Options{Radius: 16, Background: BackgroundBlack, MIME: formats.MIMEWebP})
	assert.Empty(t, res.Warning)
	assert.Equal(t, color.NRGBA{A: 255}, res.Image.NRGBAAt(49, 49))
}

func TestRoundZeroRadiusCopies(t *testing.T) {
	src := testimage.Gradient(30, 20)
	res := Round(src, Options{Radius: 0})
	assert.Equal(t, src.Pix, res.Image.Pix)
}

func TestRoundSubImage(t *testing.T) {
	full := testimage.Gradient(40, 40)
	sub := full.SubImage(image.Rect(10, 10, 30, 30))

	res := Round(sub, Options{Radius: 4})
	assert.Equal(t, image.Rect(0, 0, 20, 20), res.Image.Bounds())
	assert.Equal(t, full.NRGBAAt(20, 20), res.Image.NRGBAAt(10, 10))
}

func TestMaskIsSymmetric(t *testing.T) {
	m := Mask(64, 48, 16)
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			a := float64(m.AlphaAt(x, y).A)
			require.InDelta(t, a, float64(m.AlphaAt(63-x, y).A), 2, "(%d,%d)", x, y)
			require.InDelta(t, a, float64(m.AlphaAt(x, 47-y).A), 2, "(%d,%d)", x, y)
		}
	}
	assert.Equal(t, uint8(0), m.AlphaAt(0, 0).A)
	assert.Equal(t, uint8(255), m.AlphaAt(32, 24).A)
}
