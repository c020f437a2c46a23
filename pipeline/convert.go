package pipeline

import (
	"context"
	"image"

	"github.com/eliasnau/imagetools/codec"
	"github.com/eliasnau/imagetools/corners"
	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/jobs"
)

// ConvertOptions controls Convert.
type ConvertOptions struct {
	// MIME is the target format. Required.
	MIME string

	// Quality in 1..100 for lossy targets, 0 means DefaultConvertQuality.
	// It is ignored for lossless targets.
	Quality int
}

// RoundOptions controls RoundCorners.
type RoundOptions struct {
	// Radius in pixels, clamped to half the shorter side.
	Radius int

	Background corners.Background

	// MIME is the target format. Empty keeps the input format when it can be
	// encoded and falls back to PNG otherwise.
	MIME string

	// Quality for lossy targets, 0 means codec.DefaultQuality.
	Quality int
}

// Convert re-encodes an image in another format.
func (p *Processor) Convert(ctx context.Context, in Input, opts ConvertOptions) (*Result, error) {
	target := formats.Normalize(opts.MIME)
	if target == "" {
		return nil, errors.New(errors.CodeInvalidInput, "no output format given").WithOp("pipeline.Convert")
	}
	quality, err := lossyQuality(target, opts.Quality, DefaultConvertQuality)
	if err != nil {
		return nil, err
	}

	var (
		img image.Image
		out []byte
	)
	err = jobs.RunContext(ctx,
		func(context.Context) (err error) {
			img, _, err = codec.Decode(in.Data)
			return err
		},
		func(context.Context) (err error) {
			out, err = codec.EncodeBytes(img, target, quality)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	if logger := p.log(ctx); logger != nil {
		logger.DebugContext(ctx, "converted image",
			"name", in.Name,
			"from", in.Type(),
			"to", target,
			"quality", quality,
			"delta", SizeDelta(len(in.Data), len(out)).String())
	}
	return encoded(out, target, img), nil
}

// RoundCorners renders the image with rounded corners.
func (p *Processor) RoundCorners(ctx context.Context, in Input, opts RoundOptions) (*Result, error) {
	target := formats.Normalize(opts.MIME)
	if target == "" {
		target = in.Type()
		if !codec.CanEncode(target) {
			target = formats.MIMEPNG
		}
	}
	quality, err := lossyQuality(target, opts.Quality, codec.DefaultQuality)
	if err != nil {
		return nil, err
	}

	var (
		img     image.Image
		rounded *corners.Result
		out     []byte
	)
	err = jobs.RunContext(ctx,
		func(context.Context) (err error) {
			img, _, err = codec.Decode(in.Data)
			return err
		},
		func(context.Context) error {
			rounded = corners.Round(img, corners.Options{
				Radius:     opts.Radius,
				Background: opts.Background,
				MIME:       target,
			})
			return nil
		},
		func(context.Context) (err error) {
			out, err = codec.EncodeBytes(rounded.Image, target, quality)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	if logger := p.log(ctx); logger != nil {
		logger.DebugContext(ctx, "rounded corners",
			"name", in.Name,
			"radius", rounded.Radius,
			"background", string(rounded.Background),
			"mime", target)
		if rounded.Warning != "" {
			logger.WarnContext(ctx, rounded.Warning, "name", in.Name, "mime", target)
		}
	}

	res := encoded(out, target, rounded.Image)
	res.Warning = rounded.Warning
	return res, nil
}

// lossyQuality validates q for mime. Lossless formats always get 0.
func lossyQuality(mime string, q, def int) (int, error) {
	if q < 0 || q > 100 {
		return 0, errors.Newf(errors.CodeInvalidInput, "quality %d out of range 1..100", q).
			WithOp("pipeline")
	}
	if !formats.IsLossy(mime) {
		return 0, nil
	}
	if q == 0 {
		return def, nil
	}
	return q, nil
}
