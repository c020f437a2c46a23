package pipeline

import (
	"context"
	stderrors "errors"

	"github.com/eliasnau/imagetools/codec"
	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/exif"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/jobs"
	"github.com/eliasnau/imagetools/segments"
)

// StripOptions controls Strip.
type StripOptions struct {
	// Policy selects the metadata categories to remove.
	Policy segments.Policy

	// StripAll re-encodes the pixels and drops every non-pixel segment.
	StripAll bool

	// Strict fails with CodeMalformed instead of re-encoding when the
	// container cannot be walked.
	Strict bool

	// FallbackQuality is used for lossy re-encodes, 0 means
	// codec.DefaultQuality.
	FallbackQuality int
}

// Strip removes metadata from an image.
//
// JPEG and PNG inputs are filtered segment by segment so the pixel data is
// copied bit for bit. Other formats are re-encoded (WebP and HEIC/HEIF/AVIF
// as PNG) or returned unchanged.
func (p *Processor) Strip(ctx context.Context, in Input, opts StripOptions) (*Result, error) {
	if len(in.Data) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "empty image").WithOp("pipeline.Strip")
	}
	mime := in.Type()
	quality := opts.FallbackQuality
	if quality == 0 {
		quality = codec.DefaultQuality
	}

	if opts.StripAll {
		target := mime
		if !codec.CanEncode(target) {
			target = formats.MIMEPNG
		}
		return p.reencode(ctx, in, target, quality)
	}
	if opts.Policy.Empty() {
		return passthrough(in, mime), nil
	}

	if format, ok := segments.FormatForMIME(mime); ok {
		return p.stripSegments(ctx, in, mime, format, opts, quality)
	}

	switch mime {
	case formats.MIMEWebP, formats.MIMEHEIC, formats.MIMEHEIF, formats.MIMEAVIF:
		return p.reencode(ctx, in, formats.MIMEPNG, quality)
	default:
		if logger := p.log(ctx); logger != nil {
			logger.InfoContext(ctx, "metadata removal not supported, returning original",
				"name", in.Name, "mime", mime)
		}
		return passthrough(in, mime), nil
	}
}

func (p *Processor) stripSegments(ctx context.Context, in Input, mime string, format segments.Format, opts StripOptions, quality int) (*Result, error) {
	var stripped *segments.Result
	err := jobs.RunContext(ctx, func(ctx context.Context) (err error) {
		stripped, err = segments.Strip(in.Data, format, opts.Policy,
			segments.WithEXIFRewriter(p.redactor(ctx, in.Name)))
		return err
	})
	switch {
	case err == nil:
	case stderrors.Is(err, segments.ErrMalformed):
		attrs := []any{"name", in.Name, "mime", mime, "error", err}
		var perr *segments.ParseError
		if stderrors.As(err, &perr) {
			attrs = append(attrs, "offset", perr.Offset)
		}
		if opts.Strict {
			return nil, errors.WrapWithContext(err, errors.CodeMalformed, "cannot remove metadata from malformed image",
				map[string]interface{}{"name": in.Name, "mime": mime})
		}
		if logger := p.log(ctx); logger != nil {
			logger.WarnContext(ctx, "malformed container, falling back to re-encode", attrs...)
		}
		res, rerr := p.reencode(ctx, in, mime, quality)
		if rerr != nil {
			return nil, rerr
		}
		res.FellBack = true
		return res, nil
	default:
		return nil, err
	}

	res := passthrough(Input{Data: stripped.Data}, mime)
	res.Unchanged = !stripped.Changed()
	res.Removed = stripped.Removed
	res.Rewritten = stripped.Rewritten

	if logger := p.log(ctx); logger != nil {
		logger.DebugContext(ctx, "stripped metadata",
			"name", in.Name,
			"policy", opts.Policy.String(),
			"removed", len(stripped.Removed),
			"rewritten", len(stripped.Rewritten),
			"bytes", stripped.RemovedBytes())
	}
	return res, nil
}

// redactor adapts exif.Redact to the segment walk. An EXIF block that cannot
// be parsed is dropped rather than failing the whole strip.
func (p *Processor) redactor(ctx context.Context, name string) segments.EXIFRewriter {
	return func(payload []byte, pol segments.Policy) ([]byte, bool, error) {
		out, keep, err := exif.Redact(payload, pol)
		if err != nil {
			if logger := p.log(ctx); logger != nil {
				logger.WarnContext(ctx, "dropping unreadable EXIF block",
					"name", name, "size", len(payload), "error", err)
			}
			return nil, false, nil
		}
		return out, keep, nil
	}
}

// reencode decodes the input and encodes the pixels as mime.
func (p *Processor) reencode(ctx context.Context, in Input, mime string, quality int) (*Result, error) {
	if !formats.IsLossy(mime) {
		quality = 0
	}
	var res *Result
	err := jobs.RunContext(ctx, func(context.Context) error {
		img, _, err := codec.Decode(in.Data)
		if err != nil {
			return err
		}
		out, err := codec.EncodeBytes(img, mime, quality)
		if err != nil {
			return err
		}
		res = encoded(out, mime, img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if logger := p.log(ctx); logger != nil {
		logger.DebugContext(ctx, "re-encoded image",
			"name", in.Name, "mime", mime, "size", len(res.Data))
	}
	return res, nil
}
