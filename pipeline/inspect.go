package pipeline

import (
	"context"
	"fmt"

	"github.com/eliasnau/imagetools/codec"
	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/exif"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/jobs"
)

// Approx estimates how many bytes of a file are metadata by re-encoding the
// pixels alone. Re-encoding also changes compression, so it is only a hint.
type Approx struct {
	Bytes   int
	Percent float64
}

// String renders the estimate as e.g. "1.23 KB (4.56%)".
func (a Approx) String() string {
	return fmt.Sprintf("%.2f KB (%.2f%%)", float64(a.Bytes)/1024, a.Percent)
}

// Inspect reads the metadata of an image. The approximation is nil when the
// image cannot be re-encoded or the re-encode is not smaller.
func (p *Processor) Inspect(ctx context.Context, in Input) (*exif.Report, *Approx, error) {
	if len(in.Data) == 0 {
		return nil, nil, errors.New(errors.CodeInvalidInput, "empty image").WithOp("pipeline.Inspect")
	}
	mime := in.Type()
	src := exif.Source{Name: in.Name, MIME: mime, Data: in.Data}

	var (
		report *exif.Report
		approx *Approx
	)
	err := jobs.RunContext(ctx,
		func(ctx context.Context) error {
			cfg, _, err := codec.DecodeConfig(in.Data)
			if err != nil {
				if logger := p.log(ctx); logger != nil {
					logger.DebugContext(ctx, "cannot read dimensions", "name", in.Name, "mime", mime, "error", err)
				}
				return nil
			}
			src.Width, src.Height = cfg.Width, cfg.Height
			return nil
		},
		func(context.Context) (err error) {
			report, err = exif.Inspect(src)
			return err
		},
		func(ctx context.Context) error {
			approx = p.approximate(ctx, in, mime)
			return nil
		},
	)
	if err != nil {
		return nil, nil, err
	}
	return report, approx, nil
}

func (p *Processor) approximate(ctx context.Context, in Input, mime string) *Approx {
	target := mime
	if !codec.CanEncode(target) {
		target = formats.MIMEPNG
	}
	quality := 0
	if formats.IsLossy(target) {
		quality = codec.DefaultQuality
	}
	out, err := codec.Reencode(in.Data, target, quality)
	if err != nil {
		if logger := p.log(ctx); logger != nil {
			logger.DebugContext(ctx, "skipping metadata size estimate", "name", in.Name, "error", err)
		}
		return nil
	}
	diff := len(in.Data) - len(out)
	if diff <= 0 {
		return nil
	}
	return &Approx{
		Bytes:   diff,
		Percent: float64(diff) / float64(len(in.Data)) * 100,
	}
}
