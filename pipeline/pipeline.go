// Package pipeline implements the image tools on top of the codec, corners,
// segments and exif packages.
//
// Each operation is split into steps run through jobs.RunContext, so a caller
// that attaches a jobs.Ticket to the context gets last-request-wins
// behaviour: a superseded operation returns jobs.ErrStale instead of a
// result.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/eliasnau/imagetools/codec"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/jobs"
	"github.com/eliasnau/imagetools/segments"
)

// DefaultConvertQuality is the quality used by Convert when none is given.
const DefaultConvertQuality = 85

// Input is an image handed to an operation.
type Input struct {
	// Name is the original file name. It is only used for reports and logs.
	Name string

	// MIME is the declared type. Empty or application/octet-stream makes the
	// pipeline sniff the content.
	MIME string

	Data []byte
}

// Type returns the effective MIME type of the input.
func (in Input) Type() string {
	return formats.Detect(in.Data, in.MIME)
}

// Result is the output of an operation.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int

	// FellBack is set when the segment walk failed and the image was
	// re-encoded instead.
	FellBack bool

	// Unchanged is set when Data is the input returned as is.
	Unchanged bool

	// Warning is a user facing note, e.g. a dropped transparency request.
	Warning string

	// Removed and Rewritten list the segments touched by Strip.
	Removed   []segments.Segment
	Rewritten []segments.Segment
}

// Size is the length of the output in bytes.
func (r *Result) Size() int {
	return len(r.Data)
}

// Delta is the size change between an input and its result.
type Delta struct {
	Bytes   int
	Percent float64
}

// SizeDelta compares an output size to the original size.
func SizeDelta(orig, result int) Delta {
	d := Delta{Bytes: result - orig}
	if orig > 0 {
		d.Percent = float64(d.Bytes) / float64(orig) * 100
	}
	return d
}

// String renders the delta as e.g. "+1.2 KB (+3.4%)". Shrinking deltas
// carry a minus sign, zero has none.
func (d Delta) String() string {
	return fmt.Sprintf("%s%.1f KB (%s%.1f%%)",
		plus(float64(d.Bytes)), float64(d.Bytes)/1024,
		plus(d.Percent), d.Percent)
}

func plus(v float64) string {
	if v > 0 {
		return "+"
	}
	return ""
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for fallback decisions and progress.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor runs the image tools. It holds no per-request state and is safe
// for concurrent use.
type Processor struct {
	logger *slog.Logger
}

// New creates a Processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// log returns the processor's logger tagged with the job id carried by ctx,
// or nil when logging is disabled.
func (p *Processor) log(ctx context.Context) *slog.Logger {
	if p.logger == nil {
		return nil
	}
	if t, ok := jobs.FromContext(ctx); ok {
		return p.logger.With("job", t.ID)
	}
	return p.logger
}

// encoded builds a Result from freshly encoded pixels.
func encoded(data []byte, mime string, img image.Image) *Result {
	b := img.Bounds()
	return &Result{
		Data:   data,
		MIME:   mime,
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}

// passthrough returns the input unchanged, with dimensions when they can be
// read.
func passthrough(in Input, mime string) *Result {
	res := &Result{Data: in.Data, MIME: mime, Unchanged: true}
	if cfg, _, err := codec.DecodeConfig(in.Data); err == nil {
		res.Width, res.Height = cfg.Width, cfg.Height
	}
	return res
}
