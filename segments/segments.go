package segments

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every framing error returned from this package.
var ErrMalformed = errors.New("segments: malformed container")

// ParseError describes where and why a walk was aborted.
type ParseError struct {
	Format Format
	Offset int
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("segments: malformed %s at offset %d: %s", e.Format, e.Offset, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformed.
func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

func malformed(format Format, offset int, reason string) error {
	return &ParseError{Format: format, Offset: offset, Reason: reason}
}

// Segment describes one unit of container framing.
type Segment struct {
	// Name is the JPEG marker mnemonic (e.g. "APP1") or the PNG chunk type.
	Name string

	// Kind is the metadata classification, KindNone for ordinary segments.
	Kind Kind

	// Offset is the position of the segment's first byte in the input.
	Offset int

	// Size is the total number of bytes the segment occupies, framing included.
	Size int
}

// Result is the outcome of a successful Strip.
type Result struct {
	// Data is the filtered container. It never aliases the input.
	Data []byte

	// Removed lists segments omitted from Data.
	Removed []Segment

	// Rewritten lists EXIF segments whose payload was pruned in place.
	Rewritten []Segment
}

// RemovedBytes is the total size of the removed segments.
func (r *Result) RemovedBytes() int {
	n := 0
	for _, s := range r.Removed {
		n += s.Size
	}
	return n
}

// Changed reports whether the output differs from the input.
func (r *Result) Changed() bool {
	return len(r.Removed) > 0 || len(r.Rewritten) > 0
}

// EXIFRewriter prunes an EXIF payload according to p. It returns the new
// payload and keep=true, or keep=false when the segment should be removed.
// For JPEG the payload includes the "Exif\0\0" header; for PNG it is raw TIFF.
type EXIFRewriter func(payload []byte, p Policy) (out []byte, keep bool, err error)

// Option configures a Strip call.
type Option func(*options)

type options struct {
	exif EXIFRewriter
}

// WithEXIFRewriter installs the hook applied to EXIF segments when the policy
// touches EXIF tag groups. Without it EXIF segments are copied verbatim.
func WithEXIFRewriter(fn EXIFRewriter) Option {
	return func(o *options) {
		o.exif = fn
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Strip removes the segments selected by policy from a JPEG or PNG container.
func Strip(data []byte, format Format, policy Policy, opts ...Option) (*Result, error) {
	switch format {
	case FormatJPEG:
		return StripJPEG(data, policy, opts...)
	case FormatPNG:
		return StripPNG(data, policy, opts...)
	default:
		return nil, fmt.Errorf("segments: unsupported format %q", format)
	}
}

// List walks the container and returns its segments without filtering.
func List(data []byte, format Format) ([]Segment, error) {
	var out []Segment
	var err error
	switch format {
	case FormatJPEG:
		err = walkJPEG(data, func(s jpegSegment) error {
			out = append(out, s.describe())
			return nil
		})
	case FormatPNG:
		err = walkPNG(data, func(c pngChunk) error {
			out = append(out, c.describe())
			return nil
		})
	default:
		return nil, fmt.Errorf("segments: unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HasKind reports whether any segment in list is of kind k.
func HasKind(list []Segment, k Kind) bool {
	for _, s := range list {
		if s.Kind == k {
			return true
		}
	}
	return false
}
