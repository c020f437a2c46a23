package segments

import (
	"encoding/binary"
	"fmt"
)

// maxJPEGPayload is the largest payload a 16-bit length field can frame.
const maxJPEGPayload = 0xFFFF - 2

// jpegSegment is one framed unit of a JPEG stream. start and end delimit the
// raw bytes in the input, fill bytes included, so that copying every segment
// in order reproduces the input exactly.
type jpegSegment struct {
	marker  byte
	start   int
	end     int
	payload []byte // nil for standalone markers and the scan tail
	kind    Kind
}

func (s jpegSegment) describe() Segment {
	return Segment{
		Name:   markerName(s.marker),
		Kind:   s.kind,
		Offset: s.start,
		Size:   s.end - s.start,
	}
}

func isStandalone(m byte) bool {
	return m == markerTEM || m == markerSOI || (m >= markerRST0 && m <= markerRST7)
}

// walkJPEG visits every segment after SOI up to and including start-of-scan.
// The scan segment spans to the end of the buffer; entropy-coded data is never
// parsed. The SOI marker itself is validated but not visited.
func walkJPEG(data []byte, visit func(jpegSegment) error) error {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return malformed(FormatJPEG, 0, "missing start-of-image marker")
	}

	offset := 2
	for {
		if offset >= len(data) {
			return malformed(FormatJPEG, offset, "stream ended before start-of-scan")
		}
		if data[offset] != 0xFF {
			return malformed(FormatJPEG, offset, fmt.Sprintf("expected marker, found 0x%02X", data[offset]))
		}

		start := offset
		// Any number of 0xFF fill bytes may precede a marker code.
		for offset+1 < len(data) && data[offset+1] == 0xFF {
			offset++
		}
		if offset+1 >= len(data) {
			return malformed(FormatJPEG, start, "truncated marker")
		}
		marker := data[offset+1]
		offset += 2

		switch {
		case marker == 0x00:
			return malformed(FormatJPEG, start, "stuffed zero byte where a marker was expected")

		case marker == markerEOI:
			// An image without a scan; keep whatever trails it.
			return visit(jpegSegment{marker: marker, start: start, end: len(data)})

		case isStandalone(marker):
			if err := visit(jpegSegment{marker: marker, start: start, end: offset}); err != nil {
				return err
			}
			continue
		}

		if offset+2 > len(data) {
			return malformed(FormatJPEG, start, fmt.Sprintf("truncated length field for %s", markerName(marker)))
		}
		length := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		if length < 2 {
			return malformed(FormatJPEG, start, fmt.Sprintf("invalid length %d for %s", length, markerName(marker)))
		}
		end := offset + length
		if end > len(data) {
			return malformed(FormatJPEG, start, fmt.Sprintf("%s segment of length %d runs past end of stream", markerName(marker), length))
		}

		if marker == markerSOS {
			// The scan header is framed; everything after it is copied as-is.
			return visit(jpegSegment{marker: marker, start: start, end: len(data)})
		}

		payload := data[offset+2 : end]
		seg := jpegSegment{
			marker:  marker,
			start:   start,
			end:     end,
			payload: payload,
			kind:    classifyJPEG(marker, payload),
		}
		if err := visit(seg); err != nil {
			return err
		}
		offset = end
	}
}

// StripJPEG filters a JPEG stream. SOI is copied unconditionally; every
// segment up to start-of-scan is classified and either dropped, rewritten
// (EXIF) or copied verbatim; the scan and everything after it is copied
// verbatim.
func StripJPEG(data []byte, policy Policy, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	res := &Result{}
	out := make([]byte, 0, len(data))
	if len(data) >= 2 {
		out = append(out, data[:2]...)
	}

	err := walkJPEG(data, func(s jpegSegment) error {
		switch {
		case s.payload == nil:
			out = append(out, data[s.start:s.end]...)
			return nil

		case policy.Drops(s.kind):
			res.Removed = append(res.Removed, s.describe())
			return nil

		case s.kind.IsEXIF() && o.exif != nil && policy.TouchesEXIF():
			pruned, keep, err := o.exif(s.payload, policy)
			if err != nil {
				return err
			}
			if !keep {
				res.Removed = append(res.Removed, s.describe())
				return nil
			}
			if len(pruned) > maxJPEGPayload {
				return fmt.Errorf("segments: rewritten EXIF payload of %d bytes does not fit a JPEG segment", len(pruned))
			}
			out = append(out, 0xFF, s.marker)
			out = binary.BigEndian.AppendUint16(out, uint16(len(pruned)+2))
			out = append(out, pruned...)
			res.Rewritten = append(res.Rewritten, s.describe())
			return nil

		default:
			out = append(out, data[s.start:s.end]...)
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	res.Data = out
	return res, nil
}
