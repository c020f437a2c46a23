package segments

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// maxPNGChunk is the largest chunk length the PNG specification allows.
const maxPNGChunk = 1<<31 - 1

// pngChunk is one length/type/payload/CRC unit. start and end delimit the
// whole chunk in the input.
type pngChunk struct {
	typ     string
	start   int
	end     int
	payload []byte
	kind    Kind
}

func (c pngChunk) describe() Segment {
	return Segment{
		Name:   c.typ,
		Kind:   c.kind,
		Offset: c.start,
		Size:   c.end - c.start,
	}
}

func validChunkType(t []byte) bool {
	for _, b := range t {
		if (b < 'A' || b > 'Z') && (b < 'a' || b > 'z') {
			return false
		}
	}
	return true
}

// walkPNG visits every chunk after the signature up to and including IEND.
// Bytes trailing IEND are not visited.
func walkPNG(data []byte, visit func(pngChunk) error) error {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return malformed(FormatPNG, 0, "missing PNG signature")
	}

	offset := len(pngSignature)
	for {
		if offset+8 > len(data) {
			return malformed(FormatPNG, offset, "stream ended before IEND")
		}
		length := binary.BigEndian.Uint32(data[offset : offset+4])
		if length > maxPNGChunk {
			return malformed(FormatPNG, offset, fmt.Sprintf("chunk length %d exceeds limit", length))
		}
		typ := data[offset+4 : offset+8]
		if !validChunkType(typ) {
			return malformed(FormatPNG, offset, fmt.Sprintf("invalid chunk type %q", typ))
		}

		payloadStart := offset + 8
		payloadEnd := payloadStart + int(length)
		end := payloadEnd + 4
		if end > len(data) || end < payloadStart {
			return malformed(FormatPNG, offset, fmt.Sprintf("%s chunk of length %d runs past end of stream", typ, length))
		}

		payload := data[payloadStart:payloadEnd]
		c := pngChunk{
			typ:     string(typ),
			start:   offset,
			end:     end,
			payload: payload,
			kind:    classifyPNG(string(typ), payload),
		}
		if err := visit(c); err != nil {
			return err
		}
		offset = end
		if c.typ == "IEND" {
			return nil
		}
	}
}

// StripPNG filters a PNG stream. The signature is copied unconditionally and
// every chunk through IEND is dropped, rewritten (eXIf) or copied verbatim
// with its original CRC.
func StripPNG(data []byte, policy Policy, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	res := &Result{}
	out := make([]byte, 0, len(data))
	out = append(out, pngSignature...)

	err := walkPNG(data, func(c pngChunk) error {
		switch {
		case policy.Drops(c.kind):
			res.Removed = append(res.Removed, c.describe())
			return nil

		case c.kind.IsEXIF() && o.exif != nil && policy.TouchesEXIF():
			pruned, keep, err := o.exif(c.payload, policy)
			if err != nil {
				return err
			}
			if !keep {
				res.Removed = append(res.Removed, c.describe())
				return nil
			}
			out = appendChunk(out, c.typ, pruned)
			res.Rewritten = append(res.Rewritten, c.describe())
			return nil

		default:
			out = append(out, data[c.start:c.end]...)
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	res.Data = out
	return res, nil
}

// appendChunk frames a new chunk. Only rewritten chunks get a fresh CRC.
func appendChunk(out []byte, typ string, payload []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, typ...)
	out = append(out, payload...)
	crc := crc32.NewIEEE()
	_, _ = crc.Write([]byte(typ))
	_, _ = crc.Write(payload)
	return binary.BigEndian.AppendUint32(out, crc.Sum32())
}
