// Package testimage builds small JPEG and PNG fixtures for tests: real
// encoded images from the standard encoders, and hand-framed containers with
// chosen metadata segments spliced in.
package testimage

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Gradient returns a w×h opaque test pattern.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// JPEG encodes a gradient of the given size.
func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNG encodes a gradient of the given size.
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEGSegment frames payload behind marker with a big-endian length.
func JPEGSegment(marker byte, payload []byte) []byte {
	out := []byte{0xFF, marker}
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	return append(out, payload...)
}

// ICCSegment is an APP2 segment carrying a single-part ICC profile.
func ICCSegment(profile []byte) []byte {
	payload := append([]byte("ICC_PROFILE\x00"), 1, 1)
	return JPEGSegment(0xE2, append(payload, profile...))
}

// XMPSegment is an APP1 segment carrying an XMP packet.
func XMPSegment(packet string) []byte {
	payload := append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...)
	return JPEGSegment(0xE1, payload)
}

// EXIFSegment is an APP1 segment carrying a TIFF structure.
func EXIFSegment(tiff []byte) []byte {
	return JPEGSegment(0xE1, append([]byte("Exif\x00\x00"), tiff...))
}

// InsertAfterSOI splices raw segments directly after the start-of-image marker.
func InsertAfterSOI(jpg []byte, segs ...[]byte) []byte {
	out := append([]byte{}, jpg[:2]...)
	for _, s := range segs {
		out = append(out, s...)
	}
	return append(out, jpg[2:]...)
}

// SyntheticJPEG frames a JPEG stream that is valid at the segment level but
// carries placeholder tables and scan data. extra segments follow APP0.
func SyntheticJPEG(extra ...[]byte) []byte {
	out := []byte{0xFF, 0xD8}
	out = append(out, JPEGSegment(0xE0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"))...)
	for _, s := range extra {
		out = append(out, s...)
	}
	out = append(out, JPEGSegment(0xDB, make([]byte, 65))...)
	out = append(out, JPEGSegment(0xC0, []byte{8, 0, 16, 0, 16, 1, 1, 0x11, 0})...)
	out = append(out, JPEGSegment(0xC4, make([]byte, 29))...)
	out = append(out, JPEGSegment(0xDA, []byte{1, 1, 0, 0, 63, 0})...)
	out = append(out, 0x12, 0x34, 0xFF, 0x00, 0x56, 0xFF, 0xD0, 0x78)
	return append(out, 0xFF, 0xD9)
}

// PNGChunk frames a chunk with a correct CRC.
func PNGChunk(typ string, payload []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(payload)))
	out = append(out, typ...)
	out = append(out, payload...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(append([]byte(typ), payload...)))
}

// TextChunk is a tEXt chunk with the given keyword and text.
func TextChunk(keyword, text string) []byte {
	return PNGChunk("tEXt", []byte(keyword+"\x00"+text))
}

// ICCPChunk is an iCCP chunk with a profile name and placeholder compressed data.
func ICCPChunk(name string) []byte {
	return PNGChunk("iCCP", append([]byte(name+"\x00\x00"), 0x78, 0x9C, 0x03, 0x00))
}

// InsertAfterIHDR splices raw chunks directly after the IHDR chunk of png.
func InsertAfterIHDR(pngData []byte, chunks ...[]byte) []byte {
	ihdrLen := int(binary.BigEndian.Uint32(pngData[8:12]))
	split := 8 + 12 + ihdrLen
	out := append([]byte{}, pngData[:split]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, pngData[split:]...)
}

// SyntheticPNG frames signature, IHDR, the extra chunks, one IDAT and IEND.
func SyntheticPNG(extra ...[]byte) []byte {
	out := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	out = append(out, PNGChunk("IHDR", []byte{0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0})...)
	for _, c := range extra {
		out = append(out, c...)
	}
	out = append(out, PNGChunk("IDAT", []byte{0x78, 0x9C, 0x62, 0x00, 0x00, 0x00, 0x05, 0x00, 0x01})...)
	return append(out, PNGChunk("IEND", nil)...)
}

// ChunkTypes lists the chunk types of a well-formed PNG in order.
func ChunkTypes(pngData []byte) []string {
	var types []string
	for off := 8; off+8 <= len(pngData); {
		n := int(binary.BigEndian.Uint32(pngData[off : off+4]))
		types = append(types, string(pngData[off+4:off+8]))
		off += 12 + n
	}
	return types
}
