package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// maxIconSide is the largest dimension an ICO directory entry can describe.
const maxIconSide = 256

const (
	icoHeaderSize = 6
	icoEntrySize  = 16

	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", decodeICO, decodeICOConfig)
}

// encodeICO writes a single-image icon holding a PNG. Images larger than
// maxIconSide are scaled down to fit, keeping the aspect ratio.
func encodeICO(w io.Writer, img image.Image) error {
	img = fitIcon(img)
	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return err
	}

	b := img.Bounds()
	out := make([]byte, 0, icoHeaderSize+icoEntrySize+body.Len())
	out = binary.LittleEndian.AppendUint16(out, 0) // reserved
	out = binary.LittleEndian.AppendUint16(out, 1) // icon
	out = binary.LittleEndian.AppendUint16(out, 1) // image count
	out = append(out, iconSide(b.Dx()), iconSide(b.Dy()), 0, 0)
	out = binary.LittleEndian.AppendUint16(out, 1)  // color planes
	out = binary.LittleEndian.AppendUint16(out, 32) // bits per pixel
	out = binary.LittleEndian.AppendUint32(out, uint32(body.Len()))
	out = binary.LittleEndian.AppendUint32(out, icoHeaderSize+icoEntrySize)
	out = append(out, body.Bytes()...)

	_, err := w.Write(out)
	return err
}

// iconSide encodes a dimension; 0 stands for 256.
func iconSide(n int) byte {
	if n >= maxIconSide {
		return 0
	}
	return byte(n)
}

func fitIcon(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxIconSide && h <= maxIconSide {
		return img
	}
	if w >= h {
		h = max(1, h*maxIconSide/w)
		w = maxIconSide
	} else {
		w = max(1, w*maxIconSide/h)
		h = maxIconSide
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

type icoEntry struct {
	offset uint32
	size   uint32
	area   int
}

// largestICOEntry returns the payload of the biggest image in an icon:
// either a PNG stream or a headerless BMP (DIB) with its AND mask.
func largestICOEntry(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < icoHeaderSize {
		return nil, fmt.Errorf("ico: header truncated")
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 || len(data) < icoHeaderSize+count*icoEntrySize {
		return nil, fmt.Errorf("ico: directory truncated")
	}

	var best icoEntry
	for i := 0; i < count; i++ {
		e := data[icoHeaderSize+i*icoEntrySize:]
		w, h := int(e[0]), int(e[1])
		if w == 0 {
			w = maxIconSide
		}
		if h == 0 {
			h = maxIconSide
		}
		entry := icoEntry{
			size:   binary.LittleEndian.Uint32(e[8:12]),
			offset: binary.LittleEndian.Uint32(e[12:16]),
			area:   w * h,
		}
		if entry.area > best.area {
			best = entry
		}
	}

	end := uint64(best.offset) + uint64(best.size)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("ico: image data runs past end of file")
	}
	return data[best.offset:end], nil
}

// dib describes a BMP entry of an icon. The stored height covers the XOR
// bitmap and the AND mask, so it is twice the image height.
type dib struct {
	width, height int
	bpp           int
	paletteSize   int
}

func parseDIB(payload []byte) (dib, error) {
	if len(payload) < bmpInfoHeaderSize {
		return dib{}, fmt.Errorf("ico: bitmap header truncated")
	}
	if n := binary.LittleEndian.Uint32(payload[0:4]); n != bmpInfoHeaderSize {
		return dib{}, fmt.Errorf("ico: unsupported bitmap header size %d", n)
	}
	d := dib{
		width:  int(int32(binary.LittleEndian.Uint32(payload[4:8]))),
		height: int(int32(binary.LittleEndian.Uint32(payload[8:12]))) / 2,
		bpp:    int(binary.LittleEndian.Uint16(payload[14:16])),
	}
	if d.width <= 0 || d.height <= 0 {
		return dib{}, fmt.Errorf("ico: invalid bitmap size %dx%d", d.width, d.height)
	}
	switch d.bpp {
	case 8:
		colors := int(binary.LittleEndian.Uint32(payload[32:36]))
		if colors == 0 {
			colors = 256
		}
		d.paletteSize = colors * 4
	case 24, 32:
	default:
		return dib{}, fmt.Errorf("ico: unsupported bitmap depth %d", d.bpp)
	}
	return d, nil
}

func (d dib) stride() int {
	return (d.width*d.bpp + 31) / 32 * 4
}

func (d dib) maskStride() int {
	return (d.width + 31) / 32 * 4
}

// decodeDIB decodes a BMP icon entry. The AND mask clears alpha, unless a
// 32-bit entry carries its own alpha channel.
func decodeDIB(payload []byte) (image.Image, error) {
	d, err := parseDIB(payload)
	if err != nil {
		return nil, err
	}
	pixels := bmpInfoHeaderSize + d.paletteSize
	mask := pixels + d.stride()*d.height
	if len(payload) < mask {
		return nil, fmt.Errorf("ico: bitmap data truncated")
	}

	file := make([]byte, bmpFileHeaderSize, bmpFileHeaderSize+mask)
	copy(file, "BM")
	binary.LittleEndian.PutUint32(file[2:6], uint32(bmpFileHeaderSize+mask))
	binary.LittleEndian.PutUint32(file[10:14], uint32(bmpFileHeaderSize+pixels))
	file = append(file, payload[:mask]...)
	binary.LittleEndian.PutUint32(file[bmpFileHeaderSize+8:], uint32(d.height))

	img, err := bmp.Decode(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("ico: %w", err)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, d.width, d.height))
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	if d.bpp == 32 && applyDIBAlpha(dst, payload[pixels:mask], d) {
		return dst, nil
	}
	if len(payload) >= mask+d.maskStride()*d.height {
		applyDIBMask(dst, payload[mask:], d)
	}
	return dst, nil
}

// applyDIBAlpha copies the alpha bytes of a bottom-up BGRA bitmap into dst.
// It reports false, leaving dst alone, when every alpha byte is zero.
func applyDIBAlpha(dst *image.NRGBA, pixels []byte, d dib) bool {
	found := false
	for i := 3; i < len(pixels); i += 4 {
		if pixels[i] != 0 {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for y := 0; y < d.height; y++ {
		row := pixels[(d.height-1-y)*d.stride():]
		for x := 0; x < d.width; x++ {
			dst.Pix[dst.PixOffset(x, y)+3] = row[x*4+3]
		}
	}
	return true
}

func applyDIBMask(dst *image.NRGBA, mask []byte, d dib) {
	for y := 0; y < d.height; y++ {
		row := mask[(d.height-1-y)*d.maskStride():]
		for x := 0; x < d.width; x++ {
			if row[x/8]>>(7-uint(x%8))&1 == 1 {
				dst.Pix[dst.PixOffset(x, y)+3] = 0
			}
		}
	}
}

func decodeICO(r io.Reader) (image.Image, error) {
	payload, err := largestICOEntry(r)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(payload, pngSignature) {
		return png.Decode(bytes.NewReader(payload))
	}
	return decodeDIB(payload)
}

func decodeICOConfig(r io.Reader) (image.Config, error) {
	payload, err := largestICOEntry(r)
	if err != nil {
		return image.Config{}, err
	}
	if bytes.HasPrefix(payload, pngSignature) {
		return png.DecodeConfig(bytes.NewReader(payload))
	}
	d, err := parseDIB(payload)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: d.width, Height: d.height}, nil
}
