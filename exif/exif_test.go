package exif

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/internal/testimage"
	"github.com/eliasnau/imagetools/segments"
)

const (
	tagMake             uint16 = 0x010F
	tagModel            uint16 = 0x0110
	tagCompression      uint16 = 0x0103
	tagExposureTime     uint16 = 0x829A
	tagFNumber          uint16 = 0x829D
	tagISO              uint16 = 0x8827
	tagDateTimeOriginal uint16 = 0x9003
	tagFocalLength      uint16 = 0x920A
	tagGPSLatitudeRef   uint16 = 0x0001
	tagGPSLatitude      uint16 = 0x0002
	tagGPSLongitudeRef  uint16 = 0x0003
	tagGPSLongitude     uint16 = 0x0004
	tagInteropIndex     uint16 = 0x0001
)

func sampleDocument(order ByteOrder) *Document {
	return &Document{
		Order: order,
		IFD0: IFD{
			ASCIIEntry(tagMake, "Canon"),
			ASCIIEntry(tagModel, "EOS R5"),
			ShortEntry(order, TagOrientation, 6),
			ASCIIEntry(TagSoftware, "Lightroom 7.0"),
		},
		Exif: IFD{
			RationalEntry(order, tagExposureTime, [2]uint32{1, 250}),
			RationalEntry(order, tagFNumber, [2]uint32{28, 10}),
			ShortEntry(order, tagISO, 400),
			ASCIIEntry(tagDateTimeOriginal, "2024:05:01 10:20:30"),
			RationalEntry(order, tagFocalLength, [2]uint32{50, 1}),
		},
		GPS: IFD{
			ASCIIEntry(tagGPSLatitudeRef, "N"),
			RationalEntry(order, tagGPSLatitude, [2]uint32{37, 1}, [2]uint32{46, 1}, [2]uint32{2994, 100}),
			ASCIIEntry(tagGPSLongitudeRef, "W"),
			RationalEntry(order, tagGPSLongitude, [2]uint32{122, 1}, [2]uint32{25, 1}, [2]uint32{984, 100}),
		},
		Interop: IFD{
			ASCIIEntry(tagInteropIndex, "R98"),
		},
		IFD1: IFD{
			ShortEntry(order, tagCompression, 6),
		},
		Thumbnail: []byte{0xFF, 0xD8, 0xFF, 0xD9},
	}
}

func encode(t *testing.T, d *Document) []byte {
	t.Helper()
	out, err := d.Encode()
	require.NoError(t, err)
	return out
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, order := range []ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			doc := sampleDocument(order)
			data := encode(t, doc)

			parsed, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, doc.Order, parsed.Order)
			assert.Equal(t, doc.IFD0, parsed.IFD0)
			assert.Equal(t, doc.Exif, parsed.Exif)
			assert.Equal(t, doc.GPS, parsed.GPS)
			assert.Equal(t, doc.Interop, parsed.Interop)
			assert.Equal(t, doc.IFD1, parsed.IFD1)
			assert.Equal(t, doc.Thumbnail, parsed.Thumbnail)

			assert.Equal(t, data, encode(t, parsed), "re-encoding must be stable")
		})
	}
}

func TestDocumentEncodeSortsEntries(t *testing.T) {
	le := binary.LittleEndian
	doc := &Document{Order: le, IFD0: IFD{ASCIIEntry(TagSoftware, "x"), ASCIIEntry(tagMake, "y")}}
	parsed, err := Parse(encode(t, doc))
	require.NoError(t, err)
	require.Len(t, parsed.IFD0, 2)
	assert.Equal(t, tagMake, parsed.IFD0[0].Tag)
	assert.Equal(t, TagSoftware, parsed.IFD0[1].Tag)
}

func TestParseErrors(t *testing.T) {
	valid := encode(t, sampleDocument(binary.LittleEndian))

	loop := append([]byte(nil), valid...)
	n := int(binary.LittleEndian.Uint16(loop[8:10]))
	// Point the 0th IFD's next link back at itself.
	binary.LittleEndian.PutUint32(loop[10+12*n:], 8)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte("II*\x00")},
		{"bad byte order", []byte("XX*\x00\x08\x00\x00\x00")},
		{"bad magic", []byte("II\x2b\x00\x08\x00\x00\x00")},
		{"ifd out of range", []byte("II*\x00\xFF\x00\x00\x00")},
		{"truncated entries", valid[:20]},
		{"ifd loop", loop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)
		})
	}
}

func TestRedact(t *testing.T) {
	le := binary.LittleEndian
	payload := append(append([]byte(nil), Header...), encode(t, sampleDocument(le))...)

	tests := []struct {
		name     string
		policy   segments.Policy
		validate func(t *testing.T, doc *Document)
	}{
		{
			name:   "camera clears 0th",
			policy: segments.NewPolicy(segments.CategoryCamera),
			validate: func(t *testing.T, doc *Document) {
				assert.Empty(t, doc.IFD0)
				assert.NotEmpty(t, doc.Exif)
				assert.NotEmpty(t, doc.GPS)
			},
		},
		{
			name:   "capture clears exif ifd and keeps interop",
			policy: segments.NewPolicy(segments.CategoryCapture),
			validate: func(t *testing.T, doc *Document) {
				assert.Empty(t, doc.Exif)
				assert.NotEmpty(t, doc.Interop)
				assert.Len(t, doc.IFD0, 4)
			},
		},
		{
			name:   "location clears gps",
			policy: segments.NewPolicy(segments.CategoryLocation),
			validate: func(t *testing.T, doc *Document) {
				assert.Empty(t, doc.GPS)
				assert.Len(t, doc.Exif, 5)
			},
		},
		{
			name:   "other clears interop",
			policy: segments.NewPolicy(segments.CategoryOther),
			validate: func(t *testing.T, doc *Document) {
				assert.Empty(t, doc.Interop)
				assert.Len(t, doc.Exif, 5)
			},
		},
		{
			name:   "orientation deletes one tag",
			policy: segments.NewPolicy(segments.CategoryOrientation),
			validate: func(t *testing.T, doc *Document) {
				_, ok := doc.IFD0.Find(TagOrientation)
				assert.False(t, ok)
				_, ok = doc.IFD0.Find(tagMake)
				assert.True(t, ok)
			},
		},
		{
			name:   "software deletes one tag",
			policy: segments.NewPolicy(segments.CategorySoftware),
			validate: func(t *testing.T, doc *Document) {
				_, ok := doc.IFD0.Find(TagSoftware)
				assert.False(t, ok)
				assert.Len(t, doc.IFD0, 3)
			},
		},
		{
			name:   "everything keeps the thumbnail directory",
			policy: segments.FullPolicy(),
			validate: func(t *testing.T, doc *Document) {
				assert.Empty(t, doc.IFD0)
				assert.Empty(t, doc.Exif)
				assert.Empty(t, doc.GPS)
				assert.Empty(t, doc.Interop)
				assert.Len(t, doc.IFD1, 1)
				assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, doc.Thumbnail)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, keep, err := Redact(payload, tt.policy)
			require.NoError(t, err)
			require.True(t, keep)
			require.Equal(t, Header, out[:len(Header)])

			doc, err := Parse(out[len(Header):])
			require.NoError(t, err)
			tt.validate(t, doc)
		})
	}
}

func TestRedactRemovesEmptyBlock(t *testing.T) {
	le := binary.LittleEndian
	doc := &Document{Order: le, IFD0: IFD{ASCIIEntry(tagMake, "Canon"), ShortEntry(le, TagOrientation, 1)}}
	raw := encode(t, doc)

	out, keep, err := Redact(raw, segments.NewPolicy(segments.CategoryCamera))
	require.NoError(t, err)
	assert.False(t, keep)
	assert.Nil(t, out)
}

func TestRedactUnchanged(t *testing.T) {
	le := binary.LittleEndian
	doc := &Document{Order: le, IFD0: IFD{ASCIIEntry(tagMake, "Canon")}}
	raw := encode(t, doc)

	out, keep, err := Redact(raw, segments.NewPolicy(segments.CategoryOrientation, segments.CategoryLocation))
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, raw, out)
}

func TestRedactRawTIFF(t *testing.T) {
	raw := encode(t, sampleDocument(binary.BigEndian))

	out, keep, err := Redact(raw, segments.NewPolicy(segments.CategoryLocation))
	require.NoError(t, err)
	require.True(t, keep)
	assert.Equal(t, []byte("MM\x00*"), out[:4])

	doc, err := Parse(out)
	require.NoError(t, err)
	assert.Empty(t, doc.GPS)
}

func TestRedactInvalid(t *testing.T) {
	_, _, err := Redact([]byte("Exif\x00\x00garbage"), segments.FullPolicy())
	require.Error(t, err)
}

func TestRedactThroughStrip(t *testing.T) {
	payload := append(append([]byte(nil), Header...), encode(t, sampleDocument(binary.LittleEndian))...)
	in := testimage.SyntheticJPEG(testimage.EXIFSegment(payload[len(Header):]))

	res, err := segments.StripJPEG(in, segments.NewPolicy(segments.CategoryLocation), segments.WithEXIFRewriter(Redact))
	require.NoError(t, err)
	require.Len(t, res.Rewritten, 1)
	assert.Less(t, len(res.Data), len(in))

	report, err := Inspect(Source{Name: "x.jpg", MIME: "image/jpeg", Data: res.Data})
	require.NoError(t, err)
	_, ok := report.Lookup("Latitude")
	assert.False(t, ok)
	camera, _ := report.Lookup("Make")
	assert.Equal(t, "Canon", camera)
}

func TestInspectJPEG(t *testing.T) {
	payload := encode(t, sampleDocument(binary.LittleEndian))
	data := testimage.InsertAfterSOI(testimage.JPEG(40, 30), testimage.EXIFSegment(payload))

	report, err := Inspect(Source{Name: "holiday.photo.jpg", MIME: "image/jpeg", Data: data, Width: 40, Height: 30})
	require.NoError(t, err)
	assert.True(t, report.HasEXIF)
	assert.False(t, report.ICC)

	want := map[string]string{
		"Name":         "holiday.photo.jpg",
		"File type":    "JPG",
		"MIME type":    "image/jpeg",
		"Image size":   "40 x 30 (0.0 megapixels)",
		"Created":      "2024-05-01 10:20:30",
		"Make":         "Canon",
		"Model":        "EOS R5",
		"Focal length": "50 mm",
		"Aperture":     "2.8",
		"ISO":          "400",
		"Exposure":     "1/250",
		"Orientation":  "6",
		"Latitude":     `37° 46' 29.94" N`,
		"Longitude":    `122° 25' 9.84" W`,
		"Coordinates":  "37.774983, -122.419400",
		"Software":     "Lightroom 7.0",
		"Megapixels":   "0.0",
	}
	for key, value := range want {
		got, ok := report.Lookup(key)
		if assert.True(t, ok, "missing %q", key) {
			assert.Equal(t, value, got, key)
		}
	}

	var titles []string
	for _, s := range report.Sections() {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Overview", "Camera", "Capture", "Location", "Software", "Other"}, titles)
}

func TestInspectPNG(t *testing.T) {
	payload := encode(t, sampleDocument(binary.BigEndian))
	data := testimage.SyntheticPNG(testimage.ICCPChunk("sRGB"), testimage.PNGChunk("eXIf", payload))

	report, err := Inspect(Source{Name: "shot.png", MIME: "image/png", Data: data, Width: 1, Height: 1})
	require.NoError(t, err)
	assert.True(t, report.HasEXIF)
	assert.True(t, report.ICC)

	icc, _ := report.Lookup("ICC Profile")
	assert.Equal(t, "Present", icc)
	model, _ := report.Lookup("Model")
	assert.Equal(t, "EOS R5", model)
}

func TestInspectWithoutEXIF(t *testing.T) {
	report, err := Inspect(Source{Name: "plain.png", MIME: "image/png", Data: testimage.PNG(4, 4), Width: 4, Height: 4})
	require.NoError(t, err)
	assert.False(t, report.HasEXIF)
	assert.Empty(t, report.Camera)
	assert.Empty(t, report.Location)
	assert.NotEmpty(t, report.Overview)

	report, err = Inspect(Source{Name: "clip.webp", MIME: "image/webp", Data: []byte("RIFF\x00\x00\x00\x00WEBP")})
	require.NoError(t, err)
	assert.False(t, report.HasEXIF)
	size, _ := report.Lookup("File size")
	assert.Equal(t, "0.00 MB (12 bytes)", size)
}

func TestInspectEmpty(t *testing.T) {
	_, err := Inspect(Source{Name: "empty.jpg", MIME: "image/jpeg"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}
