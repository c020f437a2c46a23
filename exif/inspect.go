package exif

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/segments"
)

// Field names not exported by goexif, or exported only by recent releases.
const (
	fieldLensModel          goexif.FieldName = "LensModel"
	fieldLensSpecification  goexif.FieldName = "LensSpecification"
	fieldHostComputer       goexif.FieldName = "HostComputer"
	fieldGPSImgDirection    goexif.FieldName = "GPSImgDirection"
	fieldGPSImgDirectionRef goexif.FieldName = "GPSImgDirectionRef"
	fieldGPSSpeed           goexif.FieldName = "GPSSpeed"
	fieldGPSSpeedRef        goexif.FieldName = "GPSSpeedRef"
	fieldGPSDateStamp       goexif.FieldName = "GPSDateStamp"
	fieldGPSTimeStamp       goexif.FieldName = "GPSTimeStamp"
	fieldGPSPositioningErr  goexif.FieldName = "GPSHPositioningError"
)

// Source is the file being inspected.
type Source struct {
	Name   string
	MIME   string
	Data   []byte
	Width  int
	Height int
}

// Field is one labelled value of a report.
type Field struct {
	Key   string
	Value string
}

// Section is a titled group of fields.
type Section struct {
	Title  string
	Fields []Field
}

// Report is the grouped, human readable view of an image's metadata. Fields
// without a value are omitted.
type Report struct {
	Overview []Field
	Camera   []Field
	Capture  []Field
	Location []Field
	Software []Field
	Color    []Field
	Other    []Field

	// HasEXIF reports whether an EXIF block was found and decoded.
	HasEXIF bool

	// ICC reports whether an embedded color profile was found.
	ICC bool
}

// Sections returns the non-empty groups in display order.
func (r *Report) Sections() []Section {
	all := []Section{
		{"Overview", r.Overview},
		{"Camera", r.Camera},
		{"Capture", r.Capture},
		{"Location", r.Location},
		{"Software", r.Software},
		{"Color", r.Color},
		{"Other", r.Other},
	}
	out := all[:0]
	for _, s := range all {
		if len(s.Fields) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the value of key in any section.
func (r *Report) Lookup(key string) (string, bool) {
	for _, s := range r.Sections() {
		for _, f := range s.Fields {
			if f.Key == key {
				return f.Value, true
			}
		}
	}
	return "", false
}

// Inspect builds a report for src. Missing or unreadable EXIF data leaves
// the EXIF-derived fields empty and is not an error.
func Inspect(src Source) (*Report, error) {
	if len(src.Data) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "no image data to inspect").WithOp("exif.Inspect")
	}

	t := tags{}
	var segs []segments.Segment
	format, scannable := segments.FormatForMIME(src.MIME)
	if scannable {
		segs, _ = segments.List(src.Data, format)
	}
	if payload, ok := tiffPayload(src.Data, segs, scannable); ok {
		if x, _ := goexif.Decode(bytes.NewReader(payload)); x != nil {
			t.x = x
		}
	}

	r := &Report{
		HasEXIF: t.x != nil,
		ICC:     segments.HasKind(segs, segments.KindJPEGICC) || segments.HasKind(segs, segments.KindPNGICC),
	}

	r.Overview = prune(
		Field{"Name", src.Name},
		Field{"File size", formatFileSize(len(src.Data))},
		Field{"File type", fileType(src.Name)},
		Field{"MIME type", src.MIME},
		Field{"Image size", imageSize(src.Width, src.Height)},
		Field{"Color space", t.lookup(goexif.ColorSpace, colorSpaces)},
		Field{"Created", t.created()},
	)

	aperture := t.number(goexif.FNumber, 1, "")
	if aperture == "" {
		aperture = t.number(goexif.ApertureValue, 1, "")
	}
	r.Camera = prune(
		Field{"Make", t.str(goexif.Make)},
		Field{"Model", t.str(goexif.Model)},
		Field{"Lens", t.str(fieldLensModel)},
		Field{"Focal length", t.number(goexif.FocalLength, 2, " mm")},
		Field{"Aperture", aperture},
		Field{"ISO", t.integer(goexif.ISOSpeedRatings)},
	)

	r.Capture = prune(
		Field{"Exposure", t.exposure()},
		Field{"Shutter speed", t.number(goexif.ShutterSpeedValue, 2, "")},
		Field{"Exposure program", t.lookup(goexif.ExposureProgram, exposurePrograms)},
		Field{"White balance", t.choice(goexif.WhiteBalance, func(v int) string {
			if v == 0 {
				return "Auto"
			}
			return "Manual"
		})},
		Field{"Flash", t.choice(goexif.Flash, func(v int) string {
			if v&1 != 0 {
				return "Flash Fired"
			}
			return "Off, Did not fire"
		})},
		Field{"Orientation", t.integer(goexif.Orientation)},
	)

	r.Location = prune(
		Field{"Latitude", t.dms(goexif.GPSLatitude, goexif.GPSLatitudeRef)},
		Field{"Longitude", t.dms(goexif.GPSLongitude, goexif.GPSLongitudeRef)},
		Field{"Coordinates", t.coordinates()},
		Field{"Altitude", t.number(goexif.GPSAltitude, 1, " m")},
		Field{"Direction", withRef(t.number(fieldGPSImgDirection, 1, "°"), t.str(fieldGPSImgDirectionRef))},
		Field{"Speed", withRef(t.number(fieldGPSSpeed, 1, ""), t.str(fieldGPSSpeedRef))},
		Field{"Timestamp", t.gpsTimestamp()},
		Field{"Position Accuracy", t.number(fieldGPSPositioningErr, 1, " m")},
	)

	r.Software = prune(
		Field{"Software", t.str(goexif.Software)},
		Field{"Host Computer", t.str(fieldHostComputer)},
	)

	icc := ""
	if r.ICC {
		icc = "Present"
	}
	r.Color = prune(
		Field{"ICC Profile", icc},
		Field{"Bit Depth", t.list(goexif.BitsPerSample, ",")},
	)

	mp := ""
	if src.Width > 0 && src.Height > 0 {
		mp = megapixels(src.Width, src.Height)
	}
	r.Other = prune(
		Field{"Megapixels", mp},
		Field{"Lens Info", t.list(fieldLensSpecification, "-")},
		Field{"Digital Zoom", t.number(goexif.DigitalZoomRatio, 2, "")},
	)

	return r, nil
}

// tiffPayload narrows data to the TIFF structure of its EXIF segment. Data
// the scanner does not understand is handed to goexif whole.
func tiffPayload(data []byte, segs []segments.Segment, scanned bool) ([]byte, bool) {
	if !scanned {
		return data, true
	}
	for _, s := range segs {
		end := s.Offset + s.Size
		switch s.Kind {
		case segments.KindJPEGEXIF:
			start := s.Offset
			for start+1 < end && data[start+1] == 0xFF {
				start++
			}
			return bytes.TrimPrefix(data[start+4:end], Header), true
		case segments.KindPNGEXIF:
			return data[s.Offset+8 : end-4], true
		}
	}
	return nil, false
}

func imageSize(w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	return fmt.Sprintf("%d x %d (%s megapixels)", w, h, megapixels(w, h))
}

func withRef(value, ref string) string {
	if value == "" {
		return ""
	}
	return strings.TrimSpace(value + " " + ref)
}

func prune(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// tags reads values out of a decoded EXIF block. Every accessor returns the
// empty string when the tag is absent or has an unexpected type.
type tags struct {
	x *goexif.Exif
}

func (t tags) get(name goexif.FieldName) *tiff.Tag {
	if t.x == nil {
		return nil
	}
	tag, err := t.x.Get(name)
	if err != nil {
		return nil
	}
	return tag
}

func (t tags) floatVal(name goexif.FieldName, i int) (float64, bool) {
	tag := t.get(name)
	if tag == nil || uint32(i) >= tag.Count {
		return 0, false
	}
	switch tag.Format() {
	case tiff.IntVal:
		v, err := tag.Int(i)
		return float64(v), err == nil
	case tiff.RatVal:
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		return float64(num) / float64(den), true
	case tiff.FloatVal:
		v, err := tag.Float(i)
		return v, err == nil
	}
	return 0, false
}

func (t tags) intVal(name goexif.FieldName) (int, bool) {
	tag := t.get(name)
	if tag == nil || tag.Count == 0 || tag.Format() != tiff.IntVal {
		return 0, false
	}
	v, err := tag.Int(0)
	return v, err == nil
}

func (t tags) str(name goexif.FieldName) string {
	tag := t.get(name)
	if tag == nil {
		return ""
	}
	if tag.Format() != tiff.StringVal {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func (t tags) number(name goexif.FieldName, digits int, suffix string) string {
	v, ok := t.floatVal(name, 0)
	if !ok {
		return ""
	}
	return formatNumber(v, digits) + suffix
}

func (t tags) integer(name goexif.FieldName) string {
	v, ok := t.intVal(name)
	if !ok || v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func (t tags) choice(name goexif.FieldName, render func(int) string) string {
	v, ok := t.intVal(name)
	if !ok {
		return ""
	}
	return render(v)
}

func (t tags) lookup(name goexif.FieldName, names map[int]string) string {
	v, ok := t.intVal(name)
	if !ok {
		return ""
	}
	if s, ok := names[v]; ok {
		return s
	}
	return strconv.Itoa(v)
}

func (t tags) list(name goexif.FieldName, sep string) string {
	tag := t.get(name)
	if tag == nil {
		return ""
	}
	parts := make([]string, 0, tag.Count)
	for i := 0; i < int(tag.Count); i++ {
		v, ok := t.floatVal(name, i)
		if !ok {
			return ""
		}
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strings.Join(parts, sep)
}

func (t tags) exposure() string {
	v, ok := t.floatVal(goexif.ExposureTime, 0)
	if !ok {
		return ""
	}
	return formatExposure(v)
}

func (t tags) created() string {
	if t.x == nil {
		return ""
	}
	ts, err := t.x.DateTime()
	if err != nil {
		return ""
	}
	return ts.Format("2006-01-02 15:04:05")
}

func (t tags) triple(name goexif.FieldName) ([3]float64, bool) {
	var out [3]float64
	tag := t.get(name)
	if tag == nil || tag.Count != 3 {
		return out, false
	}
	for i := range out {
		v, ok := t.floatVal(name, i)
		if !ok {
			return out, false
		}
		out[i] = v
	}
	return out, true
}

func (t tags) dms(name, ref goexif.FieldName) string {
	v, ok := t.triple(name)
	if !ok {
		return ""
	}
	return formatDMS(v, t.str(ref))
}

func (t tags) coordinates() string {
	lat, ok := t.triple(goexif.GPSLatitude)
	if !ok {
		return ""
	}
	long, ok := t.triple(goexif.GPSLongitude)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.6f, %.6f",
		dmsToDecimal(lat, t.str(goexif.GPSLatitudeRef)),
		dmsToDecimal(long, t.str(goexif.GPSLongitudeRef)),
	)
}

func (t tags) gpsTimestamp() string {
	hms, ok := t.triple(fieldGPSTimeStamp)
	if !ok {
		return ""
	}
	clock := fmt.Sprintf("%02d:%02d:%02d", int(hms[0]), int(hms[1]), int(hms[2]))
	if date := t.str(fieldGPSDateStamp); date != "" {
		return date + " " + clock
	}
	return clock
}
