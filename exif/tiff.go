package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Header is the six-byte prefix of an EXIF payload inside a JPEG APP1 segment.
var Header = []byte("Exif\x00\x00")

const tiffHeaderSize = 8

// Structural tags. They are owned by Document and never appear in an IFD.
const (
	tagExifIFD     uint16 = 0x8769
	tagGPSIFD      uint16 = 0x8825
	tagInteropIFD  uint16 = 0xA005
	tagThumbOffset uint16 = 0x0201
	tagThumbLength uint16 = 0x0202
)

// Tags referenced by redaction.
const (
	TagOrientation uint16 = 0x0112
	TagSoftware    uint16 = 0x0131
)

// TIFF field types.
const (
	TypeByte      uint16 = 1
	TypeASCII     uint16 = 2
	TypeShort     uint16 = 3
	TypeLong      uint16 = 4
	TypeRational  uint16 = 5
	TypeSByte     uint16 = 6
	TypeUndefined uint16 = 7
	TypeSShort    uint16 = 8
	TypeSLong     uint16 = 9
	TypeSRational uint16 = 10
	TypeFloat     uint16 = 11
	TypeDouble    uint16 = 12
	TypeIFD       uint16 = 13
)

var typeSizes = map[uint16]uint64{
	TypeByte:      1,
	TypeASCII:     1,
	TypeShort:     2,
	TypeLong:      4,
	TypeRational:  8,
	TypeSByte:     1,
	TypeUndefined: 1,
	TypeSShort:    2,
	TypeSLong:     4,
	TypeSRational: 8,
	TypeFloat:     4,
	TypeDouble:    8,
	TypeIFD:       4,
}

// Group names one image file directory of an EXIF payload.
type Group int

const (
	GroupIFD0 Group = iota
	GroupExif
	GroupGPS
	GroupInterop
	GroupIFD1
)

// String returns the conventional short name of the group.
func (g Group) String() string {
	switch g {
	case GroupIFD0:
		return "0th"
	case GroupExif:
		return "Exif"
	case GroupGPS:
		return "GPS"
	case GroupInterop:
		return "Interop"
	case GroupIFD1:
		return "1st"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// Entry is one IFD field. Value holds Count items of Type in the byte order
// of the owning Document.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value []byte
}

// IFD is an ordered list of entries.
type IFD []Entry

// Find returns the entry for tag.
func (d IFD) Find(tag uint16) (Entry, bool) {
	for _, e := range d {
		if e.Tag == tag {
			return e, true
		}
	}
	return Entry{}, false
}

// Without returns d minus any entry for tag.
func (d IFD) Without(tag uint16) IFD {
	out := make(IFD, 0, len(d))
	for _, e := range d {
		if e.Tag != tag {
			out = append(out, e)
		}
	}
	return out
}

func (d IFD) with(e Entry) IFD {
	out := d.Without(e.Tag)
	return append(out, e)
}

func (d IFD) size() int {
	n := 2 + 12*len(d) + 4
	for _, e := range d {
		if len(e.Value) > 4 {
			n += len(e.Value) + len(e.Value)%2
		}
	}
	return n
}

// ByteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Document is a parsed TIFF structure as found in EXIF payloads. Sub-IFD
// pointers and thumbnail offsets are resolved on Parse and recomputed on
// Encode.
type Document struct {
	Order     ByteOrder
	IFD0      IFD
	Exif      IFD
	GPS       IFD
	Interop   IFD
	IFD1      IFD
	Thumbnail []byte
}

// Group returns the entries of g.
func (d *Document) Group(g Group) IFD {
	switch g {
	case GroupIFD0:
		return d.IFD0
	case GroupExif:
		return d.Exif
	case GroupGPS:
		return d.GPS
	case GroupInterop:
		return d.Interop
	case GroupIFD1:
		return d.IFD1
	}
	return nil
}

func (d *Document) setGroup(g Group, ifd IFD) {
	switch g {
	case GroupIFD0:
		d.IFD0 = ifd
	case GroupExif:
		d.Exif = ifd
	case GroupGPS:
		d.GPS = ifd
	case GroupInterop:
		d.Interop = ifd
	case GroupIFD1:
		d.IFD1 = ifd
	}
}

// Clear empties g and reports whether anything was removed.
func (d *Document) Clear(g Group) bool {
	if len(d.Group(g)) == 0 {
		return false
	}
	d.setGroup(g, nil)
	return true
}

// DeleteTag removes tag from g and reports whether it was present.
func (d *Document) DeleteTag(g Group, tag uint16) bool {
	ifd := d.Group(g)
	if _, ok := ifd.Find(tag); !ok {
		return false
	}
	d.setGroup(g, ifd.Without(tag))
	return true
}

// Empty reports whether no group holds an entry and there is no thumbnail.
func (d *Document) Empty() bool {
	return len(d.IFD0) == 0 && len(d.Exif) == 0 && len(d.GPS) == 0 &&
		len(d.Interop) == 0 && len(d.IFD1) == 0 && len(d.Thumbnail) == 0
}

// Parse decodes a TIFF structure. Entries with unknown field types are
// skipped.
func Parse(data []byte) (*Document, error) {
	if len(data) < tiffHeaderSize {
		return nil, fmt.Errorf("exif: tiff header truncated (%d bytes)", len(data))
	}

	p := &parser{data: data, seen: make(map[uint32]bool)}
	switch {
	case bytes.HasPrefix(data, []byte("II")):
		p.order = binary.LittleEndian
	case bytes.HasPrefix(data, []byte("MM")):
		p.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("exif: invalid byte order mark %q", data[:2])
	}
	if magic := p.order.Uint16(data[2:4]); magic != 42 {
		return nil, fmt.Errorf("exif: invalid tiff magic %d", magic)
	}

	doc := &Document{Order: p.order}

	ifd0, next, err := p.readIFD(p.order.Uint32(data[4:8]))
	if err != nil {
		return nil, fmt.Errorf("exif: 0th ifd: %w", err)
	}

	var exifOff, gpsOff, interopOff uint32
	doc.IFD0, exifOff = takePointer(ifd0, tagExifIFD, p.order)
	doc.IFD0, gpsOff = takePointer(doc.IFD0, tagGPSIFD, p.order)

	if exifOff != 0 {
		exif, _, err := p.readIFD(exifOff)
		if err != nil {
			return nil, fmt.Errorf("exif: exif ifd: %w", err)
		}
		doc.Exif, interopOff = takePointer(exif, tagInteropIFD, p.order)
	}
	if gpsOff != 0 {
		if doc.GPS, _, err = p.readIFD(gpsOff); err != nil {
			return nil, fmt.Errorf("exif: gps ifd: %w", err)
		}
	}
	if interopOff != 0 {
		if doc.Interop, _, err = p.readIFD(interopOff); err != nil {
			return nil, fmt.Errorf("exif: interop ifd: %w", err)
		}
	}
	if next != 0 {
		ifd1, _, err := p.readIFD(next)
		if err != nil {
			return nil, fmt.Errorf("exif: 1st ifd: %w", err)
		}
		var thumbOff, thumbLen uint32
		ifd1, thumbOff = takePointer(ifd1, tagThumbOffset, p.order)
		ifd1, thumbLen = takePointer(ifd1, tagThumbLength, p.order)
		doc.IFD1 = ifd1
		if thumbOff != 0 && thumbLen != 0 {
			end := uint64(thumbOff) + uint64(thumbLen)
			if end > uint64(len(data)) {
				return nil, fmt.Errorf("exif: thumbnail at %d+%d runs past end of data", thumbOff, thumbLen)
			}
			doc.Thumbnail = append([]byte(nil), data[thumbOff:end]...)
		}
	}

	return doc, nil
}

type parser struct {
	data  []byte
	order ByteOrder
	seen  map[uint32]bool
}

func (p *parser) readIFD(off uint32) (IFD, uint32, error) {
	if p.seen[off] {
		return nil, 0, fmt.Errorf("ifd at %d referenced twice", off)
	}
	p.seen[off] = true

	if uint64(off)+2 > uint64(len(p.data)) {
		return nil, 0, fmt.Errorf("ifd offset %d out of range", off)
	}
	n := int(p.order.Uint16(p.data[off:]))
	start := int(off) + 2
	end := start + 12*n
	if end+4 > len(p.data) {
		return nil, 0, fmt.Errorf("ifd at %d with %d entries runs past end of data", off, n)
	}

	ifd := make(IFD, 0, n)
	for i := start; i < end; i += 12 {
		raw := p.data[i : i+12]
		e := Entry{
			Tag:   p.order.Uint16(raw[0:2]),
			Type:  p.order.Uint16(raw[2:4]),
			Count: p.order.Uint32(raw[4:8]),
		}
		unit, ok := typeSizes[e.Type]
		if !ok {
			continue
		}
		size := unit * uint64(e.Count)
		if size <= 4 {
			e.Value = append([]byte(nil), raw[8:8+size]...)
		} else {
			valOff := uint64(p.order.Uint32(raw[8:12]))
			if valOff+size > uint64(len(p.data)) {
				return nil, 0, fmt.Errorf("value of tag 0x%04X at %d+%d runs past end of data", e.Tag, valOff, size)
			}
			e.Value = append([]byte(nil), p.data[valOff:valOff+size]...)
		}
		ifd = append(ifd, e)
	}

	return ifd, p.order.Uint32(p.data[end : end+4]), nil
}

func takePointer(ifd IFD, tag uint16, order ByteOrder) (IFD, uint32) {
	e, ok := ifd.Find(tag)
	if !ok {
		return ifd, 0
	}
	var v uint32
	switch {
	case len(e.Value) >= 4:
		v = order.Uint32(e.Value)
	case len(e.Value) >= 2:
		v = uint32(order.Uint16(e.Value))
	}
	return ifd.Without(tag), v
}

// Encode serializes the document with freshly computed offsets in the
// document's byte order. IFDs are laid out as 0th, Exif, Interop, GPS, 1st,
// followed by the thumbnail.
func (d *Document) Encode() ([]byte, error) {
	var order ByteOrder = binary.BigEndian
	if d.Order != nil {
		order = d.Order
	}

	hasInterop := len(d.Interop) > 0
	hasExif := len(d.Exif) > 0 || hasInterop
	hasGPS := len(d.GPS) > 0
	hasIFD1 := len(d.IFD1) > 0 || len(d.Thumbnail) > 0

	ifd0 := d.IFD0
	exif := d.Exif
	ifd1 := d.IFD1
	if hasExif {
		ifd0 = ifd0.with(LongEntry(order, tagExifIFD, 0))
	}
	if hasGPS {
		ifd0 = ifd0.with(LongEntry(order, tagGPSIFD, 0))
	}
	if hasInterop {
		exif = exif.with(LongEntry(order, tagInteropIFD, 0))
	}
	if len(d.Thumbnail) > 0 {
		ifd1 = ifd1.with(LongEntry(order, tagThumbOffset, 0))
		ifd1 = ifd1.with(LongEntry(order, tagThumbLength, uint32(len(d.Thumbnail))))
	}

	offExif := tiffHeaderSize + ifd0.size()
	offInterop := offExif
	if hasExif {
		offInterop += exif.size()
	}
	offGPS := offInterop
	if hasInterop {
		offGPS += d.Interop.size()
	}
	off1 := offGPS
	if hasGPS {
		off1 += d.GPS.size()
	}
	offThumb := off1
	if hasIFD1 {
		offThumb += ifd1.size()
	}
	total := offThumb + len(d.Thumbnail)
	if uint64(total) > math.MaxUint32 {
		return nil, fmt.Errorf("exif: encoded size %d exceeds tiff limit", total)
	}

	if hasExif {
		ifd0 = ifd0.with(LongEntry(order, tagExifIFD, uint32(offExif)))
	}
	if hasGPS {
		ifd0 = ifd0.with(LongEntry(order, tagGPSIFD, uint32(offGPS)))
	}
	if hasInterop {
		exif = exif.with(LongEntry(order, tagInteropIFD, uint32(offInterop)))
	}
	if len(d.Thumbnail) > 0 {
		ifd1 = ifd1.with(LongEntry(order, tagThumbOffset, uint32(offThumb)))
	}

	out := make([]byte, 0, total)
	if order == binary.LittleEndian {
		out = append(out, 'I', 'I')
	} else {
		out = append(out, 'M', 'M')
	}
	out = order.AppendUint16(out, 42)
	out = order.AppendUint32(out, tiffHeaderSize)

	next := uint32(0)
	if hasIFD1 {
		next = uint32(off1)
	}
	out = writeIFD(out, order, ifd0, next)
	if hasExif {
		out = writeIFD(out, order, exif, 0)
	}
	if hasInterop {
		out = writeIFD(out, order, d.Interop, 0)
	}
	if hasGPS {
		out = writeIFD(out, order, d.GPS, 0)
	}
	if hasIFD1 {
		out = writeIFD(out, order, ifd1, 0)
	}
	out = append(out, d.Thumbnail...)

	if len(out) != total {
		return nil, fmt.Errorf("exif: encoded %d bytes, laid out %d", len(out), total)
	}
	return out, nil
}

// writeIFD appends ifd at the current end of out, which must start at the
// TIFF header. Entries are written in ascending tag order.
func writeIFD(out []byte, order ByteOrder, ifd IFD, next uint32) []byte {
	entries := append(IFD(nil), ifd...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })

	base := len(out)
	dataOff := base + 2 + 12*len(entries) + 4
	var data []byte

	out = order.AppendUint16(out, uint16(len(entries)))
	for _, e := range entries {
		out = order.AppendUint16(out, e.Tag)
		out = order.AppendUint16(out, e.Type)
		out = order.AppendUint32(out, e.Count)
		if len(e.Value) <= 4 {
			var inline [4]byte
			copy(inline[:], e.Value)
			out = append(out, inline[:]...)
			continue
		}
		out = order.AppendUint32(out, uint32(dataOff+len(data)))
		data = append(data, e.Value...)
		if len(e.Value)%2 == 1 {
			data = append(data, 0)
		}
	}
	out = order.AppendUint32(out, next)
	return append(out, data...)
}

// ASCIIEntry builds a NUL-terminated ASCII entry.
func ASCIIEntry(tag uint16, s string) Entry {
	v := append([]byte(s), 0)
	return Entry{Tag: tag, Type: TypeASCII, Count: uint32(len(v)), Value: v}
}

// ShortEntry builds a SHORT entry.
func ShortEntry(order ByteOrder, tag uint16, vals ...uint16) Entry {
	var v []byte
	for _, x := range vals {
		v = order.AppendUint16(v, x)
	}
	return Entry{Tag: tag, Type: TypeShort, Count: uint32(len(vals)), Value: v}
}

// LongEntry builds a LONG entry.
func LongEntry(order ByteOrder, tag uint16, vals ...uint32) Entry {
	var v []byte
	for _, x := range vals {
		v = order.AppendUint32(v, x)
	}
	return Entry{Tag: tag, Type: TypeLong, Count: uint32(len(vals)), Value: v}
}

// RationalEntry builds a RATIONAL entry from numerator/denominator pairs.
func RationalEntry(order ByteOrder, tag uint16, pairs ...[2]uint32) Entry {
	var v []byte
	for _, p := range pairs {
		v = order.AppendUint32(v, p[0])
		v = order.AppendUint32(v, p[1])
	}
	return Entry{Tag: tag, Type: TypeRational, Count: uint32(len(pairs)), Value: v}
}
