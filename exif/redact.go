package exif

import (
	"bytes"

	"github.com/eliasnau/imagetools/segments"
)

// groupRules clears whole directories when a category is selected.
var groupRules = []struct {
	category segments.Category
	group    Group
}{
	{segments.CategoryCamera, GroupIFD0},
	{segments.CategoryCapture, GroupExif},
	{segments.CategoryLocation, GroupGPS},
	{segments.CategoryOther, GroupInterop},
}

// tagRules delete single 0th IFD tags. They run after groupRules.
var tagRules = []struct {
	category segments.Category
	tag      uint16
}{
	{segments.CategoryOrientation, TagOrientation},
	{segments.CategorySoftware, TagSoftware},
}

// Apply prunes the document according to p and reports whether it changed.
func (d *Document) Apply(p segments.Policy) bool {
	changed := false
	for _, r := range groupRules {
		if p.Has(r.category) && d.Clear(r.group) {
			changed = true
		}
	}
	for _, r := range tagRules {
		if p.Has(r.category) && d.DeleteTag(GroupIFD0, r.tag) {
			changed = true
		}
	}
	return changed
}

// Redact prunes an EXIF payload. The payload is either an APP1 body starting
// with Header or the raw TIFF of a PNG eXIf chunk; the result keeps the same
// framing. keep is false when nothing is left. An unchanged document is
// returned as the original bytes.
//
// Redact has the segments.EXIFRewriter signature.
func Redact(payload []byte, p segments.Policy) ([]byte, bool, error) {
	var prefix []byte
	tiff := payload
	if bytes.HasPrefix(payload, Header) {
		prefix = Header
		tiff = payload[len(Header):]
	}

	doc, err := Parse(tiff)
	if err != nil {
		return nil, false, err
	}
	if !doc.Apply(p) {
		return payload, true, nil
	}
	if doc.Empty() {
		return nil, false, nil
	}

	encoded, err := doc.Encode()
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, 0, len(prefix)+len(encoded))
	out = append(out, prefix...)
	return append(out, encoded...), true, nil
}

var _ segments.EXIFRewriter = Redact
