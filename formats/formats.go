// Package formats describes the image formats the tools read and write and
// resolves the MIME type of incoming data.
package formats

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/eliasnau/imagetools/errors"
)

const (
	MIMEWebP = "image/webp"
	MIMEAVIF = "image/avif"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEICO  = "image/x-icon"
	MIMEGIF  = "image/gif"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"
	MIMEHEIC = "image/heic"
	MIMEHEIF = "image/heif"

	// MIMEOctetStream is what callers declare when they do not know the type.
	MIMEOctetStream = "application/octet-stream"
)

// Spec describes an output format.
type Spec struct {
	MIME          string
	Name          string
	Extension     string
	Description   string
	Lossy         bool
	SupportsAlpha bool
}

var outputs = []Spec{
	{
		MIME:          MIMEWebP,
		Name:          "WebP",
		Extension:     "webp",
		Description:   "Modern lossy/lossless format with good compression balance.",
		Lossy:         true,
		SupportsAlpha: true,
	},
	{
		MIME:          MIMEAVIF,
		Name:          "AVIF",
		Extension:     "avif",
		Description:   "Next-gen codec with very high compression efficiency.",
		Lossy:         true,
		SupportsAlpha: true,
	},
	{
		MIME:          MIMEPNG,
		Name:          "PNG",
		Extension:     "png",
		Description:   "Lossless format supporting transparency.",
		SupportsAlpha: true,
	},
	{
		MIME:        MIMEJPEG,
		Name:        "JPEG",
		Extension:   "jpg",
		Description: "Widely supported lossy photographic format.",
		Lossy:       true,
	},
	{
		MIME:          MIMEICO,
		Name:          "ICO",
		Extension:     "ico",
		Description:   "Multi-resolution icon container (favicons).",
		SupportsAlpha: true,
	},
}

var byMIME = func() map[string]Spec {
	m := make(map[string]Spec, len(outputs))
	for _, s := range outputs {
		m[s.MIME] = s
	}
	return m
}()

// inputNames covers types that can be read but are not offered as outputs.
var inputNames = map[string]string{
	MIMEGIF:  "GIF",
	MIMEBMP:  "BMP",
	MIMETIFF: "TIFF",
	MIMEHEIC: "HEIC",
	MIMEHEIF: "HEIF",
}

var aliases = map[string]string{
	"image/jpg":                MIMEJPEG,
	"image/pjpeg":              MIMEJPEG,
	"image/x-png":              MIMEPNG,
	"image/vnd.microsoft.icon": MIMEICO,
	"image/ico":                MIMEICO,
	"image/x-ms-bmp":           MIMEBMP,
	"image/heic-sequence":      MIMEHEIC,
	"image/heif-sequence":      MIMEHEIF,
}

var extensions = map[string]string{
	"webp": MIMEWebP,
	"avif": MIMEAVIF,
	"png":  MIMEPNG,
	"jpg":  MIMEJPEG,
	"jpeg": MIMEJPEG,
	"jpe":  MIMEJPEG,
	"ico":  MIMEICO,
	"gif":  MIMEGIF,
	"bmp":  MIMEBMP,
	"tif":  MIMETIFF,
	"tiff": MIMETIFF,
	"heic": MIMEHEIC,
	"heif": MIMEHEIF,
}

// Outputs returns the output formats in presentation order.
func Outputs() []Spec {
	out := make([]Spec, len(outputs))
	copy(out, outputs)
	return out
}

// ListOutputMIMEs returns the MIME type of every output format.
func ListOutputMIMEs() []string {
	out := make([]string, len(outputs))
	for i, s := range outputs {
		out[i] = s.MIME
	}
	return out
}

// Lookup returns the output format for mime.
func Lookup(mime string) (Spec, bool) {
	s, ok := byMIME[Normalize(mime)]
	return s, ok
}

// IsLossy reports whether mime is a lossy output format.
func IsLossy(mime string) bool {
	s, ok := Lookup(mime)
	return ok && s.Lossy
}

// SupportsAlpha reports whether mime is an output format with transparency.
func SupportsAlpha(mime string) bool {
	s, ok := Lookup(mime)
	return ok && s.SupportsAlpha
}

// ExtensionFor returns the file extension for an output format, or "".
func ExtensionFor(mime string) string {
	s, _ := Lookup(mime)
	return s.Extension
}

// FormatName returns a display name for mime, falling back to mime itself.
func FormatName(mime string) string {
	if s, ok := Lookup(mime); ok {
		return s.Name
	}
	if name, ok := inputNames[Normalize(mime)]; ok {
		return name
	}
	return mime
}

// Normalize lower-cases mime, strips parameters and resolves common aliases.
func Normalize(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if canonical, ok := aliases[mime]; ok {
		return canonical
	}
	return mime
}

// FromExtension guesses a MIME type from the extension of name.
func FromExtension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return extensions[ext]
}

// Detect returns the MIME type of data. A declared type is trusted unless it
// is empty or the generic octet-stream, in which case the content is sniffed.
func Detect(data []byte, declared string) string {
	declared = Normalize(declared)
	if declared != "" && declared != MIMEOctetStream {
		return declared
	}
	if len(data) == 0 {
		return declared
	}
	return Normalize(mimetype.Detect(data).String())
}

// IsImage reports whether mime names an image type.
func IsImage(mime string) bool {
	return strings.HasPrefix(Normalize(mime), "image/")
}

// ParseOutput resolves a user supplied format (MIME type, extension or
// display name) to an output format.
func ParseOutput(s string) (Spec, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if spec, ok := Lookup(key); ok {
		return spec, nil
	}
	if mime, ok := extensions[strings.TrimPrefix(key, ".")]; ok {
		if spec, ok := byMIME[mime]; ok {
			return spec, nil
		}
	}
	for _, spec := range outputs {
		if strings.EqualFold(spec.Name, key) {
			return spec, nil
		}
	}
	return Spec{}, errors.Newf(errors.CodeUnsupported, "unsupported output format %q", s).
		WithContext("supported", strings.Join(ListOutputMIMEs(), ","))
}
