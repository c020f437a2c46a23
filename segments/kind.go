package segments

import (
	"bytes"
	"fmt"
	"strings"
)

// Format identifies a container format the scanner understands.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// FormatForMIME maps a declared MIME type to a scannable format.
// Other types bypass the scanner.
func FormatForMIME(mime string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return FormatJPEG, true
	case "image/png", "image/x-png":
		return FormatPNG, true
	default:
		return "", false
	}
}

// Kind is a format-specific segment type identifier produced by classification.
// Segments that carry no metadata of interest have KindNone.
type Kind string

const (
	KindNone Kind = ""

	KindJPEGICC  Kind = "APP2/ICC_PROFILE"
	KindJPEGXMP  Kind = "APP1/XMP"
	KindJPEGEXIF Kind = "APP1/Exif"

	KindPNGICC   Kind = "iCCP"
	KindPNGText  Kind = "tEXt"
	KindPNGIText Kind = "iTXt"
	KindPNGXMP   Kind = "iTXt/XMP"
	KindPNGZText Kind = "zTXt"
	KindPNGEXIF  Kind = "eXIf"
)

// IsEXIF reports whether k carries a TIFF/EXIF payload.
func (k Kind) IsEXIF() bool {
	return k == KindJPEGEXIF || k == KindPNGEXIF
}

// JPEG marker codes, each preceded by 0xFF in the stream.
const (
	markerTEM  = 0x01
	markerSOF0 = 0xC0
	markerDHT  = 0xC4
	markerDAC  = 0xCC
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDQT  = 0xDB
	markerDNL  = 0xDC
	markerDRI  = 0xDD
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
	markerAPP2 = 0xE2
	markerAPPF = 0xEF
	markerCOM  = 0xFE
)

var (
	iccSignature          = []byte("ICC_PROFILE")
	xmpNamespace          = []byte("http://ns.adobe.com/xap/1.0/")
	xmpExtensionNamespace = []byte("http://ns.adobe.com/xmp/extension/")
	exifSignature         = []byte("Exif\x00\x00")
	pngXMPKeyword         = []byte("XML:com.adobe.xmp")
)

func classifyJPEG(marker byte, payload []byte) Kind {
	switch marker {
	case markerAPP1:
		switch {
		case bytes.HasPrefix(payload, exifSignature):
			return KindJPEGEXIF
		case bytes.HasPrefix(payload, xmpNamespace), bytes.HasPrefix(payload, xmpExtensionNamespace):
			return KindJPEGXMP
		}
	case markerAPP2:
		if bytes.HasPrefix(payload, iccSignature) {
			return KindJPEGICC
		}
	}
	return KindNone
}

func classifyPNG(chunkType string, payload []byte) Kind {
	switch chunkType {
	case "iCCP":
		return KindPNGICC
	case "tEXt":
		return KindPNGText
	case "zTXt":
		return KindPNGZText
	case "eXIf":
		return KindPNGEXIF
	case "iTXt":
		keyword := payload
		if i := bytes.IndexByte(payload, 0); i >= 0 {
			keyword = payload[:i]
		}
		if bytes.Equal(keyword, pngXMPKeyword) {
			return KindPNGXMP
		}
		return KindPNGIText
	}
	return KindNone
}

// markerName returns the conventional mnemonic for a JPEG marker.
func markerName(m byte) string {
	switch {
	case m == markerSOI:
		return "SOI"
	case m == markerEOI:
		return "EOI"
	case m == markerSOS:
		return "SOS"
	case m == markerDQT:
		return "DQT"
	case m == markerDHT:
		return "DHT"
	case m == markerDAC:
		return "DAC"
	case m == markerDNL:
		return "DNL"
	case m == markerDRI:
		return "DRI"
	case m == markerCOM:
		return "COM"
	case m == markerTEM:
		return "TEM"
	case m >= markerRST0 && m <= markerRST7:
		return fmt.Sprintf("RST%d", m-markerRST0)
	case m >= markerAPP0 && m <= markerAPPF:
		return fmt.Sprintf("APP%d", m-markerAPP0)
	case m >= markerSOF0 && m <= 0xCF:
		return fmt.Sprintf("SOF%d", m-markerSOF0)
	default:
		return fmt.Sprintf("0x%02X", m)
	}
}
