package exif

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// formatNumber renders v with digits decimals, dropping a trailing ".00".
func formatNumber(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', digits, 64), ".00")
}

// formatExposure renders an exposure time in seconds, as 1/N below one second.
func formatExposure(t float64) string {
	switch {
	case math.IsNaN(t) || t <= 0:
		return ""
	case t >= 1:
		return strconv.FormatFloat(t, 'f', 2, 64) + " s"
	default:
		return fmt.Sprintf("1/%d", int64(math.Round(1/t)))
	}
}

// dmsToDecimal converts degrees, minutes and seconds to signed decimal
// degrees. South and west references are negative.
func dmsToDecimal(dms [3]float64, ref string) float64 {
	dec := dms[0] + dms[1]/60 + dms[2]/3600
	if strings.ContainsAny(strings.ToUpper(ref), "SW") {
		dec = -dec
	}
	return dec
}

// formatDMS renders D° M' S.SS" REF.
func formatDMS(dms [3]float64, ref string) string {
	s := fmt.Sprintf("%s° %s' %s\" %s",
		strconv.FormatFloat(dms[0], 'f', -1, 64),
		strconv.FormatFloat(dms[1], 'f', -1, 64),
		strconv.FormatFloat(dms[2], 'f', 2, 64),
		ref,
	)
	return strings.TrimSpace(s)
}

func formatFileSize(n int) string {
	return fmt.Sprintf("%.2f MB (%d bytes)", float64(n)/1024/1024, n)
}

func megapixels(w, h int) string {
	return strconv.FormatFloat(float64(w)*float64(h)/1_000_000, 'f', 1, 64)
}

// fileType is the upper-cased text after the last dot of name.
func fileType(name string) string {
	return strings.ToUpper(name[strings.LastIndex(name, ".")+1:])
}

var exposurePrograms = map[int]string{
	0: "Not defined",
	1: "Manual",
	2: "Normal program",
	3: "Aperture priority",
	4: "Shutter priority",
	5: "Creative program",
	6: "Action program",
	7: "Portrait mode",
	8: "Landscape mode",
}

var colorSpaces = map[int]string{
	1:      "sRGB",
	2:      "Adobe RGB",
	0xFFFF: "Uncalibrated",
}
