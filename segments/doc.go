// Package segments walks the framing of encoded image containers and removes
// metadata segments selected by a redaction Policy.
//
// A container is a magic signature followed by self-describing,
// length-prefixed segments: JPEG markers up to start-of-scan, or PNG chunks up
// to IEND. The walk is a single linear pass over an immutable input buffer;
// kept segments are copied verbatim (PNG CRCs included) into a new buffer, so
// an empty policy is the identity transform.
//
// The mapping from policy categories to segment kinds is a declarative table
// shared by all formats:
//
//	color/icc  APP2/ICC_PROFILE, iCCP
//	xmp        APP1/XMP, iTXt/XMP
//	software   tEXt, iTXt, iTXt/XMP, zTXt
//	other      tEXt, iTXt, iTXt/XMP, zTXt
//
// EXIF payloads (APP1/Exif, eXIf) are not dropped by the table. When the policy
// touches an EXIF tag group they are handed to an EXIFRewriter, which returns
// the pruned payload or asks for the segment to be removed.
//
// Any framing anomaly (bad signature, truncated segment, inconsistent length)
// aborts the walk with an error matching ErrMalformed; no partial output is
// ever returned.
//
// Example:
//
//	policy, err := segments.ParsePolicy(map[string]bool{"color/icc": true})
//	if err != nil {
//	    return err
//	}
//	res, err := segments.Strip(data, segments.FormatJPEG, policy)
//	if errors.Is(err, segments.ErrMalformed) {
//	    // fall back to a re-encode
//	}
package segments
