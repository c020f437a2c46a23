// Package errors provides the error handling system for imagetools.
// It extends Go's standard error handling with structured error codes,
// operation context and key/value details, while staying compatible with
// errors.Is and errors.As from the standard library.
package errors

// ErrorCode represents a specific error condition in imagetools.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Input errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeUnsupported indicates the requested image format cannot be produced or read.
	CodeUnsupported ErrorCode = "UNSUPPORTED_FORMAT"

	// Image processing errors.

	// CodeDecodeFailed indicates the image could not be decoded into pixels.
	// This is terminal for the request; there is no retry.
	CodeDecodeFailed ErrorCode = "DECODE_FAILED"

	// CodeEncodeFailed indicates the encoder failed to produce output.
	CodeEncodeFailed ErrorCode = "ENCODE_FAILED"

	// CodeMalformed indicates the container framing (JPEG markers, PNG chunks)
	// could not be walked.
	CodeMalformed ErrorCode = "MALFORMED_CONTAINER"

	// Resource errors.

	// CodeNotFound indicates a requested file or tool does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates an output file already exists and overwriting is disabled.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Execution errors.

	// CodeStale indicates a job was superseded by a newer request and its result discarded.
	CodeStale ErrorCode = "STALE"

	// System errors.

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
