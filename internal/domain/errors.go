package domain

import (
	"errors"
	"fmt"
)

// Request setup errors. These abort a request before any output is written.
var (
	ErrUnknownDatasetType       = errors.New("unknown dataset type")
	ErrDatasetDirectoryNotFound = errors.New("dataset directory not found")
	ErrInvalidWindow            = errors.New("invalid time window")
	ErrUnknownParameter         = errors.New("unknown parameter")

	// ErrInvalidStart and ErrInvalidStop refine ErrInvalidWindow.
	ErrInvalidStart = fmt.Errorf("%w: start", ErrInvalidWindow)
	ErrInvalidStop  = fmt.Errorf("%w: stop", ErrInvalidWindow)
)

// Per-file decode errors. These end decoding of one container file only.
var (
	ErrTimestampParse        = errors.New("timestamp parse error")
	ErrUnrecognizedRowFormat = errors.New("unrecognized row format")
	ErrInconsistentRowFormat = errors.New("inconsistent row format")
	ErrFieldCountMismatch    = errors.New("field count mismatch")
	ErrEmptyContainerFile    = errors.New("empty container file")
	ErrMalformedValue        = errors.New("malformed numeric value")
)

// DecodeError locates a per-file decode failure. It unwraps to one of the
// per-file sentinel errors so callers can match with errors.Is.
type DecodeError struct {
	Kind    error
	Line    int // 1-based; 0 when the failure is not tied to a line
	Content string
	Err     error // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a stable label for a decode error kind, used in logs and
// metric labels.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrTimestampParse):
		return "timestamp_parse"
	case errors.Is(err, ErrUnrecognizedRowFormat):
		return "unrecognized_row_format"
	case errors.Is(err, ErrInconsistentRowFormat):
		return "inconsistent_row_format"
	case errors.Is(err, ErrFieldCountMismatch):
		return "field_count_mismatch"
	case errors.Is(err, ErrEmptyContainerFile):
		return "empty_container_file"
	case errors.Is(err, ErrMalformedValue):
		return "malformed_value"
	default:
		return "read_error"
	}
}
