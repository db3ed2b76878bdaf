package packfile

import (
	"errors"
	"fmt"
)

// Error specifies errors returned during packfile parsing.
type Error struct {
	error
}

// NewError returns a new error.
func NewError(reason string) *Error {
	return &Error{errors.New(reason)}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.error
}

// AddDetails adds details to an error, with additional text. The returned
// error still matches e with errors.Is.
func (e *Error) AddDetails(format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	if e.error == nil {
		return &Error{err}
	}
	return &Error{fmt.Errorf("%w: %w", e, err)}
}

var (
	// ErrBadSignature is returned when the packfile signature is incorrect.
	ErrBadSignature = NewError("malformed pack file signature")
	// ErrUnsupportedVersion is returned when the packfile version is
	// not one of the supported values.
	ErrUnsupportedVersion = NewError("unsupported packfile version")
	// ErrMalformedPackfile is returned when the packfile format is incorrect.
	ErrMalformedPackfile = NewError("malformed pack file")
	// ErrTruncatedHeader is returned when the stream ends in the middle of
	// an object header.
	ErrTruncatedHeader = NewError("truncated object header")
	// ErrTruncatedPackfile is returned when the stream ends before the
	// declared number of objects has been read.
	ErrTruncatedPackfile = NewError("truncated pack file")
	// ErrZLib is returned when an object body cannot be decompressed.
	ErrZLib = NewError("zlib reading error")
	// ErrSizeMismatch is returned when the inflated size of an object does
	// not match the size declared in its header.
	ErrSizeMismatch = NewError("inflated size mismatch")
	// ErrDeltaBaseNotFound is returned when an ofs-delta references a base
	// offset that does not belong to a previously seen object.
	ErrDeltaBaseNotFound = NewError("delta base not found")
	// ErrInvalidEncoding is returned when a commit payload to be rewritten
	// is not valid UTF-8.
	ErrInvalidEncoding = NewError("commit payload is not valid UTF-8")
)
