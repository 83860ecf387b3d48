package peersdat

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific decode failure.
const (
	// ErrTooShort indicates the buffer cannot hold the fixed-size header.
	ErrTooShort = ErrorKind("ErrTooShort")

	// ErrUnrecognizedMagic indicates the leading network magic is not one
	// of the accepted signatures.
	ErrUnrecognizedMagic = ErrorKind("ErrUnrecognizedMagic")

	// ErrTruncatedRecord indicates the buffer ends before a declared peer
	// record could be read in full.
	ErrTruncatedRecord = ErrorKind("ErrTruncatedRecord")

	// ErrChecksumMismatch indicates the trailing double-SHA256 does not
	// match the payload.  Decode still returns a complete result alongside
	// this error.
	ErrChecksumMismatch = ErrorKind("ErrChecksumMismatch")

	// ErrBadBuffer indicates the buffer is too small to contain a checksum
	// trailer.
	ErrBadBuffer = ErrorKind("ErrBadBuffer")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a decode error.  It has full support for errors.Is and
// errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
