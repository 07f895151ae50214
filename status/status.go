// Package status provides the error taxonomy used across WickDB.
//
// Every error surfaced by the engine carries one of six kinds, an optional
// static message, and an optional underlying cause. The kinds distinguish
// corruption from I/O from logical faults so callers can decide whether to
// retry, resynchronise, or abort.
package status

import (
	"errors"
	"fmt"
)

// Code identifies the kind of an error.
type Code int

const (
	// NotFound means a key or file was absent where the lookup contract
	// permits absence.
	NotFound Code = iota + 1

	// Corruption means a CRC mismatch, malformed header, impossible
	// type/length, truncated fragment sequence, or table decode failure.
	Corruption

	// NotSupported means the engine does not implement the requested feature.
	NotSupported

	// InvalidArgument means a caller-side precondition was violated.
	InvalidArgument

	// CompressionError means block decompression failed within a table.
	CompressionError

	// IOError means the underlying storage failed.
	IOError
)

// String returns the kind name as rendered in error messages.
func (c Code) String() string {
	switch c {
	case NotFound:
		return "NotFoundError"
	case Corruption:
		return "CorruptionError"
	case NotSupported:
		return "NotSupportedError"
	case InvalidArgument:
		return "InvalidArgumentError"
	case CompressionError:
		return "CompressionError"
	case IOError:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// Error is a tagged error with an optional message and an optional cause.
type Error struct {
	Code Code
	Msg  string
	Err  error // underlying cause, may be nil
}

// New returns an error of the given kind with a static message.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Wrap returns an error of the given kind carrying err as its cause.
// A nil err yields the same result as New.
func Wrap(code Code, msg string, err error) error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Error renders the error as
//
//	WickDB error [<kind>] : <msg> , raw : <cause>
//
// with the message and cause segments omitted when absent.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("WickDB error [%s] : %s , raw : %s", e.Code, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("WickDB error [%s] : %s", e.Code, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("WickDB error [%s] : %s", e.Code, e.Err)
	default:
		return fmt.Sprintf("WickDB error [%s]", e.Code)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err or any error in its chain carries the given kind.
func Is(err error, code Code) bool {
	var se *Error
	for errors.As(err, &se) {
		if se.Code == code {
			return true
		}
		err = se.Err
		se = nil
	}
	return false
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return Is(err, NotFound) }

// IsCorruption reports whether err is a Corruption error.
func IsCorruption(err error) bool { return Is(err, Corruption) }

// IsNotSupported reports whether err is a NotSupported error.
func IsNotSupported(err error) bool { return Is(err, NotSupported) }

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool { return Is(err, InvalidArgument) }

// IsCompressionError reports whether err is a CompressionError.
func IsCompressionError(err error) bool { return Is(err, CompressionError) }

// IsIOError reports whether err is an IOError.
func IsIOError(err error) bool { return Is(err, IOError) }
