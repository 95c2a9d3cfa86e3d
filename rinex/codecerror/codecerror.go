// The codecerror package defines the errors returned by the RINEX codec.
//
// Every error carries a Kind, so a caller can find out what went wrong
// without matching message text:
//
//	if errors.Is(err, codecerror.MissingHeaderTerminator) {
//	    ...
//	}
package codecerror

import (
	"errors"
	"fmt"
)

// Kind identifies a class of codec failure.  A Kind is itself an error so
// it can be used as the target of errors.Is.
type Kind int

const (
	// MalformedHeaderField - a header line could not be decoded, or its
	// label is not one that RINEX 3 defines.
	MalformedHeaderField Kind = iota + 1

	// MissingHeaderTerminator - the input ran out (or the data section
	// started) before the END OF HEADER line was seen.
	MissingHeaderTerminator

	// MissingHeaderField - a header field that a strict read requires
	// was never supplied.
	MissingHeaderField

	// UndeclaredSatelliteSystem - a data line refers to a satellite
	// system that has no SYS / # / OBS TYPES entry in the header.
	UndeclaredSatelliteSystem

	// ObservationCountMismatch - the number of observation codes or
	// values doesn't agree with the number declared.
	ObservationCountMismatch

	// MalformedDataField - an epoch line or a satellite line contains a
	// field that can't be decoded.
	MalformedDataField

	// EpochOutOfOrder - an epoch is earlier than the one before it.
	EpochOutOfOrder

	// NumericFieldOverflow - a value is too wide for its column.
	NumericFieldOverflow

	// TruncatedRecord - the input ended part way through a data record.
	TruncatedRecord

	// InconsistentWriterInput - the header and records given to the
	// writer don't agree with each other.
	InconsistentWriterInput
)

var kindNames = map[Kind]string{
	MalformedHeaderField:      "malformed header field",
	MissingHeaderTerminator:   "missing END OF HEADER",
	MissingHeaderField:        "missing header field",
	UndeclaredSatelliteSystem: "undeclared satellite system",
	ObservationCountMismatch:  "observation count mismatch",
	MalformedDataField:        "malformed data field",
	EpochOutOfOrder:           "epoch out of order",
	NumericFieldOverflow:      "numeric field overflow",
	TruncatedRecord:           "truncated record",
	InconsistentWriterInput:   "inconsistent writer input",
}

// String returns the name of the kind.
func (k Kind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
	return name
}

// Error satisfies the error interface.
func (k Kind) Error() string {
	return k.String()
}

// Error is the error returned by the codec.
type Error struct {
	// Kind says what class of failure this is.
	Kind Kind

	// Line is the one-based number of the input line that caused the
	// failure, or 0 if the failure isn't tied to an input line (for
	// example a writer error).
	Line int

	// Context names the thing that failed - a header label, a satellite
	// ID and so on.  It may be empty.
	Context string

	// Detail is a human-readable explanation.
	Detail string

	cause error
}

// New creates an Error.
func New(kind Kind, line int, context string, detail string) *Error {
	return &Error{Kind: kind, Line: line, Context: context, Detail: detail}
}

// Newf creates an Error with a formatted detail message.
func Newf(kind Kind, line int, context string, format string, args ...interface{}) *Error {
	return New(kind, line, context, fmt.Sprintf(format, args...))
}

// Wrap creates an Error caused by another error.
func Wrap(kind Kind, line int, context string, cause error) *Error {
	e := New(kind, line, context, "")
	if cause != nil {
		e.Detail = cause.Error()
	}
	e.cause = cause
	return e
}

// Error satisfies the error interface.  The message looks like
//
//	line 12: malformed header field: INTERVAL: not a number "abc"
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if len(e.Context) > 0 {
		msg += ": " + e.Context
	}
	if len(e.Detail) > 0 {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports whether the target is the Kind of this error, or an Error
// of the same Kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return t != nil && e.Kind == t.Kind
	}
	return false
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the Kind of the given error, or 0 if it isn't a codec
// error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

// WithLine returns a copy of the error with the line number set.  Errors
// from the line-level decoders don't know their position in the file, so
// the parser fills it in.  Non-codec errors are wrapped as the given kind.
func WithLine(err error, line int, fallback Kind) *Error {
	var e *Error
	if errors.As(err, &e) {
		c := *e
		c.Line = line
		return &c
	}
	return Wrap(fallback, line, "", err)
}
