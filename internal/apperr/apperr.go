// Package apperr defines the closed set of error kinds reported by arion.
//
// Every failure that reaches a report is an *Error carrying a Kind, the name
// of the step that failed and the underlying cause. Callers classify errors
// with KindOf or IsKind rather than comparing message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for reporting and exit-code decisions.
type Kind string

const (
	KindSetup         Kind = "setup"
	KindInvalidType   Kind = "invalid_type"
	KindInvalidParam  Kind = "invalid_param"
	KindGeometry      Kind = "geometry"
	KindResourceLimit Kind = "resource_limit"
	KindDecode        Kind = "decode"
	KindEncode        Kind = "encode"
	KindIO            Kind = "io"
	KindMetadata      Kind = "metadata"
	KindInternal      Kind = "internal"
)

// Error is the structured error type used throughout the module.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error formats as "op: err". The kind is not part of the message; use
// KindOf to read it.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprint(e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates an Error with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap wraps err with a kind and op. A nil err stays nil, and an err that
// already carries a kind keeps it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return New(kind, op, err)
}

// KindOf returns the kind of the outermost *Error in err's chain, or the
// empty Kind when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Sentinel errors for the failure modes callers test for.
var (
	ErrZeroDimension        = errors.New("height and width must be greater than zero")
	ErrTooManyPixels        = errors.New("requested size exceeds the pixel limit")
	ErrEmptyRaster          = errors.New("image has no pixels")
	ErrInvalidType          = errors.New("invalid type")
	ErrMissingParam         = errors.New("missing required parameter")
	ErrUnsupportedContainer = errors.New("metadata can only be written to JPEG files")
	ErrNoAlpha              = errors.New("watermark image has no alpha channel")
	ErrNoSource             = errors.New("no source image")
)
