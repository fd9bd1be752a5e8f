// Package operation implements the units of work a pipeline runs against one
// source image: resize, read_meta, copy and fingerprint.
//
// Each operation is configured once with Setup, run once, and then reports a
// JSON-serializable result. Run never panics and never returns an error; a
// failure is recorded on the operation and shows up in its result.
//
// The set of operations is closed. Callers dispatch on the concrete type:
//
//	switch op := op.(type) {
//	case *operation.Resize:
//		op.Run(src, bundle, oriented, cache)
//	case *operation.ReadMeta:
//		op.Run(bundle)
//	...
//	}
package operation

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/arion/internal/apperr"
)

// Kind names an operation type as it appears in the command document.
type Kind string

const (
	KindResize      Kind = "resize"
	KindReadMeta    Kind = "read_meta"
	KindCopy        Kind = "copy"
	KindFingerprint Kind = "fingerprint"
)

// Status is the lifecycle state of an operation: DidNotTry -> Pending ->
// Success or Error. Operations are one-shot.
type Status int

const (
	StatusDidNotTry Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "did_not_try"
	}
}

// Operation is implemented by Resize, ReadMeta, Copy and Fingerprint only.
type Operation interface {
	Kind() Kind
	// Setup reads params. It fails only when a required field is absent or
	// malformed; optional fields that do not parse keep their defaults.
	Setup(p Params) error
	Status() Status
	// Err returns the failure recorded by Run, if any.
	Err() error
	// Result returns the JSON-serializable result record.
	Result() any

	sealed()
}

// New returns an unconfigured operation of the named kind.
func New(kind string, logger zerolog.Logger) (Operation, error) {
	b := base{log: logger}
	switch Kind(strings.TrimSpace(kind)) {
	case KindResize:
		b.kind = KindResize
		return newResize(b), nil
	case KindReadMeta:
		b.kind = KindReadMeta
		return &ReadMeta{base: b}, nil
	case KindCopy:
		b.kind = KindCopy
		return &Copy{base: b}, nil
	case KindFingerprint:
		b.kind = KindFingerprint
		return &Fingerprint{base: b}, nil
	}
	return nil, apperr.New(apperr.KindInvalidType, "operation",
		fmt.Errorf("%w: unknown operation type %q", apperr.ErrInvalidType, kind))
}

// base carries the state shared by every operation.
type base struct {
	kind    Kind
	status  Status
	err     error
	elapsed time.Duration
	log     zerolog.Logger
}

func (b *base) Kind() Kind     { return b.kind }
func (b *base) Status() Status { return b.status }
func (b *base) Err() error     { return b.err }
func (b *base) sealed()        {}

// execute runs fn as the body of Run: it moves the operation to Pending,
// converts a panic into an error, records the outcome and logs it. It
// reports whether fn succeeded.
func (b *base) execute(fn func() error) bool {
	start := time.Now()
	b.status = StatusPending
	b.err = nil
	b.log.Debug().Str("op", string(b.kind)).Msg("operation started")

	func() {
		defer func() {
			if r := recover(); r != nil {
				b.err = apperr.Errorf(apperr.KindInternal, string(b.kind), "panic: %v", r)
			}
		}()
		b.err = fn()
	}()

	b.elapsed = time.Since(start)
	if b.err != nil {
		b.status = StatusError
		b.log.Warn().Str("op", string(b.kind)).Dur("duration", b.elapsed).Err(b.err).Msg("operation failed")
		return false
	}
	b.status = StatusSuccess
	b.log.Info().Str("op", string(b.kind)).Dur("duration", b.elapsed).Msg("operation finished")
	return true
}

// errorMessage is the message reported for a failed operation.
func (b *base) errorMessage() string {
	if b.err == nil {
		return ""
	}
	return b.err.Error()
}

// failure is the result record of any operation that did not succeed.
// OutputURL is set by operations that write a file.
type failure struct {
	Type         Kind   `json:"type"`
	Result       bool   `json:"result"`
	OutputURL    string `json:"output_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (b *base) failure() failure {
	return failure{Type: b.kind, Result: false, ErrorMessage: b.errorMessage()}
}
