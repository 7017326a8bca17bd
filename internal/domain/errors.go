package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the presentation layer.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindMissingCredential ErrorKind = "missing_credential"
	KindTransportFailure  ErrorKind = "transport_failure"
	KindUnknownProfile    ErrorKind = "unknown_profile"
	KindNoCaptureData     ErrorKind = "no_capture_data"
	KindCapture           ErrorKind = "capture"
	KindPlayback          ErrorKind = "playback"
	KindInternal          ErrorKind = "internal"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrTransportFailure  = errors.New("transport failure")
	ErrUnknownProfile    = errors.New("unknown profile")
	ErrNoCaptureData     = errors.New("no capture data")
)

// Error attaches the failing operation to one of the sentinel errors above.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindMissingCredential:
		return target == ErrMissingCredential
	case KindTransportFailure:
		return target == ErrTransportFailure
	case KindUnknownProfile:
		return target == ErrUnknownProfile
	case KindNoCaptureData:
		return target == ErrNoCaptureData
	}
	return false
}

func MissingCredential(op string) error {
	return &Error{Kind: KindMissingCredential, Op: op, Err: ErrMissingCredential}
}

func TransportFailure(op string, err error) error {
	return &Error{Kind: KindTransportFailure, Op: op, Err: err}
}

// KindOf maps an error to its kind. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrTransportFailure):
		return KindTransportFailure
	case errors.Is(err, ErrUnknownProfile):
		return KindUnknownProfile
	case errors.Is(err, ErrNoCaptureData):
		return KindNoCaptureData
	}
	return KindInternal
}
