// Package oid4vcerr defines the error taxonomy shared by the OpenID4VC engines.
//
// Every failure surfaced by the provider and relying party engines is an *Error
// whose Kind can be tested with errors.Is against the exported sentinels:
//
//	if errors.Is(err, oid4vcerr.ErrNonceMismatch) { ... }
//
// Kinds fall into two families. Protocol rejections (parse and validation
// failures, unsatisfied definitions) mean the input was malformed or tampered
// with and must not be retried. Transport failures (resolution, delivery,
// request fetching) may be retried by the caller.
package oid4vcerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

// Error kinds.
const (
	KindParse                 Kind = "parse"
	KindExpired               Kind = "expired"
	KindNonceMismatch         Kind = "nonce_mismatch"
	KindAudienceMismatch      Kind = "audience_mismatch"
	KindIssuerSubjectMismatch Kind = "issuer_subject_mismatch"
	KindInvalidSignature      Kind = "invalid_signature"
	KindResolution            Kind = "resolution"
	KindNoMatchingCredentials Kind = "no_matching_credentials"
	KindDelivery              Kind = "delivery"
	KindFetch                 Kind = "fetch"
	KindUnsupported           Kind = "unsupported"
	KindInvalidState          Kind = "invalid_state"
)

// Sentinels for errors.Is comparisons.
var (
	ErrParse                 = &Error{Kind: KindParse}
	ErrExpired               = &Error{Kind: KindExpired}
	ErrNonceMismatch         = &Error{Kind: KindNonceMismatch}
	ErrAudienceMismatch      = &Error{Kind: KindAudienceMismatch}
	ErrIssuerSubjectMismatch = &Error{Kind: KindIssuerSubjectMismatch}
	ErrInvalidSignature      = &Error{Kind: KindInvalidSignature}
	ErrResolution            = &Error{Kind: KindResolution}
	ErrNoMatchingCredentials = &Error{Kind: KindNoMatchingCredentials}
	ErrDelivery              = &Error{Kind: KindDelivery}
	ErrFetch                 = &Error{Kind: KindFetch}
	ErrUnsupported           = &Error{Kind: KindUnsupported}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
)

// Error is a classified engine error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "validate response".
	Op  string
	Msg string
	Err error
}

// New creates an Error of the given kind.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, op string, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}

	if e.Msg != "" {
		msg += ": " + e.Msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// Transient reports whether the failure originated in the transport and may be
// retried by the caller.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindResolution, KindDelivery, KindFetch:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err carries a transport-origin *Error.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Transient()
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" when
// err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}

	return e.Kind
}
