package domain

import (
	"errors"
	"fmt"
)

// Kind classifies errors for the transport layer; each kind has one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// WithMsg keeps e's kind and identity (errors.Is still matches e) but
// replaces the caller-facing message.
func (e *Error) WithMsg(msg string) error {
	return &Error{Kind: e.Kind, Msg: msg, Err: e}
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrForbidden           = &Error{Kind: KindAuthorization, Msg: "forbidden"}
	ErrDuplicateAccount    = &Error{Kind: KindConflict, Msg: "email already registered"}
	ErrDuplicateSave       = &Error{Kind: KindConflict, Msg: "recipe already saved"}
	ErrInvalidCredentials  = &Error{Kind: KindValidation, Msg: "invalid credentials"}
	ErrTokenExpired        = &Error{Kind: KindAuthentication, Msg: "token expired"}
	ErrTokenInvalid        = &Error{Kind: KindAuthentication, Msg: "invalid token"}
	ErrRefreshRejected     = &Error{Kind: KindAuthentication, Msg: "refresh token rejected"}
	ErrMissingRefreshToken = &Error{Kind: KindValidation, Msg: "refresh token required"}
	ErrRateLimited         = &Error{Kind: KindRateLimit, Msg: "too many requests"}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain; anything
// unclassified is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
