package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
)

// Kind classifies a user-facing service error. The transport maps kinds to
// status codes.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is a rejection safe to show to the client. Err is one of the
// sentinels in package common so callers can match with errors.Is.
// Anything that is not an *Error is an internal failure.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// waitSeconds rounds d up to whole seconds, never below one.
func waitSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

func waitMinutes(d time.Duration) int {
	m := int(math.Ceil(d.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}

func throttled(err error, remaining time.Duration) *Error {
	e := newError(KindConflict, err,
		fmt.Sprintf("a verification code was sent recently, please wait %d seconds before requesting a new one", waitSeconds(remaining)))
	e.RetryAfter = remaining
	return e
}

func lockedOut(remaining time.Duration) *Error {
	e := newError(KindAuthentication, common.ErrLockedOut,
		fmt.Sprintf("too many failed sign-in attempts, try again in %d minutes", waitMinutes(remaining)))
	e.RetryAfter = remaining
	return e
}
