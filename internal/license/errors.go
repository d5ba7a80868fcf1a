package license

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Store sentinel errors. Store implementations return these (optionally wrapped).
var (
	// ErrTokenNotFound means no token matched the owner and token string.
	ErrTokenNotFound = errors.New("token not found")
	// ErrDuplicateToken means a generated token string collided with an existing one.
	ErrDuplicateToken = errors.New("duplicate token")
	// ErrCooldownActive means the conditional cooldown write lost against a recent claim.
	ErrCooldownActive = errors.New("claim cooldown active")
)

// Kind classifies a service failure so callers can discriminate it without parsing text.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindTooManyRequests Kind = "too_many_requests"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInvalid         Kind = "invalid"
	KindInternal        Kind = "internal"
)

// RetryAfter describes how long a caller must wait before retrying.
type RetryAfter struct {
	Seconds     int64     `json:"seconds"`
	Days        int       `json:"days"`
	Hours       int       `json:"hours"`
	AvailableAt time.Time `json:"available_at"`
	Label       string    `json:"label"`
}

// NewRetryAfter splits the remaining wait into whole days and hours, rounding
// partial hours up so a fresh 7 day cooldown reads "7d 0h".
func NewRetryAfter(remaining time.Duration, availableAt time.Time) *RetryAfter {
	if remaining < 0 {
		remaining = 0
	}
	totalHours := int(math.Ceil(remaining.Hours()))
	days, hours := totalHours/24, totalHours%24
	return &RetryAfter{
		Seconds:     int64(math.Ceil(remaining.Seconds())),
		Days:        days,
		Hours:       hours,
		AvailableAt: availableAt,
		Label:       fmt.Sprintf("%dd %dh", days, hours),
	}
}

// Error is the error type returned by Service operations.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter *RetryAfter
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func tooManyRequests(msg string, retry *RetryAfter) *Error {
	return &Error{Kind: KindTooManyRequests, Message: msg, RetryAfter: retry}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
