// Package apperr defines the error kinds surfaced at the API boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindExpired           Kind = "expired"
	KindNotConfigured     Kind = "not_configured"
	KindInvalidSignature  Kind = "invalid_signature"
	KindCapacityExhausted Kind = "capacity_exhausted"
	KindStore             Kind = "store"
	KindGateway           Kind = "gateway"
	KindRateLimited       Kind = "rate_limited"
)

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidSignature:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound, KindExpired:
		return http.StatusNotFound
	case KindCapacityExhausted:
		return http.StatusServiceUnavailable
	case KindGateway:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a caller-safe message and the underlying cause.
// Only Message is ever shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
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

// Is matches another *Error by kind so errors.Is(err, apperr.NotFound(""))
// style checks work against sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Expired(message string) *Error      { return New(KindExpired, message) }
func NotConfigured(message string) *Error {
	return New(KindNotConfigured, message)
}
func InvalidSignature(message string) *Error {
	return New(KindInvalidSignature, message)
}
func CapacityExhausted(message string) *Error {
	return New(KindCapacityExhausted, message)
}

func RateLimited(message string) *Error {
	return New(KindRateLimited, message)
}

func Store(err error) *Error {
	return Wrap(KindStore, "storage failure", err)
}

func Gateway(err error) *Error {
	return Wrap(KindGateway, "payment gateway failure", err)
}

// Sentinels for errors.Is checks. They match any message of their kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrExpired           = &Error{Kind: KindExpired}
	ErrNotConfigured     = &Error{Kind: KindNotConfigured}
	ErrInvalidSignature  = &Error{Kind: KindInvalidSignature}
	ErrCapacityExhausted = &Error{Kind: KindCapacityExhausted}
	ErrStore             = &Error{Kind: KindStore}
	ErrGateway           = &Error{Kind: KindGateway}
)

// KindOf returns the kind of the first *Error in err's chain.
// Untyped errors are treated as store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// Retryable reports whether the same request may succeed if repeated.
// Payment and gateway failures are never retryable without an idempotency key.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStore, KindCapacityExhausted:
		return true
	default:
		return false
	}
}
