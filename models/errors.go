package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an AppError by behavior, which decides both the HTTP
// status and whether the message is safe to show to an end user.
type ErrorKind string

const (
	ErrValidation    ErrorKind = "validation"
	ErrAuthorization ErrorKind = "authorization"
	ErrNotFound      ErrorKind = "not_found"
	ErrUpstream      ErrorKind = "upstream"
	ErrQuotaExceeded ErrorKind = "quota_exceeded"
	ErrInternal      ErrorKind = "internal"
)

// AppError is the error type surfaced by every service operation.
type AppError struct {
	Kind    ErrorKind
	Message string
	// ClientMessage, when set, is a sanitized message safe to return to end
	// users (quota denials use this).
	ClientMessage string
	Err           error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind sentinels created with KindError.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// HTTPStatus maps the error kind to its response status.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrAuthorization:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns what a handler may put in the response body.
// Internal and upstream details stay in the logs.
func (e *AppError) PublicMessage() string {
	if e.ClientMessage != "" {
		return e.ClientMessage
	}
	switch e.Kind {
	case ErrValidation, ErrAuthorization, ErrNotFound:
		return e.Message
	default:
		return "something went wrong, please try again later"
	}
}

func NewValidationError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NewAuthorizationError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Kind: ErrUpstream, Message: message, Err: err}
}

func NewQuotaExceededError(message, clientMessage string) *AppError {
	return &AppError{Kind: ErrQuotaExceeded, Message: message, ClientMessage: clientMessage}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: ErrInternal, Message: message, Err: err}
}

// KindError builds a bare sentinel for errors.Is checks against a kind.
func KindError(kind ErrorKind) *AppError {
	return &AppError{Kind: kind}
}

// AsAppError extracts an *AppError from err, wrapping unknown errors as
// internal so handlers always have a kind to map.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: ErrInternal, Message: "unexpected error", Err: err}
}
