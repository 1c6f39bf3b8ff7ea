// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeInvalidResponse
	ErrTypeCanceled
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches another *ClientError of the same type, so the sentinels work
// with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Status == 0 || t.Status == e.Status)
}

// Sentinel errors for easy checking.
var (
	ErrUnavailable = &ClientError{Type: ErrTypeConnection, Message: "backend is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrCanceled    = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
	ErrNotFound    = &ClientError{Type: ErrTypeStatus, Status: http.StatusNotFound, Message: "not found"}
)

// IsTimeout reports whether err is a client timeout.
func IsTimeout(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeTimeout
}

// IsCanceled reports whether err came from a canceled request context.
func IsCanceled(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeCanceled
}

// IsStatus reports whether err is an HTTP status error with the given code.
// A code of 0 matches any status error.
func IsStatus(err error, code int) bool {
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeStatus {
		return false
	}
	return code == 0 || ce.Status == code
}

// transportError classifies an http.Client.Do or body read failure.
func transportError(ctx context.Context, msg string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: msg, Cause: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: msg, Cause: err}
	default:
		return &ClientError{Type: ErrTypeConnection, Message: msg, Cause: err}
	}
}
