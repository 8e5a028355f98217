// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and sentinel errors shared by every layer of the
// connection runtime. Errors never cross the actor boundary as panics;
// they are always explicit return values.

package api

import "fmt"

// Sentinel errors returned synchronously to callers of the client API.
var (
	ErrNotConnected          = fmt.Errorf("not_connected")
	ErrStreamNotFound        = fmt.Errorf("stream_not_found")
	ErrInvalidStreamStatus   = fmt.Errorf("invalid_stream_status")
	ErrRateLimited           = fmt.Errorf("rate_limited")
	ErrQueueFull             = fmt.Errorf("queue_full")
	ErrSubscriptionNotFound  = fmt.Errorf("subscription_not_found")
	ErrMissingCredentials    = fmt.Errorf("missing_credentials")
	ErrInvalidState          = fmt.Errorf("invalid_state")
	ErrInvalidTransition     = fmt.Errorf("invalid_transition")
	ErrInvalidFrame          = fmt.Errorf("invalid_frame")
	ErrInvalidTextData       = fmt.Errorf("invalid_text_data")
	ErrControlFrameTooLarge  = fmt.Errorf("control_frame_too_large")
	ErrInvalidCloseCode      = fmt.Errorf("invalid_close_code")
	ErrReservedCloseCode     = fmt.Errorf("reserved_close_code")
	ErrMaxAttemptsReached    = fmt.Errorf("max_attempts_reached")
	ErrTerminalError         = fmt.Errorf("terminal_error")
	ErrConnectionRegistryGap = fmt.Errorf("connection not registered")
)

// ErrorCode classifies structured errors raised by internal subsystems
// that are not already one of the sentinels above.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeInternal
)

// Error is a structured error with an attached context bag, used where a
// plain sentinel does not carry enough information for the caller (e.g.
// ConnectionOptions validation failures).
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorKind names the error-handling classes from the error design: a
// transient connection_error, a normal message_error, a critical auth_error,
// an unrecoverable critical_error, or a synchronous rate-limit rejection.
// ErrorHandler.LogError receives it, so the default error handler buckets
// on this instead of inspecting message text.
type ErrorKind int

const (
	KindConnection ErrorKind = iota
	KindMessage
	KindAuth
	KindCritical
	KindRateLimit
	KindTerminal
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection_error"
	case KindMessage:
		return "message_error"
	case KindAuth:
		return "auth_error"
	case KindCritical:
		return "critical_error"
	case KindRateLimit:
		return "rate_limit_exceeded"
	case KindTerminal:
		return "terminal_error"
	default:
		return "unknown_error"
	}
}
