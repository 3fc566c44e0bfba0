package core

import "errors"

// Error codes for protocol-level errors.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnknownType  = "unknown_type"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeUnauthorized = "unauthorized"
)

var (
	ErrBadRequest  = errors.New("bad request")
	ErrHubStopped  = errors.New("hub stopped")
	ErrUnknownKind = errors.New("unknown moderation action")
)

// Notices delivered to a single connection when policy rejects an intent.
const (
	NoticeBanned = "You are banned"
	NoticeLocked = "Room locked"
	NoticeMuted  = "You are muted"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
