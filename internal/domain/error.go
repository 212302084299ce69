package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable machine-readable failure class.
type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeFailedPrecond    ErrorCode = "FAILED_PRECONDITION"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeInternal         ErrorCode = "INTERNAL"
)

// Sentinel errors shared across packages.
var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrAdminNotFound   = errors.New("administrator not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrChannelClosed   = errors.New("channel closed")
	ErrInvalidChannel  = errors.New("invalid channel")
	ErrFeedStopped     = errors.New("change feed stopped")
	ErrMemberRequired  = errors.New("target member id required")
	ErrUnknownTarget   = errors.New("unknown target kind")
	ErrInvalidTag      = errors.New("unknown notification type")
	ErrNotPending      = errors.New("member is not pending approval")
	ErrInboxClosed     = errors.New("inbox store is closed")
	ErrMalformedChange = errors.New("malformed change event")
)

// Error carries a code, the failing operation, and an optional cause.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	switch {
	case e.Op == "" && msg == "":
		return string(e.Code)
	case e.Op == "":
		return fmt.Sprintf("%s: %s", e.Code, msg)
	case msg == "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// E builds an Error, filling the message from the cause when omitted.
func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: code, Op: op, Message: msg, Cause: cause}
}

// CodeFrom extracts a code from any error in the chain.
func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrInvalidChannel), errors.Is(err, ErrMemberRequired),
		errors.Is(err, ErrUnknownTarget), errors.Is(err, ErrInvalidTag),
		errors.Is(err, ErrMalformedChange):
		return CodeInvalidArgument, true
	case errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrAdminNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrEmailTaken):
		return CodeAlreadyExists, true
	case errors.Is(err, ErrNotPending):
		return CodeFailedPrecond, true
	case errors.Is(err, ErrChannelClosed), errors.Is(err, ErrFeedStopped), errors.Is(err, ErrInboxClosed):
		return CodeUnavailable, true
	default:
		return "", false
	}
}
