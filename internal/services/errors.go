// Package services defines the coded error taxonomy shared by discovery,
// retrieval, analysis, descriptor, and lyrics components.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error by the subsystem that raised it.
type Kind string

const (
	KindDiscovery  Kind = "discovery"
	KindRetrieval  Kind = "retrieval"
	KindAnalysis   Kind = "analysis"
	KindDescriptor Kind = "descriptor"
	KindLyrics     Kind = "lyrics"
)

// Discovery error codes.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeEmptySelection        = "EMPTY_SELECTION"
	CodeProviderBinaryMissing = "PROVIDER_BINARY_MISSING"
	CodeProviderQueryFailed   = "PROVIDER_QUERY_FAILED"
	CodeProviderBadResponse   = "PROVIDER_BAD_RESPONSE"
	CodeAuthMissing           = "AUTH_MISSING"
	CodeAuthFailed            = "AUTH_FAILED"
	CodeRateLimited           = "RATE_LIMITED"
)

// Retrieval error codes.
const (
	CodeUnavailable  = "UNAVAILABLE"
	CodeTimeout      = "TIMEOUT"
	CodeToolMissing  = "TOOL_MISSING"
	CodeToolFailed   = "TOOL_FAILED"
	CodeNotProduced  = "NOT_PRODUCED"
	CodeHTTPFailed   = "HTTP_FAILED"
	CodeEmptyContent = "EMPTY_CONTENT"
)

// Analysis and descriptor error codes (opaque degrade signals upstream).
const (
	CodeBadOutput = "BAD_OUTPUT"
)

// Error carries a subsystem kind, a stable short code, and a human message.
// It supports errors.Is/errors.As and unwraps to its cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// FullCode returns the kind-qualified code, e.g. "DISCOVERY_NOT_FOUND".
func (e *Error) FullCode() string {
	return strings.ToUpper(string(e.Kind)) + "_" + e.Code
}

// NewError constructs a coded error without a cause.
func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// WrapError constructs a coded error wrapping a cause.
func WrapError(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// AsError extracts a coded error from err's chain.
func AsError(err error) (*Error, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// IsKind reports whether err carries a coded error of the given kind.
func IsKind(err error, kind Kind) bool {
	if coded, ok := AsError(err); ok {
		return coded.Kind == kind
	}
	return false
}

// IsCode reports whether err carries a coded error with the given code.
func IsCode(err error, code string) bool {
	if coded, ok := AsError(err); ok {
		return coded.Code == code
	}
	return false
}

// ErrorCode returns the kind-qualified code for err, or a generic fallback.
func ErrorCode(err error) string {
	if coded, ok := AsError(err); ok {
		return coded.FullCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return "INTERNAL"
}

// ReasonCode returns a stable lower-case short code for trace entries,
// derived from the error's code (e.g. "binary_missing", "rate_limited").
func ReasonCode(err error) string {
	if coded, ok := AsError(err); ok {
		reason := strings.ToLower(coded.Code)
		reason = strings.TrimPrefix(reason, "provider_")
		return reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "query_failed"
}
