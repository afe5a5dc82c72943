package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of a failure
type ErrorType string

const (
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeHTTP        ErrorType = "http"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// ErrForbidden is returned by a strict crawl when a listing page answers 403
var ErrForbidden = stderrors.New("listing forbidden: cookies may have expired")

// Error represents a request or storage failure with type information
type Error struct {
	Type    ErrorType
	Code    int
	URL     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Code)
	}
	msg += ": " + e.Message
	if e.URL != "" {
		msg += " (url: " + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given type
func New(t ErrorType, url, message string) *Error {
	return &Error{Type: t, URL: url, Message: message}
}

// Wrap creates an Error of the given type around an underlying error
func Wrap(t ErrorType, url, message string, err error) *Error {
	return &Error{Type: t, URL: url, Message: message, Err: err}
}

// FromStatus classifies an unsuccessful HTTP status code
func FromStatus(code int, url string) *Error {
	t := ErrorTypeHTTP
	switch code {
	case 401, 403:
		t = ErrorTypeAuth
	case 503:
		t = ErrorTypeUnavailable
	}
	return &Error{Type: t, Code: code, URL: url, Message: fmt.Sprintf("unexpected status code %d", code)}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsStatus reports whether err carries the given HTTP status code
func IsStatus(err error, code int) bool {
	return code != 0 && StatusCode(err) == code
}

// Is and As are re-exported so callers need a single errors import
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
