package docharvest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Application error codes.
//
// Callers branch on the code, e.g. to decide whether to retry, and show the
// message to the user.
const (
	EINVALID    = "invalid"
	ENOTFOUND   = "not_found"
	ENETWORK    = "network"
	ETIMEOUT    = "timeout"
	ERATELIMIT  = "rate_limit"
	EPARSE      = "parse"
	EPERMISSION = "permission"
	ECONFIG     = "config"
	EEXTERNAL   = "external"
	ESTORAGE    = "storage"
	EINTERNAL   = "internal"
	EUNKNOWN    = "unknown"
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract out the code & message.
//
// Any non-application error (such as a disk error) should be reported as an
// EUNKNOWN error and the human user should only see "Internal error" as the
// message. These low-level internal error details should only be logged.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string

	// Underlying cause, if any.
	Err error
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docharvest error: code=%s message=%s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("docharvest error: code=%s message=%s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EUNKNOWN.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EUNKNOWN
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError returns an Error with the given code that keeps err as its cause.
func WrapError(code string, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// HTTPStatusCode maps an HTTP response status to an error code.
// Returns an empty string for 2xx and 3xx statuses.
func HTTPStatusCode(status int) string {
	switch {
	case status < 400:
		return ""
	case status == http.StatusTooManyRequests:
		return ERATELIMIT
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return EPERMISSION
	case status == http.StatusNotFound, status == http.StatusGone:
		return ENOTFOUND
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ETIMEOUT
	case status >= 500:
		return ENETWORK
	default:
		return EEXTERNAL
	}
}

// ClassifyError converts transport-level failures into application errors.
// Application errors and nil are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(ETIMEOUT, err, "request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return WrapError(ETIMEOUT, err, "request timed out")
		}
		return WrapError(ENETWORK, err, "network error: %v", err)
	}
	return err
}
