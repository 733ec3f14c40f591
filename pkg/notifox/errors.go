package notifox

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	KindInput          ErrorKind = iota + 1 // bad arguments or missing credentials; nothing was sent
	KindAuthentication                      // 401 or 403
	KindRateLimit                           // 429
	KindAPI                                 // any other error status, or an unreadable success body
	KindConnection                          // the request never produced a response
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindAPI:
		return "api"
	case KindConnection:
		return "connection"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind       ErrorKind
	StatusCode int    // zero unless the server answered
	Body       string // raw response body, if any
	Message    string
	Err        error // underlying transport failure, if any
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindAuthentication:
		msg = fmt.Sprintf("authentication failed (%d)", e.StatusCode)
	case KindRateLimit:
		msg = "rate limit exceeded"
	case KindAPI:
		msg = fmt.Sprintf("API error (%d)", e.StatusCode)
	case KindConnection:
		msg = "connection failed"
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}

	if detail := e.detail(); detail != "" {
		msg += ": " + detail
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Body
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later: rate limits
// and server-side (5xx) failures.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit:
		return true
	case KindAPI:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func inputError(format string, args ...any) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

func connectionError(msg string, err error) *Error {
	return &Error{Kind: KindConnection, Message: msg, Err: err}
}

// errorFromStatus creates the error for a non-2xx response.
func errorFromStatus(statusCode int, body, message string) *Error {
	e := &Error{StatusCode: statusCode, Body: body, Message: message}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = KindAuthentication
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimit
	default:
		e.Kind = KindAPI
	}
	return e
}
