package mailprovider

import "fmt"

// ErrorKind labels a provider failure with a normalized cause so callers
// never have to dig through provider-specific payload shapes.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindAuthExpired ErrorKind = "auth_expired"
	KindNotFound    ErrorKind = "not_found"
	KindUnknown     ErrorKind = "unknown"
)

// Error is the tagged variant produced at the adapter boundary for every
// failed provider call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindForStatus maps an HTTP status to an ErrorKind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuthExpired
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	default:
		return KindUnknown
	}
}

// NewError builds a tagged Error from an HTTP status and raw cause.
func NewError(status int, code, message string, err error) *Error {
	return &Error{
		Kind:       KindForStatus(status),
		StatusCode: status,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}
