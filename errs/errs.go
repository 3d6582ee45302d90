// Package errs provides structured error types and helpers for the blog client.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies a client error category.
type Code string

const (
	// CodeNetwork indicates a transport failure before any response arrived.
	CodeNetwork Code = "network"
	// CodeInvalid indicates invalid input rejected before any network call.
	CodeInvalid Code = "invalid_request"
	// CodeAuth indicates authentication or authorization failures.
	CodeAuth Code = "auth"
	// CodeNotFound indicates a missing resource.
	CodeNotFound Code = "not_found"
	// CodeDecode indicates a response body that could not be decoded.
	CodeDecode Code = "decode"
	// CodeServer indicates a server-side failure.
	CodeServer Code = "server_error"
	// CodeUnavailable indicates the client is shut down or saturated.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across the client stack.
type E struct {
	Resource string
	Code     Code
	HTTP     int
	Message  string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the resource and error code.
func New(resource string, code Code, opts ...Option) *E {
	e := &E{
		Resource: strings.TrimSpace(resource),
		Code:     code,
		HTTP:     0,
		Message:  "",
		cause:    nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// FromStatus builds an error envelope for a non-2xx HTTP response,
// classifying the status into the client error taxonomy.
func FromStatus(resource string, status int, message string) *E {
	code := CodeServer
	switch {
	case status == 401 || status == 403:
		code = CodeAuth
	case status == 404:
		code = CodeNotFound
	case status >= 400 && status < 500:
		code = CodeInvalid
	}
	return New(resource, code, WithHTTP(status), WithMessage(message))
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	resource := strings.TrimSpace(e.Resource)
	if resource == "" {
		resource = "unknown"
	}
	parts = append(parts, "resource="+resource)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the error code from err, or empty when err is not an *E.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}

// HTTPStatus extracts the HTTP status carried by err, or 0 when absent.
func HTTPStatus(err error) int {
	var e *E
	if errors.As(err, &e) && e != nil {
		return e.HTTP
	}
	return 0
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
