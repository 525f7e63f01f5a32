package streamq

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrClosed        = errors.New("streamq: client closed")
	ErrSessionClosed = errors.New("streamq: session closed")
	ErrConsumed      = errors.New("streamq: session already consumed")
	ErrSessionActive = errors.New("streamq: a chat session is already active on this channel")
	ErrEmptyPrompt   = errors.New("streamq: prompt must not be empty")
)

// ErrorKind classifies an ErrorEvent carried in the event stream.
type ErrorKind string

const (
	ErrorKindMalformedFrame ErrorKind = "malformed_frame"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindUnexpectedEOF  ErrorKind = "unexpected_eof"
	ErrorKindServer         ErrorKind = "server"
)

// AuthConfigError indicates the application identifier is missing or
// malformed. It is surfaced at client construction and is fatal.
type AuthConfigError struct {
	AppID string
	Err   error
}

func (e *AuthConfigError) Error() string {
	return fmt.Sprintf("streamq: invalid application id %q: %v", e.AppID, e.Err)
}

func (e *AuthConfigError) Unwrap() error {
	return e.Err
}

// ConnectionError represents a transport-level failure.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("streamq: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("streamq: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RequestError represents a failure local to one chat call. The client
// and its channel remain usable unless the wrapped error is a
// ConnectionError.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("streamq: %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// InvalidOptionError indicates a request option key outside the
// recognized set.
type InvalidOptionError struct {
	Key string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("streamq: unrecognized chat option %q", e.Key)
}

// ProtocolError represents an error frame received outside a chat
// session, e.g. in reply to a list_applications request.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("streamq: protocol error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("streamq: protocol error: %s", e.Message)
}

// EventError is the payload of an ErrorEvent. It also implements error
// so terminal stream errors can be returned from accumulating helpers.
type EventError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *EventError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("streamq: %s [%s]: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("streamq: %s: %s", e.Kind, e.Message)
}
