package davclient

import (
	"errors"
	"fmt"

	"github.com/cyp0633/caldora-events/internal/httpclient"
	"github.com/cyp0633/caldora-events/internal/xml"
)

// ErrorType represents the kind of failure reported by the client
type ErrorType string

const (
	// ErrTransport covers network failures and non-2xx responses.
	ErrTransport ErrorType = "transport"
	// ErrMalformedResponse covers bodies that are not XML and documents
	// missing an element the discovery step needs.
	ErrMalformedResponse ErrorType = "malformed_response"
	// ErrConfiguration covers invalid settings, detected before any request.
	ErrConfiguration ErrorType = "configuration"
)

// Steps reported in Error.Step.
const (
	stepConfig       = "config"
	stepPrincipal    = "principal"
	stepCalendarHome = "calendar-home"
	stepCalendars    = "calendars"
	stepEvents       = "events"
)

// Error represents a failed client operation. Step names the discovery or
// query step that failed.
type Error struct {
	Type ErrorType
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsErrorType reports whether err is an *Error of type t.
func IsErrorType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

func configError(format string, args ...any) error {
	return &Error{Type: ErrConfiguration, Step: stepConfig, Err: fmt.Errorf(format, args...)}
}

// requestError classifies an error returned by the transport.
func requestError(step string, err error) error {
	switch {
	case errors.Is(err, xml.ErrMalformedXML):
		return &Error{Type: ErrMalformedResponse, Step: step, Err: err}
	case errors.Is(err, httpclient.ErrMissingCredentials):
		return &Error{Type: ErrConfiguration, Step: step, Err: err}
	default:
		return &Error{Type: ErrTransport, Step: step, Err: err}
	}
}

func missingElement(step, tag string) error {
	return &Error{Type: ErrMalformedResponse, Step: step, Err: fmt.Errorf("missing %s element", tag)}
}
