package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies the outcome of a backend call.
type Kind int

const (
	// KindNone means the call succeeded.
	KindNone Kind = iota
	// KindMissingCredential: the session holds no bearer token; no request was made.
	KindMissingCredential
	// KindUnauthorized: the backend answered 401 or 403.
	KindUnauthorized
	// KindValidationEmpty: the backend answered 422, typically "no results for this filter".
	KindValidationEmpty
	// KindServerError: any other non-2xx status.
	KindServerError
	// KindTransport: network failure or an undecodable response.
	KindTransport
	// KindClientValidation: input rejected locally before any request.
	KindClientValidation
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindMissingCredential:
		return "missing_credential"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidationEmpty:
		return "validation_empty"
	case KindServerError:
		return "server_error"
	case KindTransport:
		return "transport"
	case KindClientValidation:
		return "client_validation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrMissingCredential is returned when a Conn is requested for a session
// without a bearer token.
var ErrMissingCredential = &Error{Kind: KindMissingCredential, Message: "not signed in"}

// Error is the error type returned by every Conn method.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Message string // backend "message" field or a local description
	Op      string // endpoint label, e.g. "loans.list"
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err. nil maps to KindNone and errors that
// did not come from this package map to KindTransport.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// MessageOf returns the user-facing message carried by err, if any.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// classifyStatus maps an HTTP status code to a Kind.
func classifyStatus(code int) Kind {
	switch {
	case code >= 200 && code < 300:
		return KindNone
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindUnauthorized
	case code == http.StatusUnprocessableEntity:
		return KindValidationEmpty
	default:
		return KindServerError
	}
}

// RedirectPolicy decides which outcome kinds send the user back to the
// login page.
type RedirectPolicy func(Kind) bool

// DefaultRedirectPolicy fails closed: every failure except a soft-empty
// result or a local validation error redirects to login. Server errors are
// included to match the dashboard's historical behaviour; callers that want
// to show them in place can supply their own policy.
func DefaultRedirectPolicy(k Kind) bool {
	switch k {
	case KindMissingCredential, KindUnauthorized, KindServerError, KindTransport:
		return true
	default:
		return false
	}
}
