package browser

import (
	"errors"
	"fmt"
	"net"
)

// NetworkError is a transport-level failure: refused connection, reset,
// timeout or a body that could not be read.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of time.
func (e *NetworkError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ElementNotFoundError means a link, submit control or form field was not in
// the current document. Kind is "link", "button", "field" or "document".
type ElementNotFoundError struct {
	Kind  string
	Query string
	URL   string
}

func (e *ElementNotFoundError) Error() string {
	if e.Kind == "document" {
		return "no document loaded yet"
	}
	return fmt.Sprintf("no %s matching %q on %s", e.Kind, e.Query, e.URL)
}

// NoRedirectError is returned by FollowRedirect when the last response was
// not a 3xx with a Location header.
type NoRedirectError struct {
	Status int
	URL    string
}

func (e *NoRedirectError) Error() string {
	if e.URL == "" {
		return "no response to follow"
	}
	return fmt.Sprintf("response from %s is not a redirect (status %d)", e.URL, e.Status)
}

type TooManyRedirectsError struct {
	Max int
	URL string
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("stopped after %d redirects at %s", e.Max, e.URL)
}

// AssertionError is an expectation mismatch on the last response.
type AssertionError struct {
	Assertion string
	Selector  string
	Expected  any
	Actual    any
	// Detail is an optional diff or hint.
	Detail string
}

func (e *AssertionError) Error() string {
	msg := e.Assertion
	if e.Selector != "" {
		msg += fmt.Sprintf(" [%s]", e.Selector)
	}
	msg += fmt.Sprintf(": expected %v, got %v", e.Expected, e.Actual)
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}
