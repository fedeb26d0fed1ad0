package client

import "fmt"

// ParseError is delivered when a 200 response body is not valid JSON
// for the requested type. Body holds the raw response text.
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("client error: parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StatusError is delivered for any response other than 200.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.URL, e.StatusCode)
}

// TransportError is delivered when no response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
