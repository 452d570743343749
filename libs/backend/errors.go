package backend

import (
	"errors"
	"fmt"
)

// HTTPError is a non-2xx answer from the backend (or the relay in front of it).
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// NetworkError means the request never produced a response.
type NetworkError struct {
	URL       string
	ProxyMode bool
	Err       error
}

func (e *NetworkError) Error() string {
	if e.ProxyMode {
		return fmt.Sprintf("unable to reach portal proxy at %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("unable to reach API server at %s: %v (cross-origin restrictions may apply; try proxy mode with NEXT_PUBLIC_USE_PROXY=true)", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SuggestsProxy reports whether switching to proxy mode may help.
func (e *NetworkError) SuggestsProxy() bool { return !e.ProxyMode }

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// StatusOf returns the upstream status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
