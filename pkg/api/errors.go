package api

import (
	"errors"
	"fmt"
)

var (
	// ErrRequest is wrapped by every error returned from the client
	ErrRequest = errors.New("race api request failed")
	// ErrNoResult signals an empty response where a value was expected
	ErrNoResult = errors.New("race api returned no result")
)

// StatusError is returned for responses outside the 2xx range
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status code %d, response: %s",
		e.Method, e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrRequest
}
