package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx answer from the task API.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// Rejected reports whether the API answered and refused the request (a 4xx). The
// Service hands rejections back to the caller instead of answering locally.
func Rejected(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

// errOffline stands in for the source when the service runs without one.
var errOffline = errors.New("offline")

// sourceErr hides errOffline so deliberate offline runs do not log.
func sourceErr(err error) error {
	if errors.Is(err, errOffline) {
		return nil
	}
	return err
}
