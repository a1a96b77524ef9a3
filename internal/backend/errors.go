package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrConnectionTimeout is returned by TestConnection when the deciding probe
// exceeded the probe timeout.
var ErrConnectionTimeout = errors.New("connection timeout")

// BackendError is a non-2xx response from the backend.
type BackendError struct {
	StatusCode int
	StatusText string
	// Detail is the human-readable message extracted from the response body, if any.
	Detail string
}

// Error returns Detail when the backend supplied one, "<status> <statusText>" otherwise.
func (e *BackendError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.StatusText == "" {
		return strconv.Itoa(e.StatusCode)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.StatusText)
}

// newBackendError builds a BackendError from a response, without reading the body.
func newBackendError(resp *http.Response) *BackendError {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &BackendError{
		StatusCode: resp.StatusCode,
		StatusText: text,
	}
}

// IsStatus reports whether err is a BackendError with the given HTTP status.
func IsStatus(err error, code int) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.StatusCode == code
	}
	return false
}
