package cli

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rileyhilliard/diagterm/internal/backend"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/session"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound     = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
	ErrCodeNotConnected       = "NOT_CONNECTED"
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeBackendTimeout     = "BACKEND_TIMEOUT"
	ErrCodeBackendHTTP        = "BACKEND_HTTP"
	ErrCodePermission         = "PERMISSION_REQUIRED"
	ErrCodeStorage            = "STORAGE_FAILED"
	ErrCodeCommandFailed      = "COMMAND_FAILED"
	ErrCodeUsage              = "USAGE"
	ErrCodeUnknown            = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	env := JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var dtErr *dterrors.Error
	if errors.As(err, &dtErr) {
		out := &JSONError{
			Code:       mapErrorCode(dtErr),
			Message:    dtErr.Message,
			Suggestion: dtErr.Suggestion,
		}
		if dtErr.Cause != nil {
			out.Details = backendDetails(dtErr.Cause)
		}
		return out
	}

	if code := backendCode(err); code != "" {
		return &JSONError{
			Code:    code,
			Message: err.Error(),
			Details: backendDetails(err),
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(e *dterrors.Error) string {
	switch e.Code {
	case dterrors.ErrConfig:
		msgLower := strings.ToLower(e.Message)
		if strings.Contains(msgLower, "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case dterrors.ErrBackend:
		if code := backendCode(e.Cause); code != "" {
			return code
		}
		return ErrCodeBackendUnreachable
	case dterrors.ErrPermission:
		return ErrCodePermission
	case dterrors.ErrStorage:
		return ErrCodeStorage
	case dterrors.ErrExec:
		if code := backendCode(e.Cause); code != "" {
			return code
		}
		return ErrCodeCommandFailed
	case dterrors.ErrUsage:
		return ErrCodeUsage
	}
	return ErrCodeUnknown
}

// backendCode classifies errors from the backend client, or returns "".
func backendCode(err error) string {
	if err == nil {
		return ""
	}
	var be *backend.BackendError
	switch {
	case errors.Is(err, session.ErrNotConnected):
		return ErrCodeNotConnected
	case errors.Is(err, backend.ErrConnectionTimeout):
		return ErrCodeBackendTimeout
	case errors.As(err, &be):
		return ErrCodeBackendHTTP
	}
	return ""
}

// backendDetails exposes the HTTP status of a backend refusal.
func backendDetails(err error) interface{} {
	var be *backend.BackendError
	if !errors.As(err, &be) {
		return nil
	}
	return map[string]interface{}{
		"status":      be.StatusCode,
		"status_text": be.StatusText,
	}
}
