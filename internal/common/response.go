package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success renders the canonical success envelope.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"success": true, "data": data})
}

// SuccessMessage renders the success envelope with a human readable message.
func SuccessMessage(w http.ResponseWriter, status int, message string, data any) {
	body := map[string]any{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	JSON(w, status, body)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// WriteError maps err onto the error taxonomy and renders it. Server-side failures are logged
// through the request logger; their underlying cause is only exposed when debug is set.
func WriteError(w http.ResponseWriter, r *http.Request, err error, debug bool) {
	if err == nil {
		JSONError(w, http.StatusInternalServerError, CodeInternal, "error desconocido", nil)
		return
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal("error interno", err)
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := appErr.Code
	if code == "" {
		code = CodeInternal
	}
	body := ErrorBody{Code: code, Message: appErr.Message, Details: appErr.Details}
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("request failed")
		if debug && appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
	}
	JSON(w, status, body)
}
