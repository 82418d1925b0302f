package common

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ClientIP attempts to determine the real client IP address from the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		if candidate := strings.TrimSpace(strings.Split(ip, ",")[0]); candidate != "" {
			return candidate
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// ParseID reads a positive integer route parameter.
func ParseID(r *http.Request, param string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, Validation("identificador inválido", map[string]any{param: raw})
	}
	return id, nil
}

// AtoiDefault parses a query value, returning def when it is empty or not an integer.
func AtoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

// DecodeJSON decodes the request body into dst. An empty body, malformed JSON or a body
// rejected by the size limiter is reported as a validation error.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return NewAppError(CodeValidation, "el cuerpo de la solicitud es demasiado grande", http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, io.EOF):
			return Validation("el cuerpo de la solicitud está vacío", nil)
		default:
			return Validation("JSON inválido", map[string]any{"error": err.Error()})
		}
	}
	return nil
}
