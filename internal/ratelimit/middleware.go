package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/mercadito/internal/common"
)

// Allower decides whether another event fits in the window for key.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error)
}

// Config describes how to derive a rate limit key and thresholds. When Methods is non-empty only
// requests using one of those methods are counted.
type Config struct {
	Key     func(*http.Request) string
	Window  time.Duration
	Max     int
	Methods []string
}

// WriteMethods lists the state changing HTTP methods.
var WriteMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// ByClientIP keys a limit on the caller address.
func ByClientIP(r *http.Request) string {
	return "ip:" + common.ClientIP(r)
}

// Handler enforces rate limits before delegating to the next handler. Limiter failures let the
// request through.
type Handler struct {
	Limiter Allower
	Config  Config
	OnError func(error)
}

func (h Handler) counts(method string) bool {
	if len(h.Config.Methods) == 0 {
		return true
	}
	for _, m := range h.Config.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Config.Key == nil || !h.counts(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r) + ":" + r.Method
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := max(int(time.Until(resetAt).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "demasiadas solicitudes, intente más tarde",
				map[string]any{"retry_after": retryAfter})
			return
		}

		next.ServeHTTP(w, r)
	})
}
