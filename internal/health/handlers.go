package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/noah-isme/mercadito/internal/common"
)

const defaultTimeout = 500 * time.Millisecond

// CheckFunc pings a single dependency.
type CheckFunc func(ctx context.Context) error

// Check is a named readiness check. Optional checks are reported but never fail readiness.
type Check struct {
	Name     string
	Ping     CheckFunc
	Timeout  time.Duration
	Optional bool
}

var draining atomic.Bool

// SetReady toggles readiness. The server flips it off before draining connections on shutdown.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checks []Check
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency checks.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "servidor apagándose", nil)
		return
	}
	if len(h.Checks) == 0 {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sin dependencias configuradas", nil)
		return
	}
	results := make(map[string]string, len(h.Checks))
	ready := true
	checks := append([]Check(nil), h.Checks...)
	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	for _, c := range checks {
		if c.Ping == nil {
			results[c.Name] = "disabled"
			continue
		}
		if err := runCheck(r.Context(), c); err != nil {
			results[c.Name] = err.Error()
			if !c.Optional {
				ready = false
			}
			continue
		}
		results[c.Name] = "ok"
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, map[string]any{"success": ready, "checks": results})
}

func runCheck(ctx context.Context, c Check) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Ping(ctx)
}
