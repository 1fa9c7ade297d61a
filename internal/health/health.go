// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Handler runs named readiness checks. Register checks before serving.
type Handler struct {
	checks  map[string]Check
	timeout time.Duration
}

// New creates a Handler whose checks share a single timeout per probe.
func New(timeout time.Duration) *Handler {
	return &Handler{
		checks:  make(map[string]Check),
		timeout: timeout,
	}
}

// Add registers a readiness check under name.
func (h *Handler) Add(name string, c Check) {
	h.checks[name] = c
}

// Healthz returns 200 "ok\n" unconditionally.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" when every check passes, otherwise 503 naming
// the first failing check.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain")
	if err := h.Check(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "not ready: %v\n", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}

// Check runs every registered check in name order and stops at the first
// failure.
func (h *Handler) Check(ctx context.Context) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
