// Package healthprobe aggregates per-component readiness for the engine's
// liveness and readiness endpoints.
package healthprobe

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthChecker tracks which engine components (http server, scanner, feed)
// have reached their running state. Liveness is unconditional; readiness
// requires every registered component.
type HealthChecker struct {
	startTime time.Time

	mu    sync.Mutex
	ready map[string]bool
}

// New creates a checker with the given components registered not-ready.
// With no components the checker is immediately ready.
func New(components ...string) *HealthChecker {
	ready := make(map[string]bool, len(components))
	for _, c := range components {
		ready[c] = false
	}
	return &HealthChecker{
		startTime: time.Now(),
		ready:     ready,
	}
}

// SetReady marks one component. Unregistered components are added, so a
// late-constructed component can still gate readiness.
func (h *HealthChecker) SetReady(component string, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready[component] = ready
}

// SetAll marks every registered component, used when shutdown begins so the
// load balancer stops routing before listeners close.
func (h *HealthChecker) SetAll(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.ready {
		h.ready[c] = ready
	}
}

// waitingOn returns the components still not ready, sorted for stable output.
func (h *HealthChecker) waitingOn() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var waiting []string
	for c, ok := range h.ready {
		if !ok {
			waiting = append(waiting, c)
		}
	}
	sort.Strings(waiting)
	return waiting
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// ReadyResponse is the readiness payload. WaitingOn lists the components
// holding readiness back.
type ReadyResponse struct {
	Status    string   `json:"status"`
	Uptime    string   `json:"uptime"`
	WaitingOn []string `json:"waiting_on,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the process is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK once every component is running, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		waiting := h.waitingOn()
		uptime := time.Since(h.startTime).String()

		w.Header().Set("Content-Type", "application/json")

		if len(waiting) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(ReadyResponse{
				Status:    "not_ready",
				Uptime:    uptime,
				WaitingOn: waiting,
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(ReadyResponse{
			Status: "ready",
			Uptime: uptime,
		})
	}
}
