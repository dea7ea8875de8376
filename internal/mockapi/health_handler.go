package mockapi

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Health returns basic liveness
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Check probes one dependency
type Check func(ctx context.Context) error

// HealthCheckResult represents the result of one readiness check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Ready runs every check in parallel and answers 503 if any is down
func Ready(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			results = make(map[string]HealthCheckResult, len(checks))
		)
		for name, check := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := runCheck(ctx, check)
				mu.Lock()
				results[name] = res
				mu.Unlock()
			}()
		}
		wg.Wait()

		status := http.StatusOK
		overall := "ready"
		for _, res := range results {
			if res.Status != "up" {
				status = http.StatusServiceUnavailable
				overall = "not_ready"
			}
		}

		writeJSON(w, status, map[string]any{
			"status":    overall,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    results,
		})
	}
}

func runCheck(ctx context.Context, check Check) HealthCheckResult {
	start := time.Now()
	err := check(ctx)
	res := HealthCheckResult{Status: "up", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = "down"
		res.Error = err.Error()
	}
	return res
}
