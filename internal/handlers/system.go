package handlers

import (
	"net/http"
	"time"
)

// Health check endpoint
// @Summary Liveness check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "UP",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Ready check endpoint
// @Summary Readiness check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{
		"postgres": h.pg != nil && h.pg.Ping(ctx) == nil,
		"redis":    h.redis != nil && h.redis.Ping(ctx) == nil,
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}

	resp := map[string]interface{}{
		"ready":     allHealthy,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	}
	if h.queue != nil {
		resp["queueDepth"] = h.queue.QueueDepth()
	}
	if h.model != nil {
		resp["modelVersion"] = h.model.Version()
	}
	h.jsonResponse(w, status, resp)
}

// Root lists the service endpoints.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": []string{
			"GET /health",
			"GET /ready",
			"GET /metrics",
			"POST /predict",
			"POST /predict/batch",
			"GET /predictions",
			"GET /predictions/{player_name}",
			"POST /predictions/{player_name}/refresh",
			"DELETE /cache/invalidate",
			"POST /training/collect/{player_name}",
			"POST /training/train",
			"GET /training/status",
		},
	})
}
