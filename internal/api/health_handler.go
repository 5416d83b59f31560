package api

import (
	"context"
	"net/http"
	"time"

	"interview/internal/utils"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function, such as a sql.DB ping, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks   map[string]Pinger
	provider string
}

func NewHealthHandler(provider string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, provider: provider}
}

func (h *HealthHandler) HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"service":  "interview",
		"provider": h.provider,
	})
}

func (h *HealthHandler) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadinessResponse{Status: "ready", Service: "interview", Checks: make(map[string]ReadinessCheck, len(h.checks))}
	for name, p := range h.checks {
		if p == nil {
			resp.Checks[name] = ReadinessCheck{Status: "failed", Message: name + " not initialized"}
			resp.Status = "not_ready"
			continue
		}
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = ReadinessCheck{Status: "failed", Message: err.Error()}
			resp.Status = "not_ready"
			continue
		}
		resp.Checks[name] = ReadinessCheck{Status: "ok"}
	}

	if resp.Status != "ready" {
		utils.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}
