package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/n2k-switching-core/internal/bridges/n2k"
	"github.com/nerrad567/n2k-switching-core/internal/device"
	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

// healthCheckTimeout bounds the dependency checks of the health endpoint.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/switch-banks", s.handleListSwitchBanks)
		r.Post("/translate", s.handleTranslate)
	})

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// handleHealth reports the service and dependency status.
// It answers 503 when a dependency check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Checks:  make(map[string]string),
	}

	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			resp.Checks["mqtt"] = "connected"
		} else {
			resp.Checks["mqtt"] = "disconnected"
			resp.Status = "degraded"
		}
	}

	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.database.HealthCheck(ctx); err != nil {
			resp.Checks["database"] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	stats := s.registry.GetStats()
	switch {
	case !stats.Loaded:
		resp.Checks["registry"] = "not loaded"
		resp.Status = "degraded"
	case stats.LastError != "":
		resp.Checks["registry"] = "stale: " + stats.LastError
	default:
		resp.Checks["registry"] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// SwitchBank is one entry of GET /api/v1/switch-banks.
type SwitchBank struct {
	SourceID        string `json:"source_id"`
	DeviceID        string `json:"device_id"`
	Address         int    `json:"address"`
	Instance        uint8  `json:"instance"`
	HardwareVersion string `json:"hardware_version"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	ModelID         string `json:"model_id,omitempty"`
}

// handleListSwitchBanks lists the registry devices a Switch Control message
// can be resolved to, in resolution order. Banks with an invalid instance
// are left out since they can never match.
func (s *Server) handleListSwitchBanks(w http.ResponseWriter, _ *http.Request) {
	banks, err := s.registry.SwitchBanks()
	if errors.Is(err, device.ErrNotLoaded) {
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotLoaded, "source registry not loaded yet")
		return
	}
	if err != nil {
		writeInternalError(w, "reading switch banks")
		return
	}

	out := make([]SwitchBank, 0, len(banks))
	for _, d := range banks {
		instance, err := d.Instance()
		if err != nil {
			continue
		}
		out = append(out, SwitchBank{
			SourceID:        d.SourceID,
			DeviceID:        d.DeviceID,
			Address:         d.Address,
			Instance:        instance,
			HardwareVersion: d.HardwareVersion,
			Manufacturer:    d.Manufacturer,
			ModelID:         d.ModelID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"switch_banks": out,
		"count":        len(out),
	})
}

// handleTranslate dry-runs the router on a posted analyzer message using
// the current registry and conversion flags. Nothing is emitted.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}

	msg, err := n2k.DecodeInbound(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res := switching.Route(msg, s.options, s.registry.Snapshot())
	writeJSON(w, http.StatusOK, switching.NewEvent(msg, res))
}
