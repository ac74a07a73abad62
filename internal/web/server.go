// Package web serves the operator dashboard: a JSON API over the
// orchestrator's operations, a WebSocket state feed, Prometheus metrics and
// the embedded single-page UI.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hub-service/internal/core"
	"hub-service/internal/logger"
	"hub-service/internal/types"
)

//go:embed static
var staticFS embed.FS

// Server is the dashboard HTTP server.
type Server struct {
	system *core.HubSystem
	bcast  *Broadcaster
	log    *logger.Logger
	http   *http.Server
}

func NewServer(addr string, system *core.HubSystem, bcast *Broadcaster, log *logger.Logger) *Server {
	s := &Server{
		system: system,
		bcast:  bcast,
		log:    log.WithTag("web"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/mode", s.handleSetMode)
	mux.HandleFunc("POST /api/counts/reset", s.handleReset)
	mux.HandleFunc("POST /api/telemetry-address", s.handleTelemetryAddress)
	mux.HandleFunc("POST /api/simulate/toggle", s.handleSimulatorToggle)
	mux.HandleFunc("POST /api/simulate/event", s.handleSimulateEvent)
	mux.HandleFunc("POST /api/motors/toggle", s.handleMotorsToggle)
	mux.HandleFunc("POST /api/motors/speed", s.handleMotorSpeed)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	staticRoot, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /", http.FileServer(http.FS(staticRoot)))

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
	}
	return s
}

// Start serves until Stop is called. Blocking; run in a goroutine.
func (s *Server) Start() error {
	s.log.Infof("Dashboard listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.bcast.Close()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Snapshot())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.system.SetMode(mode); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "mode": mode})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.system.ResetCounts()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleTelemetryAddress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.system.SetTelemetryAddress(req.Address); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "address": req.Address})
}

func (s *Server) handleSimulatorToggle(w http.ResponseWriter, r *http.Request) {
	enabled := s.system.ToggleSimulator()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": enabled})
}

func (s *Server) handleSimulateEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.system.SimulateEvent(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMotorsToggle(w http.ResponseWriter, r *http.Request) {
	running := s.system.ToggleMotors()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "running": running})
}

func (s *Server) handleMotorSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	applied := s.system.SetMotorSpeed(req.Speed)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "speed": applied})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.bcast.ServeWS(w, r, s.system.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
