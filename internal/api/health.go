package api

import (
	"net/http"

	"github.com/mattjoyce/printmesh/internal/wire"
)

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, wire.HealthResponse{
		Status:    "ok",
		PID:       s.pid,
		Version:   s.config.Version,
		Timestamp: s.now().UTC(),
	})
}

// handleVersion handles GET /health/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, wire.VersionResponse{Version: s.config.Version, Timestamp: s.now().UTC()})
}

// handleUpdate handles GET /health/update. A failed check reports no update.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	resp := wire.UpdateResponse{CurrentVersion: s.config.Version}

	info, err := s.deps.Updates.Check(r.Context())
	if err != nil {
		s.logger.Warn("update check failed", "error", err)
	}
	if info != nil {
		resp.UpdateAvailable = true
		resp.NewVersion = info.Version
		resp.DownloadURL = info.DownloadURL
		resp.ReleaseNotes = info.ReleaseNotes
	}
	respondJSON(w, http.StatusOK, resp)
}
