package server

import (
	"errors"
	"net/http"
	"runtime"

	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/models"
)

// ReportRequest is the payload for POST /api/report.
type ReportRequest struct {
	Names   []string `json:"names"`
	Horizon string   `json:"horizon,omitempty"`
}

// handleReport handles POST /api/report: resolve the names, align the
// series, reconcile the metrics, and hand back the report. Per-name and
// per-field failures degrade inside the report; only an entirely empty
// resolution is user-visible.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ReportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if len(req.Names) == 0 {
		WriteErrorWithCode(w, http.StatusBadRequest, "At least one asset name is required", "empty_request")
		return
	}
	if max := s.app.Config.Analytics.MaxAssets; len(req.Names) > max {
		WriteError(w, http.StatusBadRequest, "Too many asset names")
		return
	}

	horizon := models.Horizon(req.Horizon)
	if req.Horizon == "" {
		horizon = models.Horizon(s.app.Config.Analytics.DefaultHorizon)
	}
	if _, ok := models.ParseHorizon(string(horizon)); !ok {
		WriteError(w, http.StatusBadRequest, "Unsupported horizon: "+req.Horizon)
		return
	}

	report, err := s.app.Analytics.BuildReport(r.Context(), req.Names, horizon)
	if err != nil {
		if errors.Is(err, models.ErrEmptyRequest) {
			WriteErrorWithCode(w, http.StatusUnprocessableEntity,
				"None of the provided names resolved to a symbol", "empty_request")
			return
		}
		s.logger.Error().Err(err).Msg("Report generation failed")
		WriteError(w, http.StatusInternalServerError, "Report generation failed")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// handleHorizons handles GET /api/horizons.
func (s *Server) handleHorizons(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"horizons": models.Horizons(),
		"default":  s.app.Config.Analytics.DefaultHorizon,
	})
}

// handleHealth responds to GET/HEAD /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"started_at": s.app.StartupTime.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// handleVersion responds to GET/HEAD /api/version with version info.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
		"go":      runtime.Version(),
	})
}

// handleConfig responds to GET /api/config with the non-sensitive runtime
// configuration the presentation layer needs.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cfg := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":     cfg.Environment,
		"benchmark":       cfg.Analytics.Benchmark,
		"benchmark_label": cfg.Analytics.BenchmarkLabel,
		"max_assets":      cfg.Analytics.MaxAssets,
		"default_horizon": cfg.Analytics.DefaultHorizon,
	})
}
