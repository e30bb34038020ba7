package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

type limitRequest struct {
	MonthlyLimit optionalLimit `json:"monthly_limit"`
}

// optionalLimit tells an explicit null apart from a missing key.
type optionalLimit struct {
	Set   bool
	Value *int64
}

func (o *optionalLimit) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

type settingsRequest struct {
	LimitsEnabled   *bool `json:"limits_by_category_enabled"`
	NotifyAtPercent *int  `json:"notify_at_percent"`
}

func (s *Server) handleListLimits(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Budget.ListLimits(r.Context(), UserIDFromContext(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []services.LimitView{}
	}
	writeJSON(w, http.StatusOK, views)
}

// handleSetLimit upserts a limit. A null monthly_limit clears it; the key
// itself is required.
func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if !req.MonthlyLimit.Set {
		writeServiceError(w, r, core.NewValidationError("monthly_limit", core.ErrInvalidAmount, "monthly_limit is required, send null to clear"))
		return
	}
	if err := s.svc.Budget.SetLimit(r.Context(), UserIDFromContext(r), chi.URLParam(r, "categoryID"), req.MonthlyLimit.Value); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearLimit(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budget.SetLimit(r.Context(), UserIDFromContext(r), chi.URLParam(r, "categoryID"), nil); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	ref, err := s.refDateQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Budget.Evaluate(r.Context(), UserIDFromContext(r), ref))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Budget.Settings(r.Context(), UserIDFromContext(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings applies only the fields present in the body.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	settings, err := s.svc.Budget.Settings(r.Context(), UserIDFromContext(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	settings.UserID = UserIDFromContext(r)
	if req.LimitsEnabled != nil {
		settings.LimitsEnabled = *req.LimitsEnabled
	}
	if req.NotifyAtPercent != nil {
		settings.NotifyAtPercent = *req.NotifyAtPercent
	}

	updated, err := s.svc.Budget.UpdateSettings(r.Context(), settings)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
