package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

type dateRequest struct {
	Date string `json:"date"`
}

type confirmAllRequest struct {
	IDs  []string `json:"ids"`
	Date string   `json:"date"`
}

type failureView struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type ensureResponse struct {
	Month    string                     `json:"month"`
	Created  []core.RecurringOccurrence `json:"created"`
	Existing int                        `json:"existing"`
	Failed   []failureView              `json:"failed"`
}

type bulkResponse struct {
	Confirmed []string      `json:"confirmed"`
	Failed    []failureView `json:"failed"`
}

func (s *Server) handleEnsure(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	ref, err := s.refDate(req.Date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := s.svc.Occurrences.EnsureForUser(r.Context(), UserIDFromContext(r), ref)
	if err != nil && len(res.Failed) == 0 {
		writeServiceError(w, r, err)
		return
	}

	out := ensureResponse{
		Month:    res.Month,
		Created:  res.Created,
		Existing: res.Existing,
		Failed:   make([]failureView, 0, len(res.Failed)),
	}
	if out.Created == nil {
		out.Created = []core.RecurringOccurrence{}
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, failureView{ID: f.DefinitionID, Error: f.Err.Error()})
	}

	status := http.StatusOK
	if len(out.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, out)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	ref, err := s.refDateQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := s.svc.Occurrences.ListPendingWithNames(r.Context(), UserIDFromContext(r), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []services.PendingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	occ, err := s.svc.Occurrences.Confirm(r.Context(), UserIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (s *Server) handleOmit(w http.ResponseWriter, r *http.Request) {
	occ, err := s.svc.Occurrences.Omit(r.Context(), UserIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

// handleConfirmAll confirms the listed ids, or every pending occurrence of
// the month when "ids" is absent. An explicit empty list confirms nothing.
// Partial failure answers 207.
func (s *Server) handleConfirmAll(w http.ResponseWriter, r *http.Request) {
	var req confirmAllRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	userID := UserIDFromContext(r)

	var res services.BulkResult
	if req.IDs != nil {
		res = s.svc.Occurrences.ConfirmAll(r.Context(), userID, req.IDs)
	} else {
		ref, err := s.refDate(req.Date)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		res, err = s.svc.Occurrences.ConfirmAllPending(r.Context(), userID, ref)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	out := bulkResponse{Confirmed: res.Confirmed, Failed: make([]failureView, 0, len(res.Failed))}
	if out.Confirmed == nil {
		out.Confirmed = []string{}
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, failureView{ID: f.ID, Error: f.Err.Error()})
	}

	status := http.StatusOK
	if len(out.Failed) > 0 {
		status = http.StatusMultiStatus
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Bulk confirm finished with failures",
			applog.FieldComponent, applog.ComponentOccurrences,
			"confirmed", len(out.Confirmed),
			"failed", len(out.Failed))
	}
	writeJSON(w, status, out)
}
