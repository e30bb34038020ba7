package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

type definitionRequest struct {
	Name       string      `json:"name"`
	Amount     core.Amount `json:"amount"`
	DayOfMonth int         `json:"day_of_month"`
	Active     *bool       `json:"active"`
}

func (req definitionRequest) toDefinition(userID, id string) core.RecurringDefinition {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return core.RecurringDefinition{
		ID:         id,
		UserID:     userID,
		Name:       sanitizeInput(req.Name),
		Amount:     req.Amount,
		DayOfMonth: req.DayOfMonth,
		Active:     active,
	}
}

type categoryRequest struct {
	Name     string `json:"name"`
	IconName string `json:"icon_name"`
	Active   *bool  `json:"active"`
}

func (req categoryRequest) toCategory(userID, id string) core.CategoryDefinition {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return core.CategoryDefinition{
		ID:       id,
		UserID:   userID,
		Name:     sanitizeInput(req.Name),
		IconName: sanitizeInput(req.IconName),
		Active:   active,
	}
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := s.svc.Definitions.List(r.Context(), UserIDFromContext(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if defs == nil {
		defs = []core.RecurringDefinition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	def, err := s.svc.Definitions.Create(r.Context(), req.toDefinition(UserIDFromContext(r), ""))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.svc.Definitions.Get(r.Context(), UserIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	def, err := s.svc.Definitions.Update(r.Context(), req.toDefinition(UserIDFromContext(r), chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// Occurrences already created from the definition are kept.
func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Definitions.Delete(r.Context(), UserIDFromContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.List(r.Context(), UserIDFromContext(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.CategoryDefinition{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	cat, err := s.svc.Categories.Create(r.Context(), req.toCategory(UserIDFromContext(r), ""))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// An omitted "active" re-activates the category.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	cat, err := s.svc.Categories.Update(r.Context(), req.toCategory(UserIDFromContext(r), chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), UserIDFromContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
