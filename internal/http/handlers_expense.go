package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

type expenseRequest struct {
	Date       string      `json:"date"`
	Amount     core.Amount `json:"amount"`
	CategoryID string      `json:"category_id"`
	Note       string      `json:"note"`
}

// toExpense defaults an empty date to today in the server's zone.
func (s *Server) toExpense(req expenseRequest, userID, id string) (core.Expense, error) {
	date := core.LocalDateKey(s.now().In(s.loc))
	if strings.TrimSpace(req.Date) != "" {
		key, err := core.NormalizeToDateKey(req.Date)
		if err != nil {
			return core.Expense{}, err
		}
		date = key
	}
	return core.Expense{
		ID:         id,
		UserID:     userID,
		CategoryID: strings.TrimSpace(req.CategoryID),
		Date:       date,
		Amount:     req.Amount,
		Note:       sanitizeInput(req.Note),
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	e, err := s.toExpense(req, UserIDFromContext(r), "")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	saved, err := s.svc.Expenses.CreateExpense(r.Context(), e)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	e, err := s.toExpense(req, UserIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	saved, err := s.svc.Expenses.UpdateExpense(r.Context(), e)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Expenses.DeleteExpense(r.Context(), UserIDFromContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rng, err := s.parseRange(query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	expenses, err := s.svc.Expenses.ListExpenses(r.Context(), UserIDFromContext(r), rng, strings.TrimSpace(query.Get("category")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ref, err := s.refDateQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	summary, err := s.svc.Dashboard.Summary(r.Context(), UserIDFromContext(r), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
