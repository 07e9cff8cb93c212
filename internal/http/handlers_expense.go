package http

import (
	"net/http"

	"fintrack/internal/core"
)

type expenseRequest struct {
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Date        core.Date  `json:"date"`
	Note        string     `json:"note"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	expenses, err := s.repo.ListExpenses(r.Context(), identity.ID)
	if err != nil {
		handleDomainError(w, r, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.finance.CreateExpense(r.Context(), core.Expense{
		UserID:      identity.ID,
		Amount:      req.Amount,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Date:        req.Date,
		Note:        req.Note,
	})
	if err != nil {
		handleDomainError(w, r, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusNotFound, "Expense not found")
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := s.finance.UpdateExpense(r.Context(), core.Expense{
		ID:          id,
		UserID:      identity.ID,
		Amount:      req.Amount,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Date:        req.Date,
		Note:        req.Note,
	})
	if err != nil {
		handleDomainError(w, r, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusNotFound, "Expense not found")
		return
	}

	if err := s.finance.DeleteExpense(r.Context(), identity.ID, id); err != nil {
		handleDomainError(w, r, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}
