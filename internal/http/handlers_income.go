package http

import (
	"net/http"

	"fintrack/internal/core"
)

// incomeRequest is the create/update payload. Amount accepts both numbers
// and numeric strings; Date accepts YYYY-MM-DD and full timestamps.
type incomeRequest struct {
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
	Note   string     `json:"note"`
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	incomes, err := s.repo.ListIncome(r.Context(), identity.ID)
	if err != nil {
		handleDomainError(w, r, err, "Income not found")
		return
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.finance.CreateIncome(r.Context(), core.Income{
		UserID: identity.ID,
		Amount: req.Amount,
		Date:   req.Date,
		Note:   req.Note,
	})
	if err != nil {
		handleDomainError(w, r, err, "Income not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusNotFound, "Income not found")
		return
	}

	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := s.finance.UpdateIncome(r.Context(), core.Income{
		ID:     id,
		UserID: identity.ID,
		Amount: req.Amount,
		Date:   req.Date,
		Note:   req.Note,
	})
	if err != nil {
		handleDomainError(w, r, err, "Income not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusNotFound, "Income not found")
		return
	}

	if err := s.finance.DeleteIncome(r.Context(), identity.ID, id); err != nil {
		handleDomainError(w, r, err, "Income not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Income deleted successfully"})
}
