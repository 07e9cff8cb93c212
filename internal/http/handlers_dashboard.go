package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	summary, err := s.repo.Summary(r.Context(), identity.ID)
	if err != nil {
		handleDomainError(w, r, err, "Summary not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	year, month := parseYearMonth(r)

	ms, err := s.repo.MonthlySummary(r.Context(), identity.ID, year)
	if err != nil {
		handleDomainError(w, r, err, "Summary not found")
		return
	}

	// With a month filter only that slot carries data; the arrays stay
	// 12 elements long either way.
	if month != 0 {
		var filtered core.MonthlySummary
		filtered.Income[month-1] = ms.Income[month-1]
		filtered.Expenses[month-1] = ms.Expenses[month-1]
		ms = filtered
	}

	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleReportData(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	year, _ := parseYearMonth(r)

	ms, err := s.repo.MonthlySummary(r.Context(), identity.ID, year)
	if err != nil {
		handleDomainError(w, r, err, "Report not found")
		return
	}

	byCategory, err := s.repo.CategoryTotals(r.Context(), identity.ID)
	if err != nil {
		handleDomainError(w, r, err, "Report not found")
		return
	}

	writeJSON(w, http.StatusOK, core.NewReportData(ms, byCategory))
}
