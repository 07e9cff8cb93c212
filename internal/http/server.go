// Package http exposes the REST API of the finance tracker.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// Config holds what the server needs beyond its collaborators.
type Config struct {
	Addr              string
	CORSOrigin        string
	AuthRatePerMinute int
}

type Server struct {
	http.Server

	finance *services.FinanceService
	repo    store.Repository
	tokens  *auth.TokenManager

	// Verified-claims cache keyed by token string, so repeat requests skip
	// the signature check. Entries never outlive the token expiry.
	claimsCache *cache.LRUCache[auth.Identity]
	authLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, finance *services.FinanceService, tokens *auth.TokenManager) *Server {
	mux := http.NewServeMux()

	s := &Server{
		finance:     finance,
		repo:        finance.Repo(),
		tokens:      tokens,
		claimsCache: cache.NewLRUCache[auth.Identity](1000, 5*time.Minute),
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.AuthRatePerMinute,
		}),
	}

	// Credential endpoints: rate limited, no bearer token.
	mux.HandleFunc("POST /api/auth/register", s.withAuthRateLimit(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withAuthRateLimit(s.handleLogin))

	// Everything else under /api requires a valid token.
	mux.HandleFunc("GET /api/users/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("PUT /api/users/me/profile-picture", s.requireAuth(s.handleProfilePicture))

	mux.HandleFunc("GET /api/incomes", s.requireAuth(s.handleListIncomes))
	mux.HandleFunc("POST /api/incomes", s.requireAuth(s.handleCreateIncome))
	mux.HandleFunc("PUT /api/incomes/{id}", s.requireAuth(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.requireAuth(s.handleDeleteIncome))

	mux.HandleFunc("GET /api/expenses", s.requireAuth(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.requireAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireAuth(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/dashboard/summary", s.requireAuth(s.handleDashboardSummary))
	mux.HandleFunc("GET /api/finance/monthly-summary", s.requireAuth(s.handleMonthlySummary))
	mux.HandleFunc("GET /api/report-data", s.requireAuth(s.handleReportData))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	// Outermost first: trace wraps everything, then security headers, then
	// CORS (which short-circuits preflight before routing).
	traceMW := trace.NewMiddleware(nil)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	corsMW := security.NewCORSMiddleware(cfg.CORSOrigin)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           traceMW.Middleware(headersMW.Middleware(corsMW.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		errorJSON(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops the HTTP server and the background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.authLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
