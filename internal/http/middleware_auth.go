package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/middleware/trace"
)

type contextKey string

const identityKey contextKey = "identity"

// identityFrom returns the authenticated caller stored by requireAuth.
func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// requireAuth gates a handler behind bearer authentication. A missing token
// is 401, a bad one 403, matching what API clients already expect.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			errorJSON(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		identity, ok := s.claimsCache.Get(token)
		if !ok {
			claims, err := s.tokens.VerifyClaims(token)
			if err != nil {
				errorJSON(w, http.StatusForbidden, "Invalid token")
				return
			}
			identity = claims.Identity

			cacheTTL := time.Duration(0)
			if claims.ExpiresAt != nil {
				cacheTTL = time.Until(claims.ExpiresAt.Time)
				if cacheTTL <= 0 {
					errorJSON(w, http.StatusForbidden, "Invalid token")
					return
				}
			}
			s.claimsCache.SetWithTTL(token, identity, cacheTTL)
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// withAuthRateLimit protects the credential endpoints from brute force.
func (s *Server) withAuthRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow(trace.ClientIP(r)) {
			errorJSON(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
