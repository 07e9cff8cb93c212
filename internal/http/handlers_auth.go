package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the shape of both register and login responses.
type authResponse struct {
	User  auth.Identity `json:"user"`
	Token string        `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	user, err := s.repo.CreateUser(r.Context(), core.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			errorJSON(w, http.StatusBadRequest, "Email already in use")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create user", "error", err)
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	identity := auth.Identity{ID: user.ID, Username: user.Username, Email: user.Email}
	token, err := s.tokens.Sign(identity)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to sign token", "error", err)
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, authResponse{User: identity, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.repo.UserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Same response as a bad password: never reveal which was wrong.
			errorJSON(w, http.StatusBadRequest, "Invalid email or password")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to look up user", "error", err)
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			errorJSON(w, http.StatusBadRequest, "Invalid email or password")
			return
		}
		slog.ErrorContext(r.Context(), "Password comparison failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	identity := auth.Identity{ID: user.ID, Username: user.Username, Email: user.Email}
	token, err := s.tokens.Sign(identity)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to sign token", "error", err)
		errorJSON(w, http.StatusInternalServerError, "Server error")
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{User: identity, Token: token})
}
