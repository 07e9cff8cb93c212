package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		errorJSON(w, http.StatusForbidden, "Invalid token")
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

type profilePictureRequest struct {
	ProfilePicture string `json:"profile_picture"`
}

func (s *Server) handleProfilePicture(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		errorJSON(w, http.StatusForbidden, "Invalid token")
		return
	}

	var req profilePictureRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url := strings.TrimSpace(req.ProfilePicture)
	if err := s.repo.UpdateProfilePicture(r.Context(), identity.ID, url); err != nil {
		handleDomainError(w, r, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"profile_picture": url})
}
