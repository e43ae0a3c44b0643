package api

import (
	"net/http"

	"github.com/bher20/eimpactmanager/internal/auth"
	"github.com/bher20/eimpactmanager/internal/storage"
)

type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ExpiresIn string `json:"expires_in"`
}

type tokenRequest struct {
	Name      string `json:"name"`
	ExpiresIn string `json:"expires_in"`
}

// tokenResponse returns the raw token once; only its hash is stored.
type tokenResponse struct {
	Token    string         `json:"token"`
	Metadata *storage.Token `json:"metadata"`
}

// defaultLoginExpiry applies when a login does not ask for one.
const defaultLoginExpiry = "24h"

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil {
		writeError(w, http.StatusNotFound, "authentication is disabled")
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExpiresIn == "" {
		req.ExpiresIn = defaultLoginExpiry
	}
	if _, err := auth.ParseExpirationDuration(req.ExpiresIn); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tok, raw, err := s.Auth.Login(r.Context(), req.Username, req.Password, req.ExpiresIn)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: raw, Metadata: tok})
}

// createToken issues an API token for the caller with the caller's role.
func (s *server) createToken(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil {
		writeError(w, http.StatusNotFound, "authentication is disabled")
		return
	}
	caller, ok := r.Context().Value(auth.TokenContextKey).(*storage.Token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	exp, err := auth.ParseExpirationDuration(req.ExpiresIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tok, raw, err := s.Auth.CreateToken(r.Context(), caller.UserID, req.Name, caller.Role, exp)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: raw, Metadata: tok})
}
