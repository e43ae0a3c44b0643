package api

import (
	"net/http"

	"github.com/bher20/eimpactmanager/internal/storage"
)

// redacted replaces stored secrets in responses. Sending it back on PUT keeps
// the stored value.
const redacted = "********"

func (s *server) getEmailConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Notifications.GetConfig(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if cfg == nil {
		cfg = &storage.EmailConfig{}
	}
	if cfg.Password != "" {
		cfg.Password = redacted
	}
	if cfg.APIKey != "" {
		cfg.APIKey = redacted
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *server) saveEmailConfig(w http.ResponseWriter, r *http.Request) {
	var req storage.EmailConfig
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password == redacted || req.APIKey == redacted {
		current, err := s.Notifications.GetConfig(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if current == nil {
			current = &storage.EmailConfig{}
		}
		if req.Password == redacted {
			req.Password = current.Password
		}
		if req.APIKey == redacted {
			req.APIKey = current.APIKey
		}
	}

	if err := s.Notifications.SaveConfig(r.Context(), req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type testEmailRequest struct {
	Config storage.EmailConfig `json:"config"`
	To     string              `json:"to"`
}

func (s *server) testEmailConfig(w http.ResponseWriter, r *http.Request) {
	var req testEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}
	if err := s.Notifications.TestConfig(r.Context(), req.Config, req.To); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
