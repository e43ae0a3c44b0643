package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bher20/eimpactmanager/internal/advisor"
	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/metrics"
)

// aiRecommendations answers from the model, or from the rule engine when no
// model is configured. Model failures are 502.
func (s *server) aiRecommendations(w http.ResponseWriter, r *http.Request) {
	var req advisor.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Advisor.Recommend(r.Context(), req)
	switch {
	case errors.Is(err, calc.ErrInvalidInput):
		writeServiceError(w, r, err)
		return
	case err != nil:
		log.Warn().Err(err).Str("user", userID(r)).Msg("ai recommendations failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	metrics.ObserveCalculation("ai_recommendations")
	metrics.RecommendationsServed.Observe(float64(len(res.Recommendations)))
	writeJSON(w, http.StatusOK, res)
}

func (s *server) advisorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Advisor.Status())
}

type advisorTestResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Reply  string `json:"reply"`
}

func (s *server) testAdvisor(w http.ResponseWriter, r *http.Request) {
	reply, err := s.Advisor.TestConnection(r.Context())
	switch {
	case errors.Is(err, advisor.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, advisorTestResponse{Status: "ok", Model: s.Advisor.Status().Model, Reply: reply})
}
