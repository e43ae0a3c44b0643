// Package api serves the calculation, tracking and settings endpoints over
// HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/bher20/eimpactmanager/internal/advisor"
	"github.com/bher20/eimpactmanager/internal/api/swagger"
	"github.com/bher20/eimpactmanager/internal/auth"
	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/impact"
	"github.com/bher20/eimpactmanager/internal/metrics"
	"github.com/bher20/eimpactmanager/internal/notification"
	"github.com/bher20/eimpactmanager/internal/rules"
	"github.com/bher20/eimpactmanager/internal/storage"
	"github.com/bher20/eimpactmanager/internal/tracking"
	"github.com/bher20/eimpactmanager/internal/usage"
)

// UserHeader carries the acting user when auth is disabled.
const (
	UserHeader  = "X-User-ID"
	DefaultUser = "local"
)

// maxBodyBytes bounds JSON bodies; bill uploads use maxUploadBytes.
const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20
)

// Deps are the services behind the mux. Auth and Notifications may be nil:
// without Auth every request acts as the X-User-ID user, without
// Notifications the settings routes are not registered. A nil Advisor is
// replaced by one backed only by Rules.
type Deps struct {
	Storage       storage.Storage
	Calculator    *calc.Calculator
	Rules         *rules.Engine
	Advisor       *advisor.Advisor
	Impact        *impact.Service
	Auth          *auth.Service
	Notifications *notification.Service
}

type server struct {
	Deps
}

// NewMux constructs the HTTP mux, wiring in the API, metrics, docs and health
// endpoints.
func NewMux(d Deps) *http.ServeMux {
	if d.Calculator == nil {
		d.Calculator = calc.New(nil)
	}
	if d.Rules == nil {
		d.Rules = rules.NewEngine(d.Calculator)
	}
	if d.Advisor == nil {
		a, err := advisor.New(advisor.Config{}, d.Rules)
		if err != nil {
			log.Error().Err(err).Msg("advisor unavailable")
		}
		d.Advisor = a
	}
	s := &server{Deps: d}

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/swagger/", http.StripPrefix("/swagger", swagger.Handler()))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})
	mux.HandleFunc("GET /readyz", s.ready)

	s.handle(mux, "POST /api/v1/auth/login", "", "", s.login)
	s.handle(mux, "POST /api/v1/auth/tokens", auth.ObjTokens, auth.ActWrite, s.createToken)

	s.handle(mux, "GET /api/v1/regions", auth.ObjCalculations, auth.ActRead, s.regions)
	s.handle(mux, "POST /api/v1/calculations/carbon", auth.ObjCalculations, auth.ActRead, s.carbon)
	s.handle(mux, "POST /api/v1/calculations/cost", auth.ObjCalculations, auth.ActRead, s.cost)
	s.handle(mux, "POST /api/v1/calculations/roi", auth.ObjCalculations, auth.ActRead, s.roi)
	s.handle(mux, "POST /api/v1/calculations/incentives", auth.ObjCalculations, auth.ActRead, s.incentives)
	s.handle(mux, "POST /api/v1/calculations/priority", auth.ObjCalculations, auth.ActRead, s.priority)
	s.handle(mux, "POST /api/v1/calculations/equivalents", auth.ObjCalculations, auth.ActRead, s.equivalents)
	s.handle(mux, "POST /api/v1/calculations/solar", auth.ObjCalculations, auth.ActRead, s.solar)
	s.handle(mux, "POST /api/v1/recommendations", auth.ObjCalculations, auth.ActRead, s.recommendations)
	if s.Advisor != nil {
		s.handle(mux, "POST /api/v1/recommendations/ai", auth.ObjCalculations, auth.ActRead, s.aiRecommendations)
		s.handle(mux, "GET /api/v1/recommendations/ai/status", auth.ObjCalculations, auth.ActRead, s.advisorStatus)
		s.handle(mux, "POST /api/v1/recommendations/ai/test", auth.ObjCalculations, auth.ActRead, s.testAdvisor)
	}
	s.handle(mux, "POST /api/v1/usage/import", auth.ObjCalculations, auth.ActRead, s.importUsage)

	s.handle(mux, "GET /api/v1/implementations", auth.ObjImplementations, auth.ActRead, s.listImplementations)
	s.handle(mux, "POST /api/v1/implementations", auth.ObjImplementations, auth.ActWrite, s.adopt)
	s.handle(mux, "GET /api/v1/implementations/{id}", auth.ObjImplementations, auth.ActRead, s.getImplementation)
	s.handle(mux, "PATCH /api/v1/implementations/{id}", auth.ObjImplementations, auth.ActWrite, s.updateImplementation)
	s.handle(mux, "GET /api/v1/implementations/{id}/roi", auth.ObjImplementations, auth.ActRead, s.implementationROI)

	s.handle(mux, "GET /api/v1/portfolio", auth.ObjPortfolio, auth.ActRead, s.portfolio)
	s.handle(mux, "GET /api/v1/portfolio/export", auth.ObjPortfolio, auth.ActRead, s.exportPortfolio)
	s.handle(mux, "GET /api/v1/portfolio/snapshots", auth.ObjPortfolio, auth.ActRead, s.snapshots)

	s.handle(mux, "GET /api/v1/goals", auth.ObjGoals, auth.ActRead, s.listGoals)
	s.handle(mux, "POST /api/v1/goals", auth.ObjGoals, auth.ActWrite, s.createGoal)
	s.handle(mux, "GET /api/v1/goals/{id}", auth.ObjGoals, auth.ActRead, s.getGoal)

	if s.Notifications != nil {
		s.handle(mux, "GET /api/v1/settings/email", auth.ObjSettings, auth.ActRead, s.getEmailConfig)
		s.handle(mux, "PUT /api/v1/settings/email", auth.ObjSettings, auth.ActWrite, s.saveEmailConfig)
		s.handle(mux, "POST /api/v1/settings/email/test", auth.ObjSettings, auth.ActWrite, s.testEmailConfig)
	}

	return mux
}

// handle registers h under pattern with request metrics and, when auth is
// enabled and obj is set, a permission check.
func (s *server) handle(mux *http.ServeMux, pattern, obj, act string, h http.HandlerFunc) {
	var next http.Handler = h
	if s.Auth != nil {
		if obj != "" {
			next = s.Auth.RequirePermission(obj, act, next)
		}
		next = s.Auth.Middleware(next)
	} else {
		next = anonymous(next)
	}
	mux.Handle(pattern, instrument(pattern, next))
}

// anonymous takes the acting user from the X-User-ID header.
func anonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserHeader)
		if id == "" {
			id = DefaultUser
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		metrics.RequestsTotal.WithLabelValues(route).Inc()

		next.ServeHTTP(rec, r)

		metrics.RequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		if rec.status >= 400 {
			metrics.RequestErrorsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	})
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	if s.Storage == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.Storage.Ping(r.Context()); err != nil {
		log.Warn().Err(err).Msg("readyz: storage ping failed")
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func userID(r *http.Request) string {
	return auth.UserID(r.Context())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, impact.ErrNotFound), errors.Is(err, storage.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, impact.ErrInvalidInput),
		errors.Is(err, calc.ErrInvalidInput),
		errors.Is(err, calc.ErrInvalidDifficulty),
		errors.Is(err, tracking.ErrInvalidStatus),
		errors.Is(err, tracking.ErrInvalidProgress),
		errors.Is(err, usage.ErrNoUsageFound),
		errors.Is(err, auth.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tracking.ErrBackwardTransition),
		errors.Is(err, tracking.ErrCompletedImmutable),
		errors.Is(err, impact.ErrConflict),
		errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
