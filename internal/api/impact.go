package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/impact"
	"github.com/bher20/eimpactmanager/internal/report"
	"github.com/bher20/eimpactmanager/internal/storage"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

const (
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSnapshotLimit = 30
)

func (s *server) listImplementations(w http.ResponseWriter, r *http.Request) {
	list, err := s.Impact.Implementations(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []tracking.Implementation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) adopt(w http.ResponseWriter, r *http.Request) {
	var req impact.AdoptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	impl, err := s.Impact.Adopt(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, impl)
}

func (s *server) getImplementation(w http.ResponseWriter, r *http.Request) {
	impl, err := s.Impact.Implementation(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, impl)
}

func (s *server) updateImplementation(w http.ResponseWriter, r *http.Request) {
	var upd tracking.Update
	if !decodeJSON(w, r, &upd) {
		return
	}
	res, err := s.Impact.UpdateImplementation(r.Context(), userID(r), r.PathValue("id"), upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) implementationROI(w http.ResponseWriter, r *http.Request) {
	roi, err := s.Impact.ImplementationROI(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roi)
}

func (s *server) portfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.Impact.Portfolio(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// exportPortfolio renders the rollup and goals as an XLSX workbook.
func (s *server) exportPortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	rollup, err := s.Impact.Portfolio(ctx, user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := s.Impact.Goals(ctx, user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := time.Now().UTC()
	var buf bytes.Buffer
	if err := report.WritePortfolio(&buf, report.Portfolio{
		UserID:      user,
		GeneratedAt: now,
		Rollup:      rollup,
		Goals:       list,
	}); err != nil {
		writeServiceError(w, r, fmt.Errorf("render portfolio report: %w", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=portfolio_%s.xlsx", now.Format("20060102")))
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Str("user", user).Msg("portfolio export: write failed")
	}
}

func (s *server) snapshots(w http.ResponseWriter, r *http.Request) {
	limit := defaultSnapshotLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := s.Impact.Snapshots(r.Context(), userID(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []storage.PortfolioSnapshot{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) listGoals(w http.ResponseWriter, r *http.Request) {
	list, err := s.Impact.Goals(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []goals.Goal{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) createGoal(w http.ResponseWriter, r *http.Request) {
	var req impact.GoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := s.Impact.CreateGoal(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *server) getGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.Impact.Goal(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
