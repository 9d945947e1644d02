package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/tidwall/pretty"
	"gorm.io/gorm"

	"github.com/camuig/gap-backtest/internal/storage"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

type DashboardData struct {
	Runs      []storage.Run
	Latest    *storage.Run
	Curve     []storage.PortfolioReturn
	Positions []storage.Position
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := DashboardData{}

	runs, err := s.repo.ListRuns(defaultRunLimit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
	}
	data.Runs = runs

	// Latest completed run with its portfolio curve
	for i := range runs {
		if runs[i].Status != storage.RunStatusCompleted {
			continue
		}
		data.Latest = &runs[i]
		if curve, err := s.repo.GetPortfolioReturns(runs[i].ID); err == nil {
			data.Curve = curve
		}
		if positions, err := s.repo.GetPositions(runs[i].ID); err == nil {
			data.Positions = positions
		}
		break
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Error("execute template", "error", err)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := s.repo.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, r, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, run)
}

// runTable serves one result table of a run.
func runTable[T any](s *Server, fetch func(runID string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := s.lookupRun(w, r)
		if !ok {
			return
		}
		rows, err := fetch(run.ID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, r, rows)
	}
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*storage.Run, bool) {
	id := r.PathValue("id")
	run, err := s.repo.GetRun(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", id))
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return run, true
}

// writeJSON encodes v, indented when the request asks for ?pretty.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, ok := r.URL.Query()["pretty"]; ok {
		body = pretty.Pretty(body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("api error", "status", status, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func pct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

func pctPtr(v *float64) string {
	if v == nil {
		return "—"
	}
	return pct(*v)
}

func pctDec(d decimal.NullDecimal) string {
	if !d.Valid {
		return "—"
	}
	return pct(d.Decimal.InexactFloat64())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
