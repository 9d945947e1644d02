package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

type Server struct {
	httpServer *http.Server
	repo       *storage.Repository
	config     *config.Config
	logger     *logger.Logger
	tmpl       *template.Template
}

func NewServer(repo *storage.Repository, cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		repo:   repo,
		config: cfg,
		logger: log,
		tmpl: template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
			"pct":     pct,
			"pctPtr":  pctPtr,
			"pctDec":  pctDec,
			"date":    func(t time.Time) string { return t.Format("2006-01-02") },
			"shortID": shortID,
		}).ParseFS(templateFS, "templates/dashboard.html")),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the routes of the dashboard and its JSON API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/events", runTable(s, s.repo.GetGapEvents))
	mux.HandleFunc("GET /api/runs/{id}/selected", runTable(s, s.repo.GetSelectedStocks))
	mux.HandleFunc("GET /api/runs/{id}/positions", runTable(s, s.repo.GetPositions))
	mux.HandleFunc("GET /api/runs/{id}/returns", runTable(s, s.repo.GetPortfolioReturns))
	mux.HandleFunc("GET /api/runs/{id}/coverage", runTable(s, s.repo.GetQuarterCoverage))
	return mux
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
