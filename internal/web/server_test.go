package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
	"github.com/camuig/gap-backtest/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Run) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	repo := storage.NewRepository(db)

	run := storage.NewRun(nil)
	run.Status = storage.RunStatusCompleted
	run.Commentary = "Стратегия обгоняет индекс."
	run.SetReturns(0.15, nil)
	require.NoError(t, repo.SaveRun(run))

	d := market.Date(2020, 7, 2)
	event := market.GapEvent{Code: "000001", ReportType: "A", AnnounceDate: d, TradeDate: d, Low: 10.5, PriorHigh: 10, GapPct: 5}
	require.NoError(t, repo.SaveRunResults(run.ID, storage.RunResults{
		GapEvents: []market.GapEvent{event},
		Selected: []market.SelectedStock{{
			GapEvent: event,
			Growth:   market.GrowthRecord{Code: "000001", MultiPeriodGrowth: market.F(0.6)},
		}},
		Coverage: []market.QuarterCoverage{{Year: 2020, Quarter: 3, Companies: 1}},
		Positions: []market.Position{{Code: "000001", BuyDate: d, SellDate: d.AddDate(0, 0, 90), Return: market.F(0.15)}},
		Portfolio: []market.PortfolioReturn{{BuyDate: d, MeanReturn: 0.15, CumulativeReturn: 0.15, Positions: 1}},
	}))

	return NewServer(repo, &config.Config{Web: config.WebConfig{Port: 0}}, logger.Nop()), run
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDashboardPage(t *testing.T) {
	s, run := newTestServer(t)
	rec := get(t, s.Handler(), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, run.ID[:8])
	assert.Contains(t, body, "+15.00%")
	assert.Contains(t, body, "2020-07-02")
	assert.Contains(t, body, "Стратегия обгоняет индекс.")
}

func TestRunsAPI(t *testing.T) {
	s, run := newTestServer(t)
	h := s.Handler()

	rec := get(t, h, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []storage.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	rec = get(t, h, "/api/runs/"+run.ID+"?pretty")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "\n  \"id\""), "pretty output is indented")

	rec = get(t, h, "/api/runs/"+run.ID+"/returns")
	require.Equal(t, http.StatusOK, rec.Code)
	var curve []storage.PortfolioReturn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &curve))
	require.Len(t, curve, 1)
	assert.InDelta(t, 0.15, curve[0].CumulativeReturn, 1e-12)

	rec = get(t, h, "/api/runs/"+run.ID+"/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"000001"`)
}

func TestRunResultTables(t *testing.T) {
	s, run := newTestServer(t)
	h := s.Handler()

	rec := get(t, h, "/api/runs/"+run.ID+"/events")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []storage.GapEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "000001", events[0].Code)
	assert.InDelta(t, 5.0, events[0].GapPct, 1e-12)

	rec = get(t, h, "/api/runs/"+run.ID+"/selected")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"multi_period_growth":0.6`)

	rec = get(t, h, "/api/runs/"+run.ID+"/coverage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"companies":1`)

	for _, table := range []string{"events", "selected", "coverage"} {
		assert.Equal(t, http.StatusNotFound, get(t, h, "/api/runs/nope/"+table).Code)
	}
}

func TestRunsAPIErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/runs/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/runs/nope/returns").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/runs?limit=-1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/missing").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
