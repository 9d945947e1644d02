package storage

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/camuig/gap-backtest/internal/market"
)

const batchSize = 500

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RunResults is everything a finished run produced.
type RunResults struct {
	GapEvents []market.GapEvent
	Selected  []market.SelectedStock
	Positions []market.Position
	Portfolio []market.PortfolioReturn
	Coverage  []market.QuarterCoverage
}

// Runs

// NewRun returns a running run with a fresh id and a JSON snapshot of cfg.
func NewRun(cfg any) *Run {
	return &Run{
		ID:     uuid.NewString(),
		Status: RunStatusRunning,
		Config: toJSON(cfg),
	}
}

// SetSummary stores v as the run's JSON summary.
func (r *Run) SetSummary(v any) {
	r.Summary = toJSON(v)
}

// SetReturns records the final portfolio and benchmark cumulative returns.
func (r *Run) SetReturns(cum float64, bench *float64) {
	r.CumulativeReturn = nullDecimal(&cum)
	r.BenchmarkCumulative = nullDecimal(bench)
}

func (r *Repository) SaveRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if len(run.Config) == 0 {
		run.Config = datatypes.JSON([]byte(`{}`))
	}
	return r.db.Create(run).Error
}

func (r *Repository) UpdateRun(run *Run) error {
	return r.db.Save(run).Error
}

func (r *Repository) GetRun(id string) (*Run, error) {
	var run Run
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := r.db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// Results

// SaveRunResults stores every table of a run in one transaction.
func (r *Repository) SaveRunResults(runID string, res RunResults) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := createAll(tx, gapEventRows(runID, res.GapEvents)); err != nil {
			return fmt.Errorf("save gap events: %w", err)
		}
		if err := createAll(tx, selectedRows(runID, res.Selected)); err != nil {
			return fmt.Errorf("save selected stocks: %w", err)
		}
		if err := createAll(tx, positionRows(runID, res.Positions)); err != nil {
			return fmt.Errorf("save positions: %w", err)
		}
		if err := createAll(tx, portfolioRows(runID, res.Portfolio)); err != nil {
			return fmt.Errorf("save portfolio returns: %w", err)
		}
		if err := createAll(tx, coverageRows(runID, res.Coverage)); err != nil {
			return fmt.Errorf("save quarter coverage: %w", err)
		}
		return nil
	})
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

func (r *Repository) GetGapEvents(runID string) ([]GapEvent, error) {
	var rows []GapEvent
	err := r.db.Where("run_id = ?", runID).Order("announce_date, code").Find(&rows).Error
	return rows, err
}

func (r *Repository) GetSelectedStocks(runID string) ([]SelectedStock, error) {
	var rows []SelectedStock
	err := r.db.Where("run_id = ?", runID).Order("announce_date, code").Find(&rows).Error
	return rows, err
}

func (r *Repository) GetPositions(runID string) ([]Position, error) {
	var rows []Position
	err := r.db.Where("run_id = ?", runID).Order("buy_date, code").Find(&rows).Error
	return rows, err
}

func (r *Repository) GetPortfolioReturns(runID string) ([]PortfolioReturn, error) {
	var rows []PortfolioReturn
	err := r.db.Where("run_id = ?", runID).Order("buy_date").Find(&rows).Error
	return rows, err
}

func (r *Repository) GetQuarterCoverage(runID string) ([]QuarterCoverage, error) {
	var rows []QuarterCoverage
	err := r.db.Where("run_id = ?", runID).Order("year, quarter").Find(&rows).Error
	return rows, err
}
