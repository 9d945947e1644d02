// Package pipeline runs the screen-and-backtest stages end to end for one
// configuration and hands the results to the optional collaborators.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/camuig/gap-backtest/internal/ai"
	"github.com/camuig/gap-backtest/internal/backtest"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/gap"
	"github.com/camuig/gap-backtest/internal/growth"
	"github.com/camuig/gap-backtest/internal/loader"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
	"github.com/camuig/gap-backtest/internal/merger"
	"github.com/camuig/gap-backtest/internal/storage"
	"github.com/camuig/gap-backtest/internal/strategy"
	"github.com/camuig/gap-backtest/internal/telegram"
)

// Output file names inside output.dir.
const (
	FileGapEvents     = "filtered_data.csv"
	FileSelected      = "selected_stocks.csv"
	FilePositions     = "positions.csv"
	FilePortfolio     = "portfolio_returns.csv"
	FileCoverage      = "company_count_by_quarter.csv"
	FileMergedTrading = "merged_stk_data.csv"
	FileMergedProfit  = "merged_pft_data.csv"
)

// RunStore persists runs. *storage.Repository satisfies it.
type RunStore interface {
	SaveRun(run *storage.Run) error
	UpdateRun(run *storage.Run) error
	SaveRunResults(runID string, res storage.RunResults) error
}

// Notifier receives run outcomes. *telegram.Notifier satisfies it.
type Notifier interface {
	NotifyRunSummary(r telegram.RunReport)
	NotifyError(stage string, err error)
}

// Commentator reviews a finished run. *ai.DeepSeekClient satisfies it.
type Commentator interface {
	Comment(ctx context.Context, req *ai.CommentaryRequest) (string, error)
}

type Runner struct {
	config      *config.Config
	logger      *logger.Logger
	schema      loader.Schema
	store       RunStore
	notifier    Notifier
	commentator Commentator
}

func NewRunner(cfg *config.Config, log *logger.Logger) *Runner {
	schema := loader.DefaultSchema()
	schema.CodeWidth = cfg.Data.CodeWidth
	return &Runner{config: cfg, logger: log, schema: schema}
}

func (r *Runner) WithStore(s RunStore) *Runner {
	r.store = s
	return r
}

func (r *Runner) WithNotifier(n Notifier) *Runner {
	r.notifier = n
	return r
}

func (r *Runner) WithCommentator(c Commentator) *Runner {
	r.commentator = c
	return r
}

// Report is everything one run produced.
type Report struct {
	RunID       string
	Trading     loader.LoadReport
	Disclosures loader.LoadReport

	// row counts after merging
	TradingRows    int
	DisclosureRows int

	Coverage    []market.QuarterCoverage
	Events      []market.GapEvent
	GapStats    gap.Stats
	Selected    []market.SelectedStock
	SelectStats strategy.SelectStats
	Backtest    backtest.Result
	Summary     backtest.Summary
	Outputs     []string
	Commentary  string
}

// stageError names the stage an error came from.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

// Run executes every stage once. Schema and mandatory input failures abort the
// run; the run record is still saved with the error and the notifier is told.
func (r *Runner) Run(ctx context.Context) (rep *Report, err error) {
	rep = &Report{}
	started := time.Now()

	var run *storage.Run
	if r.store != nil {
		run = storage.NewRun(configSnapshot(r.config))
		if serr := r.store.SaveRun(run); serr != nil {
			r.logger.Error("save run", "error", serr)
			run = nil
		} else {
			rep.RunID = run.ID
		}
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic in pipeline", "panic", fmt.Sprint(p))
			err = &stageError{stage: "panic", err: fmt.Errorf("%v", p)}
		}
		if err != nil {
			r.fail(run, err)
		}
	}()

	if err := r.execute(ctx, rep); err != nil {
		return rep, err
	}

	r.comment(ctx, rep)
	r.finish(run, rep)

	if r.notifier != nil {
		r.notifier.NotifyRunSummary(telegram.RunReport{
			RunID:     rep.RunID,
			GapEvents: len(rep.Events),
			Selected:  len(rep.Selected),
			Summary:   rep.Summary,
		})
	}

	r.logger.Info("pipeline finished",
		"run_id", rep.RunID,
		"elapsed", time.Since(started).String(),
		"cum_return", rep.Summary.CumulativeReturn)
	return rep, nil
}

func (r *Runner) execute(ctx context.Context, rep *Report) error {
	cfg := r.config

	// 1. Load shards
	log := r.logger.Stage("load")
	tradingShards, tradingReport, err := r.schema.LoadTradingShards(cfg.Data.TradingDir, log)
	if err != nil {
		return &stageError{"load", err}
	}
	rep.Trading = tradingReport
	disclosureShards, disclosureReport, err := r.schema.LoadDisclosureShards(cfg.Data.DisclosureDir, log)
	if err != nil {
		return &stageError{"load", err}
	}
	rep.Disclosures = disclosureReport
	if err := ctx.Err(); err != nil {
		return err
	}

	// 2. Merge
	log = r.logger.Stage("merge")
	selected := merger.SelectShards(tradingShards, cfg.Data.TradingShards, cfg.Data.TradingShardPrefix, log)
	if len(selected) == 0 {
		return &stageError{"merge", fmt.Errorf("no trading shards with prefix %q in %s", cfg.Data.TradingShardPrefix, cfg.Data.TradingDir)}
	}
	trading := merger.MergeTrading(selected)
	rep.TradingRows = len(trading)

	profit, ok := disclosureShards[cfg.Data.DisclosureShard]
	if !ok {
		return &stageError{"merge", fmt.Errorf("disclosure shard %s not loaded from %s", cfg.Data.DisclosureShard, cfg.Data.DisclosureDir)}
	}
	disclosures := merger.MergeDisclosures(profit)
	rep.DisclosureRows = len(disclosures)
	rep.Coverage = merger.CountCompaniesByQuarter(trading)
	log.Info("tables merged",
		"trading_shards", len(selected),
		"trading_rows", len(trading),
		"disclosure_rows", len(disclosures),
		"quarters", len(rep.Coverage))
	if err := ctx.Err(); err != nil {
		return err
	}

	// 3. Gap events
	rep.Events, rep.GapStats = gap.Detect(trading, disclosures, r.logger.Stage("gap"))
	if err := ctx.Err(); err != nil {
		return err
	}

	// 4. Growth features and selection
	series := growth.Build(disclosures, r.logger.Stage("growth"))
	selector := strategy.NewSelector(strategy.FromConfig(cfg), r.logger.Stage("strategy"))
	rep.Selected, rep.SelectStats = selector.Select(rep.Events, series)
	if err := ctx.Err(); err != nil {
		return err
	}

	// 5. Benchmark (optional) and backtest
	var bench *backtest.Benchmark
	if cfg.Data.BenchmarkFile != "" {
		points, err := r.schema.LoadBenchmarkFile(cfg.Data.BenchmarkFile, cfg.BenchmarkColumn())
		if err != nil {
			return &stageError{"benchmark", err}
		}
		bench = &backtest.Benchmark{Name: cfg.Strategy.BenchmarkIndex, Points: points}
	}
	engine := backtest.NewEngine(cfg.Strategy.HoldingPeriodDays, r.logger.Stage("backtest"))
	rep.Backtest = engine.Run(rep.Selected, trading, bench)
	rep.Summary = rep.Backtest.Summary()
	if err := ctx.Err(); err != nil {
		return err
	}

	// 6. Outputs
	if err := r.writeOutputs(rep, trading, disclosures); err != nil {
		return &stageError{"output", err}
	}

	// 7. Persist
	if r.store != nil && rep.RunID != "" {
		if err := r.store.SaveRunResults(rep.RunID, storage.RunResults{
			GapEvents: rep.Events,
			Selected:  rep.Selected,
			Positions: rep.Backtest.Positions,
			Portfolio: rep.Backtest.Portfolio,
			Coverage:  rep.Coverage,
		}); err != nil {
			return &stageError{"store", err}
		}
	}

	return nil
}

type outputFile struct {
	name  string
	write func(io.Writer) error
}

func (r *Runner) writeOutputs(rep *Report, trading []market.TradingRecord, disclosures []market.Disclosure) error {
	dir := r.config.Output.Dir
	s := r.schema
	lookback := r.config.Strategy.LookbackQuarters

	files := []outputFile{
		{FileGapEvents, func(w io.Writer) error { return s.WriteGapEvents(w, rep.Events) }},
		{FileSelected, func(w io.Writer) error { return s.WriteSelected(w, rep.Selected, lookback) }},
		{FilePositions, func(w io.Writer) error { return s.WritePositions(w, rep.Backtest.Positions) }},
		{FilePortfolio, func(w io.Writer) error { return loader.WritePortfolio(w, rep.Backtest.Portfolio) }},
		{FileCoverage, func(w io.Writer) error { return loader.WriteCoverage(w, rep.Coverage) }},
	}
	if r.config.Output.WriteMerged {
		files = append(files,
			outputFile{FileMergedTrading, func(w io.Writer) error { return s.WriteTrading(w, trading) }},
			outputFile{FileMergedProfit, func(w io.Writer) error { return s.WriteDisclosures(w, disclosures) }},
		)
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := loader.SaveFile(path, f.write); err != nil {
			return err
		}
		rep.Outputs = append(rep.Outputs, path)
	}
	r.logger.Stage("output").Info("outputs written", "dir", dir, "files", len(rep.Outputs))
	return nil
}
