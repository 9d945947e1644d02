package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/camuig/gap-backtest/internal/ai"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/storage"
	"github.com/camuig/gap-backtest/internal/strategy"
)

// configSnapshot is the part of the configuration stored with a run; secrets stay out.
func configSnapshot(cfg *config.Config) map[string]any {
	return map[string]any{
		"data":     cfg.Data,
		"strategy": cfg.Strategy,
		"output":   cfg.Output,
	}
}

// comment attaches LLM commentary. Failures are logged and the run goes on.
func (r *Runner) comment(ctx context.Context, rep *Report) {
	if r.commentator == nil {
		return
	}
	benchmark := ""
	if rep.Backtest.HasBench {
		benchmark = r.config.Strategy.BenchmarkIndex
	}
	text, err := r.commentator.Comment(ctx, &ai.CommentaryRequest{
		RunID:       rep.RunID,
		Strategy:    strategy.FromConfig(r.config).Predicate.String(),
		HoldingDays: r.config.Strategy.HoldingPeriodDays,
		Benchmark:   benchmark,
		GapEvents:   len(rep.Events),
		Selected:    len(rep.Selected),
		Summary:     rep.Summary,
		Curve:       rep.Backtest.Portfolio,
		Positions:   rep.Backtest.Positions,
	})
	if err != nil {
		r.logger.Stage("commentary").Error("AI commentary", "error", err)
		return
	}
	rep.Commentary = text
}

func (r *Runner) finish(run *storage.Run, rep *Report) {
	if run == nil {
		return
	}
	now := time.Now()
	run.FinishedAt = &now
	run.Status = storage.RunStatusCompleted
	run.TradingRows = rep.TradingRows
	run.DisclosureRows = rep.DisclosureRows
	run.GapEvents = len(rep.Events)
	run.Selected = len(rep.Selected)
	run.Positions = rep.Summary.Positions
	run.Priced = rep.Summary.Priced
	run.SetReturns(rep.Summary.CumulativeReturn, rep.Summary.BenchmarkCumulative)
	run.SetSummary(rep.Summary)
	run.Commentary = rep.Commentary

	if err := r.store.UpdateRun(run); err != nil {
		r.logger.Error("update run", "run_id", run.ID, "error", err)
	}
}

func (r *Runner) fail(run *storage.Run, err error) {
	stage := "pipeline"
	var se *stageError
	if errors.As(err, &se) {
		stage = se.stage
	}
	r.logger.Error("pipeline failed", "stage", stage, "error", err)

	if run != nil {
		now := time.Now()
		run.FinishedAt = &now
		run.Status = storage.RunStatusFailed
		run.Error = err.Error()
		if uerr := r.store.UpdateRun(run); uerr != nil {
			r.logger.Error("update run", "run_id", run.ID, "error", uerr)
		}
	}
	if r.notifier != nil {
		r.notifier.NotifyError(stage, err)
	}
}

// RunEvery runs the pipeline immediately and then on every tick until ctx is
// done. A failed run is reported and does not stop the loop.
func (r *Runner) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("pipeline scheduler started", "interval", interval.String())

	r.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("pipeline scheduler stopped")
			return
		case <-ticker.C:
			// a tick can race with cancellation
			if ctx.Err() != nil {
				continue
			}
			r.Run(ctx)
		}
	}
}
