// Package strategy joins gap events to the growth history known at announcement
// time and keeps the events that satisfy the selection predicate.
package strategy

import (
	"time"

	"github.com/camuig/gap-backtest/internal/asof"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/growth"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

type Options struct {
	Lookback   int
	OffsetMode growth.OffsetMode
	Predicate  Predicate
}

// DefaultOptions selects events with year-over-year growth above 50%.
func DefaultOptions() Options {
	return Options{
		Lookback:   8,
		OffsetMode: growth.OffsetSequence,
		Predicate:  MultiPeriodAbove(0.5),
	}
}

// FromConfig builds the options and composite predicate from the strategy section.
func FromConfig(cfg *config.Config) Options {
	sc := cfg.Strategy
	preds := []Predicate{MultiPeriodAbove(cfg.GrowthThreshold())}
	if sc.MinSinglePeriodGrowth != nil {
		preds = append(preds, SinglePeriodAbove(*sc.MinSinglePeriodGrowth))
	}
	if sc.PositiveQuarters > 0 {
		preds = append(preds, PositiveQuarters(sc.PositiveQuarters))
	}

	opts := Options{
		Lookback:   sc.LookbackQuarters,
		OffsetMode: growth.OffsetMode(sc.OffsetMode),
		Predicate:  preds[0],
	}
	if len(preds) > 1 {
		opts.Predicate = All(preds...)
	}
	return opts
}

type SelectStats struct {
	Events    int
	Unmatched int // no fully defined growth record announced on or before the event
	Rejected  int
	Selected  int
}

type Selector struct {
	opts Options
	log  *logger.Logger
}

func NewSelector(opts Options, log *logger.Logger) *Selector {
	if opts.Predicate == nil {
		opts.Predicate = DefaultOptions().Predicate
	}
	if opts.OffsetMode == "" {
		opts.OffsetMode = growth.OffsetSequence
	}
	return &Selector{opts: opts, log: log}
}

func announced(r market.GrowthRecord) time.Time { return r.AnnounceDate }

// Select attaches to every event the latest growth record with both growth
// measures defined and an announce date on or before the event's announcement.
// Records sharing that date resolve to the one ordered last. Events without a
// candidate are dropped, the rest are filtered by the predicate.
func (s *Selector) Select(events []market.GapEvent, series *growth.Series) ([]market.SelectedStock, SelectStats) {
	stats := SelectStats{Events: len(events)}
	candidates := make(map[string][]market.GrowthRecord)

	var out []market.SelectedStock
	for _, ev := range events {
		list, ok := candidates[ev.Code]
		if !ok {
			for _, r := range series.Instrument(ev.Code) {
				if r.Defined() {
					list = append(list, r)
				}
			}
			candidates[ev.Code] = list
		}

		i := asof.Backward(list, announced, ev.AnnounceDate)
		if i < 0 {
			stats.Unmatched++
			continue
		}
		rec := list[i]

		row := market.SelectedStock{
			GapEvent:     ev,
			Growth:       rec,
			OffsetGrowth: series.Offsets(s.opts.OffsetMode, ev.Code, rec.Seq, ev.AnnounceDate, s.opts.Lookback),
		}
		if !s.opts.Predicate.Pass(row) {
			stats.Rejected++
			continue
		}
		out = append(out, row)
	}
	stats.Selected = len(out)

	s.log.Info("stocks selected",
		"predicate", s.opts.Predicate.String(),
		"offset_mode", string(s.opts.OffsetMode),
		"events", stats.Events,
		"unmatched", stats.Unmatched,
		"rejected", stats.Rejected,
		"selected", stats.Selected)

	return out, stats
}
