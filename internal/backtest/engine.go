// Package backtest prices fixed-holding-period positions for selected stocks
// and aggregates them into an equal-weighted portfolio curve.
package backtest

import (
	"sort"
	"time"

	"github.com/camuig/gap-backtest/internal/asof"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

const DefaultHoldingDays = 90

type Engine struct {
	holdingDays int
	log         *logger.Logger
}

func NewEngine(holdingDays int, log *logger.Logger) *Engine {
	if holdingDays <= 0 {
		holdingDays = DefaultHoldingDays
	}
	return &Engine{holdingDays: holdingDays, log: log}
}

type Result struct {
	Positions  []market.Position
	Portfolio  []market.PortfolioReturn
	Exclusions map[string]int
	HasBench   bool
}

type quote struct {
	date  time.Time
	close *float64
}

func quoteDate(q quote) time.Time { return q.date }

// PriceTable holds each instrument's closes ordered by date. The first row of
// a duplicated (instrument, date) pair wins.
type PriceTable map[string][]quote

func NewPriceTable(trading []market.TradingRecord) PriceTable {
	rows := make([]market.TradingRecord, 0, len(trading))
	for _, r := range trading {
		if r.Code == "" || r.TradeDate.IsZero() {
			continue
		}
		rows = append(rows, r)
	}

	t := make(PriceTable)
	for code, group := range asof.Partition(rows, recordCode) {
		sort.SliceStable(group, func(i, j int) bool { return group[i].TradeDate.Before(group[j].TradeDate) })
		list := make([]quote, 0, len(group))
		for _, r := range group {
			if n := len(list); n > 0 && list[n-1].date.Equal(r.TradeDate) {
				continue
			}
			list = append(list, quote{date: r.TradeDate, close: r.Close})
		}
		t[code] = list
	}
	return t
}

func recordCode(r market.TradingRecord) string { return r.Code }

// onOrBefore returns the latest quote dated at or before date.
func (t PriceTable) onOrBefore(code string, date time.Time) (quote, bool) {
	list := t[code]
	i := asof.Backward(list, quoteDate, date)
	if i < 0 {
		return quote{}, false
	}
	return list[i], true
}

// onOrAfter returns the earliest quote dated at or after date.
func (t PriceTable) onOrAfter(code string, date time.Time) (quote, bool) {
	list := t[code]
	i := asof.Forward(list, quoteDate, date)
	if i < 0 {
		return quote{}, false
	}
	return list[i], true
}

// Run opens one position per selected stock on its event session and closes
// it on the first session on or after the holding horizon. Positions that
// cannot be priced are kept with an exclusion reason and do not enter the
// portfolio. benchmark may be nil.
func (e *Engine) Run(selected []market.SelectedStock, trading []market.TradingRecord, benchmark *Benchmark) Result {
	prices := NewPriceTable(trading)
	res := Result{Exclusions: make(map[string]int)}

	for _, s := range selected {
		p := e.price(prices, s)
		if p.Excluded != "" {
			res.Exclusions[p.Excluded]++
		}
		res.Positions = append(res.Positions, p)
	}

	res.Portfolio = Aggregate(res.Positions)
	if benchmark != nil {
		if len(benchmark.Points) == 0 {
			e.log.Warn("benchmark series is empty, benchmark returns stay at zero", "benchmark", benchmark.Name)
		}
		AttachBenchmark(res.Portfolio, benchmark.Points)
		res.HasBench = true
	}

	sum := res.Summary()
	e.log.Info("backtest finished",
		"holding_days", e.holdingDays,
		"positions", sum.Positions,
		"priced", sum.Priced,
		"excluded", sum.Positions-sum.Priced,
		"periods", sum.Periods,
		"cum_return", sum.CumulativeReturn)

	return res
}

func (e *Engine) price(prices PriceTable, s market.SelectedStock) market.Position {
	p := market.Position{
		Code:       s.Code,
		ReportType: s.ReportType,
		BuyDate:    s.TradeDate,
		SellDate:   s.TradeDate.AddDate(0, 0, e.holdingDays),
	}

	buy, ok := prices.onOrBefore(s.Code, p.BuyDate)
	if !ok {
		p.Excluded = market.ExcludedNoBuySession
		return p
	}
	p.BuySession, p.BuyPrice = buy.date, buy.close

	sell, ok := prices.onOrAfter(s.Code, p.SellDate)
	if !ok {
		p.Excluded = market.ExcludedNoSellSession
		return p
	}
	p.SellSession, p.SellPrice = sell.date, sell.close

	switch {
	case p.BuyPrice == nil || p.SellPrice == nil:
		p.Excluded = market.ExcludedMissingPrice
	case *p.BuyPrice == 0:
		p.Excluded = market.ExcludedZeroBuyPrice
	default:
		r := *p.SellPrice / *p.BuyPrice - 1
		p.Return = &r
	}
	return p
}

// Aggregate averages the defined position returns per buy date and compounds
// them in chronological order. Buy dates without a defined return are absent.
func Aggregate(positions []market.Position) []market.PortfolioReturn {
	type acc struct {
		sum float64
		n   int
	}
	byDate := make(map[time.Time]*acc)
	var dates []time.Time
	for _, p := range positions {
		if p.Return == nil {
			continue
		}
		a, ok := byDate[p.BuyDate]
		if !ok {
			a = &acc{}
			byDate[p.BuyDate] = a
			dates = append(dates, p.BuyDate)
		}
		a.sum += *p.Return
		a.n++
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]market.PortfolioReturn, 0, len(dates))
	growth := 1.0
	for _, d := range dates {
		a := byDate[d]
		mean := a.sum / float64(a.n)
		growth *= 1 + mean
		out = append(out, market.PortfolioReturn{
			BuyDate:          d,
			MeanReturn:       mean,
			CumulativeReturn: growth - 1,
			Positions:        a.n,
		})
	}
	return out
}
