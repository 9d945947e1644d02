package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/camuig/gap-backtest/internal/asof"
	"github.com/camuig/gap-backtest/internal/market"
)

// Benchmark is a configured index series. A configured but empty series still
// produces benchmark columns, all zero.
type Benchmark struct {
	Name   string
	Points []market.BenchmarkPoint
}

func pointDate(p market.BenchmarkPoint) time.Time { return p.Date }

// AttachBenchmark fills the benchmark columns of a chronologically ordered
// portfolio. Each buy date takes the latest index close on or before it,
// missing closes are carried forward, and step returns are logarithmic with
// the first and any undefined step set to zero.
func AttachBenchmark(portfolio []market.PortfolioReturn, benchmark []market.BenchmarkPoint) {
	points := make([]market.BenchmarkPoint, len(benchmark))
	copy(points, benchmark)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	var prev *float64
	growth := 1.0
	for i := range portfolio {
		var px *float64
		if j := asof.Backward(points, pointDate, portfolio[i].BuyDate); j >= 0 {
			px = points[j].Close
		}
		if px == nil {
			px = prev
		}

		r := 0.0
		if i > 0 && px != nil && prev != nil && *prev > 0 && *px > 0 {
			r = math.Log(*px / *prev)
		}
		growth *= 1 + r
		cum := growth - 1
		portfolio[i].BenchmarkReturn = &r
		portfolio[i].BenchmarkCumulative = &cum

		prev = px
	}
}
