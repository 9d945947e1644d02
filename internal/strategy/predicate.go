package strategy

import (
	"fmt"
	"strings"

	"github.com/camuig/gap-backtest/internal/market"
)

// Predicate decides whether a joined event is selected.
type Predicate interface {
	Pass(s market.SelectedStock) bool
	String() string
}

type multiPeriodAbove float64

// MultiPeriodAbove passes rows whose year-over-year growth is strictly above
// threshold. The threshold is a fraction: 0.5 means 50%.
func MultiPeriodAbove(threshold float64) Predicate { return multiPeriodAbove(threshold) }

func (p multiPeriodAbove) Pass(s market.SelectedStock) bool {
	g := s.Growth.MultiPeriodGrowth
	return g != nil && *g > float64(p)
}

func (p multiPeriodAbove) String() string {
	return fmt.Sprintf("multi_period_growth > %g", float64(p))
}

type singlePeriodAbove float64

// SinglePeriodAbove passes rows whose quarter-over-quarter growth is strictly above min.
func SinglePeriodAbove(min float64) Predicate { return singlePeriodAbove(min) }

func (p singlePeriodAbove) Pass(s market.SelectedStock) bool {
	g := s.Growth.SinglePeriodGrowth
	return g != nil && *g > float64(p)
}

func (p singlePeriodAbove) String() string {
	return fmt.Sprintf("single_period_growth > %g", float64(p))
}

type positiveQuarters int

// PositiveQuarters requires the growth of each of the last n quarters before
// the event to be known and positive.
func PositiveQuarters(n int) Predicate { return positiveQuarters(n) }

func (p positiveQuarters) Pass(s market.SelectedStock) bool {
	for k := 1; k <= int(p); k++ {
		g := s.GrowthAgo(k)
		if g == nil || *g <= 0 {
			return false
		}
	}
	return true
}

func (p positiveQuarters) String() string {
	return fmt.Sprintf("growth_1..%dq_ago > 0", int(p))
}

type all []Predicate

// All passes rows accepted by every predicate. An empty All passes everything.
func All(ps ...Predicate) Predicate { return all(ps) }

func (a all) Pass(s market.SelectedStock) bool {
	for _, p := range a {
		if !p.Pass(s) {
			return false
		}
	}
	return true
}

func (a all) String() string {
	if len(a) == 0 {
		return "true"
	}
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = p.String()
	}
	return strings.Join(parts, " && ")
}
