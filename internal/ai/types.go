package ai

import (
	"github.com/camuig/gap-backtest/internal/backtest"
	"github.com/camuig/gap-backtest/internal/market"
)

type CommentaryRequest struct {
	RunID       string
	Strategy    string // human-readable selection rule
	HoldingDays int
	Benchmark   string
	GapEvents   int
	Selected    int
	Summary     backtest.Summary
	Curve       []market.PortfolioReturn
	Positions   []market.Position
}

type Commentary struct {
	Verdict    string   `json:"verdict"`
	Highlights []string `json:"highlights"`
	Risks      []string `json:"risks"`
}
