package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/camuig/gap-backtest/internal/market"
)

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*v), Valid: true}
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.InexactFloat64()
	return &v
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func toJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte(`null`))
	}
	return datatypes.JSON(raw)
}

func gapEventRows(runID string, events []market.GapEvent) []GapEvent {
	rows := make([]GapEvent, len(events))
	for i, e := range events {
		rows[i] = GapEvent{
			RunID:        runID,
			Code:         e.Code,
			ReportType:   e.ReportType,
			AnnounceDate: e.AnnounceDate,
			TradeDate:    e.TradeDate,
			Low:          decimal.NewFromFloat(e.Low),
			PriorHigh:    decimal.NewFromFloat(e.PriorHigh),
			GapPct:       e.GapPct,
		}
	}
	return rows
}

func selectedRows(runID string, selected []market.SelectedStock) []SelectedStock {
	rows := make([]SelectedStock, len(selected))
	for i, s := range selected {
		rows[i] = SelectedStock{
			RunID:              runID,
			Code:               s.Code,
			ReportType:         s.ReportType,
			AnnounceDate:       s.AnnounceDate,
			TradeDate:          s.TradeDate,
			GapPct:             s.GapPct,
			PeriodEnd:          s.Growth.PeriodEnd,
			GrowthAnnounceDate: s.Growth.AnnounceDate,
			Profit:             nullDecimal(s.Growth.Profit),
			SinglePeriodGrowth: s.Growth.SinglePeriodGrowth,
			MultiPeriodGrowth:  s.Growth.MultiPeriodGrowth,
			OffsetGrowth:       toJSON(s.OffsetGrowth),
		}
	}
	return rows
}

func positionRows(runID string, positions []market.Position) []Position {
	rows := make([]Position, len(positions))
	for i, p := range positions {
		rows[i] = Position{
			RunID:       runID,
			Code:        p.Code,
			ReportType:  p.ReportType,
			BuyDate:     p.BuyDate,
			SellDate:    p.SellDate,
			BuySession:  timePtr(p.BuySession),
			SellSession: timePtr(p.SellSession),
			BuyPrice:    nullDecimal(p.BuyPrice),
			SellPrice:   nullDecimal(p.SellPrice),
			Return:      p.Return,
			Excluded:    p.Excluded,
		}
	}
	return rows
}

func portfolioRows(runID string, portfolio []market.PortfolioReturn) []PortfolioReturn {
	rows := make([]PortfolioReturn, len(portfolio))
	for i, p := range portfolio {
		rows[i] = PortfolioReturn{
			RunID:               runID,
			BuyDate:             p.BuyDate,
			MeanReturn:          p.MeanReturn,
			CumulativeReturn:    p.CumulativeReturn,
			Positions:           p.Positions,
			BenchmarkReturn:     p.BenchmarkReturn,
			BenchmarkCumulative: p.BenchmarkCumulative,
		}
	}
	return rows
}

func coverageRows(runID string, coverage []market.QuarterCoverage) []QuarterCoverage {
	rows := make([]QuarterCoverage, len(coverage))
	for i, c := range coverage {
		rows[i] = QuarterCoverage{RunID: runID, Year: c.Year, Quarter: c.Quarter, Companies: c.Companies}
	}
	return rows
}

// Market converts a stored position back to the domain type.
func (p Position) Market() market.Position {
	return market.Position{
		Code:        p.Code,
		ReportType:  p.ReportType,
		BuyDate:     p.BuyDate.UTC(),
		SellDate:    p.SellDate.UTC(),
		BuySession:  derefTime(p.BuySession),
		SellSession: derefTime(p.SellSession),
		BuyPrice:    floatPtr(p.BuyPrice),
		SellPrice:   floatPtr(p.SellPrice),
		Return:      p.Return,
		Excluded:    p.Excluded,
	}
}

func (p PortfolioReturn) Market() market.PortfolioReturn {
	return market.PortfolioReturn{
		BuyDate:             p.BuyDate.UTC(),
		MeanReturn:          p.MeanReturn,
		CumulativeReturn:    p.CumulativeReturn,
		Positions:           p.Positions,
		BenchmarkReturn:     p.BenchmarkReturn,
		BenchmarkCumulative: p.BenchmarkCumulative,
	}
}
