package market

import "time"

// TradingRecord is one daily session of one instrument.
type TradingRecord struct {
	Code      string
	TradeDate time.Time
	High      *float64
	Low       *float64
	Close     *float64
}

// Complete reports whether every field the gap detector needs is present.
func (r TradingRecord) Complete() bool {
	return r.Code != "" && !r.TradeDate.IsZero() && r.High != nil && r.Low != nil && r.Close != nil
}

// Disclosure is one periodic financial report of one instrument.
type Disclosure struct {
	Code         string
	ReportType   string
	PeriodEnd    time.Time
	AnnounceDate time.Time
	Profit       *float64
}

func (d Disclosure) Complete() bool {
	return d.Code != "" && d.ReportType != "" && !d.PeriodEnd.IsZero() && !d.AnnounceDate.IsZero() && d.Profit != nil
}

// GapEvent is a disclosure whose first session on or after the announcement
// opened above the previous session's high.
type GapEvent struct {
	Code         string
	ReportType   string
	AnnounceDate time.Time
	TradeDate    time.Time
	Low          float64
	PriorHigh    float64
	GapPct       float64
}

// GrowthRecord carries profit growth computed from an instrument's disclosure history.
type GrowthRecord struct {
	Code               string
	ReportType         string
	PeriodEnd          time.Time
	AnnounceDate       time.Time
	Profit             *float64
	SinglePeriodGrowth *float64
	MultiPeriodGrowth  *float64
	Seq                int // position in the instrument's announce-ordered series
}

// Defined reports whether both growth measures are available.
func (g GrowthRecord) Defined() bool {
	return g.SinglePeriodGrowth != nil && g.MultiPeriodGrowth != nil
}

// SelectedStock is a gap event joined with the latest known growth record.
type SelectedStock struct {
	GapEvent
	Growth GrowthRecord
	// OffsetGrowth[k-1] is the single-period growth k quarters before the event.
	OffsetGrowth []*float64
}

// GrowthAgo returns the single-period growth k quarters ago, or nil.
func (s SelectedStock) GrowthAgo(k int) *float64 {
	if k < 1 || k > len(s.OffsetGrowth) {
		return nil
	}
	return s.OffsetGrowth[k-1]
}

// Position is one backtested holding of a selected stock.
type Position struct {
	Code        string
	ReportType  string
	BuyDate     time.Time
	SellDate    time.Time
	BuySession  time.Time
	SellSession time.Time
	BuyPrice    *float64
	SellPrice   *float64
	Return      *float64
	Excluded    string // empty when the position counts towards the portfolio
}

// PortfolioReturn is the equal-weighted result of every position opened on BuyDate.
type PortfolioReturn struct {
	BuyDate             time.Time
	MeanReturn          float64
	CumulativeReturn    float64
	Positions           int
	BenchmarkReturn     *float64
	BenchmarkCumulative *float64
}

// BenchmarkPoint is one close of the benchmark index.
type BenchmarkPoint struct {
	Date  time.Time
	Close *float64
}

// QuarterCoverage counts distinct instruments traded in a calendar quarter.
type QuarterCoverage struct {
	Year      int
	Quarter   int
	Companies int
}
