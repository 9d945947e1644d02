package storage

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one pipeline execution and its headline results.
type Run struct {
	ID         string     `gorm:"primarykey;size:36" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Status string         `gorm:"index;not null;default:'running'" json:"status"`
	Config datatypes.JSON `json:"config"`

	TradingRows    int `json:"trading_rows"`
	DisclosureRows int `json:"disclosure_rows"`
	GapEvents      int `json:"gap_events"`
	Selected       int `json:"selected"`
	Positions      int `json:"positions"`
	Priced         int `json:"priced"`

	CumulativeReturn    decimal.NullDecimal `gorm:"type:numeric(20,10)" json:"cumulative_return"`
	BenchmarkCumulative decimal.NullDecimal `gorm:"type:numeric(20,10)" json:"benchmark_cumulative"`
	Summary             datatypes.JSON      `json:"summary"`

	Commentary string `gorm:"type:text" json:"commentary,omitempty"`
	Error      string `gorm:"type:text" json:"error,omitempty"`
}

type GapEvent struct {
	ID    uint   `gorm:"primarykey" json:"-"`
	RunID string `gorm:"index;size:36;not null" json:"run_id"`

	Code         string          `gorm:"index;not null" json:"code"`
	ReportType   string          `json:"report_type"`
	AnnounceDate time.Time       `json:"announce_date"`
	TradeDate    time.Time       `json:"trade_date"`
	Low          decimal.Decimal `gorm:"type:numeric(20,6)" json:"low"`
	PriorHigh    decimal.Decimal `gorm:"type:numeric(20,6)" json:"prior_high"`
	GapPct       float64         `json:"gap_pct"`
}

type SelectedStock struct {
	ID    uint   `gorm:"primarykey" json:"-"`
	RunID string `gorm:"index;size:36;not null" json:"run_id"`

	Code               string              `gorm:"index;not null" json:"code"`
	ReportType         string              `json:"report_type"`
	AnnounceDate       time.Time           `json:"announce_date"`
	TradeDate          time.Time           `json:"trade_date"`
	GapPct             float64             `json:"gap_pct"`
	PeriodEnd          time.Time           `json:"period_end"`
	GrowthAnnounceDate time.Time           `json:"growth_announce_date"`
	Profit             decimal.NullDecimal `gorm:"type:numeric(24,4)" json:"profit"`
	SinglePeriodGrowth *float64            `json:"single_period_growth"`
	MultiPeriodGrowth  *float64            `json:"multi_period_growth"`
	// OffsetGrowth is a JSON array, index k-1 holds the growth k quarters back.
	OffsetGrowth datatypes.JSON `json:"offset_growth"`
}

type Position struct {
	ID    uint   `gorm:"primarykey" json:"-"`
	RunID string `gorm:"index;size:36;not null" json:"run_id"`

	Code        string              `gorm:"index;not null" json:"code"`
	ReportType  string              `json:"report_type"`
	BuyDate     time.Time           `json:"buy_date"`
	SellDate    time.Time           `json:"sell_date"`
	BuySession  *time.Time          `json:"buy_session,omitempty"`
	SellSession *time.Time          `json:"sell_session,omitempty"`
	BuyPrice    decimal.NullDecimal `gorm:"type:numeric(20,6)" json:"buy_price"`
	SellPrice   decimal.NullDecimal `gorm:"type:numeric(20,6)" json:"sell_price"`
	Return      *float64            `gorm:"column:return_pct" json:"return"`
	Excluded    string              `json:"excluded,omitempty"`
}

type PortfolioReturn struct {
	ID    uint   `gorm:"primarykey" json:"-"`
	RunID string `gorm:"index;size:36;not null" json:"run_id"`

	BuyDate             time.Time `gorm:"index" json:"buy_date"`
	MeanReturn          float64   `json:"mean_return"`
	CumulativeReturn    float64   `json:"cumulative_return"`
	Positions           int       `json:"positions"`
	BenchmarkReturn     *float64  `json:"benchmark_return,omitempty"`
	BenchmarkCumulative *float64  `json:"benchmark_cumulative,omitempty"`
}

type QuarterCoverage struct {
	ID    uint   `gorm:"primarykey" json:"-"`
	RunID string `gorm:"index;size:36;not null" json:"run_id"`

	Year      int `json:"year"`
	Quarter   int `json:"quarter"`
	Companies int `json:"companies"`
}

func (QuarterCoverage) TableName() string {
	return "quarter_coverage"
}
