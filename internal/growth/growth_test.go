package growth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

func disc(code string, periodEnd, announce time.Time, profit *float64) market.Disclosure {
	return market.Disclosure{Code: code, ReportType: "A", PeriodEnd: periodEnd, AnnounceDate: announce, Profit: profit}
}

// quarterly builds a gap-free quarterly history announced 20 days after each quarter end.
func quarterly(code string, profits ...float64) []market.Disclosure {
	var out []market.Disclosure
	end := market.Date(2018, 3, 31)
	for _, p := range profits {
		out = append(out, disc(code, end, end.AddDate(0, 0, 20), market.F(p)))
		end = market.AddMonths(end, 3)
	}
	return out
}

func TestBuildEndToEndScenario(t *testing.T) {
	ds := []market.Disclosure{
		disc("000001", market.Date(2020, 6, 30), market.Date(2020, 7, 2), market.F(150)),
		disc("000001", market.Date(2020, 3, 31), market.Date(2020, 3, 31), market.F(100)),
	}
	s := Build(ds, logger.Nop())

	recs := s.Instrument("000001")
	require.Len(t, recs, 2)
	assert.Nil(t, recs[0].SinglePeriodGrowth)
	require.NotNil(t, recs[1].SinglePeriodGrowth)
	assert.InDelta(t, 0.5, *recs[1].SinglePeriodGrowth, 1e-12)
	assert.Equal(t, 1, recs[1].Seq)
}

func TestMultiPeriodGrowthDefinedFromFifthRecord(t *testing.T) {
	s := Build(quarterly("000001", 100, 110, 120, 130, 160, 220), logger.Nop())
	recs := s.Instrument("000001")
	require.Len(t, recs, 6)

	for i := 0; i < MultiPeriodLag; i++ {
		assert.Nil(t, recs[i].MultiPeriodGrowth, "record %d", i)
	}
	require.NotNil(t, recs[4].MultiPeriodGrowth)
	assert.InDelta(t, 0.6, *recs[4].MultiPeriodGrowth, 1e-12)
	assert.InDelta(t, 1.0, *recs[5].MultiPeriodGrowth, 1e-12)
	assert.True(t, recs[4].Defined())
	assert.False(t, recs[3].Defined())
}

func TestGrowthNullOnZeroOrMissingProfit(t *testing.T) {
	ds := quarterly("000001", 100, 0, 50, 60, 70)
	ds[3].Profit = nil
	s := Build(ds, logger.Nop())
	recs := s.Instrument("000001")

	assert.InDelta(t, -1.0, *recs[1].SinglePeriodGrowth, 1e-12)
	assert.Nil(t, recs[2].SinglePeriodGrowth, "previous profit is zero")
	assert.Nil(t, recs[3].SinglePeriodGrowth, "current profit missing")
	assert.Nil(t, recs[4].SinglePeriodGrowth, "previous profit missing")
	assert.InDelta(t, -0.3, *recs[4].MultiPeriodGrowth, 1e-12)
}

func TestInstrumentsAreIndependent(t *testing.T) {
	ds := append(quarterly("000002", 10, 20), quarterly("000001", 100, 50)...)
	s := Build(ds, logger.Nop())

	assert.InDelta(t, 1.0, *s.Instrument("000002")[1].SinglePeriodGrowth, 1e-12)
	assert.InDelta(t, -0.5, *s.Instrument("000001")[1].SinglePeriodGrowth, 1e-12)
	assert.Nil(t, s.Instrument("000001")[0].SinglePeriodGrowth)

	all := s.Records()
	require.Len(t, all, 4)
	assert.Equal(t, "000001", all[0].Code)
	assert.Equal(t, "000002", all[3].Code)
}

func TestBuildSkipsUndatedRows(t *testing.T) {
	ds := quarterly("000001", 100, 200)
	ds = append(ds, disc("000001", market.Date(2018, 9, 30), time.Time{}, market.F(1)))
	s := Build(ds, logger.Nop())
	assert.Len(t, s.Instrument("000001"), 2)
}

func TestSequenceOffsets(t *testing.T) {
	s := Build(quarterly("000001", 100, 110, 121, 242, 121), logger.Nop())

	offsets := s.Offsets(OffsetSequence, "000001", 4, time.Time{}, 8)
	require.Len(t, offsets, 8)
	assert.InDelta(t, 1.0, *offsets[0], 1e-12)
	assert.InDelta(t, 0.1, *offsets[1], 1e-12)
	assert.InDelta(t, 0.1, *offsets[2], 1e-12)
	assert.Nil(t, offsets[3], "first record has no growth")
	for _, v := range offsets[4:] {
		assert.Nil(t, v)
	}
	assert.Nil(t, s.OffsetGrowth("000001", 4, 0))
	assert.Nil(t, s.OffsetGrowth("999999", 4, 1))
}

func TestCalendarOffsetsRequireExactShiftedDate(t *testing.T) {
	ds := []market.Disclosure{
		disc("000001", market.Date(2019, 6, 30), market.Date(2019, 8, 31), market.F(100)),
		disc("000001", market.Date(2019, 9, 30), market.Date(2019, 11, 30), market.F(120)),
		disc("000001", market.Date(2019, 12, 31), market.Date(2020, 2, 29), market.F(150)),
		// irregular announcement: shifted date misses the anchor by a day
		disc("000001", market.Date(2020, 3, 31), market.Date(2020, 5, 30), market.F(300)),
	}
	s := Build(ds, logger.Nop())

	// Nov 30 + 3 months clamps to Feb 29 in a leap year.
	got := s.CalendarOffsetGrowth("000001", market.Date(2020, 2, 29), 1)
	require.NotNil(t, got)
	assert.InDelta(t, 0.2, *got, 1e-12)

	// Aug 31 + 6 months = Feb 29 as well, but that record has no growth.
	assert.Nil(t, s.CalendarOffsetGrowth("000001", market.Date(2020, 2, 29), 2))

	// Feb 29 + 3 months = May 29, one day before the anchor.
	assert.Nil(t, s.CalendarOffsetGrowth("000001", market.Date(2020, 5, 30), 1))
	got = s.CalendarOffsetGrowth("000001", market.Date(2020, 5, 29), 1)
	require.NotNil(t, got)
	assert.InDelta(t, 0.25, *got, 1e-12)

	offsets := s.Offsets(OffsetCalendar, "000001", 0, market.Date(2020, 2, 29), 3)
	require.Len(t, offsets, 3)
	assert.NotNil(t, offsets[0])
	assert.Nil(t, offsets[1])
	assert.Nil(t, offsets[2])
}

func TestChange(t *testing.T) {
	assert.Nil(t, Change(nil, market.F(1)))
	assert.Nil(t, Change(market.F(1), nil))
	assert.Nil(t, Change(market.F(1), market.F(0)))
	assert.InDelta(t, 0.5, *Change(market.F(150), market.F(100)), 1e-12)
}
