// Package gap finds post-announcement sessions that trade entirely above the
// previous session's high.
package gap

import (
	"sort"
	"time"

	"github.com/camuig/gap-backtest/internal/asof"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

// Stats counts the rows each detection step dropped.
type Stats struct {
	IncompleteSessions    int
	IncompleteDisclosures int
	DuplicateSessions     int
	Unmatched             int // no session on or after the announcement
	NoPriorHigh           int // matched the instrument's first session, or a non-positive high
	NoGap                 int
	Events                int
}

// Session is a trading record with the previous session's high attached.
type Session struct {
	market.TradingRecord
	PrevHigh *float64
}

func sessionDate(s Session) time.Time { return s.TradeDate }

// BuildSessions drops incomplete rows, orders each instrument's sessions by
// date and attaches the one-step lagged high. When several rows share an
// (instrument, date) pair the first one in input order is kept.
func BuildSessions(trading []market.TradingRecord) (map[string][]Session, int, int) {
	rows := make([]market.TradingRecord, 0, len(trading))
	incomplete := 0
	for _, r := range trading {
		if !r.Complete() {
			incomplete++
			continue
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Code != rows[j].Code {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].TradeDate.Before(rows[j].TradeDate)
	})

	index := make(map[string][]Session)
	duplicates := 0
	for _, r := range rows {
		list := index[r.Code]
		var prev *float64
		if n := len(list); n > 0 {
			if list[n-1].TradeDate.Equal(r.TradeDate) {
				duplicates++
				continue
			}
			prev = list[n-1].High
		}
		index[r.Code] = append(list, Session{TradingRecord: r, PrevHigh: prev})
	}
	return index, incomplete, duplicates
}

// Detect matches every complete disclosure to the first session of the same
// instrument dated on or after its announcement and keeps the matches whose
// low exceeds the prior session's high.
func Detect(trading []market.TradingRecord, disclosures []market.Disclosure, log *logger.Logger) ([]market.GapEvent, Stats) {
	var stats Stats

	sessions, incomplete, duplicates := BuildSessions(trading)
	stats.IncompleteSessions = incomplete
	stats.DuplicateSessions = duplicates

	ds := make([]market.Disclosure, 0, len(disclosures))
	for _, d := range disclosures {
		if !d.Complete() {
			stats.IncompleteDisclosures++
			continue
		}
		ds = append(ds, d)
	}
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].AnnounceDate.Equal(ds[j].AnnounceDate) {
			return ds[i].AnnounceDate.Before(ds[j].AnnounceDate)
		}
		return ds[i].Code < ds[j].Code
	})

	var events []market.GapEvent
	for _, d := range ds {
		list := sessions[d.Code]
		i := asof.Forward(list, sessionDate, d.AnnounceDate)
		if i < 0 {
			stats.Unmatched++
			continue
		}
		s := list[i]
		if s.PrevHigh == nil || *s.PrevHigh <= 0 {
			stats.NoPriorHigh++
			continue
		}
		low, prevHigh := *s.Low, *s.PrevHigh
		if !(low > prevHigh) {
			stats.NoGap++
			continue
		}
		events = append(events, market.GapEvent{
			Code:         d.Code,
			ReportType:   d.ReportType,
			AnnounceDate: d.AnnounceDate,
			TradeDate:    s.TradeDate,
			Low:          low,
			PriorHigh:    prevHigh,
			GapPct:       (low - prevHigh) / prevHigh * 100,
		})
	}
	stats.Events = len(events)

	log.Info("gap events detected",
		"disclosures", len(disclosures),
		"events", stats.Events,
		"unmatched", stats.Unmatched,
		"no_prior_high", stats.NoPriorHigh,
		"incomplete_sessions", stats.IncompleteSessions,
		"incomplete_disclosures", stats.IncompleteDisclosures,
		"duplicate_sessions", stats.DuplicateSessions)

	return events, stats
}
