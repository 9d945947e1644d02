// Package growth derives profit growth features from each instrument's
// disclosure history.
package growth

import (
	"sort"
	"time"

	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

// MultiPeriodLag is the lag of the year-over-year growth at quarterly cadence.
const MultiPeriodLag = 4

// MonthsPerPeriod is the calendar distance of one reporting period.
const MonthsPerPeriod = 3

type OffsetMode string

const (
	// OffsetSequence looks k records back in the instrument's ordered series.
	OffsetSequence OffsetMode = "sequence"
	// OffsetCalendar looks for the record announced exactly 3k months before the anchor.
	OffsetCalendar OffsetMode = "calendar"
)

type dateKey struct {
	code string
	date time.Time
}

// Series holds every instrument's growth records ordered by announce date.
type Series struct {
	byCode   map[string][]market.GrowthRecord
	codes    []string
	calendar map[int]map[dateKey]int
}

// Build computes single- and multi-period growth per instrument. Rows without
// an instrument or an announce date cannot be placed in time and are skipped.
func Build(disclosures []market.Disclosure, log *logger.Logger) *Series {
	rows := make([]market.Disclosure, 0, len(disclosures))
	for _, d := range disclosures {
		if d.Code == "" || d.AnnounceDate.IsZero() {
			continue
		}
		rows = append(rows, d)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if !a.AnnounceDate.Equal(b.AnnounceDate) {
			return a.AnnounceDate.Before(b.AnnounceDate)
		}
		return a.PeriodEnd.Before(b.PeriodEnd)
	})

	s := &Series{
		byCode:   make(map[string][]market.GrowthRecord),
		calendar: make(map[int]map[dateKey]int),
	}
	defined := 0
	for _, d := range rows {
		list := s.byCode[d.Code]
		if list == nil {
			s.codes = append(s.codes, d.Code)
		}
		seq := len(list)
		rec := market.GrowthRecord{
			Code:         d.Code,
			ReportType:   d.ReportType,
			PeriodEnd:    d.PeriodEnd,
			AnnounceDate: d.AnnounceDate,
			Profit:       d.Profit,
			Seq:          seq,
		}
		if seq >= 1 {
			rec.SinglePeriodGrowth = Change(d.Profit, list[seq-1].Profit)
		}
		if seq >= MultiPeriodLag {
			rec.MultiPeriodGrowth = Change(d.Profit, list[seq-MultiPeriodLag].Profit)
		}
		if rec.Defined() {
			defined++
		}
		s.byCode[d.Code] = append(list, rec)
	}

	log.Info("growth features built",
		"disclosures", len(disclosures),
		"instruments", len(s.codes),
		"records", len(rows),
		"fully_defined", defined)

	return s
}

// Change returns cur/prev - 1, or nil when either value is missing or prev is zero.
func Change(cur, prev *float64) *float64 {
	if cur == nil || prev == nil || *prev == 0 {
		return nil
	}
	v := *cur / *prev - 1
	return &v
}

// Instrument returns the ordered records of one instrument.
func (s *Series) Instrument(code string) []market.GrowthRecord {
	return s.byCode[code]
}

// Records returns every record ordered by instrument then announce date.
func (s *Series) Records() []market.GrowthRecord {
	var out []market.GrowthRecord
	for _, code := range s.codes {
		out = append(out, s.byCode[code]...)
	}
	return out
}

// OffsetGrowth returns the single-period growth k records before seq.
func (s *Series) OffsetGrowth(code string, seq, k int) *float64 {
	list := s.byCode[code]
	i := seq - k
	if k < 1 || i < 0 || i >= len(list) {
		return nil
	}
	return list[i].SinglePeriodGrowth
}

// CalendarOffsetGrowth returns the single-period growth of the record whose
// announce date shifted forward by 3k months equals anchor exactly.
func (s *Series) CalendarOffsetGrowth(code string, anchor time.Time, k int) *float64 {
	if k < 1 {
		return nil
	}
	seq, ok := s.calendarIndex(k)[dateKey{code, anchor}]
	if !ok {
		return nil
	}
	return s.byCode[code][seq].SinglePeriodGrowth
}

// calendarIndex maps (instrument, announce date + 3k months) to a sequence
// number. The first record wins when two land on the same shifted date.
func (s *Series) calendarIndex(k int) map[dateKey]int {
	if idx, ok := s.calendar[k]; ok {
		return idx
	}
	idx := make(map[dateKey]int)
	for code, list := range s.byCode {
		for _, r := range list {
			key := dateKey{code, market.AddMonths(r.AnnounceDate, MonthsPerPeriod*k)}
			if _, dup := idx[key]; !dup {
				idx[key] = r.Seq
			}
		}
	}
	s.calendar[k] = idx
	return idx
}

// Offsets returns growth 1..lookback periods back. In sequence mode the
// anchor is the record's sequence number, in calendar mode the anchor date.
func (s *Series) Offsets(mode OffsetMode, code string, seq int, anchor time.Time, lookback int) []*float64 {
	out := make([]*float64, lookback)
	for k := 1; k <= lookback; k++ {
		if mode == OffsetCalendar {
			out[k-1] = s.CalendarOffsetGrowth(code, anchor, k)
		} else {
			out[k-1] = s.OffsetGrowth(code, seq, k)
		}
	}
	return out
}
