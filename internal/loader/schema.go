package loader

import (
	"strconv"
	"strings"
	"time"
)

// TradingColumns names the daily trading table's columns.
type TradingColumns struct {
	Code  string
	Date  string
	High  string
	Low   string
	Close string
}

// DisclosureColumns names the financial disclosure table's columns.
type DisclosureColumns struct {
	Code         string
	ReportType   string
	PeriodEnd    string
	AnnounceDate string
	Profit       string
}

type Schema struct {
	Trading       TradingColumns
	Disclosure    DisclosureColumns
	BenchmarkDate string
	// CodeWidth is the zero-padded width of instrument codes.
	CodeWidth int
}

// DefaultSchema matches the column names of the vendor export the tool was built for.
func DefaultSchema() Schema {
	return Schema{
		Trading: TradingColumns{
			Code:  "Stkcd",
			Date:  "Trddt",
			High:  "Hiprc",
			Low:   "Loprc",
			Close: "Clsprc",
		},
		Disclosure: DisclosureColumns{
			Code:         "Stkcd",
			ReportType:   "Reptyp",
			PeriodEnd:    "Accper",
			AnnounceDate: "Annodt",
			Profit:       "Profita",
		},
		BenchmarkDate: "date",
		CodeWidth:     6,
	}
}

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"20060102",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"2006-1-2",
}

// ParseDate accepts the layouts seen in exported tables and returns the zero
// time when none matches.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// ParseFloat returns nil for empty, NA-like or malformed cells.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none", "n/a", "-":
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// PadCode normalizes an instrument code to a fixed-width zero-padded string.
func PadCode(s string, width int) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
