package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/camuig/gap-backtest/internal/market"
)

// SaveFile writes path through a temporary file in the same directory and
// renames it into place, so a failed write never leaves a truncated table.
func SaveFile(path string, write func(io.Writer) error) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func writeTable(w io.Writer, head []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(head); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s Schema) WriteTrading(w io.Writer, rows []market.TradingRecord) error {
	c := s.Trading
	return writeTable(w, []string{c.Code, c.Date, c.High, c.Low, c.Close}, len(rows), func(i int) []string {
		r := rows[i]
		return []string{r.Code, formatDate(r.TradeDate), formatNullable(r.High), formatNullable(r.Low), formatNullable(r.Close)}
	})
}

func (s Schema) WriteDisclosures(w io.Writer, rows []market.Disclosure) error {
	c := s.Disclosure
	return writeTable(w, []string{c.Code, c.ReportType, c.PeriodEnd, c.AnnounceDate, c.Profit}, len(rows), func(i int) []string {
		d := rows[i]
		return []string{d.Code, d.ReportType, formatDate(d.PeriodEnd), formatDate(d.AnnounceDate), formatNullable(d.Profit)}
	})
}

func (s Schema) WriteBenchmark(w io.Writer, closeColumn string, points []market.BenchmarkPoint) error {
	return writeTable(w, []string{s.BenchmarkDate, closeColumn}, len(points), func(i int) []string {
		return []string{formatDate(points[i].Date), formatNullable(points[i].Close)}
	})
}

// WriteGapEvents writes the detector output with the source table's column names.
func (s Schema) WriteGapEvents(w io.Writer, events []market.GapEvent) error {
	head := []string{s.Disclosure.Code, s.Disclosure.ReportType, s.Disclosure.AnnounceDate, s.Trading.Date,
		s.Trading.Low, "prev_" + s.Trading.High, "gap_pct"}
	return writeTable(w, head, len(events), func(i int) []string {
		return gapEventCells(events[i])
	})
}

func gapEventCells(e market.GapEvent) []string {
	return []string{e.Code, e.ReportType, formatDate(e.AnnounceDate), formatDate(e.TradeDate),
		formatFloat(e.Low), formatFloat(e.PriorHigh), formatFloat(e.GapPct)}
}

func (s Schema) WriteSelected(w io.Writer, rows []market.SelectedStock, lookback int) error {
	head := []string{s.Disclosure.Code, s.Disclosure.ReportType, s.Disclosure.AnnounceDate, s.Trading.Date,
		s.Trading.Low, "prev_" + s.Trading.High, "gap_pct",
		s.Disclosure.PeriodEnd, "growth_" + s.Disclosure.AnnounceDate, s.Disclosure.Profit,
		"profit_growth", "profit_growth_2y"}
	for k := 1; k <= lookback; k++ {
		head = append(head, "growth_"+strconv.Itoa(k)+"q_ago")
	}
	return writeTable(w, head, len(rows), func(i int) []string {
		r := rows[i]
		cells := gapEventCells(r.GapEvent)
		cells = append(cells, formatDate(r.Growth.PeriodEnd), formatDate(r.Growth.AnnounceDate),
			formatNullable(r.Growth.Profit), formatNullable(r.Growth.SinglePeriodGrowth),
			formatNullable(r.Growth.MultiPeriodGrowth))
		for k := 1; k <= lookback; k++ {
			cells = append(cells, formatNullable(r.GrowthAgo(k)))
		}
		return cells
	})
}

func (s Schema) WritePositions(w io.Writer, rows []market.Position) error {
	head := []string{s.Trading.Code, s.Disclosure.ReportType, "buy_date", "sell_date", "buy_session",
		"sell_session", "buy_price", "sell_price", "return", "excluded"}
	return writeTable(w, head, len(rows), func(i int) []string {
		p := rows[i]
		return []string{p.Code, p.ReportType, formatDate(p.BuyDate), formatDate(p.SellDate),
			formatDate(p.BuySession), formatDate(p.SellSession), formatNullable(p.BuyPrice),
			formatNullable(p.SellPrice), formatNullable(p.Return), p.Excluded}
	})
}

func WritePortfolio(w io.Writer, rows []market.PortfolioReturn) error {
	head := []string{"buy_date", "return", "cum_return", "positions", "benchmark_return", "benchmark_cum"}
	return writeTable(w, head, len(rows), func(i int) []string {
		r := rows[i]
		return []string{formatDate(r.BuyDate), formatFloat(r.MeanReturn), formatFloat(r.CumulativeReturn),
			strconv.Itoa(r.Positions), formatNullable(r.BenchmarkReturn), formatNullable(r.BenchmarkCumulative)}
	})
}

func WriteCoverage(w io.Writer, rows []market.QuarterCoverage) error {
	return writeTable(w, []string{"Year", "Quarter", "Company_Count"}, len(rows), func(i int) []string {
		r := rows[i]
		return []string{strconv.Itoa(r.Year), strconv.Itoa(r.Quarter), strconv.Itoa(r.Companies)}
	})
}
