package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/camuig/gap-backtest/internal/market"
)

const (
	TableTrading    = "trading"
	TableDisclosure = "disclosure"
	TableBenchmark  = "benchmark"
)

// header maps trimmed column names to their position.
type header map[string]int

func readHeader(cr *csv.Reader) (header, error) {
	row, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return header{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(row))
	for i, name := range row {
		name = strings.TrimPrefix(name, "\ufeff")
		h[strings.TrimSpace(name)] = i
	}
	return h, nil
}

func (h header) require(table string, cols ...string) error {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return &market.SchemaError{Table: table, Column: c}
		}
	}
	return nil
}

func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	return cr
}

// ReadTrading parses a daily trading table.
func (s Schema) ReadTrading(r io.Reader) ([]market.TradingRecord, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	c := s.Trading
	if err := h.require(TableTrading, c.Code, c.Date, c.High, c.Low, c.Close); err != nil {
		return nil, err
	}

	var out []market.TradingRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", TableTrading, len(out)+2, err)
		}
		out = append(out, market.TradingRecord{
			Code:      PadCode(h.get(row, c.Code), s.CodeWidth),
			TradeDate: ParseDate(h.get(row, c.Date)),
			High:      ParseFloat(h.get(row, c.High)),
			Low:       ParseFloat(h.get(row, c.Low)),
			Close:     ParseFloat(h.get(row, c.Close)),
		})
	}
	return out, nil
}

// ReadDisclosures parses a financial disclosure table.
func (s Schema) ReadDisclosures(r io.Reader) ([]market.Disclosure, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	c := s.Disclosure
	if err := h.require(TableDisclosure, c.Code, c.ReportType, c.PeriodEnd, c.AnnounceDate, c.Profit); err != nil {
		return nil, err
	}

	var out []market.Disclosure
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", TableDisclosure, len(out)+2, err)
		}
		out = append(out, market.Disclosure{
			Code:         PadCode(h.get(row, c.Code), s.CodeWidth),
			ReportType:   strings.TrimSpace(h.get(row, c.ReportType)),
			PeriodEnd:    ParseDate(h.get(row, c.PeriodEnd)),
			AnnounceDate: ParseDate(h.get(row, c.AnnounceDate)),
			Profit:       ParseFloat(h.get(row, c.Profit)),
		})
	}
	return out, nil
}

// ReadBenchmark parses an index series; closeColumn is usually "<index>_close".
func (s Schema) ReadBenchmark(r io.Reader, closeColumn string) ([]market.BenchmarkPoint, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if err := h.require(TableBenchmark, s.BenchmarkDate, closeColumn); err != nil {
		return nil, err
	}

	var out []market.BenchmarkPoint
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", TableBenchmark, len(out)+2, err)
		}
		date := ParseDate(h.get(row, s.BenchmarkDate))
		if date.IsZero() {
			continue
		}
		out = append(out, market.BenchmarkPoint{
			Date:  date,
			Close: ParseFloat(h.get(row, closeColumn)),
		})
	}
	return out, nil
}
