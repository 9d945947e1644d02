package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

// LoadReport lists what happened to every file found in a shard directory.
type LoadReport struct {
	Loaded  []string
	Skipped []string // editor lock files
	Failed  []string
}

// LoadTradingShards reads every trading CSV in dir, keyed by file stem.
func (s Schema) LoadTradingShards(dir string, log *logger.Logger) (map[string][]market.TradingRecord, LoadReport, error) {
	return loadDir(dir, log, s.ReadTrading)
}

// LoadDisclosureShards reads every disclosure CSV in dir, keyed by file stem.
func (s Schema) LoadDisclosureShards(dir string, log *logger.Logger) (map[string][]market.Disclosure, LoadReport, error) {
	return loadDir(dir, log, s.ReadDisclosures)
}

func (s Schema) LoadBenchmarkFile(path, closeColumn string) ([]market.BenchmarkPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open benchmark: %w", err)
	}
	defer f.Close()

	points, err := s.ReadBenchmark(f, closeColumn)
	if err != nil {
		return nil, fmt.Errorf("read benchmark %s: %w", filepath.Base(path), err)
	}
	return points, nil
}

// loadDir never fails on a single shard: a file that cannot be opened or
// parsed is logged and left out of the result.
func loadDir[T any](dir string, log *logger.Logger, read func(io.Reader) ([]T, error)) (map[string][]T, LoadReport, error) {
	var report LoadReport

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, report, fmt.Errorf("read shard dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	tables := make(map[string][]T, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "~$") {
			log.Debug("skipping lock file", "file", name)
			report.Skipped = append(report.Skipped, name)
			continue
		}

		rows, err := readFile(filepath.Join(dir, name), read)
		if err != nil {
			log.Warn("shard load failed", "file", name, "error", err)
			report.Failed = append(report.Failed, name)
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		tables[stem] = rows
		report.Loaded = append(report.Loaded, stem)
		log.Info("shard loaded", "file", name, "rows", len(rows))
	}

	return tables, report, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}
