// Package merger combines loaded shards into the tables the pipeline works on.
package merger

import (
	"sort"
	"strings"

	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

// MergeTrading concatenates shards in order. Rows are neither deduplicated
// nor sorted; the inputs are left untouched.
func MergeTrading(shards [][]market.TradingRecord) []market.TradingRecord {
	n := 0
	for _, s := range shards {
		n += len(s)
	}
	out := make([]market.TradingRecord, 0, n)
	for _, s := range shards {
		out = append(out, s...)
	}
	return out
}

// MergeDisclosures returns a copy of the disclosure table.
func MergeDisclosures(d []market.Disclosure) []market.Disclosure {
	out := make([]market.Disclosure, len(d))
	copy(out, d)
	return out
}

// SelectShards picks the named shards in order, or every shard whose name
// starts with prefix (sorted by name) when names is empty. Named shards that
// were not loaded are logged and skipped.
func SelectShards[T any](loaded map[string][]T, names []string, prefix string, log *logger.Logger) [][]T {
	if len(names) == 0 {
		for name := range loaded {
			if strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
	}

	out := make([][]T, 0, len(names))
	for _, name := range names {
		rows, ok := loaded[name]
		if !ok {
			log.Warn("configured shard not loaded, skipping", "shard", name)
			continue
		}
		out = append(out, rows)
	}
	return out
}

// CountCompaniesByQuarter counts distinct instruments traded in each calendar
// quarter, ordered by year then quarter.
func CountCompaniesByQuarter(records []market.TradingRecord) []market.QuarterCoverage {
	type key struct{ year, quarter int }
	seen := make(map[key]map[string]struct{})
	for _, r := range records {
		if r.TradeDate.IsZero() || r.Code == "" {
			continue
		}
		k := key{r.TradeDate.Year(), market.Quarter(r.TradeDate)}
		if seen[k] == nil {
			seen[k] = make(map[string]struct{})
		}
		seen[k][r.Code] = struct{}{}
	}

	out := make([]market.QuarterCoverage, 0, len(seen))
	for k, codes := range seen {
		out = append(out, market.QuarterCoverage{Year: k.year, Quarter: k.quarter, Companies: len(codes)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Quarter < out[j].Quarter
	})
	return out
}
