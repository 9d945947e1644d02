package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/camuig/gap-backtest/internal/market"
)

const issDate = "2006-01-02"

// maxPages bounds paging in case the cursor never reaches TOTAL.
const maxPages = 1000

type issTable struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

func (t issTable) column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

type issHistoryResponse struct {
	History issTable `json:"history"`
	Cursor  issTable `json:"history.cursor"`
}

// FetchIndexHistory downloads daily closes of an index (e.g. IMOEX) between
// from and till inclusive, following the ISS history cursor page by page.
func (c *Client) FetchIndexHistory(ctx context.Context, secid string, from, till time.Time) ([]market.BenchmarkPoint, error) {
	var points []market.BenchmarkPoint
	start := 0

	for page := 0; page < maxPages; page++ {
		iss, err := c.fetchHistoryPage(ctx, secid, from, till, start)
		if err != nil {
			return nil, err
		}

		dateCol := iss.History.column("TRADEDATE")
		closeCol := iss.History.column("CLOSE")
		if dateCol < 0 || closeCol < 0 {
			return nil, fmt.Errorf("ISS history for %s: TRADEDATE/CLOSE columns missing", secid)
		}

		for _, row := range iss.History.Data {
			if len(row) <= dateCol || len(row) <= closeCol {
				continue
			}
			ds, _ := row[dateCol].(string)
			date, err := time.Parse(issDate, ds)
			if err != nil {
				continue
			}
			var px *float64
			if v, ok := row[closeCol].(float64); ok {
				px = &v
			}
			points = append(points, market.BenchmarkPoint{Date: market.Day(date), Close: px})
		}

		next, more := nextStart(iss.Cursor, start, len(iss.History.Data))
		if !more {
			break
		}
		start = next
	}

	c.logger.Info("fetched index history", "secid", secid, "points", len(points))
	return points, nil
}

// nextStart reads INDEX/TOTAL/PAGESIZE from the cursor block. Without a cursor
// the last page is the first one that came back empty.
func nextStart(cursor issTable, start, rows int) (int, bool) {
	if len(cursor.Data) == 0 {
		return start + rows, rows > 0
	}
	row := cursor.Data[0]
	get := func(name string) int {
		i := cursor.column(name)
		if i < 0 || i >= len(row) {
			return 0
		}
		return int(toFloat64(row[i]))
	}
	index, total, pageSize := get("INDEX"), get("TOTAL"), get("PAGESIZE")
	if pageSize <= 0 || rows == 0 {
		return 0, false
	}
	next := index + pageSize
	return next, next < total
}

func (c *Client) fetchHistoryPage(ctx context.Context, secid string, from, till time.Time, start int) (*issHistoryResponse, error) {
	q := url.Values{}
	q.Set("iss.meta", "off")
	q.Set("iss.only", "history,history.cursor")
	q.Set("history.columns", "TRADEDATE,CLOSE")
	q.Set("from", from.Format(issDate))
	q.Set("till", till.Format(issDate))
	q.Set("start", fmt.Sprint(start))
	u := fmt.Sprintf("%s/history/engines/stock/markets/index/securities/%s.json?%s",
		c.baseURL, url.PathEscape(secid), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("MOEX ISS returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var iss issHistoryResponse
	if err := json.Unmarshal(body, &iss); err != nil {
		return nil, fmt.Errorf("parse ISS response: %w", err)
	}
	return &iss, nil
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
