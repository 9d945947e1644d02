package broker

import (
	"context"
	"fmt"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"github.com/camuig/gap-backtest/internal/market"
)

// maxDailyWindow is the longest range the API serves for daily candles in one call.
const maxDailyWindow = 365 * 24 * time.Hour

type window struct {
	from, to time.Time
}

// dailyWindows splits [from, to) into consecutive ranges no longer than maxDailyWindow.
func dailyWindows(from, to time.Time) []window {
	var out []window
	for start := from; start.Before(to); start = start.Add(maxDailyWindow) {
		end := start.Add(maxDailyWindow)
		if end.After(to) {
			end = to
		}
		out = append(out, window{from: start, to: end})
	}
	return out
}

// FetchDailyCloses downloads the daily closes of ticker between from and to
// (both calendar days, inclusive) as a benchmark series.
func (bc *BrokerClient) FetchDailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]market.BenchmarkPoint, error) {
	uid, err := bc.ResolveTickerToUID(ticker)
	if err != nil {
		return nil, err
	}

	md := bc.Client.NewMarketDataServiceClient()
	var candles []*pb.HistoricCandle
	for _, w := range dailyWindows(market.Day(from), market.Day(to).AddDate(0, 0, 1)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := md.GetCandles(
			uid,
			pb.CandleInterval_CANDLE_INTERVAL_DAY,
			w.from, w.to,
			pb.GetCandlesRequest_CANDLE_SOURCE_EXCHANGE,
			0,
		)
		if err != nil {
			return nil, fmt.Errorf("get candles %s %s..%s: %w", ticker,
				w.from.Format("2006-01-02"), w.to.Format("2006-01-02"), err)
		}
		candles = append(candles, resp.GetCandles()...)
	}

	points := closesFromCandles(candles)
	bc.Logger.Info("fetched daily candles", "ticker", ticker, "uid", uid, "points", len(points))
	return points, nil
}

// closesFromCandles keeps completed candles, one per calendar day, in time order.
func closesFromCandles(candles []*pb.HistoricCandle) []market.BenchmarkPoint {
	var out []market.BenchmarkPoint
	for _, c := range candles {
		if !c.GetIsComplete() || c.GetTime() == nil {
			continue
		}
		day := market.Day(c.GetTime().AsTime())
		if n := len(out); n > 0 && !out[n-1].Date.Before(day) {
			continue
		}
		px := c.GetClose().ToFloat()
		out = append(out, market.BenchmarkPoint{Date: day, Close: &px})
	}
	return out
}
