package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/camuig/gap-backtest/internal/broker"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/loader"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
	"github.com/camuig/gap-backtest/internal/moex"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file with secrets")
	source := flag.String("source", "moex", "price source: moex or tinvest")
	secid := flag.String("secid", "IMOEX", "MOEX index SECID or T-Invest ticker")
	name := flag.String("name", "", "benchmark name, the column becomes <name>_close (default strategy.benchmark_index)")
	fromStr := flag.String("from", "", "first date, YYYY-MM-DD")
	toStr := flag.String("to", "", "last date, YYYY-MM-DD (default today)")
	out := flag.String("out", "", "output CSV (default data.benchmark_file)")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "env file error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level)

	from := loader.ParseDate(*fromStr)
	if from.IsZero() {
		fmt.Fprintf(os.Stderr, "invalid -from %q\n", *fromStr)
		os.Exit(1)
	}
	to := market.Day(time.Now())
	if *toStr != "" {
		if to = loader.ParseDate(*toStr); to.IsZero() {
			fmt.Fprintf(os.Stderr, "invalid -to %q\n", *toStr)
			os.Exit(1)
		}
	}

	column := cfg.BenchmarkColumn()
	if *name != "" {
		column = *name + "_close"
	}
	path := *out
	if path == "" {
		path = cfg.Data.BenchmarkFile
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no output path: set -out or data.benchmark_file")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var points []market.BenchmarkPoint
	switch *source {
	case "moex":
		points, err = moex.NewClient(log).FetchIndexHistory(ctx, *secid, from, to)
	case "tinvest":
		var bc *broker.BrokerClient
		bc, err = broker.NewBrokerClient(ctx, cfg, log)
		if err != nil {
			break
		}
		defer bc.Stop()
		points, err = bc.FetchDailyCloses(ctx, *secid, from, to)
	default:
		err = fmt.Errorf("unknown source %q", *source)
	}
	if err != nil {
		log.Error("fetch benchmark failed", "source", *source, "secid", *secid, "error", err)
		os.Exit(1)
	}

	schema := loader.DefaultSchema()
	if err := loader.SaveFile(path, func(w io.Writer) error {
		return schema.WriteBenchmark(w, column, points)
	}); err != nil {
		log.Error("write benchmark failed", "path", path, "error", err)
		os.Exit(1)
	}

	log.Info("benchmark saved", "source", *source, "secid", *secid, "column", column, "rows", len(points), "path", path)
}
