package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/pretty"

	"github.com/camuig/gap-backtest/internal/ai"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/pipeline"
	"github.com/camuig/gap-backtest/internal/storage"
	"github.com/camuig/gap-backtest/internal/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file with secrets")
	dbPath := flag.String("db", "", "path to SQLite run store (disabled when empty)")
	every := flag.Duration("every", 0, "rerun the pipeline at this interval instead of once")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "env file error: %v\n", err)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level)
	log.Info("starting gapscan",
		"trading_dir", cfg.Data.TradingDir,
		"disclosure_dir", cfg.Data.DisclosureDir,
		"holding_days", cfg.Strategy.HoldingPeriodDays)

	runner := pipeline.NewRunner(cfg, log)

	if *dbPath != "" {
		db, err := storage.NewDatabase(*dbPath)
		if err != nil {
			log.Error("database init failed", "error", err)
			os.Exit(1)
		}
		runner.WithStore(storage.NewRepository(db))
	}

	notifier := telegram.NewNotifier(cfg, log)
	runner.WithNotifier(notifier)

	if cfg.CommentaryEnabled() {
		runner.WithCommentator(ai.NewDeepSeekClient(cfg, log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *every > 0 {
		notifier.NotifyStatus(fmt.Sprintf("📈 gapscan запущен, интервал %s", every.String()))
		runner.RunEvery(ctx, *every)
		notifier.NotifyStatus("🛑 gapscan остановлен")
		return
	}

	started := time.Now()
	rep, err := runner.Run(ctx)
	if err != nil {
		log.Error("pipeline failed", "error", err)
		os.Exit(1)
	}

	body, err := json.Marshal(rep.Summary)
	if err != nil {
		log.Error("encode summary", "error", err)
		os.Exit(1)
	}
	os.Stdout.Write(pretty.Pretty(body))

	if rep.Commentary != "" {
		fmt.Println()
		fmt.Println(rep.Commentary)
	}
	log.Info("gapscan done", "run_id", rep.RunID, "elapsed", time.Since(started).String())
}
