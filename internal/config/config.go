package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	OffsetModeSequence = "sequence"
	OffsetModeCalendar = "calendar"
)

type Config struct {
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Output   OutputConfig   `yaml:"output"`
	Tinkoff  TinkoffConfig  `yaml:"tinkoff"`
	DeepSeek DeepSeekConfig `yaml:"deepseek"`
	Telegram TelegramConfig `yaml:"telegram"`
	Web      WebConfig      `yaml:"web"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DataConfig struct {
	TradingDir         string   `yaml:"trading_dir"`
	DisclosureDir      string   `yaml:"disclosure_dir"`
	TradingShards      []string `yaml:"trading_shards"`
	TradingShardPrefix string   `yaml:"trading_shard_prefix"`
	DisclosureShard    string   `yaml:"disclosure_shard"`
	BenchmarkFile      string   `yaml:"benchmark_file"`
	CodeWidth          int      `yaml:"code_width"`
}

type StrategyConfig struct {
	HoldingPeriodDays int    `yaml:"holding_period_days"`
	BenchmarkIndex    string `yaml:"benchmark_index"`
	// GrowthThreshold is a fraction: 0.5 means multi-period growth above 50%.
	GrowthThreshold       *float64 `yaml:"growth_threshold"`
	LookbackQuarters      int      `yaml:"lookback_quarters"`
	OffsetMode            string   `yaml:"offset_mode"`
	PositiveQuarters      int      `yaml:"positive_quarters"`
	MinSinglePeriodGrowth *float64 `yaml:"min_single_period_growth"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	WriteMerged bool   `yaml:"write_merged"`
}

type TinkoffConfig struct {
	Token     string `yaml:"token"`
	Sandbox   bool   `yaml:"sandbox"`
	AccountID string `yaml:"account_id"`
}

type DeepSeekConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyEnv fills secrets left empty in the file from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TINKOFF_TOKEN"); v != "" && cfg.Tinkoff.Token == "" {
		cfg.Tinkoff.Token = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" && cfg.DeepSeek.APIKey == "" {
		cfg.DeepSeek.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" && cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Data.TradingDir == "" {
		cfg.Data.TradingDir = "data/stk_data"
	}
	if cfg.Data.DisclosureDir == "" {
		cfg.Data.DisclosureDir = "data/pft_data"
	}
	if cfg.Data.TradingShardPrefix == "" {
		cfg.Data.TradingShardPrefix = "TRD_Dalyr"
	}
	if cfg.Data.DisclosureShard == "" {
		cfg.Data.DisclosureShard = "IAR_Rept"
	}
	if cfg.Data.CodeWidth == 0 {
		cfg.Data.CodeWidth = 6
	}
	if cfg.Strategy.HoldingPeriodDays == 0 {
		cfg.Strategy.HoldingPeriodDays = 90
	}
	if cfg.Strategy.BenchmarkIndex == "" {
		cfg.Strategy.BenchmarkIndex = "中证1000"
	}
	if cfg.Strategy.GrowthThreshold == nil {
		threshold := 0.5
		cfg.Strategy.GrowthThreshold = &threshold
	}
	if cfg.Strategy.LookbackQuarters == 0 {
		cfg.Strategy.LookbackQuarters = 8
	}
	if cfg.Strategy.OffsetMode == "" {
		cfg.Strategy.OffsetMode = OffsetModeSequence
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if cfg.DeepSeek.Model == "" {
		cfg.DeepSeek.Model = "deepseek-chat"
	}
	if cfg.DeepSeek.BaseURL == "" {
		cfg.DeepSeek.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.DeepSeek.TimeoutSeconds == 0 {
		cfg.DeepSeek.TimeoutSeconds = 120
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Strategy.HoldingPeriodDays < 0 {
		return fmt.Errorf("strategy.holding_period_days must be positive, got %d", c.Strategy.HoldingPeriodDays)
	}
	if c.Strategy.LookbackQuarters < 0 {
		return fmt.Errorf("strategy.lookback_quarters must be positive, got %d", c.Strategy.LookbackQuarters)
	}
	if c.Strategy.PositiveQuarters < 0 || c.Strategy.PositiveQuarters > c.Strategy.LookbackQuarters {
		return fmt.Errorf("strategy.positive_quarters must be within 0..%d, got %d",
			c.Strategy.LookbackQuarters, c.Strategy.PositiveQuarters)
	}
	switch c.Strategy.OffsetMode {
	case OffsetModeSequence, OffsetModeCalendar:
	default:
		return fmt.Errorf("invalid strategy.offset_mode %q", c.Strategy.OffsetMode)
	}
	if c.Data.CodeWidth < 0 {
		return fmt.Errorf("data.code_width must be positive, got %d", c.Data.CodeWidth)
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

func (c *Config) IsSandbox() bool {
	return c.Tinkoff.Sandbox
}

// BenchmarkColumn is the close-price column of the benchmark table.
func (c *Config) BenchmarkColumn() string {
	return c.Strategy.BenchmarkIndex + "_close"
}

func (c *Config) GrowthThreshold() float64 {
	if c.Strategy.GrowthThreshold == nil {
		return 0.5
	}
	return *c.Strategy.GrowthThreshold
}

func (c *Config) CommentaryEnabled() bool {
	return c.DeepSeek.APIKey != ""
}

func (c *Config) DeepSeekTimeout() time.Duration {
	return time.Duration(c.DeepSeek.TimeoutSeconds) * time.Second
}
