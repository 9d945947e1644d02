package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("data:\n  trading_dir: in/stk\n"))
	require.NoError(t, err)

	assert.Equal(t, "in/stk", cfg.Data.TradingDir)
	assert.Equal(t, "data/pft_data", cfg.Data.DisclosureDir)
	assert.Equal(t, "TRD_Dalyr", cfg.Data.TradingShardPrefix)
	assert.Equal(t, "IAR_Rept", cfg.Data.DisclosureShard)
	assert.Equal(t, 6, cfg.Data.CodeWidth)
	assert.Equal(t, 90, cfg.Strategy.HoldingPeriodDays)
	assert.Equal(t, 8, cfg.Strategy.LookbackQuarters)
	assert.Equal(t, OffsetModeSequence, cfg.Strategy.OffsetMode)
	assert.InDelta(t, 0.5, cfg.GrowthThreshold(), 1e-12)
	assert.Equal(t, "中证1000_close", cfg.BenchmarkColumn())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.CommentaryEnabled())
}

func TestParseKeepsExplicitZeroThreshold(t *testing.T) {
	cfg, err := Parse([]byte("strategy:\n  growth_threshold: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.GrowthThreshold())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad offset mode", "strategy:\n  offset_mode: fuzzy\n", "offset_mode"},
		{"negative holding", "strategy:\n  holding_period_days: -1\n", "holding_period_days"},
		{"positive quarters above lookback", "strategy:\n  lookback_quarters: 4\n  positive_quarters: 5\n", "positive_quarters"},
		{"telegram without token", "telegram:\n  enabled: true\n  chat_id: 1\n", "bot_token"},
		{"telegram without chat", "telegram:\n  enabled: true\n  bot_token: x\n", "chat_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TELEGRAM_BOT_TOKEN", "")
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvOverridesEmptySecrets(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-env")
	t.Setenv("TINKOFF_TOKEN", "t-env")

	cfg, err := Parse([]byte("tinkoff:\n  token: t-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.DeepSeek.APIKey)
	assert.Equal(t, "t-file", cfg.Tinkoff.Token)
	assert.True(t, cfg.CommentaryEnabled())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy:\n  holding_period_days: 30\n  offset_mode: calendar\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Strategy.HoldingPeriodDays)
	assert.Equal(t, OffsetModeCalendar, cfg.Strategy.OffsetMode)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
