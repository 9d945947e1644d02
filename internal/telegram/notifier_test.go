package telegram

import (
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/gap-backtest/internal/backtest"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func TestFormatRunSummary(t *testing.T) {
	msg := FormatRunSummary(RunReport{
		RunID:     "0123456789abcdef",
		GapEvents: 12,
		Selected:  3,
		Summary: backtest.Summary{
			Positions:           3,
			Priced:              2,
			Exclusions:          map[string]int{market.ExcludedNoSellSession: 1},
			CumulativeReturn:    0.15,
			BenchmarkCumulative: market.F(0.05),
			ExcessReturn:        market.F(0.10),
			WinRate:             0.5,
		},
	})

	assert.Contains(t, msg, "`01234567`")
	assert.Contains(t, msg, "Гэпы: 12, отобрано: 3")
	assert.Contains(t, msg, "Доходность: +15.00%")
	assert.Contains(t, msg, "Бенчмарк: +5.00%")
	assert.Contains(t, msg, "Альфа: +10.00%")
	assert.Contains(t, msg, `no\_sell\_session=1`)
}

func TestNotifierSendsToChat(t *testing.T) {
	bot := &fakeBot{}
	n := &Notifier{bot: bot, chatID: 42, enabled: true, logger: logger.Nop()}

	n.NotifyRunSummary(RunReport{RunID: "abc"})
	n.NotifyError("load", errors.New("boom"))

	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, bot.sent[1].ParseMode)
	assert.Contains(t, bot.sent[1].Text, "[load]")
}

func TestNotifyErrorEscapesMarkdown(t *testing.T) {
	bot := &fakeBot{}
	n := &Notifier{bot: bot, chatID: 1, enabled: true, logger: logger.Nop()}

	err := fmt.Errorf("read benchmark idx.csv: %w", &market.SchemaError{Table: "benchmark", Column: "中证1000_close"})
	n.NotifyError("benchmark", err)

	require.Len(t, bot.sent, 1)
	text := bot.sent[0].Text
	assert.Contains(t, text, "*Ошибка* [benchmark]")
	assert.Contains(t, text, `中证1000\_close`)
	assert.NotContains(t, text, "1000_close")
}

func TestNotifierSendFailureIsNotFatal(t *testing.T) {
	bot := &fakeBot{err: errors.New("network down")}
	n := &Notifier{bot: bot, chatID: 1, enabled: true, logger: logger.Nop()}

	assert.NotPanics(t, func() { n.NotifyStatus("hello") })
	assert.Len(t, bot.sent, 1)
}

func TestDisabledNotifierIsSilent(t *testing.T) {
	n := NewNotifier(&config.Config{}, logger.Nop())
	assert.NotPanics(t, func() { n.NotifyStatus("hello") })
	assert.False(t, n.enabled)
}
