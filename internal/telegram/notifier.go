package telegram

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/gap-backtest/internal/backtest"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/logger"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot     sender
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

// RunReport is what a finished run reports to the chat.
type RunReport struct {
	RunID     string
	GapEvents int
	Selected  int
	Summary   backtest.Summary
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

func (n *Notifier) NotifyRunSummary(r RunReport) {
	n.send(FormatRunSummary(r))
}

func (n *Notifier) NotifyError(stage string, err error) {
	// paths and column names carry underscores that break Markdown
	msg := fmt.Sprintf("⚠️ *Ошибка* [%s]\n%s", stage, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error()))
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

// FormatRunSummary renders a run as a Markdown message.
func FormatRunSummary(r RunReport) string {
	s := r.Summary
	emoji := "🔴"
	if s.CumulativeReturn > 0 {
		emoji = "💰"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Бэктест* `%s`\n", emoji, shortID(r.RunID))
	fmt.Fprintf(&b, "Гэпы: %d, отобрано: %d\n", r.GapEvents, r.Selected)
	fmt.Fprintf(&b, "Позиции: %d, с ценой: %d\n", s.Positions, s.Priced)
	fmt.Fprintf(&b, "Доходность: %+.2f%%\n", s.CumulativeReturn*100)
	if s.BenchmarkCumulative != nil {
		fmt.Fprintf(&b, "Бенчмарк: %+.2f%%\n", *s.BenchmarkCumulative*100)
	}
	if s.ExcessReturn != nil {
		fmt.Fprintf(&b, "Альфа: %+.2f%%\n", *s.ExcessReturn*100)
	}
	fmt.Fprintf(&b, "Win rate: %.0f%%", s.WinRate*100)

	if len(s.Exclusions) > 0 {
		reasons := make([]string, 0, len(s.Exclusions))
		for k := range s.Exclusions {
			reasons = append(reasons, k)
		}
		sort.Strings(reasons)
		b.WriteString("\nИсключено:")
		for _, k := range reasons {
			fmt.Fprintf(&b, " %s=%d", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, k), s.Exclusions[k])
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
