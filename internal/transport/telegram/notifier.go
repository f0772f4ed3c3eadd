package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/config"
	"github.com/samber/oops"
)

// Notifier posts a short summary of every published issue to one chat
type Notifier struct {
	bot    *bot.Bot
	chatID int64
	logger *slog.Logger
}

// New creates a new Telegram notifier. The bot is not polled; it only
// sends messages.
func New(cfg *config.Config, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.TelegramAPIURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.TelegramAPIURL))
	}

	b, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
	}

	return &Notifier{
		bot:    b,
		chatID: cfg.TelegramChatID,
		logger: logger,
	}, nil
}

// Notify sends the issue summary
func (n *Notifier) Notify(ctx context.Context, magazine *domain.Magazine) error {
	if _, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   Summary(magazine),
	}); err != nil {
		return oops.With("chat_id", n.chatID, "magazine_id", magazine.ID).Wrap(err)
	}

	n.logger.Debug("Notification sent", "chat_id", n.chatID, "magazine_id", magazine.ID)
	return nil
}

// Summary renders the message text for magazine
func Summary(magazine *domain.Magazine) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📰 %s %s is ready\n", magazine.Title, magazine.Date)
	fmt.Fprintf(&sb, "%d articles from %d feeds\n", len(magazine.Articles()), len(magazine.Sections))
	for _, section := range magazine.Sections {
		fmt.Fprintf(&sb, "\n• %s (%d)", section.Title, len(section.Articles))
	}
	return sb.String()
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *domain.Magazine) error {
	return nil
}
