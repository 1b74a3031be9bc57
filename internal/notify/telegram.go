package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"shiftlog/internal/config"
)

// DefaultTelegramTimeout applies when the configured request timeout is not
// positive.
const DefaultTelegramTimeout = 10 * time.Second

// Telegram delivers messages through the Bot API. One client is created at
// startup and shared by every delivery.
type Telegram struct {
	bot   *tgbotapi.BotAPI
	retry config.RetryConfig
	log   zerolog.Logger
}

// NewTelegram connects to the Bot API and verifies the token with getMe.
func NewTelegram(cfg config.TelegramConfig, log zerolog.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTelegramTimeout
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &Telegram{
		bot:   bot,
		retry: cfg.Retry,
		log:   log.With().Str("component", "telegram").Logger(),
	}, nil
}

// BotName returns the bot's username as reported by getMe.
func (t *Telegram) BotName() string {
	return t.bot.Self.UserName
}

// Send posts "*title*\n\nmessage" in Markdown to chatID. Numeric ids address
// users and groups; anything else is treated as a channel username.
func (t *Telegram) Send(ctx context.Context, chatID, title, message string) error {
	text := fmt.Sprintf("*%s*\n\n%s", title, message)
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdown

	return retry(ctx, t.retry, func(int) error {
		_, err := t.bot.Send(msg)
		return err
	}, retryableTelegramError, func(attempt int, delay time.Duration, err error) {
		t.log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Str("chat_id", chatID).Msg("telegram send failed, retrying")
	})
}

// retryableTelegramError refuses to retry client errors other than rate
// limiting; those will fail the same way again.
func retryableTelegramError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		return apiErr.Code < 400 || apiErr.Code >= 500
	}
	return true
}
