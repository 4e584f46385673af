package delivery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/htmlutils"
)

const errParseEntities = "can't parse entities"

// BotAPI is the part of tgbotapi.BotAPI used for delivery.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotTransport sends HTML messages through the Telegram Bot API.
type BotTransport struct {
	api BotAPI
}

func NewBotTransport(api BotAPI) *BotTransport {
	return &BotTransport{api: api}
}

// Send posts text to destination, a numeric chat id or an @channel
// username. If Telegram rejects the markup the text is resent without it.
func (t *BotTransport) Send(ctx context.Context, destination, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newMessage(destination, text)
	if err != nil {
		return err
	}

	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	_, err = t.api.Send(msg)
	if err != nil && strings.Contains(err.Error(), errParseEntities) {
		plain, _ := newMessage(destination, htmlutils.StripHTMLTags(text))
		plain.DisableWebPagePreview = true

		_, err = t.api.Send(plain)
	}

	return classifyBotError(err)
}

func newMessage(destination, text string) (tgbotapi.MessageConfig, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return tgbotapi.MessageConfig{}, apperrors.ErrMissingDestination
	}

	if chatID, err := strconv.ParseInt(destination, 10, 64); err == nil {
		return tgbotapi.NewMessage(chatID, text), nil
	}

	if !strings.HasPrefix(destination, "@") {
		destination = "@" + destination
	}

	return tgbotapi.NewMessageToChannel(destination, text), nil
}

// classifyBotError turns a Bot API flood response into a RateLimitError.
func classifyBotError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if apperrors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return &RateLimitError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
	}

	return fmt.Errorf("telegram send: %w", err)
}
