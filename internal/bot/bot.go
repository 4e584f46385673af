// Package bot exposes the manual trigger and status commands over the
// Telegram Bot API.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-snapshot-bot/internal/process/pipeline"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/htmlutils"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Runner starts report runs and remembers the last outcome.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Last() (pipeline.Outcome, bool)
	Busy() bool
}

// NextRunFunc returns the next scheduled run, or false when none is planned.
type NextRunFunc func() (time.Time, bool)

type Options struct {
	AdminIDs   []int64
	TargetChat string
	Location   *time.Location
	NextRun    NextRunFunc
}

type Bot struct {
	api    API
	runner Runner
	opts   Options
	logger *zerolog.Logger

	registry *commandRegistry
	wg       sync.WaitGroup
}

func New(api API, runner Runner, opts Options, logger *zerolog.Logger) *Bot {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	if opts.NextRun == nil {
		opts.NextRun = func() (time.Time, bool) { return time.Time{}, false }
	}

	b := &Bot{
		api:    api,
		runner: runner,
		opts:   opts,
		logger: logger,
	}
	b.registry = b.newCommandRegistry()

	return b
}

// Run polls for updates until ctx ends. Commands are handled concurrently
// so that /status answers while a report is being generated.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	defer func() {
		b.api.StopReceivingUpdates()
		b.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			if update.Message == nil || update.Message.From == nil {
				continue
			}

			msg := update.Message

			if !b.isAdmin(msg.From.ID) {
				b.logger.Warn().Int64(LogFieldUserID, msg.From.ID).Str(LogFieldUsername, msg.From.UserName).Msg("Unauthorized access attempt")
				continue
			}

			b.wg.Add(1)

			go func() {
				defer b.wg.Done()
				b.handleMessage(ctx, msg)
			}()
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.opts.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	b.logger.Info().Str(LogFieldCommand, msg.Command()).Int64(LogFieldUserID, msg.From.ID).Msg("Handling command")

	if !b.registry.route(ctx, msg) {
		b.reply(msg, "Unknown command. Try <code>/help</code>.")
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) int {
	return b.sendMessage(msg.Chat.ID, text)
}

// sendMessage sends an HTML message and returns its id, or 0 on failure.
func (b *Bot) sendMessage(chatID int64, text string) int {
	reply := tgbotapi.NewMessage(chatID, htmlutils.SanitizeHTML(text))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.DisableWebPagePreview = true

	sent, err := b.api.Send(reply)
	if err != nil {
		b.logger.Error().Err(err).Int64(LogFieldChatID, chatID).Msg("failed to send reply")
		return 0
	}

	return sent.MessageID
}

func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, htmlutils.SanitizeHTML(text))
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug().Err(err).Int64(LogFieldChatID, chatID).Msg("failed to update progress message")
	}
}

func chatDestination(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
