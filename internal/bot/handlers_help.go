package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// helpMessage lists the available commands.
func helpMessage() string {
	return "\U0001F44B <b>Channel Snapshot Bot</b>\n\n" +
		"• <code>/report</code> - Build reports now and send them here\n" +
		"• <code>/report prod</code> - Build reports now and send them to the channel\n" +
		"• <code>/status</code> - Next scheduled run and last result\n" +
		"• <code>/help</code> - This message"
}

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	b.reply(msg, helpMessage())
}
