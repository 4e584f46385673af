package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/process/pipeline"
)

// handleReport runs the pipeline on demand. Without arguments the reports
// go to the invoking chat; "/report prod" sends them to the production
// destination.
func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	destination := chatDestination(msg.Chat.ID)

	args := strings.Fields(msg.CommandArguments())
	if len(args) > 0 {
		if !strings.EqualFold(args[0], ArgProd) {
			b.reply(msg, "Usage: <code>/report</code> or <code>/report prod</code>")
			return
		}

		destination = b.opts.TargetChat
	}

	if b.runner.Busy() {
		b.reply(msg, failureMessage(apperrors.ErrRunInProgress))
		return
	}

	progressID := b.reply(msg, msgReportStarted)
	progress := newProgressLog(msgReportStarted)

	res, err := b.runner.Run(ctx, pipeline.Request{
		Trigger:     pipeline.TriggerManual,
		Destination: destination,
		OnProgress: func(p pipeline.Progress) {
			progress.add(p)

			if progressID != 0 {
				b.editMessage(msg.Chat.ID, progressID, progress.String())
			}
		},
	})
	if err != nil {
		b.reply(msg, failureMessage(err))
		return
	}

	b.reply(msg, doneMessage(res))
}

func failureMessage(err error) string {
	return fmt.Sprintf(msgReportFailed, apperrors.Kind(err), html.EscapeString(err.Error()))
}

func doneMessage(res pipeline.Result) string {
	if res.Sources == 0 {
		return msgReportDone + " (새로운 글 없음)"
	}

	text := fmt.Sprintf("%s (%d/%d)", msgReportDone, res.Reports, res.Sources)

	if skipped := len(res.Failures); skipped > 0 {
		text += fmt.Sprintf("\n⚠️ 수집 실패 %d곳", skipped)
	}

	return text
}

// progressLog accumulates one line per finished source under a title.
type progressLog struct {
	title string
	lines []string
}

func newProgressLog(title string) *progressLog {
	return &progressLog{title: title}
}

func (p *progressLog) add(pr pipeline.Progress) {
	mark := markOK
	if pr.Err != nil {
		mark = markFailed
	}

	p.lines = append(p.lines, fmt.Sprintf("%d/%d %s %s", pr.Index, pr.Total, html.EscapeString(pr.Label), mark))
}

func (p *progressLog) String() string {
	if len(p.lines) == 0 {
		return p.title
	}

	return p.title + "\n\n" + strings.Join(p.lines, "\n")
}

func (b *Bot) handleStatus(_ context.Context, msg *tgbotapi.Message) {
	var sb strings.Builder

	sb.WriteString("📊 <b>Status</b>\n\n")

	if next, ok := b.opts.NextRun(); ok {
		sb.WriteString(fmt.Sprintf("• <b>Next run:</b> <code>%s</code>\n", next.In(b.opts.Location).Format(dateTimeFormat)))
	} else {
		sb.WriteString("• <b>Next run:</b> <code>not scheduled</code>\n")
	}

	if b.opts.TargetChat == "" {
		sb.WriteString("• <b>Destination:</b> ⚠️ <code>not configured</code>\n")
	} else {
		sb.WriteString(fmt.Sprintf("• <b>Destination:</b> <code>%s</code>\n", html.EscapeString(b.opts.TargetChat)))
	}

	if b.runner.Busy() {
		sb.WriteString("• <b>Running:</b> <code>yes</code>\n")
	}

	outcome, ok := b.runner.Last()
	if !ok {
		sb.WriteString("• <b>Last run:</b> <code>None</code>\n")
		b.reply(msg, sb.String())

		return
	}

	sb.WriteString(fmt.Sprintf("• <b>Last run:</b> <code>%s</code> (%s)\n",
		outcome.FinishedAt.In(b.opts.Location).Format(dateTimeFormat), outcome.Trigger))

	if outcome.Err != nil {
		sb.WriteString(fmt.Sprintf("• <b>Result:</b> ❌ [%s] %s\n", apperrors.Kind(outcome.Err), html.EscapeString(outcome.Err.Error())))
	} else {
		sb.WriteString(fmt.Sprintf("• <b>Result:</b> ✅ %d/%d reports, %d messages\n", outcome.Reports, outcome.Sources, outcome.Chunks))
	}

	if len(outcome.Failures) > 0 {
		sb.WriteString(fmt.Sprintf("• <b>Skipped sources:</b> <code>%d</code>\n", len(outcome.Failures)))
	}

	b.reply(msg, sb.String())
}
