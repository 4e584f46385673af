// Package pipeline runs one report cycle: collect, group, summarize,
// format and deliver.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/output/format"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/config"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
	"github.com/lueurxax/channel-snapshot-bot/internal/process/grouping"
	"github.com/lueurxax/channel-snapshot-bot/internal/process/summarizer"
)

type TelegramCollector interface {
	Collect(ctx context.Context, channels []string, cutoff time.Time) ([]domain.Item, []domain.SourceError, error)
}

type BlogCollector interface {
	Collect(ctx context.Context, blogs []domain.Source, cutoff time.Time) ([]domain.Item, []domain.SourceError)
}

type Summarizer interface {
	Summarize(ctx context.Context, group domain.SourceGroup, opts summarizer.Options) (domain.Report, error)
	Snapshot(ctx context.Context, groups domain.Groups, opts summarizer.Options) (domain.Report, error)
}

type Sender interface {
	Send(ctx context.Context, destination, text string) (int, error)
}

// Deps are the collaborators of a Runner. Telegram may be nil when no user
// session is configured; channels are then skipped.
type Deps struct {
	Telegram   TelegramCollector
	Blogs      BlogCollector
	Summarizer Summarizer
	Sender     Sender
	Sources    *config.Sources
}

type Runner struct {
	deps     Deps
	settings Settings
	logger   *zerolog.Logger
	now      func() time.Time

	running sync.Mutex

	mu   sync.RWMutex
	last *Outcome
}

func New(deps Deps, settings Settings, logger *zerolog.Logger) *Runner {
	if settings.Location == nil {
		settings.Location = time.UTC
	}

	return &Runner{
		deps:     deps,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one cycle. Only one run may be active at a time; a second
// caller gets ErrRunInProgress without waiting.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if req.Destination == "" {
		return Result{}, apperrors.ErrMissingDestination
	}

	if !r.running.TryLock() {
		return Result{}, apperrors.ErrRunInProgress
	}
	defer r.running.Unlock()

	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}

	res := Result{
		RunID:     uuid.NewString(),
		Trigger:   req.Trigger,
		StartedAt: r.now(),
	}

	logger := r.logger.With().
		Str(logKeyRunID, res.RunID).
		Str(logKeyTrigger, string(req.Trigger)).
		Logger()

	logger.Info().Str(logKeyDestination, req.Destination).Msg("Run started")

	err := r.run(ctx, req, &res, &logger)

	res.FinishedAt = r.now()
	r.record(res, err, &logger)

	return res, err
}

func (r *Runner) run(ctx context.Context, req Request, res *Result, logger *zerolog.Logger) error {
	cutoff := res.StartedAt.In(r.settings.Location).Add(-r.settings.Lookback)

	items, err := r.collect(ctx, cutoff, res, logger)
	if err != nil {
		return err
	}

	res.Items = len(items)

	groups := grouping.Group(items)
	res.Sources = len(groups)

	if len(groups) == 0 {
		logger.Info().Time(logKeyCutoff, cutoff).Msg("Nothing new inside the lookback window")
		return nil
	}

	digest := req.Trigger == TriggerScheduled

	var intro preamble

	if digest {
		intro.header = format.Header(res.StartedAt.In(r.settings.Location))

		if r.settings.Snapshot {
			snapshot, err := r.snapshot(ctx, groups, logger)
			if err != nil {
				return err
			}

			intro.snapshot = snapshot
		}
	}

	if err := r.deliverReports(ctx, req, groups, digest, &intro, res, logger); err != nil {
		return err
	}

	if res.Reports == 0 {
		return fmt.Errorf("%w: all %d reports failed", apperrors.ErrGeneration, len(groups))
	}

	if digest {
		if err := r.deliver(ctx, req.Destination, format.Footer(), res); err != nil {
			return err
		}
	}

	return nil
}

// preamble holds the messages that open a scheduled delivery. They go out
// right before the first report, so a run without reports sends nothing.
type preamble struct {
	header   string
	snapshot string
	sent     bool
}

func (r *Runner) sendPreamble(ctx context.Context, destination string, p *preamble, res *Result) error {
	if p.sent {
		return nil
	}

	p.sent = true

	if p.header != "" {
		if err := r.deliver(ctx, destination, p.header, res); err != nil {
			return err
		}
	}

	if p.snapshot == "" {
		return nil
	}

	if err := r.deliver(ctx, destination, p.snapshot, res); err != nil {
		return fmt.Errorf("delivering snapshot: %w", err)
	}

	observability.ReportsGenerated.WithLabelValues(observability.StatusSuccess).Inc()

	res.Snapshot = true

	return nil
}

// collect runs both collectors concurrently. Per-source failures are
// recorded on res; only session-wide failures abort the run.
func (r *Runner) collect(ctx context.Context, cutoff time.Time, res *Result, logger *zerolog.Logger) ([]domain.Item, error) {
	var (
		tgItems, blogItems       []domain.Item
		tgFailures, blogFailures []domain.SourceError
		tgAttempted              int
	)

	channels := r.deps.Sources.TelegramIDs()
	blogs := r.deps.Sources.Blogs

	g, gctx := errgroup.WithContext(ctx)

	if r.deps.Telegram != nil && len(channels) > 0 {
		tgAttempted = len(channels)

		g.Go(func() error {
			items, failures, err := r.deps.Telegram.Collect(gctx, channels, cutoff)
			tgItems, tgFailures = items, failures

			if err == nil {
				return nil
			}

			if apperrors.Is(err, apperrors.ErrNotAuthorized) || ctx.Err() != nil {
				return err
			}

			// The session failed as a whole: every channel not already
			// reported counts as failed and the blogs still run.
			logger.Error().Err(err).Msg("Telegram session failed")

			tgFailures = append(tgFailures, sessionFailures(channels, failures, err)...)

			return nil
		})
	} else if len(channels) > 0 {
		logger.Warn().Int(logKeySources, len(channels)).Msg("Telegram session not configured, skipping channels")
	}

	if r.deps.Blogs != nil && len(blogs) > 0 {
		g.Go(func() error {
			blogItems, blogFailures = r.deps.Blogs.Collect(gctx, blogs, cutoff)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collecting: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collecting: %w", err)
	}

	res.Failures = append(append(res.Failures, tgFailures...), blogFailures...)

	items := make([]domain.Item, 0, len(tgItems)+len(blogItems))
	items = append(items, tgItems...)
	items = append(items, blogItems...)

	attempted := tgAttempted
	if r.deps.Blogs != nil {
		attempted += len(blogs)
	}

	if len(items) == 0 && attempted > 0 && len(res.Failures) >= attempted {
		return nil, fmt.Errorf("%w: %d sources", apperrors.ErrAllSourcesFailed, attempted)
	}

	logger.Info().
		Int(logKeyItems, len(items)).
		Int(logKeyFailures, len(res.Failures)).
		Time(logKeyCutoff, cutoff).
		Msg("Collection finished")

	return items, nil
}

func sessionFailures(channels []string, reported []domain.SourceError, err error) []domain.SourceError {
	seen := make(map[string]bool, len(reported))
	for _, f := range reported {
		seen[f.Key.ID] = true
	}

	var out []domain.SourceError

	for _, ch := range channels {
		if seen[ch] {
			continue
		}

		out = append(out, domain.SourceError{
			Key: domain.SourceKey{Kind: domain.KindTelegram, ID: ch},
			Err: fmt.Errorf("%w: %w", apperrors.ErrCollection, err),
		})
	}

	return out
}

// deliverReports summarizes and sends each group in order. A generation
// failure is reported through progress and skipped; a delivery failure
// ends the run.
func (r *Runner) deliverReports(ctx context.Context, req Request, groups domain.Groups, compact bool, intro *preamble, res *Result, logger *zerolog.Logger) error {
	opts := r.settings.sourceOptions(compact)

	for i, group := range groups {
		label := r.deps.Sources.Label(group.Key)

		report, err := r.deps.Summarizer.Summarize(ctx, group, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("summarizing %s: %w", group.Key, ctxErr)
			}

			observability.ReportsGenerated.WithLabelValues(observability.StatusError).Inc()
			logger.Warn().Err(err).Str(logKeySource, group.Key.String()).Msg("Report generation failed")

			res.Failed = append(res.Failed, domain.SourceError{Key: group.Key, Err: err})
			req.progress(Progress{Index: i + 1, Total: len(groups), Label: label, Err: err})

			continue
		}

		report.Label = label

		if err := r.sendPreamble(ctx, req.Destination, intro, res); err != nil {
			return err
		}

		if err := r.deliver(ctx, req.Destination, format.Format(report), res); err != nil {
			return fmt.Errorf("delivering %s: %w", group.Key, err)
		}

		observability.ReportsGenerated.WithLabelValues(observability.StatusSuccess).Inc()

		res.Reports++
		req.progress(Progress{Index: i + 1, Total: len(groups), Label: label})
	}

	return nil
}

// snapshot generates and renders the cross-source report. A generation
// failure is logged and yields an empty string.
func (r *Runner) snapshot(ctx context.Context, groups domain.Groups, logger *zerolog.Logger) (string, error) {
	report, err := r.deps.Summarizer.Snapshot(ctx, groups, r.settings.snapshotOptions())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("snapshot: %w", ctxErr)
		}

		observability.ReportsGenerated.WithLabelValues(observability.StatusError).Inc()
		logger.Warn().Err(err).Msg("Snapshot generation failed")

		return "", nil
	}

	report.Label = SnapshotLabel

	return format.Format(report), nil
}

func (r *Runner) deliver(ctx context.Context, destination, text string, res *Result) error {
	sent, err := r.deps.Sender.Send(ctx, destination, text)
	res.Chunks += sent

	return err
}

func (r *Runner) record(res Result, err error, logger *zerolog.Logger) {
	trigger := string(res.Trigger)
	elapsed := res.FinishedAt.Sub(res.StartedAt)

	observability.RunDurationSeconds.WithLabelValues(trigger).Observe(elapsed.Seconds())

	if err != nil {
		observability.RunsTotal.WithLabelValues(trigger, observability.StatusError).Inc()
		logger.Error().Err(err).Str(logKeyKind, apperrors.Kind(err)).Dur(logKeyElapsed, elapsed).Msg("Run failed")
	} else {
		observability.RunsTotal.WithLabelValues(trigger, observability.StatusSuccess).Inc()

		if res.Reports > 0 {
			observability.LastSuccessfulRun.Set(float64(res.FinishedAt.Unix()))
		}

		logger.Info().
			Int(logKeyReports, res.Reports).
			Int(logKeyFailures, len(res.Failed)).
			Int(logKeyChunks, res.Chunks).
			Dur(logKeyElapsed, elapsed).
			Msg("Run finished")
	}

	r.mu.Lock()
	r.last = &Outcome{Result: res, Err: err}
	r.mu.Unlock()
}

// Last returns the outcome of the most recent run, if any.
func (r *Runner) Last() (Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.last == nil {
		return Outcome{}, false
	}

	return *r.last, true
}

// Busy reports whether a run is active.
func (r *Runner) Busy() bool {
	if r.running.TryLock() {
		r.running.Unlock()
		return false
	}

	return true
}
