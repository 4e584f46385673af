// Package app wires the collectors, the report pipeline, the scheduler and
// the command bot together and exposes the operational modes:
//
//   - Bot mode: command bot plus the daily scheduler and the health server
//   - Run mode: the daily scheduler alone, or a single run with --once
//   - Login mode: interactive Telegram user-session login
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/channel-snapshot-bot/internal/bot"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/core/llm"
	"github.com/lueurxax/channel-snapshot-bot/internal/ingest/blog"
	"github.com/lueurxax/channel-snapshot-bot/internal/ingest/telegram"
	"github.com/lueurxax/channel-snapshot-bot/internal/output/delivery"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/config"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/schedule"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/worker"
	"github.com/lueurxax/channel-snapshot-bot/internal/process/pipeline"
	"github.com/lueurxax/channel-snapshot-bot/internal/process/summarizer"
)

const (
	dailyTaskName = "daily_report"

	checkBotAPI    = "bot_api"
	checkScheduler = "scheduler"
)

var errNoNextRun = errors.New("next run not computed yet")

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	sources  *config.Sources
	schedule schedule.Schedule
	location *time.Location
	logger   *zerolog.Logger

	mu      sync.RWMutex
	nextRun time.Time
}

// New validates the schedule and creates an App.
func New(cfg *config.Config, sources *config.Sources, logger *zerolog.Logger) (*App, error) {
	sched := schedule.Daily(cfg.ScheduleTimezone, cfg.ScheduleTimes, cfg.ScheduleWeekendTimes)
	if err := sched.Validate(); err != nil {
		return nil, fmt.Errorf("%w: schedule: %w", apperrors.ErrInvalidInput, err)
	}

	loc, err := sched.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: schedule timezone: %w", apperrors.ErrInvalidInput, err)
	}

	return &App{
		cfg:      cfg,
		sources:  sources,
		schedule: sched,
		location: loc,
		logger:   logger,
	}, nil
}

// RunBot runs the command bot, the daily scheduler and the health server
// until ctx ends.
func (a *App) RunBot(ctx context.Context) error {
	if err := a.cfg.ValidateReporting(); err != nil {
		return err
	}

	a.logger.Info().Str("schedule", a.schedule.String()).Msg("Starting bot mode")

	api, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("bot initialization failed: %w", err)
	}

	runner := a.newRunner(api)

	b := bot.New(api, runner, bot.Options{
		AdminIDs:   a.cfg.AdminIDs,
		TargetChat: a.cfg.TargetChat,
		Location:   a.location,
		NextRun:    a.NextRun,
	}, a.logger)

	health := a.newHealthServer(api)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return health.Start(gctx) })
	g.Go(func() error { return worker.RunDaily(gctx, a.dailyTask(runner)) })
	g.Go(func() error { return b.Run(gctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bot mode: %w", err)
	}

	return nil
}

// RunScheduler runs the daily scheduler without the command bot. With once
// set it performs a single scheduled-style run immediately and returns.
func (a *App) RunScheduler(ctx context.Context, once bool) error {
	if err := a.cfg.ValidateReporting(); err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("bot initialization failed: %w", err)
	}

	runner := a.newRunner(api)
	task := a.dailyTask(runner)

	if once {
		a.logger.Info().Msg("Running a single report cycle")

		if err := task.Precheck(); err != nil {
			return err
		}

		return task.Run(ctx)
	}

	a.logger.Info().Str("schedule", a.schedule.String()).Msg("Starting scheduler mode")

	health := a.newHealthServer(api)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return health.Start(gctx) })
	g.Go(func() error { return worker.RunDaily(gctx, task) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("scheduler mode: %w", err)
	}

	return nil
}

// RunLogin authenticates the Telegram user session interactively and
// stores it at TG_SESSION_PATH.
func (a *App) RunLogin(ctx context.Context, in io.Reader, out io.Writer) error {
	if !a.cfg.TelegramConfigured() {
		return fmt.Errorf("%w: TG_API_ID and TG_API_HASH are required for login", apperrors.ErrInvalidInput)
	}

	platform := telegram.NewMTProto(a.cfg, a.logger)
	authenticator := telegram.NewTerminalAuth(a.cfg.TGPhone, a.cfg.TG2FAPassword, in, out, a.logger)

	if err := platform.Login(ctx, authenticator); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	return nil
}

// NextRun returns the next scheduled fire time once the scheduler has
// computed it.
func (a *App) NextRun() (time.Time, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.nextRun, !a.nextRun.IsZero()
}

func (a *App) setNextRun(t time.Time) {
	a.mu.Lock()
	a.nextRun = t
	a.mu.Unlock()

	observability.NextScheduledRun.Set(float64(t.Unix()))
}

func (a *App) newRunner(api delivery.BotAPI) *pipeline.Runner {
	var tg pipeline.TelegramCollector

	if a.cfg.TelegramConfigured() {
		tg = telegram.NewCollector(telegram.NewMTProto(a.cfg, a.logger), a.logger)
	} else {
		a.logger.Warn().Msg("TG_API_ID/TG_API_HASH not set, Telegram channels will be skipped")
	}

	fetcher := blog.NewHTTPFetcher(a.cfg.FeedTimeout, a.cfg.FeedRPS)

	sender := delivery.NewSender(delivery.NewBotTransport(api), delivery.Options{
		Limit:       a.cfg.MessageLimit,
		MinFraction: a.cfg.ChunkMinFraction,
		Balance:     true,
	}, a.logger)

	return pipeline.New(pipeline.Deps{
		Telegram:   tg,
		Blogs:      blog.NewCollector(fetcher, a.cfg.BlogFeedURLTemplate, a.location, a.logger),
		Summarizer: summarizer.New(llm.New(a.cfg, a.logger), a.logger),
		Sender:     sender,
		Sources:    a.sources,
	}, pipeline.SettingsFromConfig(a.cfg, a.location), a.logger)
}

// scheduledRunner is the part of the pipeline the scheduler drives.
type scheduledRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Busy() bool
}

func (a *App) dailyTask(runner scheduledRunner) worker.DailyTask {
	return worker.DailyTask{
		Name: dailyTaskName,
		Next: a.schedule.NextAfter,
		Precheck: func() error {
			if a.cfg.TargetChat == "" {
				return apperrors.ErrMissingDestination
			}

			if runner.Busy() {
				return apperrors.ErrRunInProgress
			}

			return nil
		},
		Run: func(ctx context.Context) error {
			_, err := runner.Run(ctx, pipeline.Request{
				Trigger:     pipeline.TriggerScheduled,
				Destination: a.cfg.TargetChat,
			})

			return err
		},
		OnScheduled: a.setNextRun,
		Logger:      a.logger,
	}
}

// botIdentity is satisfied by *tgbotapi.BotAPI.
type botIdentity interface {
	GetMe() (tgbotapi.User, error)
}

func (a *App) newHealthServer(api botIdentity) *observability.Server {
	srv := observability.NewServer(a.cfg.HealthPort, a.logger)

	srv.AddCheck(checkBotAPI, func(context.Context) error {
		if _, err := api.GetMe(); err != nil {
			return fmt.Errorf("bot api: %w", err)
		}

		return nil
	})

	srv.AddCheck(checkScheduler, func(context.Context) error {
		if _, ok := a.NextRun(); !ok {
			return errNoNextRun
		}

		return nil
	})

	return srv
}
