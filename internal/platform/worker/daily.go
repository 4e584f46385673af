package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoNextRun indicates the schedule never fires.
var ErrNoNextRun = errors.New("schedule has no upcoming run")

// NextFunc returns the first fire time strictly after the given moment.
type NextFunc func(after time.Time) (time.Time, bool, error)

// DailyTask represents a job run at the fire times of a schedule.
type DailyTask struct {
	// Name identifies the task for logging.
	Name string

	// Next computes the next fire time.
	Next NextFunc

	// Precheck is consulted right before each run. A non-nil error is
	// logged and the cycle is skipped.
	Precheck func() error

	// Run executes the task. Errors are logged and the loop resumes waiting.
	Run func(ctx context.Context) error

	// OnScheduled is called with every computed fire time.
	OnScheduled func(next time.Time)

	// Now and WaitUntil default to the wall clock.
	Now       func() time.Time
	WaitUntil func(ctx context.Context, t time.Time) error

	Logger *zerolog.Logger
}

// RunDaily loops until ctx is canceled: wait for the next fire time, run
// the task, repeat. A failed or panicking run never stops the loop.
func RunDaily(ctx context.Context, task DailyTask) error {
	logger := nopIfNil(task.Logger)

	now := task.Now
	if now == nil {
		now = time.Now
	}

	waitUntil := task.WaitUntil
	if waitUntil == nil {
		waitUntil = WaitUntil
	}

	logger.Info().Str(logFieldWorker, task.Name).Msg("starting daily loop")
	defer logger.Info().Str(logFieldWorker, task.Name).Msg("daily loop stopped")

	for {
		current := now()

		next, ok, err := task.Next(current)
		if err != nil {
			return fmt.Errorf("computing next run for %s: %w", task.Name, err)
		}

		if !ok {
			return fmt.Errorf("%s: %w", task.Name, ErrNoNextRun)
		}

		if task.OnScheduled != nil {
			task.OnScheduled(next)
		}

		logger.Info().
			Str(logFieldTask, task.Name).
			Time("next_run", next).
			Dur("wait", next.Sub(current)).
			Msg("waiting for next scheduled run")

		if err := waitUntil(ctx, next); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("daily loop %s: %w", task.Name, err)
		}

		runScheduled(ctx, task, logger)
	}
}

func runScheduled(ctx context.Context, task DailyTask, logger *zerolog.Logger) {
	defer RecoverPanic(logger, task.Name)

	if task.Precheck != nil {
		if err := task.Precheck(); err != nil {
			logger.Error().Err(err).Str(logFieldTask, task.Name).Msg("skipping scheduled run")
			return
		}
	}

	logger.Info().Str(logFieldTask, task.Name).Msg("scheduled run started")

	if err := task.Run(ctx); err != nil {
		logger.Error().Err(err).Str(logFieldTask, task.Name).Msg("scheduled run failed")
		return
	}

	logger.Info().Str(logFieldTask, task.Name).Msg("scheduled run finished")
}
