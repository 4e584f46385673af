package pipeline

import (
	"time"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	"github.com/lueurxax/channel-snapshot-bot/internal/core/links"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/config"
	"github.com/lueurxax/channel-snapshot-bot/internal/process/summarizer"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Settings are the per-run limits, fixed at startup.
type Settings struct {
	Location             *time.Location
	Lookback             time.Duration
	Model                string
	SnapshotModel        string
	MaxItems             int
	MaxSnapshotItems     int
	MaxLinks             int
	CompactLimit         int
	Snapshot             bool
	EnsureCompleteEnding bool
}

// SettingsFromConfig maps configuration onto run settings.
func SettingsFromConfig(cfg *config.Config, loc *time.Location) Settings {
	return Settings{
		Location:             loc,
		Lookback:             cfg.Lookback,
		Model:                cfg.LLMModel,
		SnapshotModel:        cfg.SnapshotModel(),
		MaxItems:             cfg.MaxItemsPerSource,
		MaxSnapshotItems:     cfg.MaxSnapshotItems,
		MaxLinks:             cfg.MaxLinks,
		CompactLimit:         cfg.CompactLimit,
		Snapshot:             cfg.SnapshotEnabled,
		EnsureCompleteEnding: cfg.EnsureCompleteEnding,
	}
}

func (s Settings) sourceOptions(compact bool) summarizer.Options {
	opts := summarizer.Options{
		Model:                s.Model,
		MaxItems:             s.MaxItems,
		MaxLinks:             s.MaxLinks,
		EnsureCompleteEnding: s.EnsureCompleteEnding,
		Allowlist:            links.DefaultAllowlist,
	}

	if compact {
		opts.CompactLimit = s.CompactLimit
	}

	return opts
}

func (s Settings) snapshotOptions() summarizer.Options {
	return summarizer.Options{
		Model:                s.SnapshotModel,
		MaxItems:             s.MaxSnapshotItems,
		MaxLinks:             s.MaxLinks,
		EnsureCompleteEnding: s.EnsureCompleteEnding,
		Allowlist:            links.DefaultAllowlist,
	}
}

// Request describes one run.
type Request struct {
	Trigger     Trigger
	Destination string
	// OnProgress is called after each source report is generated or fails.
	OnProgress func(Progress)
}

func (r Request) progress(p Progress) {
	if r.OnProgress != nil {
		r.OnProgress(p)
	}
}

// Progress reports the outcome of one source report.
type Progress struct {
	Index int
	Total int
	Label string
	Err   error
}

// Result summarizes a finished run.
type Result struct {
	RunID      string
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Items      int
	Sources    int
	Reports    int
	Chunks     int
	Snapshot   bool
	// Failures are sources that could not be collected.
	Failures []domain.SourceError
	// Failed are sources whose report could not be generated.
	Failed []domain.SourceError
}

// Outcome is a finished run together with its error.
type Outcome struct {
	Result
	Err error
}
