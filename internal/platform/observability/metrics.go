package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values shared by the counters below.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

var (
	ItemsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_items_collected_total",
		Help: "The total number of items collected inside the lookback window",
	}, []string{"kind", "source"})

	CollectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_collection_errors_total",
		Help: "Sources skipped during collection, by kind and reason",
	}, []string{"kind", "reason"})

	FloodWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_telegram_flood_wait_seconds_total",
		Help: "Seconds spent honouring Telegram flood waits while reading history",
	})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 180, 300},
	}, []string{"model"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_llm_requests_total",
		Help: "LLM requests by model and outcome",
	}, []string{"model", "status"})

	ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_reports_generated_total",
		Help: "Per-source reports by outcome",
	}, []string{"status"})

	GeneratedLinksDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_generated_links_discarded_total",
		Help: "URLs found in generated text that were not part of the verified link list",
	})

	DeliveryChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_delivery_chunks_total",
		Help: "Message chunks handed to the transport, by outcome",
	}, []string{"status"})

	DeliveryRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_delivery_rate_limit_wait_seconds",
		Help:    "Back-off applied after the transport reported a rate limit",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_runs_total",
		Help: "Pipeline runs by trigger and outcome",
	}, []string{"trigger", "status"})

	RunDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_run_duration_seconds",
		Help:    "Wall time of a full pipeline run",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 900, 1800, 3600},
	}, []string{"trigger"})

	LastSuccessfulRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "digest_last_successful_run_timestamp_seconds",
		Help: "Unix time of the last run that delivered at least one report",
	})

	NextScheduledRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "digest_next_scheduled_run_timestamp_seconds",
		Help: "Unix time of the next scheduled run",
	})
)
