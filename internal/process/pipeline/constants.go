package pipeline

// SnapshotLabel titles the cross-source snapshot message.
const SnapshotLabel = "📈 오늘의 시장 스냅샷"

// Log field constants
const (
	logKeyRunID       = "run_id"
	logKeyTrigger     = "trigger"
	logKeyDestination = "destination"
	logKeyCutoff      = "cutoff"
	logKeyItems       = "items"
	logKeySources     = "sources"
	logKeySource      = "source"
	logKeyFailures    = "failures"
	logKeyReports     = "reports"
	logKeyChunks      = "chunks"
	logKeyElapsed     = "elapsed"
	logKeyKind        = "kind"
)
