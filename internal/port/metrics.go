package port

import "time"

// Product outcomes reported to Metrics.
const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeDryRun  = "dry_run"
)

type Metrics interface {
	PageFetched()
	ProductReconciled(outcome string)
	RunFinished(status string, duration time.Duration)
}
