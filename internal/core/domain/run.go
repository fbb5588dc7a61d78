package domain

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is the record of one reconciliation pass over the catalog.
type Run struct {
	ID              string     `json:"id"`
	Status          RunStatus  `json:"status"`
	DryRun          bool       `json:"dry_run"`
	Pages           int        `json:"pages"`
	ProductsScanned int        `json:"products_scanned"`
	ProductsUpdated int        `json:"products_updated"`
	ProductsSkipped int        `json:"products_skipped"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

func (r Run) Finished() bool {
	return r.Status != RunStatusRunning
}
