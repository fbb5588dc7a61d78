package port

import (
	"context"
	"errors"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
)

var ErrRunNotFound = errors.New("run not found")

type RunRepository interface {
	// CreateRun persists a freshly started run
	CreateRun(ctx context.Context, run domain.Run) error

	// UpdateRun overwrites progress and outcome of an existing run
	UpdateRun(ctx context.Context, run domain.Run) error

	// GetRun retrieves a run by ID, ErrRunNotFound if unknown
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// LatestRun retrieves the most recently started run, ErrRunNotFound if none
	LatestRun(ctx context.Context) (*domain.Run, error)
}
