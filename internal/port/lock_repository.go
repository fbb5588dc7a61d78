package port

import (
	"context"
	"errors"
	"time"
)

var ErrLockHeld = errors.New("lock held by another owner")

type LockRepository interface {
	// Acquire takes key for owner until ttl elapses, returns false if someone else holds it
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Extend pushes the expiry of a lock owner still holds
	Extend(ctx context.Context, key, owner string, ttl time.Duration) error

	// Release frees key if owner holds it
	Release(ctx context.Context, key, owner string) error
}
