package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
	"github.com/rl1809/inventory-metafields/internal/port"
)

type heldLock struct {
	owner   string
	expires time.Time
}

// LocalLock is a process-local port.LockRepository, used when no Redis is configured.
type LocalLock struct {
	mu    sync.Mutex
	locks map[string]heldLock
	now   func() time.Time
}

var _ port.LockRepository = (*LocalLock)(nil)

func NewLocalLock() *LocalLock {
	return &LocalLock{
		locks: make(map[string]heldLock),
		now:   time.Now,
	}
}

func (l *LocalLock) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.locks[key]; ok && now.Before(held.expires) {
		return false, nil
	}
	l.locks[key] = heldLock{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (l *LocalLock) Extend(ctx context.Context, key, owner string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	held, ok := l.locks[key]
	if !ok || held.owner != owner || !now.Before(held.expires) {
		return port.ErrLockHeld
	}
	l.locks[key] = heldLock{owner: owner, expires: now.Add(ttl)}
	return nil
}

func (l *LocalLock) Release(ctx context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[key]; ok && held.owner == owner {
		delete(l.locks, key)
	}
	return nil
}

// MemoryRunStore keeps run history in memory, used when no MySQL is configured.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
}

var _ port.RunRepository = (*MemoryRunStore)(nil)

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]domain.Run)}
}

func (m *MemoryRunStore) CreateRun(ctx context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryRunStore) UpdateRun(ctx context.Context, run domain.Run) error {
	return m.CreateRun(ctx, run)
}

func (m *MemoryRunStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, port.ErrRunNotFound
	}
	return &run, nil
}

func (m *MemoryRunStore) LatestRun(ctx context.Context) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.runs) == 0 {
		return nil, port.ErrRunNotFound
	}

	runs := make([]domain.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return &runs[0], nil
}
