package lock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/domain/repositories"
)

const (
	// safetyMargin schedules proactive release ahead of TTL expiry
	safetyMargin = 10 * time.Second

	sweepInterval = 60 * time.Second
)

// Lease is a held advisory lock on a named resource
type Lease struct {
	ResourceID string
	LockID     string
	ExpiresAt  time.Time
}

// Manager provides best-effort exclusive leases backed by unique-row
// insertion in the store. Locks are advisory: callers must pair Acquire
// with Release.
type Manager struct {
	repo   repositories.LockRepository
	logger *zap.Logger

	mu     sync.Mutex
	held   map[string]*heldLease // resource_id → lease + its timer
	stopCh chan struct{}
	once   sync.Once
}

type heldLease struct {
	lease *Lease
	timer *time.Timer
}

// NewManager creates a lock manager and starts its expired-row sweeper
func NewManager(repo repositories.LockRepository, logger *zap.Logger) *Manager {
	m := &Manager{
		repo:   repo,
		logger: logger,
		held:   make(map[string]*heldLease),
		stopCh: make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Acquire attempts to take an exclusive lease on resourceID. On a
// unique-key collision with an expired row, the stale row is stolen and
// insertion retried once. Any store error returns nil (fail-closed).
func (m *Manager) Acquire(ctx context.Context, resourceID string, ttl time.Duration) *Lease {
	lease := m.tryInsert(ctx, resourceID, ttl)
	if lease == nil {
		return nil
	}

	// Schedule proactive release ahead of expiry so a stalled worker does
	// not hold the row past its TTL.
	renewAt := ttl - safetyMargin
	if renewAt <= 0 {
		renewAt = ttl / 2
	}
	timer := time.AfterFunc(renewAt, func() {
		m.logger.Warn("lock.lease.expiring",
			zap.String("resource", resourceID),
			zap.String("lock_id", lease.LockID),
		)
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.Release(releaseCtx, lease)
	})

	m.mu.Lock()
	m.held[resourceID] = &heldLease{lease: lease, timer: timer}
	m.mu.Unlock()

	return lease
}

func (m *Manager) tryInsert(ctx context.Context, resourceID string, ttl time.Duration) *Lease {
	row := entities.NewLock(resourceID, ttl)
	err := m.repo.TryInsert(ctx, row)
	if err == nil {
		return &Lease{ResourceID: row.ResourceID, LockID: row.LockID, ExpiresAt: row.ExpiresAt}
	}

	// Collision: inspect the existing row and steal it only when expired.
	existing, getErr := m.repo.Get(ctx, resourceID)
	if getErr != nil || existing == nil {
		return nil
	}
	if !existing.Expired() {
		return nil
	}
	if _, delErr := m.repo.DeleteMatching(ctx, resourceID, existing.LockID); delErr != nil {
		return nil
	}

	retry := entities.NewLock(resourceID, ttl)
	if err := m.repo.TryInsert(ctx, retry); err != nil {
		return nil
	}
	return &Lease{ResourceID: retry.ResourceID, LockID: retry.LockID, ExpiresAt: retry.ExpiresAt}
}

// Release deletes only the row whose lock_id matches the held lease, so a
// newer lease taken after clock skew is never revoked.
func (m *Manager) Release(ctx context.Context, lease *Lease) {
	if lease == nil {
		return
	}

	m.mu.Lock()
	if h, ok := m.held[lease.ResourceID]; ok && h.lease.LockID == lease.LockID {
		h.timer.Stop()
		delete(m.held, lease.ResourceID)
	}
	m.mu.Unlock()

	if _, err := m.repo.DeleteMatching(ctx, lease.ResourceID, lease.LockID); err != nil {
		// The row still expires on TTL.
		m.logger.Error("lock.release.failed",
			zap.String("resource", lease.ResourceID),
			zap.Error(err),
		)
	}
}

// IsLocked reports whether a live lease exists for the resource
func (m *Manager) IsLocked(ctx context.Context, resourceID string) bool {
	existing, err := m.repo.Get(ctx, resourceID)
	if err != nil || existing == nil {
		return false
	}
	return !existing.Expired()
}

// ReleaseAll releases every lease held by this process. Called on shutdown.
func (m *Manager) ReleaseAll(ctx context.Context) {
	m.mu.Lock()
	leases := make([]*Lease, 0, len(m.held))
	for _, h := range m.held {
		leases = append(leases, h.lease)
	}
	m.mu.Unlock()

	for _, lease := range leases {
		m.Release(ctx, lease)
	}
}

// Stop halts the background sweeper
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stopCh)
	})
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			removed, err := m.repo.DeleteExpired(ctx, time.Now())
			cancel()
			if err != nil {
				m.logger.Warn("lock.sweep.failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				m.logger.Debug("lock.sweep", zap.Int64("removed", removed))
			}
		}
	}
}
