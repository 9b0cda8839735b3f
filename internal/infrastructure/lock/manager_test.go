package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// fakeLockRepo is an in-memory LockRepository with unique-row semantics
type fakeLockRepo struct {
	mu   sync.Mutex
	rows map[string]*entities.Lock
	fail bool
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{rows: make(map[string]*entities.Lock)}
}

func (f *fakeLockRepo) TryInsert(_ context.Context, lock *entities.Lock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	if _, exists := f.rows[lock.ResourceID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	row := *lock
	f.rows[lock.ResourceID] = &row
	return nil
}

func (f *fakeLockRepo) Get(_ context.Context, resourceID string) (*entities.Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("store down")
	}
	row, ok := f.rows[resourceID]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeLockRepo) DeleteMatching(_ context.Context, resourceID, lockID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("store down")
	}
	row, ok := f.rows[resourceID]
	if !ok || row.LockID != lockID {
		return 0, nil
	}
	delete(f.rows, resourceID)
	return 1, nil
}

func (f *fakeLockRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, row := range f.rows {
		if row.ExpiresAt.Before(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func newTestManager(repo *fakeLockRepo) *Manager {
	m := NewManager(repo, zap.NewNop())
	m.Stop()
	return m
}

func TestAcquireRelease(t *testing.T) {
	repo := newFakeLockRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	lease := m.Acquire(ctx, "video-X", 600*time.Second)
	if lease == nil {
		t.Fatalf("expected lease on free resource")
	}
	if !m.IsLocked(ctx, "video-X") {
		t.Fatalf("resource should report locked")
	}

	m.Release(ctx, lease)
	if m.IsLocked(ctx, "video-X") {
		t.Fatalf("resource should be free after release")
	}
}

func TestAcquireMutualExclusion(t *testing.T) {
	repo := newFakeLockRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	leases := make([]*Lease, 8)
	for i := range leases {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			leases[i] = m.Acquire(ctx, "video-X", 600*time.Second)
		}(i)
	}
	wg.Wait()

	granted := 0
	var winner *Lease
	for _, lease := range leases {
		if lease != nil {
			granted++
			winner = lease
		}
	}
	if granted != 1 {
		t.Fatalf("expected exactly one lease, got %d", granted)
	}

	// After release a third caller succeeds.
	m.Release(ctx, winner)
	if lease := m.Acquire(ctx, "video-X", 600*time.Second); lease == nil {
		t.Fatalf("expected lease after release")
	}
}

func TestReleaseFencing(t *testing.T) {
	repo := newFakeLockRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	leaseA := m.Acquire(ctx, "channel-queue-1", time.Minute)
	if leaseA == nil {
		t.Fatalf("expected initial lease")
	}
	m.Release(ctx, leaseA)

	leaseB := m.Acquire(ctx, "channel-queue-1", time.Minute)
	if leaseB == nil {
		t.Fatalf("expected second lease")
	}

	// Releasing the stale lease must not revoke the newer one.
	m.Release(ctx, leaseA)
	if !m.IsLocked(ctx, "channel-queue-1") {
		t.Fatalf("stale release revoked the newer lease")
	}
}

func TestAcquireStealsExpiredRow(t *testing.T) {
	repo := newFakeLockRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	stale := &entities.Lock{
		ResourceID: "video-Y",
		LockID:     "dead-worker",
		ExpiresAt:  time.Now().Add(-time.Minute),
	}
	if err := repo.TryInsert(ctx, stale); err != nil {
		t.Fatalf("seeding stale row: %v", err)
	}

	lease := m.Acquire(ctx, "video-Y", time.Minute)
	if lease == nil {
		t.Fatalf("expected to steal expired row")
	}
	if lease.LockID == "dead-worker" {
		t.Fatalf("lease must carry a fresh lock id")
	}
}

func TestAcquireFailClosed(t *testing.T) {
	repo := newFakeLockRepo()
	repo.fail = true
	m := newTestManager(repo)

	if lease := m.Acquire(context.Background(), "video-Z", time.Minute); lease != nil {
		t.Fatalf("store errors must fail closed")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	repo := newFakeLockRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	_ = repo.TryInsert(ctx, &entities.Lock{ResourceID: "a", LockID: "1", ExpiresAt: time.Now().Add(-time.Second)})
	_ = repo.TryInsert(ctx, &entities.Lock{ResourceID: "b", LockID: "2", ExpiresAt: time.Now().Add(time.Hour)})

	removed, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired row removed, got %d", removed)
	}
	if !m.IsLocked(ctx, "b") {
		t.Fatalf("live lock must survive the sweep")
	}
}
