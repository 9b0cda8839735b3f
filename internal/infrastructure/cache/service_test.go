package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*entities.CacheEntry
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]*entities.CacheEntry)}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string) (*entities.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	if !ok || entry.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeCacheRepo) Set(_ context.Context, entry *entities.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	f.entries[entry.Key] = &copied
	return nil
}

func (f *fakeCacheRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, entry := range f.entries {
		if entry.ExpiresAt.Before(now) {
			delete(f.entries, key)
			n++
		}
	}
	return n, nil
}

func newTestCache(repo *fakeCacheRepo) *Service {
	s := NewService(repo, zap.NewNop())
	s.Stop()
	return s
}

func TestCacheSetThenGet(t *testing.T) {
	s := newTestCache(newFakeCacheRepo())
	ctx := context.Background()

	s.Set(ctx, "k", "value", time.Minute)
	got, ok := s.Get(ctx, "k")
	if !ok || got != "value" {
		t.Fatalf("get after set returned %q ok=%v", got, ok)
	}
}

func TestCacheStoreHitWarmsMemory(t *testing.T) {
	repo := newFakeCacheRepo()
	s := newTestCache(repo)
	ctx := context.Background()

	// Entry exists only in the store tier, as if written by another
	// instance.
	_ = repo.Set(ctx, &entities.CacheEntry{Key: "shared", Value: "v", ExpiresAt: time.Now().Add(time.Minute)})

	if got, ok := s.Get(ctx, "shared"); !ok || got != "v" {
		t.Fatalf("store tier should serve the miss, got %q ok=%v", got, ok)
	}
	// The memory tier now holds it.
	if got, ok := s.memory.Get("shared"); !ok || got != "v" {
		t.Fatalf("memory tier should be warmed, got %q ok=%v", got, ok)
	}
}

func TestCacheExpiredEntryMisses(t *testing.T) {
	repo := newFakeCacheRepo()
	s := newTestCache(repo)
	ctx := context.Background()

	_ = repo.Set(ctx, &entities.CacheEntry{Key: "old", Value: "v", ExpiresAt: time.Now().Add(-time.Minute)})
	if _, ok := s.Get(ctx, "old"); ok {
		t.Fatalf("expired store entry must miss")
	}
}
