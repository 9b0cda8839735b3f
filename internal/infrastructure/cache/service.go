package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/domain/repositories"
)

const (
	// DefaultTTL applies to most cached values
	DefaultTTL = 15 * time.Minute
	// SummaryTTL applies to generated video summaries
	SummaryTTL = 60 * time.Minute

	sweepInterval = 5 * time.Minute
)

// Key builds a cache key as <prefix>:<md5(params joined with ":")>
func Key(prefix string, params ...string) string {
	sum := md5.Sum([]byte(strings.Join(params, ":")))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Service is the two-tier cache: in-process memory in front of the store.
// Reads probe memory first; store hits warm the memory tier. Writes populate
// both tiers. There is no cross-instance consistency guarantee; instances
// converge via TTL.
type Service struct {
	memory *MemoryStore
	repo   repositories.CacheRepository
	logger *zap.Logger
	stop   chan struct{}
}

// NewService creates the two-tier cache and starts its sweeper
func NewService(repo repositories.CacheRepository, logger *zap.Logger) *Service {
	s := &Service{
		memory: NewMemoryStore(),
		repo:   repo,
		logger: logger,
		stop:   make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Get retrieves a cached value, false on miss
func (s *Service) Get(ctx context.Context, key string) (string, bool) {
	if value, ok := s.memory.Get(key); ok {
		return value, true
	}

	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache.store.get_failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if entry == nil {
		return "", false
	}

	// Warm the memory tier for the remaining lifetime
	if ttl := time.Until(entry.ExpiresAt); ttl > 0 {
		s.memory.Set(key, entry.Value, ttl)
	}
	return entry.Value, true
}

// Set writes a value into both tiers
func (s *Service) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.memory.Set(key, value, ttl)

	entry := &entities.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.repo.Set(ctx, entry); err != nil {
		s.logger.Warn("cache.store.set_failed", zap.String("key", key), zap.Error(err))
	}
}

// Stop halts the background sweeper
func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			pruned := s.memory.PruneExpired()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			removed, err := s.repo.DeleteExpired(ctx, time.Now())
			cancel()
			if err != nil {
				s.logger.Warn("cache.sweep.store_failed", zap.Error(err))
				continue
			}
			if pruned > 0 || removed > 0 {
				s.logger.Debug("cache.sweep",
					zap.Int("memory_pruned", pruned),
					zap.Int64("store_pruned", removed),
				)
			}
		}
	}
}
