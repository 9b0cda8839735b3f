package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/domain/repositories"
	"github.com/tubechat/tubechat/pkg/config"
)

const (
	hourlyWindow = time.Hour
	dailyWindow  = 24 * time.Hour

	// memoTTL bounds how stale a memoized window count may be
	memoTTL = 60 * time.Second

	// RetentionWindow is how long rate events are kept before pruning
	RetentionWindow = 48 * time.Hour
)

// Caps holds the hourly and daily limits for one class/action pair.
// A cap below zero disables that window.
type Caps struct {
	Hourly int
	Daily  int
}

// Decision is the outcome of a rate-limit check, computed as the most
// restrictive of the active windows.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Window    string
	ResetAt   time.Time
}

// Service enforces sliding-window rate limits over persisted rate events,
// with a short redis memoization tier in front of the store counts.
//
// On store failure the limiter fails open: a broken store must not block
// traffic; abuse protection is secondary to availability here.
type Service struct {
	repo   repositories.RateEventRepository
	redis  *redis.Client
	limits map[entities.UserClass]map[entities.RateAction]Caps
	logger *zap.Logger
}

// NewService builds the limiter from the configured cap table
func NewService(cfg config.RateLimitConfig, repo repositories.RateEventRepository, redisClient *redis.Client, logger *zap.Logger) *Service {
	limits := map[entities.UserClass]map[entities.RateAction]Caps{
		entities.UserClassAnonymous: {
			entities.RateActionChat:           {Hourly: cfg.AnonChatHourly, Daily: cfg.AnonChatDaily},
			entities.RateActionVideoUpload:    {Hourly: cfg.AnonVideoHourly, Daily: cfg.AnonVideoDaily},
			entities.RateActionChannelProcess: {Hourly: cfg.AnonChannelHourly, Daily: cfg.AnonChannelDaily},
		},
		entities.UserClassUser: {
			entities.RateActionChat:           {Hourly: cfg.UserChatHourly, Daily: cfg.UserChatDaily},
			entities.RateActionVideoUpload:    {Hourly: cfg.UserVideoHourly, Daily: cfg.UserVideoDaily},
			entities.RateActionChannelProcess: {Hourly: cfg.UserChannelHourly, Daily: cfg.UserChannelDaily},
		},
		entities.UserClassPremium: {
			entities.RateActionChat:           {Hourly: cfg.PremiumChatHourly, Daily: cfg.PremiumChatDaily},
			entities.RateActionVideoUpload:    {Hourly: cfg.PremiumVideoHourly, Daily: cfg.PremiumVideoDaily},
			entities.RateActionChannelProcess: {Hourly: cfg.PremiumChannelHourly, Daily: cfg.PremiumChannelDaily},
		},
	}

	return &Service{
		repo:   repo,
		redis:  redisClient,
		limits: limits,
		logger: logger,
	}
}

// Check evaluates both windows for the identifier/action pair
func (s *Service) Check(ctx context.Context, identifier string, action entities.RateAction, class entities.UserClass) Decision {
	caps, ok := s.limits[class][action]
	if !ok {
		return Decision{Allowed: true, Limit: -1, Remaining: -1, ResetAt: time.Now()}
	}

	decision := Decision{Allowed: true, Limit: -1, Remaining: -1, Window: "hourly", ResetAt: time.Now().Add(hourlyWindow)}

	type window struct {
		name string
		cap  int
		span time.Duration
	}
	for _, w := range []window{
		{"hourly", caps.Hourly, hourlyWindow},
		{"daily", caps.Daily, dailyWindow},
	} {
		if w.cap < 0 {
			continue // window disabled
		}

		count, resetAt, err := s.windowCount(ctx, identifier, action, w.name, w.span)
		if err != nil {
			// Fail open.
			s.logger.Warn("ratelimit.check.store_failed",
				zap.String("identifier", identifier),
				zap.String("action", string(action)),
				zap.Error(err),
			)
			return Decision{Allowed: true, Limit: w.cap, Remaining: w.cap, Window: w.name, ResetAt: time.Now().Add(w.span)}
		}

		remaining := w.cap - int(count)
		if remaining < 0 {
			remaining = 0
		}
		if decision.Remaining == -1 || remaining < decision.Remaining {
			decision.Limit = w.cap
			decision.Remaining = remaining
			decision.Window = w.name
			decision.ResetAt = resetAt
		}
		if int(count) >= w.cap {
			decision.Allowed = false
		}
	}

	return decision
}

// Record appends a rate event and invalidates the memoized counts
func (s *Service) Record(ctx context.Context, identifier string, action entities.RateAction) error {
	event := &entities.RateEvent{
		Identifier: identifier,
		Action:     action,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Record(ctx, event); err != nil {
		return err
	}

	if s.redis != nil {
		keys := []string{
			s.memoKey(identifier, action, "hourly"),
			s.memoKey(identifier, action, "daily"),
		}
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("ratelimit.memo.invalidate_failed", zap.Error(err))
		}
	}
	return nil
}

// Prune deletes rate events older than the retention window
func (s *Service) Prune(ctx context.Context) (int64, error) {
	return s.repo.DeleteBefore(ctx, time.Now().Add(-RetentionWindow))
}

func (s *Service) windowCount(ctx context.Context, identifier string, action entities.RateAction, name string, span time.Duration) (int64, time.Time, error) {
	since := time.Now().Add(-span)
	key := s.memoKey(identifier, action, name)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			if count, convErr := strconv.ParseInt(cached, 10, 64); convErr == nil {
				return count, s.resetAt(ctx, identifier, action, since, span), nil
			}
		}
	}

	count, err := s.repo.CountSince(ctx, identifier, action, since)
	if err != nil {
		return 0, time.Time{}, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, strconv.FormatInt(count, 10), memoTTL).Err(); err != nil {
			s.logger.Debug("ratelimit.memo.set_failed", zap.Error(err))
		}
	}

	return count, s.resetAt(ctx, identifier, action, since, span), nil
}

// resetAt is when the oldest in-window event slides out of the window
func (s *Service) resetAt(ctx context.Context, identifier string, action entities.RateAction, since time.Time, span time.Duration) time.Time {
	oldest, err := s.repo.OldestSince(ctx, identifier, action, since)
	if err != nil || oldest == nil {
		return time.Now().Add(span)
	}
	return oldest.Add(span)
}

func (s *Service) memoKey(identifier string, action entities.RateAction, window string) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", identifier, action, window)
}
