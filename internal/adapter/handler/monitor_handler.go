package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/adapter/dto"
	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/domain/repositories"
	"github.com/tubechat/tubechat/internal/usecase/chat"
	"github.com/tubechat/tubechat/internal/usecase/queue"
)

// Monitor handles the operational read-only endpoints
type Monitor struct {
	channels     repositories.ChannelRepository
	videos       repositories.VideoRepository
	queueRepo    repositories.QueueRepository
	errorsRepo   repositories.ErrorEventRepository
	streams      *chat.Registry
	dispatcher   *queue.Dispatcher
	logger       *zap.Logger
	includeStack bool
}

// NewMonitorHandler creates the monitor handler
func NewMonitorHandler(
	channels repositories.ChannelRepository,
	videos repositories.VideoRepository,
	queueRepo repositories.QueueRepository,
	errorsRepo repositories.ErrorEventRepository,
	streams *chat.Registry,
	dispatcher *queue.Dispatcher,
	logger *zap.Logger,
	includeStack bool,
) *Monitor {
	return &Monitor{
		channels:     channels,
		videos:       videos,
		queueRepo:    queueRepo,
		errorsRepo:   errorsRepo,
		streams:      streams,
		dispatcher:   dispatcher,
		logger:       logger,
		includeStack: includeStack,
	}
}

// Health returns liveness status
func (h *Monitor) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Stats returns an operational snapshot
func (h *Monitor) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	channels, err := h.channels.Count(ctx)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("count channels", err), h.includeStack)
	}
	videos, err := h.videos.Count(ctx)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("count videos", err), h.includeStack)
	}
	processed, err := h.videos.CountProcessed(ctx)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("count processed videos", err), h.includeStack)
	}
	pending, err := h.queueRepo.CountByStatus(ctx, entities.QueueStatusPending)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("count pending", err), h.includeStack)
	}
	processing, err := h.queueRepo.CountByStatus(ctx, entities.QueueStatusProcessing)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("count processing", err), h.includeStack)
	}
	failed, err := h.queueRepo.CountByStatus(ctx, entities.QueueStatusFailed)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("count failed", err), h.includeStack)
	}

	return c.JSON(http.StatusOK, dto.MonitorStatsResponse{
		Channels:        channels,
		Videos:          videos,
		VideosProcessed: processed,
		QueuePending:    pending,
		QueueProcessing: processing,
		QueueFailed:     failed,
		ActiveStreams:   h.streams.ActiveCount(),
	})
}

// CronStatus returns the last completion time of each background tick
func (h *Monitor) CronStatus(c echo.Context) error {
	runs := h.dispatcher.LastRuns()
	out := make(map[string]string, len(runs))
	for name, at := range runs {
		out[name] = at.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"lastRuns": out})
}

// ErrorStats summarizes error sink captures over the last day
func (h *Monitor) ErrorStats(c echo.Context) error {
	ctx := c.Request().Context()
	since := time.Now().Add(-24 * time.Hour)

	total, err := h.errorsRepo.CountSince(ctx, since)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("count errors", err), h.includeStack)
	}
	byType, err := h.errorsRepo.CountByTypeSince(ctx, since)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("group errors", err), h.includeStack)
	}

	return c.JSON(http.StatusOK, dto.ErrorStatsResponse{Last24h: total, ByType: byType})
}
