package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/adapter/dto"
	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/domain/repositories"
	"github.com/tubechat/tubechat/internal/usecase/queue"
)

// Queue handles queue inspection endpoints. Enqueue endpoints live on the
// channel/video handlers; POST /api/queue/{channel,video} aliases them.
type Queue struct {
	service      *queue.Service
	repo         repositories.QueueRepository
	logger       *zap.Logger
	includeStack bool
}

// NewQueueHandler creates the queue handler
func NewQueueHandler(service *queue.Service, repo repositories.QueueRepository, logger *zap.Logger, includeStack bool) *Queue {
	return &Queue{service: service, repo: repo, logger: logger, includeStack: includeStack}
}

// Status returns queue depth per status plus the pending backlog
func (h *Queue) Status(c echo.Context) error {
	ctx := c.Request().Context()

	counts := make(map[string]int64, 4)
	for _, status := range []entities.QueueStatus{
		entities.QueueStatusPending,
		entities.QueueStatusProcessing,
		entities.QueueStatusCompleted,
		entities.QueueStatusFailed,
	} {
		n, err := h.repo.CountByStatus(ctx, status)
		if err != nil {
			return HandleError(h.logger, c, apperrors.ErrStoreFailed("count queue", err), h.includeStack)
		}
		counts[string(status)] = n
	}

	pending, err := h.repo.ListPending(ctx, 10)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStoreFailed("list pending", err), h.includeStack)
	}
	items := make([]*dto.QueueItemResponse, 0, len(pending))
	for i := range pending {
		items = append(items, dto.NewQueueItemResponse(&pending[i]))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"counts":  counts,
		"pending": items,
	})
}

// Position returns the 1-based position of a pending queue item
func (h *Queue) Position(c echo.Context) error {
	qid, err := uuid.Parse(c.Param("qid"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("qid must be a UUID"), h.includeStack)
	}

	item, err := h.service.Item(c.Request().Context(), qid)
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}
	if item == nil {
		return HandleError(h.logger, c, apperrors.ErrNotFound("queue item"), h.includeStack)
	}

	position, err := h.service.Position(c.Request().Context(), qid)
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":       qid.String(),
		"status":   item.Status,
		"position": position, // null when the item is no longer pending
	})
}
