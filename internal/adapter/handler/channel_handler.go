package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/adapter/dto"
	"github.com/tubechat/tubechat/internal/domain/entities"
	httpmw "github.com/tubechat/tubechat/internal/infrastructure/http/middleware"
	"github.com/tubechat/tubechat/internal/usecase/queue"
)

// Channel handles channel ingest endpoints
type Channel struct {
	queue        *queue.Service
	logger       *zap.Logger
	includeStack bool
}

// NewChannelHandler creates the channel handler
func NewChannelHandler(queueService *queue.Service, logger *zap.Logger, includeStack bool) *Channel {
	return &Channel{queue: queueService, logger: logger, includeStack: includeStack}
}

// Process enqueues a channel for ingestion
func (h *Channel) Process(c echo.Context) error {
	var req dto.ProcessChannelRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"), h.includeStack)
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()), h.includeStack)
	}

	identity := httpmw.IdentityFrom(c)
	var userID, userEmail *string
	if !identity.IsAnonymous() {
		userID = &identity.UserID
	}
	if identity.Email != "" {
		userEmail = &identity.Email
	}

	result, err := h.queue.EnqueueChannel(c.Request().Context(), req.ChannelID, userID, userEmail, entities.QueuePriority(req.Priority))
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}

	status := http.StatusAccepted
	if !result.Success {
		status = http.StatusOK
	}
	return c.JSON(status, dto.EnqueueResponse{
		Success: result.Success,
		Message: result.Message,
		Item:    dto.NewQueueItemResponse(result.Item),
	})
}

// Status returns the active queue row for a channel
func (h *Channel) Status(c echo.Context) error {
	channelID := c.Param("id")
	if channelID == "" {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("channel id is required"), h.includeStack)
	}

	item, err := h.queue.ChannelStatus(c.Request().Context(), channelID)
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}
	if item == nil {
		return HandleError(h.logger, c, apperrors.ErrNotFound("queue item for channel"), h.includeStack)
	}
	return c.JSON(http.StatusOK, dto.NewQueueItemResponse(item))
}
