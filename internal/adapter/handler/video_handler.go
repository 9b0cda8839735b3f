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
	"github.com/tubechat/tubechat/internal/usecase/summary"
)

// Video handles video ingest and summary endpoints
type Video struct {
	queue        *queue.Service
	summaries    *summary.Service
	logger       *zap.Logger
	includeStack bool
}

// NewVideoHandler creates the video handler
func NewVideoHandler(queueService *queue.Service, summaries *summary.Service, logger *zap.Logger, includeStack bool) *Video {
	return &Video{queue: queueService, summaries: summaries, logger: logger, includeStack: includeStack}
}

// Process enqueues a single video for ingestion
func (h *Video) Process(c echo.Context) error {
	var req dto.ProcessVideoRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"), h.includeStack)
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()), h.includeStack)
	}

	identity := httpmw.IdentityFrom(c)
	var userID *string
	if !identity.IsAnonymous() {
		userID = &identity.UserID
	}

	result, err := h.queue.EnqueueVideo(c.Request().Context(), req.VideoID, userID, entities.QueuePriority(req.Priority))
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}

	status := http.StatusAccepted
	if !result.Success {
		status = http.StatusOK
	}
	return c.JSON(status, dto.EnqueueResponse{Success: result.Success, Message: result.Message})
}

// Summary returns the cached or freshly generated summary for a video.
// Summaries are generated from the transcript truncated at 8,000
// characters.
func (h *Video) Summary(c echo.Context) error {
	videoID := c.Param("id")
	if videoID == "" {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("video id is required"), h.includeStack)
	}

	result, err := h.summaries.Generate(c.Request().Context(), videoID)
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}

	return c.JSON(http.StatusOK, dto.SummaryResponse{
		VideoID:   videoID,
		Summary:   result.Summary,
		Truncated: result.Truncated,
	})
}
