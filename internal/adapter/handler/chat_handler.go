package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/adapter/dto"
	httpmw "github.com/tubechat/tubechat/internal/infrastructure/http/middleware"
	"github.com/tubechat/tubechat/internal/usecase/chat"
)

// Chat handles the SSE chat endpoints
type Chat struct {
	orchestrator *chat.Orchestrator
	logger       *zap.Logger
	includeStack bool
}

// NewChatHandler creates the chat handler
func NewChatHandler(orchestrator *chat.Orchestrator, logger *zap.Logger, includeStack bool) *Chat {
	return &Chat{orchestrator: orchestrator, logger: logger, includeStack: includeStack}
}

// sseSink adapts an echo response into the orchestrator's Sink: each frame
// becomes one `data: <json>\n\n` record, flushed immediately.
type sseSink struct {
	response *echo.Response
}

func (s *sseSink) WriteFrame(frame interface{}) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.response, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.response.Flush()
	return nil
}

// StreamVideo serves POST /api/chat/stream
func (h *Chat) StreamVideo(c echo.Context) error {
	var req dto.VideoChatRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"), h.includeStack)
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()), h.includeStack)
	}

	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}

	return h.serve(c, func(streamID string, userID *string, sink chat.Sink) {
		h.orchestrator.StreamVideoChat(c.Request().Context(), streamID, req.Messages, req.VideoID, sessionID, userID, sink)
	})
}

// StreamChannel serves POST /api/chat/channel/stream
func (h *Chat) StreamChannel(c echo.Context) error {
	var req dto.ChannelChatRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"), h.includeStack)
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()), h.includeStack)
	}

	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		return HandleError(h.logger, c, err, h.includeStack)
	}

	return h.serve(c, func(streamID string, userID *string, sink chat.Sink) {
		h.orchestrator.StreamChannelChat(c.Request().Context(), streamID, req.Messages, req.ChannelID, sessionID, userID, sink)
	})
}

func (h *Chat) serve(c echo.Context, run func(streamID string, userID *string, sink chat.Sink)) error {
	identity := httpmw.IdentityFrom(c)
	var userID *string
	if !identity.IsAnonymous() {
		userID = &identity.UserID
	}

	streamID := uuid.NewString()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	// Watch for client disconnect and flip the stream registry so the
	// orchestrator stops between deltas.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-c.Request().Context().Done():
			h.orchestrator.Streams().Cancel(streamID)
		case <-done:
		}
	}()

	run(streamID, userID, &sseSink{response: c.Response()})
	return nil
}

func parseSessionID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apperrors.ErrInvalidArgument("sessionId must be a UUID")
	}
	return &id, nil
}
