package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	httpmw "github.com/tubechat/tubechat/internal/infrastructure/http/middleware"
	"github.com/tubechat/tubechat/internal/usecase/ratelimit"
	"github.com/tubechat/tubechat/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg     *config.Config
	channel *Channel
	video   *Video
	chat    *Chat
	queue   *Queue
	monitor *Monitor
	limiter *ratelimit.Service
	logger  *zap.Logger
}

// NewRouter creates a new router with all handlers
func NewRouter(
	cfg *config.Config,
	channel *Channel,
	video *Video,
	chatHandler *Chat,
	queueHandler *Queue,
	monitor *Monitor,
	limiter *ratelimit.Service,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:     cfg,
		channel: channel,
		video:   video,
		chat:    chatHandler,
		queue:   queueHandler,
		monitor: monitor,
		limiter: limiter,
		logger:  logger,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint, outside the API key boundary
	e.GET("/health", rt.monitor.Health)

	api := e.Group("/api", httpmw.APIKeyAuth(rt.cfg.Server.APIKey))

	chatLimit := httpmw.RateLimit(rt.limiter, entities.RateActionChat, rt.logger)
	videoLimit := httpmw.RateLimit(rt.limiter, entities.RateActionVideoUpload, rt.logger)
	channelLimit := httpmw.RateLimit(rt.limiter, entities.RateActionChannelProcess, rt.logger)

	channels := api.Group("/channels")
	channels.POST("/process", rt.channel.Process, channelLimit)
	channels.GET("/:id/status", rt.channel.Status)

	videos := api.Group("/videos")
	videos.POST("/process", rt.video.Process, videoLimit)
	videos.GET("/:id/summary", rt.video.Summary)

	chatGroup := api.Group("/chat")
	chatGroup.POST("/stream", rt.chat.StreamVideo, chatLimit)
	chatGroup.POST("/channel/stream", rt.chat.StreamChannel, chatLimit)

	queueGroup := api.Group("/queue")
	queueGroup.GET("/status", rt.queue.Status)
	queueGroup.GET("/position/:qid", rt.queue.Position)
	queueGroup.POST("/channel", rt.channel.Process, channelLimit)
	queueGroup.POST("/video", rt.video.Process, videoLimit)

	api.GET("/monitor/stats", rt.monitor.Stats)
	api.GET("/cron/status", rt.monitor.CronStatus)
	api.GET("/errors/stats", rt.monitor.ErrorStats)
}
