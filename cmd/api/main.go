package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/tubechat/tubechat/pkg/validator"

	"github.com/tubechat/tubechat/internal/adapter/handler"
	"github.com/tubechat/tubechat/internal/adapter/repository"
	"github.com/tubechat/tubechat/internal/infrastructure/cache"
	"github.com/tubechat/tubechat/internal/infrastructure/database"
	"github.com/tubechat/tubechat/internal/infrastructure/external/youtube"
	"github.com/tubechat/tubechat/internal/infrastructure/lock"
	"github.com/tubechat/tubechat/internal/infrastructure/storage"
	"github.com/tubechat/tubechat/internal/usecase/chat"
	"github.com/tubechat/tubechat/internal/usecase/errorsink"
	"github.com/tubechat/tubechat/internal/usecase/pipeline"
	"github.com/tubechat/tubechat/internal/usecase/queue"
	"github.com/tubechat/tubechat/internal/usecase/ratelimit"
	"github.com/tubechat/tubechat/internal/usecase/retrieval"
	"github.com/tubechat/tubechat/internal/usecase/summary"
	pkgai "github.com/tubechat/tubechat/pkg/ai"
	"github.com/tubechat/tubechat/pkg/config"
	"github.com/tubechat/tubechat/pkg/email"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-API-KEY", "X-User-Id", "X-User-Email"},
	}))

	// Database
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	if !cfg.IsProduction() {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Redis
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Blob store
	transcripts, err := storage.NewTranscriptStore(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize transcript store: %v", err)
	}

	// Repositories
	channelRepo := repository.NewChannelRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	chatRepo := repository.NewChatRepository(db)
	lockRepo := repository.NewLockRepository(db)
	rateRepo := repository.NewRateEventRepository(db)
	cacheRepo := repository.NewCacheRepository(db)
	errorRepo := repository.NewErrorEventRepository(db)

	// Cross-cutting services
	sink := errorsink.New(errorRepo, logger)
	locks := lock.NewManager(lockRepo, logger)
	cacheService := cache.NewService(cacheRepo, logger)
	limiter := ratelimit.NewService(cfg.RateLimit, rateRepo, redisClient, logger)

	// Upstream clients
	metadata := youtube.NewMetadataClient(&cfg.YouTube)
	transcriptFetcher := youtube.NewTranscriptFetcher()
	embedder := pkgai.NewEmbeddingClient(&cfg.OpenAI, logger)
	llm := pkgai.NewLLMClient(&cfg.OpenAI)
	notifier := email.NewClient(&cfg.Email)
	if notifier == nil {
		logger.Warn("email notifications disabled: EMAIL_API_KEY not set")
	}

	// Pipelines
	videoPipeline := pipeline.NewVideoPipeline(
		locks, transcriptFetcher, transcripts, embedder,
		videoRepo, chunkRepo, sink, logger, cfg.Pipeline.VideoLockTTL,
	)
	var channelNotifier pipeline.Notifier
	if notifier != nil {
		channelNotifier = notifier
	}
	channelPipeline := pipeline.NewChannelPipeline(
		locks, queueRepo, channelRepo, videoRepo, metadata,
		videoPipeline, channelNotifier, sink, logger,
		cfg.Pipeline.ChannelVideoLimit, cfg.Pipeline.ChannelLockTTL,
	)

	// Queue
	queueService := queue.NewService(queueRepo, channelRepo, videoRepo, channelPipeline, videoPipeline, logger)
	dispatcher := queue.NewDispatcher(queueRepo, channelRepo, videoRepo, channelPipeline, videoPipeline, metadata, limiter, logger)
	dispatcher.Start()

	// Retrieval + chat
	engine := retrieval.NewEngine(chunkRepo, videoRepo, embedder, transcripts, logger)
	streams := chat.NewRegistry()
	orchestrator := chat.NewOrchestrator(engine, llm, chatRepo, videoRepo, channelRepo, cacheService, streams, sink, logger)
	summaries := summary.NewService(videoRepo, transcripts, llm, cacheService, logger)

	// Handlers + routes
	includeStack := !cfg.IsProduction()
	channelHandler := handler.NewChannelHandler(queueService, logger, includeStack)
	videoHandler := handler.NewVideoHandler(queueService, summaries, logger, includeStack)
	chatHandler := handler.NewChatHandler(orchestrator, logger, includeStack)
	queueHandler := handler.NewQueueHandler(queueService, queueRepo, logger, includeStack)
	monitorHandler := handler.NewMonitorHandler(channelRepo, videoRepo, queueRepo, errorRepo, streams, dispatcher, logger, includeStack)

	router := handler.NewRouter(cfg, channelHandler, videoHandler, chatHandler, queueHandler, monitorHandler, limiter, logger)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("server.starting",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown: stop tickers, release held locks, flush errors.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("server.shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	dispatcher.Stop()
	cacheService.Stop()
	locks.Stop()
	locks.ReleaseAll(ctx)
	sink.Stop(ctx)

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server.stopped")
}
