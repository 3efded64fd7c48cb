// Package main runs the call recording HTTP service with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-telephony/backend/config"
	"github.com/aura-telephony/backend/internal/api"
	"github.com/aura-telephony/backend/internal/auth"
	"github.com/aura-telephony/backend/internal/callcontrol"
	"github.com/aura-telephony/backend/internal/mediastore"
	"github.com/aura-telephony/backend/internal/middleware"
	"github.com/aura-telephony/backend/internal/recording"
	"github.com/aura-telephony/backend/internal/transfer"
	"github.com/aura-telephony/backend/internal/workflow"
	"github.com/aura-telephony/backend/pkg/database"
	"github.com/aura-telephony/backend/pkg/queue"
	"github.com/aura-telephony/backend/pkg/redis"
	"github.com/aura-telephony/backend/pkg/response"
	"github.com/aura-telephony/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	bus := callcontrol.NewBus(rdb.Client, logger)
	host := workflow.NewNotifier(rdb.Client, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	mediaTransfer := transfer.NewQueueTransfer(jobQueue, logger)
	docStore := mediastore.NewStore(pool, s3Client, logger)

	persister := recording.NewStorageResolver(cfg.Recording, docStore, mediaTransfer, logger)
	recordingSvc := recording.NewService(cfg.Recording, bus, persister, logger)

	recordingHandler := api.NewHandler(recordingSvc, docStore, s3Client, host, logger)
	webhookHandler := api.NewWebhookHandler(bus, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Service API (service token required)
	svc := router.Group("")
	svc.Use(middleware.JWT(tokens))
	{
		svc.POST("/calls/:call_id/recording", recordingHandler.Command)
		svc.GET("/calls/:call_id/recording", recordingHandler.Get)
	}

	// Webhooks from the media layer (service token required as well; the
	// media layer is an internal service)
	hooks := router.Group("/webhooks")
	hooks.Use(middleware.JWT(tokens))
	{
		hooks.POST("/call-events", webhookHandler.CallEvent)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
