package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hazmat-api/api/swagger"
	"github.com/noah-isme/hazmat-api/internal/handler"
	"github.com/noah-isme/hazmat-api/internal/repository"
	"github.com/noah-isme/hazmat-api/internal/router"
	"github.com/noah-isme/hazmat-api/internal/service"
	"github.com/noah-isme/hazmat-api/pkg/cache"
	"github.com/noah-isme/hazmat-api/pkg/config"
	"github.com/noah-isme/hazmat-api/pkg/database"
	"github.com/noah-isme/hazmat-api/pkg/export"
	"github.com/noah-isme/hazmat-api/pkg/logger"
	"github.com/noah-isme/hazmat-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/hazmat-api/pkg/middleware/cors"
	"github.com/noah-isme/hazmat-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/hazmat-api/pkg/middleware/requestid"
	"github.com/noah-isme/hazmat-api/pkg/storage"
)

// @title Hazmat Storage API
// @version 1.0.0
// @description Chemical container registration with hazard compatibility checks and two-stage approval
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to ensure schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("running without redis, code login and caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	mail := mailer.New(cfg.Mail, logr)

	users := repository.NewUserRepository(db)
	classes := repository.NewHazardClassRepository(db)
	containers := repository.NewContainerRepository(db)
	deletions := repository.NewDeletionRequestRepository(db)
	attachmentsRepo := repository.NewAttachmentRepository(db)

	files, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare attachment storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	notifications := service.NewNotificationService(users, mail, cfg.Notifications, metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	compatOpts := []service.CompatibilityOption{}
	if redisClient != nil && cfg.Cache.Enabled {
		cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, "hazmat:"), metrics, cfg.Cache.TTL, logr)
		compatOpts = append(compatOpts, service.WithCatalogCache(cacheSvc, cfg.Cache.TTL))
	}
	compatSvc := service.NewCompatibilityService(classes, validate, metrics, logr, compatOpts...)
	if _, err := compatSvc.SeedCatalog(ctx); err != nil {
		logr.Fatal("failed to seed hazard classes", zap.Error(err))
	}

	downloadBase := strings.TrimRight(cfg.APIPrefix, "/") + "/attachments/download/"
	attachmentSvc := service.NewAttachmentService(attachmentsRepo, containers, files, signer, users, cfg.Attachments, downloadBase, logr)

	containerSvc := service.NewContainerService(containers, classes, users, validate, logr,
		service.WithContainerNotifier(notifications),
		service.WithContainerMetrics(metrics),
		service.WithContainerAttachments(attachmentSvc, files),
	)
	deletionSvc := service.NewDeletionRequestService(deletions, containers, users, logr,
		service.WithDeletionNotifier(notifications),
		service.WithDeletionMetrics(metrics),
		service.WithDeletionFiles(files),
	)

	authOpts := []service.AuthServiceOption{}
	if redisClient != nil {
		authOpts = append(authOpts, service.WithLoginCodes(repository.NewCodeRepository(redisClient), mail))
	}
	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		CodeTTL:           cfg.Auth.CodeTTL,
		CodeLength:        cfg.Auth.CodeLength,
		CodeMaxAttempts:   cfg.Auth.CodeMaxAttempts,
	}, authOpts...)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = redisPinger(redisClient)
	} else {
		checks["redis"] = nil
	}

	handlers := router.Handlers{
		Auth:             handler.NewAuthHandler(authSvc),
		HazardClasses:    handler.NewHazardClassHandler(compatSvc),
		Containers:       handler.NewContainerHandler(containerSvc),
		DeletionRequests: handler.NewDeletionRequestHandler(deletionSvc),
		Attachments:      handler.NewAttachmentHandler(attachmentSvc),
		Metrics:          handler.NewMetricsHandler(metrics, checks),
	}
	if cfg.Exports.Enabled {
		exportSvc := service.NewExportService(containerSvc, containers, export.NewCSVExporter(), export.NewPDFExporter(), logr,
			service.WithSpreadsheet(export.NewXLSXExporter()))
		handlers.Exports = handler.NewExportHandler(exportSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS))

	deps := router.Dependencies{
		Tokens:  authSvc,
		Audit:   users,
		Metrics: metrics,
		Logger:  logr,
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(cfg.RateLimit.Auth, redisClient)
		if err != nil {
			logr.Fatal("invalid auth rate limit", zap.Error(err))
		}
		deps.AuthLimiter = limiter
	}
	router.Register(r, cfg.APIPrefix, handlers, deps)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func redisPinger(client *redis.Client) handler.Pinger {
	return handler.PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
