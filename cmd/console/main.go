package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sched-console/api/swagger"
	"github.com/noah-isme/sched-console/internal/handler"
	"github.com/noah-isme/sched-console/internal/middleware"
	"github.com/noah-isme/sched-console/internal/models"
	"github.com/noah-isme/sched-console/internal/repository"
	"github.com/noah-isme/sched-console/internal/service"
	"github.com/noah-isme/sched-console/pkg/cache"
	"github.com/noah-isme/sched-console/pkg/config"
	"github.com/noah-isme/sched-console/pkg/jobs"
	"github.com/noah-isme/sched-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/sched-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sched-console/pkg/middleware/requestid"
	"github.com/noah-isme/sched-console/pkg/storeclient"
)

// @title Scheduling Admin Console API
// @version 1.0.0
// @description Master-data console backend for the campus course-scheduling store
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	client, err := storeclient.New(storeclient.Options{
		BaseURL:  cfg.Store.BaseURL,
		Timeout:  cfg.Store.Timeout,
		PageSize: cfg.Store.PageSize,
		Observer: metricsSvc,
		Logger:   logr.Named("store"),
	})
	if err != nil {
		logr.Fatal("invalid store configuration", zap.Error(err))
	}

	registry := service.NewKindRegistry(cfg.Store.ActiveTermID, "")
	assignments := registry.MustLookup(models.KindAssignment).Collection
	var local []string
	if cfg.Store.AssignmentsMode == config.AssignmentsLocal {
		local = append(local, assignments)
		logr.Warn("teaching assignments are held in memory only", zap.String("collection", assignments))
	}
	storeRepo := repository.NewStoreRepository(client, local...)

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, invalidations stay local", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}
	bus := repository.NewInvalidationRepository(redisClient, cfg.Cache.InvalidationChannel, logr.Named("invalidation"))

	resourceCache := service.NewResourceCache(registry, storeRepo, bus, metricsSvc, service.ResourceCacheConfig{Freshness: cfg.Cache.Freshness}, logr.Named("cache"))
	gate := service.NewReferentialGate(registry, resourceCache, logr.Named("gate"))
	mutations := service.NewMutationService(registry, storeRepo, resourceCache, gate, metricsSvc, logr.Named("mutation"))
	console := service.NewConsoleService(registry, resourceCache, gate, mutations, nil, service.ConsoleConfig{
		Notifications: service.NotifierConfig{SuccessTTL: cfg.Notification.SuccessTTL, ErrorTTL: cfg.Notification.ErrorTTL},
	}, logr.Named("console"))
	defer console.Close()

	warmer := service.NewCacheWarmService(resourceCache, jobs.QueueConfig{
		Workers:    cfg.Cache.WarmWorkers,
		BufferSize: len(models.Kinds) * 2,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		Logger:     logr.Named("warm"),
	})
	warmer.Start(ctx)
	defer warmer.Stop()
	if cfg.Cache.WarmOnStart {
		warmer.Warm(models.Kinds...)
	}

	go func() {
		if err := bus.Subscribe(ctx, warmer.ApplyRemote); err != nil {
			logr.Error("invalidation subscription ended", zap.Error(err))
		}
	}()

	scheduler := jobs.NewScheduler(logr.Named("scheduler"))
	if err := scheduleMaintenance(scheduler, cfg, console, warmer, logr); err != nil {
		logr.Fatal("invalid maintenance schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	var auth *service.AuthService
	if cfg.Auth.Enabled {
		auth = service.NewAuthService(logr.Named("auth"), service.AuthConfig{AccessTokenSecret: cfg.Auth.Secret, Issuer: cfg.Auth.Issuer})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, logger.AccessLog{
		QuietPaths: []string{"/health", "/ready", "/metrics"},
		Fields: func(c *gin.Context) []zap.Field {
			if session, ok := c.Get(middleware.ContextSessionKey); ok {
				return []zap.Field{zap.Any("session", session)}
			}
			return nil
		},
	}))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))

	routes := handler.Routes{
		Console:     handler.NewConsoleHandler(console),
		Collections: handler.NewCollectionHandler(console),
		Metrics:     handler.NewMetricsHandler(metricsSvc, client),
	}
	if auth != nil {
		routes.Auth = auth
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, routes)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.BaseURL)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
}

func scheduleMaintenance(scheduler *jobs.Scheduler, cfg *config.Config, console *service.ConsoleService, warmer *service.CacheWarmService, logr *zap.Logger) error {
	if cfg.Session.SweepInterval > 0 && cfg.Session.IdleTimeout > 0 {
		err := scheduler.Every("session-sweep", cfg.Session.SweepInterval, func() {
			if n := console.Sweep(cfg.Session.IdleTimeout); n > 0 {
				logr.Debug("session sweep", zap.Int("closed", n))
			}
		})
		if err != nil {
			return err
		}
	}
	if cfg.Cache.RefreshSchedule != "" {
		return scheduler.Cron("cache-rewarm", cfg.Cache.RefreshSchedule, func() {
			warmer.Warm(models.Kinds...)
		})
	}
	return nil
}
