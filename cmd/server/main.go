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

	applineage "github.com/erp/doclink/internal/application/lineage"
	"github.com/erp/doclink/internal/infrastructure/cache"
	"github.com/erp/doclink/internal/infrastructure/config"
	"github.com/erp/doclink/internal/infrastructure/logger"
	"github.com/erp/doclink/internal/infrastructure/persistence"
	"github.com/erp/doclink/internal/infrastructure/remote"
	"github.com/erp/doclink/internal/interfaces/http/handler"
	"github.com/erp/doclink/internal/interfaces/http/middleware"
	"github.com/erp/doclink/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting doclink",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Durable summary tier
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Remote document store
	remoteCfg := &remote.Config{
		BaseURL:        cfg.Remote.BaseURL,
		CompanyDB:      cfg.Remote.CompanyDB,
		Username:       cfg.Remote.Username,
		Password:       cfg.Remote.Password,
		SessionRenewal: cfg.Remote.SessionRenewal,
		LoginTimeout:   cfg.Remote.LoginTimeout,
		QueryTimeout:   cfg.Remote.QueryTimeout,
		FetchTimeout:   cfg.Remote.FetchTimeout,
	}
	sessions, err := remote.NewSessionManager(remoteCfg, log)
	if err != nil {
		log.Fatal("Invalid remote store configuration", zap.Error(err))
	}
	gateway := remote.NewClient(remoteCfg, sessions, log)

	// Ephemeral trace cache
	traces, err := cache.NewTraceCache(cfg.Cache.Backend, cfg.Cache.TraceTTL, cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize trace cache", zap.Error(err))
	}
	defer func() {
		if err := traces.Close(); err != nil {
			log.Error("Error closing trace cache", zap.Error(err))
		}
	}()

	// Application services
	summaryRepo := persistence.NewGormSummaryRepository(db.DB)
	resolver := applineage.NewResolverService(gateway, traces, summaryRepo, applineage.ResolverConfig{
		WindowBack:           cfg.Resolver.WindowBack,
		WindowForward:        cfg.Resolver.WindowForward,
		OrderCandidateCap:    cfg.Resolver.OrderCandidateCap,
		DeliveryCandidateCap: cfg.Resolver.DeliveryCandidateCap,
	}, log)
	summaries := applineage.NewSummaryService(resolver, summaryRepo, applineage.SummaryConfig{
		Freshness: cfg.Summary.Freshness,
		ScanPace:  cfg.Summary.ScanPace,
	}, log)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	handler.NewSystemHandler(db).RegisterRoutes(engine)

	router.NewRouter(engine).
		Register(handler.NewLineageHandler(resolver)).
		Register(handler.NewReportHandler(summaries)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
