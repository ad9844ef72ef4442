// Package main runs the organizer platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eventhive/backend/config"
	"github.com/eventhive/backend/internal/analytics"
	"github.com/eventhive/backend/internal/auth"
	"github.com/eventhive/backend/internal/companies"
	"github.com/eventhive/backend/internal/emaillogs"
	"github.com/eventhive/backend/internal/events"
	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/moderation"
	"github.com/eventhive/backend/internal/notify"
	"github.com/eventhive/backend/internal/subscriptions"
	"github.com/eventhive/backend/pkg/cache"
	"github.com/eventhive/backend/pkg/database"
	"github.com/eventhive/backend/pkg/logger"
	"github.com/eventhive/backend/pkg/metrics"
	"github.com/eventhive/backend/pkg/redis"
	"github.com/eventhive/backend/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer log.Sync()

	metrics.Init(cfg.Metrics.Prefix)

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, log); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: 5 * time.Second,
	}, log)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	companyCache, err := cache.New(cfg.Cache.Backend, rdb.Client, cfg.Cache.KeyPrefix, cfg.Cache.TTL, log)
	if err != nil {
		log.Fatal("cache", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret)

	// Companies
	companyRepo := companies.NewRepository(pool)
	companySvc := companies.NewService(companyRepo, companyCache, log)
	companyHandler := companies.NewHandler(companySvc)

	// Subscriptions
	subscriptionSvc := subscriptions.NewService(subscriptions.NewRepository(pool), companySvc, log)
	subscriptionHandler := subscriptions.NewHandler(subscriptionSvc)

	// Moderation
	listingRepo := events.NewRepository(pool)
	var content moderation.ContentChecker = moderation.NewStaticListChecker(cfg.Moderation.BannedWords)
	if cfg.Moderation.APIURL != "" {
		content = moderation.NewAPIChecker(cfg.Moderation.APIURL, cfg.Moderation.APITimeout)
	}
	moderationSvc := moderation.NewService(listingRepo, moderation.NewRepository(pool), companySvc, moderation.Options{
		Content:  content,
		Notifier: notify.NewPublisher(rdb.Client, log),
		Logger:   log,
	})
	moderationHandler := moderation.NewHandler(moderationSvc)

	// Events and hackathons
	listingSvc := events.NewService(listingRepo, companySvc, subscriptionSvc, moderationSvc, log)
	listingHandler := events.NewHandler(listingSvc)

	analyticsHandler := analytics.NewHandler(analytics.NewService(analytics.NewRepository(pool), log))
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "database unavailable"})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public listings and company profiles
	router.GET("/events", listingHandler.ListPublic(models.KindEvent))
	router.GET("/hackathons", listingHandler.ListPublic(models.KindHackathon))
	router.GET("/companies", companyHandler.List)
	router.GET("/companies/slug/:slug", companyHandler.GetBySlug)

	admin := middleware.RequireRole(models.RoleAdmin)
	member := companies.RequireCompanyAccess(companySvc)

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Companies
		api.POST("/companies", companyHandler.Create)
		api.GET("/companies/:id", companyHandler.GetByID)
		api.PATCH("/companies/:id", member, companyHandler.Update)
		api.DELETE("/companies/:id", member, companyHandler.Delete)
		api.POST("/companies/:id/verify", admin, companyHandler.Verify)
		api.POST("/companies/:id/reject", admin, companyHandler.Reject)
		api.GET("/companies/:id/members", member, companyHandler.ListMembers)
		api.GET("/companies/:id/limits/:action", member, companyHandler.CheckLimits)

		// Subscriptions
		api.GET("/companies/:id/subscription", member, subscriptionHandler.Usage)
		api.GET("/companies/:id/subscription/check/:action", member, subscriptionHandler.Check)
		api.GET("/companies/:id/subscription/recommendation", member, subscriptionHandler.Recommendation)
		api.PUT("/companies/:id/subscription", admin, subscriptionHandler.UpdateTier)
		api.POST("/companies/:id/subscription/cancel", admin, subscriptionHandler.Cancel)
		api.POST("/companies/:id/subscription/suspend", admin, subscriptionHandler.Suspend)
		api.POST("/companies/:id/subscription/reactivate", admin, subscriptionHandler.Reactivate)
		api.GET("/subscriptions/expiring", admin, subscriptionHandler.Expiring)

		// Listings
		api.POST("/companies/:id/events", member, listingHandler.Create(models.KindEvent))
		api.POST("/companies/:id/hackathons", member, listingHandler.Create(models.KindHackathon))
		api.GET("/companies/:id/events", member, listingHandler.ListByCompany(models.KindEvent))
		api.GET("/companies/:id/hackathons", member, listingHandler.ListByCompany(models.KindHackathon))
		api.GET("/events/:id", listingHandler.Get(models.KindEvent))
		api.GET("/hackathons/:id", listingHandler.Get(models.KindHackathon))

		// Reporting
		api.GET("/companies/:id/analytics", member, analyticsHandler.ByCompany)
		api.GET("/companies/:id/emails", member, emailLogsHandler.ListByCompany)

		// Moderation (platform admins)
		mod := api.Group("/moderation/:kind/:id", moderation.RequireModerator())
		mod.POST("/approve", moderationHandler.Approve)
		mod.POST("/reject", moderationHandler.Reject)
		mod.POST("/request-changes", moderationHandler.RequestChanges)
		mod.POST("/checks", moderationHandler.Checks)
		mod.GET("/history", moderationHandler.History)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
