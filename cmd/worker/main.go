// Package main runs the background worker: email delivery, decision mails, expiry warnings and analytics.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eventhive/backend/config"
	"github.com/eventhive/backend/internal/analytics"
	"github.com/eventhive/backend/internal/companies"
	"github.com/eventhive/backend/internal/emaillogs"
	"github.com/eventhive/backend/internal/notify"
	"github.com/eventhive/backend/internal/subscriptions"
	"github.com/eventhive/backend/internal/worker"
	"github.com/eventhive/backend/pkg/cache"
	"github.com/eventhive/backend/pkg/database"
	"github.com/eventhive/backend/pkg/logger"
	"github.com/eventhive/backend/pkg/mailer"
	"github.com/eventhive/backend/pkg/metrics"
	"github.com/eventhive/backend/pkg/queue"
	"github.com/eventhive/backend/pkg/redis"
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
	companySvc := companies.NewService(companies.NewRepository(pool), companyCache, log)
	subscriptionSvc := subscriptions.NewService(subscriptions.NewRepository(pool), companySvc, log)
	analyticsSvc := analytics.NewService(analytics.NewRepository(pool), log)

	jobQueue := queue.NewQueue(rdb.Client, log)
	sender := mailer.NewSMTP(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
		cfg.Email.FromAddress, cfg.Email.FromName)
	processor := worker.NewEmailProcessor(jobQueue, sender, emaillogs.NewRepository(pool), log)
	notifications := worker.NewNotifications(jobQueue, companySvc, log)
	scheduler := worker.NewScheduler(subscriptionSvc, analyticsSvc, notifications, cfg.Subscription.ExpiryWarningDays, log)
	subscriber := notify.NewSubscriber(rdb.Client, log)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		if err := subscriber.Run(workerCtx, notifications.HandleDecision); err != nil {
			log.Error("decision subscriber stopped", zap.Error(err))
		}
	}()
	if err := scheduler.Start(workerCtx, cfg.Worker.ExpiryCron, cfg.Worker.AnalyticsCron); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	log.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	scheduler.Stop()
	wg.Wait()
	log.Info("worker stopped")
}
