package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chirp-social/chirp/internal/config"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/internal/workers"
	"github.com/chirp-social/chirp/pkg/cache"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/chirp-social/chirp/pkg/queue"
)

const sessionCleanupInterval = time.Hour

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := logger.NewLogger()
	logger.Info("Starting Chirp notification worker...")

	// 初始化数据库
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// 初始化Redis缓存
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化Kafka消费者
	notificationConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Notifications, "notification-worker-group")

	// 初始化工作处理器
	notificationWorker := workers.NewNotificationWorker(notificationConsumer, redisClient, logger)

	go func() {
		if err := notificationWorker.Start(ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Notification worker stopped with error")
		}
	}()

	// 定期清理过期会话
	sessionRepo := repository.NewSessionRepository(db.DB)
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sessionRepo.DeleteExpired(ctx); err != nil {
					logger.WithError(err).Error("Failed to clean up expired sessions")
				}
			}
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	if err := notificationWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop notification worker")
	}

	logger.Info("Worker exited")
}
