package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chirp-social/chirp/internal/config"
	"github.com/chirp-social/chirp/internal/handlers"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/internal/services"
	"github.com/chirp-social/chirp/internal/storage"
	"github.com/chirp-social/chirp/pkg/cache"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/chirp-social/chirp/pkg/queue"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := logger.NewLogger()
	logger.Info("Starting Chirp API server...")

	// 初始化数据库
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// 自动迁移数据库表
	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// 初始化Redis缓存
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化Kafka生产者
	notificationProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Notifications)
	defer notificationProducer.Close()

	// 初始化对象存储
	blobStore, err := storage.NewS3Store(ctx, cfg.Storage.Region, cfg.Storage.Bucket, cfg.Storage.BaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize blob storage")
	}

	// 初始化仓库
	accountRepo := repository.NewAccountRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	postRepo := repository.NewPostRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)
	bookmarkRepo := repository.NewBookmarkRepository(db.DB)
	commentRepo := repository.NewCommentRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	feedRepo := repository.NewFeedRepository(db.DB)

	// 初始化服务
	notificationService := services.NewNotificationService(notificationRepo, notificationProducer, redisClient, logger)
	authService := services.NewAuthService(db, accountRepo, sessionRepo, userRepo, cfg.JWT, logger)
	userService := services.NewUserService(db, userRepo, followRepo, blobStore, notificationService, logger)
	postService := services.NewPostService(db, postRepo, userRepo, blobStore, notificationService, logger)
	likeService := services.NewLikeService(db, likeRepo, postRepo, notificationService, logger)
	bookmarkService := services.NewBookmarkService(db, bookmarkRepo, postRepo, logger)
	commentService := services.NewCommentService(db, commentRepo, postRepo, notificationService, logger)
	feedService := services.NewFeedService(feedRepo, followRepo, logger)

	// 初始化处理器
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, postService)
	postHandler := handlers.NewPostHandler(postService, likeService, bookmarkService, commentService)
	feedHandler := handlers.NewFeedHandler(feedService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())

	// 添加CORS中间件
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 限流
	router.Use(middleware.NewRateLimit(redisClient, logger, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	// API路由
	api := router.Group("/api/v1")
	{
		// 认证相关路由
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}

		// 匿名可访问的路由
		public := api.Group("")
		public.Use(middleware.NewOptionalJWTAuth(cfg.JWT.Secret))
		{
			public.GET("/feed/explore", feedHandler.GetExploreFeed)
			public.GET("/users/search", userHandler.Search)
			public.GET("/profiles/:username", userHandler.GetProfile)
			public.GET("/users/:id/posts", userHandler.GetUserPosts)
			public.GET("/users/:id/followers", userHandler.GetFollowers)
			public.GET("/users/:id/following", userHandler.GetFollowing)
			public.GET("/posts/:id", postHandler.GetPost)
			public.GET("/posts/:id/likes", postHandler.GetLikers)
			public.GET("/posts/:id/comments", postHandler.GetComments)
		}

		// 需要认证的路由
		protected := api.Group("")
		protected.Use(middleware.NewJWTAuth(cfg.JWT.Secret))
		{
			// 用户相关
			protected.PUT("/users/profile", userHandler.UpdateProfile)
			protected.PUT("/users/username", userHandler.ChangeUserName)
			protected.POST("/users/avatar", userHandler.UploadAvatar)
			protected.POST("/users/:id/follow", userHandler.Follow)
			protected.DELETE("/users/:id/follow", userHandler.Unfollow)
			protected.GET("/users/suggestions", userHandler.GetSuggestions)

			// 帖子相关
			protected.POST("/posts", postHandler.CreatePost)
			protected.PUT("/posts/:id", postHandler.EditPost)
			protected.DELETE("/posts/:id", postHandler.DeletePost)
			protected.POST("/posts/:id/reshare", postHandler.Reshare)
			protected.POST("/posts/:id/quote", postHandler.Quote)
			protected.POST("/posts/:id/like", postHandler.Like)
			protected.DELETE("/posts/:id/like", postHandler.Unlike)
			protected.POST("/posts/:id/bookmark", postHandler.Bookmark)
			protected.DELETE("/posts/:id/bookmark", postHandler.Unbookmark)
			protected.GET("/bookmarks", postHandler.GetBookmarks)

			// 评论相关
			protected.POST("/posts/:id/comments", postHandler.CreateComment)
			protected.PUT("/comments/:id", postHandler.EditComment)
			protected.DELETE("/comments/:id", postHandler.DeleteComment)

			// Feed相关
			protected.GET("/feed", feedHandler.GetFollowingFeed)

			// 通知相关
			protected.GET("/notifications", notificationHandler.GetNotifications)
			protected.GET("/notifications/unread", notificationHandler.GetUnreadCount)
			protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
