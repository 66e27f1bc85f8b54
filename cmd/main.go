package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialspark-backend/config"
	"socialspark-backend/internal/api/post"
	"socialspark-backend/internal/api/user"
	"socialspark-backend/internal/common"
	"socialspark-backend/internal/events"
	"socialspark-backend/internal/middleware"
	"socialspark-backend/internal/notify"
	"socialspark-backend/internal/ratelimit"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/repository/memory"
	"socialspark-backend/internal/repository/mysql"
	"socialspark-backend/internal/service"
	"socialspark-backend/internal/storage"
	"socialspark-backend/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

type repositories struct {
	users         interfaces.UserRepository
	relationships interfaces.RelationshipRepository
	posts         interfaces.PostRepository
	engagement    interfaces.EngagementRepository
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("程序发生严重错误", zap.Any("error", r))
		}
	}()

	// 初始化配置
	config.Init()
	cfg := config.AppConfig

	// 初始化日志
	util.InitLogger(cfg.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	// 注册自定义验证器
	util.RegisterValidators()

	repos, closeDB := openRepositories(cfg)
	defer closeDB()

	store := openStorage(cfg)

	// 实时推送与事件队列
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := notify.NewHub()
	go hub.Run(hubCtx)

	sinks := []events.Sink{events.LogSink{Logger: util.Logger}, hub}
	if cfg.SMTPEnabled() {
		dialer := events.NewDialer(events.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		sinks = append(sinks, events.NewEmailSink(repos.users, dialer, cfg.SMTPUsername, cfg.FrontendURL))
		util.Logger.Info("邮件通知已启用", zap.String("smtp_host", cfg.SMTPHost))
	}
	queue := events.NewQueue(cfg.EventQueueSize, sinks...)

	// 初始化服务和处理器
	window := ratelimit.NewWindow(cfg.ConnectionRequestLimit, cfg.ConnectionRequestWindow)
	userService := service.NewUserService(repos.users, repos.posts, store)
	relationshipService := service.NewRelationshipService(repos.users, repos.relationships, window, queue)
	engagementService := service.NewEngagementService(repos.users, repos.engagement, cfg.FrontendURL)
	postService := service.NewPostService(repos.users, repos.posts, repos.engagement, store)

	userHandler := user.NewUserHandler(userService)
	relationshipHandler := user.NewRelationshipHandler(relationshipService)
	postHandler := post.NewPostHandler(postService)
	engagementHandler := post.NewEngagementHandler(engagementService)

	// 初始化错误监控
	errorMonitor := middleware.NewErrorMonitor()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.ErrorMonitorMiddleware(errorMonitor))

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length",
		"Content-Type",
	}
	r.Use(cors.New(corsConfig))

	if cfg.StorageDriver == "local" {
		r.Static("/uploads", cfg.LocalStoragePath)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"errors":         errorMonitor.GetErrorCounts(),
			"dropped_events": queue.Dropped(),
		})
	})

	secret := []byte(cfg.JWTSecret)
	api := r.Group("/api")
	api.GET("/ws", hub.HandleWebSocket(secret))

	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware(secret, userService))
	{
		userRoutes := authorized.Group("/user")
		userRoutes.GET("/data", userHandler.GetUserData)
		userRoutes.POST("/update", userHandler.UpdateUserData)
		userRoutes.POST("/discover", userHandler.DiscoverUsers)
		userRoutes.POST("/follow", relationshipHandler.Follow)
		userRoutes.POST("/unfollow", relationshipHandler.Unfollow)
		userRoutes.POST("/connect", relationshipHandler.SendConnectionRequest)
		userRoutes.POST("/accept", relationshipHandler.AcceptConnectionRequest)
		userRoutes.GET("/connections", relationshipHandler.GetUserConnections)
		userRoutes.POST("/profiles", userHandler.GetUserProfiles)

		postRoutes := authorized.Group("/post")
		postRoutes.POST("/add", postHandler.AddPost)
		postRoutes.GET("/feed", postHandler.GetFeedPosts)
		postRoutes.POST("/like", engagementHandler.LikePost)
		postRoutes.POST("/comment", engagementHandler.AddComment)
		postRoutes.GET("/:postId/comments", postHandler.GetComments)
		postRoutes.POST("/share", engagementHandler.SharePost)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		util.Logger.Info("服务器正在启动", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Error("服务器强制关闭", zap.Error(err))
	}
	// 先排空事件队列，再停止推送
	if err := queue.Close(ctx); err != nil {
		util.Logger.Warn("事件队列未能完全排空", zap.Error(err))
	}
	stopHub()

	util.Logger.Info("服务器已优雅关闭")
}

func openRepositories(cfg config.Config) (repositories, func()) {
	if cfg.DBDriver == "memory" {
		util.Logger.Warn("使用内存存储，重启后数据将丢失")
		s := memory.NewStore()
		return repositories{
			users:         memory.NewUserRepository(s),
			relationships: memory.NewRelationshipRepository(s),
			posts:         memory.NewPostRepository(s),
			engagement:    memory.NewEngagementRepository(s),
		}, func() {}
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		util.Logger.Fatal("连接数据库失败", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := common.WithRetry(ctx, db.PingContext, 5, 2*time.Second); err != nil {
		util.Logger.Fatal("数据库连接测试失败", zap.Error(err))
	}
	util.Logger.Info("数据库连接成功")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := mysql.CreateTables(ctx, db); err != nil {
		util.Logger.Fatal("创建数据表失败", zap.Error(err))
	}

	return repositories{
		users:         mysql.NewUserRepository(db),
		relationships: mysql.NewRelationshipRepository(db),
		posts:         mysql.NewPostRepository(db),
		engagement:    mysql.NewEngagementRepository(db),
	}, func() { db.Close() }
}

func openStorage(cfg config.Config) storage.Storage {
	switch cfg.StorageDriver {
	case "s3":
		client, err := storage.NewS3Client(cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			util.Logger.Fatal("初始化 S3 存储失败", zap.Error(err))
		}
		return client
	case "gcs":
		client, err := storage.NewGCSClient(context.Background(), cfg.GCSProjectID, cfg.GCSBucketName, cfg.GCSCredentialsFile)
		if err != nil {
			util.Logger.Fatal("初始化 GCS 存储失败", zap.Error(err))
		}
		return client
	default:
		local, err := storage.NewLocalStorage(cfg.LocalStoragePath, cfg.BackendURL)
		if err != nil {
			util.Logger.Fatal("初始化本地存储失败", zap.Error(err), zap.String("path", cfg.LocalStoragePath))
		}
		return local
	}
}
