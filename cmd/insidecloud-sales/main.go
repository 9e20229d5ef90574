package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/insidedeveloper888/insidecloud-sales/internal/config"
	"github.com/insidedeveloper888/insidecloud-sales/internal/middleware"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/handler"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	zapLogger.Info("Starting insidecloud-sales service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate sales tables", zap.Error(err))
	}
	zapLogger.Info("Sales database migration completed")

	// Redis（状态流查询缓存，未配置时降级为直查数据库）
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, status cache disabled", zap.Error(err))
			rdb = nil
		}
	}

	// MinIO（发货单附件存储，未配置时附件接口返回前置条件错误）
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("MinIO unavailable, attachments disabled", zap.Error(err))
			minioClient = nil
		}
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, minioClient, cfg.MinIO.Bucket)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	port := cfg.Server.Port
	if port == 0 {
		port = 8082
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Sales server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down sales server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Sales server exited")
}

func registerRoutes(router *gin.Engine, handlers *handler.Handlers, cfg *config.Config) {
	// 健康检查
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "insidecloud-sales"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "insidecloud-sales"})
	})

	// 版本信息
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "insidecloud-sales",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := router.Group("/api/v1/sales")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	v1.Use(middleware.RequireOrg())
	{
		// 状态流与编号配置（组织管理员）
		settings := v1.Group("", middleware.RequireRole("sales_admin"))
		{
			settings.PUT("/statuses/:doc_type", handlers.Status.Replace)
			settings.PUT("/numbering/:doc_type", handlers.Numbering.Save)
		}
		v1.GET("/statuses/:doc_type", handlers.Status.List)
		v1.GET("/numbering/preview", handlers.Numbering.Preview)
		v1.GET("/numbering/:doc_type", handlers.Numbering.Get)

		// 报价单
		quotations := v1.Group("/quotations")
		{
			quotations.GET("", handlers.Quotation.List)
			quotations.POST("", handlers.Quotation.Create)
			quotations.GET("/:id", handlers.Quotation.Get)
			quotations.PUT("/:id", handlers.Quotation.Update)
			quotations.PATCH("/:id/status", handlers.Quotation.UpdateStatus)
			quotations.DELETE("/:id", handlers.Quotation.Delete)
			quotations.GET("/:id/sales-orders", handlers.Quotation.ListSalesOrders)
		}

		// 销售订单
		orders := v1.Group("/orders")
		{
			orders.GET("", handlers.SalesOrder.List)
			orders.POST("", handlers.SalesOrder.Create)
			orders.GET("/:id", handlers.SalesOrder.Get)
			orders.PUT("/:id", handlers.SalesOrder.Update)
			orders.PATCH("/:id/status", handlers.SalesOrder.UpdateStatus)
			orders.DELETE("/:id", handlers.SalesOrder.Delete)
			orders.GET("/:id/fulfillment", handlers.SalesOrder.Fulfillment)
		}

		// 发货单
		deliveries := v1.Group("/deliveries")
		{
			deliveries.GET("", handlers.Delivery.List)
			deliveries.POST("", handlers.Delivery.Create)
			deliveries.GET("/:id", handlers.Delivery.Get)
			deliveries.PATCH("/:id/status", handlers.Delivery.UpdateStatus)
			deliveries.DELETE("/:id", handlers.Delivery.Delete)
			deliveries.POST("/:id/attachments", handlers.Delivery.UploadAttachment)
			deliveries.GET("/:id/attachments", handlers.Delivery.ListAttachments)
		}

		// 发票与收款
		invoices := v1.Group("/invoices")
		{
			invoices.GET("", handlers.Invoice.List)
			invoices.POST("", handlers.Invoice.Create)
			invoices.GET("/:id", handlers.Invoice.Get)
			invoices.PUT("/:id", handlers.Invoice.Update)
			invoices.PATCH("/:id/status", handlers.Invoice.UpdateStatus)
			invoices.DELETE("/:id", handlers.Invoice.Delete)
			invoices.POST("/:id/payments", handlers.Invoice.AddPayment)
			invoices.DELETE("/:id/payments/:payment_id", handlers.Invoice.DeletePayment)
		}
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
