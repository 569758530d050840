package api

import (
	"fmt"
	"time"

	compatHandler "recipe-compat/internal/api/handlers/compat"
	"recipe-compat/internal/api/handlers/health"
	"recipe-compat/internal/api/middleware"
	"recipe-compat/internal/core/compat"
	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務；Store、Dispatcher、Metrics 可為 nil
type Dependencies struct {
	Service    *compat.Service
	Store      health.Pinger
	Dispatcher *compat.Dispatcher
	Metrics    *compat.Metrics
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("compat service is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, deps.Store, deps.Dispatcher)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.Deduplication(cfg.Server.DedupWindow))
	{
		handler := compatHandler.NewHandler(deps.Service, cfg.App.Debug)

		compatGroup := api.Group("/compat")
		{
			compatGroup.POST("/personal", handler.HandlePersonal)
			compatGroup.POST("/circle", handler.HandleCircle)
			compatGroup.POST("/batch", handler.HandleBatch)
			compatGroup.POST("/filter", handler.HandleFilter)
		}

		api.GET("/recipes/:id/dietary-profile", handler.HandleProfile)
		api.POST("/dietary/classify", handler.HandleClassify)
	}

	router.NoRoute(func(c *gin.Context) {
		common.WriteError(c, common.ErrNotFound, false)
	})

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled && deps.Metrics != nil),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}
