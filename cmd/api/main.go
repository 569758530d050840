package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-compat/internal/api"
	"recipe-compat/internal/core/cache"
	"recipe-compat/internal/core/compat"
	"recipe-compat/internal/core/dietary"
	"recipe-compat/internal/core/store"
	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Int("compat_workers", cfg.Compat.Workers),
	)

	// 分類表在啟動時載入，資料錯誤直接中止
	taxonomy := dietary.Default()
	common.LogInfo("Taxonomy loaded",
		zap.Int("allergens", len(dietary.AllAllergens())),
		zap.Int("restrictions", len(dietary.AllRestrictions())),
	)

	// 初始化資料來源
	dataStore, err := store.New(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}

	// 初始化語言快取
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	languageCache, err := cache.New(startupCtx, cfg.Cache)
	cancelStartup()
	if err != nil {
		common.LogFatal("Failed to initialize language cache", zap.Error(err))
	}

	metrics := compat.NewMetrics()

	// 語言寫回：先寫快取再寫資料來源
	var recorders []compat.LanguageRecorder
	deps := compat.Dependencies{
		Taxonomy: taxonomy,
		Recipes:  dataStore,
		People:   dataStore,
		Metrics:  metrics,
	}
	if languageCache != nil {
		recorders = append(recorders, languageCache)
		deps.Languages = languageCache
	}
	recorders = append(recorders, dataStore)

	dispatcher := compat.NewDispatcher(cfg.Compat, metrics, recorders...)
	dispatcher.Start()
	deps.Dispatcher = dispatcher

	service := compat.NewService(cfg.Compat, deps)

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Service:    service,
		Store:      dataStore,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("name", cfg.App.Name),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
	}

	// 等待尚未寫回的語言偵測結果
	if err := dispatcher.Close(ctx); err != nil {
		common.LogWarn("Language dispatcher did not drain", zap.Error(err))
	}

	if languageCache != nil {
		if err := languageCache.Close(); err != nil {
			common.LogWarn("Failed to close language cache", zap.Error(err))
		}
	}

	common.LogInfo("Server exited")
}
