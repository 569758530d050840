package cache

import (
	"context"
	"errors"
	"fmt"

	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Service Redis 語言快取，供多個實例共用偵測結果
type Service struct {
	client *redis.Client
	config config.CacheConfig
}

// NewService 創建 Redis 快取服務並測試連接
func NewService(ctx context.Context, cfg config.CacheConfig) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))

	return newService(client, cfg), nil
}

func newService(client *redis.Client, cfg config.CacheConfig) *Service {
	return &Service{
		client: client,
		config: cfg,
	}
}

// GetLanguage 取得食譜已偵測的語言，連線錯誤視為未命中
func (s *Service) GetLanguage(ctx context.Context, recipeID string) (string, bool) {
	key := languageKey(recipeID)

	lang, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			common.LogWarn("Failed to read language cache", zap.String("key", key), zap.Error(err))
		}
		common.LogCacheMiss("redis", key)
		return "", false
	}

	common.LogCacheHit("redis", key)
	return lang, true
}

// RecordLanguage 記錄食譜偵測到的語言
func (s *Service) RecordLanguage(ctx context.Context, recipeID, language string) error {
	if err := s.client.Set(ctx, languageKey(recipeID), language, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查 Redis 連線
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉 Redis 連線
func (s *Service) Close() error {
	return s.client.Close()
}
