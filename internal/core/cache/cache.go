// Package cache 保存食譜語言偵測結果，避免重複執行語言判斷
package cache

import (
	"context"
	"fmt"

	"recipe-compat/internal/infrastructure/config"
)

const keyPrefix = "recipe-compat:language:"

// LanguageStore 語言快取介面
type LanguageStore interface {
	GetLanguage(ctx context.Context, recipeID string) (string, bool)
	RecordLanguage(ctx context.Context, recipeID, language string) error
	Close() error
}

// New 依設定的驅動建立語言快取，停用時回傳 nil
func New(ctx context.Context, cfg config.CacheConfig) (LanguageStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Driver {
	case config.DriverMemory:
		return NewManager(cfg), nil
	case config.DriverRedis:
		svc, err := NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

func languageKey(recipeID string) string {
	return keyPrefix + recipeID
}
