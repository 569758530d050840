// Package store 提供食譜、圈子與成員的唯讀快照來源
package store

import (
	"context"
	"fmt"

	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"
)

// Store 快照來源介面
type Store interface {
	GetRecipe(ctx context.Context, id string) (*common.Recipe, error)
	GetCircle(ctx context.Context, id string) (*common.Circle, error)
	GetPerson(ctx context.Context, id string) (*common.Person, error)
	RecordLanguage(ctx context.Context, recipeID, language string) error
	Ping(ctx context.Context) error
}

// New 依設定的驅動建立資料來源
func New(cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		s, err := LoadMemoryStore(cfg.Store.FixturesPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverUpstream:
		return NewUpstreamStore(cfg.Upstream), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
