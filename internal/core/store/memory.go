package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"recipe-compat/internal/pkg/common"

	"go.uber.org/zap"
)

// Fixtures 記憶體資料來源的 JSON 檔案格式
type Fixtures struct {
	Recipes []common.Recipe `json:"recipes"`
	Circles []common.Circle `json:"circles"`
	Persons []common.Person `json:"persons"`
}

// MemoryStore 以記憶體保存食譜、圈子與成員快照
type MemoryStore struct {
	mu      sync.RWMutex
	recipes map[string]common.Recipe
	circles map[string]common.Circle
	persons map[string]common.Person
}

// NewMemoryStore 創建空的記憶體資料來源
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipes: make(map[string]common.Recipe),
		circles: make(map[string]common.Circle),
		persons: make(map[string]common.Person),
	}
}

// LoadMemoryStore 從 JSON 檔案載入資料
func LoadMemoryStore(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	s, err := ParseFixtures(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures %s: %w", path, err)
	}

	common.LogInfo("記憶體資料來源已載入",
		zap.String("path", path),
		zap.Int("recipes", len(s.recipes)),
		zap.Int("circles", len(s.circles)),
		zap.Int("persons", len(s.persons)),
	)
	return s, nil
}

// ParseFixtures 解析 JSON 資料並建立資料來源
func ParseFixtures(data []byte) (*MemoryStore, error) {
	var fx Fixtures
	if err := common.ParseJSONBytes(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	s := NewMemoryStore()
	for _, r := range fx.Recipes {
		if strings.TrimSpace(r.ID) == "" {
			return nil, common.NewValidationError(fmt.Sprintf("recipe %q has no id", r.Title))
		}
		s.PutRecipe(r)
	}
	for _, p := range fx.Persons {
		if strings.TrimSpace(p.ID) == "" {
			return nil, common.NewValidationError(fmt.Sprintf("person %q has no id", p.Name))
		}
		s.PutPerson(p)
	}
	for _, c := range fx.Circles {
		if strings.TrimSpace(c.ID) == "" {
			return nil, common.NewValidationError(fmt.Sprintf("circle %q has no id", c.Name))
		}
		s.PutCircle(c)
	}
	return s, nil
}

// PutRecipe 新增或取代食譜
func (s *MemoryStore) PutRecipe(r common.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[r.ID] = r
}

// PutPerson 新增或取代成員
func (s *MemoryStore) PutPerson(p common.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[p.ID] = p
}

// PutCircle 新增或取代圈子；沒有 ID 的成員會分配新的 ID，所有成員也可單獨查詢
func (s *MemoryStore) PutCircle(c common.Circle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]common.Person, len(c.Members))
	for i, m := range c.Members {
		if strings.TrimSpace(m.ID) == "" {
			m.ID = common.GenerateUUID()
		}
		if _, exists := s.persons[m.ID]; !exists {
			s.persons[m.ID] = m
		}
		members[i] = m
	}
	c.Members = members
	s.circles[c.ID] = c
}

// GetRecipe 取得食譜快照
func (s *MemoryStore) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, common.ErrRecipeNotFound.WithErr(fmt.Errorf("recipe %q", id))
	}
	return &r, nil
}

// GetCircle 取得圈子快照
func (s *MemoryStore) GetCircle(ctx context.Context, id string) (*common.Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.circles[id]
	if !ok {
		return nil, common.ErrCircleNotFound.WithErr(fmt.Errorf("circle %q", id))
	}
	return &c, nil
}

// GetPerson 取得成員快照
func (s *MemoryStore) GetPerson(ctx context.Context, id string) (*common.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.persons[id]
	if !ok {
		return nil, common.ErrPersonNotFound.WithErr(fmt.Errorf("person %q", id))
	}
	return &p, nil
}

// RecordLanguage 將偵測到的語言寫回食譜
func (s *MemoryStore) RecordLanguage(ctx context.Context, recipeID, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[recipeID]
	if !ok {
		return common.ErrRecipeNotFound.WithErr(fmt.Errorf("recipe %q", recipeID))
	}
	r.LanguageDetected = language
	s.recipes[recipeID] = r
	return nil
}

// Ping 記憶體資料來源永遠可用
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
