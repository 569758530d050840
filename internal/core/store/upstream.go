package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// UpstreamStore 透過上游 REST 服務讀取食譜與圈子快照
type UpstreamStore struct {
	config config.UpstreamConfig
	client *resty.Client
}

// languagePatch 回寫偵測語言的請求體
type languagePatch struct {
	LanguageDetected string `json:"language_detected"`
}

// NewUpstreamStore 創建上游資料來源
func NewUpstreamStore(cfg config.UpstreamConfig) *UpstreamStore {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "recipe-compat")

	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &UpstreamStore{
		config: cfg,
		client: client,
	}
}

// GetRecipe 取得食譜快照
func (s *UpstreamStore) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	var recipe common.Recipe
	if err := s.get(ctx, "/recipes/{id}", id, &recipe, common.ErrRecipeNotFound); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// GetCircle 取得圈子快照
func (s *UpstreamStore) GetCircle(ctx context.Context, id string) (*common.Circle, error) {
	var circle common.Circle
	if err := s.get(ctx, "/circles/{id}", id, &circle, common.ErrCircleNotFound); err != nil {
		return nil, err
	}
	return &circle, nil
}

// GetPerson 取得成員快照
func (s *UpstreamStore) GetPerson(ctx context.Context, id string) (*common.Person, error) {
	var person common.Person
	if err := s.get(ctx, "/persons/{id}", id, &person, common.ErrPersonNotFound); err != nil {
		return nil, err
	}
	return &person, nil
}

// RecordLanguage 將偵測到的語言回寫到上游食譜
func (s *UpstreamStore) RecordLanguage(ctx context.Context, recipeID, language string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", recipeID).
		SetBody(languagePatch{LanguageDetected: language}).
		Patch("/recipes/{id}/language")
	if err != nil {
		return common.ErrUpstreamUnavailable.WithErr(fmt.Errorf("failed to persist language: %w", err))
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return common.ErrRecipeNotFound.WithErr(fmt.Errorf("recipe %q", recipeID))
	case resp.IsError():
		return common.ErrUpstreamUnavailable.WithErr(fmt.Errorf("upstream returned %d: %s", resp.StatusCode(), resp.String()))
	}
	return nil
}

// Ping 檢查上游服務是否可連線
func (s *UpstreamStore) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return common.ErrUpstreamUnavailable.WithErr(err)
	}
	if resp.IsError() {
		return common.ErrUpstreamUnavailable.WithErr(fmt.Errorf("upstream returned %d", resp.StatusCode()))
	}
	return nil
}

// get 讀取單一資源，404 轉為對應的 not found 錯誤
func (s *UpstreamStore) get(ctx context.Context, path, id string, out interface{}, notFound *common.CustomError) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get(path)
	if err != nil {
		common.LogWarn("Upstream request failed", zap.String("path", path), zap.String("id", id), zap.Error(err))
		return common.ErrUpstreamUnavailable.WithErr(err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return notFound.WithErr(fmt.Errorf("%q", id))
	case resp.IsError():
		return common.ErrUpstreamUnavailable.WithErr(fmt.Errorf("upstream returned %d: %s", resp.StatusCode(), resp.String()))
	}

	if err := common.ParseJSONBytes(resp.Body(), out); err != nil {
		return common.ErrUpstreamUnavailable.WithErr(fmt.Errorf("failed to parse upstream response: %w", err))
	}
	return nil
}
