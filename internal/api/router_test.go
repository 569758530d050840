package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-compat/internal/core/compat"
	"recipe-compat/internal/core/store"
	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Debug: true, Version: "test", Name: "recipe-compat"},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		Store:   config.StoreConfig{Driver: config.DriverMemory},
		Compat:  config.CompatConfig{Workers: 2, DispatchWorkers: 1, DispatchQueueSize: 16, DispatchTimeout: time.Second},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func testStore() *store.MemoryStore {
	mem := store.NewMemoryStore()
	mem.PutRecipe(common.Recipe{
		ID:    "shrimp-pasta",
		Title: "Garlic Shrimp Pasta",
		Components: []common.RecipeComponent{{
			Name:        "Main",
			Ingredients: []common.Ingredient{{Name: "garlic"}, {Name: "jumbo shrimp"}},
		}},
	})
	mem.PutRecipe(common.Recipe{
		ID:    "lemon-rice",
		Title: "Lemon Rice",
		Components: []common.RecipeComponent{{
			Name:        "Main",
			Ingredients: []common.Ingredient{{Name: "steamed rice"}, {Name: "lemon juice"}},
		}},
	})
	mem.PutCircle(common.Circle{
		ID:   "family",
		Name: "Family",
		Members: []common.Person{
			{ID: "alice", Name: "Alice", Allergens: []string{"shellfish"}},
			{ID: "bob", Name: "Bob", Allergens: []string{"nuts"}},
		},
	})
	return mem
}

type testServer struct {
	router  *gin.Engine
	metrics *compat.Metrics
}

func newTestServer(t *testing.T, cfg *config.Config, pinger interface {
	Ping(ctx context.Context) error
}) *testServer {
	t.Helper()

	mem := testStore()
	metrics := compat.NewMetrics()
	svc := compat.NewService(cfg.Compat, compat.Dependencies{
		Recipes: mem,
		People:  mem,
		Metrics: metrics,
	})
	if pinger == nil {
		pinger = mem
	}

	router, err := SetupRouter(cfg, Dependencies{
		Service: svc,
		Store:   pinger,
		Metrics: metrics,
	})
	require.NoError(t, err)
	return &testServer{router: router, metrics: metrics}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestSetupRouterRequiresService(t *testing.T) {
	_, err := SetupRouter(testConfig(), Dependencies{})
	assert.Error(t, err)
}

func TestPersonalEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodPost, "/api/v1/compat/personal", gin.H{"recipe_id": "shrimp-pasta", "person_id": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var report compat.PersonalCompatibilityReport
	decode(t, w, &report)
	assert.False(t, report.IsCompatible)
	assert.Equal(t, []string{"jumbo shrimp"}, report.ConflictingIngredients)
	assert.Equal(t, "Contains allergens: shellfish", report.Summary)
}

func TestCircleEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodPost, "/api/v1/compat/circle", gin.H{"recipe_id": "shrimp-pasta", "circle_id": "family"})
	require.Equal(t, http.StatusOK, w.Code)

	var report compat.CompatibilityReport
	decode(t, w, &report)
	assert.False(t, report.IsCompatible)
	require.Len(t, report.MemberConflicts, 1)
	assert.Equal(t, "alice", report.MemberConflicts[0].MemberID)
	require.Len(t, report.SafeForMembers, 1)
	assert.Equal(t, "bob", report.SafeForMembers[0].MemberID)
	assert.Equal(t, "Conflicts for 1 of 2 members (Alice). Contains allergens: shellfish", report.Summary)
}

func TestBatchAndFilterEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	body := gin.H{"recipe_ids": []string{"shrimp-pasta", "missing", "lemon-rice"}, "circle_id": "family"}

	w := s.do(http.MethodPost, "/api/v1/compat/batch", body)
	require.Equal(t, http.StatusOK, w.Code)
	var batch struct {
		Results map[string]bool `json:"results"`
	}
	decode(t, w, &batch)
	assert.Equal(t, map[string]bool{"shrimp-pasta": false, "lemon-rice": true}, batch.Results)

	w = s.do(http.MethodPost, "/api/v1/compat/filter", body)
	require.Equal(t, http.StatusOK, w.Code)
	var filtered struct {
		RecipeIDs []string `json:"recipe_ids"`
	}
	decode(t, w, &filtered)
	assert.Equal(t, []string{"lemon-rice"}, filtered.RecipeIDs)
}

func TestProfileAndClassifyEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodGet, "/api/v1/recipes/shrimp-pasta/dietary-profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Allergens  []string `json:"allergens"`
		Violations []string `json:"restriction_violations"`
	}
	decode(t, w, &profile)
	assert.Equal(t, []string{"shellfish"}, profile.Allergens)
	assert.Contains(t, profile.Violations, "vegan")

	w = s.do(http.MethodPost, "/api/v1/dietary/classify", gin.H{"name": "Parmesan"})
	require.Equal(t, http.StatusOK, w.Code)
	var classification struct {
		Allergens    []string `json:"allergens"`
		Restrictions []string `json:"restrictions"`
	}
	decode(t, w, &classification)
	assert.Equal(t, []string{"dairy"}, classification.Allergens)
	assert.Equal(t, []string{"dairy-free", "vegan"}, classification.Restrictions)
}

func TestEndpointErrors(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing field", http.MethodPost, "/api/v1/compat/personal", gin.H{"recipe_id": "shrimp-pasta"}, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"empty batch", http.MethodPost, "/api/v1/compat/batch", gin.H{"recipe_ids": []string{}, "circle_id": "family"}, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"blank recipe id in batch", http.MethodPost, "/api/v1/compat/filter", gin.H{"recipe_ids": []string{""}, "circle_id": "family"}, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"unknown recipe", http.MethodPost, "/api/v1/compat/circle", gin.H{"recipe_id": "nope", "circle_id": "family"}, http.StatusNotFound, common.ErrCodeRecipeNotFound},
		{"unknown circle", http.MethodPost, "/api/v1/compat/batch", gin.H{"recipe_ids": []string{"lemon-rice"}, "circle_id": "nope"}, http.StatusNotFound, common.ErrCodeCircleNotFound},
		{"unknown person", http.MethodPost, "/api/v1/compat/personal", gin.H{"recipe_id": "lemon-rice", "person_id": "nope"}, http.StatusNotFound, common.ErrCodePersonNotFound},
		{"unknown profile", http.MethodGet, "/api/v1/recipes/nope/dietary-profile", nil, http.StatusNotFound, common.ErrCodeRecipeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)

			var resp common.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dietary/classify", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/live", nil).Code)

	down := newTestServer(t, testConfig(), failingPinger{})
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/ready", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	s.do(http.MethodPost, "/api/v1/compat/personal", gin.H{"recipe_id": "lemon-rice", "person_id": "bob"})

	w := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "compat_checks_total")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	s := newTestServer(t, cfg, nil)

	w := s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeNotFound)
}

func TestRateLimitApplied(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Minute}
	s := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/live", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/live", nil).Code)
}

func TestDeduplicationApplied(t *testing.T) {
	cfg := testConfig()
	cfg.Server.DedupWindow = time.Minute
	s := newTestServer(t, cfg, nil)
	body := gin.H{"name": "butter"}

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/dietary/classify", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/v1/dietary/classify", body).Code)
}
