package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"recipe-compat/internal/core/compat"
	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// readinessTimeout 就緒檢查呼叫資料來源的逾時
const readinessTimeout = 2 * time.Second

// Pinger 可檢查連線狀態的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Dispatch  *compat.DispatchStatus `json:"dispatch,omitempty"`
}

// Handler 健康檢查處理程序
type Handler struct {
	config     *config.Config
	store      Pinger
	dispatcher *compat.Dispatcher
}

// NewHandler 創建健康檢查處理程序；store 與 dispatcher 可為 nil
func NewHandler(cfg *config.Config, store Pinger, dispatcher *compat.Dispatcher) *Handler {
	return &Handler{
		config:     cfg,
		store:      store,
		dispatcher: dispatcher,
	}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if h.dispatcher != nil {
		status := h.dispatcher.Status()
		response.Dispatch = &status
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器：資料來源無法連線時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			common.LogWarn("Readiness check failed",
				zap.String("store_driver", h.config.Store.Driver),
				zap.Error(err),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"store":  h.config.Store.Driver,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"store":  h.config.Store.Driver,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
