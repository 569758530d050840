package compat

import (
	"context"
	"errors"
	"net/http"

	compatService "recipe-compat/internal/core/compat"
	"recipe-compat/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PersonalRequest 個人相容性檢查請求
type PersonalRequest struct {
	RecipeID string `json:"recipe_id" binding:"required"`
	PersonID string `json:"person_id" binding:"required"`
}

// CircleRequest 圈子相容性檢查請求
type CircleRequest struct {
	RecipeID string `json:"recipe_id" binding:"required"`
	CircleID string `json:"circle_id" binding:"required"`
}

// BatchRequest 批次檢查與過濾請求
type BatchRequest struct {
	RecipeIDs []string `json:"recipe_ids" binding:"required,min=1,max=500,dive,required"`
	CircleID  string   `json:"circle_id" binding:"required"`
}

// BatchResponse 批次檢查結果，key 為食譜 ID
type BatchResponse struct {
	Results map[string]bool `json:"results"`
}

// FilterResponse 相容的食譜 ID，保留請求順序
type FilterResponse struct {
	RecipeIDs []string `json:"recipe_ids"`
}

// ClassifyRequest 單一食材分類請求
type ClassifyRequest struct {
	Name string `json:"name" binding:"required"`
}

// Handler 相容性檢查處理程序
type Handler struct {
	service *compatService.Service
	debug   bool
}

// NewHandler 創建新的相容性檢查處理程序
func NewHandler(service *compatService.Service, debug bool) *Handler {
	return &Handler{
		service: service,
		debug:   debug,
	}
}

// HandlePersonal 檢查食譜是否符合單一使用者
func (h *Handler) HandlePersonal(c *gin.Context) {
	requestID := common.RequestID(c)

	var req PersonalRequest
	if !h.bind(c, requestID, &req) {
		return
	}

	report, err := h.service.CheckPersonalByID(c.Request.Context(), req.RecipeID, req.PersonID)
	if err != nil {
		h.fail(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleCircle 檢查食譜是否符合圈子所有成員
func (h *Handler) HandleCircle(c *gin.Context) {
	requestID := common.RequestID(c)

	var req CircleRequest
	if !h.bind(c, requestID, &req) {
		return
	}

	report, err := h.service.CheckCircleByID(c.Request.Context(), req.RecipeID, req.CircleID)
	if err != nil {
		h.fail(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleBatch 批次檢查多道食譜
func (h *Handler) HandleBatch(c *gin.Context) {
	requestID := common.RequestID(c)

	var req BatchRequest
	if !h.bind(c, requestID, &req) {
		return
	}

	results, err := h.service.BatchCheckByID(c.Request.Context(), req.RecipeIDs, req.CircleID)
	if err != nil {
		h.fail(c, requestID, err)
		return
	}

	common.LogInfo("批次檢查完成",
		zap.String("request_id", requestID),
		zap.Int("requested", len(req.RecipeIDs)),
		zap.Int("checked", len(results)),
	)

	c.JSON(http.StatusOK, BatchResponse{Results: results})
}

// HandleFilter 回傳圈子所有成員皆可食用的食譜
func (h *Handler) HandleFilter(c *gin.Context) {
	requestID := common.RequestID(c)

	var req BatchRequest
	if !h.bind(c, requestID, &req) {
		return
	}

	ids, err := h.service.FilterCompatibleByID(c.Request.Context(), req.RecipeIDs, req.CircleID)
	if err != nil {
		h.fail(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, FilterResponse{RecipeIDs: ids})
}

// HandleProfile 回傳食譜含有的所有過敏原與違反的飲食限制
func (h *Handler) HandleProfile(c *gin.Context) {
	requestID := common.RequestID(c)

	profile, err := h.service.ProfileByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// HandleClassify 分類單一食材名稱
func (h *Handler) HandleClassify(c *gin.Context) {
	requestID := common.RequestID(c)

	var req ClassifyRequest
	if !h.bind(c, requestID, &req) {
		return
	}

	c.JSON(http.StatusOK, h.service.Classify(req.Name))
}

// bind 解析並驗證請求體，失敗時寫入 400
func (h *Handler) bind(c *gin.Context, requestID string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.LogWarn("請求格式無效",
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		common.WriteError(c, common.ErrInvalidRequest.WithErr(err), h.debug)
		return false
	}
	return true
}

// fail 將服務錯誤轉為 HTTP 響應
func (h *Handler) fail(c *gin.Context, requestID string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = common.ErrGatewayTimeout.WithErr(err)
	}

	ce := common.AsCustomError(err)
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.String("code", ce.Code),
		zap.Error(err),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("相容性檢查失敗", fields...)
	} else {
		common.LogWarn("相容性檢查失敗", fields...)
	}

	common.WriteError(c, err, h.debug)
}
