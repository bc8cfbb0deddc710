// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/serving"
	"cloudeasyml-api/internal/interfaces/http/dto"
	"cloudeasyml-api/internal/interfaces/http/middleware"
	apperrors "cloudeasyml-api/pkg/errors"
)

// PredictionHandler 推理处理器
type PredictionHandler struct {
	service *serving.Service
}

// NewPredictionHandler 创建推理处理器
func NewPredictionHandler(service *serving.Service) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// Predict 调用部署模型推理
// @Summary 推理
// @Description 仅支持 API Key 调用，成功后记录用量
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body dto.PredictRequest true "推理输入"
// @Success 200 {object} dto.Response[registry.PredictionOutput]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/predict [post]
func (h *PredictionHandler) Predict(c *gin.Context) {
	key, ok := middleware.GetAPIKey(c)
	if !ok {
		HandleError(c, apperrors.ErrInvalidAPIKey)
		return
	}

	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	output, err := h.service.Predict(c.Request.Context(), key, serving.PredictRequest{
		DeploymentID: req.DeploymentID,
		Data:         req.Data,
		Options:      req.Options,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	dto.Success(c, output)
}
