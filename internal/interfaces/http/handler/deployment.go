// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/application/serving"
	"cloudeasyml-api/internal/interfaces/http/dto"
	"cloudeasyml-api/internal/interfaces/http/middleware"
)

// DeploymentHandler 部署处理器
type DeploymentHandler struct {
	service *serving.Service
}

// NewDeploymentHandler 创建部署处理器
func NewDeploymentHandler(service *serving.Service) *DeploymentHandler {
	return &DeploymentHandler{service: service}
}

// CreateDeployment 创建部署
// @Summary 创建部署
// @Tags Deployments
// @Accept json
// @Produce json
// @Param body body dto.CreateDeploymentRequest true "部署参数"
// @Success 201 {object} dto.Response[dto.CreateDeploymentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/deployments [post]
func (h *DeploymentHandler) CreateDeployment(c *gin.Context) {
	var req dto.CreateDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	deployment, err := h.service.CreateDeployment(c.Request.Context(), middleware.GetUserID(c), serving.CreateDeploymentRequest{
		ModelName:    req.ModelName,
		ModelVersion: req.ModelVersion,
		Config:       req.Config,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	dto.Created(c, &dto.CreateDeploymentResponse{
		Deployment: dto.ToDeploymentResponse(deployment),
		Message:    "Deployment created successfully",
	})
}

// ListDeployments 列出当前用户的部署
// @Summary 列出部署
// @Tags Deployments
// @Produce json
// @Success 200 {object} dto.Response[dto.DeploymentListResponse]
// @Router /v1/deployments [get]
func (h *DeploymentHandler) ListDeployments(c *gin.Context) {
	deployments, err := h.service.ListDeployments(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	dto.Success(c, dto.ToDeploymentListResponse(deployments))
}

// GetDeployment 获取部署
// @Summary 获取部署
// @Tags Deployments
// @Produce json
// @Param id path string true "部署 ID"
// @Success 200 {object} dto.Response[dto.DeploymentResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/deployments/{id} [get]
func (h *DeploymentHandler) GetDeployment(c *gin.Context) {
	deployment, err := h.service.GetDeployment(c.Request.Context(), middleware.GetUserID(c), dto.BindDeploymentID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	dto.Success(c, dto.ToDeploymentResponse(deployment))
}

// DeactivateDeployment 停用部署
// @Summary 停用部署
// @Tags Deployments
// @Produce json
// @Param id path string true "部署 ID"
// @Success 200 {object} dto.Response[dto.DeploymentResponse]
// @Router /v1/deployments/{id} [delete]
func (h *DeploymentHandler) DeactivateDeployment(c *gin.Context) {
	deployment, err := h.service.DeactivateDeployment(c.Request.Context(), middleware.GetUserID(c), dto.BindDeploymentID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	dto.Success(c, dto.ToDeploymentResponse(deployment))
}

// TrainDeployment 训练部署的模型
// @Summary 训练模型
// @Tags Deployments
// @Accept json
// @Produce json
// @Param id path string true "部署 ID"
// @Param body body dto.TrainRequest true "训练数据"
// @Success 200 {object} dto.Response[dto.TrainResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/deployments/{id}/train [post]
func (h *DeploymentHandler) TrainDeployment(c *gin.Context) {
	var req dto.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	deploymentID := dto.BindDeploymentID(c)
	results, err := h.service.Train(c.Request.Context(), middleware.GetUserID(c), deploymentID, registry.TrainingData{
		X:    req.X,
		Y:    req.Y,
		ValX: req.ValX,
		ValY: req.ValY,
	}, req.Config)
	if err != nil {
		HandleError(c, err)
		return
	}

	dto.Success(c, &dto.TrainResponse{
		DeploymentID: deploymentID,
		Results:      results,
	})
}
