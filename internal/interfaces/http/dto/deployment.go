// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"cloudeasyml-api/internal/domain/entity"
)

// CreateDeploymentRequest 创建部署请求
type CreateDeploymentRequest struct {
	ModelName    string         `json:"model_name" binding:"required,max=128"`
	ModelVersion string         `json:"model_version" binding:"max=64"`
	Config       map[string]any `json:"config"`
}

// DeploymentResponse 部署响应
type DeploymentResponse struct {
	DeploymentID string         `json:"deployment_id"`
	UserID       string         `json:"user_id"`
	ModelName    string         `json:"model_name"`
	ModelVersion string         `json:"model_version"`
	Status       string         `json:"status"`
	Config       map[string]any `json:"config"`
	Endpoint     string         `json:"endpoint"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateDeploymentResponse 创建部署结果
type CreateDeploymentResponse struct {
	Deployment *DeploymentResponse `json:"deployment"`
	Message    string              `json:"message"`
}

// DeploymentListResponse 部署列表
type DeploymentListResponse struct {
	Deployments []*DeploymentResponse `json:"deployments"`
}

// TrainRequest 训练请求
type TrainRequest struct {
	X      [][]float64    `json:"x" binding:"required"`
	Y      []float64      `json:"y" binding:"required"`
	ValX   [][]float64    `json:"val_x"`
	ValY   []float64      `json:"val_y"`
	Config map[string]any `json:"config"`
}

// TrainResponse 训练结果
type TrainResponse struct {
	DeploymentID string         `json:"deployment_id"`
	Results      map[string]any `json:"results"`
}

// ToDeploymentResponse 实体转换为响应
func ToDeploymentResponse(d *entity.Deployment) *DeploymentResponse {
	if d == nil {
		return nil
	}
	return &DeploymentResponse{
		DeploymentID: d.DeploymentID,
		UserID:       d.UserID,
		ModelName:    d.ModelName,
		ModelVersion: d.ModelVersion,
		Status:       string(d.Status),
		Config:       d.Config,
		Endpoint:     d.Endpoint,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// ToDeploymentListResponse 实体列表转换为响应
func ToDeploymentListResponse(deployments []*entity.Deployment) *DeploymentListResponse {
	items := make([]*DeploymentResponse, len(deployments))
	for i, d := range deployments {
		items[i] = ToDeploymentResponse(d)
	}
	return &DeploymentListResponse{Deployments: items}
}
