// Package entity 定义领域实体
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeploymentStatus 部署状态
type DeploymentStatus string

const (
	DeploymentStatusActive   DeploymentStatus = "active"
	DeploymentStatusInactive DeploymentStatus = "inactive"
)

// DefaultModelVersion 未指定版本时使用
const DefaultModelVersion = "latest"

// Deployment 模型部署实体
type Deployment struct {
	DeploymentID string            `json:"deployment_id" gorm:"type:varchar(36);primaryKey"`
	UserID       string            `json:"user_id" gorm:"type:varchar(36);index;not null"`
	ModelName    string            `json:"model_name" gorm:"type:varchar(128);not null"`
	ModelVersion string            `json:"model_version" gorm:"type:varchar(64);not null"`
	Status       DeploymentStatus  `json:"status" gorm:"type:varchar(16);not null"`
	Config       datatypes.JSONMap `json:"config"`
	Endpoint     string            `json:"endpoint" gorm:"type:varchar(255)"`
	CreatedAt    time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TableName 表名
func (Deployment) TableName() string {
	return "deployments"
}

// NewDeployment 创建部署
func NewDeployment(userID, modelName, modelVersion string, config map[string]any) *Deployment {
	if modelVersion == "" {
		modelVersion = DefaultModelVersion
	}
	if config == nil {
		config = map[string]any{}
	}
	now := time.Now()
	return &Deployment{
		DeploymentID: uuid.NewString(),
		UserID:       userID,
		ModelName:    modelName,
		ModelVersion: modelVersion,
		Status:       DeploymentStatusActive,
		Config:       datatypes.JSONMap(config),
		Endpoint:     fmt.Sprintf("/predict/%s", modelName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsOwnedBy 是否属于指定用户
func (d *Deployment) IsOwnedBy(userID string) bool {
	return d.UserID == userID
}

// IsActive 是否处于可服务状态
func (d *Deployment) IsActive() bool {
	return d.Status == DeploymentStatusActive
}
