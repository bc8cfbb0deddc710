// Package serving 部署管理与推理编排
package serving

import (
	"context"
	"fmt"
	"time"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
	apperrors "cloudeasyml-api/pkg/errors"
	"cloudeasyml-api/pkg/logger"
	"cloudeasyml-api/pkg/metrics"
)

// CreateDeploymentRequest 创建部署参数
type CreateDeploymentRequest struct {
	ModelName    string
	ModelVersion string
	Config       map[string]any
}

// PredictRequest 推理参数
type PredictRequest struct {
	DeploymentID string
	Data         any
	Options      map[string]any
}

// Service 部署与推理服务
type Service struct {
	deployments repository.DeploymentRepository
	gate        *apikey.Gate
	registry    *registry.Registry
	tracker     *billing.UsageTracker
}

// NewService 创建服务
func NewService(
	deployments repository.DeploymentRepository,
	gate *apikey.Gate,
	reg *registry.Registry,
	tracker *billing.UsageTracker,
) *Service {
	return &Service{
		deployments: deployments,
		gate:        gate,
		registry:    reg,
		tracker:     tracker,
	}
}

// CreateDeployment 为用户创建部署，模型须已注册
func (s *Service) CreateDeployment(ctx context.Context, userID string, req CreateDeploymentRequest) (*entity.Deployment, error) {
	if req.ModelName == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("modelName is required")
	}
	if !s.registry.IsRegistered(req.ModelName) {
		return nil, apperrors.ErrModelNotFound.WithDetail(fmt.Sprintf("model %s is not registered", req.ModelName))
	}

	deployment := entity.NewDeployment(userID, req.ModelName, req.ModelVersion, req.Config)
	if err := s.deployments.Create(ctx, deployment); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create deployment")
	}

	logger.Info(ctx, "deployment created",
		"deployment_id", deployment.DeploymentID,
		"model", deployment.ModelName,
		"version", deployment.ModelVersion,
	)
	return deployment, nil
}

// ListDeployments 用户的全部部署
func (s *Service) ListDeployments(ctx context.Context, userID string) ([]*entity.Deployment, error) {
	deployments, err := s.deployments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list deployments")
	}
	return deployments, nil
}

// GetDeployment 获取部署，不存在返回 404，非本人返回 403
func (s *Service) GetDeployment(ctx context.Context, userID, deploymentID string) (*entity.Deployment, error) {
	deployment, err := s.deployments.GetByID(ctx, deploymentID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get deployment")
	}
	if deployment == nil {
		return nil, apperrors.ErrDeploymentNotFound
	}
	if !deployment.IsOwnedBy(userID) {
		return nil, apperrors.ErrForbidden.WithDetail("Access denied")
	}
	return deployment, nil
}

// DeactivateDeployment 停用部署，停用后不再接受推理
func (s *Service) DeactivateDeployment(ctx context.Context, userID, deploymentID string) (*entity.Deployment, error) {
	deployment, err := s.GetDeployment(ctx, userID, deploymentID)
	if err != nil {
		return nil, err
	}
	if err := s.deployments.UpdateStatus(ctx, deploymentID, entity.DeploymentStatusInactive); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to deactivate deployment")
	}
	deployment.Status = entity.DeploymentStatusInactive
	return deployment, nil
}

// Predict 对已认证的 Key 执行推理
// 顺序：部署存在 → 属主 → predict 权限 → 占用配额 → 加载模型 → 推理 → 记账
// 加载或推理失败时归还配额，用量只统计成功的请求
func (s *Service) Predict(ctx context.Context, key *entity.APIKey, req PredictRequest) (*registry.PredictionOutput, error) {
	deployment, err := s.GetDeployment(ctx, key.UserID, req.DeploymentID)
	if err != nil {
		return nil, err
	}
	if !deployment.IsActive() {
		return nil, apperrors.ErrDeploymentNotFound.WithDetail("deployment is inactive")
	}
	if !s.gate.CheckPermission(key, entity.PermissionPredict) {
		return nil, apperrors.ErrPermissionDenied.WithDetail("API key lacks predict permission")
	}
	if err := s.gate.Admit(ctx, key); err != nil {
		return nil, err
	}

	start := time.Now()
	model, err := s.registry.GetModel(ctx, deployment.ModelName, deployment.Config)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(deployment.ModelName, "error").Inc()
		s.releaseQuota(ctx, key)
		return nil, err
	}

	output, err := model.Predict(ctx, registry.PredictionInput{Data: req.Data, Options: req.Options})
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(deployment.ModelName, "error").Inc()
		s.releaseQuota(ctx, key)
		logger.Warn(ctx, "prediction failed", "deployment_id", deployment.DeploymentID, "model", deployment.ModelName, "error", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.ErrPredictionFailed.WithDetail(err.Error()).WithError(err)
	}
	elapsed := time.Since(start)
	processingTimeMs := float64(elapsed.Microseconds()) / 1000

	metrics.PredictionsTotal.WithLabelValues(deployment.ModelName, "success").Inc()
	metrics.PredictionDuration.WithLabelValues(deployment.ModelName).Observe(elapsed.Seconds())

	// 推理已完成，记账失败只记录日志
	if _, err := s.tracker.TrackRequest(ctx, key.UserID, deployment.DeploymentID, deployment.ModelName, processingTimeMs, map[string]any{
		"key_id": key.KeyID,
	}); err != nil {
		logger.Error(ctx, "failed to track usage", err, "deployment_id", deployment.DeploymentID)
	}

	return output, nil
}

func (s *Service) releaseQuota(ctx context.Context, key *entity.APIKey) {
	if err := s.gate.Release(ctx, key); err != nil {
		logger.Error(ctx, "failed to release quota", err, "key_id", key.KeyID)
	}
}

// Train 调用部署模型的训练
func (s *Service) Train(ctx context.Context, userID, deploymentID string, data registry.TrainingData, cfg map[string]any) (map[string]any, error) {
	deployment, err := s.GetDeployment(ctx, userID, deploymentID)
	if err != nil {
		return nil, err
	}

	model, err := s.registry.GetModel(ctx, deployment.ModelName, deployment.Config)
	if err != nil {
		return nil, err
	}

	results, err := model.Train(ctx, data, cfg)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.ErrTrainingFailed.WithDetail(err.Error()).WithError(err)
	}

	logger.Info(ctx, "deployment trained", "deployment_id", deployment.DeploymentID, "model", deployment.ModelName)
	return results, nil
}
