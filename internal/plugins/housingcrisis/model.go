// Package housingcrisis 住房危机预测插件
// 线性回归与提升树按验证集优化的权重混合，可选附带危机评估
package housingcrisis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloudeasyml-api/internal/application/forecast"
	"cloudeasyml-api/internal/application/registry"
	apperrors "cloudeasyml-api/pkg/errors"
)

// 基础回归器名称
const (
	RegressorLinear  = "linear"
	RegressorBoosted = "boosted"
)

// 推理选项
const (
	OptionCrisisDetection = "crisis_detection"
	OptionHistorical      = "historical"
)

var _ registry.Model = (*Model)(nil)

// Model 住房危机预测模型
type Model struct {
	settings Settings
	detector *forecast.CrisisDetector

	mu       sync.RWMutex
	ensemble *forecast.Ensemble
	loaded   bool
	trained  bool
}

// NewFactory 返回使用指定检测器的工厂
func NewFactory(detector *forecast.CrisisDetector) registry.Factory {
	if detector == nil {
		detector = forecast.NewCrisisDetector(nil)
	}
	return func(cfg map[string]any) registry.Model {
		return &Model{
			settings: parseSettings(cfg),
			detector: detector,
		}
	}
}

// New 使用默认检测器创建模型
func New(cfg map[string]any) registry.Model {
	return NewFactory(nil)(cfg)
}

// Metadata 模型元数据
func (m *Model) Metadata() registry.Metadata {
	meta := registry.NewMetadata(
		"housingCrisis",
		"1.0.0",
		"Multi-model ensemble for housing market crisis prediction using linear and boosted regressors",
		"CloudEasyML",
	)
	meta.Tags = []string{"housing", "forecasting", "ensemble", "timeseries"}
	meta.Requirements = []string{"gonum"}
	meta.MinMemoryGB = 8
	meta.EstimatedCostPerRequest = 0.002
	return meta
}

// Load 按配置构造两个回归器
func (m *Model) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensemble = forecast.NewEnsemble(
		RegressorLinear, forecast.NewLinearRegressor(m.settings.Ridge),
		RegressorBoosted, forecast.NewBoostedStumps(m.settings.Estimators, m.settings.LearningRate),
	)
	m.loaded = true
	m.trained = false
	return nil
}

// Predict 混合预测，crisisDetection 为 true 时附带危机评估
func (m *Model) Predict(ctx context.Context, input registry.PredictionInput) (*registry.PredictionOutput, error) {
	start := time.Now()

	m.mu.RLock()
	loaded, ensemble := m.loaded, m.ensemble
	m.mu.RUnlock()
	if !loaded {
		return nil, apperrors.ErrPredictionFailed.WithDetail("model not loaded")
	}

	X, err := registry.ToMatrix(input.Data)
	if err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail(err.Error())
	}
	predictions, err := ensemble.Predict(X)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"model_versions": map[string]string{
			RegressorLinear:  "trained",
			RegressorBoosted: "trained",
		},
		"blend_weights": ensemble.Weights(),
	}

	if input.Option(OptionCrisisDetection) {
		crisis, err := m.analyzeCrisis(predictions, input.Options[OptionHistorical])
		if err != nil {
			return nil, err
		}
		for k, v := range crisis {
			metadata[k] = v
		}
	}

	return &registry.PredictionOutput{
		Predictions:      predictions,
		Metadata:         metadata,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// analyzeCrisis 有历史序列时使用完整检测器，否则使用趋势判定
func (m *Model) analyzeCrisis(predictions []float64, historicalRaw any) (map[string]any, error) {
	historical, err := registry.ToVector(historicalRaw)
	if err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("options.historical: %v", err))
	}

	if len(historical) == 0 {
		trend := forecast.AnalyzeTrend(predictions)
		return map[string]any{
			"crisis_level":    trend.Level,
			"crisis_score":    trend.Score,
			"recommendations": trend.Recommendations,
			"metrics":         trend.Metrics,
		}, nil
	}

	analysis, err := m.detector.DetectCrisisLevel(predictions, historical)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"crisis_level":    analysis.Level,
		"crisis_score":    analysis.Score,
		"recommendations": m.detector.GenerateRecommendations(analysis),
		"crisis_analysis": analysis,
	}, nil
}

// Train 训练两个回归器，提供验证集时优化混合权重
func (m *Model) Train(ctx context.Context, data registry.TrainingData, cfg map[string]any) (map[string]any, error) {
	if err := data.Validate(); err != nil {
		return nil, apperrors.ErrTrainingFailed.WithDetail(err.Error())
	}

	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()
	if !loaded {
		if err := m.Load(ctx); err != nil {
			return nil, err
		}
	}

	// 在新实例上训练，完成后整体替换
	m.mu.RLock()
	settings := m.settings
	m.mu.RUnlock()
	if len(cfg) > 0 {
		settings = parseSettings(mergeSections(m.settingsMap(), cfg))
	}
	linear := forecast.NewLinearRegressor(settings.Ridge)
	boosted := forecast.NewBoostedStumps(settings.Estimators, settings.LearningRate)
	ensemble := forecast.NewEnsemble(RegressorLinear, linear, RegressorBoosted, boosted)

	report, err := ensemble.Fit(forecast.TrainingSet{
		X:    data.X,
		Y:    data.Y,
		ValX: data.ValX,
		ValY: data.ValY,
	})
	if err != nil {
		return nil, apperrors.ErrTrainingFailed.WithDetail(err.Error()).WithError(err)
	}

	m.mu.Lock()
	m.ensemble = ensemble
	m.settings = settings
	m.trained = true
	m.mu.Unlock()

	results := map[string]any{
		"device":  "CPU",
		"samples": report.Samples,
		RegressorLinear: map[string]any{
			"ridge": settings.Ridge,
		},
		RegressorBoosted: map[string]any{
			"best_iteration": boosted.Rounds(),
		},
	}
	if report.Optimized {
		results["blend_weights"] = report.Weights
		results["validation"] = map[string]any{
			"rmse": report.ValidationRMS,
			"base": report.Base,
		}
	}
	return results, nil
}

func (m *Model) settingsMap() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]any{
		RegressorLinear: map[string]any{"ridge": m.settings.Ridge},
		RegressorBoosted: map[string]any{
			"estimators":    m.settings.Estimators,
			"learning_rate": m.settings.LearningRate,
		},
	}
}

// mergeSections 按配置段合并，训练参数只覆盖给出的字段
func mergeSections(base, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for name, v := range base {
		out[name] = v
	}
	for name, v := range overrides {
		sub, ok := v.(map[string]any)
		prev, hasPrev := out[name].(map[string]any)
		if !ok || !hasPrev {
			out[name] = v
			continue
		}
		merged := make(map[string]any, len(prev)+len(sub))
		for k, x := range prev {
			merged[k] = x
		}
		for k, x := range sub {
			merged[k] = x
		}
		out[name] = merged
	}
	return out
}

// Unload 释放回归器
func (m *Model) Unload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensemble = nil
	m.loaded = false
	m.trained = false
	return nil
}

// HealthCheck 健康状态
func (m *Model) HealthCheck(ctx context.Context) map[string]any {
	m.mu.RLock()
	loaded, trained, ensemble := m.loaded, m.trained, m.ensemble
	m.mu.RUnlock()

	status := registry.HealthStatus(m, loaded)
	status["trained"] = trained
	if ensemble != nil {
		status["blend_weights"] = ensemble.Weights()
	}
	return status
}
