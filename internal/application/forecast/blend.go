package forecast

import (
	"fmt"
	"math"
)

// blendSteps 权重网格 0.0, 0.1, ..., 1.0
const blendSteps = 10

// BlendWeights 回归器名到权重的映射，两个权重非负且和为 1
type BlendWeights map[string]float64

// TrainingSet 训练集与可选验证集
type TrainingSet struct {
	X    [][]float64
	Y    []float64
	ValX [][]float64
	ValY []float64
}

// FitReport 训练结果
type FitReport struct {
	Weights       BlendWeights       `json:"blend_weights"`
	Optimized     bool               `json:"optimized"`
	ValidationRMS float64            `json:"validation_rmse,omitempty"`
	Samples       int                `json:"samples"`
	Base          map[string]Metrics `json:"base,omitempty"`
}

// Ensemble 两个回归器的加权混合
type Ensemble struct {
	names   [2]string
	models  [2]Regressor
	weights BlendWeights
}

// NewEnsemble 创建集成，初始权重各 0.5
func NewEnsemble(nameA string, a Regressor, nameB string, b Regressor) *Ensemble {
	return &Ensemble{
		names:   [2]string{nameA, nameB},
		models:  [2]Regressor{a, b},
		weights: BlendWeights{nameA: 0.5, nameB: 0.5},
	}
}

// Weights 当前权重副本
func (e *Ensemble) Weights() BlendWeights {
	out := make(BlendWeights, len(e.weights))
	for k, v := range e.weights {
		out[k] = v
	}
	return out
}

// Fit 训练两个回归器，提供验证集时优化混合权重
func (e *Ensemble) Fit(set TrainingSet) (*FitReport, error) {
	for i, m := range e.models {
		if err := m.Fit(set.X, set.Y); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", e.names[i], err)
		}
	}

	report := &FitReport{Samples: len(set.X)}
	if len(set.ValX) > 0 {
		if len(set.ValX) != len(set.ValY) {
			return nil, fmt.Errorf("valX has %d rows but valY has %d values", len(set.ValX), len(set.ValY))
		}
		if _, err := e.OptimizeBlendWeights(set.ValX, set.ValY); err != nil {
			return nil, err
		}
		metrics, err := e.EvaluateAll(set.ValX, set.ValY)
		if err != nil {
			return nil, err
		}
		report.Optimized = true
		report.ValidationRMS = metrics["ensemble"].RMSE
		delete(metrics, "ensemble")
		report.Base = metrics
	}
	report.Weights = e.Weights()
	return report, nil
}

// OptimizeBlendWeights 网格搜索使验证集 RMSE 最小的权重
// 严格小于才替换，平局时保留先出现的权重
func (e *Ensemble) OptimizeBlendWeights(X [][]float64, y []float64) (BlendWeights, error) {
	predA, predB, err := e.basePredictions(X)
	if err != nil {
		return nil, err
	}
	if len(y) != len(predA) {
		return nil, fmt.Errorf("validation set has %d rows but %d targets", len(predA), len(y))
	}

	bestRMSE := math.Inf(1)
	bestWeight := 0.5
	blended := make([]float64, len(y))
	for i := 0; i <= blendSteps; i++ {
		w := float64(i) / blendSteps
		mix(blended, predA, predB, w)
		if rmse := RMSE(blended, y); rmse < bestRMSE {
			bestRMSE = rmse
			bestWeight = w
		}
	}

	e.weights = BlendWeights{
		e.names[0]: bestWeight,
		e.names[1]: 1 - bestWeight,
	}
	return e.Weights(), nil
}

// Predict 按当前权重混合输出
func (e *Ensemble) Predict(X [][]float64) ([]float64, error) {
	predA, predB, err := e.basePredictions(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(predA))
	mix(out, predA, predB, e.weights[e.names[0]])
	return out, nil
}

// Evaluate 集成整体的评估指标
func (e *Ensemble) Evaluate(X [][]float64, y []float64) (Metrics, error) {
	pred, err := e.Predict(X)
	if err != nil {
		return Metrics{}, err
	}
	if len(pred) != len(y) {
		return Metrics{}, fmt.Errorf("got %d predictions for %d targets", len(pred), len(y))
	}
	return Evaluate(pred, y), nil
}

// EvaluateAll 集成与各基础回归器的评估指标
func (e *Ensemble) EvaluateAll(X [][]float64, y []float64) (map[string]Metrics, error) {
	predA, predB, err := e.basePredictions(X)
	if err != nil {
		return nil, err
	}
	if len(predA) != len(y) {
		return nil, fmt.Errorf("got %d predictions for %d targets", len(predA), len(y))
	}

	blended := make([]float64, len(y))
	mix(blended, predA, predB, e.weights[e.names[0]])
	return map[string]Metrics{
		"ensemble": Evaluate(blended, y),
		e.names[0]: Evaluate(predA, y),
		e.names[1]: Evaluate(predB, y),
	}, nil
}

func (e *Ensemble) basePredictions(X [][]float64) ([]float64, []float64, error) {
	predA, err := e.models[0].Predict(X)
	if err != nil {
		return nil, nil, err
	}
	predB, err := e.models[1].Predict(X)
	if err != nil {
		return nil, nil, err
	}
	return predA, predB, nil
}

// mix dst = w·a + (1−w)·b
func mix(dst, a, b []float64, w float64) {
	for i := range dst {
		dst[i] = w*a[i] + (1-w)*b[i]
	}
}
