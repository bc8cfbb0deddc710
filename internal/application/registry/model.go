// Package registry 管理可插拔模型：发现、注册、加载与缓存
package registry

import (
	"context"
	"fmt"
	"time"
)

// DefaultMinMemoryGB 未声明时的最低内存
const DefaultMinMemoryGB = 4

// Metadata 模型静态元数据
type Metadata struct {
	Name                    string    `json:"name"`
	Version                 string    `json:"version"`
	Description             string    `json:"description"`
	Author                  string    `json:"author"`
	CreatedAt               time.Time `json:"created_at"`
	Tags                    []string  `json:"tags"`
	Requirements            []string  `json:"requirements"`
	GPURequired             bool      `json:"gpu_required"`
	MinMemoryGB             int       `json:"min_memory_gb"`
	EstimatedCostPerRequest float64   `json:"estimated_cost_per_request"`
}

// NewMetadata 创建带默认值的元数据
func NewMetadata(name, version, description, author string) Metadata {
	return Metadata{
		Name:         name,
		Version:      version,
		Description:  description,
		Author:       author,
		CreatedAt:    time.Now(),
		Tags:         []string{},
		Requirements: []string{},
		MinMemoryGB:  DefaultMinMemoryGB,
	}
}

// PredictionInput 推理输入
type PredictionInput struct {
	Data    any            `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

// Option 读取布尔选项
func (in PredictionInput) Option(name string) bool {
	v, ok := in.Options[name].(bool)
	return ok && v
}

// PredictionOutput 推理输出
type PredictionOutput struct {
	Predictions      any            `json:"predictions"`
	Metadata         map[string]any `json:"metadata"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
}

// TrainingData 训练数据，验证集可选
type TrainingData struct {
	X    [][]float64 `json:"x"`
	Y    []float64   `json:"y"`
	ValX [][]float64 `json:"val_x,omitempty"`
	ValY []float64   `json:"val_y,omitempty"`
}

// Validate 检查样本与标签数量
func (d TrainingData) Validate() error {
	if len(d.X) == 0 {
		return fmt.Errorf("training data is empty")
	}
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("X has %d rows but y has %d values", len(d.X), len(d.Y))
	}
	if len(d.ValX) != len(d.ValY) {
		return fmt.Errorf("valX has %d rows but valY has %d values", len(d.ValX), len(d.ValY))
	}
	return nil
}

// Model 可插拔模型需要实现的能力集合
type Model interface {
	Metadata() Metadata
	Load(ctx context.Context) error
	Predict(ctx context.Context, input PredictionInput) (*PredictionOutput, error)
	Train(ctx context.Context, data TrainingData, config map[string]any) (map[string]any, error)
	Unload(ctx context.Context) error
	HealthCheck(ctx context.Context) map[string]any
}

// Factory 根据配置构造模型实例
type Factory func(config map[string]any) Model

// HealthStatus 通用健康检查输出
func HealthStatus(m Model, loaded bool) map[string]any {
	status := "not_loaded"
	if loaded {
		status = "healthy"
	}
	return map[string]any{
		"status":   status,
		"metadata": m.Metadata(),
	}
}
