// Package billing 提供计费费率与用量记录
package billing

import (
	"sync"

	"cloudeasyml-api/internal/config"
)

// DefaultTariffName 未配置模型使用的费率名
const DefaultTariffName = "default"

// Tariff 单个模型的费率
type Tariff struct {
	PerRequest float64 `json:"per_request"`
	PerSecond  float64 `json:"per_second"`
	PerGPUHour float64 `json:"per_gpu_hour"`
}

// builtinTariffs 内置费率
func builtinTariffs() map[string]Tariff {
	return map[string]Tariff{
		DefaultTariffName: {PerRequest: 0.001, PerSecond: 0.0001, PerGPUHour: 0.5},
		"housingCrisis":   {PerRequest: 0.002, PerSecond: 0.0002, PerGPUHour: 0.5},
	}
}

// PricingEngine 模型费率表，运行期可更新
// 费率变更只影响之后的计算，已记录的成本不变
type PricingEngine struct {
	mu      sync.RWMutex
	tariffs map[string]Tariff
}

// NewPricingEngine 以内置费率为基础，叠加配置中的费率
func NewPricingEngine(cfg *config.PricingConfig) *PricingEngine {
	tariffs := builtinTariffs()
	if cfg != nil {
		for _, t := range cfg.Tariffs {
			tariffs[t.Model] = Tariff{
				PerRequest: t.PerRequest,
				PerSecond:  t.PerSecond,
				PerGPUHour: t.PerGPUHour,
			}
		}
	}
	return &PricingEngine{tariffs: tariffs}
}

// CalculateCost 计算成本
func (p *PricingEngine) CalculateCost(modelName string, processingTimeMs float64, requestCount int, gpuHours float64) float64 {
	t := p.GetPricing(modelName)
	return t.PerRequest*float64(requestCount) +
		t.PerSecond*(processingTimeMs/1000) +
		t.PerGPUHour*gpuHours
}

// GetPricing 获取模型费率，未配置时返回默认费率
func (p *PricingEngine) GetPricing(modelName string) Tariff {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if t, ok := p.tariffs[modelName]; ok {
		return t
	}
	return p.tariffs[DefaultTariffName]
}

// HasTariff 是否有显式费率
func (p *PricingEngine) HasTariff(modelName string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.tariffs[modelName]
	return ok
}

// UpdatePricing 新增或替换模型费率
func (p *PricingEngine) UpdatePricing(modelName string, tariff Tariff) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tariffs[modelName] = tariff
}

// Tariffs 返回费率表副本
func (p *PricingEngine) Tariffs() map[string]Tariff {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]Tariff, len(p.tariffs))
	for name, t := range p.tariffs {
		out[name] = t
	}
	return out
}
