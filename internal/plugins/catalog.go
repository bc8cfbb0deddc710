// Package plugins 编译期内置的模型插件入口
package plugins

import (
	"cloudeasyml-api/internal/application/forecast"
	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/plugins/housingcrisis"
)

// Catalog 插件清单 entry 到工厂的映射
func Catalog(cfg *config.ForecastConfig) registry.Catalog {
	return registry.Catalog{
		"housingcrisis": housingcrisis.NewFactory(forecast.NewCrisisDetector(cfg)),
	}
}
