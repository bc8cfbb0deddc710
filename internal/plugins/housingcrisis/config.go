package housingcrisis

import "cloudeasyml-api/internal/application/forecast"

// Settings 从部署配置解析出的超参数
type Settings struct {
	Ridge        float64
	Estimators   int
	LearningRate float64
}

// parseSettings 读取 linear / boosted 两个配置段，缺省使用回归器默认值
// 配置可能来自 YAML（int）或 JSON（float64）
func parseSettings(cfg map[string]any) Settings {
	s := Settings{
		Ridge:        forecast.DefaultRidge,
		Estimators:   forecast.DefaultEstimators,
		LearningRate: forecast.DefaultLearningRate,
	}

	linear := section(cfg, "linear")
	if v, ok := number(linear, "ridge"); ok && v > 0 {
		s.Ridge = v
	}

	boosted := section(cfg, "boosted")
	if v, ok := number(boosted, "estimators"); ok && v >= 1 {
		s.Estimators = int(v)
	}
	if v, ok := number(boosted, "learning_rate"); ok && v > 0 {
		s.LearningRate = v
	}
	return s
}

func section(cfg map[string]any, name string) map[string]any {
	if m, ok := cfg[name].(map[string]any); ok {
		return m
	}
	return nil
}

func number(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
