package forecast

import (
	"gonum.org/v1/gonum/stat"
)

// trendWindow 趋势取最近的预测点数
const trendWindow = 12

// TrendAnalysis 基于预测趋势与波动的快速判定
type TrendAnalysis struct {
	Level           CrisisLevel        `json:"crisis_level"`
	Score           float64            `json:"crisis_score"`
	Recommendations []string           `json:"recommendations"`
	Metrics         map[string]float64 `json:"metrics"`
}

// AnalyzeTrend 不需要历史序列的快速判定
// 最近 12 个点的平均变化量明显为负且波动大时为 HIGH
func AnalyzeTrend(predictions []float64) TrendAnalysis {
	var trend float64
	if len(predictions) >= trendWindow {
		recent := predictions[len(predictions)-trendWindow:]
		var sum float64
		for i := 1; i < len(recent); i++ {
			sum += recent[i] - recent[i-1]
		}
		trend = sum / float64(len(recent)-1)
	}

	var volatility float64
	if len(predictions) > 1 {
		volatility = stat.PopStdDev(predictions, nil)
	}

	out := TrendAnalysis{
		Metrics: map[string]float64{
			"recent_trend": trend,
			"volatility":   volatility,
		},
	}
	switch {
	case trend < -5 && volatility > 10:
		out.Level = CrisisLevelHigh
		out.Score = 0.8
		out.Recommendations = []string{
			"Immediate policy intervention recommended",
			"Monitor housing affordability metrics",
			"Consider mortgage rate stabilization",
		}
	case trend < -2 || volatility > 5:
		out.Level = CrisisLevelMedium
		out.Score = 0.5
		out.Recommendations = []string{
			"Increase market monitoring frequency",
			"Prepare contingency plans",
			"Review lending standards",
		}
	default:
		out.Level = CrisisLevelLow
		out.Score = 0.2
		out.Recommendations = []string{
			"Continue routine market monitoring",
			"Refine predictive models with latest data",
		}
	}
	return out
}
