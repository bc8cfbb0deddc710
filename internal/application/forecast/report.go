package forecast

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultTargetName 报告默认指标名
const DefaultTargetName = "Housing Price Index"

var rule = strings.Repeat("=", 70)

// Forecast 一次预测的完整结果
type Forecast struct {
	Predictions     []float64       `json:"predictions"`
	Horizon         int             `json:"horizon"`
	Analysis        *CrisisAnalysis `json:"crisis_analysis"`
	Recommendations []string        `json:"recommendations"`
}

// BuildForecast 运行检测器并生成建议
func (d *CrisisDetector) BuildForecast(predictions, historical []float64, horizon int) (*Forecast, error) {
	analysis, err := d.DetectCrisisLevel(predictions, historical)
	if err != nil {
		return nil, err
	}
	return &Forecast{
		Predictions:     predictions,
		Horizon:         horizon,
		Analysis:        analysis,
		Recommendations: d.GenerateRecommendations(analysis),
	}, nil
}

// GenerateReport 生成纯文本报告
func GenerateReport(f *Forecast, targetName string) string {
	if targetName == "" {
		targetName = DefaultTargetName
	}

	var b strings.Builder
	section := func(title string) {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule, title, rule)
	}

	fmt.Fprintf(&b, "%s\nHOUSING CRISIS PREDICTION REPORT\n%s\n", rule, rule)
	fmt.Fprintf(&b, "\nTarget: %s\n", targetName)
	fmt.Fprintf(&b, "Forecast Horizon: %d months\n", f.Horizon)

	if a := f.Analysis; a != nil {
		section("CRISIS ASSESSMENT")
		fmt.Fprintf(&b, "Crisis Level: %s\n", a.Level)
		fmt.Fprintf(&b, "Crisis Score: %.3f\n", a.Score)
		fmt.Fprintf(&b, "Price Decline Risk: %s\n", percent(a.PriceDeclineRisk))
		fmt.Fprintf(&b, "Rapid Appreciation Risk: %s\n", percent(a.RapidAppreciationRisk))
		fmt.Fprintf(&b, "Volatility Increase: %s\n", percent(a.VolatilityIncrease))
	}

	section("POLICY RECOMMENDATIONS")
	for i, rec := range f.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}

	section("FORECAST SUMMARY")
	if len(f.Predictions) > 0 {
		fmt.Fprintf(&b, "Mean Predicted Value: %.2f\n", stat.Mean(f.Predictions, nil))
		fmt.Fprintf(&b, "Predicted Range: [%.2f, %.2f]\n", floats.Min(f.Predictions), floats.Max(f.Predictions))
		fmt.Fprintf(&b, "Predicted Std Dev: %.2f\n", stat.PopStdDev(f.Predictions, nil))
	}
	fmt.Fprintf(&b, "\n%s", rule)

	return b.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
