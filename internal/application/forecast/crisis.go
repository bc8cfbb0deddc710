package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"cloudeasyml-api/internal/config"
	apperrors "cloudeasyml-api/pkg/errors"
)

// CrisisLevel 危机等级
type CrisisLevel string

const (
	CrisisLevelHigh   CrisisLevel = "HIGH"
	CrisisLevelMedium CrisisLevel = "MEDIUM"
	CrisisLevelLow    CrisisLevel = "LOW"
)

// 默认阈值
const (
	DefaultThresholdHigh   = 0.4
	DefaultThresholdMedium = 0.2
	DefaultHistoryWindow   = 12
)

// 评分权重与判定线
const (
	declineWeight      = 0.4
	appreciationWeight = 0.3
	volatilityWeight   = 0.3

	declinePercent      = -10.0
	appreciationPercent = 20.0

	declineWarning      = 0.3
	appreciationWarning = 0.3
	volatilityAlert     = 0.5
)

var tierRecommendations = map[CrisisLevel][]string{
	CrisisLevelHigh: {
		"EMERGENCY: Implement dynamic rent control mechanisms",
		"Activate emergency housing voucher programs",
		"Fast-track development approvals in high-demand areas",
		"Increase affordable housing supply through public-private partnerships",
		"Monitor market daily for rapid intervention",
	},
	CrisisLevelMedium: {
		"PREVENTIVE: Optimize zoning regulations for increased density",
		"Identify development sites through spatial analysis",
		"Implement targeted housing subsidies for at-risk populations",
		"Enhance monitoring frequency to weekly assessments",
		"Prepare contingency plans for potential escalation",
	},
	CrisisLevelLow: {
		"OPTIMIZATION: Continue routine market monitoring",
		"Refine predictive models with latest data",
		"Conduct policy impact simulations",
		"Analyze long-term market trends",
		"Maintain early warning system vigilance",
	},
}

// CrisisAnalysis 危机分析结果
type CrisisAnalysis struct {
	Level                 CrisisLevel `json:"crisis_level"`
	Score                 float64     `json:"crisis_score"`
	PriceDeclineRisk      float64     `json:"price_decline_risk"`
	RapidAppreciationRisk float64     `json:"rapid_appreciation_risk"`
	VolatilityIncrease    float64     `json:"volatility_increase"`
	Volatility            float64     `json:"volatility"`
	HistoricalVolatility  float64     `json:"historical_volatility"`
	PercentChange         []float64   `json:"percent_change"`
}

// CrisisDetector 根据预测与历史序列评估危机等级
type CrisisDetector struct {
	HighThreshold       float64
	MediumThreshold     float64
	FloorVolatilityTerm bool
	HistoryWindow       int
}

// NewCrisisDetector 从配置创建检测器
func NewCrisisDetector(cfg *config.ForecastConfig) *CrisisDetector {
	d := &CrisisDetector{
		HighThreshold:       DefaultThresholdHigh,
		MediumThreshold:     DefaultThresholdMedium,
		FloorVolatilityTerm: true,
		HistoryWindow:       DefaultHistoryWindow,
	}
	if cfg != nil {
		if cfg.CrisisThresholdHigh > 0 {
			d.HighThreshold = cfg.CrisisThresholdHigh
		}
		if cfg.CrisisThresholdMedium > 0 {
			d.MediumThreshold = cfg.CrisisThresholdMedium
		}
		if cfg.HistoryWindow > 0 {
			d.HistoryWindow = cfg.HistoryWindow
		}
		d.FloorVolatilityTerm = cfg.FloorVolatilityTerm
	}
	return d
}

// DetectCrisisLevel 计算危机评分与等级
func (d *CrisisDetector) DetectCrisisLevel(predictions, historical []float64) (*CrisisAnalysis, error) {
	if len(predictions) == 0 || len(historical) == 0 {
		return nil, apperrors.ErrInvalidSeries.WithDetail("predictions and historical series must not be empty")
	}
	last := historical[len(historical)-1]
	if last == 0 {
		return nil, apperrors.ErrInvalidSeries.WithDetail("last historical value must not be zero")
	}

	changes := make([]float64, len(predictions))
	var declines, appreciations int
	for i, p := range predictions {
		changes[i] = (p - last) / last * 100
		if changes[i] < declinePercent {
			declines++
		}
		if changes[i] > appreciationPercent {
			appreciations++
		}
	}

	window := historical
	if d.HistoryWindow > 0 && len(window) > d.HistoryWindow {
		window = window[len(window)-d.HistoryWindow:]
	}

	volatility := stat.PopStdDev(predictions, nil)
	historicalVolatility := stat.PopStdDev(window, nil)

	var volatilityIncrease float64
	switch {
	case historicalVolatility > 0:
		volatilityIncrease = volatility/historicalVolatility - 1
	case volatility > 0:
		volatilityIncrease = 1
	}

	n := float64(len(predictions))
	a := &CrisisAnalysis{
		PriceDeclineRisk:      float64(declines) / n,
		RapidAppreciationRisk: float64(appreciations) / n,
		VolatilityIncrease:    volatilityIncrease,
		Volatility:            volatility,
		HistoricalVolatility:  historicalVolatility,
		PercentChange:         changes,
	}

	volatilityTerm := math.Min(volatilityIncrease, 1)
	if d.FloorVolatilityTerm && volatilityTerm < 0 {
		volatilityTerm = 0
	}
	a.Score = declineWeight*a.PriceDeclineRisk +
		appreciationWeight*a.RapidAppreciationRisk +
		volatilityWeight*volatilityTerm
	a.Level = d.Classify(a.Score)
	return a, nil
}

// Classify 评分落在阈值上时归入较高等级
func (d *CrisisDetector) Classify(score float64) CrisisLevel {
	switch {
	case score >= d.HighThreshold:
		return CrisisLevelHigh
	case score >= d.MediumThreshold:
		return CrisisLevelMedium
	default:
		return CrisisLevelLow
	}
}

// GenerateRecommendations 按等级给出建议，并附加单项风险告警
func (d *CrisisDetector) GenerateRecommendations(a *CrisisAnalysis) []string {
	tier, ok := tierRecommendations[a.Level]
	if !ok {
		tier = tierRecommendations[CrisisLevelLow]
	}
	out := append([]string(nil), tier...)

	if a.PriceDeclineRisk > declineWarning {
		out = append(out, "WARNING: High probability of significant price decline - prepare market stabilization measures")
	}
	if a.RapidAppreciationRisk > appreciationWarning {
		out = append(out, "WARNING: Rapid price appreciation detected - implement affordability preservation strategies")
	}
	if a.VolatilityIncrease > volatilityAlert {
		out = append(out, "ALERT: Market volatility increasing - enhance risk monitoring protocols")
	}
	return out
}
