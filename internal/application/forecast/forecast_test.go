package forecast

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cloudeasyml-api/pkg/errors"
)

// fixedRegressor 返回预设输出
type fixedRegressor struct {
	out    []float64
	fitted bool
}

func (f *fixedRegressor) Fit([][]float64, []float64) error {
	f.fitted = true
	return nil
}

func (f *fixedRegressor) Predict(X [][]float64) ([]float64, error) {
	if !f.fitted {
		return nil, errNotTrained("fixed")
	}
	return f.out[:len(X)], nil
}

func linearData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1, x2 := float64(i), float64((i*7)%5)
		X[i] = []float64{x1, x2}
		y[i] = 3*x1 - 2*x2 + 5
	}
	return X, y
}

func TestOptimizeBlendWeights_PerfectRegressorWins(t *testing.T) {
	y := []float64{1, 2, 3, 4, 5}
	X := make([][]float64, len(y))
	perfect := &fixedRegressor{out: y, fitted: true}
	noisy := &fixedRegressor{out: []float64{3, 0, 6, 1, 9}, fitted: true}

	e := NewEnsemble("a", perfect, "b", noisy)
	weights, err := e.OptimizeBlendWeights(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, weights["a"])
	assert.Equal(t, 0.0, weights["b"])

	pred, err := e.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, pred, 1e-12)
}

func TestOptimizeBlendWeights_FirstMinimumWins(t *testing.T) {
	y := []float64{1, 2, 3}
	X := make([][]float64, len(y))
	same := &fixedRegressor{out: []float64{1, 2, 3}, fitted: true}
	twin := &fixedRegressor{out: []float64{1, 2, 3}, fitted: true}

	e := NewEnsemble("a", same, "b", twin)
	weights, err := e.OptimizeBlendWeights(X, y)
	require.NoError(t, err)
	assert.Equal(t, 0.0, weights["a"])
	assert.Equal(t, 1.0, weights["b"])
}

func TestOptimizeBlendWeights_GridValues(t *testing.T) {
	y := []float64{0.3, 0.3}
	X := make([][]float64, len(y))
	a := &fixedRegressor{out: []float64{1, 1}, fitted: true}
	b := &fixedRegressor{out: []float64{0, 0}, fitted: true}

	e := NewEnsemble("a", a, "b", b)
	weights, err := e.OptimizeBlendWeights(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, weights["a"], 1e-12)
	assert.InDelta(t, 1.0, weights["a"]+weights["b"], 1e-12)
}

func TestEnsemble_NotTrained(t *testing.T) {
	e := NewEnsemble("linear", NewLinearRegressor(0), "boosted", NewBoostedStumps(10, 0.1))
	_, err := e.Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, apperrors.ErrModelNotTrained)

	_, err = e.OptimizeBlendWeights([][]float64{{1, 2}}, []float64{1})
	assert.ErrorIs(t, err, apperrors.ErrModelNotTrained)
}

func TestLinearRegressor_RecoversCoefficients(t *testing.T) {
	X, y := linearData(30)
	r := NewLinearRegressor(1e-9)
	require.NoError(t, r.Fit(X, y))

	coef, intercept := r.Coefficients()
	assert.InDelta(t, 3, coef[0], 1e-4)
	assert.InDelta(t, -2, coef[1], 1e-4)
	assert.InDelta(t, 5, intercept, 1e-3)

	pred, err := r.Predict([][]float64{{100, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 303, pred[0], 1e-2)

	_, err = r.Predict([][]float64{{1}})
	assert.Error(t, err)
}

func TestBoostedStumps_FitsStepFunction(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		X = append(X, []float64{float64(i)})
		if i < 20 {
			y = append(y, 10)
		} else {
			y = append(y, 50)
		}
	}

	b := NewBoostedStumps(100, 0.3)
	require.NoError(t, b.Fit(X, y))
	assert.Greater(t, b.Rounds(), 0)

	pred, err := b.Predict([][]float64{{5}, {35}})
	require.NoError(t, err)
	assert.InDelta(t, 10, pred[0], 0.5)
	assert.InDelta(t, 50, pred[1], 0.5)
}

func TestEnsemble_FitWithValidation(t *testing.T) {
	X, y := linearData(40)
	e := NewEnsemble("linear", NewLinearRegressor(0), "boosted", NewBoostedStumps(50, 0.1))

	report, err := e.Fit(TrainingSet{X: X[:30], Y: y[:30], ValX: X[30:], ValY: y[30:]})
	require.NoError(t, err)
	assert.True(t, report.Optimized)
	assert.Equal(t, 30, report.Samples)
	// 线性数据上线性回归器应占主导
	assert.GreaterOrEqual(t, report.Weights["linear"], 0.5)
	assert.InDelta(t, 1, report.Weights["linear"]+report.Weights["boosted"], 1e-12)
	assert.Contains(t, report.Base, "linear")

	m, err := e.Evaluate(X[30:], y[30:])
	require.NoError(t, err)
	assert.InDelta(t, report.ValidationRMS, m.RMSE, 1e-9)
	assert.Greater(t, m.R2, 0.9)
}

func TestEvaluate(t *testing.T) {
	m := Evaluate([]float64{1, 2, 3}, []float64{1, 2, 5})
	assert.InDelta(t, math.Sqrt(4.0/3), m.RMSE, 1e-12)
	assert.InDelta(t, 2.0/3, m.MAE, 1e-12)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDetectCrisisLevel_DeclineScenario(t *testing.T) {
	d := NewCrisisDetector(nil)
	historical := []float64{110, 112, 115, 113, 118, 117, 119, 121, 118, 122, 119, 120}

	a, err := d.DetectCrisisLevel(repeat(100, 12), historical)
	require.NoError(t, err)
	for _, c := range a.PercentChange {
		assert.InDelta(t, -16.667, c, 1e-3)
	}
	assert.Equal(t, 1.0, a.PriceDeclineRisk)
	assert.Zero(t, a.RapidAppreciationRisk)
	assert.InDelta(t, -1, a.VolatilityIncrease, 1e-12)
	assert.InDelta(t, 0.4, a.Score, 1e-12)
	assert.Equal(t, CrisisLevelHigh, a.Level)

	recs := d.GenerateRecommendations(a)
	assert.Equal(t, "EMERGENCY: Implement dynamic rent control mechanisms", recs[0])
	assert.Contains(t, recs, "WARNING: High probability of significant price decline - prepare market stabilization measures")
	assert.Len(t, recs, 6)
}

func TestDetectCrisisLevel_UnflooredVolatility(t *testing.T) {
	d := NewCrisisDetector(nil)
	d.FloorVolatilityTerm = false
	historical := []float64{110, 130, 110, 130, 120}

	a, err := d.DetectCrisisLevel(repeat(100, 12), historical)
	require.NoError(t, err)
	assert.InDelta(t, 0.4-0.3, a.Score, 1e-12)
	assert.Equal(t, CrisisLevelLow, a.Level)
}

func TestDetectCrisisLevel_ZeroHistoricalVolatility(t *testing.T) {
	d := NewCrisisDetector(nil)

	a, err := d.DetectCrisisLevel([]float64{100, 100}, []float64{100, 100, 100})
	require.NoError(t, err)
	assert.Zero(t, a.VolatilityIncrease)
	assert.Equal(t, CrisisLevelLow, a.Level)

	a, err = d.DetectCrisisLevel([]float64{95, 105}, []float64{100, 100, 100})
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.VolatilityIncrease)
	assert.InDelta(t, 0.3, a.Score, 1e-12)
	assert.Equal(t, CrisisLevelMedium, a.Level)
}

func TestDetectCrisisLevel_InvalidSeries(t *testing.T) {
	d := NewCrisisDetector(nil)

	_, err := d.DetectCrisisLevel(nil, []float64{1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSeries)
	_, err = d.DetectCrisisLevel([]float64{1}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSeries)
	_, err = d.DetectCrisisLevel([]float64{1}, []float64{5, 0})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSeries)
}

func TestClassify_BoundaryGoesUp(t *testing.T) {
	d := &CrisisDetector{HighThreshold: 0.5, MediumThreshold: 0.25}

	assert.Equal(t, CrisisLevelHigh, d.Classify(0.5))
	assert.Equal(t, CrisisLevelMedium, d.Classify(0.4999))
	assert.Equal(t, CrisisLevelMedium, d.Classify(0.25))
	assert.Equal(t, CrisisLevelLow, d.Classify(0.2499))
}

func TestGenerateRecommendations_Warnings(t *testing.T) {
	d := NewCrisisDetector(nil)
	recs := d.GenerateRecommendations(&CrisisAnalysis{
		Level:                 CrisisLevelLow,
		RapidAppreciationRisk: 0.31,
		VolatilityIncrease:    0.51,
	})

	require.Len(t, recs, 7)
	assert.Equal(t, "OPTIMIZATION: Continue routine market monitoring", recs[0])
	assert.Equal(t, "WARNING: Rapid price appreciation detected - implement affordability preservation strategies", recs[5])
	assert.Equal(t, "ALERT: Market volatility increasing - enhance risk monitoring protocols", recs[6])

	// 恰好等于告警线不触发
	recs = d.GenerateRecommendations(&CrisisAnalysis{Level: CrisisLevelMedium, PriceDeclineRisk: 0.3, VolatilityIncrease: 0.5})
	assert.Len(t, recs, 5)
}

func TestAnalyzeTrend(t *testing.T) {
	falling := make([]float64, 12)
	for i := range falling {
		falling[i] = 200 - float64(i)*8
	}
	high := AnalyzeTrend(falling)
	assert.Equal(t, CrisisLevelHigh, high.Level)
	assert.Equal(t, 0.8, high.Score)
	assert.InDelta(t, -8, high.Metrics["recent_trend"], 1e-12)

	medium := AnalyzeTrend([]float64{100, 112, 100, 112})
	assert.Equal(t, CrisisLevelMedium, medium.Level)
	assert.Zero(t, medium.Metrics["recent_trend"], "short series has no trend")

	low := AnalyzeTrend([]float64{100, 101, 102})
	assert.Equal(t, CrisisLevelLow, low.Level)
	assert.Len(t, low.Recommendations, 2)
}

func TestGenerateReport(t *testing.T) {
	d := NewCrisisDetector(nil)
	f, err := d.BuildForecast(repeat(100, 12), []float64{118, 120}, 12)
	require.NoError(t, err)

	report := GenerateReport(f, "")
	assert.True(t, strings.HasPrefix(report, strings.Repeat("=", 70)+"\nHOUSING CRISIS PREDICTION REPORT"))
	assert.Contains(t, report, "Target: Housing Price Index")
	assert.Contains(t, report, "Forecast Horizon: 12 months")
	assert.Contains(t, report, "Crisis Level: HIGH")
	assert.Contains(t, report, "Crisis Score: 0.400")
	assert.Contains(t, report, "Price Decline Risk: 100.0%")
	assert.Contains(t, report, "1. EMERGENCY: Implement dynamic rent control mechanisms")
	assert.Contains(t, report, "Mean Predicted Value: 100.00")
	assert.Contains(t, report, "Predicted Range: [100.00, 100.00]")
	assert.True(t, strings.HasSuffix(report, strings.Repeat("=", 70)))
}
