// Package forecast 提供回归集成、混合权重优化与危机检测
package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "cloudeasyml-api/pkg/errors"
)

// Regressor 基础回归器
// 未训练时 Predict 返回 ErrModelNotTrained
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Metrics 回归评估指标
type Metrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// RMSE 均方根误差
func RMSE(pred, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	return floats.Distance(pred, y, 2) / math.Sqrt(float64(len(y)))
}

// Evaluate 计算 rmse、mae、r2
func Evaluate(pred, y []float64) Metrics {
	if len(y) == 0 {
		return Metrics{}
	}
	return Metrics{
		RMSE: RMSE(pred, y),
		MAE:  floats.Distance(pred, y, 1) / float64(len(y)),
		R2:   stat.RSquaredFrom(pred, y, nil),
	}
}

// validateXY 检查训练数据形状
func validateXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("training data is empty")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("X has %d rows but y has %d values", len(X), len(y))
	}
	cols := len(X[0])
	if cols == 0 {
		return 0, fmt.Errorf("rows have no features")
	}
	for i, row := range X {
		if len(row) != cols {
			return 0, fmt.Errorf("row %d has %d features, expected %d", i, len(row), cols)
		}
	}
	return cols, nil
}

// validateRows 检查预测输入的特征数
func validateRows(X [][]float64, cols int) error {
	for i, row := range X {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), cols)
		}
	}
	return nil
}

func errNotTrained(name string) error {
	return apperrors.ErrModelNotTrained.WithDetail(name + " must be fitted before predicting")
}
