package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultRidge 默认正则系数，保证设计矩阵奇异时仍可求解
const DefaultRidge = 1e-6

// LinearRegressor 带岭正则的最小二乘回归
type LinearRegressor struct {
	Ridge float64

	coef      []float64
	intercept float64
	fitted    bool
}

// NewLinearRegressor 创建线性回归器
func NewLinearRegressor(ridge float64) *LinearRegressor {
	if ridge <= 0 {
		ridge = DefaultRidge
	}
	return &LinearRegressor{Ridge: ridge}
}

// Fit 对中心化后的数据求解 (XᵀX + λI)β = Xᵀy，截距不参与正则
func (r *LinearRegressor) Fit(X [][]float64, y []float64) error {
	cols, err := validateXY(X, y)
	if err != nil {
		return err
	}
	n := len(X)

	means := make([]float64, cols)
	col := make([]float64, n)
	for j := 0; j < cols; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		means[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	xc := mat.NewDense(n, cols, nil)
	yc := mat.NewVecDense(n, nil)
	for i := range X {
		for j := 0; j < cols; j++ {
			xc.Set(i, j, X[i][j]-means[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < cols; j++ {
		gram.Set(j, j, gram.At(j, j)+r.Ridge)
	}

	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&gram, &rhs); err != nil {
		return fmt.Errorf("failed to solve normal equations: %w", err)
	}

	r.coef = make([]float64, cols)
	r.intercept = yMean
	for j := 0; j < cols; j++ {
		r.coef[j] = beta.AtVec(j)
		r.intercept -= r.coef[j] * means[j]
	}
	r.fitted = true
	return nil
}

// Predict 线性预测
func (r *LinearRegressor) Predict(X [][]float64) ([]float64, error) {
	if !r.fitted {
		return nil, errNotTrained("linear regressor")
	}
	if err := validateRows(X, len(r.coef)); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	for i, row := range X {
		v := r.intercept
		for j, x := range row {
			v += r.coef[j] * x
		}
		out[i] = v
	}
	return out, nil
}

// Coefficients 返回系数与截距
func (r *LinearRegressor) Coefficients() ([]float64, float64) {
	return append([]float64(nil), r.coef...), r.intercept
}
