package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloudeasyml-api/internal/application/forecast"
)

// validationShare 末尾留作验证集的比例
const validationShare = 0.2

// RunOptions 预测参数
type RunOptions struct {
	Horizon      int
	Lags         int
	Estimators   int
	LearningRate float64
}

// ReadSeries 按扩展名读取序列
// JSON 为数值数组；CSV 取指定列或最后一个可解析的数值列，表头可选
func ReadSeries(path, column string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var values []float64
		if err := json.NewDecoder(f).Decode(&values); err != nil {
			return nil, fmt.Errorf("failed to decode json series: %w", err)
		}
		return values, nil
	default:
		return readCSV(f, column)
	}
}

func readCSV(r io.Reader, column string) ([]float64, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	col := -1
	start := 0
	if column != "" {
		for i, name := range rows[0] {
			if strings.TrimSpace(name) == column {
				col = i
			}
		}
		if col < 0 {
			return nil, fmt.Errorf("column %q not found", column)
		}
		start = 1
	} else {
		col = len(rows[0]) - 1
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][col]), 64); err != nil {
			start = 1
		}
	}

	values := make([]float64, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		if col >= len(rows[i]) {
			return nil, fmt.Errorf("row %d has no column %d", i+1, col+1)
		}
		cell := strings.TrimSpace(rows[i][col])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// LagDesign 构造滞后特征矩阵，第 i 行为 series[i..i+lags)，标签为 series[i+lags]
func LagDesign(series []float64, lags int) ([][]float64, []float64) {
	n := len(series) - lags
	if lags <= 0 || n <= 0 {
		return nil, nil
	}
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X[i] = append([]float64(nil), series[i:i+lags]...)
		y[i] = series[i+lags]
	}
	return X, y
}

// Run 训练集成并递推预测，最后运行危机检测
func Run(series []float64, opts RunOptions, detector *forecast.CrisisDetector) (*forecast.Forecast, error) {
	if opts.Horizon <= 0 {
		return nil, errors.New("horizon must be positive")
	}
	if opts.Lags <= 0 {
		return nil, errors.New("lags must be positive")
	}

	X, y := LagDesign(series, opts.Lags)
	if len(X) < 2 {
		return nil, fmt.Errorf("series has %d values, need at least %d", len(series), opts.Lags+2)
	}

	set := forecast.TrainingSet{X: X, Y: y}
	if nVal := int(float64(len(X)) * validationShare); nVal > 0 && len(X)-nVal >= 2 {
		cut := len(X) - nVal
		set = forecast.TrainingSet{X: X[:cut], Y: y[:cut], ValX: X[cut:], ValY: y[cut:]}
	}

	ensemble := forecast.NewEnsemble(
		"linear", forecast.NewLinearRegressor(0),
		"boosted", forecast.NewBoostedStumps(opts.Estimators, opts.LearningRate),
	)
	if _, err := ensemble.Fit(set); err != nil {
		return nil, err
	}

	window := append([]float64(nil), series[len(series)-opts.Lags:]...)
	predictions := make([]float64, 0, opts.Horizon)
	for step := 0; step < opts.Horizon; step++ {
		next, err := ensemble.Predict([][]float64{window})
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, next[0])
		window = append(window[1:], next[0])
	}

	return detector.BuildForecast(predictions, series, opts.Horizon)
}
