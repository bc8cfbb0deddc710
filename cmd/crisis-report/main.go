// Package main 离线危机预测报告
// 读取单变量时间序列，用滞后特征训练混合回归，递推预测后输出危机评估
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"cloudeasyml-api/internal/application/forecast"
	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/pkg/logger"
)

func main() {
	input := pflag.StringP("input", "i", "", "time series file (.csv or .json)")
	horizon := pflag.IntP("horizon", "n", 12, "number of future steps to forecast")
	lags := pflag.Int("lags", 3, "number of lagged values used as features")
	column := pflag.String("column", "", "CSV column holding the series (default: last numeric column)")
	target := pflag.String("target", forecast.DefaultTargetName, "name of the forecast target in the report")
	estimators := pflag.Int("estimators", 200, "boosting rounds")
	learningRate := pflag.Float64("learning-rate", 0.1, "boosting learning rate")
	pflag.Parse()

	_ = godotenv.Load()
	logger.Init("warn", "text")
	ctx := context.Background()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		pflag.Usage()
		os.Exit(2)
	}

	// 配置可选，缺失时使用默认阈值
	var forecastCfg *config.ForecastConfig
	if cfg, err := config.Load(); err == nil {
		forecastCfg = &cfg.Forecast
	} else {
		logger.Debug(ctx, "config not loaded, using default crisis thresholds", "error", err)
	}

	series, err := ReadSeries(*input, *column)
	if err != nil {
		logger.Fatal(ctx, "failed to read series", err, "input", *input)
	}

	opts := RunOptions{
		Horizon:      *horizon,
		Lags:         *lags,
		Estimators:   *estimators,
		LearningRate: *learningRate,
	}
	result, err := Run(series, opts, forecast.NewCrisisDetector(forecastCfg))
	if err != nil {
		logger.Fatal(ctx, "failed to build forecast", err, "input", *input)
	}

	fmt.Println(forecast.GenerateReport(result, *target))
}
