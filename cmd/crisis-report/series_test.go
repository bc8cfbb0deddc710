package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudeasyml-api/internal/application/forecast"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLagDesign(t *testing.T) {
	X, y := LagDesign([]float64{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]float64{{1, 2}, {2, 3}, {3, 4}}, X)
	assert.Equal(t, []float64{3, 4, 5}, y)

	X, y = LagDesign([]float64{1, 2}, 2)
	assert.Nil(t, X)
	assert.Nil(t, y)
}

func TestReadSeries(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		column  string
		want    []float64
		wantErr bool
	}{
		{name: "json array", file: "s.json", content: "[1.5, 2, 3]", want: []float64{1.5, 2, 3}},
		{name: "csv with header", file: "s.csv", content: "date,hpi\n2024-01,100\n2024-02,101.5\n", want: []float64{100, 101.5}},
		{name: "csv without header", file: "s.csv", content: "1,10\n2,11\n", want: []float64{10, 11}},
		{name: "named column", file: "s.csv", content: "hpi,rate\n100,3.1\n102,3.2\n", column: "hpi", want: []float64{100, 102}},
		{name: "unknown column", file: "s.csv", content: "hpi\n100\n", column: "rate", wantErr: true},
		{name: "non numeric cell", file: "s.csv", content: "hpi\n100\nabc\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSeries(writeFile(t, tt.file, tt.content), tt.column)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_ExtrapolatesLinearTrend(t *testing.T) {
	series := make([]float64, 40)
	for i := range series {
		series[i] = 100 + float64(i)
	}

	result, err := Run(series, RunOptions{Horizon: 12, Lags: 3}, forecast.NewCrisisDetector(nil))
	require.NoError(t, err)
	require.Len(t, result.Predictions, 12)

	for i, p := range result.Predictions {
		assert.InDelta(t, 140+float64(i), p, 0.05)
	}
	require.NotNil(t, result.Analysis)
	assert.Equal(t, forecast.CrisisLevelLow, result.Analysis.Level)
	assert.NotEmpty(t, result.Recommendations)

	report := forecast.GenerateReport(result, "")
	assert.True(t, strings.Contains(report, "HOUSING CRISIS PREDICTION REPORT"))
	assert.Contains(t, report, "Forecast Horizon: 12 months")
}

func TestRun_RejectsShortSeries(t *testing.T) {
	_, err := Run([]float64{1, 2, 3}, RunOptions{Horizon: 3, Lags: 3}, forecast.NewCrisisDetector(nil))
	assert.Error(t, err)

	_, err = Run([]float64{1, 2, 3, 4, 5}, RunOptions{Horizon: 0, Lags: 1}, forecast.NewCrisisDetector(nil))
	assert.Error(t, err)
}
