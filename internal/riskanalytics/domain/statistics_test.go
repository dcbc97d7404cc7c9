package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)

	assert.Equal(t, 0.0, StdDev([]float64{1}))
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-12)
}

func TestVolatilityRequiresTwoObservations(t *testing.T) {
	_, err := Volatility([]float64{0.01}, DefaultAnnualization)
	require.Error(t, err)
	assert.Equal(t, ErrInsufficientData, KindOf(err))

	vol, err := Volatility([]float64{0.01, -0.01, 0.02, -0.02}, DefaultAnnualization)
	require.NoError(t, err)
	assert.Greater(t, vol, 0.0)
}

func TestCorrelationDegenerateCases(t *testing.T) {
	// 重叠不足
	assert.Equal(t, 0.0, Correlation([]float64{0.1}, []float64{0.2}))
	// 零方差
	assert.Equal(t, 0.0, Correlation([]float64{1, 1, 1}, []float64{1, 2, 3}))
	// 完全正相关
	assert.InDelta(t, 1.0, Correlation([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	// 完全负相关
	assert.InDelta(t, -1.0, Correlation([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
}

func TestCorrelationMatrixFor(t *testing.T) {
	series := [][]float64{
		{0.01, 0.02, -0.01, 0.03},
		{0.02, 0.04, -0.02, 0.06},
		nil, // 缺失序列
	}
	corr := CorrelationMatrixFor(series)
	require.Len(t, corr, 3)
	for i := range corr {
		assert.Equal(t, 1.0, corr[i][i])
	}
	assert.InDelta(t, 1.0, corr[0][1], 1e-12)
	assert.Equal(t, corr[0][1], corr[1][0])
	assert.Equal(t, 0.0, corr[0][2])
	assert.Equal(t, 0.0, corr[1][2])
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, Quantile(sorted, 0))
	assert.Equal(t, 50.0, Quantile(sorted, 1))
	assert.InDelta(t, 30.0, Quantile(sorted, 0.5), 1e-12)
	assert.InDelta(t, 15.0, Quantile(sorted, 0.125), 1e-12)
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}

func TestNormInv(t *testing.T) {
	assert.InDelta(t, 1.6448536, NormInv(0.95), 1e-6)
	assert.InDelta(t, 2.3263479, NormInv(0.99), 1e-6)
	assert.InDelta(t, 0.0, NormInv(0.5), 1e-8)
	assert.InDelta(t, -1.6448536, NormInv(0.05), 1e-3)
	assert.True(t, math.IsInf(NormInv(0), -1))
	assert.True(t, math.IsInf(NormInv(1), 1))
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{0.01, 0.02, 0.03}))
	// 上涨 10% 后回落 20%
	dd := MaxDrawdown([]float64{0.10, -0.20})
	assert.InDelta(t, 0.20, dd, 1e-12)
}

func TestSharpeRatioZeroVolatility(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, DefaultAnnualization))
	assert.Greater(t, SharpeRatio([]float64{0.02, -0.01, 0.03, 0.01}, 0, DefaultAnnualization), 0.0)
}
