package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCorrelatedSamplerValidation(t *testing.T) {
	_, err := NewCorrelatedSampler(nil, 1)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidParameter, KindOf(err))

	_, err = NewCorrelatedSampler([][]float64{{1, 0}}, 1)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidParameter, KindOf(err))
}

func TestCorrelatedSamplerDeterministic(t *testing.T) {
	corr := [][]float64{{1, 0.5}, {0.5, 1}}
	s1, err := NewCorrelatedSampler(corr, 99)
	require.NoError(t, err)
	s2, err := NewCorrelatedSampler(corr, 99)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, s1.Draw(), s2.Draw())
	}
}

func TestCorrelatedSamplerInducesCorrelation(t *testing.T) {
	corr := [][]float64{{1, 0.9}, {0.9, 1}}
	s, err := NewCorrelatedSampler(corr, 5)
	require.NoError(t, err)
	require.False(t, s.Degraded())

	const n = 20000
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		x := s.Draw()
		a[i], b[i] = x[0], x[1]
	}
	assert.InDelta(t, 0.9, Correlation(a, b), 0.03)
}

func TestCorrelatedSamplerDegradesOnInvalidMatrix(t *testing.T) {
	// 非正定矩阵无法分解，微扰修复后仍失败则退化为独立采样
	corr := [][]float64{{1, 2}, {2, 1}}
	s, err := NewCorrelatedSampler(corr, 3)
	require.NoError(t, err)
	assert.True(t, s.Degraded())

	x := s.Draw()
	assert.Len(t, x, 2)
}

func TestCorrelatedSamplerNearSingularRepair(t *testing.T) {
	// 完全相关矩阵处于正定边界，对角微扰后应可分解
	corr := [][]float64{{1, 1}, {1, 1}}
	s, err := NewCorrelatedSampler(corr, 3)
	require.NoError(t, err)
	require.False(t, s.Degraded())

	x := s.Draw()
	assert.InDelta(t, x[0], x[1], 1e-3)
}
