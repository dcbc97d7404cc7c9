package domain

import (
	"math/rand/v2"

	"github.com/wyfcoding/pkg/algorithm"
)

// choleskyFactor 下三角因子，用于将独立正态变量变换为相关变量
type choleskyFactor interface {
	MultiplyVector(v []float64) ([]float64, error)
}

// CorrelatedSampler 相关正态随机向量采样器
// 相关矩阵非正定时先对对角线微扰修复，仍失败则降级为独立采样
type CorrelatedSampler struct {
	dim      int
	chol     choleskyFactor
	rng      *rand.Rand
	degraded bool
}

// NewCorrelatedSampler 由相关矩阵构造采样器，seed 固定时序列可复现
func NewCorrelatedSampler(corr [][]float64, seed int64) (*CorrelatedSampler, error) {
	n := len(corr)
	if n == 0 {
		return nil, NewInvalidParameterError("correlation matrix is empty")
	}
	for i, row := range corr {
		if len(row) != n {
			return nil, NewInvalidParameterError("correlation matrix row %d has %d columns, want %d", i, len(row), n)
		}
	}

	s := &CorrelatedSampler{
		dim: n,
		rng: rand.New(rand.NewPCG(uint64(seed), 0)),
	}

	chol, err := factorize(corr)
	if err != nil {
		// 微小对角扰动后重试，处理接近奇异的矩阵
		nudged := make([][]float64, n)
		for i := range corr {
			nudged[i] = make([]float64, n)
			copy(nudged[i], corr[i])
			nudged[i][i] += 1e-8
		}
		chol, err = factorize(nudged)
		if err != nil {
			s.degraded = true
			return s, nil
		}
	}
	s.chol = chol
	return s, nil
}

func factorize(corr [][]float64) (choleskyFactor, error) {
	m, err := algorithm.NewMatrixFromData(corr)
	if err != nil {
		return nil, err
	}
	return m.Cholesky()
}

// Dim 向量维度
func (s *CorrelatedSampler) Dim() int {
	return s.dim
}

// Degraded 是否已退化为独立采样
func (s *CorrelatedSampler) Degraded() bool {
	return s.degraded
}

// Draw 采样一个相关标准正态向量
func (s *CorrelatedSampler) Draw() []float64 {
	z := make([]float64, s.dim)
	for i := range z {
		z[i] = s.rng.NormFloat64()
	}
	if s.chol == nil {
		return z
	}
	x, _ := s.chol.MultiplyVector(z)
	return x
}
