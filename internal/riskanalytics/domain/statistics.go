package domain

import "math"

// DefaultAnnualization 日收益年化因子 sqrt(252)
var DefaultAnnualization = math.Sqrt(252)

// Mean 算术平均
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev 样本标准差（n-1 分母）
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// Volatility 年化波动率
// 观测不足 2 个时无法估计，返回数据不足错误
func Volatility(returns []float64, annualization float64) (float64, error) {
	if len(returns) < 2 {
		return 0, NewInsufficientDataError(2, len(returns))
	}
	return StdDev(returns) * annualization, nil
}

// Correlation 皮尔逊相关系数
// 有效重叠观测不足 2 个或任一序列零方差时返回 0
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]
	meanA, meanB := Mean(a), Mean(b)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// CorrelationMatrixFor 多序列相关矩阵
// 对角线恒为 1，缺失重叠的序列对取 0
func CorrelationMatrixFor(series [][]float64) [][]float64 {
	n := len(series)
	corr := make([][]float64, n)
	for i := range corr {
		corr[i] = make([]float64, n)
		corr[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := Correlation(series[i], series[j])
			corr[i][j] = c
			corr[j][i] = c
		}
	}
	return corr
}

// SharpeRatio 年化夏普比率，零波动时返回 0
func SharpeRatio(returns []float64, riskFreeRate, annualization float64) float64 {
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	annualizedReturn := Mean(returns) * annualization * annualization
	return (annualizedReturn - riskFreeRate) / (sd * annualization)
}

// MaxDrawdown 历史收益序列隐含的最大回撤，返回正分数
func MaxDrawdown(returns []float64) float64 {
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Quantile 线性插值经验分位数，sorted 必须升序，q 取 [0,1]
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// NormInv 标准正态分布逆累积分布函数
// Beasley-Springer-Moro 近似，常用置信水平走查表
func NormInv(p float64) float64 {
	switch p {
	case 0.95:
		return 1.6448536269514722
	case 0.99:
		return 2.3263478740408408
	case 0.975:
		return 1.959963984540054
	}
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= pHigh:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}

// NormPDF 标准正态密度函数
func NormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
