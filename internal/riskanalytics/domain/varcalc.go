package domain

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// VaR 计算方法标识
const (
	MethodParametric = "parametric"
	MethodHistorical = "historical"
	MethodMonteCarlo = "monte_carlo"
)

// DefaultSimulations 蒙特卡洛默认模拟次数
const DefaultSimulations = 10000

// VaRResult 在险价值计算结果，Value 为正数表示的潜在损失
type VaRResult struct {
	Value      decimal.Decimal `json:"value"`
	Method     string          `json:"method"`
	Confidence float64         `json:"confidence"`
	Horizon    float64         `json:"horizon"`
	// Degraded 相关矩阵修复失败、退化为独立采样时为 true
	Degraded bool `json:"degraded"`
	// LowSample 历史样本不足以支撑所选置信水平时为 true
	LowSample bool `json:"low_sample_warning"`
}

// VaRMethod 在险价值计算策略
type VaRMethod interface {
	Name() string
	Calculate(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error)
	// Shortfall 计算同口径的预期亏损（VaR 阈值之外的平均损失）
	Shortfall(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error)
}

// NewVaRMethod 按名称构造计算策略
func NewVaRMethod(name string, simulations int, seed int64) (VaRMethod, error) {
	switch name {
	case MethodParametric:
		return &ParametricVaR{}, nil
	case MethodHistorical:
		return &HistoricalVaR{}, nil
	case MethodMonteCarlo:
		return &MonteCarloVaR{Simulations: simulations, Seed: seed}, nil
	default:
		return nil, NewInvalidParameterError("unknown var method %q", name)
	}
}

func validateVaRArgs(p *PortfolioSnapshot, confidence, horizon float64) error {
	if p == nil {
		return NewInvalidParameterError("portfolio is required")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if confidence <= 0 || confidence >= 1 {
		return NewInvalidParameterError("confidence must be in (0,1), got %v", confidence)
	}
	if horizon <= 0 {
		return NewInvalidParameterError("time horizon must be positive, got %v", horizon)
	}
	return nil
}

// ParametricVaR 方差-协方差法
// VaR = z(confidence) * sigma * sqrt(horizon) * total_value
type ParametricVaR struct{}

func (*ParametricVaR) Name() string { return MethodParametric }

func (m *ParametricVaR) Calculate(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error) {
	vol, err := m.volatility(p, confidence, horizon)
	if err != nil {
		return nil, err
	}
	z := NormInv(confidence)
	value := z * vol * math.Sqrt(horizon)
	return newVaRResult(MethodParametric, value, p.TotalValue, confidence, horizon), nil
}

func (m *ParametricVaR) Shortfall(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error) {
	vol, err := m.volatility(p, confidence, horizon)
	if err != nil {
		return nil, err
	}
	// 正态分布下 ES = sigma * phi(z) / (1 - confidence)
	z := NormInv(confidence)
	value := vol * NormPDF(z) / (1 - confidence) * math.Sqrt(horizon)
	return newVaRResult(MethodParametric, value, p.TotalValue, confidence, horizon), nil
}

func (m *ParametricVaR) volatility(p *PortfolioSnapshot, confidence, horizon float64) (float64, error) {
	if err := validateVaRArgs(p, confidence, horizon); err != nil {
		return 0, err
	}
	return p.AnnualVolatility()
}

// HistoricalVaR 历史模拟法，对经验收益分布取分位数
type HistoricalVaR struct{}

func (*HistoricalVaR) Name() string { return MethodHistorical }

func (m *HistoricalVaR) Calculate(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error) {
	sorted, lowSample, err := m.sortedReturns(p, confidence, horizon)
	if err != nil {
		return nil, err
	}
	var ret float64
	if lowSample {
		// 样本撑不起目标分位数，保守取最差观测
		ret = sorted[0]
	} else {
		ret = Quantile(sorted, 1-confidence)
	}
	res := newVaRResult(MethodHistorical, -ret*math.Sqrt(horizon), p.TotalValue, confidence, horizon)
	res.LowSample = lowSample
	return res, nil
}

func (m *HistoricalVaR) Shortfall(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error) {
	sorted, lowSample, err := m.sortedReturns(p, confidence, horizon)
	if err != nil {
		return nil, err
	}
	threshold := Quantile(sorted, 1-confidence)
	if lowSample {
		threshold = sorted[0]
	}
	var sum float64
	var count int
	for _, r := range sorted {
		if r > threshold {
			break
		}
		sum += r
		count++
	}
	tail := sorted[0]
	if count > 0 {
		tail = sum / float64(count)
	}
	res := newVaRResult(MethodHistorical, -tail*math.Sqrt(horizon), p.TotalValue, confidence, horizon)
	res.LowSample = lowSample
	return res, nil
}

func (m *HistoricalVaR) sortedReturns(p *PortfolioSnapshot, confidence, horizon float64) ([]float64, bool, error) {
	if err := validateVaRArgs(p, confidence, horizon); err != nil {
		return nil, false, err
	}
	if len(p.HistoricalReturns) == 0 {
		return nil, false, NewInsufficientDataError(1, 0)
	}
	sorted := make([]float64, len(p.HistoricalReturns))
	copy(sorted, p.HistoricalReturns)
	sort.Float64s(sorted)
	// 尾部目标分位需要至少 1/(1-confidence) 个观测
	required := int(math.Ceil(1 / (1 - confidence)))
	return sorted, len(sorted) < required, nil
}

// MonteCarloVaR 蒙特卡洛模拟法
// 从相关正态分布采样收益向量，逐头寸重估组合价值得到损益分布
type MonteCarloVaR struct {
	Simulations int
	Seed        int64
	// Correlations 显式相关矩阵，为空时从各头寸收益序列估计
	Correlations [][]float64
}

func (*MonteCarloVaR) Name() string { return MethodMonteCarlo }

func (m *MonteCarloVaR) Calculate(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error) {
	pnls, degraded, err := m.simulate(p, confidence, horizon)
	if err != nil {
		return nil, err
	}
	loss := -Quantile(pnls, 1-confidence)
	res := varResultFromLoss(MethodMonteCarlo, loss, confidence, horizon)
	res.Degraded = degraded
	return res, nil
}

func (m *MonteCarloVaR) Shortfall(p *PortfolioSnapshot, confidence, horizon float64) (*VaRResult, error) {
	pnls, degraded, err := m.simulate(p, confidence, horizon)
	if err != nil {
		return nil, err
	}
	threshold := Quantile(pnls, 1-confidence)
	var sum float64
	var count int
	for _, v := range pnls {
		if v > threshold {
			break
		}
		sum += v
		count++
	}
	loss := -threshold
	if count > 0 {
		loss = -sum / float64(count)
	}
	res := varResultFromLoss(MethodMonteCarlo, loss, confidence, horizon)
	res.Degraded = degraded
	return res, nil
}

// simulate 生成升序排列的模拟损益
func (m *MonteCarloVaR) simulate(p *PortfolioSnapshot, confidence, horizon float64) ([]float64, bool, error) {
	if err := validateVaRArgs(p, confidence, horizon); err != nil {
		return nil, false, err
	}
	sims := m.Simulations
	if sims <= 0 {
		sims = DefaultSimulations
	}

	n := len(p.Positions)
	vols := make([]float64, n)
	series := make([][]float64, n)
	for i := range p.Positions {
		pos := &p.Positions[i]
		series[i] = pos.Returns
		if v, err := Volatility(pos.Returns, DefaultAnnualization); err == nil {
			vols[i] = v
		} else {
			// 头寸缺少自身收益序列时回落到组合波动率
			portfolioVol, verr := p.AnnualVolatility()
			if verr != nil {
				return nil, false, verr
			}
			vols[i] = portfolioVol
		}
	}

	corr := m.Correlations
	if corr == nil {
		corr = CorrelationMatrixFor(series)
	}
	if len(corr) != n {
		return nil, false, NewInvalidParameterError("correlation matrix dimension %d does not match %d positions", len(corr), n)
	}

	sampler, err := NewCorrelatedSampler(corr, m.Seed)
	if err != nil {
		return nil, false, err
	}

	sqrtT := math.Sqrt(horizon)
	base, _ := p.MarketValue().Float64()
	pnls := make([]float64, sims)
	for s := 0; s < sims; s++ {
		x := sampler.Draw()
		value := 0.0
		for i := range p.Positions {
			pos := &p.Positions[i]
			price, _ := pos.Price.Float64()
			qty, _ := pos.Quantity.Float64()
			value += qty * price * (1 + vols[i]*sqrtT*x[i])
		}
		pnls[s] = value - base
	}
	sort.Float64s(pnls)
	return pnls, sampler.Degraded(), nil
}

func newVaRResult(method string, lossFraction float64, totalValue decimal.Decimal, confidence, horizon float64) *VaRResult {
	if lossFraction < 0 || math.IsNaN(lossFraction) {
		lossFraction = 0
	}
	return &VaRResult{
		Value:      decimal.NewFromFloat(lossFraction).Mul(totalValue).Round(8),
		Method:     method,
		Confidence: confidence,
		Horizon:    horizon,
	}
}

func varResultFromLoss(method string, loss, confidence, horizon float64) *VaRResult {
	if loss < 0 || math.IsNaN(loss) {
		loss = 0
	}
	return &VaRResult{
		Value:      decimal.NewFromFloat(loss).Round(8),
		Method:     method,
		Confidence: confidence,
		Horizon:    horizon,
	}
}
