package domain

import (
	"github.com/shopspring/decimal"
)

// 压力情景类型
type ScenarioType string

const (
	ScenarioPriceShock       ScenarioType = "PRICE_SHOCK"
	ScenarioVolatilitySpike  ScenarioType = "VOLATILITY_SPIKE"
	ScenarioCorrelationBreak ScenarioType = "CORRELATION_BREAK"
)

// StressScenario 压力测试情景定义
type StressScenario struct {
	Name string       `json:"name"`
	Type ScenarioType `json:"type"`
	// ShockFactor 价格冲击幅度，-0.3 表示下跌 30%
	ShockFactor float64 `json:"shock_factor,omitempty"`
	// SpikeFactor 波动率放大倍数
	SpikeFactor float64 `json:"spike_factor,omitempty"`
}

// Validate 校验情景参数
func (s *StressScenario) Validate() error {
	if s.Name == "" {
		return NewInvalidParameterError("scenario name is required")
	}
	switch s.Type {
	case ScenarioPriceShock:
		if s.ShockFactor < -1 {
			return NewInvalidParameterError("scenario %s: shock_factor %v would take prices below zero", s.Name, s.ShockFactor)
		}
	case ScenarioVolatilitySpike:
		if s.SpikeFactor <= 0 {
			return NewInvalidParameterError("scenario %s: spike_factor must be positive, got %v", s.Name, s.SpikeFactor)
		}
	case ScenarioCorrelationBreak:
	default:
		return NewInvalidParameterError("scenario %s: unknown type %q", s.Name, s.Type)
	}
	return nil
}

// StressImpact 单一情景下的组合损益
type StressImpact struct {
	Scenario  string          `json:"scenario"`
	Type      ScenarioType    `json:"type"`
	PreValue  decimal.Decimal `json:"pre_value"`
	PostValue decimal.Decimal `json:"post_value"`
	PnL       decimal.Decimal `json:"pnl"`
	Degraded  bool            `json:"degraded,omitempty"`
}

// ScenarioAnalysisResult 多情景分析汇总
type ScenarioAnalysisResult struct {
	Results   map[string]*StressImpact `json:"results"`
	WorstCase string                   `json:"worst_case"`
	WorstPnL  decimal.Decimal          `json:"worst_pnl"`
}

// StressTestEngine 压力测试引擎
// 波动率与相关性情景通过重跑蒙特卡洛 VaR 度量影响
type StressTestEngine struct {
	simulations int
	seed        int64
	confidence  float64
}

func NewStressTestEngine(simulations int, seed int64) *StressTestEngine {
	if simulations <= 0 {
		simulations = DefaultSimulations
	}
	return &StressTestEngine{
		simulations: simulations,
		seed:        seed,
		confidence:  0.95,
	}
}

// DefaultScenarios 内置历史情景库
func DefaultScenarios() []StressScenario {
	return []StressScenario{
		{Name: "GFC_2008", Type: ScenarioPriceShock, ShockFactor: -0.40},
		{Name: "OIL_CRASH_2020", Type: ScenarioPriceShock, ShockFactor: -0.55},
		{Name: "ENERGY_SQUEEZE_2022", Type: ScenarioPriceShock, ShockFactor: 0.60},
		{Name: "VOL_REGIME_SHIFT", Type: ScenarioVolatilitySpike, SpikeFactor: 2.5},
		{Name: "CONTAGION", Type: ScenarioCorrelationBreak},
	}
}

// Run 对组合执行一组压力情景，按情景名返回影响
func (e *StressTestEngine) Run(p *PortfolioSnapshot, scenarios []StressScenario) (map[string]*StressImpact, error) {
	if p == nil {
		return nil, NewInvalidParameterError("portfolio is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		return nil, NewInvalidParameterError("at least one scenario is required")
	}
	results := make(map[string]*StressImpact, len(scenarios))
	for i := range scenarios {
		sc := &scenarios[i]
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		impact, err := e.apply(p, sc)
		if err != nil {
			return nil, err
		}
		results[sc.Name] = impact
	}
	return results, nil
}

// Analyze 执行情景并标注最差情景
func (e *StressTestEngine) Analyze(p *PortfolioSnapshot, scenarios []StressScenario) (*ScenarioAnalysisResult, error) {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}
	results, err := e.Run(p, scenarios)
	if err != nil {
		return nil, err
	}
	analysis := &ScenarioAnalysisResult{Results: results}
	first := true
	for name, impact := range results {
		if first || impact.PnL.LessThan(analysis.WorstPnL) {
			analysis.WorstCase = name
			analysis.WorstPnL = impact.PnL
			first = false
		}
	}
	return analysis, nil
}

func (e *StressTestEngine) apply(p *PortfolioSnapshot, sc *StressScenario) (*StressImpact, error) {
	pre := p.MarketValue()
	impact := &StressImpact{Scenario: sc.Name, Type: sc.Type, PreValue: pre}

	switch sc.Type {
	case ScenarioPriceShock:
		// 全部头寸价格同向冲击后重估
		factor := decimal.NewFromFloat(1 + sc.ShockFactor)
		post := decimal.Zero
		for i := range p.Positions {
			pos := &p.Positions[i]
			post = post.Add(pos.Quantity.Mul(pos.Price.Mul(factor)))
		}
		impact.PostValue = post

	case ScenarioVolatilitySpike:
		res, err := e.stressedVaR(p, func(s *PortfolioSnapshot) {
			s.Volatility *= sc.SpikeFactor
			for i := range s.Positions {
				scaled := make([]float64, len(s.Positions[i].Returns))
				for j, r := range s.Positions[i].Returns {
					scaled[j] = r * sc.SpikeFactor
				}
				s.Positions[i].Returns = scaled
			}
		})
		if err != nil {
			return nil, err
		}
		impact.PostValue = pre.Sub(res.Value)
		impact.Degraded = res.Degraded

	case ScenarioCorrelationBreak:
		// 相关性失效，按独立资产重跑模拟
		mc := &MonteCarloVaR{Simulations: e.simulations, Seed: e.seed, Correlations: identityMatrix(len(p.Positions))}
		res, err := mc.Calculate(p, e.confidence, 1)
		if err != nil {
			return nil, err
		}
		impact.PostValue = pre.Sub(res.Value)
		impact.Degraded = res.Degraded
	}

	impact.PnL = impact.PostValue.Sub(impact.PreValue)
	return impact, nil
}

func (e *StressTestEngine) stressedVaR(p *PortfolioSnapshot, mutate func(*PortfolioSnapshot)) (*VaRResult, error) {
	stressed := *p
	stressed.Positions = make([]Position, len(p.Positions))
	copy(stressed.Positions, p.Positions)
	mutate(&stressed)
	mc := &MonteCarloVaR{Simulations: e.simulations, Seed: e.seed}
	return mc.Calculate(&stressed, e.confidence, 1)
}

func identityMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}
