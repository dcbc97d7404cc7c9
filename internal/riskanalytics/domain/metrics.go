package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RiskMetrics 组合风险指标，落库并缓存供查询
type RiskMetrics struct {
	gorm.Model
	PortfolioID       string          `gorm:"column:portfolio_id;type:varchar(64);index;not null" json:"portfolio_id"`
	VaR95             decimal.Decimal `gorm:"column:var_95;type:decimal(24,8);not null" json:"var_95"`
	VaR99             decimal.Decimal `gorm:"column:var_99;type:decimal(24,8);not null" json:"var_99"`
	ExpectedShortfall decimal.Decimal `gorm:"column:expected_shortfall;type:decimal(24,8);not null" json:"expected_shortfall"`
	Volatility        decimal.Decimal `gorm:"column:volatility;type:decimal(16,8)" json:"volatility"`
	SharpeRatio       decimal.Decimal `gorm:"column:sharpe_ratio;type:decimal(16,8)" json:"sharpe_ratio"`
	MaxDrawdown       decimal.Decimal `gorm:"column:max_drawdown;type:decimal(16,8)" json:"max_drawdown"`
	Method            string          `gorm:"column:method;type:varchar(32)" json:"method"`
	Degraded          bool            `gorm:"column:degraded" json:"degraded"`
	CalculatedAt      time.Time       `gorm:"column:calculated_at;not null" json:"calculated_at"`
}

func (RiskMetrics) TableName() string {
	return "risk_metrics"
}

// 风险报告类型
const (
	ReportTypeSummary  = "SUMMARY"
	ReportTypeDetailed = "DETAILED"
)

// RiskReport 聚合报告：各方法 VaR、ES、压力测试汇总
type RiskReport struct {
	ReportID    string                  `json:"report_id"`
	PortfolioID string                  `json:"portfolio_id"`
	ReportType  string                  `json:"report_type"`
	Metrics     *RiskMetrics            `json:"metrics"`
	VaRByMethod map[string]*VaRResult   `json:"var_by_method,omitempty"`
	StressTests *ScenarioAnalysisResult `json:"stress_tests,omitempty"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// BuildRiskMetrics 由组合快照计算一组标准风险指标
// simulations/seed 控制蒙特卡洛口径
func BuildRiskMetrics(p *PortfolioSnapshot, simulations int, seed int64) (*RiskMetrics, error) {
	if p == nil {
		return nil, NewInvalidParameterError("portfolio is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	mc := &MonteCarloVaR{Simulations: simulations, Seed: seed}
	var95, err := mc.Calculate(p, 0.95, 1)
	if err != nil {
		return nil, err
	}
	var99, err := mc.Calculate(p, 0.99, 1)
	if err != nil {
		return nil, err
	}
	es, err := mc.Shortfall(p, 0.95, 1)
	if err != nil {
		return nil, err
	}

	vol, err := p.AnnualVolatility()
	if err != nil {
		return nil, err
	}

	m := &RiskMetrics{
		PortfolioID:       p.PortfolioID,
		VaR95:             var95.Value,
		VaR99:             var99.Value,
		ExpectedShortfall: es.Value,
		Volatility:        decimal.NewFromFloat(vol).Round(8),
		Method:            MethodMonteCarlo,
		Degraded:          var95.Degraded || var99.Degraded || es.Degraded,
		CalculatedAt:      time.Now(),
	}
	if len(p.HistoricalReturns) >= 2 {
		m.SharpeRatio = decimal.NewFromFloat(SharpeRatio(p.HistoricalReturns, 0, DefaultAnnualization)).Round(8)
		m.MaxDrawdown = decimal.NewFromFloat(MaxDrawdown(p.HistoricalReturns)).Round(8)
	}
	return m, nil
}
