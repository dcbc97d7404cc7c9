package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
)

func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(8)
}

// PositionData 头寸传输对象
type PositionData struct {
	Commodity string    `json:"commodity"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Returns   []float64 `json:"returns,omitempty"`
}

// PortfolioData 组合传输对象
type PortfolioData struct {
	PortfolioID       string         `json:"portfolio_id"`
	TotalValue        float64        `json:"total_value"`
	Positions         []PositionData `json:"positions"`
	HistoricalReturns []float64      `json:"historical_returns,omitempty"`
	Volatility        float64        `json:"volatility,omitempty"`
}

// ToDomain 转换为领域快照
func (d *PortfolioData) ToDomain() *domain.PortfolioSnapshot {
	snapshot := &domain.PortfolioSnapshot{
		PortfolioID:       d.PortfolioID,
		TotalValue:        decimal.NewFromFloat(d.TotalValue),
		HistoricalReturns: d.HistoricalReturns,
		Volatility:        d.Volatility,
		AsOf:              time.Now(),
	}
	for _, p := range d.Positions {
		snapshot.Positions = append(snapshot.Positions, domain.Position{
			Commodity: p.Commodity,
			Quantity:  decimal.NewFromFloat(p.Quantity),
			Price:     decimal.NewFromFloat(p.Price),
			Returns:   p.Returns,
		})
	}
	// 未显式给出组合市值时按头寸汇总
	if d.TotalValue == 0 && len(snapshot.Positions) > 0 {
		snapshot.TotalValue = snapshot.MarketValue()
	}
	return snapshot
}

// VaRRequest 在险价值计算请求
type VaRRequest struct {
	PortfolioData   PortfolioData `json:"portfolio_data" binding:"required"`
	ConfidenceLevel float64       `json:"confidence_level" binding:"required"`
	TimeHorizon     float64       `json:"time_horizon" binding:"required"`
	NumSimulations  int           `json:"num_simulations,omitempty"`
	Seed            int64         `json:"seed,omitempty"`
}

// ExpectedShortfallRequest 预期亏损计算请求
type ExpectedShortfallRequest struct {
	PortfolioData   PortfolioData `json:"portfolio_data" binding:"required"`
	ConfidenceLevel float64       `json:"confidence_level" binding:"required"`
	TimeHorizon     float64       `json:"time_horizon" binding:"required"`
	Method          string        `json:"method,omitempty"`
	NumSimulations  int           `json:"num_simulations,omitempty"`
	Seed            int64         `json:"seed,omitempty"`
}

// VaRResponse 计算结果
type VaRResponse struct {
	PortfolioID      string  `json:"portfolio_id"`
	VaRValue         string  `json:"var_value"`
	Method           string  `json:"method"`
	ConfidenceLevel  float64 `json:"confidence_level"`
	TimeHorizon      float64 `json:"time_horizon"`
	Degraded         bool    `json:"degraded,omitempty"`
	LowSampleWarning bool    `json:"low_sample_warning,omitempty"`
}

func varResponse(portfolioID string, res *domain.VaRResult) *VaRResponse {
	return &VaRResponse{
		PortfolioID:      portfolioID,
		VaRValue:         res.Value.String(),
		Method:           res.Method,
		ConfidenceLevel:  res.Confidence,
		TimeHorizon:      res.Horizon,
		Degraded:         res.Degraded,
		LowSampleWarning: res.LowSample,
	}
}

// ScenarioData 压力情景传输对象
type ScenarioData struct {
	Name        string  `json:"name" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	ShockFactor float64 `json:"shock_factor,omitempty"`
	SpikeFactor float64 `json:"spike_factor,omitempty"`
}

func (d *ScenarioData) toDomain() domain.StressScenario {
	return domain.StressScenario{
		Name:        d.Name,
		Type:        domain.ScenarioType(d.Type),
		ShockFactor: d.ShockFactor,
		SpikeFactor: d.SpikeFactor,
	}
}

// StressTestRequest 压力测试请求
type StressTestRequest struct {
	PortfolioData   PortfolioData  `json:"portfolio_data" binding:"required"`
	StressScenarios []ScenarioData `json:"stress_scenarios" binding:"required"`
}

// ScenarioAnalysisRequest 情景分析请求，情景缺省时使用内置情景库
type ScenarioAnalysisRequest struct {
	PortfolioData PortfolioData  `json:"portfolio_data" binding:"required"`
	Scenarios     []ScenarioData `json:"scenarios,omitempty"`
}

// StressImpactData 单情景结果
type StressImpactData struct {
	Scenario  string `json:"scenario"`
	Type      string `json:"type"`
	PreValue  string `json:"pre_value"`
	PostValue string `json:"post_value"`
	PnL       string `json:"pnl"`
	Degraded  bool   `json:"degraded,omitempty"`
}

func stressImpactData(impact *domain.StressImpact) *StressImpactData {
	return &StressImpactData{
		Scenario:  impact.Scenario,
		Type:      string(impact.Type),
		PreValue:  impact.PreValue.String(),
		PostValue: impact.PostValue.String(),
		PnL:       impact.PnL.String(),
		Degraded:  impact.Degraded,
	}
}

// StressTestResponse 压力测试结果
type StressTestResponse struct {
	PortfolioID string                       `json:"portfolio_id"`
	Results     map[string]*StressImpactData `json:"results"`
}

// ScenarioAnalysisResponse 情景分析结果
type ScenarioAnalysisResponse struct {
	PortfolioID string                       `json:"portfolio_id"`
	Results     map[string]*StressImpactData `json:"results"`
	WorstCase   string                       `json:"worst_case"`
	WorstPnL    string                       `json:"worst_pnl"`
}

// RiskReportRequest 风险报告请求
type RiskReportRequest struct {
	PortfolioData PortfolioData `json:"portfolio_data" binding:"required"`
	ReportType    string        `json:"report_type,omitempty"`
	Seed          int64         `json:"seed,omitempty"`
}

// SimulationRequest 异步模拟提交请求
type SimulationRequest struct {
	PortfolioData   PortfolioData `json:"portfolio_data" binding:"required"`
	ConfidenceLevel float64       `json:"confidence_level,omitempty"`
	TimeHorizon     float64       `json:"time_horizon,omitempty"`
	NumSimulations  int           `json:"num_simulations,omitempty"`
	Seed            int64         `json:"seed,omitempty"`
	Correlations    [][]float64   `json:"correlations,omitempty"`
}

// SubmitSimulationResponse 提交受理回执
type SubmitSimulationResponse struct {
	SimulationID string `json:"simulation_id"`
	Status       string `json:"status"`
}

// SimulationStatusResponse 任务状态查询结果
type SimulationStatusResponse struct {
	SimulationID string `json:"simulation_id"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}
