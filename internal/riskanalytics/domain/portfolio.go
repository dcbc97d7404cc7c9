package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position 能源商品头寸
// Quantity 为负代表空头
type Position struct {
	Commodity string          `json:"commodity"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	// Returns 该商品的历史收益序列，蒙特卡洛估计波动率与相关性时使用
	Returns []float64 `json:"returns,omitempty"`
}

// MarketValue 头寸市值 = 数量 * 价格
func (p *Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.Price)
}

// PortfolioSnapshot 投资组合快照，风险计算的输入
type PortfolioSnapshot struct {
	PortfolioID string          `json:"portfolio_id"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Positions   []Position      `json:"positions"`
	// HistoricalReturns 组合层面的历史收益序列（每期一个观测）
	HistoricalReturns []float64 `json:"historical_returns,omitempty"`
	// Volatility 年化波动率，为零时从 HistoricalReturns 估计
	Volatility float64   `json:"volatility,omitempty"`
	AsOf       time.Time `json:"as_of,omitempty"`
}

// Validate 校验快照参数
func (p *PortfolioSnapshot) Validate() error {
	if p.PortfolioID == "" {
		return NewInvalidParameterError("portfolio_id is required")
	}
	if p.TotalValue.LessThanOrEqual(decimal.Zero) {
		return NewInvalidParameterError("total_value must be positive, got %s", p.TotalValue)
	}
	if len(p.Positions) == 0 {
		return NewInvalidParameterError("portfolio %s has no positions", p.PortfolioID)
	}
	for i := range p.Positions {
		pos := &p.Positions[i]
		if pos.Commodity == "" {
			return NewInvalidParameterError("position %d missing commodity", i)
		}
		if pos.Price.IsNegative() {
			return NewInvalidParameterError("position %s has negative price %s", pos.Commodity, pos.Price)
		}
	}
	return nil
}

// MarketValue 按头寸重估的组合市值
func (p *PortfolioSnapshot) MarketValue() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Positions {
		total = total.Add(p.Positions[i].MarketValue())
	}
	return total
}

// AnnualVolatility 返回组合年化波动率
// 显式给定时直接使用，否则从历史收益估计，两者皆无则返回数据不足错误
func (p *PortfolioSnapshot) AnnualVolatility() (float64, error) {
	if p.Volatility > 0 {
		return p.Volatility, nil
	}
	return Volatility(p.HistoricalReturns, DefaultAnnualization)
}
