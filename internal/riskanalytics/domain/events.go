package domain

import "time"

// 领域事件，经由消息总线广播给下游风控与清算系统

// RiskReportGeneratedEvent 风险报告生成完毕
type RiskReportGeneratedEvent struct {
	ReportID          string    `json:"report_id"`
	PortfolioID       string    `json:"portfolio_id"`
	VaR95             string    `json:"var_95"`
	VaR99             string    `json:"var_99"`
	ExpectedShortfall string    `json:"expected_shortfall"`
	Degraded          bool      `json:"degraded"`
	OccurredOn        time.Time `json:"occurred_on"`
}

// SimulationCompletedEvent 异步模拟任务完成
type SimulationCompletedEvent struct {
	JobID       string    `json:"job_id"`
	PortfolioID string    `json:"portfolio_id"`
	VaR95       string    `json:"var_95"`
	VaR99       string    `json:"var_99"`
	DurationMs  int64     `json:"duration_ms"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// SimulationFailedEvent 异步模拟任务失败
type SimulationFailedEvent struct {
	JobID       string    `json:"job_id"`
	PortfolioID string    `json:"portfolio_id"`
	Reason      string    `json:"reason"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// StressTestBreachedEvent 压力情景损失超过预警阈值
type StressTestBreachedEvent struct {
	PortfolioID string    `json:"portfolio_id"`
	Scenario    string    `json:"scenario"`
	PnL         string    `json:"pnl"`
	LossRatio   string    `json:"loss_ratio"`
	OccurredOn  time.Time `json:"occurred_on"`
}
