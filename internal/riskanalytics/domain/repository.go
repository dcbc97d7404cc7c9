package domain

import (
	"context"
	"time"
)

// MetricsReadRepository 最新风险指标的读模型缓存
type MetricsReadRepository interface {
	Save(ctx context.Context, metrics *RiskMetrics) error
	// Get 未命中时返回 (nil, nil)
	Get(ctx context.Context, portfolioID string) (*RiskMetrics, error)
	Delete(ctx context.Context, portfolioID string) error
}

// MetricsHistoryRepository 风险指标历史留痕
type MetricsHistoryRepository interface {
	Append(ctx context.Context, metrics *RiskMetrics) error
	LatestByPortfolio(ctx context.Context, portfolioID string) (*RiskMetrics, error)
	ListByPortfolio(ctx context.Context, portfolioID string, limit int) ([]*RiskMetrics, error)
}

// JobRepository 模拟任务登记表
// Update 在仓储锁内执行 fn，保证状态转换原子性
type JobRepository interface {
	Save(ctx context.Context, job *SimulationJob) error
	Get(ctx context.Context, jobID string) (*SimulationJob, error)
	Update(ctx context.Context, jobID string, fn func(*SimulationJob)) (*SimulationJob, error)
	Delete(ctx context.Context, jobID string) error
	// SweepExpired 清理完成时间早于 now-ttl 的终态任务，返回清理数量
	SweepExpired(ctx context.Context, now time.Time, ttl time.Duration) (int, error)
}
