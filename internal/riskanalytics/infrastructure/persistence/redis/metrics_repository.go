package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
)

type metricsReadRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewMetricsReadRepository 最新风险指标的 Redis 读模型，缓存 1 小时
func NewMetricsReadRepository(client redis.UniversalClient) domain.MetricsReadRepository {
	return &metricsReadRepository{
		client: client,
		prefix: "riskanalytics:",
		ttl:    1 * time.Hour,
	}
}

func (r *metricsReadRepository) Save(ctx context.Context, metrics *domain.RiskMetrics) error {
	if metrics == nil {
		return nil
	}
	key := fmt.Sprintf("%smetrics:%s", r.prefix, metrics.PortfolioID)
	data, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *metricsReadRepository) Get(ctx context.Context, portfolioID string) (*domain.RiskMetrics, error) {
	key := fmt.Sprintf("%smetrics:%s", r.prefix, portfolioID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var metrics domain.RiskMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (r *metricsReadRepository) Delete(ctx context.Context, portfolioID string) error {
	key := fmt.Sprintf("%smetrics:%s", r.prefix, portfolioID)
	return r.client.Del(ctx, key).Err()
}
