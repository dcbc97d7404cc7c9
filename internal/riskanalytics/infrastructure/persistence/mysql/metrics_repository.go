package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
)

type metricsHistoryRepository struct {
	db *gorm.DB
}

// NewMetricsHistoryRepository 创建并返回一个新的 MetricsHistoryRepository 实例。
func NewMetricsHistoryRepository(db *gorm.DB) domain.MetricsHistoryRepository {
	return &metricsHistoryRepository{db: db}
}

func (r *metricsHistoryRepository) Append(ctx context.Context, metrics *domain.RiskMetrics) error {
	if metrics == nil {
		return nil
	}
	record := *metrics
	record.ID = 0
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *metricsHistoryRepository) LatestByPortfolio(ctx context.Context, portfolioID string) (*domain.RiskMetrics, error) {
	var metrics domain.RiskMetrics
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("calculated_at DESC").
		First(&metrics).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (r *metricsHistoryRepository) ListByPortfolio(ctx context.Context, portfolioID string, limit int) ([]*domain.RiskMetrics, error) {
	var list []*domain.RiskMetrics
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("calculated_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
