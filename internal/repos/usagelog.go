package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

type UsageCount struct {
	ServiceName string `json:"service_name"`
	Endpoint    string `json:"endpoint"`
	Count       int64  `json:"count"`
}

type UsageLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, logs []*types.UsageLog) ([]*types.UsageLog, error)
	CountByServiceAndEndpoint(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]UsageCount, error)
}

type usageLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageLogRepo(db *gorm.DB, baseLog *logger.Logger) UsageLogRepo {
	repoLog := baseLog.With("repo", "UsageLogRepo")
	return &usageLogRepo{db: db, log: repoLog}
}

func (r *usageLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.UsageLog) ([]*types.UsageLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(logs) == 0 {
		return []*types.UsageLog{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *usageLogRepo) CountByServiceAndEndpoint(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]UsageCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []UsageCount
	if err := transaction.WithContext(ctx).
		Model(&types.UsageLog{}).
		Select("service_name, endpoint, COUNT(*) AS count").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Group("service_name, endpoint").
		Order("count DESC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
