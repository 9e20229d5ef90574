package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberingRepository 编号设置与计数器仓库
type NumberingRepository struct {
	db *gorm.DB
}

func NewNumberingRepository(db *gorm.DB) *NumberingRepository {
	return &NumberingRepository{db: db}
}

// GetSetting 查询编号设置
func (r *NumberingRepository) GetSetting(ctx context.Context, orgID, docType string) (*entity.NumberingSetting, error) {
	var s entity.NumberingSetting
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND doc_type = ?", orgID, docType).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SaveSetting 新建或更新编号设置
func (r *NumberingRepository) SaveSetting(ctx context.Context, s *entity.NumberingSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "doc_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"format_template", "reset_period", "default_tax_rate", "updated_at"}),
		}).
		Create(s).Error
}

// NextCounterValue 在调用方事务内领取下一个计数值。
// 计数行加 FOR UPDATE 锁，保证同一归零窗口内编号严格递增且不会被并发创建复用；
// 必须与单据插入处于同一事务。
func (r *NumberingRepository) NextCounterValue(tx *gorm.DB, orgID, docType, periodKey string) (int64, error) {
	var counter entity.NumberingCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND doc_type = ? AND period_key = ?", orgID, docType, periodKey).
		First(&counter).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		counter = entity.NumberingCounter{
			ID:        uuid.New().String(),
			OrgID:     orgID,
			DocType:   docType,
			PeriodKey: periodKey,
			Value:     0,
		}
		// 并发首次创建同一窗口时靠唯一索引兜底，冲突方重新加锁读取
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return 0, err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("org_id = ? AND doc_type = ? AND period_key = ?", orgID, docType, periodKey).
			First(&counter).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	counter.Value++
	if err := tx.Model(&entity.NumberingCounter{}).
		Where("id = ?", counter.ID).
		Update("value", counter.Value).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}
