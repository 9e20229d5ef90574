package repository

import (
	"context"
	"errors"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"gorm.io/gorm"
)

// QuotationRepository 报价单仓库
type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

// FindByID 根据ID查找报价单（含明细）。组织归属由服务层校验。
func (r *QuotationRepository) FindByID(ctx context.Context, id string) (*entity.Quotation, error) {
	var q entity.Quotation
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("id = ?", id).
		First(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// List 报价单列表
func (r *QuotationRepository) List(ctx context.Context, params DocListParams) ([]entity.Quotation, int64, error) {
	var items []entity.Quotation
	var total int64

	query := applyDocFilters(r.db.WithContext(ctx).Model(&entity.Quotation{}), params)
	if params.SalesPersonID != "" {
		query = query.Where("sales_person_id = ?", params.SalesPersonID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, params).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Find(&items).Error
	return items, total, err
}

// Create 创建报价单（含明细，由调用方事务传入）
func (r *QuotationRepository) Create(tx *gorm.DB, q *entity.Quotation) error {
	return tx.Create(q).Error
}

// Update 更新报价单，整组替换明细
func (r *QuotationRepository) Update(ctx context.Context, q *entity.Quotation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quotation_id = ?", q.ID).Delete(&entity.QuotationItem{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(q).Error
	})
}

// Delete 软删除报价单
func (r *QuotationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Quotation{}).Error
}
