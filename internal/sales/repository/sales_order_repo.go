package repository

import (
	"context"
	"errors"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SalesOrderRepository 销售订单仓库
type SalesOrderRepository struct {
	db *gorm.DB
}

func NewSalesOrderRepository(db *gorm.DB) *SalesOrderRepository {
	return &SalesOrderRepository{db: db}
}

// FindByID 根据ID查找销售订单（含明细）
func (r *SalesOrderRepository) FindByID(ctx context.Context, id string) (*entity.SalesOrder, error) {
	return findSO(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate 在调用方事务内加 FOR UPDATE 锁查找销售订单。
// 发货单创建前的余量复核靠这把锁与其他写入者串行化。
func (r *SalesOrderRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*entity.SalesOrder, error) {
	var locked entity.SalesOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&locked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return findSO(tx, id)
}

func findSO(db *gorm.DB, id string) (*entity.SalesOrder, error) {
	var so entity.SalesOrder
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("id = ?", id).
		First(&so).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &so, nil
}

// List 销售订单列表
func (r *SalesOrderRepository) List(ctx context.Context, params DocListParams) ([]entity.SalesOrder, int64, error) {
	var items []entity.SalesOrder
	var total int64

	query := applyDocFilters(r.db.WithContext(ctx).Model(&entity.SalesOrder{}), params)
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

// FindByQuotation 查询由某报价单转换生成的销售订单
func (r *SalesOrderRepository) FindByQuotation(ctx context.Context, orgID, quotationID string) ([]entity.SalesOrder, error) {
	var orders []entity.SalesOrder
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND quotation_id = ?", orgID, quotationID).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// Create 创建销售订单（含明细，由调用方事务传入）
func (r *SalesOrderRepository) Create(tx *gorm.DB, so *entity.SalesOrder) error {
	return tx.Create(so).Error
}

// Update 更新销售订单，整组替换明细
func (r *SalesOrderRepository) Update(ctx context.Context, so *entity.SalesOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sales_order_id = ?", so.ID).Delete(&entity.SalesOrderItem{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(so).Error
	})
}

// UpdateStatus 仅更新状态字段
func (r *SalesOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.SalesOrder{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Delete 软删除销售订单
func (r *SalesOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.SalesOrder{}).Error
}
