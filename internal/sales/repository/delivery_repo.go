package repository

import (
	"context"
	"errors"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"gorm.io/gorm"
)

// DeliveryOrderRepository 发货单仓库
type DeliveryOrderRepository struct {
	db *gorm.DB
}

func NewDeliveryOrderRepository(db *gorm.DB) *DeliveryOrderRepository {
	return &DeliveryOrderRepository{db: db}
}

// FindByID 根据ID查找发货单（含明细与附件）
func (r *DeliveryOrderRepository) FindByID(ctx context.Context, id string) (*entity.DeliveryOrder, error) {
	var do entity.DeliveryOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Attachments").
		Where("id = ?", id).
		First(&do).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &do, nil
}

// List 发货单列表
func (r *DeliveryOrderRepository) List(ctx context.Context, params DocListParams) ([]entity.DeliveryOrder, int64, error) {
	var items []entity.DeliveryOrder
	var total int64

	query := applyDocFilters(r.db.WithContext(ctx).Model(&entity.DeliveryOrder{}), params)
	if params.SalesPersonID != "" {
		query = query.Where("assignee_id = ?", params.SalesPersonID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, params).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Find(&items).Error
	return items, total, err
}

// FindActiveBySalesOrder 查询引用某销售订单且未取消的发货单（含明细）。
// 履约台账每次读取都基于这组行重新聚合。
func (r *DeliveryOrderRepository) FindActiveBySalesOrder(ctx context.Context, salesOrderID string) ([]entity.DeliveryOrder, error) {
	return findActiveBySalesOrder(r.db.WithContext(ctx), salesOrderID)
}

// FindActiveBySalesOrderTx 事务内版本，发货建单前的余量复核用
func (r *DeliveryOrderRepository) FindActiveBySalesOrderTx(tx *gorm.DB, salesOrderID string) ([]entity.DeliveryOrder, error) {
	return findActiveBySalesOrder(tx, salesOrderID)
}

func findActiveBySalesOrder(db *gorm.DB, salesOrderID string) ([]entity.DeliveryOrder, error) {
	var orders []entity.DeliveryOrder
	err := db.
		Preload("Items").
		Where("sales_order_id = ? AND status <> ?", salesOrderID, entity.StatusKeyCancelled).
		Find(&orders).Error
	return orders, err
}

// Create 创建发货单（含明细，由调用方事务传入）
func (r *DeliveryOrderRepository) Create(tx *gorm.DB, do *entity.DeliveryOrder) error {
	return tx.Create(do).Error
}

// UpdateStatus 仅更新状态字段
func (r *DeliveryOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.DeliveryOrder{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Delete 软删除发货单
func (r *DeliveryOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.DeliveryOrder{}).Error
}

// CreateAttachment 登记附件
func (r *DeliveryOrderRepository) CreateAttachment(ctx context.Context, a *entity.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListAttachments 查询附件列表
func (r *DeliveryOrderRepository) ListAttachments(ctx context.Context, deliveryOrderID string) ([]entity.Attachment, error) {
	var items []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("delivery_order_id = ?", deliveryOrderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
