package repository

import (
	"context"
	"errors"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceRepository 发票与收款仓库
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// FindByID 根据ID查找发票（含明细与收款记录）
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return findInvoice(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate 在调用方事务内加 FOR UPDATE 锁查找发票，
// 收款写入前的台账复核靠这把锁与其他写入者串行化。
func (r *InvoiceRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*entity.Invoice, error) {
	var locked entity.Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&locked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return findInvoice(tx, id)
}

func findInvoice(db *gorm.DB, id string) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC, created_at ASC") }).
		Where("id = ?", id).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// List 发票列表
func (r *InvoiceRepository) List(ctx context.Context, params DocListParams) ([]entity.Invoice, int64, error) {
	var items []entity.Invoice
	var total int64

	query := applyDocFilters(r.db.WithContext(ctx).Model(&entity.Invoice{}), params)
	if params.SalesPersonID != "" {
		query = query.Where("sales_person_id = ?", params.SalesPersonID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, params).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Payments").
		Find(&items).Error
	return items, total, err
}

// Create 创建发票（含明细，由调用方事务传入）
func (r *InvoiceRepository) Create(tx *gorm.DB, inv *entity.Invoice) error {
	return tx.Create(inv).Error
}

// Update 更新发票，整组替换明细
func (r *InvoiceRepository) Update(ctx context.Context, inv *entity.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&entity.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(inv).Error
	})
}

// UpdateStatus 仅更新状态字段
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Delete 软删除发票
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Invoice{}).Error
}

// CreatePayment 登记收款（由调用方事务传入）
func (r *InvoiceRepository) CreatePayment(tx *gorm.DB, p *entity.Payment) error {
	return tx.Create(p).Error
}

// FindPayment 查找收款记录
func (r *InvoiceRepository) FindPayment(ctx context.Context, invoiceID, paymentID string) (*entity.Payment, error) {
	var p entity.Payment
	err := r.db.WithContext(ctx).
		Where("id = ? AND invoice_id = ?", paymentID, invoiceID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DeletePayment 删除收款记录（收款只增删不改）
func (r *InvoiceRepository) DeletePayment(tx *gorm.DB, invoiceID, paymentID string) error {
	return tx.Where("id = ? AND invoice_id = ?", paymentID, invoiceID).
		Delete(&entity.Payment{}).Error
}
