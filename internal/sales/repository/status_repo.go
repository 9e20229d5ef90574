package repository

import (
	"context"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"gorm.io/gorm"
)

// StatusRepository 状态定义仓库
type StatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// ListByType 查询某组织某单据类型的状态定义（按 sort_order 排序）
func (r *StatusRepository) ListByType(ctx context.Context, orgID, docType string) ([]entity.StatusDefinition, error) {
	return listByType(r.db.WithContext(ctx), orgID, docType)
}

// ListByTypeTx 事务内版本，整表替换前读取现有配置用
func (r *StatusRepository) ListByTypeTx(tx *gorm.DB, orgID, docType string) ([]entity.StatusDefinition, error) {
	return listByType(tx, orgID, docType)
}

func listByType(db *gorm.DB, orgID, docType string) ([]entity.StatusDefinition, error) {
	var defs []entity.StatusDefinition
	err := db.
		Where("org_id = ? AND doc_type = ?", orgID, docType).
		Order("sort_order ASC").
		Find(&defs).Error
	return defs, err
}

// ReplaceAll 整表替换某组织某单据类型的状态定义。
// 删除与插入在同一事务内，校验失败由调用方在事务前拦截。
func (r *StatusRepository) ReplaceAll(ctx context.Context, orgID, docType string, defs []entity.StatusDefinition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAll(tx, orgID, docType, defs)
	})
}

// ReplaceAllTx 事务内版本，删除保护复核与替换同一事务时用
func (r *StatusRepository) ReplaceAllTx(tx *gorm.DB, orgID, docType string, defs []entity.StatusDefinition) error {
	return replaceAll(tx, orgID, docType, defs)
}

func replaceAll(tx *gorm.DB, orgID, docType string, defs []entity.StatusDefinition) error {
	if err := tx.Where("org_id = ? AND doc_type = ?", orgID, docType).
		Delete(&entity.StatusDefinition{}).Error; err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}
	return tx.Create(&defs).Error
}

// CountDocumentsWithStatus 统计某状态键被多少张现存单据引用。
// 用于状态删除保护：被引用的状态不允许从配置中移除。
func (r *StatusRepository) CountDocumentsWithStatus(ctx context.Context, orgID, docType, key string) (int64, error) {
	return countDocumentsWithStatus(r.db.WithContext(ctx), orgID, docType, key)
}

// CountDocumentsWithStatusTx 事务内版本
func (r *StatusRepository) CountDocumentsWithStatusTx(tx *gorm.DB, orgID, docType, key string) (int64, error) {
	return countDocumentsWithStatus(tx, orgID, docType, key)
}

func countDocumentsWithStatus(db *gorm.DB, orgID, docType, key string) (int64, error) {
	var model interface{}
	switch docType {
	case entity.DocTypeQuotation:
		model = &entity.Quotation{}
	case entity.DocTypeSalesOrder:
		model = &entity.SalesOrder{}
	case entity.DocTypeDeliveryOrder:
		model = &entity.DeliveryOrder{}
	case entity.DocTypeInvoice:
		model = &entity.Invoice{}
	default:
		return 0, nil
	}

	var count int64
	err := db.Model(model).
		Where("org_id = ? AND status = ?", orgID, key).
		Count(&count).Error
	return count, err
}
