package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// DocListParams 单据列表查询参数（四种单据通用）
type DocListParams struct {
	OrgID         string
	CustomerID    string
	SalesPersonID string
	Status        string
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	PageSize      int
}

func applyDocFilters(query *gorm.DB, params DocListParams) *gorm.DB {
	query = query.Where("org_id = ?", params.OrgID)
	if params.CustomerID != "" {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.DateFrom != nil {
		query = query.Where("doc_date >= ?", params.DateFrom)
	}
	if params.DateTo != nil {
		query = query.Where("doc_date <= ?", params.DateTo)
	}
	return query
}

func paginate(query *gorm.DB, params DocListParams) *gorm.DB {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize)
}

// Repositories 销售模块仓库集合
type Repositories struct {
	Status        *StatusRepository
	Numbering     *NumberingRepository
	Quotation     *QuotationRepository
	SalesOrder    *SalesOrderRepository
	DeliveryOrder *DeliveryOrderRepository
	Invoice       *InvoiceRepository
}

// NewRepositories 创建销售模块仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Status:        NewStatusRepository(db),
		Numbering:     NewNumberingRepository(db),
		Quotation:     NewQuotationRepository(db),
		SalesOrder:    NewSalesOrderRepository(db),
		DeliveryOrder: NewDeliveryOrderRepository(db),
		Invoice:       NewInvoiceRepository(db),
	}
}
