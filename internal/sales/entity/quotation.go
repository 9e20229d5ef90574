package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quotation 报价单
type Quotation struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID           string          `json:"org_id" gorm:"size:64;not null;index"`
	Code            string          `json:"code" gorm:"size:50;not null;uniqueIndex"`
	CustomerID      string          `json:"customer_id" gorm:"size:64;not null;index"`
	CustomerName    string          `json:"customer_name" gorm:"size:200"`
	SalesPersonID   string          `json:"sales_person_id" gorm:"size:64;index"`
	SalesPersonName string          `json:"sales_person_name" gorm:"size:100"`
	Status          string          `json:"status" gorm:"size:50;not null;index"`
	DocDate         *time.Time      `json:"doc_date"`
	ValidUntil      *time.Time      `json:"valid_until"`
	Currency        string          `json:"currency" gorm:"size:10;not null;default:IDR"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(18,4);not null;default:0"`
	OrderDiscount   decimal.Decimal `json:"order_discount" gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate         decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,2);not null;default:0"`
	TaxAmount       decimal.Decimal `json:"tax_amount" gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(18,4);not null;default:0"`
	Notes           string          `json:"notes" gorm:"type:text"`
	CreatedBy       string          `json:"created_by" gorm:"size:64;not null"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`

	Items []QuotationItem `json:"items,omitempty" gorm:"foreignKey:QuotationID"`
}

func (Quotation) TableName() string {
	return "sales_quotations"
}

// QuotationItem 报价单明细。
// ProductName/Unit 在创建时快照，商品目录后续变更不影响历史单据。
type QuotationItem struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	QuotationID     string          `json:"quotation_id" gorm:"type:uuid;not null;index"`
	ProductID       string          `json:"product_id" gorm:"size:64;not null"`
	ProductName     string          `json:"product_name" gorm:"size:200"`
	Unit            string          `json:"unit" gorm:"size:20"`
	Quantity        decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:decimal(18,4);not null"`
	DiscountPercent decimal.Decimal `json:"discount_percent" gorm:"type:decimal(5,2);not null;default:0"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" gorm:"type:decimal(18,4);not null;default:0"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(18,4);not null"`
	SortOrder       int             `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (QuotationItem) TableName() string {
	return "sales_quotation_items"
}
