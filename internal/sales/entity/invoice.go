package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice 发票。可以从销售订单或发货单转换生成，也可以独立创建。
// AmountPaid/AmountDue 不落库，读取时由收款台账按收款行实时汇总。
type Invoice struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID           string          `json:"org_id" gorm:"size:64;not null;index"`
	Code            string          `json:"code" gorm:"size:50;not null;uniqueIndex"`
	SalesOrderID    *string         `json:"sales_order_id" gorm:"type:uuid;index"`
	DeliveryOrderID *string         `json:"delivery_order_id" gorm:"type:uuid;index"`
	CustomerID      string          `json:"customer_id" gorm:"size:64;not null;index"`
	CustomerName    string          `json:"customer_name" gorm:"size:200"`
	SalesPersonID   string          `json:"sales_person_id" gorm:"size:64;index"`
	SalesPersonName string          `json:"sales_person_name" gorm:"size:100"`
	Status          string          `json:"status" gorm:"size:50;not null;index"`
	DocDate         *time.Time      `json:"doc_date"`
	DueDate         *time.Time      `json:"due_date"`
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

	Items    []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (Invoice) TableName() string {
	return "sales_invoices"
}

// InvoiceItem 发票明细
type InvoiceItem struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	InvoiceID       string          `json:"invoice_id" gorm:"type:uuid;not null;index"`
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

func (InvoiceItem) TableName() string {
	return "sales_invoice_items"
}

// Payment 收款记录。只增删不改：更正收款采用删除后重新录入。
type Payment struct {
	ID          string          `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID       string          `json:"org_id" gorm:"size:64;not null;index"`
	InvoiceID   string          `json:"invoice_id" gorm:"type:uuid;not null;index"`
	PaidAt      time.Time       `json:"paid_at" gorm:"not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Method      string          `json:"method" gorm:"size:50;not null"`
	ReferenceNo string          `json:"reference_no" gorm:"size:100"`
	Notes       string          `json:"notes" gorm:"type:text"`
	CreatedBy   string          `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (Payment) TableName() string {
	return "sales_payments"
}
