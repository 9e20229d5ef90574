package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryOrder 发货单。不携带价格，只记录对销售订单的实物交付；
// 一张销售订单可以被多张发货单分批履约。
type DeliveryOrder struct {
	ID           string         `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID        string         `json:"org_id" gorm:"size:64;not null;index"`
	Code         string         `json:"code" gorm:"size:50;not null;uniqueIndex"`
	SalesOrderID *string        `json:"sales_order_id" gorm:"type:uuid;index"`
	CustomerID   string         `json:"customer_id" gorm:"size:64;not null;index"`
	CustomerName string         `json:"customer_name" gorm:"size:200"`
	AssigneeID   string         `json:"assignee_id" gorm:"size:64;index"`
	AssigneeName string         `json:"assignee_name" gorm:"size:100"`
	Status       string         `json:"status" gorm:"size:50;not null;index"`
	DocDate      *time.Time     `json:"doc_date"`
	Notes        string         `json:"notes" gorm:"type:text"`
	CreatedBy    string         `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Items       []DeliveryOrderItem `json:"items,omitempty" gorm:"foreignKey:DeliveryOrderID"`
	Attachments []Attachment        `json:"attachments,omitempty" gorm:"foreignKey:DeliveryOrderID"`
}

func (DeliveryOrder) TableName() string {
	return "sales_delivery_orders"
}

// DeliveryOrderItem 发货单明细
type DeliveryOrderItem struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	DeliveryOrderID string          `json:"delivery_order_id" gorm:"type:uuid;not null;index"`
	ProductID       string          `json:"product_id" gorm:"size:64;not null"`
	ProductName     string          `json:"product_name" gorm:"size:200"`
	Unit            string          `json:"unit" gorm:"size:20"`
	Quantity        decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"`
	SortOrder       int             `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (DeliveryOrderItem) TableName() string {
	return "sales_delivery_order_items"
}

// Attachment 发货单附件（签收凭证等），文件本体存 MinIO
type Attachment struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID           string    `json:"org_id" gorm:"size:64;not null;index"`
	DeliveryOrderID string    `json:"delivery_order_id" gorm:"type:uuid;not null;index"`
	ObjectKey       string    `json:"object_key" gorm:"size:500;not null"`
	Filename        string    `json:"filename" gorm:"size:255;not null"`
	Size            int64     `json:"size" gorm:"not null;default:0"`
	ContentType     string    `json:"content_type" gorm:"size:100"`
	CreatedBy       string    `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Attachment) TableName() string {
	return "sales_delivery_attachments"
}
