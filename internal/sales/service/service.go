package service

import (
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
)

// Services 销售模块服务集合
type Services struct {
	Status      *StatusService
	Numbering   *NumberingService
	Quotation   *QuotationService
	SalesOrder  *SalesOrderService
	Fulfillment *FulfillmentService
	Delivery    *DeliveryService
	Invoice     *InvoiceService
}

// NewServices 创建销售模块服务集合。
// rdb、minioClient 允许为 nil（未配置时相关能力降级）。
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, minioClient *minio.Client, bucket string) *Services {
	status := NewStatusService(repos.Status, db, rdb)
	numbering := NewNumberingService(repos.Numbering)
	fulfillment := NewFulfillmentService(repos.SalesOrder, repos.DeliveryOrder)

	return &Services{
		Status:      status,
		Numbering:   numbering,
		Fulfillment: fulfillment,
		Quotation:   NewQuotationService(repos.Quotation, repos.SalesOrder, status, numbering, db),
		SalesOrder:  NewSalesOrderService(repos.SalesOrder, repos.Quotation, status, numbering, db),
		Delivery:    NewDeliveryService(repos.DeliveryOrder, repos.SalesOrder, fulfillment, status, numbering, db, minioClient, bucket),
		Invoice:     NewInvoiceService(repos.Invoice, repos.SalesOrder, repos.DeliveryOrder, status, numbering, db),
	}
}

// LineItemInput 带价明细入参（报价单、销售订单、发票共用）。
// 金额字段在边界处转为 decimal，小计一律服务端重算。
type LineItemInput struct {
	ProductID       string  `json:"product_id" binding:"required"`
	ProductName     string  `json:"product_name"`
	Unit            string  `json:"unit"`
	Quantity        float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" binding:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" binding:"gte=0,lte=100"`
	DiscountAmount  float64 `json:"discount_amount" binding:"gte=0"`
}

// DeliveryItemInput 发货明细入参（无价格）
type DeliveryItemInput struct {
	ProductID   string  `json:"product_id" binding:"required"`
	ProductName string  `json:"product_name"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
}

var hundred = decimal.NewFromInt(100)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// parseDocDate 解析 2006-01-02 形式的单据日期，空串返回 nil
func parseDocDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, validationErr("日期格式错误，应为 YYYY-MM-DD: %s", s)
	}
	return &t, nil
}
