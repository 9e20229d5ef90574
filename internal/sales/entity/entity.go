package entity

import "gorm.io/gorm"

// DocType 单据类型
const (
	DocTypeQuotation     = "quotation"
	DocTypeSalesOrder    = "sales_order"
	DocTypeDeliveryOrder = "delivery_order"
	DocTypeInvoice       = "invoice"
)

// DocTypes 单据类型列表（按链路顺序）
var DocTypes = []string{
	DocTypeQuotation,
	DocTypeSalesOrder,
	DocTypeDeliveryOrder,
	DocTypeInvoice,
}

// StatusKeyCancelled 保留状态键：取消。
// 履约台账与转换前置检查都以该键判断单据是否作废，
// 因此状态配置不允许删除或改写该键。
const StatusKeyCancelled = "cancelled"

// IsValidDocType 校验单据类型
func IsValidDocType(t string) bool {
	switch t {
	case DocTypeQuotation, DocTypeSalesOrder, DocTypeDeliveryOrder, DocTypeInvoice:
		return true
	}
	return false
}

// AutoMigrate 自动迁移所有销售模块表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 配置
		&StatusDefinition{},
		&NumberingSetting{},
		&NumberingCounter{},

		// 单据链
		&Quotation{},
		&QuotationItem{},
		&SalesOrder{},
		&SalesOrderItem{},
		&DeliveryOrder{},
		&DeliveryOrderItem{},
		&Invoice{},
		&InvoiceItem{},

		// 收款与附件
		&Payment{},
		&Attachment{},
	)
}
