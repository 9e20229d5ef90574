package entity

import "time"

// StatusDefinition 状态定义（每组织、每单据类型一套可配置状态流）
//
// Key 是稳定引用：单据的 status 字段存储 Key，展示用 Label/Color。
// IsCompleted 仅对报价单和销售订单有意义，表示"该状态下单据金额计入已实现营收"；
// 同一组织同一单据类型下必须恰好有一个 IsCompleted=true 的状态。
type StatusDefinition struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID       string    `json:"org_id" gorm:"size:64;not null;uniqueIndex:idx_status_org_type_key,priority:1"`
	DocType     string    `json:"doc_type" gorm:"size:20;not null;uniqueIndex:idx_status_org_type_key,priority:2"`
	Key         string    `json:"key" gorm:"size:50;not null;uniqueIndex:idx_status_org_type_key,priority:3"`
	Label       string    `json:"label" gorm:"size:100;not null"`
	Color       string    `json:"color" gorm:"size:20"`
	SortOrder   int       `json:"sort_order" gorm:"not null;default:0"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	IsCompleted bool      `json:"is_completed" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (StatusDefinition) TableName() string {
	return "sales_status_definitions"
}

// HasCompletionFlag 该单据类型的状态流是否携带完成标记。
// 发货单与发票的"完成"由结构性事实（全部发货、全部收款）体现，不走状态标记。
func HasCompletionFlag(docType string) bool {
	return docType == DocTypeQuotation || docType == DocTypeSalesOrder
}
