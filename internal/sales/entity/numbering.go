package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResetPeriod 编号计数器归零周期
const (
	ResetNever   = "never"
	ResetDaily   = "daily"
	ResetMonthly = "monthly"
	ResetYearly  = "yearly"
)

// IsValidResetPeriod 校验归零周期
func IsValidResetPeriod(p string) bool {
	switch p {
	case ResetNever, ResetDaily, ResetMonthly, ResetYearly:
		return true
	}
	return false
}

// NumberingSetting 单据编号设置（每组织、每单据类型一条）
type NumberingSetting struct {
	ID             string          `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID          string          `json:"org_id" gorm:"size:64;not null;uniqueIndex:idx_numbering_org_type,priority:1"`
	DocType        string          `json:"doc_type" gorm:"size:20;not null;uniqueIndex:idx_numbering_org_type,priority:2"`
	FormatTemplate string          `json:"format_template" gorm:"size:100;not null"`
	ResetPeriod    string          `json:"reset_period" gorm:"size:10;not null;default:monthly"`
	DefaultTaxRate decimal.Decimal `json:"default_tax_rate" gorm:"type:decimal(5,2);not null;default:0"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (NumberingSetting) TableName() string {
	return "sales_numbering_settings"
}

// NumberingCounter 编号计数器。
// PeriodKey 标识归零窗口（never 为空串，daily=20060102，monthly=200601，yearly=2006），
// 同一窗口内 Value 严格递增；递增必须在单据插入所在的事务内对该行加锁完成，
// 保证并发创建不会领到相同编号。
type NumberingCounter struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID     string    `json:"org_id" gorm:"size:64;not null;uniqueIndex:idx_counter_org_type_period,priority:1"`
	DocType   string    `json:"doc_type" gorm:"size:20;not null;uniqueIndex:idx_counter_org_type_period,priority:2"`
	PeriodKey string    `json:"period_key" gorm:"size:10;not null;default:'';uniqueIndex:idx_counter_org_type_period,priority:3"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NumberingCounter) TableName() string {
	return "sales_numbering_counters"
}
