package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
)

// NumberingService 单据编号服务。
// 模板令牌：YYYYMM／YYYY 替换为开票日期，连续的 # 替换为按宽度补零的计数值
// （只识别第一段 #）；其余文本原样保留——模板写错只会产生难看的编号，
// 绝不会在建单时报错拦单。
type NumberingService struct {
	repo *repository.NumberingRepository
}

func NewNumberingService(repo *repository.NumberingRepository) *NumberingService {
	return &NumberingService{repo: repo}
}

// 默认模板按单据类型给前缀，月度归零
var defaultTemplates = map[string]string{
	entity.DocTypeQuotation:     "QT-YYYYMM-####",
	entity.DocTypeSalesOrder:    "SO-YYYYMM-####",
	entity.DocTypeDeliveryOrder: "DO-YYYYMM-####",
	entity.DocTypeInvoice:       "INV-YYYYMM-####",
}

// FormatCode 按模板格式化单据编号（纯函数）
func FormatCode(template string, counter int64, t time.Time) string {
	out := template
	if strings.Contains(out, "YYYYMM") {
		out = strings.Replace(out, "YYYYMM", t.Format("200601"), 1)
	} else if strings.Contains(out, "YYYY") {
		out = strings.Replace(out, "YYYY", t.Format("2006"), 1)
	}

	start := strings.IndexByte(out, '#')
	if start < 0 {
		return out
	}
	end := start
	for end < len(out) && out[end] == '#' {
		end++
	}
	width := end - start
	return out[:start] + fmt.Sprintf("%0*d", width, counter) + out[end:]
}

// PeriodKey 计算归零窗口标识
func PeriodKey(resetPeriod string, t time.Time) string {
	switch resetPeriod {
	case entity.ResetDaily:
		return t.Format("20060102")
	case entity.ResetMonthly:
		return t.Format("200601")
	case entity.ResetYearly:
		return t.Format("2006")
	default:
		return ""
	}
}

// GetSetting 查询编号设置，未配置时返回默认值（不落库）
func (s *NumberingService) GetSetting(ctx context.Context, orgID, docType string) (*entity.NumberingSetting, error) {
	if !entity.IsValidDocType(docType) {
		return nil, validationErr("未知单据类型: %s", docType)
	}
	setting, err := s.repo.GetSetting(ctx, orgID, docType)
	if errors.Is(err, repository.ErrNotFound) {
		return &entity.NumberingSetting{
			OrgID:          orgID,
			DocType:        docType,
			FormatTemplate: defaultTemplates[docType],
			ResetPeriod:    entity.ResetMonthly,
			DefaultTaxRate: decimal.Zero,
		}, nil
	}
	return setting, err
}

// SaveSettingRequest 编号设置入参
type SaveSettingRequest struct {
	FormatTemplate string  `json:"format_template" binding:"required"`
	ResetPeriod    string  `json:"reset_period" binding:"required"`
	DefaultTaxRate float64 `json:"default_tax_rate" binding:"gte=0,lte=100"`
}

// SaveSetting 保存编号设置
func (s *NumberingService) SaveSetting(ctx context.Context, orgID, docType string, req *SaveSettingRequest) (*entity.NumberingSetting, error) {
	if !entity.IsValidDocType(docType) {
		return nil, validationErr("未知单据类型: %s", docType)
	}
	if !entity.IsValidResetPeriod(req.ResetPeriod) {
		return nil, validationErr("未知归零周期: %s", req.ResetPeriod)
	}

	setting := &entity.NumberingSetting{
		ID:             uuid.New().String(),
		OrgID:          orgID,
		DocType:        docType,
		FormatTemplate: req.FormatTemplate,
		ResetPeriod:    req.ResetPeriod,
		DefaultTaxRate: dec(req.DefaultTaxRate),
	}
	if err := s.repo.SaveSetting(ctx, setting); err != nil {
		return nil, fmt.Errorf("保存编号设置失败: %w", err)
	}
	return s.repo.GetSetting(ctx, orgID, docType)
}

// Preview 预览格式化结果，不分配也不持久化任何计数
func (s *NumberingService) Preview(template string, counter int64) string {
	return FormatCode(template, counter, time.Now())
}

// NextCode 在调用方事务内铸造下一个单据编号。
// 计数递增与单据插入同事务提交，回滚时编号随之作废。
func (s *NumberingService) NextCode(ctx context.Context, tx *gorm.DB, orgID, docType string, t time.Time) (string, error) {
	setting, err := s.GetSetting(ctx, orgID, docType)
	if err != nil {
		return "", err
	}
	value, err := s.repo.NextCounterValue(tx, orgID, docType, PeriodKey(setting.ResetPeriod, t))
	if err != nil {
		return "", fmt.Errorf("领取单据编号失败: %w", err)
	}
	return FormatCode(setting.FormatTemplate, value, t), nil
}

// DefaultTaxRate 查询默认税率（发票建单兜底用）
func (s *NumberingService) DefaultTaxRate(ctx context.Context, orgID, docType string) decimal.Decimal {
	setting, err := s.GetSetting(ctx, orgID, docType)
	if err != nil {
		return decimal.Zero
	}
	return setting.DefaultTaxRate
}
