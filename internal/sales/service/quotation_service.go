package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
)

// QuotationService 报价单服务
type QuotationService struct {
	repo      *repository.QuotationRepository
	soRepo    *repository.SalesOrderRepository
	status    *StatusService
	numbering *NumberingService
	db        *gorm.DB
}

func NewQuotationService(
	repo *repository.QuotationRepository,
	soRepo *repository.SalesOrderRepository,
	status *StatusService,
	numbering *NumberingService,
	db *gorm.DB,
) *QuotationService {
	return &QuotationService{repo: repo, soRepo: soRepo, status: status, numbering: numbering, db: db}
}

// CreateQuotationRequest 创建报价单请求
type CreateQuotationRequest struct {
	CustomerID      string          `json:"customer_id" binding:"required"`
	CustomerName    string          `json:"customer_name"`
	SalesPersonID   string          `json:"sales_person_id"`
	SalesPersonName string          `json:"sales_person_name"`
	Status          string          `json:"status"`
	DocDate         string          `json:"doc_date"`
	ValidUntil      string          `json:"valid_until"`
	Currency        string          `json:"currency"`
	OrderDiscount   float64         `json:"order_discount" binding:"gte=0"`
	TaxRate         *float64        `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	Notes           string          `json:"notes"`
	Items           []LineItemInput `json:"items" binding:"required,min=1,dive"`
}

// QuotationDetail 报价单详情，附带营收确认标记
type QuotationDetail struct {
	entity.Quotation
	RevenueRecognized bool `json:"revenue_recognized"`
}

// Create 创建报价单
func (s *QuotationService) Create(ctx context.Context, orgID, userID string, req *CreateQuotationRequest) (*entity.Quotation, error) {
	status := req.Status
	if status == "" {
		initial, err := s.status.InitialStatus(ctx, orgID, entity.DocTypeQuotation)
		if err != nil {
			return nil, err
		}
		status = initial
	} else if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeQuotation, status); err != nil {
		return nil, err
	}

	docDate, err := parseDocDate(req.DocDate)
	if err != nil {
		return nil, err
	}
	validUntil, err := parseDocDate(req.ValidUntil)
	if err != nil {
		return nil, err
	}
	if docDate == nil {
		now := time.Now()
		docDate = &now
	}

	taxRate := s.numbering.DefaultTaxRate(ctx, orgID, entity.DocTypeQuotation)
	if req.TaxRate != nil {
		taxRate = dec(*req.TaxRate)
	}
	currency := req.Currency
	if currency == "" {
		currency = "IDR"
	}

	q := &entity.Quotation{
		ID:              uuid.New().String(),
		OrgID:           orgID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		SalesPersonID:   req.SalesPersonID,
		SalesPersonName: req.SalesPersonName,
		Status:          status,
		DocDate:         docDate,
		ValidUntil:      validUntil,
		Currency:        currency,
		OrderDiscount:   dec(req.OrderDiscount),
		TaxRate:         taxRate,
		Notes:           req.Notes,
		CreatedBy:       userID,
	}
	q.Items, q.Subtotal, q.TaxAmount, q.TotalAmount = buildQuotationItems(q.ID, req.Items, q.OrderDiscount, taxRate)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.numbering.NextCode(ctx, tx, orgID, entity.DocTypeQuotation, *docDate)
		if err != nil {
			return err
		}
		q.Code = code
		return s.repo.Create(tx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("创建报价单失败: %w", err)
	}
	return q, nil
}

// Get 报价单详情
func (s *QuotationService) Get(ctx context.Context, orgID, id string) (*QuotationDetail, error) {
	q, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	registry, err := s.status.Lookup(ctx, orgID, entity.DocTypeQuotation)
	if err != nil {
		return nil, err
	}
	return &QuotationDetail{
		Quotation:         *q,
		RevenueRecognized: IsRevenueRecognized(q.Status, registry),
	}, nil
}

// List 报价单列表
func (s *QuotationService) List(ctx context.Context, params repository.DocListParams) ([]entity.Quotation, int64, error) {
	return s.repo.List(ctx, params)
}

// Update 更新报价单（整单提交，明细整组替换）
func (s *QuotationService) Update(ctx context.Context, orgID, id string, req *CreateQuotationRequest) (*entity.Quotation, error) {
	q, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Status != "" && req.Status != q.Status {
		if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeQuotation, req.Status); err != nil {
			return nil, err
		}
		q.Status = req.Status
	}
	docDate, err := parseDocDate(req.DocDate)
	if err != nil {
		return nil, err
	}
	if docDate != nil {
		q.DocDate = docDate
	}
	validUntil, err := parseDocDate(req.ValidUntil)
	if err != nil {
		return nil, err
	}
	if validUntil != nil {
		q.ValidUntil = validUntil
	}
	if req.TaxRate != nil {
		q.TaxRate = dec(*req.TaxRate)
	}
	if req.Currency != "" {
		q.Currency = req.Currency
	}

	q.CustomerID = req.CustomerID
	q.CustomerName = req.CustomerName
	q.SalesPersonID = req.SalesPersonID
	q.SalesPersonName = req.SalesPersonName
	q.OrderDiscount = dec(req.OrderDiscount)
	q.Notes = req.Notes
	q.Items, q.Subtotal, q.TaxAmount, q.TotalAmount = buildQuotationItems(q.ID, req.Items, q.OrderDiscount, q.TaxRate)

	if err := s.repo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("更新报价单失败: %w", err)
	}
	return q, nil
}

// UpdateStatus 显式状态流转
func (s *QuotationService) UpdateStatus(ctx context.Context, orgID, id, status string) (*entity.Quotation, error) {
	q, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeQuotation, status); err != nil {
		return nil, err
	}
	q.Status = status
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("更新报价单状态失败: %w", err)
	}
	return q, nil
}

// Delete 删除报价单
func (s *QuotationService) Delete(ctx context.Context, orgID, id string) error {
	if _, err := s.find(ctx, orgID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListSalesOrders 查询由该报价单转换生成的销售订单。
// 报价单允许多次转换，这里把结果透出给界面做提示。
func (s *QuotationService) ListSalesOrders(ctx context.Context, orgID, id string) ([]entity.SalesOrder, error) {
	if _, err := s.find(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.soRepo.FindByQuotation(ctx, orgID, id)
}

func (s *QuotationService) find(ctx context.Context, orgID, id string) (*entity.Quotation, error) {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.OrgID != orgID {
		return nil, ErrForbidden
	}
	return q, nil
}

func buildQuotationItems(quotationID string, inputs []LineItemInput, orderDiscount, taxRate decimal.Decimal) ([]entity.QuotationItem, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	items := make([]entity.QuotationItem, 0, len(inputs))
	subtotals := make([]decimal.Decimal, 0, len(inputs))
	for i, in := range inputs {
		discount, subtotal := entity.ComputeLineAmounts(dec(in.Quantity), dec(in.UnitPrice), dec(in.DiscountPercent), dec(in.DiscountAmount))
		items = append(items, entity.QuotationItem{
			ID:              uuid.New().String(),
			QuotationID:     quotationID,
			ProductID:       in.ProductID,
			ProductName:     in.ProductName,
			Unit:            in.Unit,
			Quantity:        dec(in.Quantity),
			UnitPrice:       dec(in.UnitPrice),
			DiscountPercent: dec(in.DiscountPercent),
			DiscountAmount:  discount,
			Subtotal:        subtotal,
			SortOrder:       i,
		})
		subtotals = append(subtotals, subtotal)
	}
	sub, tax, total := entity.ComputeDocTotals(subtotals, orderDiscount, taxRate)
	return items, sub, tax, total
}
