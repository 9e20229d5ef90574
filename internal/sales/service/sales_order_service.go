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

// SalesOrderService 销售订单服务。
// 携带 quotation_id 创建时走转换管道：报价单的客户、销售员、备注、
// 整单折扣与全部明细原样拷入，新订单一律落在状态流的初始状态上，
// 与报价单当前状态无关。
type SalesOrderService struct {
	repo      *repository.SalesOrderRepository
	quotRepo  *repository.QuotationRepository
	status    *StatusService
	numbering *NumberingService
	db        *gorm.DB
}

func NewSalesOrderService(
	repo *repository.SalesOrderRepository,
	quotRepo *repository.QuotationRepository,
	status *StatusService,
	numbering *NumberingService,
	db *gorm.DB,
) *SalesOrderService {
	return &SalesOrderService{repo: repo, quotRepo: quotRepo, status: status, numbering: numbering, db: db}
}

// CreateSalesOrderRequest 创建销售订单请求。
// QuotationID 非空时为转换创建，未提供的字段从报价单拷贝。
type CreateSalesOrderRequest struct {
	QuotationID     *string         `json:"quotation_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	SalesPersonID   string          `json:"sales_person_id"`
	SalesPersonName string          `json:"sales_person_name"`
	Status          string          `json:"status"`
	DocDate         string          `json:"doc_date"`
	Currency        string          `json:"currency"`
	OrderDiscount   *float64        `json:"order_discount" binding:"omitempty,gte=0"`
	TaxRate         *float64        `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	Notes           string          `json:"notes"`
	Items           []LineItemInput `json:"items" binding:"omitempty,dive"`
}

// SalesOrderDetail 销售订单详情，附带履约台账与营收确认标记
type SalesOrderDetail struct {
	entity.SalesOrder
	RevenueRecognized bool             `json:"revenue_recognized"`
	Fulfillment       []FulfillmentRow `json:"fulfillment"`
}

// Create 创建销售订单（可选从报价单转换）
func (s *SalesOrderService) Create(ctx context.Context, orgID, userID string, req *CreateSalesOrderRequest) (*entity.SalesOrder, error) {
	var source *entity.Quotation
	if req.QuotationID != nil && *req.QuotationID != "" {
		q, err := s.quotRepo.FindByID(ctx, *req.QuotationID)
		if err != nil {
			return nil, fmt.Errorf("来源报价单: %w", err)
		}
		if q.OrgID != orgID {
			return nil, ErrForbidden
		}
		if q.Status == entity.StatusKeyCancelled {
			return nil, preconditionErr("报价单 %s 已取消，不能转换", q.Code)
		}
		source = q
	}

	so := &entity.SalesOrder{
		ID:              uuid.New().String(),
		OrgID:           orgID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		SalesPersonID:   req.SalesPersonID,
		SalesPersonName: req.SalesPersonName,
		Currency:        req.Currency,
		Notes:           req.Notes,
		CreatedBy:       userID,
	}
	if req.OrderDiscount != nil {
		so.OrderDiscount = dec(*req.OrderDiscount)
	}
	taxRate := s.numbering.DefaultTaxRate(ctx, orgID, entity.DocTypeSalesOrder)
	if req.TaxRate != nil {
		taxRate = dec(*req.TaxRate)
	}

	itemInputs := req.Items
	if source != nil {
		so.QuotationID = &source.ID
		if so.CustomerID == "" {
			so.CustomerID = source.CustomerID
			so.CustomerName = source.CustomerName
		}
		if so.SalesPersonID == "" {
			so.SalesPersonID = source.SalesPersonID
			so.SalesPersonName = source.SalesPersonName
		}
		if so.Notes == "" {
			so.Notes = source.Notes
		}
		if so.Currency == "" {
			so.Currency = source.Currency
		}
		if req.OrderDiscount == nil {
			so.OrderDiscount = source.OrderDiscount
		}
		if req.TaxRate == nil {
			taxRate = source.TaxRate
		}
	}
	if so.CustomerID == "" {
		return nil, validationErr("缺少客户")
	}
	if len(itemInputs) == 0 && source == nil {
		return nil, validationErr("订单至少需要一条明细")
	}
	for i, in := range itemInputs {
		if in.Quantity <= 0 {
			return nil, validationErr("第%d条明细数量必须大于0", i+1)
		}
	}
	so.TaxRate = taxRate
	if so.Currency == "" {
		so.Currency = "IDR"
	}

	// 转换生成的订单一律从初始状态起步
	if source == nil && req.Status != "" {
		if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeSalesOrder, req.Status); err != nil {
			return nil, err
		}
		so.Status = req.Status
	} else {
		initial, err := s.status.InitialStatus(ctx, orgID, entity.DocTypeSalesOrder)
		if err != nil {
			return nil, err
		}
		so.Status = initial
	}

	docDate, err := parseDocDate(req.DocDate)
	if err != nil {
		return nil, err
	}
	if docDate == nil {
		now := time.Now()
		docDate = &now
	}
	so.DocDate = docDate

	if len(itemInputs) > 0 {
		so.Items, so.Subtotal, so.TaxAmount, so.TotalAmount = buildSalesOrderItems(so.ID, itemInputs, so.OrderDiscount, so.TaxRate)
	} else {
		// 转换且未覆写明细：报价单明细逐字段拷贝，金额保持精确值
		so.Items, so.Subtotal, so.TaxAmount, so.TotalAmount = copyQuotationItems(so.ID, source.Items, so.OrderDiscount, so.TaxRate)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.numbering.NextCode(ctx, tx, orgID, entity.DocTypeSalesOrder, *docDate)
		if err != nil {
			return err
		}
		so.Code = code
		return s.repo.Create(tx, so)
	})
	if err != nil {
		return nil, fmt.Errorf("创建销售订单失败: %w", err)
	}
	return so, nil
}

// Get 销售订单详情（含履约台账）
func (s *SalesOrderService) Get(ctx context.Context, orgID, id string, fulfillment *FulfillmentService) (*SalesOrderDetail, error) {
	so, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	registry, err := s.status.Lookup(ctx, orgID, entity.DocTypeSalesOrder)
	if err != nil {
		return nil, err
	}
	rows, err := fulfillment.Summarize(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return &SalesOrderDetail{
		SalesOrder:        *so,
		RevenueRecognized: IsRevenueRecognized(so.Status, registry),
		Fulfillment:       rows,
	}, nil
}

// List 销售订单列表
func (s *SalesOrderService) List(ctx context.Context, params repository.DocListParams) ([]entity.SalesOrder, int64, error) {
	return s.repo.List(ctx, params)
}

// Update 更新销售订单（整单提交，明细整组替换）
func (s *SalesOrderService) Update(ctx context.Context, orgID, id string, req *CreateSalesOrderRequest) (*entity.SalesOrder, error) {
	so, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Status != "" && req.Status != so.Status {
		if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeSalesOrder, req.Status); err != nil {
			return nil, err
		}
		so.Status = req.Status
	}
	docDate, err := parseDocDate(req.DocDate)
	if err != nil {
		return nil, err
	}
	if docDate != nil {
		so.DocDate = docDate
	}
	if req.CustomerID != "" {
		so.CustomerID = req.CustomerID
		so.CustomerName = req.CustomerName
	}
	so.SalesPersonID = req.SalesPersonID
	so.SalesPersonName = req.SalesPersonName
	if req.OrderDiscount != nil {
		so.OrderDiscount = dec(*req.OrderDiscount)
	}
	if req.TaxRate != nil {
		so.TaxRate = dec(*req.TaxRate)
	}
	if req.Currency != "" {
		so.Currency = req.Currency
	}
	so.Notes = req.Notes

	if len(req.Items) > 0 {
		so.Items, so.Subtotal, so.TaxAmount, so.TotalAmount = buildSalesOrderItems(so.ID, req.Items, so.OrderDiscount, so.TaxRate)
	} else {
		// 只改折扣或税率时，总额同样基于存量明细重算
		subtotals := make([]decimal.Decimal, 0, len(so.Items))
		for _, it := range so.Items {
			subtotals = append(subtotals, it.Subtotal)
		}
		so.Subtotal, so.TaxAmount, so.TotalAmount = entity.ComputeDocTotals(subtotals, so.OrderDiscount, so.TaxRate)
	}

	if err := s.repo.Update(ctx, so); err != nil {
		return nil, fmt.Errorf("更新销售订单失败: %w", err)
	}
	return so, nil
}

// UpdateStatus 显式状态流转
func (s *SalesOrderService) UpdateStatus(ctx context.Context, orgID, id, status string) (*entity.SalesOrder, error) {
	so, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeSalesOrder, status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("更新订单状态失败: %w", err)
	}
	so.Status = status
	return so, nil
}

// Delete 删除销售订单
func (s *SalesOrderService) Delete(ctx context.Context, orgID, id string) error {
	if _, err := s.find(ctx, orgID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *SalesOrderService) find(ctx context.Context, orgID, id string) (*entity.SalesOrder, error) {
	so, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if so.OrgID != orgID {
		return nil, ErrForbidden
	}
	return so, nil
}

// copyQuotationItems 报价单明细逐字段拷贝为订单明细，小计照常重算
func copyQuotationItems(salesOrderID string, items []entity.QuotationItem, orderDiscount, taxRate decimal.Decimal) ([]entity.SalesOrderItem, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	copied := make([]entity.SalesOrderItem, 0, len(items))
	subtotals := make([]decimal.Decimal, 0, len(items))
	for i, it := range items {
		discount, subtotal := entity.ComputeLineAmounts(it.Quantity, it.UnitPrice, it.DiscountPercent, it.DiscountAmount)
		copied = append(copied, entity.SalesOrderItem{
			ID:              uuid.New().String(),
			SalesOrderID:    salesOrderID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Unit:            it.Unit,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			DiscountAmount:  discount,
			Subtotal:        subtotal,
			SortOrder:       i,
		})
		subtotals = append(subtotals, subtotal)
	}
	sub, tax, total := entity.ComputeDocTotals(subtotals, orderDiscount, taxRate)
	return copied, sub, tax, total
}

func buildSalesOrderItems(salesOrderID string, inputs []LineItemInput, orderDiscount, taxRate decimal.Decimal) ([]entity.SalesOrderItem, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	items := make([]entity.SalesOrderItem, 0, len(inputs))
	subtotals := make([]decimal.Decimal, 0, len(inputs))
	for i, in := range inputs {
		discount, subtotal := entity.ComputeLineAmounts(dec(in.Quantity), dec(in.UnitPrice), dec(in.DiscountPercent), dec(in.DiscountAmount))
		items = append(items, entity.SalesOrderItem{
			ID:              uuid.New().String(),
			SalesOrderID:    salesOrderID,
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
