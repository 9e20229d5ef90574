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

// InvoiceService 发票与收款服务。
// 已收/未收金额不落库，每次读取都从收款行实时汇总；删除一条收款后
// 下一次读取自然回到正确的余额，没有需要维护的缓存列。
type InvoiceService struct {
	repo      *repository.InvoiceRepository
	soRepo    *repository.SalesOrderRepository
	doRepo    *repository.DeliveryOrderRepository
	status    *StatusService
	numbering *NumberingService
	db        *gorm.DB
}

func NewInvoiceService(
	repo *repository.InvoiceRepository,
	soRepo *repository.SalesOrderRepository,
	doRepo *repository.DeliveryOrderRepository,
	status *StatusService,
	numbering *NumberingService,
	db *gorm.DB,
) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		soRepo:    soRepo,
		doRepo:    doRepo,
		status:    status,
		numbering: numbering,
		db:        db,
	}
}

// CreateInvoiceRequest 创建发票请求。
// SalesOrderID 与 DeliveryOrderID 至多提供一个；都不提供则独立创建。
type CreateInvoiceRequest struct {
	SalesOrderID    *string         `json:"sales_order_id"`
	DeliveryOrderID *string         `json:"delivery_order_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	SalesPersonID   string          `json:"sales_person_id"`
	SalesPersonName string          `json:"sales_person_name"`
	DocDate         string          `json:"doc_date"`
	DueDate         string          `json:"due_date"`
	Currency        string          `json:"currency"`
	OrderDiscount   *float64        `json:"order_discount" binding:"omitempty,gte=0"`
	TaxRate         *float64        `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	Notes           string          `json:"notes"`
	Items           []LineItemInput `json:"items" binding:"omitempty,dive"`
}

// AddPaymentRequest 登记收款请求
type AddPaymentRequest struct {
	PaidAt      string  `json:"paid_at"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Method      string  `json:"method" binding:"required"`
	ReferenceNo string  `json:"reference_no"`
	Notes       string  `json:"notes"`
}

// InvoiceDetail 发票详情，附带收款台账汇总
type InvoiceDetail struct {
	entity.Invoice
	AmountPaid decimal.Decimal `json:"amount_paid"`
	AmountDue  decimal.Decimal `json:"amount_due"`
}

// Create 创建发票（可选从销售订单或发货单转换）
func (s *InvoiceService) Create(ctx context.Context, orgID, userID string, req *CreateInvoiceRequest) (*entity.Invoice, error) {
	hasSO := req.SalesOrderID != nil && *req.SalesOrderID != ""
	hasDO := req.DeliveryOrderID != nil && *req.DeliveryOrderID != ""
	if hasSO && hasDO {
		return nil, validationErr("销售订单与发货单来源只能二选一")
	}

	inv := &entity.Invoice{
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
		inv.OrderDiscount = dec(*req.OrderDiscount)
	}
	taxRate := s.numbering.DefaultTaxRate(ctx, orgID, entity.DocTypeInvoice)
	if req.TaxRate != nil {
		taxRate = dec(*req.TaxRate)
	}

	switch {
	case hasSO:
		so, err := s.soRepo.FindByID(ctx, *req.SalesOrderID)
		if err != nil {
			return nil, fmt.Errorf("来源销售订单: %w", err)
		}
		if so.OrgID != orgID {
			return nil, ErrForbidden
		}
		if so.Status == entity.StatusKeyCancelled {
			return nil, preconditionErr("销售订单 %s 已取消，不能开票", so.Code)
		}
		inv.SalesOrderID = &so.ID
		if inv.CustomerID == "" {
			inv.CustomerID = so.CustomerID
			inv.CustomerName = so.CustomerName
		}
		if inv.SalesPersonID == "" {
			inv.SalesPersonID = so.SalesPersonID
			inv.SalesPersonName = so.SalesPersonName
		}
		if inv.Currency == "" {
			inv.Currency = so.Currency
		}
		if req.OrderDiscount == nil {
			inv.OrderDiscount = so.OrderDiscount
		}
		if req.TaxRate == nil {
			taxRate = so.TaxRate
		}
		if len(req.Items) == 0 {
			inv.Items = copySalesOrderItems(inv.ID, so.Items)
		}
	case hasDO:
		do, err := s.doRepo.FindByID(ctx, *req.DeliveryOrderID)
		if err != nil {
			return nil, fmt.Errorf("来源发货单: %w", err)
		}
		if do.OrgID != orgID {
			return nil, ErrForbidden
		}
		if do.Status == entity.StatusKeyCancelled {
			return nil, preconditionErr("发货单 %s 已取消，不能开票", do.Code)
		}
		inv.DeliveryOrderID = &do.ID
		inv.SalesOrderID = do.SalesOrderID
		if inv.CustomerID == "" {
			inv.CustomerID = do.CustomerID
			inv.CustomerName = do.CustomerName
		}
		if len(req.Items) == 0 {
			// 发货单不带价格，转出的明细单价为零，定价留给后续编辑补录
			inv.Items = copyDeliveryItems(inv.ID, do.Items)
		}
	}

	if inv.CustomerID == "" {
		return nil, validationErr("缺少客户")
	}
	if len(req.Items) == 0 && len(inv.Items) == 0 {
		return nil, validationErr("发票至少需要一条明细")
	}
	inv.TaxRate = taxRate
	if inv.Currency == "" {
		inv.Currency = "IDR"
	}

	if len(req.Items) > 0 {
		for i, in := range req.Items {
			if in.Quantity <= 0 {
				return nil, validationErr("第%d条明细数量必须大于0", i+1)
			}
		}
		inv.Items, inv.Subtotal, inv.TaxAmount, inv.TotalAmount = buildInvoiceItems(inv.ID, req.Items, inv.OrderDiscount, inv.TaxRate)
	} else {
		subtotals := make([]decimal.Decimal, 0, len(inv.Items))
		for _, it := range inv.Items {
			subtotals = append(subtotals, it.Subtotal)
		}
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount = entity.ComputeDocTotals(subtotals, inv.OrderDiscount, inv.TaxRate)
	}

	initial, err := s.status.InitialStatus(ctx, orgID, entity.DocTypeInvoice)
	if err != nil {
		return nil, err
	}
	inv.Status = initial

	docDate, err := parseDocDate(req.DocDate)
	if err != nil {
		return nil, err
	}
	if docDate == nil {
		now := time.Now()
		docDate = &now
	}
	inv.DocDate = docDate
	dueDate, err := parseDocDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	inv.DueDate = dueDate

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.numbering.NextCode(ctx, tx, orgID, entity.DocTypeInvoice, *docDate)
		if err != nil {
			return err
		}
		inv.Code = code
		return s.repo.Create(tx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("创建发票失败: %w", err)
	}
	return inv, nil
}

// Get 发票详情（含收款台账汇总）
func (s *InvoiceService) Get(ctx context.Context, orgID, id string) (*InvoiceDetail, error) {
	inv, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return s.detail(inv), nil
}

// List 发票列表
func (s *InvoiceService) List(ctx context.Context, params repository.DocListParams) ([]entity.Invoice, int64, error) {
	return s.repo.List(ctx, params)
}

// Update 更新发票（整单提交，明细整组替换；已有收款不受影响）
func (s *InvoiceService) Update(ctx context.Context, orgID, id string, req *CreateInvoiceRequest) (*InvoiceDetail, error) {
	inv, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	docDate, err := parseDocDate(req.DocDate)
	if err != nil {
		return nil, err
	}
	if docDate != nil {
		inv.DocDate = docDate
	}
	dueDate, err := parseDocDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	if dueDate != nil {
		inv.DueDate = dueDate
	}
	if req.CustomerID != "" {
		inv.CustomerID = req.CustomerID
		inv.CustomerName = req.CustomerName
	}
	inv.SalesPersonID = req.SalesPersonID
	inv.SalesPersonName = req.SalesPersonName
	if req.OrderDiscount != nil {
		inv.OrderDiscount = dec(*req.OrderDiscount)
	}
	if req.TaxRate != nil {
		inv.TaxRate = dec(*req.TaxRate)
	}
	if req.Currency != "" {
		inv.Currency = req.Currency
	}
	inv.Notes = req.Notes

	if len(req.Items) > 0 {
		for i, in := range req.Items {
			if in.Quantity <= 0 {
				return nil, validationErr("第%d条明细数量必须大于0", i+1)
			}
		}
		inv.Items, inv.Subtotal, inv.TaxAmount, inv.TotalAmount = buildInvoiceItems(inv.ID, req.Items, inv.OrderDiscount, inv.TaxRate)
	} else {
		// 只改折扣或税率时，总额同样基于存量明细重算
		subtotals := make([]decimal.Decimal, 0, len(inv.Items))
		for _, it := range inv.Items {
			subtotals = append(subtotals, it.Subtotal)
		}
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount = entity.ComputeDocTotals(subtotals, inv.OrderDiscount, inv.TaxRate)
	}

	payments := inv.Payments
	inv.Payments = nil
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("更新发票失败: %w", err)
	}
	inv.Payments = payments
	return s.detail(inv), nil
}

// UpdateStatus 显式状态流转。收款与状态互不联动：收满不会自动置为
// 已付，状态流转也不会生成或删除收款行。
func (s *InvoiceService) UpdateStatus(ctx context.Context, orgID, id, status string) (*entity.Invoice, error) {
	inv, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeInvoice, status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("更新发票状态失败: %w", err)
	}
	inv.Status = status
	return inv, nil
}

// Delete 删除发票
func (s *InvoiceService) Delete(ctx context.Context, orgID, id string) error {
	if _, err := s.find(ctx, orgID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AddPayment 登记一笔收款。发票行加锁后插入，保证并发登记串行落账；
// 超出票面金额的收款照常入账，余额记为负数由前端呈现。
func (s *InvoiceService) AddPayment(ctx context.Context, orgID, userID, invoiceID string, req *AddPaymentRequest) (*InvoiceDetail, error) {
	if _, err := s.find(ctx, orgID, invoiceID); err != nil {
		return nil, err
	}

	paidAt := time.Now()
	if req.PaidAt != "" {
		t, err := parseDocDate(req.PaidAt)
		if err != nil {
			return nil, err
		}
		paidAt = *t
	}

	p := &entity.Payment{
		ID:          uuid.New().String(),
		OrgID:       orgID,
		InvoiceID:   invoiceID,
		PaidAt:      paidAt,
		Amount:      dec(req.Amount),
		Method:      req.Method,
		ReferenceNo: req.ReferenceNo,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}

	var inv *entity.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(tx, invoiceID)
		if err != nil {
			return err
		}
		if locked.Status == entity.StatusKeyCancelled {
			return preconditionErr("发票 %s 已取消，不能收款", locked.Code)
		}
		if err := s.repo.CreatePayment(tx, p); err != nil {
			return err
		}
		locked.Payments = append(locked.Payments, *p)
		inv = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.detail(inv), nil
}

// DeletePayment 删除一笔收款。收款记录只增删不改，改错金额走删除后重录。
func (s *InvoiceService) DeletePayment(ctx context.Context, orgID, invoiceID, paymentID string) (*InvoiceDetail, error) {
	if _, err := s.find(ctx, orgID, invoiceID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindPayment(ctx, invoiceID, paymentID); err != nil {
		return nil, err
	}

	var inv *entity.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.FindByIDForUpdate(tx, invoiceID); err != nil {
			return err
		}
		if err := s.repo.DeletePayment(tx, invoiceID, paymentID); err != nil {
			return err
		}
		refreshed, err := s.repo.FindByIDForUpdate(tx, invoiceID)
		if err != nil {
			return err
		}
		inv = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.detail(inv), nil
}

// detail 汇总收款行得到已收与未收金额，未收允许为负
func (s *InvoiceService) detail(inv *entity.Invoice) *InvoiceDetail {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	return &InvoiceDetail{
		Invoice:    *inv,
		AmountPaid: paid,
		AmountDue:  inv.TotalAmount.Sub(paid),
	}
}

func (s *InvoiceService) find(ctx context.Context, orgID, id string) (*entity.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.OrgID != orgID {
		return nil, ErrForbidden
	}
	return inv, nil
}

// copySalesOrderItems 订单明细逐字段拷贝为发票明细，含价格
func copySalesOrderItems(invoiceID string, items []entity.SalesOrderItem) []entity.InvoiceItem {
	copied := make([]entity.InvoiceItem, 0, len(items))
	for i, it := range items {
		copied = append(copied, entity.InvoiceItem{
			ID:              uuid.New().String(),
			InvoiceID:       invoiceID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Unit:            it.Unit,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			DiscountAmount:  it.DiscountAmount,
			Subtotal:        it.Subtotal,
			SortOrder:       i,
		})
	}
	return copied
}

// copyDeliveryItems 发货明细拷贝为发票明细，单价与小计为零待补录
func copyDeliveryItems(invoiceID string, items []entity.DeliveryOrderItem) []entity.InvoiceItem {
	copied := make([]entity.InvoiceItem, 0, len(items))
	for i, it := range items {
		copied = append(copied, entity.InvoiceItem{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Unit:        it.Unit,
			Quantity:    it.Quantity,
			SortOrder:   i,
		})
	}
	return copied
}

func buildInvoiceItems(invoiceID string, inputs []LineItemInput, orderDiscount, taxRate decimal.Decimal) ([]entity.InvoiceItem, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	items := make([]entity.InvoiceItem, 0, len(inputs))
	subtotals := make([]decimal.Decimal, 0, len(inputs))
	for i, in := range inputs {
		discount, subtotal := entity.ComputeLineAmounts(dec(in.Quantity), dec(in.UnitPrice), dec(in.DiscountPercent), dec(in.DiscountAmount))
		items = append(items, entity.InvoiceItem{
			ID:              uuid.New().String(),
			InvoiceID:       invoiceID,
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
