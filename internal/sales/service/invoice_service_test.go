package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/testutil"
)

func seedInvoice(t *testing.T, svc *Services, orgID string) *entity.Invoice {
	t.Helper()
	inv, err := svc.Invoice.Create(context.Background(), orgID, "test-user-001", &CreateInvoiceRequest{
		CustomerID:   "cust-001",
		CustomerName: "测试客户",
		Items: []LineItemInput{
			{ProductID: "prod-a", ProductName: "商品A", Quantity: 2, UnitPrice: 100},
		},
	})
	if err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	if !inv.TotalAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("Expected invoice total 200, got %s", inv.TotalAmount)
	}
	return inv
}

func TestPaymentLedgerRecompute(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	inv := seedInvoice(t, svc, org)

	// 两笔 50 的收款
	d1, err := svc.Invoice.AddPayment(ctx, org, "u1", inv.ID, &AddPaymentRequest{
		Amount: 50, Method: "bank_transfer", ReferenceNo: "TRX-001",
	})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if !d1.AmountPaid.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected paid 50, got %s", d1.AmountPaid)
	}

	d2, err := svc.Invoice.AddPayment(ctx, org, "u1", inv.ID, &AddPaymentRequest{
		Amount: 50, Method: "cash",
	})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if !d2.AmountPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected paid 100, got %s", d2.AmountPaid)
	}
	if !d2.AmountDue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected due 100, got %s", d2.AmountDue)
	}

	// 删除第一笔，余额回到 50/150
	d3, err := svc.Invoice.DeletePayment(ctx, org, inv.ID, d2.Payments[0].ID)
	if err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if !d3.AmountPaid.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected paid 50 after delete, got %s", d3.AmountPaid)
	}
	if !d3.AmountDue.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected due 150 after delete, got %s", d3.AmountDue)
	}
	if len(d3.Payments) != 1 {
		t.Errorf("Expected 1 remaining payment, got %d", len(d3.Payments))
	}
}

func TestOverPaymentYieldsNegativeDue(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	inv := seedInvoice(t, svc, org)

	detail, err := svc.Invoice.AddPayment(ctx, org, "u1", inv.ID, &AddPaymentRequest{
		Amount: 250, Method: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("over-payment should be accepted: %v", err)
	}
	if !detail.AmountDue.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("Expected due -50, got %s", detail.AmountDue)
	}
}

func TestPaymentRejectedOnCancelledInvoice(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	inv := seedInvoice(t, svc, org)
	if _, err := svc.Invoice.UpdateStatus(ctx, org, inv.ID, entity.StatusKeyCancelled); err != nil {
		t.Fatalf("cancel invoice: %v", err)
	}

	_, err := svc.Invoice.AddPayment(ctx, org, "u1", inv.ID, &AddPaymentRequest{
		Amount: 10, Method: "cash",
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected precondition error, got %v", err)
	}
}

func TestPaymentStatusDoesNotAutoFlip(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	inv := seedInvoice(t, svc, org)
	detail, err := svc.Invoice.AddPayment(ctx, org, "u1", inv.ID, &AddPaymentRequest{
		Amount: 200, Method: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	// 收满票面金额也不自动改状态，流转是显式操作
	if detail.Status != inv.Status {
		t.Errorf("Status must not auto-flip: %s -> %s", inv.Status, detail.Status)
	}
}

func TestInvoiceFromSalesOrderCopiesPrices(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 3)
	inv, err := svc.Invoice.Create(ctx, org, "u1", &CreateInvoiceRequest{
		SalesOrderID: &so.ID,
	})
	if err != nil {
		t.Fatalf("invoice from sales order: %v", err)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(inv.Items))
	}
	if !inv.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Unit price not copied, got %s", inv.Items[0].UnitPrice)
	}
	if !inv.TotalAmount.Equal(so.TotalAmount) {
		t.Errorf("Expected total %s, got %s", so.TotalAmount, inv.TotalAmount)
	}
}

func TestInvoiceFromDeliveryHasZeroPrices(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 3)
	do, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{
		SalesOrderID: &so.ID,
	})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}

	inv, err := svc.Invoice.Create(ctx, org, "u1", &CreateInvoiceRequest{
		DeliveryOrderID: &do.ID,
	})
	if err != nil {
		t.Fatalf("invoice from delivery: %v", err)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(inv.Items))
	}
	// 发货单不带价格，转出的明细单价为零，定价留给编辑补录
	if !inv.Items[0].UnitPrice.Equal(decimal.Zero) {
		t.Errorf("Expected zero unit price, got %s", inv.Items[0].UnitPrice)
	}
	if !inv.Items[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected quantity 3, got %s", inv.Items[0].Quantity)
	}
	if inv.SalesOrderID == nil || *inv.SalesOrderID != so.ID {
		t.Error("Invoice should inherit sales order reference through delivery")
	}
}

func TestInvoiceRejectsBothSources(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	so := seedSalesOrder(t, svc, org, 1)
	do, err := svc.Delivery.Create(ctx, org, "u1", &CreateDeliveryOrderRequest{SalesOrderID: &so.ID})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}

	_, err = svc.Invoice.Create(ctx, org, "u1", &CreateInvoiceRequest{
		SalesOrderID:    &so.ID,
		DeliveryOrderID: &do.ID,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error for dual sources, got %v", err)
	}
}

func TestInvoiceUpdateTaxRateRecomputesTotals(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	inv := seedInvoice(t, svc, org)

	// 只改税率不带明细，总额必须按存量明细重算
	rate := 10.0
	d, err := svc.Invoice.Update(ctx, org, inv.ID, &CreateInvoiceRequest{
		TaxRate: &rate,
	})
	if err != nil {
		t.Fatalf("update tax rate: %v", err)
	}
	if !d.Subtotal.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected subtotal 200, got %s", d.Subtotal)
	}
	if !d.TaxAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected tax 20 at 10%%, got %s", d.TaxAmount)
	}
	if !d.TotalAmount.Equal(decimal.NewFromInt(220)) {
		t.Errorf("Expected total 220, got %s", d.TotalAmount)
	}

	// 收款台账基于重算后的总额推导欠款
	pd, err := svc.Invoice.AddPayment(ctx, org, "u1", inv.ID, &AddPaymentRequest{Amount: 50, Method: "cash"})
	if err != nil {
		t.Fatalf("payment after rate change: %v", err)
	}
	if !pd.AmountDue.Equal(decimal.NewFromInt(170)) {
		t.Errorf("Expected due 170 against recomputed total, got %s", pd.AmountDue)
	}

	// 只改整单折扣同样重算
	discount := 20.0
	zero := 0.0
	d, err = svc.Invoice.Update(ctx, org, inv.ID, &CreateInvoiceRequest{
		OrderDiscount: &discount, TaxRate: &zero,
	})
	if err != nil {
		t.Fatalf("update discount: %v", err)
	}
	if !d.TotalAmount.Equal(decimal.NewFromInt(180)) {
		t.Errorf("Expected total 180 after discount, got %s", d.TotalAmount)
	}
}
